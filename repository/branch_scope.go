package repository

import (
	"github.com/amirphl/Injera-Promo/models"
	"github.com/amirphl/Injera-Promo/utils"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// OrderScope is the set of branches whose orders a query may see.
// A restricted scope with no branches sees nothing.
type OrderScope struct {
	Unrestricted bool
	BranchIDs    []uint
}

// ActorOrderScope applies the branch-access policy: admins see every branch,
// everyone else only their assigned branches.
func ActorOrderScope(actor *models.Actor) OrderScope {
	if actor == nil {
		return OrderScope{}
	}
	if actor.IsAdmin() {
		return OrderScope{Unrestricted: true}
	}
	return OrderScope{BranchIDs: utils.UniqueUints(actor.BranchIDs)}
}

// AudienceOrderScope is the actor scope narrowed by the branches requested in filter
func AudienceOrderScope(actor *models.Actor, filter models.AudienceFilter) OrderScope {
	return ActorOrderScope(actor).Narrow(filter.BranchIDs)
}

// Narrow restricts the scope to requested branches. Requesting only branches
// outside the scope yields a scope that denies everything.
func (s OrderScope) Narrow(requested []uint) OrderScope {
	requested = utils.UniqueUints(requested)
	if len(requested) == 0 {
		return s
	}
	if s.Unrestricted {
		return OrderScope{BranchIDs: requested}
	}
	return OrderScope{BranchIDs: utils.IntersectUints(requested, s.BranchIDs)}
}

// DeniesAll reports whether no order can match the scope
func (s OrderScope) DeniesAll() bool {
	return !s.Unrestricted && len(s.BranchIDs) == 0
}

// Clause renders the scope as a predicate on column. An empty string means no restriction.
func (s OrderScope) Clause(column string) (string, []any) {
	if s.Unrestricted {
		return "", nil
	}
	if len(s.BranchIDs) == 0 {
		return "1 = 0", nil
	}
	return column + " = ANY(?)", []any{pq.Array(utils.UintsToInt64s(s.BranchIDs))}
}

// Scope returns a gorm scope restricting column to the scope's branches
func (s OrderScope) Scope(column string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		sql, args := s.Clause(column)
		if sql == "" {
			return db
		}
		return db.Where(sql, args...)
	}
}
