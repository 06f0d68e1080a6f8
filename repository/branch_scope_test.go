package repository

import (
	"testing"

	"github.com/amirphl/Injera-Promo/models"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestActorOrderScope(t *testing.T) {
	tests := []struct {
		name      string
		actor     *models.Actor
		want      OrderScope
		deniesAll bool
	}{
		{
			name:  "admin sees every branch",
			actor: &models.Actor{Role: models.StaffRoleAdmin, BranchIDs: []uint{1}},
			want:  OrderScope{Unrestricted: true},
		},
		{
			name:  "super admin sees every branch",
			actor: &models.Actor{Role: models.StaffRoleSuperAdmin},
			want:  OrderScope{Unrestricted: true},
		},
		{
			name:  "branch manager sees assigned branches once",
			actor: &models.Actor{Role: models.StaffRoleBranchManager, BranchIDs: []uint{3, 1, 3, 0}},
			want:  OrderScope{BranchIDs: []uint{3, 1}},
		},
		{
			name:      "staff without branches sees nothing",
			actor:     &models.Actor{Role: models.StaffRoleMarketing},
			want:      OrderScope{BranchIDs: []uint{}},
			deniesAll: true,
		},
		{
			name:      "no actor sees nothing",
			actor:     nil,
			want:      OrderScope{},
			deniesAll: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ActorOrderScope(tt.actor)
			assert.Equal(t, tt.want.Unrestricted, got.Unrestricted)
			assert.ElementsMatch(t, tt.want.BranchIDs, got.BranchIDs)
			assert.Equal(t, tt.deniesAll, got.DeniesAll())
		})
	}
}

func TestOrderScopeNarrow(t *testing.T) {
	restricted := OrderScope{BranchIDs: []uint{1, 2}}

	t.Run("no request keeps the scope", func(t *testing.T) {
		assert.Equal(t, restricted, restricted.Narrow(nil))
	})

	t.Run("unrestricted narrows to the request", func(t *testing.T) {
		got := OrderScope{Unrestricted: true}.Narrow([]uint{5, 5, 7})
		assert.False(t, got.Unrestricted)
		assert.ElementsMatch(t, []uint{5, 7}, got.BranchIDs)
	})

	t.Run("restricted intersects", func(t *testing.T) {
		got := restricted.Narrow([]uint{2, 9})
		assert.Equal(t, []uint{2}, got.BranchIDs)
		assert.False(t, got.DeniesAll())
	})

	t.Run("disjoint request denies all", func(t *testing.T) {
		got := restricted.Narrow([]uint{9})
		assert.True(t, got.DeniesAll())
	})
}

func TestOrderScopeClause(t *testing.T) {
	sql, args := OrderScope{Unrestricted: true}.Clause("o.pickup_location_id")
	assert.Empty(t, sql)
	assert.Nil(t, args)

	sql, args = OrderScope{}.Clause("o.pickup_location_id")
	assert.Equal(t, "1 = 0", sql)
	assert.Nil(t, args)

	sql, args = OrderScope{BranchIDs: []uint{3, 4}}.Clause("o.pickup_location_id")
	assert.Equal(t, "o.pickup_location_id = ANY(?)", sql)
	assert.Equal(t, []any{pq.Array([]int64{3, 4})}, args)
}

func TestAudienceOrderScope(t *testing.T) {
	manager := &models.Actor{Role: models.StaffRoleBranchManager, BranchIDs: []uint{1, 2}}

	got := AudienceOrderScope(manager, models.AudienceFilter{BranchIDs: []uint{2, 3}})
	assert.Equal(t, []uint{2}, got.BranchIDs)

	got = AudienceOrderScope(manager, models.AudienceFilter{})
	assert.ElementsMatch(t, []uint{1, 2}, got.BranchIDs)
}
