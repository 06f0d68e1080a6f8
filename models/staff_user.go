package models

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// StaffRole is the access role of a staff member
type StaffRole string

const (
	StaffRoleSuperAdmin    StaffRole = "super_admin"
	StaffRoleAdmin         StaffRole = "admin"
	StaffRoleBranchManager StaffRole = "branch_manager"
	StaffRoleMarketing     StaffRole = "marketing"
	StaffRoleCashier       StaffRole = "cashier"
)

func (r StaffRole) String() string {
	return string(r)
}

func (r StaffRole) Valid() bool {
	switch r {
	case StaffRoleSuperAdmin, StaffRoleAdmin, StaffRoleBranchManager, StaffRoleMarketing, StaffRoleCashier:
		return true
	default:
		return false
	}
}

// IsAdminEquivalent reports whether the role sees every branch
func (r StaffRole) IsAdminEquivalent() bool {
	return r == StaffRoleSuperAdmin || r == StaffRoleAdmin
}

// Scan implements the sql.Scanner interface for StaffRole
func (r *StaffRole) Scan(value any) error {
	if value == nil {
		*r = ""
		return nil
	}
	switch v := value.(type) {
	case string:
		*r = StaffRole(v)
	case []byte:
		*r = StaffRole(string(v))
	default:
		return fmt.Errorf("cannot scan %T into StaffRole", value)
	}
	return nil
}

// Value implements the driver.Valuer interface for StaffRole
func (r StaffRole) Value() (driver.Value, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid StaffRole: %s", r)
	}
	return string(r), nil
}

type StaffUser struct {
	ID           uint             `gorm:"primaryKey" json:"id"`
	Name         string           `gorm:"size:255;not null" json:"name"`
	Phone        string           `gorm:"size:32;not null;uniqueIndex:uk_staff_users_phone" json:"phone"`
	PasswordHash string           `gorm:"size:255;not null" json:"-"`
	Role         StaffRole        `gorm:"size:32;not null;index:idx_staff_users_role" json:"role"`
	IsActive     *bool            `gorm:"default:true" json:"is_active"`
	Branches     []PickupLocation `gorm:"many2many:staff_branches;joinForeignKey:StaffUserID;joinReferences:PickupLocationID" json:"branches,omitempty"`
	LastLoginAt  *time.Time       `json:"last_login_at,omitempty"`
	CreatedAt    time.Time        `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt    time.Time        `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

func (StaffUser) TableName() string {
	return "staff_users"
}

// Actor builds the branch-access view of this staff member
func (s *StaffUser) Actor() *Actor {
	ids := make([]uint, 0, len(s.Branches))
	for _, b := range s.Branches {
		ids = append(ids, b.ID)
	}
	return &Actor{StaffID: s.ID, Name: s.Name, Role: s.Role, BranchIDs: ids}
}

// Actor is the staff member on whose behalf an audience is built
type Actor struct {
	StaffID   uint      `json:"staff_id"`
	Name      string    `json:"name"`
	Role      StaffRole `json:"role"`
	BranchIDs []uint    `json:"branch_ids"`
}

// IsAdmin reports whether the actor is unrestricted by branch
func (a *Actor) IsAdmin() bool {
	return a != nil && a.Role.IsAdminEquivalent()
}

// CanAccessBranch reports whether branchID is inside the actor's scope
func (a *Actor) CanAccessBranch(branchID uint) bool {
	if a == nil {
		return false
	}
	if a.IsAdmin() {
		return true
	}
	for _, id := range a.BranchIDs {
		if id == branchID {
			return true
		}
	}
	return false
}
