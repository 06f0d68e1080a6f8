package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amirphl/Injera-Promo/models"
	"gorm.io/gorm"
)

// StaffUserRepositoryImpl implements StaffUserRepository
type StaffUserRepositoryImpl struct {
	*BaseRepository[models.StaffUser, struct{}]
}

func NewStaffUserRepository(db *gorm.DB) StaffUserRepository {
	return &StaffUserRepositoryImpl{BaseRepository: NewBaseRepository[models.StaffUser, struct{}](db)}
}

// ByID loads the staff member together with their assigned branches
func (r *StaffUserRepositoryImpl) ByID(ctx context.Context, id uint) (*models.StaffUser, error) {
	db := r.getDB(ctx)
	var staff models.StaffUser
	if err := db.Preload("Branches").Take(&staff, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find staff user %d: %w", id, err)
	}
	return &staff, nil
}

// ByPhone loads the staff member registered under phone
func (r *StaffUserRepositoryImpl) ByPhone(ctx context.Context, phone string) (*models.StaffUser, error) {
	db := r.getDB(ctx)
	var staff models.StaffUser
	if err := db.Preload("Branches").Where("phone = ?", phone).Take(&staff).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find staff user by phone: %w", err)
	}
	return &staff, nil
}

func (r *StaffUserRepositoryImpl) UpdateLastLogin(ctx context.Context, id uint, at time.Time) error {
	db := r.getDB(ctx)
	if err := db.Model(&models.StaffUser{}).Where("id = ?", id).Update("last_login_at", at).Error; err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}
