package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amirphl/Injera-Promo/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PromoCampaignRunRepositoryImpl implements PromoCampaignRunRepository
type PromoCampaignRunRepositoryImpl struct {
	*BaseRepository[models.PromoCampaignRun, models.PromoCampaignRunFilter]
}

func NewPromoCampaignRunRepository(db *gorm.DB) PromoCampaignRunRepository {
	return &PromoCampaignRunRepositoryImpl{BaseRepository: NewBaseRepository[models.PromoCampaignRun, models.PromoCampaignRunFilter](db)}
}

func (r *PromoCampaignRunRepositoryImpl) ByUUID(ctx context.Context, id uuid.UUID) (*models.PromoCampaignRun, error) {
	db := r.getDB(ctx)
	var run models.PromoCampaignRun
	if err := db.Where("uuid = ?", id).Take(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find campaign run by uuid: %w", err)
	}
	return &run, nil
}

// ClaimScheduled moves a scheduled run to running. It reports false when another worker claimed it first.
func (r *PromoCampaignRunRepositoryImpl) ClaimScheduled(ctx context.Context, id uint, startedAt time.Time) (bool, error) {
	db := r.getDB(ctx)
	res := db.Model(&models.PromoCampaignRun{}).
		Where("id = ? AND status = ?", id, models.PromoRunStatusScheduled).
		Updates(map[string]any{
			"status":     models.PromoRunStatusRunning,
			"started_at": startedAt,
			"updated_at": startedAt,
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to claim campaign run %d: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *PromoCampaignRunRepositoryImpl) applyFilter(db *gorm.DB, f models.PromoCampaignRunFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.UUID != nil {
		db = db.Where("uuid = ?", *f.UUID)
	}
	if f.StaffID != nil {
		db = db.Where("staff_id = ?", *f.StaffID)
	}
	if f.Platform != nil {
		db = db.Where("platform = ?", *f.Platform)
	}
	if f.Status != nil {
		db = db.Where("status = ?", *f.Status)
	}
	if f.ScheduledUntil != nil {
		db = db.Where("scheduled_at IS NOT NULL AND scheduled_at <= ?", *f.ScheduledUntil)
	}
	return db
}

func (r *PromoCampaignRunRepositoryImpl) ByFilter(ctx context.Context, filter models.PromoCampaignRunFilter, orderBy string, limit, offset int) ([]*models.PromoCampaignRun, error) {
	db := r.getDB(ctx)
	query := paginate(r.applyFilter(db.Model(&models.PromoCampaignRun{}), filter), orderBy, limit, offset)

	var rows []*models.PromoCampaignRun
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *PromoCampaignRunRepositoryImpl) Count(ctx context.Context, filter models.PromoCampaignRunFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	if err := r.applyFilter(db.Model(&models.PromoCampaignRun{}), filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PromoCampaignRunRepositoryImpl) Exists(ctx context.Context, filter models.PromoCampaignRunFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
