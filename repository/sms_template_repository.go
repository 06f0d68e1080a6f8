package repository

import (
	"context"
	"fmt"

	"github.com/amirphl/Injera-Promo/models"
	"gorm.io/gorm"
)

// SmsTemplateRepositoryImpl implements SmsTemplateRepository
type SmsTemplateRepositoryImpl struct {
	*BaseRepository[models.SmsTemplate, models.SmsTemplateFilter]
}

func NewSmsTemplateRepository(db *gorm.DB) SmsTemplateRepository {
	return &SmsTemplateRepositoryImpl{BaseRepository: NewBaseRepository[models.SmsTemplate, models.SmsTemplateFilter](db)}
}

// ByKey returns the template with the given key regardless of its active flag
func (r *SmsTemplateRepositoryImpl) ByKey(ctx context.Context, key string) (*models.SmsTemplate, error) {
	rows, err := r.ByFilter(ctx, models.SmsTemplateFilter{Key: &key}, "", 1, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to find template by key: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *SmsTemplateRepositoryImpl) applyFilter(db *gorm.DB, f models.SmsTemplateFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.Key != nil {
		db = db.Where("key = ?", *f.Key)
	}
	if f.KeyPrefix != nil {
		db = db.Where("key LIKE ?", escapeLike(*f.KeyPrefix)+"%")
	}
	if f.IsActive != nil {
		db = db.Where("is_active = ?", *f.IsActive)
	}
	return db
}

func (r *SmsTemplateRepositoryImpl) ByFilter(ctx context.Context, filter models.SmsTemplateFilter, orderBy string, limit, offset int) ([]*models.SmsTemplate, error) {
	db := r.getDB(ctx)
	query := paginate(r.applyFilter(db.Model(&models.SmsTemplate{}), filter), orderBy, limit, offset)

	var rows []*models.SmsTemplate
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *SmsTemplateRepositoryImpl) Count(ctx context.Context, filter models.SmsTemplateFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	if err := r.applyFilter(db.Model(&models.SmsTemplate{}), filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *SmsTemplateRepositoryImpl) Exists(ctx context.Context, filter models.SmsTemplateFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
