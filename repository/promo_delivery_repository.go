package repository

import (
	"context"

	"github.com/amirphl/Injera-Promo/models"
	"gorm.io/gorm"
)

// PromoDeliveryRepositoryImpl implements PromoDeliveryRepository
type PromoDeliveryRepositoryImpl struct {
	*BaseRepository[models.PromoDelivery, models.PromoDeliveryFilter]
}

func NewPromoDeliveryRepository(db *gorm.DB) PromoDeliveryRepository {
	return &PromoDeliveryRepositoryImpl{BaseRepository: NewBaseRepository[models.PromoDelivery, models.PromoDeliveryFilter](db)}
}

func (r *PromoDeliveryRepositoryImpl) applyFilter(db *gorm.DB, f models.PromoDeliveryFilter) *gorm.DB {
	if f.RunID != nil {
		db = db.Where("run_id = ?", *f.RunID)
	}
	if f.CustomerID != nil {
		db = db.Where("customer_id = ?", *f.CustomerID)
	}
	if f.Status != nil {
		db = db.Where("status = ?", *f.Status)
	}
	return db
}

func (r *PromoDeliveryRepositoryImpl) ByFilter(ctx context.Context, filter models.PromoDeliveryFilter, orderBy string, limit, offset int) ([]*models.PromoDelivery, error) {
	db := r.getDB(ctx)
	query := paginate(r.applyFilter(db.Model(&models.PromoDelivery{}), filter), orderBy, limit, offset)

	var rows []*models.PromoDelivery
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *PromoDeliveryRepositoryImpl) Count(ctx context.Context, filter models.PromoDeliveryFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	if err := r.applyFilter(db.Model(&models.PromoDelivery{}), filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PromoDeliveryRepositoryImpl) Exists(ctx context.Context, filter models.PromoDeliveryFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
