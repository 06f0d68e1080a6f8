package repository

import (
	"context"
	"fmt"

	"github.com/amirphl/Injera-Promo/models"
	"github.com/amirphl/Injera-Promo/utils"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// CustomerRepositoryImpl implements CustomerRepository interface
type CustomerRepositoryImpl struct {
	*BaseRepository[models.Customer, models.CustomerFilter]
}

// NewCustomerRepository creates a new customer repository
func NewCustomerRepository(db *gorm.DB) CustomerRepository {
	return &CustomerRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Customer, models.CustomerFilter](db),
	}
}

// ByPhone retrieves a customer by the stored phone value
func (r *CustomerRepositoryImpl) ByPhone(ctx context.Context, phone string) (*models.Customer, error) {
	customers, err := r.ByFilter(ctx, models.CustomerFilter{Phone: &phone}, "", 1, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to find customer by phone: %w", err)
	}
	if len(customers) == 0 {
		return nil, nil
	}
	return customers[0], nil
}

// ByIDs loads customers keyed by id; missing ids are simply absent from the map
func (r *CustomerRepositoryImpl) ByIDs(ctx context.Context, ids []uint) (map[uint]*models.Customer, error) {
	out := make(map[uint]*models.Customer, len(ids))
	ids = utils.UniqueUints(ids)
	if len(ids) == 0 {
		return out, nil
	}

	// chunked to keep the bind array small on large audiences
	const chunk = 1000
	for start := 0; start < len(ids); start += chunk {
		end := min(start+chunk, len(ids))
		customers, err := r.ByFilter(ctx, models.CustomerFilter{IDs: ids[start:end]}, "", 0, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to load customers: %w", err)
		}
		for _, c := range customers {
			out[c.ID] = c
		}
	}
	return out, nil
}

func (r *CustomerRepositoryImpl) applyFilter(db *gorm.DB, f models.CustomerFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if len(f.IDs) > 0 {
		db = db.Where("id = ANY(?)", pq.Array(utils.UintsToInt64s(f.IDs)))
	}
	if f.Phone != nil {
		db = db.Where("phone = ?", *f.Phone)
	}
	if f.TelegramID != nil {
		db = db.Where("telegram_id = ?", *f.TelegramID)
	}
	return db
}

func (r *CustomerRepositoryImpl) ByFilter(ctx context.Context, filter models.CustomerFilter, orderBy string, limit, offset int) ([]*models.Customer, error) {
	db := r.getDB(ctx)
	query := paginate(r.applyFilter(db.Model(&models.Customer{}), filter), orderBy, limit, offset)

	var rows []*models.Customer
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *CustomerRepositoryImpl) Count(ctx context.Context, filter models.CustomerFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	if err := r.applyFilter(db.Model(&models.Customer{}), filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *CustomerRepositoryImpl) Exists(ctx context.Context, filter models.CustomerFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
