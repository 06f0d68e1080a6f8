package repository

import (
	"context"
	"fmt"

	"github.com/amirphl/Injera-Promo/models"
	"github.com/amirphl/Injera-Promo/utils"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// OrderRepositoryImpl implements OrderRepository
type OrderRepositoryImpl struct {
	DB *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &OrderRepositoryImpl{DB: db}
}

func (r *OrderRepositoryImpl) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(TxContextKey).(*gorm.DB); ok && tx != nil {
		return tx.WithContext(ctx)
	}
	return r.DB.WithContext(ctx)
}

func withOrderContext(db *gorm.DB) *gorm.DB {
	return db.Preload("PickupLocation").Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("order_items.id ASC")
	}).Preload("Items.MenuItem")
}

// LatestForCustomers returns the most recent in-scope order per customer
func (r *OrderRepositoryImpl) LatestForCustomers(ctx context.Context, customerIDs []uint, scope OrderScope) (map[uint]*models.Order, error) {
	out := make(map[uint]*models.Order)
	ids := utils.UniqueUints(customerIDs)
	if len(ids) == 0 || scope.DeniesAll() {
		return out, nil
	}
	db := r.getDB(ctx)

	latest := db.Table("orders").
		Select("DISTINCT ON (orders.customer_id) orders.id").
		Scopes(scope.Scope("orders.pickup_location_id")).
		Where("orders.customer_id = ANY(?)", pq.Array(utils.UintsToInt64s(ids))).
		Order("orders.customer_id, orders.created_at DESC, orders.id DESC")

	var orders []*models.Order
	if err := withOrderContext(db.Model(&models.Order{})).Where("orders.id IN (?)", latest).Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to load latest orders: %w", err)
	}
	for _, o := range orders {
		out[o.CustomerID] = o
	}
	return out, nil
}

type favoriteRow struct {
	CustomerID uint   `gorm:"column:customer_id"`
	Name       string `gorm:"column:name"`
	Score      int64  `gorm:"column:score"`
}

// FavoritesForCustomers resolves each customer's most frequently ordered item and branch
func (r *OrderRepositoryImpl) FavoritesForCustomers(ctx context.Context, customerIDs []uint, scope OrderScope) (map[uint]models.CustomerStats, error) {
	out := make(map[uint]models.CustomerStats)
	ids := utils.UniqueUints(customerIDs)
	if len(ids) == 0 || scope.DeniesAll() {
		return out, nil
	}
	db := r.getDB(ctx)
	idArray := pq.Array(utils.UintsToInt64s(ids))

	var items []favoriteRow
	err := db.Table("order_items AS oi").
		Select("o.customer_id, mi.name, SUM(oi.quantity) AS score").
		Joins("JOIN orders o ON o.id = oi.order_id").
		Joins("JOIN menu_items mi ON mi.id = oi.menu_item_id").
		Scopes(scope.Scope("o.pickup_location_id")).
		Where("o.customer_id = ANY(?)", idArray).
		Group("o.customer_id, mi.id, mi.name").
		Order("o.customer_id, score DESC, MAX(o.created_at) DESC").
		Scan(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load favorite items: %w", err)
	}

	var branches []favoriteRow
	err = db.Table("orders AS o").
		Select("o.customer_id, pl.name, COUNT(o.id) AS score").
		Joins("JOIN pickup_locations pl ON pl.id = o.pickup_location_id").
		Scopes(scope.Scope("o.pickup_location_id")).
		Where("o.customer_id = ANY(?)", idArray).
		Group("o.customer_id, pl.id, pl.name").
		Order("o.customer_id, score DESC, MAX(o.created_at) DESC").
		Scan(&branches).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load favorite branches: %w", err)
	}

	// rows arrive best-first per customer; keep the first of each
	for _, row := range items {
		stats := out[row.CustomerID]
		if stats.FavoriteItem == "" {
			stats.FavoriteItem = row.Name
			out[row.CustomerID] = stats
		}
	}
	for _, row := range branches {
		stats := out[row.CustomerID]
		if stats.FavoriteBranch == "" {
			stats.FavoriteBranch = row.Name
			out[row.CustomerID] = stats
		}
	}
	return out, nil
}
