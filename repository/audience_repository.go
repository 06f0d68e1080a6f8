package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/amirphl/Injera-Promo/models"
	"github.com/amirphl/Injera-Promo/utils"
	"gorm.io/gorm"
)

// AudienceOrdering is the ordering used for previews, exports and dispatch
const AudienceOrdering = "orders_count DESC, total_spent DESC, customer_id ASC"

// AudienceRepositoryImpl implements AudienceRepository on Postgres
type AudienceRepositoryImpl struct {
	DB *gorm.DB
}

func NewAudienceRepository(db *gorm.DB) AudienceRepository {
	return &AudienceRepositoryImpl{DB: db}
}

func (r *AudienceRepositoryImpl) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(TxContextKey).(*gorm.DB); ok && tx != nil {
		return tx.WithContext(ctx)
	}
	return r.DB.WithContext(ctx)
}

// List returns the ordered audience. limit <= 0 returns every row.
func (r *AudienceRepositoryImpl) List(ctx context.Context, actor *models.Actor, filter models.AudienceFilter, now time.Time, limit int) ([]*models.AudienceRow, error) {
	db := r.getDB(ctx)
	query := newAudienceQuery(actor, filter, now).build(db).Order(AudienceOrdering)
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []*models.AudienceRow
	if err := query.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list audience: %w", err)
	}
	return rows, nil
}

// Summary aggregates the whole audience in a single query
func (r *AudienceRepositoryImpl) Summary(ctx context.Context, actor *models.Actor, filter models.AudienceFilter, now time.Time) (*models.AudienceSummary, error) {
	db := r.getDB(ctx)
	grouped := newAudienceQuery(actor, filter, now).build(db)

	dormantBefore := now.AddDate(0, 0, -utils.DormantAfterDays)
	var summary models.AudienceSummary
	err := db.Table("(?) AS a", grouped).
		Select("COUNT(*) AS matched_customers, "+
			"COUNT(*) FILTER (WHERE a.total_spent >= ?) AS high_value_customers, "+
			"COUNT(*) FILTER (WHERE a.last_order_at IS NOT NULL AND a.last_order_at < ?) AS dormant_customers, "+
			"COALESCE(SUM(a.orders_count), 0) AS total_orders, "+
			"COALESCE(SUM(a.total_spent), 0) AS total_spent",
			utils.HighValueSpendThreshold, dormantBefore).
		Scan(&summary).Error
	if err != nil {
		return nil, fmt.Errorf("failed to summarize audience: %w", err)
	}
	return &summary, nil
}
