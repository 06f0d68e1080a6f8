// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/amirphl/Injera-Promo/models"
	"github.com/google/uuid"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// CustomerRepository defines read operations for customers
type CustomerRepository interface {
	Repository[models.Customer, models.CustomerFilter]
	ByIDs(ctx context.Context, ids []uint) (map[uint]*models.Customer, error)
	ByPhone(ctx context.Context, phone string) (*models.Customer, error)
}

// OrderRepository defines branch-scoped read operations for orders
type OrderRepository interface {
	LatestForCustomers(ctx context.Context, customerIDs []uint, scope OrderScope) (map[uint]*models.Order, error)
	FavoritesForCustomers(ctx context.Context, customerIDs []uint, scope OrderScope) (map[uint]models.CustomerStats, error)
}

// AudienceRepository builds promo audiences from order aggregates
type AudienceRepository interface {
	List(ctx context.Context, actor *models.Actor, filter models.AudienceFilter, now time.Time, limit int) ([]*models.AudienceRow, error)
	Summary(ctx context.Context, actor *models.Actor, filter models.AudienceFilter, now time.Time) (*models.AudienceSummary, error)
}

// SmsTemplateRepository defines operations for message templates
type SmsTemplateRepository interface {
	Repository[models.SmsTemplate, models.SmsTemplateFilter]
	ByKey(ctx context.Context, key string) (*models.SmsTemplate, error)
	Update(ctx context.Context, tpl *models.SmsTemplate) error
}

// StaffUserRepository defines operations for staff accounts
type StaffUserRepository interface {
	ByID(ctx context.Context, id uint) (*models.StaffUser, error)
	ByPhone(ctx context.Context, phone string) (*models.StaffUser, error)
	Save(ctx context.Context, staff *models.StaffUser) error
	UpdateLastLogin(ctx context.Context, id uint, at time.Time) error
}

// PromoCampaignRunRepository defines operations for campaign runs
type PromoCampaignRunRepository interface {
	Repository[models.PromoCampaignRun, models.PromoCampaignRunFilter]
	ByUUID(ctx context.Context, id uuid.UUID) (*models.PromoCampaignRun, error)
	Update(ctx context.Context, run *models.PromoCampaignRun) error
	ClaimScheduled(ctx context.Context, id uint, startedAt time.Time) (bool, error)
}

// PromoDeliveryRepository defines operations for per-recipient delivery records
type PromoDeliveryRepository interface {
	Repository[models.PromoDelivery, models.PromoDeliveryFilter]
}

// AuditLogRepository defines operations for audit logs
type AuditLogRepository interface {
	Repository[models.AuditLog, models.AuditLogFilter]
	ListByStaff(ctx context.Context, staffID uint, limit, offset int) ([]*models.AuditLog, error)
}
