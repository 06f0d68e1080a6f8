package businessflow

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/amirphl/Injera-Promo/models"
	"github.com/amirphl/Injera-Promo/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type fakeAudienceRepo struct {
	rows    []*models.AudienceRow
	summary *models.AudienceSummary
	err     error

	listCalls    int
	summaryCalls int
	limits       []int
	filters      []models.AudienceFilter
}

func (f *fakeAudienceRepo) List(ctx context.Context, actor *models.Actor, filter models.AudienceFilter, now time.Time, limit int) ([]*models.AudienceRow, error) {
	f.listCalls++
	f.limits = append(f.limits, limit)
	f.filters = append(f.filters, filter)
	if f.err != nil {
		return nil, f.err
	}
	if limit > 0 && limit < len(f.rows) {
		return f.rows[:limit], nil
	}
	return f.rows, nil
}

func (f *fakeAudienceRepo) Summary(ctx context.Context, actor *models.Actor, filter models.AudienceFilter, now time.Time) (*models.AudienceSummary, error) {
	f.summaryCalls++
	if f.err != nil {
		return nil, f.err
	}
	if f.summary == nil {
		return &models.AudienceSummary{TotalSpent: decimal.Zero}, nil
	}
	return f.summary, nil
}

type fakeCustomerRepo struct {
	customers map[uint]*models.Customer
}

func (f *fakeCustomerRepo) ByID(ctx context.Context, id uint) (*models.Customer, error) {
	return f.customers[id], nil
}

func (f *fakeCustomerRepo) ByFilter(ctx context.Context, filter models.CustomerFilter, orderBy string, limit, offset int) ([]*models.Customer, error) {
	var out []*models.Customer
	for _, c := range f.customers {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeCustomerRepo) Save(ctx context.Context, c *models.Customer) error {
	if f.customers == nil {
		f.customers = map[uint]*models.Customer{}
	}
	f.customers[c.ID] = c
	return nil
}

func (f *fakeCustomerRepo) SaveBatch(ctx context.Context, cs []*models.Customer) error {
	for _, c := range cs {
		_ = f.Save(ctx, c)
	}
	return nil
}

func (f *fakeCustomerRepo) Count(ctx context.Context, filter models.CustomerFilter) (int64, error) {
	return int64(len(f.customers)), nil
}

func (f *fakeCustomerRepo) Exists(ctx context.Context, filter models.CustomerFilter) (bool, error) {
	return len(f.customers) > 0, nil
}

func (f *fakeCustomerRepo) ByIDs(ctx context.Context, ids []uint) (map[uint]*models.Customer, error) {
	out := make(map[uint]*models.Customer, len(ids))
	for _, id := range ids {
		if c, ok := f.customers[id]; ok {
			out[id] = c
		}
	}
	return out, nil
}

func (f *fakeCustomerRepo) ByPhone(ctx context.Context, phone string) (*models.Customer, error) {
	for _, c := range f.customers {
		if c.Phone == phone {
			return c, nil
		}
	}
	return nil, nil
}

type fakeOrderRepo struct {
	latest map[uint]*models.Order
	stats  map[uint]models.CustomerStats
	scopes []repository.OrderScope
}

func (f *fakeOrderRepo) LatestForCustomers(ctx context.Context, customerIDs []uint, scope repository.OrderScope) (map[uint]*models.Order, error) {
	f.scopes = append(f.scopes, scope)
	out := map[uint]*models.Order{}
	for _, id := range customerIDs {
		if o, ok := f.latest[id]; ok {
			out[id] = o
		}
	}
	return out, nil
}

func (f *fakeOrderRepo) FavoritesForCustomers(ctx context.Context, customerIDs []uint, scope repository.OrderScope) (map[uint]models.CustomerStats, error) {
	out := map[uint]models.CustomerStats{}
	for _, id := range customerIDs {
		if s, ok := f.stats[id]; ok {
			out[id] = s
		}
	}
	return out, nil
}

type fakeTemplateRepo struct {
	byKey    map[string]*models.SmsTemplate
	byKeyErr error
	saveErrs []error
	saved    []*models.SmsTemplate
	nextID   uint
}

func newFakeTemplateRepo(existing ...*models.SmsTemplate) *fakeTemplateRepo {
	f := &fakeTemplateRepo{byKey: map[string]*models.SmsTemplate{}}
	for _, t := range existing {
		f.nextID++
		t.ID = f.nextID
		f.byKey[t.Key] = t
	}
	return f
}

func (f *fakeTemplateRepo) ByID(ctx context.Context, id uint) (*models.SmsTemplate, error) {
	for _, t := range f.byKey {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, nil
}

func (f *fakeTemplateRepo) ByFilter(ctx context.Context, filter models.SmsTemplateFilter, orderBy string, limit, offset int) ([]*models.SmsTemplate, error) {
	var out []*models.SmsTemplate
	for _, t := range f.byKey {
		if filter.IsActive != nil && t.Active() != *filter.IsActive {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}

func (f *fakeTemplateRepo) Save(ctx context.Context, t *models.SmsTemplate) error {
	if len(f.saveErrs) > 0 {
		err := f.saveErrs[0]
		f.saveErrs = f.saveErrs[1:]
		return err
	}
	if _, ok := f.byKey[t.Key]; ok {
		return fmt.Errorf("failed to save entity: %w", gorm.ErrDuplicatedKey)
	}
	f.nextID++
	t.ID = f.nextID
	f.byKey[t.Key] = t
	f.saved = append(f.saved, t)
	return nil
}

func (f *fakeTemplateRepo) SaveBatch(ctx context.Context, ts []*models.SmsTemplate) error {
	for _, t := range ts {
		if err := f.Save(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeTemplateRepo) Count(ctx context.Context, filter models.SmsTemplateFilter) (int64, error) {
	return int64(len(f.byKey)), nil
}

func (f *fakeTemplateRepo) Exists(ctx context.Context, filter models.SmsTemplateFilter) (bool, error) {
	return len(f.byKey) > 0, nil
}

func (f *fakeTemplateRepo) ByKey(ctx context.Context, key string) (*models.SmsTemplate, error) {
	if f.byKeyErr != nil {
		return nil, f.byKeyErr
	}
	return f.byKey[key], nil
}

func (f *fakeTemplateRepo) Update(ctx context.Context, t *models.SmsTemplate) error {
	f.byKey[t.Key] = t
	return nil
}

type fakeRunRepo struct {
	mu      sync.Mutex
	runs    map[uint]*models.PromoCampaignRun
	nextID  uint
	updates int
}

func newFakeRunRepo() *fakeRunRepo {
	return &fakeRunRepo{runs: map[uint]*models.PromoCampaignRun{}}
}

func (f *fakeRunRepo) ByID(ctx context.Context, id uint) (*models.PromoCampaignRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.runs[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRunRepo) ByFilter(ctx context.Context, filter models.PromoCampaignRunFilter, orderBy string, limit, offset int) ([]*models.PromoCampaignRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.PromoCampaignRun
	for _, r := range f.runs {
		if filter.StaffID != nil && r.StaffID != *filter.StaffID {
			continue
		}
		if filter.Status != nil && r.Status != *filter.Status {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeRunRepo) Save(ctx context.Context, r *models.PromoCampaignRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	r.ID = f.nextID
	cp := *r
	f.runs[r.ID] = &cp
	return nil
}

func (f *fakeRunRepo) SaveBatch(ctx context.Context, rs []*models.PromoCampaignRun) error {
	for _, r := range rs {
		_ = f.Save(ctx, r)
	}
	return nil
}

func (f *fakeRunRepo) Count(ctx context.Context, filter models.PromoCampaignRunFilter) (int64, error) {
	rows, _ := f.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(rows)), nil
}

func (f *fakeRunRepo) Exists(ctx context.Context, filter models.PromoCampaignRunFilter) (bool, error) {
	c, _ := f.Count(ctx, filter)
	return c > 0, nil
}

func (f *fakeRunRepo) ByUUID(ctx context.Context, id uuid.UUID) (*models.PromoCampaignRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.runs {
		if r.UUID == id {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeRunRepo) Update(ctx context.Context, r *models.PromoCampaignRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	cp := *r
	f.runs[r.ID] = &cp
	return nil
}

func (f *fakeRunRepo) ClaimScheduled(ctx context.Context, id uint, startedAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.runs[id]
	if !ok || r.Status != models.PromoRunStatusScheduled {
		return false, nil
	}
	r.Status = models.PromoRunStatusRunning
	r.StartedAt = &startedAt
	return true, nil
}

func (f *fakeRunRepo) only() *models.PromoCampaignRun {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.runs {
		return r
	}
	return nil
}

type fakeDeliveryRepo struct {
	saved   []*models.PromoDelivery
	batches int
}

func (f *fakeDeliveryRepo) ByID(ctx context.Context, id uint) (*models.PromoDelivery, error) {
	for _, d := range f.saved {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, nil
}

func (f *fakeDeliveryRepo) ByFilter(ctx context.Context, filter models.PromoDeliveryFilter, orderBy string, limit, offset int) ([]*models.PromoDelivery, error) {
	var out []*models.PromoDelivery
	for _, d := range f.saved {
		if filter.RunID != nil && d.RunID != *filter.RunID {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (f *fakeDeliveryRepo) Save(ctx context.Context, d *models.PromoDelivery) error {
	d.ID = uint(len(f.saved) + 1)
	f.saved = append(f.saved, d)
	return nil
}

func (f *fakeDeliveryRepo) SaveBatch(ctx context.Context, ds []*models.PromoDelivery) error {
	f.batches++
	for _, d := range ds {
		_ = f.Save(ctx, d)
	}
	return nil
}

func (f *fakeDeliveryRepo) Count(ctx context.Context, filter models.PromoDeliveryFilter) (int64, error) {
	rows, _ := f.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(rows)), nil
}

func (f *fakeDeliveryRepo) Exists(ctx context.Context, filter models.PromoDeliveryFilter) (bool, error) {
	c, _ := f.Count(ctx, filter)
	return c > 0, nil
}

type fakeStaffRepo struct {
	staff      map[uint]*models.StaffUser
	lastLogins map[uint]time.Time
}

func (f *fakeStaffRepo) ByID(ctx context.Context, id uint) (*models.StaffUser, error) {
	return f.staff[id], nil
}

func (f *fakeStaffRepo) ByPhone(ctx context.Context, phone string) (*models.StaffUser, error) {
	for _, s := range f.staff {
		if s.Phone == phone {
			return s, nil
		}
	}
	return nil, nil
}

func (f *fakeStaffRepo) Save(ctx context.Context, s *models.StaffUser) error {
	if f.staff == nil {
		f.staff = map[uint]*models.StaffUser{}
	}
	s.ID = uint(len(f.staff) + 1)
	f.staff[s.ID] = s
	return nil
}

func (f *fakeStaffRepo) UpdateLastLogin(ctx context.Context, id uint, at time.Time) error {
	if f.lastLogins == nil {
		f.lastLogins = map[uint]time.Time{}
	}
	f.lastLogins[id] = at
	return nil
}

type fakeAuditRepo struct {
	logs []*models.AuditLog
}

func (f *fakeAuditRepo) ByID(ctx context.Context, id uint) (*models.AuditLog, error) {
	return nil, nil
}

func (f *fakeAuditRepo) ByFilter(ctx context.Context, filter models.AuditLogFilter, orderBy string, limit, offset int) ([]*models.AuditLog, error) {
	return f.logs, nil
}

func (f *fakeAuditRepo) Save(ctx context.Context, a *models.AuditLog) error {
	f.logs = append(f.logs, a)
	return nil
}

func (f *fakeAuditRepo) SaveBatch(ctx context.Context, as []*models.AuditLog) error {
	f.logs = append(f.logs, as...)
	return nil
}

func (f *fakeAuditRepo) Count(ctx context.Context, filter models.AuditLogFilter) (int64, error) {
	return int64(len(f.logs)), nil
}

func (f *fakeAuditRepo) Exists(ctx context.Context, filter models.AuditLogFilter) (bool, error) {
	return len(f.logs) > 0, nil
}

func (f *fakeAuditRepo) ListByStaff(ctx context.Context, staffID uint, limit, offset int) ([]*models.AuditLog, error) {
	return f.logs, nil
}

func (f *fakeAuditRepo) actions() []string {
	out := make([]string, 0, len(f.logs))
	for _, l := range f.logs {
		out = append(out, l.Action)
	}
	return out
}
