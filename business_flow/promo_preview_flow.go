package businessflow

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/amirphl/Injera-Promo/app/dto"
	"github.com/amirphl/Injera-Promo/config"
	"github.com/amirphl/Injera-Promo/models"
	"github.com/amirphl/Injera-Promo/repository"
	"github.com/amirphl/Injera-Promo/utils"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

// PromoPreviewFlow handles the read-only audience operations
type PromoPreviewFlow interface {
	Preview(ctx context.Context, actor *models.Actor, req *dto.PromoPreviewRequest, metadata *ClientMetadata) (*dto.PromoPreviewResponse, error)
	Export(ctx context.Context, actor *models.Actor, req *dto.PromoExportRequest, metadata *ClientMetadata) (*dto.PromoExportResponse, error)
}

// PromoPreviewFlowImpl implements the audience preview business flow
type PromoPreviewFlowImpl struct {
	audienceRepo repository.AudienceRepository
	orderRepo    repository.OrderRepository
	auditRepo    repository.AuditLogRepository
	rc           *redis.Client
	cacheConfig  config.CacheConfig
	promoConfig  config.PromoConfig
	clock        utils.Clock
	logger       *logrus.Logger
}

// NewPromoPreviewFlow creates a new promo preview flow instance. rc may be nil, in
// which case previews are never cached.
func NewPromoPreviewFlow(
	audienceRepo repository.AudienceRepository,
	orderRepo repository.OrderRepository,
	auditRepo repository.AuditLogRepository,
	rc *redis.Client,
	cacheConfig config.CacheConfig,
	promoConfig config.PromoConfig,
	clock utils.Clock,
	logger *logrus.Logger,
) PromoPreviewFlow {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &PromoPreviewFlowImpl{
		audienceRepo: audienceRepo,
		orderRepo:    orderRepo,
		auditRepo:    auditRepo,
		rc:           rc,
		cacheConfig:  cacheConfig,
		promoConfig:  promoConfig,
		clock:        clock,
		logger:       logger,
	}
}

// Preview summarizes the audience and returns the top rows with their render variables
func (s *PromoPreviewFlowImpl) Preview(ctx context.Context, actor *models.Actor, req *dto.PromoPreviewRequest, metadata *ClientMetadata) (*dto.PromoPreviewResponse, error) {
	if actor == nil {
		return nil, NewBusinessError("ACTOR_REQUIRED", "Authentication required", ErrActorRequired)
	}

	filter, err := ToAudienceFilter(&req.PromoFilterRequest)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	cacheKey := s.previewCacheKey(actor, filter, now)
	if cached := s.cachedPreview(ctx, cacheKey); cached != nil {
		return cached, nil
	}

	summary, err := s.audienceRepo.Summary(ctx, actor, filter, now)
	if err != nil {
		return nil, NewBusinessError("AUDIENCE_SUMMARY_FAILED", "Failed to summarize audience", err)
	}

	rows, err := s.audienceRepo.List(ctx, actor, filter, now, utils.PreviewSampleSize)
	if err != nil {
		return nil, NewBusinessError("AUDIENCE_QUERY_FAILED", "Failed to build audience", err)
	}

	sample, err := s.buildSample(ctx, actor, filter, rows, now)
	if err != nil {
		return nil, err
	}

	resp := &dto.PromoPreviewResponse{
		Summary: BuildPromoSummary(summary),
		Sample:  sample,
	}
	s.storePreview(ctx, cacheKey, resp)
	return resp, nil
}

// BuildPromoSummary turns raw aggregates into the preview summary. Averages are rounded
// to two decimals and are 0 for an empty audience.
func BuildPromoSummary(summary *models.AudienceSummary) dto.PromoSummaryDTO {
	if summary == nil || summary.MatchedCustomers <= 0 {
		return dto.PromoSummaryDTO{}
	}
	matched := decimal.NewFromInt(summary.MatchedCustomers)
	return dto.PromoSummaryDTO{
		MatchedCustomers:         summary.MatchedCustomers,
		HighValueCustomers:       summary.HighValueCustomers,
		DormantCustomers:         summary.DormantCustomers,
		AverageOrdersPerCustomer: decimal.NewFromInt(summary.TotalOrders).Div(matched).Round(2).InexactFloat64(),
		AverageTotalSpent:        summary.TotalSpent.Div(matched).Round(2).InexactFloat64(),
	}
}

func (s *PromoPreviewFlowImpl) buildSample(ctx context.Context, actor *models.Actor, filter models.AudienceFilter, rows []*models.AudienceRow, now time.Time) ([]dto.PromoSampleRowDTO, error) {
	sample := make([]dto.PromoSampleRowDTO, 0, len(rows))
	if len(rows) == 0 {
		return sample, nil
	}

	ids := make([]uint, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.CustomerID)
	}

	scope := repository.AudienceOrderScope(actor, filter)
	latest, err := s.orderRepo.LatestForCustomers(ctx, ids, scope)
	if err != nil {
		return nil, NewBusinessError("LATEST_ORDER_LOOKUP_FAILED", "Failed to load latest orders", err)
	}
	stats, err := s.orderRepo.FavoritesForCustomers(ctx, ids, scope)
	if err != nil {
		return nil, NewBusinessError("FAVORITES_LOOKUP_FAILED", "Failed to load purchase history", err)
	}

	for _, r := range rows {
		vars := PromoVariables(customerFromRow(r), latest[r.CustomerID], stats[r.CustomerID], s.promoConfig.TrackingBaseURL)
		sample = append(sample, dto.PromoSampleRowDTO{
			ID:                r.CustomerID,
			Name:              r.Name,
			Phone:             utils.DisplayPhone(r.Phone),
			TelegramUsername:  r.TelegramUsername,
			OrdersCount:       r.OrdersCount,
			TotalSpent:        r.TotalSpent.Round(2).InexactFloat64(),
			AverageOrderValue: r.AverageOrderValue.Round(2).InexactFloat64(),
			LastOrderAt:       r.LastOrderAt,
			RecencyDays:       recencyDays(r.LastOrderAt, now),
			PreviewVariables:  vars,
		})
	}
	return sample, nil
}

// Export writes the whole audience, in dispatch order, to an xlsx workbook
func (s *PromoPreviewFlowImpl) Export(ctx context.Context, actor *models.Actor, req *dto.PromoExportRequest, metadata *ClientMetadata) (*dto.PromoExportResponse, error) {
	if actor == nil {
		return nil, NewBusinessError("ACTOR_REQUIRED", "Authentication required", ErrActorRequired)
	}

	filter, err := ToAudienceFilter(&req.PromoFilterRequest)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	rows, err := s.audienceRepo.List(ctx, actor, filter, now, s.promoConfig.ExportMaxRows)
	if err != nil {
		return nil, NewBusinessError("AUDIENCE_QUERY_FAILED", "Failed to build audience", err)
	}

	content, err := writeAudienceWorkbook(s.sheetName(), rows, now)
	if err != nil {
		errMsg := err.Error()
		_ = createAuditLog(ctx, s.auditRepo, auditEntry{actor: actor, action: models.AuditActionPromoExported, description: "Audience export failed", errorMsg: &errMsg}, metadata)
		return nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
	}

	_ = createAuditLog(ctx, s.auditRepo, auditEntry{
		actor:       actor,
		action:      models.AuditActionPromoExported,
		description: fmt.Sprintf("Exported %d %s audience rows", len(rows), filter.Platform.DisplayName()),
		success:     true,
		extra:       map[string]any{"rows": len(rows), "filter": filter},
	}, metadata)

	return &dto.PromoExportResponse{
		Filename: fmt.Sprintf("promo_audience_%s_%s.xlsx", filter.Platform, now.Format(utils.PromoTemplateKeyLayout)),
		Rows:     len(rows),
		Content:  content,
	}, nil
}

var audienceExportHeader = []string{"customer_id", "name", "phone", "telegram_id", "telegram_username", "orders_count", "total_spent", "average_order_value", "last_order_at", "recency_days"}

func writeAudienceWorkbook(sheet string, rows []*models.AudienceRow, now time.Time) ([]byte, error) {
	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	if err := xl.SetSheetName(xl.GetSheetName(0), sheet); err != nil {
		return nil, err
	}
	header := make([]any, len(audienceExportHeader))
	for i, h := range audienceExportHeader {
		header[i] = h
	}
	if err := xl.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}

	for i, r := range rows {
		telegramID := ""
		if r.TelegramID != nil {
			telegramID = strconv.FormatInt(*r.TelegramID, 10)
		}
		recency := ""
		if d := recencyDays(r.LastOrderAt, now); d != nil {
			recency = strconv.Itoa(*d)
		}
		record := []any{
			r.CustomerID,
			r.Name,
			utils.DisplayPhone(r.Phone),
			telegramID,
			utils.Deref(r.TelegramUsername),
			r.OrdersCount,
			r.TotalSpent.Round(2).InexactFloat64(),
			r.AverageOrderValue.Round(2).InexactFloat64(),
			formatTimePtr(r.LastOrderAt, time.RFC3339),
			recency,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := xl.SetSheetRow(sheet, cell, &record); err != nil {
			return nil, err
		}
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *PromoPreviewFlowImpl) sheetName() string {
	name := strings.TrimSpace(s.promoConfig.ExportSheetName)
	if name == "" {
		return "Audience"
	}
	// excelize caps sheet names at 31 characters
	if r := []rune(name); len(r) > 31 {
		name = string(r[:31])
	}
	return name
}

// recencyDays counts whole days since last; nil when the customer never ordered
func recencyDays(last *time.Time, now time.Time) *int {
	if last == nil {
		return nil
	}
	d := utils.WholeDaysBetween(*last, now)
	return &d
}

func customerFromRow(r *models.AudienceRow) *models.Customer {
	return &models.Customer{
		ID:               r.CustomerID,
		Name:             r.Name,
		Phone:            r.Phone,
		TelegramID:       r.TelegramID,
		TelegramUsername: r.TelegramUsername,
	}
}

// previewCacheKey identifies a preview by actor scope, filter and calendar minute
func (s *PromoPreviewFlowImpl) previewCacheKey(actor *models.Actor, filter models.AudienceFilter, now time.Time) string {
	branches := append([]uint(nil), actor.BranchIDs...)
	sort.Slice(branches, func(i, j int) bool { return branches[i] < branches[j] })

	payload, _ := json.Marshal(struct {
		Role     models.StaffRole      `json:"role"`
		Branches []uint                `json:"branches"`
		Filter   models.AudienceFilter `json:"filter"`
		Minute   string                `json:"minute"`
	}{actor.Role, branches, filter, now.UTC().Format("200601021504")})

	sum := sha256.Sum256(payload)
	return redisKey(s.cacheConfig, "promo:preview:"+hex.EncodeToString(sum[:]))
}

func (s *PromoPreviewFlowImpl) cachedPreview(ctx context.Context, key string) *dto.PromoPreviewResponse {
	if s.rc == nil || s.promoConfig.PreviewCacheTTL <= 0 {
		return nil
	}
	bs, err := s.rc.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.WithError(err).Warn("preview cache read failed")
		}
		return nil
	}
	var out dto.PromoPreviewResponse
	if err := json.Unmarshal(bs, &out); err != nil {
		return nil
	}
	return &out
}

func (s *PromoPreviewFlowImpl) storePreview(ctx context.Context, key string, resp *dto.PromoPreviewResponse) {
	if s.rc == nil || s.promoConfig.PreviewCacheTTL <= 0 {
		return
	}
	bs, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := s.rc.Set(ctx, key, bs, s.promoConfig.PreviewCacheTTL).Err(); err != nil {
		s.logger.WithError(err).Warn("preview cache write failed")
	}
}

// redisKey namespaces key with the configured prefix
func redisKey(cfg config.CacheConfig, key string) string {
	return cfg.RedisPrefix + key
}
