package businessflow

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/amirphl/Injera-Promo/app/dto"
	"github.com/amirphl/Injera-Promo/app/services"
	"github.com/amirphl/Injera-Promo/config"
	"github.com/amirphl/Injera-Promo/models"
	"github.com/amirphl/Injera-Promo/repository"
	"github.com/amirphl/Injera-Promo/utils"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// PromoCampaignFlow handles promo campaign dispatch and its run history
type PromoCampaignFlow interface {
	Send(ctx context.Context, actor *models.Actor, req *dto.SendPromoCampaignRequest, metadata *ClientMetadata) (*dto.SendPromoCampaignResponse, error)
	Schedule(ctx context.Context, actor *models.Actor, req *dto.SchedulePromoCampaignRequest, metadata *ClientMetadata) (*dto.SchedulePromoCampaignResponse, error)
	ExecuteRun(ctx context.Context, runID uint) (*dto.SendPromoCampaignResponse, error)
	ListRuns(ctx context.Context, actor *models.Actor, req *dto.ListPromoCampaignRunsRequest) (*dto.ListPromoCampaignRunsResponse, error)
	GetRun(ctx context.Context, actor *models.Actor, runUUID string) (*dto.GetPromoCampaignRunResponse, error)
}

// PromoCampaignFlowImpl implements the promo campaign business flow
type PromoCampaignFlowImpl struct {
	audienceRepo repository.AudienceRepository
	customerRepo repository.CustomerRepository
	orderRepo    repository.OrderRepository
	templateRepo repository.SmsTemplateRepository
	renderer     TemplateRenderer
	runRepo      repository.PromoCampaignRunRepository
	deliveryRepo repository.PromoDeliveryRepository
	staffRepo    repository.StaffUserRepository
	auditRepo    repository.AuditLogRepository
	sms          services.SMSGateway
	telegram     services.TelegramClient
	rc           *redis.Client
	cacheConfig  config.CacheConfig
	promoConfig  config.PromoConfig
	clock        utils.Clock
	logger       *logrus.Logger
}

// PromoCampaignDeps groups the collaborators of NewPromoCampaignFlow
type PromoCampaignDeps struct {
	AudienceRepo repository.AudienceRepository
	CustomerRepo repository.CustomerRepository
	OrderRepo    repository.OrderRepository
	TemplateRepo repository.SmsTemplateRepository
	RunRepo      repository.PromoCampaignRunRepository
	DeliveryRepo repository.PromoDeliveryRepository
	StaffRepo    repository.StaffUserRepository
	AuditRepo    repository.AuditLogRepository
	SMS          services.SMSGateway
	Telegram     services.TelegramClient
	Redis        *redis.Client
}

// NewPromoCampaignFlow creates a new promo campaign flow instance
func NewPromoCampaignFlow(deps PromoCampaignDeps, cacheConfig config.CacheConfig, promoConfig config.PromoConfig, clock utils.Clock, logger *logrus.Logger) PromoCampaignFlow {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &PromoCampaignFlowImpl{
		audienceRepo: deps.AudienceRepo,
		customerRepo: deps.CustomerRepo,
		orderRepo:    deps.OrderRepo,
		templateRepo: deps.TemplateRepo,
		renderer:     NewTemplateRenderer(deps.TemplateRepo),
		runRepo:      deps.RunRepo,
		deliveryRepo: deps.DeliveryRepo,
		staffRepo:    deps.StaffRepo,
		auditRepo:    deps.AuditRepo,
		sms:          deps.SMS,
		telegram:     deps.Telegram,
		rc:           deps.Redis,
		cacheConfig:  cacheConfig,
		promoConfig:  promoConfig,
		clock:        clock,
		logger:       logger,
	}
}

// Send dispatches the campaign to the full audience now
func (s *PromoCampaignFlowImpl) Send(ctx context.Context, actor *models.Actor, req *dto.SendPromoCampaignRequest, metadata *ClientMetadata) (*dto.SendPromoCampaignResponse, error) {
	if actor == nil {
		return nil, NewBusinessError("ACTOR_REQUIRED", "Authentication required", ErrActorRequired)
	}

	run, err := s.newRun(ctx, actor, req, models.PromoRunStatusRunning)
	if err != nil {
		return nil, err
	}

	resp, err := s.dispatch(ctx, actor, run, metadata)
	if err != nil {
		if IsNoCustomersMatched(err) {
			return nil, err
		}
		errMsg := err.Error()
		_ = createAuditLog(ctx, s.auditRepo, auditEntry{
			actor:       actor,
			action:      models.AuditActionPromoSendFailed,
			description: fmt.Sprintf("%s promo not sent", run.Platform.DisplayName()),
			errorMsg:    &errMsg,
		}, metadata)
		return nil, err
	}
	return resp, nil
}

// Schedule stores the campaign for the scheduler to dispatch at req.ScheduledAt
func (s *PromoCampaignFlowImpl) Schedule(ctx context.Context, actor *models.Actor, req *dto.SchedulePromoCampaignRequest, metadata *ClientMetadata) (*dto.SchedulePromoCampaignResponse, error) {
	if actor == nil {
		return nil, NewBusinessError("ACTOR_REQUIRED", "Authentication required", ErrActorRequired)
	}

	run, err := s.newRun(ctx, actor, &req.SendPromoCampaignRequest, models.PromoRunStatusScheduled)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	scheduledAt := req.ScheduledAt.UTC()
	if scheduledAt.Before(now.Add(s.promoConfig.MinScheduleLead)) {
		return nil, NewBusinessErrorf("SCHEDULE_TIME_TOO_SOON", "scheduled_at must be at least %s in the future", ErrScheduleTimeTooSoon, s.promoConfig.MinScheduleLead)
	}
	run.ScheduledAt = &scheduledAt

	if err := s.runRepo.Save(ctx, run); err != nil {
		return nil, NewBusinessError("CAMPAIGN_RUN_SAVE_FAILED", "Failed to schedule campaign", err)
	}

	_ = createAuditLog(ctx, s.auditRepo, auditEntry{
		actor:       actor,
		action:      models.AuditActionPromoScheduled,
		description: fmt.Sprintf("%s promo scheduled for %s", run.Platform.DisplayName(), scheduledAt.Format(time.RFC3339)),
		success:     true,
		extra:       map[string]any{"run_uuid": run.UUID.String()},
	}, metadata)

	return &dto.SchedulePromoCampaignResponse{
		Message:     fmt.Sprintf("%s promo scheduled.", run.Platform.DisplayName()),
		RunUUID:     run.UUID.String(),
		Status:      run.Status.String(),
		ScheduledAt: scheduledAt,
	}, nil
}

// ExecuteRun claims a due scheduled run and dispatches it on behalf of its creator
func (s *PromoCampaignFlowImpl) ExecuteRun(ctx context.Context, runID uint) (*dto.SendPromoCampaignResponse, error) {
	run, err := s.runRepo.ByID(ctx, runID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_RUN_LOOKUP_FAILED", "Failed to load campaign run", err)
	}
	if run == nil {
		return nil, NewBusinessError("CAMPAIGN_RUN_NOT_FOUND", "Campaign run not found", ErrCampaignRunNotFound)
	}

	now := s.clock.Now()
	if run.Status != models.PromoRunStatusScheduled || run.ScheduledAt == nil || run.ScheduledAt.After(now) {
		return nil, NewBusinessError("CAMPAIGN_RUN_NOT_DUE", "Campaign run is not due", ErrCampaignRunNotDue)
	}

	claimed, err := s.runRepo.ClaimScheduled(ctx, run.ID, now)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_RUN_CLAIM_FAILED", "Failed to claim campaign run", err)
	}
	if !claimed {
		return nil, NewBusinessError("CAMPAIGN_RUN_NOT_DUE", "Campaign run was claimed by another worker", ErrCampaignRunNotDue)
	}
	run.Status = models.PromoRunStatusRunning
	run.StartedAt = &now

	staff, err := s.staffRepo.ByID(ctx, run.StaffID)
	if err != nil || staff == nil || (staff.IsActive != nil && !*staff.IsActive) {
		s.failRun(ctx, run, "creator is no longer an active staff member")
		if err != nil {
			return nil, NewBusinessError("STAFF_LOOKUP_FAILED", "Failed to load campaign creator", err)
		}
		return nil, NewBusinessError("STAFF_NOT_FOUND", "Campaign creator is not an active staff member", ErrStaffNotFound)
	}

	if err := ValidateAudienceFilter(run.Filter); err != nil {
		s.failRun(ctx, run, err.Error())
		return nil, err
	}

	return s.dispatch(ctx, staff.Actor(), run, nil)
}

// ListRuns returns a page of campaign runs. Non-admin staff only see their own runs.
func (s *PromoCampaignFlowImpl) ListRuns(ctx context.Context, actor *models.Actor, req *dto.ListPromoCampaignRunsRequest) (*dto.ListPromoCampaignRunsResponse, error) {
	if actor == nil {
		return nil, NewBusinessError("ACTOR_REQUIRED", "Authentication required", ErrActorRequired)
	}

	page, limit := req.Page, req.Limit
	if page < 0 {
		return nil, NewBusinessError("INVALID_PAGE", "page must be positive", ErrInvalidPage)
	}
	if limit < 0 || limit > 100 {
		return nil, NewBusinessError("INVALID_PAGE_SIZE", "limit must be between 1 and 100", ErrInvalidPageSize)
	}
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = 20
	}

	filter := models.PromoCampaignRunFilter{}
	if !actor.IsAdmin() {
		filter.StaffID = utils.ToPtr(actor.StaffID)
	}
	if req.Status != "" {
		filter.Status = utils.ToPtr(models.PromoRunStatus(req.Status))
	}
	if req.Platform != "" {
		filter.Platform = utils.ToPtr(models.PromoPlatform(req.Platform))
	}

	total, err := s.runRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_RUN_LIST_FAILED", "Failed to list campaign runs", err)
	}
	runs, err := s.runRepo.ByFilter(ctx, filter, "created_at DESC, id DESC", limit, (page-1)*limit)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_RUN_LIST_FAILED", "Failed to list campaign runs", err)
	}

	items := make([]dto.PromoCampaignRunDTO, 0, len(runs))
	for _, r := range runs {
		items = append(items, ToPromoCampaignRunDTO(r))
	}

	return &dto.ListPromoCampaignRunsResponse{
		Message: "Campaign runs retrieved successfully",
		Items:   items,
		Pagination: dto.NewPaginationInfo(total, page, limit),
	}, nil
}

// GetRun returns one run with its per-recipient outcomes
func (s *PromoCampaignFlowImpl) GetRun(ctx context.Context, actor *models.Actor, runUUID string) (*dto.GetPromoCampaignRunResponse, error) {
	if actor == nil {
		return nil, NewBusinessError("ACTOR_REQUIRED", "Authentication required", ErrActorRequired)
	}

	id, err := uuid.Parse(strings.TrimSpace(runUUID))
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_RUN_NOT_FOUND", "Campaign run not found", ErrCampaignRunNotFound)
	}
	run, err := s.runRepo.ByUUID(ctx, id)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_RUN_LOOKUP_FAILED", "Failed to load campaign run", err)
	}
	if run == nil || (!actor.IsAdmin() && run.StaffID != actor.StaffID) {
		return nil, NewBusinessError("CAMPAIGN_RUN_NOT_FOUND", "Campaign run not found", ErrCampaignRunNotFound)
	}

	deliveries, err := s.deliveryRepo.ByFilter(ctx, models.PromoDeliveryFilter{RunID: &run.ID}, "id ASC", 0, 0)
	if err != nil {
		return nil, NewBusinessError("DELIVERY_LIST_FAILED", "Failed to load deliveries", err)
	}
	out := make([]dto.PromoDeliveryDTO, 0, len(deliveries))
	for _, d := range deliveries {
		out = append(out, ToPromoDeliveryDTO(d))
	}

	return &dto.GetPromoCampaignRunResponse{Run: ToPromoCampaignRunDTO(run), Deliveries: out}, nil
}

func (s *PromoCampaignFlowImpl) newRun(ctx context.Context, actor *models.Actor, req *dto.SendPromoCampaignRequest, status models.PromoRunStatus) (*models.PromoCampaignRun, error) {
	filter, err := ToAudienceFilter(&req.PromoFilterRequest)
	if err != nil {
		return nil, err
	}

	// a stored template replaces the request message, which stays as the fallback body
	body, err := s.renderer.ResolveBody(ctx, req.TemplateKey, req.Message)
	if err != nil {
		return nil, NewBusinessError("TEMPLATE_LOOKUP_FAILED", "Failed to load template", err)
	}
	message := strings.TrimSpace(body)
	if message == "" {
		return nil, NewBusinessError("MESSAGE_REQUIRED", "message is required", ErrMessageRequired)
	}

	return &models.PromoCampaignRun{
		UUID:               uuid.New(),
		StaffID:            actor.StaffID,
		Platform:           filter.Platform,
		Status:             status,
		Message:            message,
		Filter:             filter,
		TelegramButtonText: utils.TrimToNil(req.TelegramButtonText),
		TelegramButtonURL:  utils.TrimToNil(req.TelegramButtonURL),
		SaveTemplate:       req.SaveTemplate,
		TemplateLabel:      utils.TrimToNil(req.TemplateLabel),
	}, nil
}

// dispatch sends run.Message to every audience row in order. Per-recipient failures are
// counted and never stop the loop.
func (s *PromoCampaignFlowImpl) dispatch(ctx context.Context, actor *models.Actor, run *models.PromoCampaignRun, metadata *ClientMetadata) (*dto.SendPromoCampaignResponse, error) {
	// sends outlive the request that started them
	ctx = context.WithoutCancel(ctx)
	started := time.Now()
	now := s.clock.Now()
	log := s.logger.WithFields(logrus.Fields{"campaign_run": run.UUID.String(), "channel": run.Platform.String()})

	rows, err := s.audienceRepo.List(ctx, actor, run.Filter, now, 0)
	if err != nil {
		s.failRun(ctx, run, err.Error())
		return nil, NewBusinessError("AUDIENCE_QUERY_FAILED", "Failed to build audience", err)
	}

	if len(rows) == 0 {
		if run.ID != 0 {
			run.Status = models.PromoRunStatusNoMatch
			run.Summary = noCustomersMatchedMessage
			run.CompletedAt = &now
			if err := s.runRepo.Update(ctx, run); err != nil {
				log.WithError(err).Error("failed to record no-match run")
			}
		}
		_ = createAuditLog(ctx, s.auditRepo, auditEntry{
			actor:       actor,
			action:      models.AuditActionPromoNoMatch,
			description: fmt.Sprintf("%s promo matched no customers", run.Platform.DisplayName()),
			success:     true,
			extra:       map[string]any{"run_uuid": run.UUID.String()},
		}, metadata)
		return nil, NewBusinessError("NO_CUSTOMERS_MATCHED", noCustomersMatchedMessage, ErrNoCustomersMatched)
	}

	run.AudienceSize = len(rows)
	if run.StartedAt == nil {
		run.StartedAt = &now
	}
	if run.ID == 0 {
		if err := s.runRepo.Save(ctx, run); err != nil {
			return nil, NewBusinessError("CAMPAIGN_RUN_SAVE_FAILED", "Failed to record campaign run", err)
		}
	}

	ids := make([]uint, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.CustomerID)
	}
	customers, err := s.customerRepo.ByIDs(ctx, ids)
	if err != nil {
		s.failRun(ctx, run, err.Error())
		return nil, NewBusinessError("CUSTOMER_LOOKUP_FAILED", "Failed to load customers", err)
	}
	scope := repository.AudienceOrderScope(actor, run.Filter)
	latest, err := s.orderRepo.LatestForCustomers(ctx, ids, scope)
	if err != nil {
		s.failRun(ctx, run, err.Error())
		return nil, NewBusinessError("LATEST_ORDER_LOOKUP_FAILED", "Failed to load latest orders", err)
	}
	stats, err := s.orderRepo.FavoritesForCustomers(ctx, ids, scope)
	if err != nil {
		s.failRun(ctx, run, err.Error())
		return nil, NewBusinessError("FAVORITES_LOOKUP_FAILED", "Failed to load purchase history", err)
	}

	batchSize := s.promoConfig.DeliveryBatchSize
	if batchSize <= 0 {
		batchSize = utils.DeliveryBatchSize
	}
	pending := make([]*models.PromoDelivery, 0, min(batchSize, len(rows)))
	flush := func() {
		if len(pending) == 0 {
			return
		}
		if err := s.deliveryRepo.SaveBatch(ctx, pending); err != nil {
			log.WithError(err).WithField("deliveries", len(pending)).Error("failed to persist deliveries")
		}
		pending = pending[:0]
	}

	for i, row := range rows {
		if i > 0 && s.promoConfig.DispatchRateLimit > 0 {
			time.Sleep(s.promoConfig.DispatchRateLimit)
		}

		delivery := s.deliver(ctx, run, row.CustomerID, customers[row.CustomerID], latest[row.CustomerID], stats[row.CustomerID], log)
		if delivery.Status == models.PromoDeliveryStatusSent {
			run.SentCount++
		} else {
			run.FailedCount++
		}
		promoMessagesTotal.WithLabelValues(run.Platform.String(), string(delivery.Status)).Inc()

		pending = append(pending, delivery)
		if len(pending) >= batchSize {
			flush()
		}
	}
	flush()

	var saved *models.SmsTemplate
	if run.SaveTemplate {
		saved, err = s.saveAsTemplate(ctx, actor, run, now)
		if err != nil {
			log.WithError(err).Error("failed to save campaign as template")
		} else {
			run.SavedTemplateKey = utils.ToPtr(saved.Key)
			_ = createAuditLog(ctx, s.auditRepo, auditEntry{
				actor:       actor,
				action:      models.AuditActionSmsTemplateAutoSaved,
				description: fmt.Sprintf("Campaign saved as template %s", saved.Key),
				success:     true,
				extra:       map[string]any{"run_uuid": run.UUID.String(), "template_key": saved.Key},
			}, metadata)
		}
	}

	var savedLabel *string
	if saved != nil {
		savedLabel = utils.ToPtr(saved.Label)
	}
	completed := s.clock.Now()
	run.Status = models.PromoRunStatusCompleted
	run.Summary = PromoSummaryMessage(run.Platform, run.SentCount, run.FailedCount, run.AudienceSize, savedLabel)
	run.CompletedAt = &completed
	if err := s.runRepo.Update(ctx, run); err != nil {
		log.WithError(err).Error("failed to record campaign run result")
	}
	promoCampaignDuration.WithLabelValues(run.Platform.String()).Observe(time.Since(started).Seconds())

	log.WithFields(logrus.Fields{
		"audience": run.AudienceSize,
		"sent":     run.SentCount,
		"failed":   run.FailedCount,
	}).Info("promo campaign dispatched")

	_ = createAuditLog(ctx, s.auditRepo, auditEntry{
		actor:       actor,
		action:      models.AuditActionPromoSent,
		description: run.Summary,
		success:     true,
		extra: map[string]any{
			"run_uuid": run.UUID.String(),
			"audience": run.AudienceSize,
			"sent":     run.SentCount,
			"failed":   run.FailedCount,
		},
	}, metadata)

	resp := &dto.SendPromoCampaignResponse{
		Message:       run.Summary,
		RunUUID:       run.UUID.String(),
		Platform:      run.Platform.String(),
		AudienceSize:  run.AudienceSize,
		Sent:          run.SentCount,
		Failed:        run.FailedCount,
		TemplateLabel: savedLabel,
	}
	if saved != nil {
		resp.TemplateKey = utils.ToPtr(saved.Key)
	}
	return resp, nil
}

// deliver renders and sends one message. The returned delivery is never nil.
func (s *PromoCampaignFlowImpl) deliver(ctx context.Context, run *models.PromoCampaignRun, customerID uint, customer *models.Customer, order *models.Order, stats models.CustomerStats, log *logrus.Entry) *models.PromoDelivery {
	d := &models.PromoDelivery{
		RunID:      run.ID,
		CustomerID: customerID,
		TrackingID: uuid.New(),
		Channel:    run.Platform,
		Body:       run.Message,
		Status:     models.PromoDeliveryStatusFailed,
	}
	if customer == nil {
		d.Error = utils.ToPtr("customer no longer exists")
		return d
	}

	d.Body = Render(run.Message, PromoVariables(customer, order, stats, s.promoConfig.TrackingBaseURL))
	entry := log.WithField("customer_id", customerID)

	switch run.Platform {
	case models.PromoPlatformTelegram:
		chatID := utils.NormalizeTelegramID(customer.TelegramID)
		if chatID == nil {
			d.Error = utils.ToPtr("customer has no telegram id")
			return d
		}
		d.Recipient = strconv.FormatInt(*chatID, 10)

		var opts *services.TelegramSendOptions
		text, url := utils.Deref(run.TelegramButtonText), utils.Deref(run.TelegramButtonURL)
		if text != "" && url != "" {
			opts = &services.TelegramSendOptions{Button: &services.TelegramButton{Text: text, URL: url}}
		}
		meta := map[string]string{
			"source":        utils.PromoCampaignSource,
			"customer_id":   strconv.FormatUint(uint64(customer.ID), 10),
			"customer_name": customer.Name,
			"telegram_id":   d.Recipient,
		}

		// fire-and-forget: an issued message counts as sent
		if err := s.telegram.SendMessage(ctx, *chatID, d.Body, opts, meta); err != nil {
			entry.WithError(err).Warn("telegram promo send reported an error")
			d.Error = utils.ToPtr(err.Error())
		}
		d.Status = models.PromoDeliveryStatusSent

	default:
		phone := utils.SMSEligiblePhone(customer.Phone)
		if phone == "" {
			d.Error = utils.ToPtr("customer has no sms-eligible phone")
			return d
		}
		d.Recipient = phone

		result, err := s.sms.Send(ctx, phone, d.Body, customer)
		if err != nil {
			entry.WithError(err).Warn("sms promo send failed")
			d.Error = utils.ToPtr(err.Error())
			return d
		}
		d.ProviderMessageID = utils.TrimToNil(result.ID)
		if !result.Sent() {
			d.Error = utils.ToPtr(fmt.Sprintf("gateway status %q: %s", result.Status, result.ProviderResponse))
			return d
		}
		d.Status = models.PromoDeliveryStatusSent
	}

	return d
}

// saveAsTemplate stores run.Message under the first free promo key. A unique violation
// on insert moves on to the next suffix.
func (s *PromoCampaignFlowImpl) saveAsTemplate(ctx context.Context, actor *models.Actor, run *models.PromoCampaignRun, now time.Time) (*models.SmsTemplate, error) {
	label := strings.TrimSpace(utils.Deref(run.TemplateLabel))
	if label == "" {
		label = PromoTemplateLabel(now)
	}
	base := utils.PromoTemplateKeyPrefix + now.Format(utils.PromoTemplateKeyLayout)

	if release := s.lockTemplateKey(ctx, base); release != nil {
		defer release()
	}

	for n := 0; n < utils.PromoTemplateKeyAttempts; n++ {
		key := PromoTemplateKey(base, n)

		existing, err := s.templateRepo.ByKey(ctx, key)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			continue
		}

		tpl := &models.SmsTemplate{
			Key:       key,
			Label:     label,
			Body:      run.Message,
			IsActive:  utils.ToPtr(true),
			CreatedBy: utils.ToPtr(actor.StaffID),
		}
		if err := s.templateRepo.Save(ctx, tpl); err != nil {
			if repository.IsUniqueViolation(err) {
				continue
			}
			return nil, err
		}
		return tpl, nil
	}

	return nil, NewBusinessError("TEMPLATE_KEY_EXHAUSTED", "No free template key available", ErrTemplateKeyExhausted)
}

// lockTemplateKey serializes key generation across instances. It returns nil when no
// lock was taken; the unique index still guards the insert.
func (s *PromoCampaignFlowImpl) lockTemplateKey(ctx context.Context, base string) func() {
	if s.rc == nil {
		return nil
	}
	ttl := s.promoConfig.TemplateLockTTL
	if ttl <= 0 {
		ttl = 10 * time.Second
	}

	lockKey := redisKey(s.cacheConfig, "promo:template-key-lock:"+base)
	ok, err := s.rc.SetNX(ctx, lockKey, "1", ttl).Result()
	if err != nil {
		s.logger.WithError(err).Warn("template key lock unavailable")
		return nil
	}
	if !ok {
		return nil
	}
	return func() { _ = s.rc.Del(context.Background(), lockKey).Err() }
}

func (s *PromoCampaignFlowImpl) failRun(ctx context.Context, run *models.PromoCampaignRun, reason string) {
	if run.ID == 0 {
		return
	}
	now := s.clock.Now()
	run.Status = models.PromoRunStatusFailed
	run.Summary = reason
	run.CompletedAt = &now
	if err := s.runRepo.Update(ctx, run); err != nil {
		s.logger.WithError(err).WithField("campaign_run", run.UUID.String()).Error("failed to mark campaign run failed")
	}
}

const noCustomersMatchedMessage = "No customers matched the selected filters."

// PromoTemplateKey returns the n-th candidate key for base: base, base_1, base_2, ...
func PromoTemplateKey(base string, n int) string {
	if n <= 0 {
		return base
	}
	return base + "_" + strconv.Itoa(n)
}

// PromoTemplateLabel is the label given to campaigns saved without one
func PromoTemplateLabel(now time.Time) string {
	return "Promo Campaign " + now.Format(utils.PromoTemplateLabelLayout)
}

// PromoSummaryMessage formats the human-readable result of a dispatch
func PromoSummaryMessage(platform models.PromoPlatform, sent, failed, audience int, savedLabel *string) string {
	msg := fmt.Sprintf("%s promo sent. Sent: %d, Failed: %d, Audience: %d.", platform.DisplayName(), sent, failed, audience)
	if savedLabel != nil {
		msg += fmt.Sprintf(" Saved as template \"%s\".", *savedLabel)
	}
	return msg
}
