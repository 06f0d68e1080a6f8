package businessflow

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/amirphl/Injera-Promo/app/dto"
	"github.com/amirphl/Injera-Promo/app/services"
	"github.com/amirphl/Injera-Promo/config"
	"github.com/amirphl/Injera-Promo/models"
	"github.com/amirphl/Injera-Promo/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type campaignHarness struct {
	audience  *fakeAudienceRepo
	customers *fakeCustomerRepo
	orders    *fakeOrderRepo
	templates *fakeTemplateRepo
	runs      *fakeRunRepo
	delivery  *fakeDeliveryRepo
	staff     *fakeStaffRepo
	audit     *fakeAuditRepo
	sms       *services.MockSMSGateway
	telegram  *services.MockTelegramClient
	flow      PromoCampaignFlow
}

func newCampaignHarness(rows []*models.AudienceRow, customers ...*models.Customer) *campaignHarness {
	h := &campaignHarness{
		audience:  &fakeAudienceRepo{rows: rows},
		customers: &fakeCustomerRepo{customers: map[uint]*models.Customer{}},
		orders:    &fakeOrderRepo{},
		templates: newFakeTemplateRepo(),
		runs:      newFakeRunRepo(),
		delivery:  &fakeDeliveryRepo{},
		staff:     &fakeStaffRepo{staff: map[uint]*models.StaffUser{}},
		audit:     &fakeAuditRepo{},
		sms:       services.NewMockSMSGateway(),
		telegram:  services.NewMockTelegramClient(),
	}
	for _, c := range customers {
		h.customers.customers[c.ID] = c
	}
	h.flow = NewPromoCampaignFlow(PromoCampaignDeps{
		AudienceRepo: h.audience,
		CustomerRepo: h.customers,
		OrderRepo:    h.orders,
		TemplateRepo: h.templates,
		RunRepo:      h.runs,
		DeliveryRepo: h.delivery,
		StaffRepo:    h.staff,
		AuditRepo:    h.audit,
		SMS:          h.sms,
		Telegram:     h.telegram,
	}, config.CacheConfig{}, testPromoConfig(), utils.FixedClock{At: testNow}, testLogger())
	return h
}

func sendRequest(platform, message string) *dto.SendPromoCampaignRequest {
	return &dto.SendPromoCampaignRequest{
		PromoFilterRequest: dto.PromoFilterRequest{Platform: platform},
		Message:            message,
	}
}

var adminActor = &models.Actor{StaffID: 1, Name: "Hana", Role: models.StaffRoleAdmin}

func TestPromoSummaryMessage(t *testing.T) {
	assert.Equal(t, "SMS promo sent. Sent: 12, Failed: 1, Audience: 13.", PromoSummaryMessage(models.PromoPlatformSMS, 12, 1, 13, nil))
	assert.Equal(t,
		`Telegram promo sent. Sent: 2, Failed: 0, Audience: 2. Saved as template "Weekend".`,
		PromoSummaryMessage(models.PromoPlatformTelegram, 2, 0, 2, utils.ToPtr("Weekend")))
}

func TestPromoTemplateKey(t *testing.T) {
	assert.Equal(t, "promo_20261014_120000", PromoTemplateKey("promo_20261014_120000", 0))
	assert.Equal(t, "promo_20261014_120000_1", PromoTemplateKey("promo_20261014_120000", 1))
	assert.Equal(t, "promo_20261014_120000_12", PromoTemplateKey("promo_20261014_120000", 12))
	assert.Equal(t, "Promo Campaign 2026-10-14 12:00", PromoTemplateLabel(testNow))
}

func TestPromoCampaignFlow_SendValidation(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid range sends nothing", func(t *testing.T) {
		h := newCampaignHarness([]*models.AudienceRow{audienceRow(1, "Sara", "251911000111", 1, "10", nil)},
			&models.Customer{ID: 1, Name: "Sara", Phone: "251911000111"})
		req := sendRequest("sms", "Hi {name}")
		req.TotalSpentMin = dec("100")
		req.TotalSpentMax = dec("50")

		_, err := h.flow.Send(ctx, adminActor, req, nil)
		require.Error(t, err)
		assert.True(t, IsInvalidRange(err))
		assert.Zero(t, h.audience.listCalls)
		assert.Empty(t, h.sms.Messages)
		assert.Nil(t, h.runs.only())
	})

	t.Run("blank message", func(t *testing.T) {
		h := newCampaignHarness(nil)
		_, err := h.flow.Send(ctx, adminActor, sendRequest("sms", "   "), nil)
		assert.True(t, IsMessageRequired(err))
	})

	t.Run("empty audience is a soft result", func(t *testing.T) {
		h := newCampaignHarness(nil)
		_, err := h.flow.Send(ctx, adminActor, sendRequest("telegram", "Hi"), nil)
		require.Error(t, err)
		assert.True(t, IsNoCustomersMatched(err))
		be, ok := AsBusinessError(err)
		require.True(t, ok)
		assert.Equal(t, "No customers matched the selected filters.", be.Message)
		assert.Nil(t, h.runs.only())
		assert.Empty(t, h.telegram.Messages)
		assert.Equal(t, []string{models.AuditActionPromoNoMatch}, h.audit.actions())
		require.Len(t, h.audit.logs, 1)
		assert.Equal(t, utils.ToPtr(true), h.audit.logs[0].Success)
	})
}

func TestPromoCampaignFlow_SendSMS(t *testing.T) {
	ctx := context.Background()
	rows := []*models.AudienceRow{
		audienceRow(1, "Sara", "251911000111", 4, "900", nil),
		audienceRow(2, "Table 4", "q0123456789abcdef012", 3, "400", nil),
		audienceRow(3, "Musa", "251922000222", 2, "300", nil),
		audienceRow(4, "Gone", "251933000333", 1, "100", nil),
		audienceRow(5, "Liya", "251944000444", 1, "50", nil),
	}
	h := newCampaignHarness(rows,
		&models.Customer{ID: 1, Name: "Sara", Phone: "251911000111"},
		&models.Customer{ID: 2, Name: "Table 4", Phone: "q0123456789abcdef012"},
		&models.Customer{ID: 3, Name: "Musa", Phone: "251922000222"},
		&models.Customer{ID: 5, Name: "Liya", Phone: "251944000444"},
	)
	h.sms.StatusFor["251922000222"] = services.SMSStatusFailed
	h.sms.ErrFor["251944000444"] = errors.New("connection reset")

	resp, err := h.flow.Send(ctx, adminActor, sendRequest("sms", "Hi {name}!"), nil)
	require.NoError(t, err)

	assert.Equal(t, 5, resp.AudienceSize)
	assert.Equal(t, 1, resp.Sent)
	assert.Equal(t, 4, resp.Failed)
	assert.Equal(t, "SMS promo sent. Sent: 1, Failed: 4, Audience: 5.", resp.Message)
	assert.Nil(t, resp.TemplateKey)

	assert.Equal(t, []int{0}, h.audience.limits, "dispatch reads the whole audience")

	// one gateway call each for Sara and Musa; Liya errors before capture
	require.Len(t, h.sms.Messages, 2)
	assert.Equal(t, "Hi Sara!", h.sms.Messages[0].Message)
	assert.Equal(t, "251911000111", h.sms.Messages[0].Phone)
	assert.Equal(t, "Hi Musa!", h.sms.Messages[1].Message)

	require.Len(t, h.delivery.saved, 5)
	assert.Equal(t, 3, h.delivery.batches)
	statuses := map[uint]models.PromoDeliveryStatus{}
	for _, d := range h.delivery.saved {
		statuses[d.CustomerID] = d.Status
	}
	assert.Equal(t, models.PromoDeliveryStatusSent, statuses[1])
	assert.Equal(t, models.PromoDeliveryStatusFailed, statuses[2])
	assert.Equal(t, models.PromoDeliveryStatusFailed, statuses[3])
	assert.Equal(t, models.PromoDeliveryStatusFailed, statuses[4])
	assert.Equal(t, models.PromoDeliveryStatusFailed, statuses[5])

	run := h.runs.only()
	require.NotNil(t, run)
	assert.Equal(t, models.PromoRunStatusCompleted, run.Status)
	assert.Equal(t, 1, run.SentCount)
	assert.Equal(t, 4, run.FailedCount)
	assert.Equal(t, resp.Message, run.Summary)
	assert.Equal(t, resp.RunUUID, run.UUID.String())
	assert.Contains(t, h.audit.actions(), models.AuditActionPromoSent)
}

func TestPromoCampaignFlow_SendTelegram(t *testing.T) {
	ctx := context.Background()
	rows := []*models.AudienceRow{
		audienceRow(1, "Sara", "251911000111", 2, "200", nil),
		audienceRow(2, "Musa", "251922000222", 1, "100", nil),
	}

	t.Run("fire and forget with button", func(t *testing.T) {
		h := newCampaignHarness(rows,
			&models.Customer{ID: 1, Name: "Sara", Phone: "251911000111", TelegramID: utils.ToPtr(int64(5551))},
			&models.Customer{ID: 2, Name: "Musa", Phone: "251922000222"},
		)
		req := sendRequest("telegram", "Selam {name}")
		req.TelegramButtonText = "Order now"
		req.TelegramButtonURL = "https://injera.test/menu"

		resp, err := h.flow.Send(ctx, adminActor, req, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, resp.Sent)
		assert.Equal(t, 1, resp.Failed)
		assert.Equal(t, "Telegram promo sent. Sent: 1, Failed: 1, Audience: 2.", resp.Message)

		require.Len(t, h.telegram.Messages, 1)
		msg := h.telegram.Messages[0]
		assert.Equal(t, int64(5551), msg.ChatID)
		assert.Equal(t, "Selam Sara", msg.Text)
		require.NotNil(t, msg.Options)
		require.NotNil(t, msg.Options.Button)
		assert.Equal(t, "Order now", msg.Options.Button.Text)
		assert.Equal(t, "https://injera.test/menu", msg.Options.Button.URL)
		assert.Equal(t, map[string]string{
			"source":        "promo_campaign",
			"customer_id":   "1",
			"customer_name": "Sara",
			"telegram_id":   "5551",
		}, msg.Metadata)
	})

	t.Run("button needs both text and url", func(t *testing.T) {
		h := newCampaignHarness(rows[:1], &models.Customer{ID: 1, Name: "Sara", TelegramID: utils.ToPtr(int64(5551))})
		req := sendRequest("telegram", "Selam")
		req.TelegramButtonText = "Order now"

		_, err := h.flow.Send(ctx, adminActor, req, nil)
		require.NoError(t, err)
		require.Len(t, h.telegram.Messages, 1)
		assert.Nil(t, h.telegram.Messages[0].Options)
	})

	t.Run("transport error still counts as sent", func(t *testing.T) {
		h := newCampaignHarness(rows[:1], &models.Customer{ID: 1, Name: "Sara", TelegramID: utils.ToPtr(int64(5551))})
		h.telegram.Err = errors.New("bot api unreachable")

		resp, err := h.flow.Send(ctx, adminActor, sendRequest("telegram", "Selam"), nil)
		require.NoError(t, err)
		assert.Equal(t, 1, resp.Sent)
		assert.Equal(t, 0, resp.Failed)
		require.Len(t, h.delivery.saved, 1)
		require.NotNil(t, h.delivery.saved[0].Error)
		assert.Equal(t, "bot api unreachable", *h.delivery.saved[0].Error)
	})
}

func TestPromoCampaignFlow_SaveTemplate(t *testing.T) {
	ctx := context.Background()
	rows := []*models.AudienceRow{audienceRow(1, "Sara", "251911000111", 1, "10", nil)}
	customer := &models.Customer{ID: 1, Name: "Sara", Phone: "251911000111"}

	t.Run("default label and first free key", func(t *testing.T) {
		h := newCampaignHarness(rows, customer)
		h.templates = newFakeTemplateRepo(&models.SmsTemplate{Key: "promo_20261014_120000", Label: "taken", Body: "x"})
		h.flow.(*PromoCampaignFlowImpl).templateRepo = h.templates

		req := sendRequest("sms", "Hi {name}")
		req.SaveTemplate = true
		resp, err := h.flow.Send(ctx, adminActor, req, nil)
		require.NoError(t, err)

		require.NotNil(t, resp.TemplateKey)
		assert.Equal(t, "promo_20261014_120000_1", *resp.TemplateKey)
		require.NotNil(t, resp.TemplateLabel)
		assert.Equal(t, "Promo Campaign 2026-10-14 12:00", *resp.TemplateLabel)
		assert.Equal(t, `SMS promo sent. Sent: 1, Failed: 0, Audience: 1. Saved as template "Promo Campaign 2026-10-14 12:00".`, resp.Message)

		require.Len(t, h.templates.saved, 1)
		saved := h.templates.saved[0]
		assert.Equal(t, "Hi {name}", saved.Body)
		assert.True(t, saved.Active())
		assert.Equal(t, uint(1), *saved.CreatedBy)
		assert.Contains(t, h.audit.actions(), models.AuditActionSmsTemplateAutoSaved)
	})

	t.Run("unique violation retries next suffix", func(t *testing.T) {
		h := newCampaignHarness(rows, customer)
		h.templates.saveErrs = []error{
			fmt.Errorf("failed to save entity: %w", gorm.ErrDuplicatedKey),
			fmt.Errorf("failed to save entity: %w", gorm.ErrDuplicatedKey),
		}

		req := sendRequest("sms", "Hi")
		req.SaveTemplate = true
		req.TemplateLabel = "Weekend"
		resp, err := h.flow.Send(ctx, adminActor, req, nil)
		require.NoError(t, err)
		require.NotNil(t, resp.TemplateKey)
		assert.Equal(t, "promo_20261014_120000_2", *resp.TemplateKey)
		assert.Equal(t, "Weekend", *resp.TemplateLabel)
	})

	t.Run("other save errors leave the send intact", func(t *testing.T) {
		h := newCampaignHarness(rows, customer)
		h.templates.saveErrs = []error{errors.New("disk full")}

		req := sendRequest("sms", "Hi")
		req.SaveTemplate = true
		resp, err := h.flow.Send(ctx, adminActor, req, nil)
		require.NoError(t, err)
		assert.Nil(t, resp.TemplateKey)
		assert.Equal(t, "SMS promo sent. Sent: 1, Failed: 0, Audience: 1.", resp.Message)
	})
}

func TestPromoCampaignFlow_SendStoredTemplate(t *testing.T) {
	ctx := context.Background()
	rows := []*models.AudienceRow{audienceRow(1, "Sara", "251911000111", 1, "10", nil)}
	customer := &models.Customer{ID: 1, Name: "Sara", Phone: "251911000111"}

	t.Run("active template replaces the message", func(t *testing.T) {
		h := newCampaignHarness(rows, customer)
		h.templates.byKey["weekend_offer"] = &models.SmsTemplate{Key: "weekend_offer", Label: "Weekend", Body: "Weekend special for {name}", IsActive: utils.ToPtr(true)}

		req := sendRequest("sms", "Hi {name}")
		req.TemplateKey = "weekend_offer"
		resp, err := h.flow.Send(ctx, adminActor, req, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, resp.Sent)

		require.Len(t, h.sms.SentTo("251911000111"), 1)
		assert.Equal(t, "Weekend special for Sara", h.sms.SentTo("251911000111")[0].Message)
		assert.Equal(t, "Weekend special for {name}", h.runs.only().Message)
	})

	t.Run("missing template falls back to the message", func(t *testing.T) {
		h := newCampaignHarness(rows, customer)
		req := sendRequest("sms", "Hi {name}")
		req.TemplateKey = "gone"
		_, err := h.flow.Send(ctx, adminActor, req, nil)
		require.NoError(t, err)
		assert.Equal(t, "Hi Sara", h.sms.SentTo("251911000111")[0].Message)
	})

	t.Run("lookup failure sends nothing", func(t *testing.T) {
		h := newCampaignHarness(rows, customer)
		h.templates.byKeyErr = errors.New("connection reset")
		req := sendRequest("sms", "Hi {name}")
		req.TemplateKey = "weekend_offer"
		_, err := h.flow.Send(ctx, adminActor, req, nil)
		require.Error(t, err)
		be, ok := AsBusinessError(err)
		require.True(t, ok)
		assert.Equal(t, "TEMPLATE_LOOKUP_FAILED", be.Code)
		assert.Zero(t, h.audience.listCalls)
		assert.Empty(t, h.sms.Messages)
	})
}

func TestPromoCampaignFlow_ScheduleAndExecute(t *testing.T) {
	ctx := context.Background()
	rows := []*models.AudienceRow{audienceRow(1, "Sara", "251911000111", 1, "10", nil)}
	staff := &models.StaffUser{ID: 7, Name: "Abel", Role: models.StaffRoleBranchManager, IsActive: utils.ToPtr(true),
		Branches: []models.PickupLocation{{ID: 2, Name: "Bole"}}}
	actor := staff.Actor()

	t.Run("too soon", func(t *testing.T) {
		h := newCampaignHarness(rows)
		_, err := h.flow.Schedule(ctx, actor, &dto.SchedulePromoCampaignRequest{
			SendPromoCampaignRequest: *sendRequest("sms", "Hi"),
			ScheduledAt:              testNow.Add(time.Minute),
		}, nil)
		assert.True(t, IsScheduleTimeTooSoon(err))
		assert.Nil(t, h.runs.only())
	})

	t.Run("stored then executed as creator", func(t *testing.T) {
		h := newCampaignHarness(rows, &models.Customer{ID: 1, Name: "Sara", Phone: "251911000111"})
		h.staff.staff[staff.ID] = staff

		sched, err := h.flow.Schedule(ctx, actor, &dto.SchedulePromoCampaignRequest{
			SendPromoCampaignRequest: *sendRequest("sms", "Hi {name}"),
			ScheduledAt:              testNow.Add(time.Hour),
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, "scheduled", sched.Status)
		assert.Empty(t, h.sms.Messages)

		run := h.runs.only()
		require.NotNil(t, run)

		_, err = h.flow.ExecuteRun(ctx, run.ID)
		assert.True(t, IsCampaignRunNotDue(err), "not due before scheduled_at")

		later := h.flow.(*PromoCampaignFlowImpl)
		later.clock = utils.FixedClock{At: testNow.Add(2 * time.Hour)}

		resp, err := h.flow.ExecuteRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, resp.Sent)
		require.Len(t, h.sms.Messages, 1)
		assert.Equal(t, "Hi Sara", h.sms.Messages[0].Message)

		done := h.runs.only()
		assert.Equal(t, models.PromoRunStatusCompleted, done.Status)

		_, err = h.flow.ExecuteRun(ctx, run.ID)
		assert.True(t, IsCampaignRunNotDue(err), "completed runs are not re-executed")
	})

	t.Run("no match marks run", func(t *testing.T) {
		h := newCampaignHarness(nil)
		h.staff.staff[staff.ID] = staff
		_, err := h.flow.Schedule(ctx, actor, &dto.SchedulePromoCampaignRequest{
			SendPromoCampaignRequest: *sendRequest("telegram", "Hi"),
			ScheduledAt:              testNow.Add(time.Hour),
		}, nil)
		require.NoError(t, err)
		h.flow.(*PromoCampaignFlowImpl).clock = utils.FixedClock{At: testNow.Add(2 * time.Hour)}

		_, err = h.flow.ExecuteRun(ctx, h.runs.only().ID)
		assert.True(t, IsNoCustomersMatched(err))
		assert.Equal(t, models.PromoRunStatusNoMatch, h.runs.only().Status)
		assert.Contains(t, h.audit.actions(), models.AuditActionPromoNoMatch)
		assert.NotContains(t, h.audit.actions(), models.AuditActionPromoSendFailed)
	})
}

func TestPromoCampaignFlow_Runs(t *testing.T) {
	ctx := context.Background()
	rows := []*models.AudienceRow{audienceRow(1, "Sara", "251911000111", 1, "10", nil)}
	h := newCampaignHarness(rows, &models.Customer{ID: 1, Name: "Sara", Phone: "251911000111"})

	marketing := &models.Actor{StaffID: 5, Role: models.StaffRoleMarketing}
	resp, err := h.flow.Send(ctx, marketing, sendRequest("sms", "Hi"), nil)
	require.NoError(t, err)

	t.Run("owner sees run and deliveries", func(t *testing.T) {
		got, err := h.flow.GetRun(ctx, marketing, resp.RunUUID)
		require.NoError(t, err)
		assert.Equal(t, resp.RunUUID, got.Run.UUID)
		require.Len(t, got.Deliveries, 1)
		assert.Equal(t, "sent", got.Deliveries[0].Status)
	})

	t.Run("other staff cannot see it", func(t *testing.T) {
		_, err := h.flow.GetRun(ctx, &models.Actor{StaffID: 6, Role: models.StaffRoleCashier}, resp.RunUUID)
		assert.True(t, IsCampaignRunNotFound(err))
	})

	t.Run("garbage uuid", func(t *testing.T) {
		_, err := h.flow.GetRun(ctx, adminActor, "not-a-uuid")
		assert.True(t, IsCampaignRunNotFound(err))
	})

	t.Run("list scoped to owner unless admin", func(t *testing.T) {
		mine, err := h.flow.ListRuns(ctx, marketing, &dto.ListPromoCampaignRunsRequest{})
		require.NoError(t, err)
		assert.Len(t, mine.Items, 1)
		assert.Equal(t, 1, mine.Pagination.Page)
		assert.Equal(t, 20, mine.Pagination.Limit)
		assert.Equal(t, 1, mine.Pagination.TotalPages)

		other, err := h.flow.ListRuns(ctx, &models.Actor{StaffID: 6, Role: models.StaffRoleCashier}, &dto.ListPromoCampaignRunsRequest{})
		require.NoError(t, err)
		assert.Empty(t, other.Items)

		all, err := h.flow.ListRuns(ctx, adminActor, &dto.ListPromoCampaignRunsRequest{Page: 1, Limit: 10})
		require.NoError(t, err)
		assert.Len(t, all.Items, 1)
	})
}
