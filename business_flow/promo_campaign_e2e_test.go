package businessflow_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/amirphl/Injera-Promo/app/dto"
	"github.com/amirphl/Injera-Promo/app/services"
	businessflow "github.com/amirphl/Injera-Promo/business_flow"
	"github.com/amirphl/Injera-Promo/config"
	"github.com/amirphl/Injera-Promo/models"
	"github.com/amirphl/Injera-Promo/repository"
	testingutil "github.com/amirphl/Injera-Promo/testing"
	"github.com/amirphl/Injera-Promo/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromoCampaignFlow_BranchManagerSMSCampaign(t *testing.T) {
	err := testingutil.TestWithDB(func(db *testingutil.TestDB) error {
		ctx := context.Background()
		f := testingutil.NewTestFixtures(db)
		now := utils.UTCNow()
		daysAgo := func(n int) time.Time { return now.AddDate(0, 0, -n) }

		bole, err := f.CreateTestBranch("Bole")
		require.NoError(t, err)
		piassa, err := f.CreateTestBranch("Piassa")
		require.NoError(t, err)
		tibs, err := f.CreateTestMenuItem("Tibs", 350)
		require.NoError(t, err)

		// two Bole regulars, one customer split across branches, one Piassa regular
		hana, err := f.CreateTestCustomer("Hana", "251911100001", nil)
		require.NoError(t, err)
		dawit, err := f.CreateTestCustomer("Dawit", "251911100002", nil)
		require.NoError(t, err)
		meron, err := f.CreateTestCustomer("Meron", "251911100003", nil)
		require.NoError(t, err)
		yonas, err := f.CreateTestCustomer("Yonas", "251911100004", nil)
		require.NoError(t, err)

		orders := []struct {
			customer *models.Customer
			branch   *models.PickupLocation
			total    int64
			days     int
		}{
			{hana, bole, 400, 12},
			{hana, bole, 600, 3},
			{hana, bole, 500, 1},
			{dawit, bole, 350, 30},
			{dawit, bole, 350, 8},
			{meron, bole, 700, 15},
			{meron, piassa, 300, 4},
			{yonas, piassa, 200, 20},
			{yonas, piassa, 250, 6},
			{yonas, piassa, 300, 2},
		}
		for _, o := range orders {
			_, err := f.CreateTestOrder(o.customer.ID, o.branch.ID, o.total, daysAgo(o.days), tibs.ID)
			require.NoError(t, err)
		}

		manager, err := f.CreateTestStaff("Bole Manager", "251922000001", models.StaffRoleBranchManager, bole)
		require.NoError(t, err)

		log := logrus.New()
		log.SetOutput(io.Discard)
		sms := services.NewMockSMSGateway()
		runRepo := repository.NewPromoCampaignRunRepository(db.DB)
		deliveryRepo := repository.NewPromoDeliveryRepository(db.DB)

		flow := businessflow.NewPromoCampaignFlow(businessflow.PromoCampaignDeps{
			AudienceRepo: repository.NewAudienceRepository(db.DB),
			CustomerRepo: repository.NewCustomerRepository(db.DB),
			OrderRepo:    repository.NewOrderRepository(db.DB),
			TemplateRepo: repository.NewSmsTemplateRepository(db.DB),
			RunRepo:      runRepo,
			DeliveryRepo: deliveryRepo,
			StaffRepo:    repository.NewStaffUserRepository(db.DB),
			AuditRepo:    repository.NewAuditLogRepository(db.DB),
			SMS:          sms,
			Telegram:     services.NewMockTelegramClient(),
		}, config.CacheConfig{}, config.PromoConfig{DeliveryBatchSize: 100}, utils.SystemClock{}, log)

		resp, err := flow.Send(ctx, manager.Actor(), &dto.SendPromoCampaignRequest{
			PromoFilterRequest: dto.PromoFilterRequest{
				Platform:  "sms",
				OrdersMin: utils.ToPtr(2),
				BranchIDs: []uint{bole.ID, piassa.ID},
			},
			Message: "Hi {name}, special offer!",
		}, nil)
		require.NoError(t, err)

		// meron has one Bole order and yonas none, so only the Bole regulars match
		assert.Equal(t, 2, resp.AudienceSize)
		assert.Equal(t, 2, resp.Sent)
		assert.Equal(t, 0, resp.Failed)
		assert.Equal(t, "sms", resp.Platform)

		require.Len(t, sms.SentTo("251911100001"), 1)
		assert.Equal(t, "Hi Hana, special offer!", sms.SentTo("251911100001")[0].Message)
		require.Len(t, sms.SentTo("251911100002"), 1)
		assert.Equal(t, "Hi Dawit, special offer!", sms.SentTo("251911100002")[0].Message)
		assert.Empty(t, sms.SentTo("251911100003"))
		assert.Empty(t, sms.SentTo("251911100004"))

		id, err := uuid.Parse(resp.RunUUID)
		require.NoError(t, err)
		run, err := runRepo.ByUUID(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, run)
		assert.Equal(t, models.PromoRunStatusCompleted, run.Status)
		assert.Equal(t, manager.ID, run.StaffID)
		assert.Equal(t, 2, run.SentCount)

		sent := models.PromoDeliveryStatusSent
		count, err := deliveryRepo.Count(ctx, models.PromoDeliveryFilter{RunID: &run.ID, Status: &sent})
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
		return nil
	})
	if errors.Is(err, testingutil.ErrDatabaseUnavailable) {
		t.Skipf("skipping: %v", err)
	}
	require.NoError(t, err)
}
