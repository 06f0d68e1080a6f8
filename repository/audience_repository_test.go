package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/amirphl/Injera-Promo/models"
	"github.com/amirphl/Injera-Promo/repository"
	testingutil "github.com/amirphl/Injera-Promo/testing"
	"github.com/amirphl/Injera-Promo/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withTestDB runs fn against a fresh migrated database and skips when none is reachable
func withTestDB(t *testing.T, fn func(t *testing.T, db *testingutil.TestDB)) {
	t.Helper()
	err := testingutil.TestWithDB(func(db *testingutil.TestDB) error {
		fn(t, db)
		return nil
	})
	if errors.Is(err, testingutil.ErrDatabaseUnavailable) {
		t.Skipf("skipping: %v", err)
	}
	require.NoError(t, err)
}

type audienceWorld struct {
	now            time.Time
	bole, piassa   *models.PickupLocation
	tibs, shiro    *models.MenuItem
	abebe, sara    *models.Customer
	kebede         *models.Customer
	admin, boleMgr *models.Actor
}

// seedAudienceWorld creates two branches and three customers:
//
//	abebe:  three Bole tibs orders (2400 total), last 2 days ago, on telegram
//	sara:   one Piassa shiro order (300), 40 days ago
//	kebede: one Bole shiro order (500) 100 days ago, one Piassa tibs order (200) 5 days ago
func seedAudienceWorld(t *testing.T, db *testingutil.TestDB) *audienceWorld {
	t.Helper()
	f := testingutil.NewTestFixtures(db)
	w := &audienceWorld{now: utils.UTCNow()}
	var err error

	w.bole, err = f.CreateTestBranch("Bole")
	require.NoError(t, err)
	w.piassa, err = f.CreateTestBranch("Piassa")
	require.NoError(t, err)
	w.tibs, err = f.CreateTestMenuItem("Tibs", 350)
	require.NoError(t, err)
	w.shiro, err = f.CreateTestMenuItem("Shiro", 180)
	require.NoError(t, err)

	w.abebe, err = f.CreateTestCustomer("Abebe Bikila", "251911000001", utils.ToPtr(int64(7001)))
	require.NoError(t, err)
	w.sara, err = f.CreateTestCustomer("Sara Tesfaye", "251911000002", nil)
	require.NoError(t, err)
	w.kebede, err = f.CreateTestCustomer("Kebede Alemu", "251911000003", nil)
	require.NoError(t, err)

	daysAgo := func(n int) time.Time { return w.now.AddDate(0, 0, -n) }
	orders := []struct {
		customer *models.Customer
		branch   *models.PickupLocation
		total    int64
		at       time.Time
		item     *models.MenuItem
	}{
		{w.abebe, w.bole, 800, daysAgo(20), w.tibs},
		{w.abebe, w.bole, 900, daysAgo(10), w.tibs},
		{w.abebe, w.bole, 700, daysAgo(2), w.tibs},
		{w.sara, w.piassa, 300, daysAgo(40), w.shiro},
		{w.kebede, w.bole, 500, daysAgo(100), w.shiro},
		{w.kebede, w.piassa, 200, daysAgo(5), w.tibs},
	}
	for _, o := range orders {
		_, err := f.CreateTestOrder(o.customer.ID, o.branch.ID, o.total, o.at, o.item.ID)
		require.NoError(t, err)
	}

	w.admin = &models.Actor{StaffID: 1, Role: models.StaffRoleAdmin}
	w.boleMgr = &models.Actor{StaffID: 2, Role: models.StaffRoleBranchManager, BranchIDs: []uint{w.bole.ID}}
	return w
}

func customerIDs(rows []*models.AudienceRow) []uint {
	ids := make([]uint, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.CustomerID)
	}
	return ids
}

func TestAudienceRepository_List(t *testing.T) {
	withTestDB(t, func(t *testing.T, db *testingutil.TestDB) {
		w := seedAudienceWorld(t, db)
		repo := repository.NewAudienceRepository(db.DB)
		ctx := context.Background()

		list := func(actor *models.Actor, filter models.AudienceFilter) []uint {
			if filter.Platform == "" {
				filter.Platform = models.PromoPlatformSMS
			}
			rows, err := repo.List(ctx, actor, filter, w.now, 0)
			require.NoError(t, err)
			return customerIDs(rows)
		}

		t.Run("admin sees everyone ordered by activity", func(t *testing.T) {
			rows, err := repo.List(ctx, w.admin, models.AudienceFilter{Platform: models.PromoPlatformSMS}, w.now, 0)
			require.NoError(t, err)
			require.Equal(t, []uint{w.abebe.ID, w.kebede.ID, w.sara.ID}, customerIDs(rows))

			assert.Equal(t, int64(3), rows[0].OrdersCount)
			assert.True(t, rows[0].TotalSpent.Equal(decimal.NewFromInt(2400)))
			assert.True(t, rows[0].AverageOrderValue.Equal(decimal.NewFromInt(800)))
			require.NotNil(t, rows[0].LastOrderAt)

			// orders across two branches collapse into one row
			assert.Equal(t, int64(2), rows[1].OrdersCount)
			assert.True(t, rows[1].TotalSpent.Equal(decimal.NewFromInt(700)))
		})

		t.Run("limit caps the rows", func(t *testing.T) {
			rows, err := repo.List(ctx, w.admin, models.AudienceFilter{Platform: models.PromoPlatformSMS}, w.now, 1)
			require.NoError(t, err)
			assert.Equal(t, []uint{w.abebe.ID}, customerIDs(rows))
		})

		t.Run("branch manager only sees their branch", func(t *testing.T) {
			rows, err := repo.List(ctx, w.boleMgr, models.AudienceFilter{Platform: models.PromoPlatformSMS}, w.now, 0)
			require.NoError(t, err)
			require.Equal(t, []uint{w.abebe.ID, w.kebede.ID}, customerIDs(rows))

			// kebede's Piassa order is invisible to the Bole manager
			assert.Equal(t, int64(1), rows[1].OrdersCount)
			assert.True(t, rows[1].TotalSpent.Equal(decimal.NewFromInt(500)))
		})

		t.Run("telegram requires a linked account", func(t *testing.T) {
			assert.Equal(t, []uint{w.abebe.ID}, list(w.admin, models.AudienceFilter{Platform: models.PromoPlatformTelegram}))
		})

		t.Run("search", func(t *testing.T) {
			assert.Equal(t, []uint{w.abebe.ID}, list(w.admin, models.AudienceFilter{Search: "abe"}))
			assert.Equal(t, []uint{w.sara.ID}, list(w.admin, models.AudienceFilter{Search: "911000002"}))
		})

		t.Run("branch filter", func(t *testing.T) {
			assert.Equal(t, []uint{w.sara.ID, w.kebede.ID}, list(w.admin, models.AudienceFilter{BranchIDs: []uint{w.piassa.ID}}))
			assert.Empty(t, list(w.boleMgr, models.AudienceFilter{BranchIDs: []uint{w.piassa.ID}}))
		})

		t.Run("menu items", func(t *testing.T) {
			assert.Equal(t, []uint{w.kebede.ID, w.sara.ID}, list(w.admin, models.AudienceFilter{IncludeMenuItemIDs: []uint{w.shiro.ID}}))
			assert.Equal(t, []uint{w.sara.ID}, list(w.admin, models.AudienceFilter{ExcludeMenuItemIDs: []uint{w.tibs.ID}}))
			// kebede bought tibs only at Piassa
			assert.Equal(t, []uint{w.abebe.ID}, list(w.boleMgr, models.AudienceFilter{IncludeMenuItemIDs: []uint{w.tibs.ID}}))
		})

		t.Run("recency", func(t *testing.T) {
			assert.Equal(t, []uint{w.abebe.ID, w.kebede.ID}, list(w.admin, models.AudienceFilter{RecencyMaxDays: utils.ToPtr(30)}))
			assert.Equal(t, []uint{w.sara.ID}, list(w.admin, models.AudienceFilter{RecencyMinDays: utils.ToPtr(30)}))
			assert.Equal(t, []uint{w.kebede.ID, w.sara.ID}, list(w.admin, models.AudienceFilter{
				RecencyMinDays: utils.ToPtr(3),
				RecencyMaxDays: utils.ToPtr(60),
			}))
			// the Bole manager only knows kebede's 100 day old order
			assert.Equal(t, []uint{w.kebede.ID}, list(w.boleMgr, models.AudienceFilter{RecencyMinDays: utils.ToPtr(30)}))
		})

		t.Run("aggregate ranges", func(t *testing.T) {
			assert.Equal(t, []uint{w.abebe.ID, w.kebede.ID}, list(w.admin, models.AudienceFilter{OrdersMin: utils.ToPtr(2)}))
			assert.Equal(t, []uint{w.abebe.ID}, list(w.admin, models.AudienceFilter{TotalSpentMin: utils.ToPtr(decimal.NewFromInt(1000))}))
			assert.Equal(t, []uint{w.kebede.ID, w.sara.ID}, list(w.admin, models.AudienceFilter{AvgOrderValueMax: utils.ToPtr(decimal.NewFromInt(400))}))
		})
	})
}

func TestAudienceRepository_Summary(t *testing.T) {
	withTestDB(t, func(t *testing.T, db *testingutil.TestDB) {
		w := seedAudienceWorld(t, db)
		repo := repository.NewAudienceRepository(db.DB)
		ctx := context.Background()

		summary, err := repo.Summary(ctx, w.admin, models.AudienceFilter{Platform: models.PromoPlatformSMS}, w.now)
		require.NoError(t, err)
		assert.Equal(t, int64(3), summary.MatchedCustomers)
		assert.Equal(t, int64(1), summary.HighValueCustomers)
		assert.Equal(t, int64(0), summary.DormantCustomers)
		assert.Equal(t, int64(6), summary.TotalOrders)
		assert.True(t, summary.TotalSpent.Equal(decimal.NewFromInt(3400)))

		summary, err = repo.Summary(ctx, w.boleMgr, models.AudienceFilter{Platform: models.PromoPlatformSMS}, w.now)
		require.NoError(t, err)
		assert.Equal(t, int64(2), summary.MatchedCustomers)
		assert.Equal(t, int64(1), summary.DormantCustomers)
		assert.Equal(t, int64(4), summary.TotalOrders)

		summary, err = repo.Summary(ctx, w.boleMgr, models.AudienceFilter{BranchIDs: []uint{w.piassa.ID}}, w.now)
		require.NoError(t, err)
		assert.Equal(t, int64(0), summary.MatchedCustomers)
		assert.True(t, summary.TotalSpent.IsZero())
	})
}

func TestOrderRepository_CustomerStats(t *testing.T) {
	withTestDB(t, func(t *testing.T, db *testingutil.TestDB) {
		w := seedAudienceWorld(t, db)
		repo := repository.NewOrderRepository(db.DB)
		ctx := context.Background()
		ids := []uint{w.abebe.ID, w.sara.ID, w.kebede.ID}

		full := repository.ActorOrderScope(w.admin)
		latest, err := repo.LatestForCustomers(ctx, ids, full)
		require.NoError(t, err)
		require.Len(t, latest, 3)
		assert.Equal(t, w.piassa.ID, latest[w.kebede.ID].PickupLocationID)
		require.Len(t, latest[w.kebede.ID].Items, 1)
		assert.Equal(t, "Tibs", latest[w.kebede.ID].Items[0].MenuItem.Name)

		bole := repository.ActorOrderScope(w.boleMgr)
		latest, err = repo.LatestForCustomers(ctx, ids, bole)
		require.NoError(t, err)
		assert.Len(t, latest, 2)
		assert.NotContains(t, latest, w.sara.ID)
		assert.Equal(t, w.bole.ID, latest[w.kebede.ID].PickupLocationID)

		favorites, err := repo.FavoritesForCustomers(ctx, ids, full)
		require.NoError(t, err)
		assert.Equal(t, "Tibs", favorites[w.abebe.ID].FavoriteItem)
		assert.Equal(t, "Bole", favorites[w.abebe.ID].FavoriteBranch)
		assert.Equal(t, "Shiro", favorites[w.sara.ID].FavoriteItem)
		assert.Equal(t, "Piassa", favorites[w.sara.ID].FavoriteBranch)

		denied, err := repo.FavoritesForCustomers(ctx, ids, repository.OrderScope{})
		require.NoError(t, err)
		assert.Empty(t, denied)
	})
}
