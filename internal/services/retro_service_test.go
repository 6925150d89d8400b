package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"questhub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.uber.org/zap"
)

type retroFixture struct {
	ledger  *fakeLedgerRepo
	users   *fakeUserRepo
	catalog *fakeAchievementRepo
	history *fakeHistoryRepo
	service RetroSyncService
}

func newRetroFixture(achievements ...*models.Achievement) *retroFixture {
	ledger := newFakeLedgerRepo()
	users := newFakeUserRepo()
	catalogRepo := newFakeAchievementRepo(achievements...)
	history := &fakeHistoryRepo{}
	logger := zap.NewNop()

	engine := newProgressEngine(ledger, users, logger)
	service := NewRetroSyncService(catalogRepo, users, engine, logger)
	for _, source := range DefaultProgressSources(history, func() time.Time {
		return time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	}) {
		service.RegisterSource(source)
	}

	return &retroFixture{
		ledger:  ledger,
		users:   users,
		catalog: catalogRepo,
		history: history,
		service: service,
	}
}

func TestSyncUsersUnlocksFromHistory(t *testing.T) {
	fx := newRetroFixture(
		&models.Achievement{ID: 1, Type: models.AchievementTypeMilestone, EventType: models.EventTypePostCreated, TargetCount: 10},
		&models.Achievement{ID: 2, Type: models.AchievementTypeMilestone, EventType: models.EventTypePostCreated, TargetCount: 50},
	)
	fx.history.posts = map[int64]int{7: 25, 8: 3}

	result, err := fx.service.SyncUsers(context.Background(), []int64{7, 8})
	require.NoError(t, err)

	assert.Equal(t, 2, result.UsersProcessed)
	assert.Equal(t, 1, result.TotalUnlocked)
	assert.Equal(t, []int64{1}, result.UnlockedByUser[7])

	// User 7 crossed only the first threshold; the second records progress.
	assert.True(t, fx.ledger.row(7, 1).Unlocked())
	assert.Equal(t, 25, fx.ledger.row(7, 2).Progress)
	assert.False(t, fx.ledger.row(7, 2).Unlocked())

	// User 8 keeps partial progress.
	assert.Equal(t, 3, fx.ledger.row(8, 1).Progress)
}

func TestSyncUsersIsIdempotent(t *testing.T) {
	fx := newRetroFixture(
		&models.Achievement{ID: 1, Type: models.AchievementTypeMilestone, EventType: models.EventTypePostCreated, TargetCount: 10},
	)
	fx.history.posts = map[int64]int{7: 12}

	first, err := fx.service.SyncUsers(context.Background(), []int64{7})
	require.NoError(t, err)
	assert.Equal(t, 1, first.TotalUnlocked)

	second, err := fx.service.SyncUsers(context.Background(), []int64{7})
	require.NoError(t, err)
	assert.Equal(t, 0, second.TotalUnlocked, "rerun reports nothing new")
	assert.Equal(t, 1, fx.ledger.unlockCalls)
}

func TestSyncUsersSkipsZeroStandings(t *testing.T) {
	fx := newRetroFixture(
		&models.Achievement{ID: 1, Type: models.AchievementTypeMilestone, EventType: models.EventTypePostCreated, TargetCount: 10},
	)
	fx.history.posts = map[int64]int{7: 0}

	_, err := fx.service.SyncUsers(context.Background(), []int64{7})
	require.NoError(t, err)
	assert.Nil(t, fx.ledger.row(7, 1), "zero history creates no ledger row")
}

func TestSyncUsersReportsMissingSource(t *testing.T) {
	ledger := newFakeLedgerRepo()
	users := newFakeUserRepo()
	catalogRepo := newFakeAchievementRepo(
		&models.Achievement{ID: 1, Type: models.AchievementTypeMilestone, EventType: models.EventTypePostCreated, TargetCount: 10},
	)
	service := NewRetroSyncService(catalogRepo, users, newProgressEngine(ledger, users, zap.NewNop()), zap.NewNop())

	// No sources registered at all.
	result, err := service.SyncUsers(context.Background(), []int64{7})
	require.NoError(t, err)
	assert.Equal(t, []models.EventType{models.EventTypePostCreated}, result.SkippedEventTypes)
	assert.Zero(t, result.TotalUnlocked)
}

func TestSyncUsersSkipsFailingSource(t *testing.T) {
	fx := newRetroFixture(
		&models.Achievement{ID: 1, Type: models.AchievementTypeMilestone, EventType: models.EventTypePostCreated, TargetCount: 10},
	)
	fx.history.err = fmt.Errorf("replica down")

	result, err := fx.service.SyncUsers(context.Background(), []int64{7})
	require.NoError(t, err, "a failing source never sinks the batch")
	assert.Contains(t, result.SkippedEventTypes, models.EventTypePostCreated)
}

func TestSyncUsersSkipsReservedAchievementTypes(t *testing.T) {
	fx := newRetroFixture(
		&models.Achievement{ID: 1, Type: models.AchievementTypeStreak, EventType: models.EventTypeStreakUpdated, TargetCount: 7},
	)
	fx.history.streaks = map[int64]int{7: 30}

	result, err := fx.service.SyncUsers(context.Background(), []int64{7})
	require.NoError(t, err)
	assert.Zero(t, result.TotalUnlocked)
	assert.Nil(t, fx.ledger.row(7, 1))
}

func TestSyncUsersAnniversaryMonths(t *testing.T) {
	fx := newRetroFixture(
		&models.Achievement{ID: 1, Type: models.AchievementTypeMilestone, EventType: models.EventTypeAccountAnniversary, TargetCount: 12},
	)
	// Fixture clock is 2026-08-29.
	fx.history.signups = map[int64]time.Time{
		7: time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),  // 12 full months
		8: time.Date(2026, 5, 30, 0, 0, 0, 0, time.UTC), // 2 full months
	}

	result, err := fx.service.SyncUsers(context.Background(), []int64{7, 8})
	require.NoError(t, err)

	assert.Equal(t, 1, result.TotalUnlocked)
	assert.True(t, fx.ledger.row(7, 1).Unlocked())
	assert.Equal(t, 2, fx.ledger.row(8, 1).Progress)
}

func TestSyncUsersEmptyBatch(t *testing.T) {
	fx := newRetroFixture()

	result, err := fx.service.SyncUsers(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, result.UsersProcessed)
	assert.Zero(t, fx.catalog.listCalls, "empty batch never touches the catalog")
}

func TestSyncWindowPagesUserIDs(t *testing.T) {
	fx := newRetroFixture(
		&models.Achievement{ID: 1, Type: models.AchievementTypeMilestone, EventType: models.EventTypePostCreated, TargetCount: 5},
	)
	fx.users.ids = []int64{1, 2, 3, 4, 5}
	fx.history.posts = map[int64]int{3: 9}

	result, err := fx.service.SyncWindow(context.Background(), models.PaginationParams{Offset: 2, Limit: 2})
	require.NoError(t, err)

	assert.Equal(t, 2, result.UsersProcessed)
	assert.Equal(t, 1, result.TotalUnlocked)
	assert.True(t, fx.ledger.row(3, 1).Unlocked())
}

func TestMonthsBetween(t *testing.T) {
	base := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		to   time.Time
		want int
	}{
		{"same day", base, 0},
		{"day before anniversary", time.Date(2024, 2, 14, 0, 0, 0, 0, time.UTC), 0},
		{"anniversary day", time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC), 1},
		{"partial second month", time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC), 1},
		{"one year", time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), 12},
		{"before signup", time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC), 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, monthsBetween(base, tc.to))
		})
	}
}
