package services

import (
	"context"
	"testing"
	"time"

	"questhub/internal/events"
	"questhub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.uber.org/zap"
)

func intPtr(v int) *int { return &v }

type evaluationFixture struct {
	ledger  *fakeLedgerRepo
	users   *fakeUserRepo
	catalog *fakeAchievementRepo
	bus     *fakeEventBus
	service EvaluationService
}

func newEvaluationFixture(achievements ...*models.Achievement) *evaluationFixture {
	ledger := newFakeLedgerRepo()
	users := newFakeUserRepo()
	catalogRepo := newFakeAchievementRepo(achievements...)
	bus := &fakeEventBus{}
	logger := zap.NewNop()

	catalogService := NewAchievementService(catalogRepo, ledger, users, newFakeCache(), time.Minute, logger)
	engine := newProgressEngine(ledger, users, logger)

	return &evaluationFixture{
		ledger:  ledger,
		users:   users,
		catalog: catalogRepo,
		bus:     bus,
		service: NewEvaluationService(catalogService, ledger, engine, bus, 2, time.Millisecond, logger),
	}
}

func TestEvaluateMilestoneIncrements(t *testing.T) {
	fx := newEvaluationFixture(&models.Achievement{
		ID: 1, Type: models.AchievementTypeMilestone,
		EventType: models.EventTypePostCreated, TargetCount: 3,
	})

	fx.service.Evaluate(context.Background(), 7, models.EventTypePostCreated, nil)
	fx.service.Evaluate(context.Background(), 7, models.EventTypePostCreated, nil)

	row := fx.ledger.row(7, 1)
	require.NotNil(t, row)
	assert.Equal(t, 2, row.Progress)
	assert.Nil(t, row.UnlockedAt)
	assert.Empty(t, fx.bus.published)
}

func TestEvaluateMilestoneUnlocksAndPublishes(t *testing.T) {
	fx := newEvaluationFixture(&models.Achievement{
		ID: 1, Type: models.AchievementTypeMilestone,
		EventType: models.EventTypePostCreated, TargetCount: 2,
	})

	fx.service.Evaluate(context.Background(), 7, models.EventTypePostCreated, nil)
	fx.service.Evaluate(context.Background(), 7, models.EventTypePostCreated, nil)

	row := fx.ledger.row(7, 1)
	require.True(t, row.Unlocked())

	require.Len(t, fx.bus.published, 1)
	unlockEvent, ok := fx.bus.published[0].(*events.AchievementUnlockedEvent)
	require.True(t, ok)
	assert.Equal(t, int64(7), unlockEvent.UserID)
	assert.Equal(t, int64(1), unlockEvent.AchievementID)
}

func TestEvaluateMilestoneCustomIncrement(t *testing.T) {
	fx := newEvaluationFixture(&models.Achievement{
		ID: 1, Type: models.AchievementTypeMilestone,
		EventType: models.EventTypeVoteCast, TargetCount: 10,
	})

	fx.service.Evaluate(context.Background(), 7, models.EventTypeVoteCast, intPtr(4))
	assert.Equal(t, 4, fx.ledger.row(7, 1).Progress)

	fx.service.Evaluate(context.Background(), 7, models.EventTypeVoteCast, intPtr(3))
	assert.Equal(t, 7, fx.ledger.row(7, 1).Progress)
}

func TestEvaluateInstantUnlocksFirstOccurrence(t *testing.T) {
	fx := newEvaluationFixture(&models.Achievement{
		ID: 1, Type: models.AchievementTypeInstant,
		EventType: models.EventTypeReferralCompleted, TargetCount: 1,
	})

	fx.service.Evaluate(context.Background(), 7, models.EventTypeReferralCompleted, nil)
	require.True(t, fx.ledger.row(7, 1).Unlocked())

	// A second occurrence must not double-publish.
	fx.service.Evaluate(context.Background(), 7, models.EventTypeReferralCompleted, nil)
	assert.Len(t, fx.bus.published, 1)
}

func TestEvaluateAbsoluteRestatesValue(t *testing.T) {
	fx := newEvaluationFixture(&models.Achievement{
		ID: 1, Type: models.AchievementTypeMilestone,
		EventType: models.EventTypeReputationEarned, TargetCount: 500,
	})

	fx.service.Evaluate(context.Background(), 7, models.EventTypeReputationEarned, intPtr(120))
	assert.Equal(t, 120, fx.ledger.row(7, 1).Progress)

	// Absolute values replace, never add.
	fx.service.Evaluate(context.Background(), 7, models.EventTypeReputationEarned, intPtr(90))
	assert.Equal(t, 90, fx.ledger.row(7, 1).Progress)
}

func TestEvaluateAbsoluteWithoutValueSkips(t *testing.T) {
	fx := newEvaluationFixture(&models.Achievement{
		ID: 1, Type: models.AchievementTypeMilestone,
		EventType: models.EventTypeReputationEarned, TargetCount: 500,
	})

	fx.service.Evaluate(context.Background(), 7, models.EventTypeReputationEarned, nil)
	assert.Nil(t, fx.ledger.row(7, 1))
}

func TestEvaluateUnknownTypeSkips(t *testing.T) {
	fx := newEvaluationFixture(&models.Achievement{
		ID: 1, Type: models.AchievementTypeStreak,
		EventType: models.EventTypePostCreated, TargetCount: 7,
	})

	fx.service.Evaluate(context.Background(), 7, models.EventTypePostCreated, nil)
	assert.Nil(t, fx.ledger.row(7, 1), "no evaluator means no ledger write")
}

func TestEvaluateInvalidUserIsNoOp(t *testing.T) {
	fx := newEvaluationFixture(&models.Achievement{
		ID: 1, Type: models.AchievementTypeMilestone,
		EventType: models.EventTypePostCreated, TargetCount: 3,
	})

	fx.service.Evaluate(context.Background(), 0, models.EventTypePostCreated, nil)
	fx.service.Evaluate(context.Background(), -4, models.EventTypePostCreated, nil)
	assert.Empty(t, fx.ledger.rows)
}

func TestEvaluateRetriesTransientFailures(t *testing.T) {
	fx := newEvaluationFixture(&models.Achievement{
		ID: 1, Type: models.AchievementTypeMilestone,
		EventType: models.EventTypePostCreated, TargetCount: 3,
	})
	fx.ledger.transientFailures = 2

	fx.service.Evaluate(context.Background(), 7, models.EventTypePostCreated, nil)

	row := fx.ledger.row(7, 1)
	require.NotNil(t, row, "transition succeeds after retries")
	assert.Equal(t, 1, row.Progress)
}

func TestEvaluateUnlockNotificationOutlivesRequest(t *testing.T) {
	fx := newEvaluationFixture(&models.Achievement{
		ID: 1, Type: models.AchievementTypeInstant,
		EventType: models.EventTypePostCreated, TargetCount: 1,
	})

	ctx, cancel := context.WithCancel(context.Background())
	fx.service.Evaluate(ctx, 7, models.EventTypePostCreated, nil)
	cancel()

	require.Len(t, fx.bus.published, 1)
	require.NotNil(t, fx.bus.publishCtx)
	assert.NoError(t, fx.bus.publishCtx.Err(), "delivery context must not die with the request")
}

func TestEvaluateMultipleAchievementsSameEvent(t *testing.T) {
	fx := newEvaluationFixture(
		&models.Achievement{ID: 1, Type: models.AchievementTypeInstant, EventType: models.EventTypePostCreated, TargetCount: 1},
		&models.Achievement{ID: 2, Type: models.AchievementTypeMilestone, EventType: models.EventTypePostCreated, TargetCount: 5},
	)

	fx.service.Evaluate(context.Background(), 7, models.EventTypePostCreated, nil)

	assert.True(t, fx.ledger.row(7, 1).Unlocked())
	assert.Equal(t, 1, fx.ledger.row(7, 2).Progress)
	assert.Len(t, fx.bus.published, 1)
}
