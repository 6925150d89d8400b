package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.uber.org/zap"
)

func newTestEngine(ledger *fakeLedgerRepo, users *fakeUserRepo) *progressEngine {
	engine := newProgressEngine(ledger, users, zap.NewNop())
	engine.now = func() time.Time { return time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC) }
	return engine
}

func TestApplyCreatesRowAndSetsProgress(t *testing.T) {
	ledger := newFakeLedgerRepo()
	engine := newTestEngine(ledger, newFakeUserRepo())

	unlocked, err := engine.Apply(context.Background(), nil, 1, 10, 3, 5)
	require.NoError(t, err)
	assert.False(t, unlocked)

	row := ledger.row(1, 10)
	require.NotNil(t, row)
	assert.Equal(t, 3, row.Progress)
	assert.Nil(t, row.UnlockedAt)
}

func TestApplyUnlocksAtTarget(t *testing.T) {
	ledger := newFakeLedgerRepo()
	users := newFakeUserRepo()
	users.tracked[1] = 10
	engine := newTestEngine(ledger, users)

	unlocked, err := engine.Apply(context.Background(), nil, 1, 10, 5, 5)
	require.NoError(t, err)
	assert.True(t, unlocked)

	row := ledger.row(1, 10)
	require.NotNil(t, row)
	assert.Equal(t, 5, row.Progress)
	require.NotNil(t, row.UnlockedAt)
	assert.Equal(t, 1, users.clearCalls, "tracked pointer cleared in the same transition")
}

func TestApplyUnlocksPastTarget(t *testing.T) {
	ledger := newFakeLedgerRepo()
	engine := newTestEngine(ledger, newFakeUserRepo())

	unlocked, err := engine.Apply(context.Background(), nil, 1, 10, 12, 5)
	require.NoError(t, err)
	assert.True(t, unlocked)
	assert.Equal(t, 12, ledger.row(1, 10).Progress)
}

func TestApplyIsIdempotentAfterUnlock(t *testing.T) {
	ledger := newFakeLedgerRepo()
	users := newFakeUserRepo()
	engine := newTestEngine(ledger, users)

	unlocked, err := engine.Apply(context.Background(), nil, 1, 10, 5, 5)
	require.NoError(t, err)
	require.True(t, unlocked)
	firstUnlockedAt := *ledger.row(1, 10).UnlockedAt

	// Replays and later higher values are no-ops on a terminal row.
	for _, progress := range []int{5, 7, 100} {
		unlocked, err = engine.Apply(context.Background(), nil, 1, 10, progress, 5)
		require.NoError(t, err)
		assert.False(t, unlocked)
	}

	row := ledger.row(1, 10)
	assert.Equal(t, 5, row.Progress)
	assert.Equal(t, firstUnlockedAt, *row.UnlockedAt)
	assert.Equal(t, 1, ledger.unlockCalls)
}

func TestApplyRestatesLowerProgress(t *testing.T) {
	ledger := newFakeLedgerRepo()
	ledger.seed(1, 10, 4, nil)
	engine := newTestEngine(ledger, newFakeUserRepo())

	unlocked, err := engine.Apply(context.Background(), nil, 1, 10, 2, 5)
	require.NoError(t, err)
	assert.False(t, unlocked)
	assert.Equal(t, 2, ledger.row(1, 10).Progress, "absolute restates write as-is")
}

func TestApplyCoercesNonPositiveTarget(t *testing.T) {
	ledger := newFakeLedgerRepo()
	engine := newTestEngine(ledger, newFakeUserRepo())

	unlocked, err := engine.Apply(context.Background(), nil, 1, 10, 1, 0)
	require.NoError(t, err)
	assert.True(t, unlocked, "target zero behaves as target one")
}

func TestApplyDoesNotClearDifferentTrackedAchievement(t *testing.T) {
	ledger := newFakeLedgerRepo()
	users := newFakeUserRepo()
	users.tracked[1] = 99
	engine := newTestEngine(ledger, users)

	unlocked, err := engine.Apply(context.Background(), nil, 1, 10, 5, 5)
	require.NoError(t, err)
	require.True(t, unlocked)
	assert.Equal(t, 0, users.clearCalls)
	assert.Equal(t, int64(99), users.tracked[1])
}
