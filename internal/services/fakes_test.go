package services

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"questhub/internal/events"
	"questhub/internal/models"
)

// In-memory doubles for the repository interfaces. WithTransaction passes a
// nil *sql.Tx through; the fakes ignore it, so transaction-scoped paths run
// against plain maps.

type ledgerKey struct {
	userID        int64
	achievementID int64
}

type fakeLedgerRepo struct {
	mu   sync.Mutex
	rows map[ledgerKey]*models.UserAchievement

	// transientFailures fails that many WithTransaction calls before
	// letting one through, for retry tests.
	transientFailures int

	unlockCalls      int
	setProgressCalls int
	usersWithUnlocks int64
	unlockCounts     map[int64]int64
}

func newFakeLedgerRepo() *fakeLedgerRepo {
	return &fakeLedgerRepo{
		rows:         make(map[ledgerKey]*models.UserAchievement),
		unlockCounts: make(map[int64]int64),
	}
}

func (f *fakeLedgerRepo) row(userID, achievementID int64) *models.UserAchievement {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[ledgerKey{userID, achievementID}]
}

func (f *fakeLedgerRepo) seed(userID, achievementID int64, progress int, unlockedAt *time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[ledgerKey{userID, achievementID}] = &models.UserAchievement{
		UserID:        userID,
		AchievementID: achievementID,
		Progress:      progress,
		UnlockedAt:    unlockedAt,
	}
}

func (f *fakeLedgerRepo) Get(ctx context.Context, userID, achievementID int64) (*models.UserAchievement, error) {
	return f.row(userID, achievementID), nil
}

func (f *fakeLedgerRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, userID, achievementID int64) (*models.UserAchievement, error) {
	return f.row(userID, achievementID), nil
}

func (f *fakeLedgerRepo) CreateTx(ctx context.Context, tx *sql.Tx, userID, achievementID int64) (*models.UserAchievement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := ledgerKey{userID, achievementID}
	if existing, ok := f.rows[key]; ok {
		return existing, nil
	}
	row := &models.UserAchievement{UserID: userID, AchievementID: achievementID}
	f.rows[key] = row
	return row, nil
}

func (f *fakeLedgerRepo) SetProgressTx(ctx context.Context, tx *sql.Tx, userID, achievementID int64, progress int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[ledgerKey{userID, achievementID}]
	if !ok || row.UnlockedAt != nil {
		return fmt.Errorf("progress update affected no rows")
	}
	row.Progress = progress
	f.setProgressCalls++
	return nil
}

func (f *fakeLedgerRepo) UnlockTx(ctx context.Context, tx *sql.Tx, userID, achievementID int64, progress int, unlockedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[ledgerKey{userID, achievementID}]
	if !ok || row.UnlockedAt != nil {
		return fmt.Errorf("unlock affected no rows")
	}
	row.Progress = progress
	row.UnlockedAt = &unlockedAt
	f.unlockCalls++
	return nil
}

func (f *fakeLedgerRepo) ListByUser(ctx context.Context, userID int64) ([]*models.UserProgress, error) {
	return nil, nil
}

func (f *fakeLedgerRepo) CountUsersWithUnlocks(ctx context.Context) (int64, error) {
	return f.usersWithUnlocks, nil
}

func (f *fakeLedgerRepo) CountUnlocksByAchievement(ctx context.Context) (map[int64]int64, error) {
	return f.unlockCounts, nil
}

func (f *fakeLedgerRepo) WithTransaction(ctx context.Context, fn func(*sql.Tx) error) error {
	f.mu.Lock()
	if f.transientFailures > 0 {
		f.transientFailures--
		f.mu.Unlock()
		return fmt.Errorf("transient store failure")
	}
	f.mu.Unlock()
	return fn(nil)
}

type fakeUserRepo struct {
	mu         sync.Mutex
	tracked    map[int64]int64 // user -> tracked achievement
	ids        []int64
	missing    map[int64]bool // user IDs that do not exist
	clearCalls int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{tracked: make(map[int64]int64)}
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	if f.missing[id] {
		return nil, nil
	}
	return &models.User{ID: id}, nil
}

func (f *fakeUserRepo) ListIDs(ctx context.Context, params models.PaginationParams) ([]int64, error) {
	if params.Offset >= len(f.ids) {
		return nil, nil
	}
	end := params.Offset + params.Limit
	if end > len(f.ids) {
		end = len(f.ids)
	}
	return f.ids[params.Offset:end], nil
}

func (f *fakeUserRepo) ClearTrackedAchievementTx(ctx context.Context, tx *sql.Tx, userID, achievementID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tracked[userID] == achievementID {
		delete(f.tracked, userID)
		f.clearCalls++
	}
	return nil
}

type fakeAchievementRepo struct {
	mu           sync.Mutex
	achievements []*models.Achievement
	rarities     map[int64]float64
	listCalls    int
}

func newFakeAchievementRepo(achievements ...*models.Achievement) *fakeAchievementRepo {
	return &fakeAchievementRepo{
		achievements: achievements,
		rarities:     make(map[int64]float64),
	}
}

func (f *fakeAchievementRepo) Create(ctx context.Context, achievement *models.Achievement) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	achievement.ID = int64(len(f.achievements) + 1)
	achievement.CreatedAt = time.Now()
	achievement.UpdatedAt = achievement.CreatedAt
	f.achievements = append(f.achievements, achievement)
	return nil
}

func (f *fakeAchievementRepo) GetByID(ctx context.Context, id int64) (*models.Achievement, error) {
	for _, a := range f.achievements {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, nil
}

func (f *fakeAchievementRepo) ListAll(ctx context.Context) ([]*models.Achievement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	return f.achievements, nil
}

func (f *fakeAchievementRepo) ListByEventType(ctx context.Context, eventType models.EventType) ([]*models.Achievement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	var out []*models.Achievement
	for _, a := range f.achievements {
		if a.EventType == eventType {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAchievementRepo) UpdateRarityTx(ctx context.Context, tx *sql.Tx, achievementID int64, rarity float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rarities[achievementID] = rarity
	return nil
}

func (f *fakeAchievementRepo) WithTransaction(ctx context.Context, fn func(*sql.Tx) error) error {
	return fn(nil)
}

type fakeHistoryRepo struct {
	posts       map[int64]int
	comments    map[int64]int
	votes       map[int64]int
	bookmarks   map[int64]int
	communities map[int64]int
	referrals   map[int64]int
	reputation  map[int64]int
	streaks     map[int64]int
	signups     map[int64]time.Time
	err         error
}

func (f *fakeHistoryRepo) counts(m map[int64]int) (map[int64]int, error) {
	if f.err != nil {
		return nil, f.err
	}
	if m == nil {
		return map[int64]int{}, nil
	}
	return m, nil
}

func (f *fakeHistoryRepo) CountPostsByUsers(ctx context.Context, userIDs []int64) (map[int64]int, error) {
	return f.counts(f.posts)
}

func (f *fakeHistoryRepo) CountCommentsByUsers(ctx context.Context, userIDs []int64) (map[int64]int, error) {
	return f.counts(f.comments)
}

func (f *fakeHistoryRepo) CountVotesCastByUsers(ctx context.Context, userIDs []int64) (map[int64]int, error) {
	return f.counts(f.votes)
}

func (f *fakeHistoryRepo) CountBookmarksByUsers(ctx context.Context, userIDs []int64) (map[int64]int, error) {
	return f.counts(f.bookmarks)
}

func (f *fakeHistoryRepo) CountCommunityMembershipsByUsers(ctx context.Context, userIDs []int64) (map[int64]int, error) {
	return f.counts(f.communities)
}

func (f *fakeHistoryRepo) CountReferralsByUsers(ctx context.Context, userIDs []int64) (map[int64]int, error) {
	return f.counts(f.referrals)
}

func (f *fakeHistoryRepo) GetReputationByUsers(ctx context.Context, userIDs []int64) (map[int64]int, error) {
	return f.counts(f.reputation)
}

func (f *fakeHistoryRepo) GetStreakLengthsByUsers(ctx context.Context, userIDs []int64) (map[int64]int, error) {
	return f.counts(f.streaks)
}

func (f *fakeHistoryRepo) GetSignupDatesByUsers(ctx context.Context, userIDs []int64) (map[int64]time.Time, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.signups == nil {
		return map[int64]time.Time{}, nil
	}
	return f.signups, nil
}

// fakeCache is a minimal map-backed cache.Cache.
type fakeCache struct {
	mu      sync.Mutex
	entries map[string]interface{}
	deletes int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]interface{})}
}

func (f *fakeCache) Get(ctx context.Context, key string) (interface{}, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.entries[key]
	return v, ok
}

func (f *fakeCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[key] = value
	return nil
}

func (f *fakeCache) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, key)
	f.deletes++
	return nil
}

func (f *fakeCache) Exists(ctx context.Context, key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.entries[key]
	return ok
}

func (f *fakeCache) Health(ctx context.Context) error { return nil }
func (f *fakeCache) Close() error                     { return nil }

// fakeEventBus records published events and the context they arrived with.
type fakeEventBus struct {
	mu         sync.Mutex
	published  []events.Event
	publishCtx context.Context
}

func (f *fakeEventBus) Publish(ctx context.Context, event events.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, event)
	f.publishCtx = ctx
	return nil
}

func (f *fakeEventBus) PublishAsync(ctx context.Context, event events.Event) error {
	return f.Publish(ctx, event)
}

func (f *fakeEventBus) Subscribe(eventType string, handler events.EventHandler) error { return nil }
func (f *fakeEventBus) Start(ctx context.Context) error                               { return nil }
func (f *fakeEventBus) Stop(ctx context.Context) error                                { return nil }
func (f *fakeEventBus) Stats() *events.EventBusStats                                  { return &events.EventBusStats{} }
