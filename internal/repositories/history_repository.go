// file: internal/repositories/history_repository.go
package repositories

import (
	"context"
	"fmt"
	"questhub/internal/database"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// historyRepository implements HistoryRepository: the batched read-only query
// catalog the retroactive sync engine draws from. One query per event type
// across the whole input user set, never one query per user.
type historyRepository struct {
	*BaseRepository
}

// NewHistoryRepository creates a new historical-data repository
func NewHistoryRepository(db *database.Manager, logger *zap.Logger) HistoryRepository {
	return &historyRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

// CountPostsByUsers counts published posts per user.
func (r *historyRepository) CountPostsByUsers(ctx context.Context, userIDs []int64) (map[int64]int, error) {
	query := `
		SELECT user_id, COUNT(*)
		FROM posts
		WHERE user_id = ANY($1) AND status = 'published'
		GROUP BY user_id`

	rows, err := r.QueryContext(ctx, query, pq.Array(userIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to count posts by users: %w", err)
	}
	return scanUserCounts(rows)
}

// CountCommentsByUsers counts comments per user.
func (r *historyRepository) CountCommentsByUsers(ctx context.Context, userIDs []int64) (map[int64]int, error) {
	query := `
		SELECT user_id, COUNT(*)
		FROM comments
		WHERE user_id = ANY($1)
		GROUP BY user_id`

	rows, err := r.QueryContext(ctx, query, pq.Array(userIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to count comments by users: %w", err)
	}
	return scanUserCounts(rows)
}

// CountVotesCastByUsers counts votes each user has cast on posts and comments.
func (r *historyRepository) CountVotesCastByUsers(ctx context.Context, userIDs []int64) (map[int64]int, error) {
	query := `
		SELECT user_id, COUNT(*)
		FROM votes
		WHERE user_id = ANY($1)
		GROUP BY user_id`

	rows, err := r.QueryContext(ctx, query, pq.Array(userIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to count votes cast by users: %w", err)
	}
	return scanUserCounts(rows)
}

// CountBookmarksByUsers counts saved posts per user.
func (r *historyRepository) CountBookmarksByUsers(ctx context.Context, userIDs []int64) (map[int64]int, error) {
	query := `
		SELECT user_id, COUNT(*)
		FROM bookmarks
		WHERE user_id = ANY($1)
		GROUP BY user_id`

	rows, err := r.QueryContext(ctx, query, pq.Array(userIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to count bookmarks by users: %w", err)
	}
	return scanUserCounts(rows)
}

// CountCommunityMembershipsByUsers counts active community memberships per user.
func (r *historyRepository) CountCommunityMembershipsByUsers(ctx context.Context, userIDs []int64) (map[int64]int, error) {
	query := `
		SELECT user_id, COUNT(*)
		FROM community_members
		WHERE user_id = ANY($1) AND left_at IS NULL
		GROUP BY user_id`

	rows, err := r.QueryContext(ctx, query, pq.Array(userIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to count community memberships by users: %w", err)
	}
	return scanUserCounts(rows)
}

// CountReferralsByUsers counts completed referrals credited to each user.
func (r *historyRepository) CountReferralsByUsers(ctx context.Context, userIDs []int64) (map[int64]int, error) {
	query := `
		SELECT referrer_id, COUNT(*)
		FROM referrals
		WHERE referrer_id = ANY($1) AND completed_at IS NOT NULL
		GROUP BY referrer_id`

	rows, err := r.QueryContext(ctx, query, pq.Array(userIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to count referrals by users: %w", err)
	}
	return scanUserCounts(rows)
}

// GetReputationByUsers reads current reputation totals. Reputation is
// cumulative state, not a count of events.
func (r *historyRepository) GetReputationByUsers(ctx context.Context, userIDs []int64) (map[int64]int, error) {
	query := `
		SELECT user_id, reputation_points
		FROM user_stats
		WHERE user_id = ANY($1)`

	rows, err := r.QueryContext(ctx, query, pq.Array(userIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to get reputation by users: %w", err)
	}
	return scanUserCounts(rows)
}

// GetStreakLengthsByUsers reads current consecutive-day activity streaks.
func (r *historyRepository) GetStreakLengthsByUsers(ctx context.Context, userIDs []int64) (map[int64]int, error) {
	query := `
		SELECT user_id, current_streak
		FROM user_stats
		WHERE user_id = ANY($1)`

	rows, err := r.QueryContext(ctx, query, pq.Array(userIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to get streak lengths by users: %w", err)
	}
	return scanUserCounts(rows)
}

// GetSignupDatesByUsers reads account creation timestamps. The anniversary
// source converts these to whole elapsed months.
func (r *historyRepository) GetSignupDatesByUsers(ctx context.Context, userIDs []int64) (map[int64]time.Time, error) {
	query := `
		SELECT id, created_at
		FROM users
		WHERE id = ANY($1)`

	rows, err := r.QueryContext(ctx, query, pq.Array(userIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to get signup dates by users: %w", err)
	}
	defer rows.Close()

	dates := make(map[int64]time.Time)
	for rows.Next() {
		var userID int64
		var createdAt time.Time
		if err := rows.Scan(&userID, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan signup date row: %w", err)
		}
		dates[userID] = createdAt
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate signup date rows: %w", err)
	}
	return dates, nil
}
