package channels

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/viewtube/viewtube/internal/apperror"
)

// ChannelRepository defines the read-only data access contract for the
// aggregated views. All SQL lives in the concrete implementation.
type ChannelRepository interface {
	GetChannelProfile(ctx context.Context, username, viewerID string) (*ChannelProfile, error)
	GetWatchHistory(ctx context.Context, userID string) ([]EnrichedVideo, error)
}

// channelRepository implements ChannelRepository with hand-written MariaDB
// queries. The aggregations run as single statements so counts and the
// subscribed flag come from one consistent snapshot.
type channelRepository struct {
	db *sql.DB
}

// NewChannelRepository creates a new channel repository backed by the given DB pool.
func NewChannelRepository(db *sql.DB) ChannelRepository {
	return &channelRepository{db: db}
}

// GetChannelProfile locates a channel by username and computes its
// subscription aggregates in one query: incoming edge count, outgoing edge
// count, and whether the viewer holds an incoming edge.
// Returns apperror.NotFound if no user has this username.
func (r *channelRepository) GetChannelProfile(ctx context.Context, username, viewerID string) (*ChannelProfile, error) {
	query := `SELECT u.id, u.username, u.email, u.full_name, u.avatar_url, u.cover_url,
	                 (SELECT COUNT(*) FROM subscriptions s WHERE s.channel_id = u.id)    AS subscribers_count,
	                 (SELECT COUNT(*) FROM subscriptions s WHERE s.subscriber_id = u.id) AS subscribed_to_count,
	                 EXISTS(SELECT 1 FROM subscriptions s
	                        WHERE s.channel_id = u.id AND s.subscriber_id = ?)           AS is_subscribed
	          FROM users u WHERE u.username = ?`

	profile := &ChannelProfile{}
	err := r.db.QueryRowContext(ctx, query, viewerID, username).Scan(
		&profile.ID,
		&profile.Username,
		&profile.Email,
		&profile.FullName,
		&profile.AvatarURL,
		&profile.CoverURL,
		&profile.SubscribersCount,
		&profile.ChannelsSubscribedToCount,
		&profile.IsSubscribed,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("channel does not exist")
	}
	if err != nil {
		return nil, fmt.Errorf("querying channel profile: %w", err)
	}

	return profile, nil
}

// GetWatchHistory resolves a user's watch log into full video records, each
// joined with its owner's public profile. Rows come back in insertion order
// (the watch_history auto-increment id).
func (r *channelRepository) GetWatchHistory(ctx context.Context, userID string) ([]EnrichedVideo, error) {
	query := `SELECT v.id, v.title, v.description, v.video_url, v.thumbnail_url,
	                 v.duration_secs, v.views, v.created_at,
	                 o.username, o.full_name, o.avatar_url
	          FROM watch_history wh
	          JOIN videos v ON v.id = wh.video_id
	          JOIN users o ON o.id = v.owner_id
	          WHERE wh.user_id = ?
	          ORDER BY wh.id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("querying watch history: %w", err)
	}
	defer rows.Close()

	var history []EnrichedVideo
	for rows.Next() {
		var v EnrichedVideo
		if err := rows.Scan(
			&v.ID, &v.Title, &v.Description, &v.VideoURL, &v.ThumbnailURL,
			&v.DurationSecs, &v.Views, &v.CreatedAt,
			&v.Owner.Username, &v.Owner.FullName, &v.Owner.AvatarURL,
		); err != nil {
			return nil, fmt.Errorf("scanning watch history row: %w", err)
		}
		history = append(history, v)
	}

	return history, rows.Err()
}
