package channels

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// profileCacheTTL keeps the cached aggregate fresh enough that subscriber
// counts lag by seconds at most.
const profileCacheTTL = 30 * time.Second

// ChannelService exposes the aggregated read operations.
type ChannelService interface {
	GetChannelProfile(ctx context.Context, username, viewerID string) (*ChannelProfile, error)
	GetWatchHistory(ctx context.Context, userID string) ([]EnrichedVideo, error)
}

type channelService struct {
	repo  ChannelRepository
	cache *redis.Client
}

// NewChannelService creates a new channel service. The cache client may be
// nil, in which case every profile read hits the database.
func NewChannelService(repo ChannelRepository, cache *redis.Client) ChannelService {
	return &channelService{repo: repo, cache: cache}
}

// GetChannelProfile returns the aggregated profile for a channel as seen by
// the given viewer. Results are cached per (channel, viewer) pair since the
// subscribed flag is viewer-specific.
func (s *channelService) GetChannelProfile(ctx context.Context, username, viewerID string) (*ChannelProfile, error) {
	// Usernames are stored lower-case; normalize before lookup and caching.
	username = strings.ToLower(strings.TrimSpace(username))

	key := fmt.Sprintf("channel:%s:viewer:%s", username, viewerID)

	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, key).Bytes(); err == nil {
			profile := &ChannelProfile{}
			if err := json.Unmarshal(raw, profile); err == nil {
				return profile, nil
			}
			// Corrupt entry; fall through to the database and overwrite it.
		}
	}

	profile, err := s.repo.GetChannelProfile(ctx, username, viewerID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		raw, err := json.Marshal(profile)
		if err == nil {
			if err := s.cache.Set(ctx, key, raw, profileCacheTTL).Err(); err != nil {
				slog.Warn("failed to cache channel profile", "channel", username, "error", err)
			}
		}
	}

	return profile, nil
}

// GetWatchHistory returns the user's watch history, oldest first, with each
// video's owner collapsed to the public fields.
func (s *channelService) GetWatchHistory(ctx context.Context, userID string) ([]EnrichedVideo, error) {
	return s.repo.GetWatchHistory(ctx, userID)
}
