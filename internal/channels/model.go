// Package channels builds derived read views over user, subscription, and
// video data: the public channel profile (subscriber counts plus the
// viewer-relative subscribed flag) and the enriched watch history.
// Subscriptions and videos are owned by other services; this package only
// reads them.
package channels

import (
	"time"
)

// ChannelProfile is the public view of a user's channel. Only public-safe
// fields are projected; credential fields never reach this struct.
type ChannelProfile struct {
	ID                        string  `json:"id"`
	Username                  string  `json:"username"`
	Email                     string  `json:"email"`
	FullName                  string  `json:"fullname"`
	AvatarURL                 string  `json:"avatar"`
	CoverURL                  *string `json:"coverImage,omitempty"`
	SubscribersCount          int64   `json:"subscribersCount"`
	ChannelsSubscribedToCount int64   `json:"channelsSubscribedToCount"`
	IsSubscribed              bool    `json:"isSubscribed"`
}

// VideoOwner is the collapsed public profile of a video's uploader,
// embedded in each watch-history entry.
type VideoOwner struct {
	Username  string `json:"username"`
	FullName  string `json:"fullname"`
	AvatarURL string `json:"avatar"`
}

// EnrichedVideo is a watch-history entry: the video record joined with its
// owner's public profile.
type EnrichedVideo struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	VideoURL     string     `json:"videoFile"`
	ThumbnailURL string     `json:"thumbnail"`
	DurationSecs int        `json:"duration"`
	Views        int64      `json:"views"`
	CreatedAt    time.Time  `json:"created_at"`
	Owner        VideoOwner `json:"owner"`
}
