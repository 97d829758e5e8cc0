package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Video is the normalized record for a platform video, keyed by the
// external video ID. The transcript is populated lazily and treated as
// immutable once fetched.
type Video struct {
	ID           uuid.UUID       `json:"id"`
	VideoID      string          `json:"video_id"`
	Title        string          `json:"title"`
	URL          string          `json:"url"`
	ViewCount    int64           `json:"view_count"`
	Transcript   *string         `json:"transcript,omitempty"`
	MetadataJSON json.RawMessage `json:"metadata,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// VideoSummary is what the provider search returns, before a Video row exists.
type VideoSummary struct {
	VideoID      string `json:"video_id"`
	Title        string `json:"title"`
	URL          string `json:"url"`
	ViewCount    int64  `json:"view_count"`
	ThumbnailURL string `json:"thumbnail_url"`
	ChannelTitle string `json:"channel_title"`
	PublishedAt  string `json:"published_at"`
}
