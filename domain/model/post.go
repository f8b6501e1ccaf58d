package model

import "time"

type Platform string

const (
	PlatformInstagram Platform = "instagram"
	PlatformFacebook  Platform = "facebook"
)

func (p Platform) Valid() bool {
	return p == PlatformInstagram || p == PlatformFacebook
}

type PostStatus string

const (
	PostStatusScheduled  PostStatus = "scheduled"
	PostStatusPending    PostStatus = "pending"
	PostStatusProcessing PostStatus = "processing"
	PostStatusPublished  PostStatus = "published"
	PostStatusFailed     PostStatus = "failed"
	PostStatusCancelled  PostStatus = "cancelled"
)

// PostMetrics is the platform engagement snapshot fetched by the metrics job.
type PostMetrics struct {
	Impressions int64 `json:"impressions"`
	Reach       int64 `json:"reach"`
	Likes       int64 `json:"likes"`
	Comments    int64 `json:"comments"`
	Shares      int64 `json:"shares"`
}

// PublishedPost is a social-platform publication target. It is mutated only by
// the worker executing its publish job, plus the metrics-refresh job which
// touches Metrics/MetricsLastFetchedAt under the refresh-interval gate.
type PublishedPost struct {
	ID                   string       `json:"id"`
	UserID               string       `json:"user_id"`
	Platform             Platform     `json:"platform"`
	Status               PostStatus   `json:"status"`
	Caption              string       `json:"caption"`
	MediaURLs            []string     `json:"media_urls"`
	PlatformPostID       *string      `json:"platform_post_id,omitempty"`
	PlatformPostURL      *string      `json:"platform_post_url,omitempty"`
	ScheduledFor         *time.Time   `json:"scheduled_for,omitempty"`
	FailureReason        *string      `json:"failure_reason,omitempty"`
	Metrics              *PostMetrics `json:"metrics,omitempty"`
	MetricsLastFetchedAt *time.Time   `json:"metrics_last_fetched_at,omitempty"`
	CreatedAt            time.Time    `json:"created_at"`
	UpdatedAt            time.Time    `json:"updated_at"`
}
