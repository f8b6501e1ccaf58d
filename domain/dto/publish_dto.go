package dto

import "time"

// CreatePostRequest schedules (or immediately publishes) a social post.
// Media and caption requirements vary per platform, so the usecase validates
// them instead of the binding layer.
type CreatePostRequest struct {
	Platform     string     `json:"platform" binding:"required"`
	Caption      string     `json:"caption"`
	MediaURLs    []string   `json:"media_urls"`
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
	Priority     int        `json:"priority"`
}

// PublishJobPayload is the payload of both publish job types; it references the
// PublishedPost the handler will drive to a terminal status.
type PublishJobPayload struct {
	PostID string `json:"post_id"`
}

// MetricsRefreshPayload bounds one metrics-refresh sweep.
type MetricsRefreshPayload struct {
	BatchSize int `json:"batch_size"`
}

// PublishJobResult is stored in the job's result column on success.
type PublishJobResult struct {
	PlatformPostID  string `json:"platform_post_id"`
	PlatformPostURL string `json:"platform_post_url,omitempty"`
}

// ProgressEvent is one frame on the progress streaming channel.
type ProgressEvent struct {
	Type     string `json:"type"`
	PostID   string `json:"post_id"`
	Platform string `json:"platform,omitempty"`
	Status   string `json:"status,omitempty"`
	Step     string `json:"step,omitempty"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}
