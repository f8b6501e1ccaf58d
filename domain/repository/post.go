package repository

import (
	"context"
	"time"

	"contentpilot/domain/model"
)

// IPublishedPost persists social publication targets.
type IPublishedPost interface {
	CreatePost(ctx context.Context, post *model.PublishedPost) error
	GetPostByID(ctx context.Context, postID string) (*model.PublishedPost, error)
	// UpdatePostStatus moves the post through its lifecycle; platform ids and
	// failure reason travel with the status change.
	UpdatePostStatus(ctx context.Context, postID string, status model.PostStatus, platformPostID, platformPostURL, failureReason *string) error
	// CancelPost soft-deletes; advisory only, an in-flight job is not preempted.
	CancelPost(ctx context.Context, postID string) error
	DeletePost(ctx context.Context, postID string) error
	// ListStaleMetrics returns published posts whose metrics are older than
	// the refresh interval, oldest first.
	ListStaleMetrics(ctx context.Context, olderThan time.Time, limit int) ([]*model.PublishedPost, error)
	UpdatePostMetrics(ctx context.Context, postID string, metrics *model.PostMetrics) error
}
