package usecase

import (
	"context"
	"encoding/json"
	"time"

	"contentpilot/domain/dto"
	"contentpilot/domain/model"
	"contentpilot/domain/repository"
	"contentpilot/infrastructure/clients/facebook"
	"contentpilot/infrastructure/clients/instagram"
	"contentpilot/infrastructure/logger"
)

const defaultMetricsBatchSize = 20

// MetricsRefresher sweeps published posts whose engagement snapshot is older
// than the refresh interval and pulls fresh numbers from each platform. A
// post whose connection is unusable is skipped, not failed; the next sweep
// retries it.
type MetricsRefresher struct {
	postRepo        repository.IPublishedPost
	guard           *ConnectionGuard
	instagramClient *instagram.Client
	facebookClient  *facebook.Client
	refreshInterval time.Duration
	now             func() time.Time
}

func NewMetricsRefresher(postRepo repository.IPublishedPost, guard *ConnectionGuard, ig *instagram.Client, fb *facebook.Client, refreshInterval time.Duration) *MetricsRefresher {
	if refreshInterval <= 0 {
		refreshInterval = time.Hour
	}
	return &MetricsRefresher{
		postRepo:        postRepo,
		guard:           guard,
		instagramClient: ig,
		facebookClient:  fb,
		refreshInterval: refreshInterval,
		now:             time.Now,
	}
}

func (m *MetricsRefresher) Handle(ctx context.Context, job *model.Job) (json.RawMessage, error) {
	var payload dto.MetricsRefreshPayload
	if len(job.Payload) > 0 {
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return nil, model.NewPublishError(model.ErrCodeValidation, "malformed job payload", err)
		}
	}
	batchSize := payload.BatchSize
	if batchSize <= 0 {
		batchSize = defaultMetricsBatchSize
	}

	olderThan := m.now().Add(-m.refreshInterval)
	posts, err := m.postRepo.ListStaleMetrics(ctx, olderThan, batchSize)
	if err != nil {
		return nil, model.NewPublishError(model.ErrCodeNetworkError, "stale metrics lookup failed", err)
	}

	refreshed, skipped := 0, 0
	for _, post := range posts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if post.PlatformPostID == nil {
			skipped++
			continue
		}
		if err := m.refreshOne(ctx, post); err != nil {
			logger.GetLogger().WithField("post_id", post.ID).
				Warnf("metrics refresh skipped: %v", err)
			skipped++
			continue
		}
		refreshed++
	}

	result, _ := json.Marshal(map[string]int{"refreshed": refreshed, "skipped": skipped})
	return result, nil
}

func (m *MetricsRefresher) refreshOne(ctx context.Context, post *model.PublishedPost) error {
	conn, err := m.guard.Ensure(ctx, post.UserID, post.Platform)
	if err != nil {
		return err
	}
	var metrics *model.PostMetrics
	switch post.Platform {
	case model.PlatformInstagram:
		metrics, err = m.instagramClient.GetMediaMetrics(ctx, *post.PlatformPostID, conn.AccessToken)
	case model.PlatformFacebook:
		metrics, err = m.facebookClient.GetPostMetrics(ctx, *post.PlatformPostID, conn.AccessToken)
	default:
		return model.NewPublishError(model.ErrCodeValidation, "unknown platform "+string(post.Platform), nil)
	}
	if err != nil {
		m.guard.HandlePlatformError(ctx, conn, err)
		return err
	}
	return m.postRepo.UpdatePostMetrics(ctx, post.ID, metrics)
}
