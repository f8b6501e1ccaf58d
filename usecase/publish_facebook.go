package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"contentpilot/domain/dto"
	"contentpilot/domain/model"
	"contentpilot/domain/repository"
	"contentpilot/infrastructure/clients/facebook"
	"contentpilot/infrastructure/logger"
	"contentpilot/infrastructure/realtime"
)

// FacebookPublisher posts to a page feed. A post with a future scheduled_for
// is handed to the platform's native scheduler in one call instead of being
// held in our queue until the publish time.
type FacebookPublisher struct {
	postRepo repository.IPublishedPost
	guard    *ConnectionGuard
	client   *facebook.Client
	hub      *realtime.Hub
	now      func() time.Time
}

func NewFacebookPublisher(postRepo repository.IPublishedPost, guard *ConnectionGuard, client *facebook.Client, hub *realtime.Hub) *FacebookPublisher {
	return &FacebookPublisher{postRepo: postRepo, guard: guard, client: client, hub: hub, now: time.Now}
}

func (p *FacebookPublisher) Handle(ctx context.Context, job *model.Job) (json.RawMessage, error) {
	var payload dto.PublishJobPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return nil, model.NewPublishError(model.ErrCodeValidation, "malformed job payload", err)
	}
	post, err := p.postRepo.GetPostByID(ctx, payload.PostID)
	if err != nil {
		return nil, model.NewPublishError(model.ErrCodeNetworkError, "post lookup failed", err)
	}
	if post == nil {
		return nil, model.NewPublishError(model.ErrCodeValidation,
			fmt.Sprintf("post %s not found", payload.PostID), nil)
	}
	if post.Status == model.PostStatusCancelled {
		logger.GetLogger().WithField("post_id", post.ID).Info("post cancelled, skipping publish")
		return json.RawMessage(`{"skipped":"cancelled"}`), nil
	}
	if post.Status == model.PostStatusPublished {
		return json.RawMessage(`{"skipped":"already_published"}`), nil
	}

	stream := p.hub.Stream(post.ID)
	defer stream.Close()

	// Schedule validation is local; a post outside the platform's window must
	// never cost a network round trip.
	scheduled := post.ScheduledFor != nil && post.ScheduledFor.After(p.now())
	if scheduled {
		if err := facebook.ValidateSchedule(*post.ScheduledFor, p.now()); err != nil {
			p.emit(stream, post, "error", "", err)
			return nil, p.failPost(ctx, post, model.ClassifyError(err))
		}
	}

	conn, err := p.guard.Ensure(ctx, post.UserID, model.PlatformFacebook)
	if err != nil {
		p.emit(stream, post, "error", "", err)
		return nil, p.failPost(ctx, post, model.ClassifyError(err))
	}

	if err := p.postRepo.UpdatePostStatus(ctx, post.ID, model.PostStatusProcessing, nil, nil, nil); err != nil {
		logger.GetLogger().WithField("post_id", post.ID).Errorf("failed to mark post processing: %v", err)
	}
	p.emit(stream, post, "publishing", "sending to page", nil)

	req := facebook.PublishRequest{Message: post.Caption}
	if len(post.MediaURLs) > 0 {
		req.PhotoURL = post.MediaURLs[0]
	}
	if scheduled {
		req.ScheduledFor = post.ScheduledFor
	}

	postID, err := p.client.PublishToPage(ctx, conn.AccountID, conn.AccessToken, req)
	if err != nil {
		p.guard.HandlePlatformError(ctx, conn, err)
		p.emit(stream, post, "error", "", err)
		return nil, p.handleFailure(ctx, post, err)
	}

	postURL := fmt.Sprintf("https://www.facebook.com/%s", postID)
	finalStatus := model.PostStatusPublished
	if scheduled {
		// The platform holds the post until scheduled_for; our row records
		// that the handoff succeeded.
		finalStatus = model.PostStatusScheduled
	}
	if err := p.postRepo.UpdatePostStatus(ctx, post.ID, finalStatus, &postID, &postURL, nil); err != nil {
		logger.GetLogger().WithField("post_id", post.ID).Errorf("failed to mark post %s: %v", finalStatus, err)
	}
	p.emit(stream, post, string(finalStatus), "page accepted the post", nil)

	result := dto.PublishJobResult{PlatformPostID: postID, PlatformPostURL: postURL}
	raw, _ := json.Marshal(result)
	return raw, nil
}

func (p *FacebookPublisher) handleFailure(ctx context.Context, post *model.PublishedPost, err error) error {
	perr := model.ClassifyError(err)
	if perr.Retryable() {
		if updErr := p.postRepo.UpdatePostStatus(ctx, post.ID, model.PostStatusPending, nil, nil, nil); updErr != nil {
			logger.GetLogger().WithField("post_id", post.ID).Errorf("failed to reset post to pending: %v", updErr)
		}
		return perr
	}
	return p.failPost(ctx, post, perr)
}

func (p *FacebookPublisher) failPost(ctx context.Context, post *model.PublishedPost, perr *model.PublishError) error {
	reason := perr.Error()
	if updErr := p.postRepo.UpdatePostStatus(ctx, post.ID, model.PostStatusFailed, nil, nil, &reason); updErr != nil {
		logger.GetLogger().WithField("post_id", post.ID).Errorf("failed to mark post failed: %v", updErr)
	}
	return perr
}

func (p *FacebookPublisher) emit(stream *realtime.Stream, post *model.PublishedPost, step, message string, err error) {
	evt := dto.ProgressEvent{
		Type:     "progress",
		PostID:   post.ID,
		Platform: string(model.PlatformFacebook),
		Step:     step,
		Message:  message,
	}
	if err != nil {
		evt.Type = "error"
		evt.Error = model.ClassifyError(err).Error()
	}
	stream.Send(evt)
}
