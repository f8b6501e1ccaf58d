package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"contentpilot/domain/dto"
	"contentpilot/domain/model"
	"contentpilot/domain/repository"
	"contentpilot/infrastructure/clients/instagram"
	"contentpilot/infrastructure/logger"
	"contentpilot/infrastructure/realtime"
)

// InstagramPublisher drives one post through the container publish flow:
// create media container(s), wait until the platform reports them ready, then
// publish exactly once. Progress is streamed to any attached SSE subscriber.
type InstagramPublisher struct {
	postRepo repository.IPublishedPost
	guard    *ConnectionGuard
	client   *instagram.Client
	hub      *realtime.Hub
}

func NewInstagramPublisher(postRepo repository.IPublishedPost, guard *ConnectionGuard, client *instagram.Client, hub *realtime.Hub) *InstagramPublisher {
	return &InstagramPublisher{postRepo: postRepo, guard: guard, client: client, hub: hub}
}

func (p *InstagramPublisher) Handle(ctx context.Context, job *model.Job) (json.RawMessage, error) {
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
	if len(post.MediaURLs) == 0 {
		return nil, p.failPost(ctx, post, model.NewPublishError(model.ErrCodeValidation, "post has no media", nil))
	}

	stream := p.hub.Stream(post.ID)
	defer stream.Close()

	conn, err := p.guard.Ensure(ctx, post.UserID, model.PlatformInstagram)
	if err != nil {
		p.emit(stream, post, "error", "", err)
		return nil, p.failPost(ctx, post, model.ClassifyError(err))
	}

	if err := p.postRepo.UpdatePostStatus(ctx, post.ID, model.PostStatusProcessing, nil, nil, nil); err != nil {
		logger.GetLogger().WithField("post_id", post.ID).Errorf("failed to mark post processing: %v", err)
	}
	p.emit(stream, post, "creating_container", "preparing media", nil)

	containerID, err := p.createContainers(ctx, conn, post, stream)
	if err != nil {
		p.guard.HandlePlatformError(ctx, conn, err)
		p.emit(stream, post, "error", "", err)
		return nil, p.handleFailure(ctx, post, err)
	}

	p.emit(stream, post, "waiting_container", "waiting for media processing", nil)
	if err := p.client.WaitForContainer(ctx, containerID, conn.AccessToken); err != nil {
		p.guard.HandlePlatformError(ctx, conn, err)
		p.emit(stream, post, "error", "", err)
		return nil, p.handleFailure(ctx, post, err)
	}

	p.emit(stream, post, "publishing", "publishing container", nil)
	mediaID, err := p.client.PublishContainer(ctx, conn.AccountID, conn.AccessToken, containerID)
	if err != nil {
		p.guard.HandlePlatformError(ctx, conn, err)
		p.emit(stream, post, "error", "", err)
		return nil, p.handleFailure(ctx, post, err)
	}

	permalink, err := p.client.GetPermalink(ctx, mediaID, conn.AccessToken)
	if err != nil {
		// The post went out; a missing permalink is not worth a retry that
		// would publish it twice.
		logger.GetLogger().WithField("post_id", post.ID).Warnf("permalink fetch failed: %v", err)
		permalink = ""
	}

	var urlPtr *string
	if permalink != "" {
		urlPtr = &permalink
	}
	if err := p.postRepo.UpdatePostStatus(ctx, post.ID, model.PostStatusPublished, &mediaID, urlPtr, nil); err != nil {
		logger.GetLogger().WithField("post_id", post.ID).Errorf("failed to mark post published: %v", err)
	}
	p.emit(stream, post, "published", "post is live", nil)

	result := dto.PublishJobResult{PlatformPostID: mediaID, PlatformPostURL: permalink}
	raw, _ := json.Marshal(result)
	return raw, nil
}

// createContainers builds one container for a single-media post, or one child
// container per item plus a carousel group for multi-media posts. The returned
// id is the container to wait on and publish.
func (p *InstagramPublisher) createContainers(ctx context.Context, conn *model.SocialConnection, post *model.PublishedPost, stream *realtime.Stream) (string, error) {
	if len(post.MediaURLs) == 1 {
		return p.client.CreateContainer(ctx, conn.AccountID, conn.AccessToken, post.MediaURLs[0], post.Caption, false)
	}
	children := make([]string, 0, len(post.MediaURLs))
	for i, mediaURL := range post.MediaURLs {
		p.emit(stream, post, "creating_container", fmt.Sprintf("preparing media %d of %d", i+1, len(post.MediaURLs)), nil)
		childID, err := p.client.CreateContainer(ctx, conn.AccountID, conn.AccessToken, mediaURL, "", true)
		if err != nil {
			return "", err
		}
		if err := p.client.WaitForContainer(ctx, childID, conn.AccessToken); err != nil {
			return "", err
		}
		children = append(children, childID)
	}
	return p.client.CreateGroupContainer(ctx, conn.AccountID, conn.AccessToken, post.Caption, children)
}

// handleFailure records the post-side consequence of a publish error. A
// retryable error puts the post back to pending so the retried job picks it up
// in a consistent state; a terminal one marks it failed with the reason.
func (p *InstagramPublisher) handleFailure(ctx context.Context, post *model.PublishedPost, err error) error {
	perr := model.ClassifyError(err)
	if perr.Retryable() {
		if updErr := p.postRepo.UpdatePostStatus(ctx, post.ID, model.PostStatusPending, nil, nil, nil); updErr != nil {
			logger.GetLogger().WithField("post_id", post.ID).Errorf("failed to reset post to pending: %v", updErr)
		}
		return perr
	}
	return p.failPost(ctx, post, perr)
}

func (p *InstagramPublisher) failPost(ctx context.Context, post *model.PublishedPost, perr *model.PublishError) error {
	reason := perr.Error()
	if updErr := p.postRepo.UpdatePostStatus(ctx, post.ID, model.PostStatusFailed, nil, nil, &reason); updErr != nil {
		logger.GetLogger().WithField("post_id", post.ID).Errorf("failed to mark post failed: %v", updErr)
	}
	return perr
}

func (p *InstagramPublisher) emit(stream *realtime.Stream, post *model.PublishedPost, step, message string, err error) {
	evt := dto.ProgressEvent{
		Type:     "progress",
		PostID:   post.ID,
		Platform: string(model.PlatformInstagram),
		Step:     step,
		Message:  message,
	}
	if err != nil {
		evt.Type = "error"
		evt.Error = model.ClassifyError(err).Error()
	}
	stream.Send(evt)
}
