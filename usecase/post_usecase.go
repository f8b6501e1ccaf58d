package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"contentpilot/domain/dto"
	"contentpilot/domain/model"
	"contentpilot/domain/repository"
	"contentpilot/infrastructure/logger"
	"contentpilot/infrastructure/notify"
)

var (
	ErrPostNotFound = errors.New("post not found")
	ErrNotOwner     = errors.New("post belongs to another user")
)

type IPostUsecase interface {
	// CreatePost persists the post and enqueues its publish job. Both happen
	// or neither does; a job insert failure rolls the post back.
	CreatePost(ctx context.Context, userID string, req dto.CreatePostRequest) (*model.PublishedPost, string, error)
	GetPost(ctx context.Context, userID, postID string) (*model.PublishedPost, error)
	// CancelPost flags the post cancelled. Advisory: a worker already past
	// the platform call will still finish publishing.
	CancelPost(ctx context.Context, userID, postID string) error
}

type postUsecase struct {
	postRepo repository.IPublishedPost
	jobRepo  repository.IJob
	signal   notify.ISignal // nil when no accelerator transport is configured
	now      func() time.Time
}

func NewPostUsecase(postRepo repository.IPublishedPost, jobRepo repository.IJob, signal notify.ISignal) IPostUsecase {
	return &postUsecase{postRepo: postRepo, jobRepo: jobRepo, signal: signal, now: time.Now}
}

func (u *postUsecase) CreatePost(ctx context.Context, userID string, req dto.CreatePostRequest) (*model.PublishedPost, string, error) {
	platform := model.Platform(req.Platform)
	if !platform.Valid() {
		return nil, "", model.NewPublishError(model.ErrCodeValidation, "unsupported platform "+req.Platform, nil)
	}
	if len(req.MediaURLs) == 0 && req.Caption == "" {
		return nil, "", model.NewPublishError(model.ErrCodeValidation, "post needs media or a caption", nil)
	}
	if platform == model.PlatformInstagram && len(req.MediaURLs) == 0 {
		return nil, "", model.NewPublishError(model.ErrCodeValidation, "instagram posts require media", nil)
	}
	if req.ScheduledFor != nil && !req.ScheduledFor.After(u.now()) {
		return nil, "", model.NewPublishError(model.ErrCodeValidation, "scheduled_for must be in the future", nil)
	}

	status := model.PostStatusPending
	if req.ScheduledFor != nil {
		status = model.PostStatusScheduled
	}
	post := &model.PublishedPost{
		ID:           uuid.NewString(),
		UserID:       userID,
		Platform:     platform,
		Status:       status,
		Caption:      req.Caption,
		MediaURLs:    req.MediaURLs,
		ScheduledFor: req.ScheduledFor,
	}
	if err := u.postRepo.CreatePost(ctx, post); err != nil {
		return nil, "", err
	}

	jobType := model.JobTypePublishInstagram
	if platform == model.PlatformFacebook {
		jobType = model.JobTypePublishFacebook
	}
	payload, _ := json.Marshal(dto.PublishJobPayload{PostID: post.ID})
	opts := repository.CreateJobOptions{Priority: req.Priority}
	// Facebook schedules natively, so its job runs right away even for a
	// future post. Instagram has no scheduler; the job itself waits.
	if platform == model.PlatformInstagram && req.ScheduledFor != nil {
		opts.ScheduledFor = req.ScheduledFor
	}
	jobID, err := u.jobRepo.CreateJob(ctx, userID, jobType, payload, opts)
	if err != nil {
		if delErr := u.postRepo.DeletePost(ctx, post.ID); delErr != nil {
			logger.GetLogger().WithField("post_id", post.ID).
				Errorf("rollback of orphaned post failed: %v", delErr)
		}
		return nil, "", model.NewPublishError(model.ErrCodeJobCreationFailed, "could not enqueue publish job", err)
	}

	if u.signal != nil {
		// Best effort. The polling loop picks the job up regardless.
		if nErr := u.signal.Notify(ctx, jobType); nErr != nil {
			logger.GetLogger().Warnf("wake signal failed: %v", nErr)
		}
	}
	return post, jobID, nil
}

func (u *postUsecase) GetPost(ctx context.Context, userID, postID string) (*model.PublishedPost, error) {
	post, err := u.postRepo.GetPostByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, ErrPostNotFound
	}
	if post.UserID != userID {
		return nil, ErrNotOwner
	}
	return post, nil
}

func (u *postUsecase) CancelPost(ctx context.Context, userID, postID string) error {
	post, err := u.GetPost(ctx, userID, postID)
	if err != nil {
		return err
	}
	return u.postRepo.CancelPost(ctx, post.ID)
}
