package usecase_test

import (
	"context"
	"encoding/json"
	"time"

	"github.com/stretchr/testify/mock"

	"contentpilot/domain/model"
	"contentpilot/domain/repository"
)

// Mock implementations
type MockJobRepo struct {
	mock.Mock
}

func (m *MockJobRepo) CreateJob(ctx context.Context, userID string, jobType model.JobType, payload json.RawMessage, opts repository.CreateJobOptions) (string, error) {
	args := m.Called(ctx, userID, jobType, payload, opts)
	return args.String(0), args.Error(1)
}

func (m *MockJobRepo) ReserveNextJob(ctx context.Context) (*model.Job, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Job), args.Error(1)
}

func (m *MockJobRepo) UpdateJobStatus(ctx context.Context, jobID string, status model.JobStatus, result json.RawMessage, jobErr *string) error {
	args := m.Called(ctx, jobID, status, result, jobErr)
	return args.Error(0)
}

func (m *MockJobRepo) IncrementJobAttempts(ctx context.Context, jobID string) error {
	args := m.Called(ctx, jobID)
	return args.Error(0)
}

func (m *MockJobRepo) RescheduleJob(ctx context.Context, jobID string, notBefore *time.Time) error {
	args := m.Called(ctx, jobID, notBefore)
	return args.Error(0)
}

func (m *MockJobRepo) DeleteJob(ctx context.Context, jobID string) error {
	args := m.Called(ctx, jobID)
	return args.Error(0)
}

func (m *MockJobRepo) GetJobByID(ctx context.Context, jobID string) (*model.Job, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Job), args.Error(1)
}

type MockPostRepo struct {
	mock.Mock
}

func (m *MockPostRepo) CreatePost(ctx context.Context, post *model.PublishedPost) error {
	args := m.Called(ctx, post)
	return args.Error(0)
}

func (m *MockPostRepo) GetPostByID(ctx context.Context, postID string) (*model.PublishedPost, error) {
	args := m.Called(ctx, postID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PublishedPost), args.Error(1)
}

func (m *MockPostRepo) UpdatePostStatus(ctx context.Context, postID string, status model.PostStatus, platformPostID, platformPostURL, failureReason *string) error {
	args := m.Called(ctx, postID, status, platformPostID, platformPostURL, failureReason)
	return args.Error(0)
}

func (m *MockPostRepo) CancelPost(ctx context.Context, postID string) error {
	args := m.Called(ctx, postID)
	return args.Error(0)
}

func (m *MockPostRepo) DeletePost(ctx context.Context, postID string) error {
	args := m.Called(ctx, postID)
	return args.Error(0)
}

func (m *MockPostRepo) ListStaleMetrics(ctx context.Context, olderThan time.Time, limit int) ([]*model.PublishedPost, error) {
	args := m.Called(ctx, olderThan, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.PublishedPost), args.Error(1)
}

func (m *MockPostRepo) UpdatePostMetrics(ctx context.Context, postID string, metrics *model.PostMetrics) error {
	args := m.Called(ctx, postID, metrics)
	return args.Error(0)
}

type MockConnectionRepo struct {
	mock.Mock
}

func (m *MockConnectionRepo) GetConnection(ctx context.Context, userID string, platform model.Platform) (*model.SocialConnection, error) {
	args := m.Called(ctx, userID, platform)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SocialConnection), args.Error(1)
}

func (m *MockConnectionRepo) UpsertConnection(ctx context.Context, conn *model.SocialConnection) error {
	args := m.Called(ctx, conn)
	return args.Error(0)
}

func (m *MockConnectionRepo) MarkConnectionStatus(ctx context.Context, connectionID string, status model.ConnectionStatus) (bool, error) {
	args := m.Called(ctx, connectionID, status)
	return args.Bool(0), args.Error(1)
}

type MockSignal struct {
	mock.Mock
}

func (m *MockSignal) Notify(ctx context.Context, jobType model.JobType) error {
	args := m.Called(ctx, jobType)
	return args.Error(0)
}
