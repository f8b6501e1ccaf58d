package usecase_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"contentpilot/domain/model"
	"contentpilot/infrastructure/clients/facebook"
	"contentpilot/infrastructure/clients/instagram"
	"contentpilot/usecase"
)

func publishedPost(id string, platform model.Platform, platformPostID string) *model.PublishedPost {
	return &model.PublishedPost{
		ID:             id,
		UserID:         "user-1",
		Platform:       platform,
		Status:         model.PostStatusPublished,
		PlatformPostID: &platformPostID,
	}
}

func TestMetricsRefreshSweep(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/media-1/insights", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[
			{"name":"impressions","values":[{"value":120}]},
			{"name":"reach","values":[{"value":90}]},
			{"name":"likes","values":[{"value":12}]}
		]}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	igClient := instagram.NewClient(&instagram.Config{BaseURL: srv.URL, PollInterval: time.Millisecond})
	fbClient := facebook.NewClient(&facebook.Config{BaseURL: srv.URL})
	postRepo := new(MockPostRepo)
	connRepo := new(MockConnectionRepo)
	refresher := usecase.NewMetricsRefresher(postRepo, usecase.NewConnectionGuard(connRepo), igClient, fbClient, time.Hour)

	stale := []*model.PublishedPost{publishedPost("post-1", model.PlatformInstagram, "media-1")}
	postRepo.On("ListStaleMetrics", mock.Anything, mock.AnythingOfType("time.Time"), 20).Return(stale, nil).Once()
	connRepo.On("GetConnection", mock.Anything, "user-1", model.PlatformInstagram).
		Return(activeConnection(90*24*time.Hour), nil).Once()
	postRepo.On("UpdatePostMetrics", mock.Anything, "post-1",
		mock.MatchedBy(func(m *model.PostMetrics) bool {
			return m.Impressions == 120 && m.Reach == 90 && m.Likes == 12
		})).Return(nil).Once()

	job := &model.Job{ID: "job-3", Type: model.JobTypeRefreshMetrics, Payload: json.RawMessage(`{}`)}
	result, err := refresher.Handle(context.Background(), job)
	require.Nil(t, err)
	assert.Contains(t, string(result), `"refreshed":1`)
	postRepo.AssertExpectations(t)
}

func TestMetricsRefreshSkipsBrokenConnections(t *testing.T) {
	igClient := instagram.NewClient(&instagram.Config{BaseURL: "http://127.0.0.1:1"})
	fbClient := facebook.NewClient(&facebook.Config{BaseURL: "http://127.0.0.1:1"})
	postRepo := new(MockPostRepo)
	connRepo := new(MockConnectionRepo)
	refresher := usecase.NewMetricsRefresher(postRepo, usecase.NewConnectionGuard(connRepo), igClient, fbClient, time.Hour)

	stale := []*model.PublishedPost{
		publishedPost("post-1", model.PlatformInstagram, "media-1"),
		publishedPost("post-2", model.PlatformFacebook, "page-1_9"),
	}
	postRepo.On("ListStaleMetrics", mock.Anything, mock.AnythingOfType("time.Time"), 5).Return(stale, nil).Once()
	// First user has no connection anymore; second errors at transport level.
	connRepo.On("GetConnection", mock.Anything, "user-1", model.PlatformInstagram).Return(nil, nil).Once()
	connRepo.On("GetConnection", mock.Anything, "user-1", model.PlatformFacebook).
		Return(fbConnection(90*24*time.Hour), nil).Once()

	job := &model.Job{ID: "job-3", Type: model.JobTypeRefreshMetrics, Payload: json.RawMessage(`{"batch_size":5}`)}
	result, err := refresher.Handle(context.Background(), job)
	require.Nil(t, err)
	assert.Contains(t, string(result), `"skipped":2`)
	postRepo.AssertNotCalled(t, "UpdatePostMetrics", mock.Anything, mock.Anything, mock.Anything)
}

func TestMetricsRefreshNoStalePosts(t *testing.T) {
	postRepo := new(MockPostRepo)
	refresher := usecase.NewMetricsRefresher(postRepo, usecase.NewConnectionGuard(new(MockConnectionRepo)), nil, nil, time.Hour)
	postRepo.On("ListStaleMetrics", mock.Anything, mock.AnythingOfType("time.Time"), 20).
		Return([]*model.PublishedPost{}, nil).Once()

	job := &model.Job{ID: "job-3", Type: model.JobTypeRefreshMetrics}
	result, err := refresher.Handle(context.Background(), job)
	require.Nil(t, err)
	assert.Contains(t, string(result), `"refreshed":0`)
}
