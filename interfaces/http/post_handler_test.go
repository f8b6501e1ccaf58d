package http_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"contentpilot/domain/dto"
	"contentpilot/domain/model"
	"contentpilot/infrastructure/realtime"
	httpHandler "contentpilot/interfaces/http"
	"contentpilot/usecase"
)

type MockPostUsecase struct {
	mock.Mock
}

func (m *MockPostUsecase) CreatePost(ctx context.Context, userID string, req dto.CreatePostRequest) (*model.PublishedPost, string, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).(*model.PublishedPost), args.String(1), args.Error(2)
}

func (m *MockPostUsecase) GetPost(ctx context.Context, userID, postID string) (*model.PublishedPost, error) {
	args := m.Called(ctx, userID, postID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PublishedPost), args.Error(1)
}

func (m *MockPostUsecase) CancelPost(ctx context.Context, userID, postID string) error {
	args := m.Called(ctx, userID, postID)
	return args.Error(0)
}

func testRouter(uc usecase.IPostUsecase) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := httpHandler.NewPostHandler(uc, realtime.NewProgressHub(time.Minute))
	router := gin.New()
	router.Use(func(c *gin.Context) { c.Set("user_id", "user-1") })
	router.POST("/api/posts", handler.CreatePost)
	router.GET("/api/posts/:postId", handler.GetPost)
	router.POST("/api/posts/:postId/cancel", handler.CancelPost)
	return router
}

func TestCreatePostEndpoint(t *testing.T) {
	uc := new(MockPostUsecase)
	router := testRouter(uc)

	uc.On("CreatePost", mock.Anything, "user-1", mock.MatchedBy(func(req dto.CreatePostRequest) bool {
		return req.Platform == "instagram" && len(req.MediaURLs) == 1
	})).Return(&model.PublishedPost{ID: "post-1", Status: model.PostStatusPending}, "job-1", nil).Once()

	w := httptest.NewRecorder()
	body := `{"platform":"instagram","caption":"hi","media_urls":["https://cdn.example.com/a.jpg"]}`
	req := httptest.NewRequest("POST", "/api/posts", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "job-1")
	uc.AssertExpectations(t)
}

func TestCreatePostEndpointAcceptsCaptionOnlyPost(t *testing.T) {
	uc := new(MockPostUsecase)
	router := testRouter(uc)

	// Facebook accepts text-only posts, so the binding layer must not demand
	// media; per-platform rules live in the usecase.
	uc.On("CreatePost", mock.Anything, "user-1", mock.MatchedBy(func(req dto.CreatePostRequest) bool {
		return req.Platform == "facebook" && len(req.MediaURLs) == 0 && req.Caption == "status update"
	})).Return(&model.PublishedPost{ID: "post-2", Status: model.PostStatusPending}, "job-2", nil).Once()

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/posts", strings.NewReader(`{"platform":"facebook","caption":"status update"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "job-2")
	uc.AssertExpectations(t)
}

func TestCreatePostEndpointValidationError(t *testing.T) {
	uc := new(MockPostUsecase)
	router := testRouter(uc)

	uc.On("CreatePost", mock.Anything, "user-1", mock.Anything).
		Return(nil, "", model.NewPublishError(model.ErrCodeValidation, "unsupported platform myspace", nil)).Once()

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/posts", strings.NewReader(`{"platform":"myspace","media_urls":["x"]}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "validation_error")
}

func TestGetPostEndpointNotFound(t *testing.T) {
	uc := new(MockPostUsecase)
	router := testRouter(uc)
	uc.On("GetPost", mock.Anything, "user-1", "missing").Return(nil, usecase.ErrPostNotFound).Once()

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/posts/missing", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCancelPostEndpoint(t *testing.T) {
	uc := new(MockPostUsecase)
	router := testRouter(uc)
	uc.On("CancelPost", mock.Anything, "user-1", "post-1").Return(nil).Once()

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/posts/post-1/cancel", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "cancelled")
}
