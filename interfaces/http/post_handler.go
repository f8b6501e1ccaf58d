package http

import (
	"errors"
	"net/http"

	"contentpilot/domain/dto"
	"contentpilot/domain/model"
	"contentpilot/infrastructure/logger"
	"contentpilot/infrastructure/realtime"
	"contentpilot/usecase"

	"github.com/gin-gonic/gin"
)

type IPostHandler interface {
	CreatePost(ctx *gin.Context)
	GetPost(ctx *gin.Context)
	CancelPost(ctx *gin.Context)
	StreamProgress(ctx *gin.Context)
}

type PostHandler struct {
	postUsecase usecase.IPostUsecase
	hub         *realtime.Hub
}

func NewPostHandler(uc usecase.IPostUsecase, hub *realtime.Hub) IPostHandler {
	return &PostHandler{postUsecase: uc, hub: hub}
}

func (h *PostHandler) CreatePost(ctx *gin.Context) {
	userID := ctx.GetString("user_id")
	if userID == "" {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized: missing user_id"})
		return
	}
	var req dto.CreatePostRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	post, jobID, err := h.postUsecase.CreatePost(ctx.Request.Context(), userID, req)
	if err != nil {
		perr := model.ClassifyError(err)
		logger.GetLogger().WithField("user_id", userID).
			WithField("error_code", string(perr.Code)).
			Warnf("create post failed: %v", err)
		status := http.StatusInternalServerError
		if perr.Code == model.ErrCodeValidation {
			status = http.StatusBadRequest
		}
		ctx.JSON(status, gin.H{"error": perr.Message, "code": string(perr.Code)})
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"post": post, "job_id": jobID})
}

func (h *PostHandler) GetPost(ctx *gin.Context) {
	userID := ctx.GetString("user_id")
	post, err := h.postUsecase.GetPost(ctx.Request.Context(), userID, ctx.Param("postId"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, usecase.ErrPostNotFound) {
			status = http.StatusNotFound
		} else if errors.Is(err, usecase.ErrNotOwner) {
			status = http.StatusForbidden
		}
		ctx.JSON(status, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"post": post})
}

func (h *PostHandler) CancelPost(ctx *gin.Context) {
	userID := ctx.GetString("user_id")
	postID := ctx.Param("postId")
	if err := h.postUsecase.CancelPost(ctx.Request.Context(), userID, postID); err != nil {
		status := http.StatusConflict
		if errors.Is(err, usecase.ErrPostNotFound) {
			status = http.StatusNotFound
		} else if errors.Is(err, usecase.ErrNotOwner) {
			status = http.StatusForbidden
		}
		ctx.JSON(status, gin.H{"error": err.Error()})
		return
	}
	// A worker already past the platform call may still publish; the client
	// learns the final status from the post record.
	ctx.JSON(http.StatusOK, gin.H{"post_id": postID, "status": "cancelled"})
}

func (h *PostHandler) StreamProgress(ctx *gin.Context) {
	userID := ctx.GetString("user_id")
	postID := ctx.Param("postId")
	if _, err := h.postUsecase.GetPost(ctx.Request.Context(), userID, postID); err != nil {
		status := http.StatusNotFound
		if errors.Is(err, usecase.ErrNotOwner) {
			status = http.StatusForbidden
		}
		ctx.JSON(status, gin.H{"error": err.Error()})
		return
	}
	h.hub.Serve(ctx, postID)
}
