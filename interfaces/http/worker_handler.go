package http

import (
	"net/http"
	"strconv"

	"contentpilot/infrastructure/logger"
	"contentpilot/usecase"

	"github.com/gin-gonic/gin"
)

type IWorkerHandler interface {
	Tick(ctx *gin.Context)
}

// WorkerHandler lets an external scheduler drive the queue over HTTP. The
// in-process tick loop makes this optional; hosting environments without long
// running processes use it as the only trigger.
type WorkerHandler struct {
	dispatcher *usecase.Dispatcher
	batchSize  int
}

func NewWorkerHandler(dispatcher *usecase.Dispatcher, batchSize int) IWorkerHandler {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &WorkerHandler{dispatcher: dispatcher, batchSize: batchSize}
}

func (h *WorkerHandler) Tick(ctx *gin.Context) {
	limit := h.batchSize
	if raw := ctx.Query("batch"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	processed, err := h.dispatcher.RunBatch(ctx.Request.Context(), limit)
	if err != nil {
		logger.GetLogger().Errorf("worker tick failed after %d jobs: %v", processed, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "processed": processed})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"processed": processed})
}
