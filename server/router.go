package server

import (
	"net/http"
	"time"

	httpHandler "contentpilot/interfaces/http"
	"contentpilot/interfaces/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func InitiateRouter(
	postHandler httpHandler.IPostHandler,
	workerHandler httpHandler.IWorkerHandler,
	jwtSecret string,
	workerSecret string,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:4200", "https://localhost:4200", "http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("api")
	api.Use(middleware.Auth(jwtSecret))
	{
		api.POST("/posts", postHandler.CreatePost)
		api.GET("/posts/:postId", postHandler.GetPost)
		api.POST("/posts/:postId/cancel", postHandler.CancelPost)
		api.GET("/posts/:postId/stream", postHandler.StreamProgress)
	}

	internal := router.Group("internal")
	internal.Use(middleware.SchedulerSecret(workerSecret))
	{
		internal.POST("/worker/tick", workerHandler.Tick)
	}

	return router
}
