package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"contentpilot/domain/dto"
)

// SchedulerSecret guards the internal worker endpoints with a shared bearer
// secret instead of user JWTs. External cron services hold the secret, not a
// user session.
func SchedulerSecret(secret string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		res := dto.Res{ResponseCode: "401", ResponseMessage: "Unauthorized"}
		if secret == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, res)
			return
		}
		authorization := ctx.Request.Header.Get("Authorization")
		parts := strings.Split(authorization, "Bearer ")
		if len(parts) != 2 {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, res)
			return
		}
		if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(secret)) != 1 {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, res)
			return
		}
		ctx.Next()
	}
}
