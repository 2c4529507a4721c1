package server

import (
	"errors"
	"net/http"
	"time"

	"ledger-admin-go/internal/auth"
	"ledger-admin-go/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const actorKey = "actor"

// requestLogger logs every request through zap
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		requestId := c.Request.Header.Get("X-Request-ID")
		if requestId == "" {
			requestId = uuid.New().String()
		}
		c.Header("X-Request-ID", requestId)

		c.Next()

		fields := []zap.Field{
			zap.String("request_id", requestId),
			zap.Int("status", c.Writer.Status()),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
		}
		if actor, ok := actorFrom(c); ok {
			fields = append(fields, zap.String("actor_id", actor.Id))
		}

		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			zap.L().Error("Server error", fields...)
		case c.Writer.Status() >= http.StatusBadRequest:
			zap.L().Warn("Client error", fields...)
		default:
			zap.L().Info("Request", fields...)
		}
	}
}

// authenticate verifies the bearer token and stores the actor on both the
// gin context and the request context.
func authenticate(verifier *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.ExtractToken(c.GetHeader("Authorization"))
		if err == nil {
			var actor models.Actor
			actor, err = verifier.Verify(token)
			if err == nil {
				c.Set(actorKey, actor)
				c.Request = c.Request.WithContext(models.WithActor(c.Request.Context(), actor))
				c.Next()
				return
			}
		}

		message := "invalid or expired token"
		if errors.Is(err, auth.ErrMissingToken) {
			message = err.Error()
		}
		zap.L().Debug("Rejected bearer token", zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
			Status:  http.StatusUnauthorized,
			Message: message,
			Kind:    models.KindUnauthorized,
		})
	}
}

// requireRole rejects actors whose role is not in allowed
func requireRole(allowed ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFrom(c)
		if ok {
			for _, role := range allowed {
				if actor.Role == role {
					c.Next()
					return
				}
			}
		}
		zap.L().Warn("Route access denied",
			zap.String("actor_id", actor.Id),
			zap.String("role", string(actor.Role)),
			zap.String("path", c.Request.URL.Path))
		respondError(c, models.KindUnauthorized, "forbidden")
	}
}

func actorFrom(c *gin.Context) (models.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return models.Actor{}, false
	}
	actor, ok := v.(models.Actor)
	return actor, ok
}

// mustActor returns the authenticated actor; only used behind authenticate
func mustActor(c *gin.Context) models.Actor {
	actor, _ := actorFrom(c)
	return actor
}
