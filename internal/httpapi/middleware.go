package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const (
	headerUserID   = "X-User-ID"
	headerUserRole = "X-User-Role"

	ctxUserIDKey   = "user_id"
	ctxUserRoleKey = "user_role"

	roleAdmin = "admin"
)

// requestLogger пишет одну строку на запрос после его обработки.
func requestLogger(logger *log.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.WithFields(log.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Info("http request")
	}
}

// userIdentity извлекает идентификатор пользователя из заголовка gateway.
// Запрос без валидного X-User-ID отклоняется: все маршруты под этим
// middleware персональные.
func userIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(headerUserID)
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || userID <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid " + headerUserID + " header"})
			return
		}
		c.Set(ctxUserIDKey, userID)
		c.Set(ctxUserRoleKey, c.GetHeader(headerUserRole))
		c.Next()
	}
}

// requireAdmin пропускает только запросы с ролью admin.
func requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ctxUserRoleKey) != roleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin role required"})
			return
		}
		c.Next()
	}
}

func currentUserID(c *gin.Context) int64 {
	return c.GetInt64(ctxUserIDKey)
}
