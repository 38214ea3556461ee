package middleware

import (
	"net/http"
	"strconv"

	"messenger/internal/service"
	"messenger/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type RateLimitMiddleware struct {
	rateLimitService service.RateLimitService
	log              logger.Logger
}

func NewRateLimitMiddleware(rateLimitService service.RateLimitService, log logger.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		rateLimitService: rateLimitService,
		log:              log,
	}
}

// Limit ограничивает число запросов с одного IP в окне windowSeconds.
func (m *RateLimitMiddleware) Limit(limit, windowSeconds int) gin.HandlerFunc {
	return func(c *gin.Context) {
		m.check(c, "ip:"+c.ClientIP(), limit, windowSeconds)
	}
}

// LimitByUser ограничивает по идентичности пользователя, а не по адресу:
// авторизованные ручки не делят окно с соседями за общим NAT. Без
// аутентификации в контексте - откат на IP.
func (m *RateLimitMiddleware) LimitByUser(limit, windowSeconds int) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if userID, ok := c.Get("user_id"); ok {
			key = "user:" + userID.(uuid.UUID).String()
		}
		m.check(c, key, limit, windowSeconds)
	}
}

func (m *RateLimitMiddleware) check(c *gin.Context, key string, limit, windowSeconds int) {
	allowed, err := m.rateLimitService.CheckLimit(c.Request.Context(), key, limit, windowSeconds)
	if err != nil {
		m.log.Error("Rate limit check failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		c.Abort()
		return
	}

	if !allowed {
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", "0")
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
		c.Abort()
		return
	}

	count, err := m.rateLimitService.Increment(c.Request.Context(), key, windowSeconds)
	if err != nil {
		m.log.Error("Rate limit increment failed", "error", err)
	}

	c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(limit-int(count)))
	c.Next()
}
