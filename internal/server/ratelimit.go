package server

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateLimitMiddleware enforces a fixed per-user window on every v1 route.
// The caller identifies its user via X-User-ID; anonymous requests are
// keyed by client address. Redis being unavailable fails open.
func (s *Server) RateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.cfg.RateLimitPerUser <= 0 {
			c.Next()
			return
		}

		caller := c.GetHeader("X-User-ID")
		if caller == "" {
			caller = c.ClientIP()
		}
		key := "accord:ratelimit:" + caller

		ctx := c.Request.Context()
		n, err := s.redis.Incr(ctx, key).Result()
		if err != nil {
			s.log.Warn("rate limit window unavailable", zap.Error(err))
			c.Next()
			return
		}
		if n == 1 {
			if err := s.redis.Expire(ctx, key, s.cfg.RateLimitWindow).Err(); err != nil {
				s.log.Warn("rate limit expire failed", zap.Error(err))
			}
		}
		if n > int64(s.cfg.RateLimitPerUser) {
			c.Header("Retry-After", fmt.Sprintf("%.0f", s.cfg.RateLimitWindow.Seconds()))
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}
