package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Healthz handles GET /healthz. Redis is advisory only: flood and rate
// limit windows fail open, so its absence does not make the core unready.
func (s *Server) Healthz(c *gin.Context) {
	ctx := c.Request.Context()

	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "store": err.Error()})
		return
	}

	status := gin.H{"status": "ok"}
	if err := s.redis.Ping(ctx).Err(); err != nil {
		status["redis"] = "unavailable"
	}
	c.JSON(http.StatusOK, status)
}
