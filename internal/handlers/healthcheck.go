package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// HealthCheck reports liveness plus a database round trip.
func HealthCheck(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			RespondError(c, http.StatusServiceUnavailable, "db_unreachable", err)
			return
		}
		RespondOK(c, gin.H{"status": "ok"})
	}
}
