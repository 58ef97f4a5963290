package middleware

import (
	"time"

	"github.com/dalsjofors/hyrservice/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Sweep reclaims expired holds before the request proceeds. This is the
// only trigger for core-booking expiry: capacity is reclaimed exactly
// when someone is about to look at or take it, never by a timer.
func Sweep(sweeper service.ExpirySweeper) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := sweeper.SweepOnce(c.Request.Context(), time.Now()); err != nil {
			// The request itself can still proceed on stale data; the
			// reserve path re-checks expiry anyway.
			logrus.Errorf("Inline expiry sweep failed: %v", err)
		}
		c.Next()
	}
}
