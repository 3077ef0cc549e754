package middleware

import (
	"time"

	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/sirupsen/logrus"
)

// RequestLogger logs one line per request once the rest of the chain has run.
func RequestLogger(log logrus.FieldLogger) drift.HandlerFunc {
	return func(c *drift.Context) {
		start := time.Now()

		c.Next()

		fields := logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"remote":   c.Request.RemoteAddr,
			"duration": time.Since(start).String(),
		}
		if userID := GetUserID(c); userID != uuid.Nil {
			fields["user_id"] = userID.String()
		}
		log.WithFields(fields).Info("request")
	}
}
