package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CorrelationIDHeader carries the request identifier; inbound values are
// honored so callers (the simulation driver, dashboards) can trace a request
// through their own logs.
const CorrelationIDHeader = "X-Correlation-ID"

// CorrelationIDKey stores the identifier in the gin context
const CorrelationIDKey = "correlation_id"

// CorrelationID assigns every request an identifier, generating one when the
// caller did not send the header, and echoes it on the response.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(CorrelationIDHeader)
		if id == "" {
			id = uuid.NewString()
		}

		c.Header(CorrelationIDHeader, id)
		c.Set(CorrelationIDKey, id)

		c.Next()
	}
}

// GetCorrelationID returns the request's identifier, or "" when the
// middleware did not run.
func GetCorrelationID(c *gin.Context) string {
	id, ok := c.Get(CorrelationIDKey)
	if !ok {
		return ""
	}
	s, _ := id.(string)
	return s
}
