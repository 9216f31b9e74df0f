package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"document-qa/internal/helper"
)

const requestIDHeader = "X-Request-ID"

// CORS allows cross-origin requests from the configured origins and
// terminates preflight requests with an empty 200.
func CORS(allowOrigins []string) gin.HandlerFunc {
	allowMethods := strings.Join([]string{http.MethodGet, http.MethodPost, http.MethodOptions}, ", ")
	allowHeaders := strings.Join([]string{"Origin", "Content-Type", "Accept", requestIDHeader}, ", ")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		allowed := ""
		for _, o := range allowOrigins {
			if o == "*" || o == origin {
				allowed = o
				break
			}
		}
		if allowed != "" {
			c.Header("Access-Control-Allow-Origin", allowed)
			c.Header("Access-Control-Allow-Methods", allowMethods)
			c.Header("Access-Control-Allow-Headers", allowHeaders)
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}

// RequestID tags every request with a UUID, echoed in the response headers
// and attached to the request log line.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			generated, err := helper.GenerateUUID()
			if err == nil {
				id = generated
			}
		}
		c.Header(requestIDHeader, id)

		start := time.Now()
		c.Next()

		log.Debug().
			Str("request_id", id).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("Request handled")
	}
}
