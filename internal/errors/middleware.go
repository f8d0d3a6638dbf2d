// This file implements error handling middleware for the Gin REST surface
// (login, status). WebSocket-level errors never pass through here; they are
// delivered as `error` messages on the signaling connection.
package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/railwatch/broker/internal/logger"
)

// restResponse is the JSON error body for the REST surface.
type restResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func toRestResponse(e *BrokerError) restResponse {
	resp := restResponse{
		Error:   e.Code,
		Message: e.Message,
	}
	if cause, ok := e.Details["cause"].(string); ok {
		resp.Details = cause
	}
	return resp
}

// ErrorHandler converts errors attached to the Gin context into consistent
// JSON responses. 5xx errors log at error level, 4xx at warn.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last()

		if berr, ok := err.Err.(*BrokerError); ok {
			if berr.StatusCode >= 500 {
				logger.HTTP().Error().
					Str("code", berr.Code).
					Str("message", berr.Message).
					Msg("Request failed")
			} else {
				logger.HTTP().Warn().
					Str("code", berr.Code).
					Str("message", berr.Message).
					Msg("Request rejected")
			}
			c.JSON(berr.StatusCode, toRestResponse(berr))
			return
		}

		logger.HTTP().Error().Err(err.Err).Msg("Unhandled error")
		c.JSON(http.StatusInternalServerError, restResponse{
			Error:   ErrCodeInternalError,
			Message: "An unexpected error occurred",
		})
	}
}

// Recovery recovers from handler panics with a JSON error response.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.HTTP().Error().Interface("panic", r).Msg("Recovered from panic")

				c.AbortWithStatusJSON(http.StatusInternalServerError, restResponse{
					Error:   ErrCodeInternalError,
					Message: "An unexpected error occurred",
				})
			}
		}()

		c.Next()
	}
}

// AbortWithError aborts the request with the given error.
func AbortWithError(c *gin.Context, err *BrokerError) {
	c.Error(err)
	c.AbortWithStatusJSON(err.StatusCode, toRestResponse(err))
}
