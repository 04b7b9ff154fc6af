package middleware

import (
	"errors"
	"net/http"

	"go-interview-intake/internal/delivery/http/response"
	"go-interview-intake/pkg/apperror"
	"go-interview-intake/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ErrorHandler renders the last error attached with c.Error. Handlers that
// already wrote a response are left alone.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		requestID, _ := c.Get(RequestIDKey)

		var appErr *apperror.AppError
		if errors.As(err, &appErr) && appErr.Kind != apperror.KindInternal {
			logger.Log.Info("request failed",
				"request_id", requestID,
				"path", c.FullPath(),
				"kind", appErr.Kind,
				"error", err,
			)
			response.Error(c, appErr.Code, appErr.Message, gin.H{"kind": appErr.Kind})
			return
		}

		// Never expose internal error details to clients.
		logger.Log.Error("internal server error", "request_id", requestID, "path", c.FullPath(), "error", err)
		response.Error(c, http.StatusInternalServerError, "An unexpected error occurred. Please try again later.", gin.H{"kind": apperror.KindInternal})
	}
}
