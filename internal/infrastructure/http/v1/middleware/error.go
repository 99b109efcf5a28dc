package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"novaerp/internal/core/apperror"
	"novaerp/internal/core/idempotency"
	"novaerp/internal/infrastructure/http/v1/dto"
	"novaerp/pkg/logger"
)

// ErrorHandler renders errors registered with c.Error as
// {code, message, details}. Internal causes are logged, never returned.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		ctx := c.Request.Context()
		err := c.Errors.Last().Err

		status := http.StatusInternalServerError
		body := dto.ErrorResponse{
			Code:    apperror.CodeInternal,
			Message: "Internal server error",
			Details: map[string]any{"requestId": c.GetString("request_id")},
		}

		if appErr, ok := apperror.AsAppError(err); ok {
			if appErr.Err != nil {
				logger.Error(ctx, "request error", "code", appErr.Code, "cause", appErr.Err)
			}
			status = appErr.HTTPStatus
			body = dto.ErrorResponse{
				Code:    appErr.Code,
				Message: appErr.Message,
				Details: appErr.Details,
			}
		} else {
			logger.Error(ctx, "unhandled error", "error", err)
		}

		failIdempotency(c, status, body, apperror.IsRetryable(err))
		c.JSON(status, body)
	}
}

// failIdempotency stores a 4xx response under the request's key so a retry
// replays it. After a 5xx or a retryable error (409 CONCURRENT_MODIFICATION)
// the key is released and the retry runs again.
func failIdempotency(c *gin.Context, status int, body any, retryable bool) {
	key, ok := c.Get(ContextIdempotencyKey)
	if !ok {
		return
	}
	store, ok := c.Get(ContextIdempotencyStore)
	if !ok {
		return
	}
	s, ok := store.(idempotency.Store)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	var err error
	if retryable || status >= http.StatusInternalServerError {
		err = s.ReleaseKey(ctx, key.(string))
	} else {
		err = s.FailKey(ctx, key.(string), status, "application/json", body)
	}
	if err != nil {
		logger.Warn(ctx, "idempotency key not finalized", "key", key, "error", err)
	}
}
