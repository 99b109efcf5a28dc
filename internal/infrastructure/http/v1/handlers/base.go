package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"novaerp/internal/core/apperror"
	appctx "novaerp/internal/core/context"
	"novaerp/internal/core/id"
	"novaerp/internal/core/idempotency"
)

// BaseHandler provides common handler utilities.
type BaseHandler struct{}

// NewBaseHandler creates a new base handler.
func NewBaseHandler() *BaseHandler {
	return &BaseHandler{}
}

// BindJSON binds JSON request body. Failed binding tags are reported per
// field as {field: tag}.
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	err := c.ShouldBindJSON(obj)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		h.Error(c, apperror.NewValidation("request validation failed").WithDetail("fields", fields))
		return false
	}

	h.Error(c, apperror.NewValidation("invalid request body").WithDetail("error", err.Error()))
	return false
}

// Error registers error on Gin context and aborts request.
// The JSON response is produced by middleware.ErrorHandler.
func (h *BaseHandler) Error(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// ParseIntQuery parses integer query parameter with default value.
func (h *BaseHandler) ParseIntQuery(c *gin.Context, key string, defaultVal int) int {
	val := c.Query(key)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return parsed
}

// ParsePageQuery parses the limit and offset query parameters. Both must be
// non-negative integers; a missing limit falls back to defaultLimit.
func (h *BaseHandler) ParsePageQuery(c *gin.Context, defaultLimit int) (limit, offset int, ok bool) {
	if limit, ok = h.parseNonNegative(c, "limit", defaultLimit); !ok {
		return 0, 0, false
	}
	if offset, ok = h.parseNonNegative(c, "offset", 0); !ok {
		return 0, 0, false
	}
	return limit, offset, true
}

func (h *BaseHandler) parseNonNegative(c *gin.Context, key string, defaultVal int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return defaultVal, true
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 0 {
		h.Error(c, apperror.NewValidation(key+" must be a non-negative integer").WithDetail("field", key))
		return 0, false
	}
	return parsed, true
}

// ParseIDParam parses a path parameter as an id.
func (h *BaseHandler) ParseIDParam(c *gin.Context, name string) (id.ID, bool) {
	parsed, err := id.Parse(c.Param(name))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format").WithDetail("field", name))
		return id.Nil(), false
	}
	return parsed, true
}

// ParseIDQuery parses an optional query parameter as an id.
func (h *BaseHandler) ParseIDQuery(c *gin.Context, key string) (*id.ID, bool) {
	parsed, err := id.ParseOptional(c.Query(key))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format").WithDetail("field", key))
		return nil, false
	}
	return parsed, true
}

// ParseTimeQuery parses an optional RFC 3339 query parameter.
func (h *BaseHandler) ParseTimeQuery(c *gin.Context, key string) (*time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid date, RFC 3339 expected").WithDetail("field", key))
		return nil, false
	}
	return &t, true
}

// GetUserID extracts user ID from request context.
func (h *BaseHandler) GetUserID(c *gin.Context) string {
	return appctx.GetUserID(c.Request.Context())
}

// CompleteIdempotency stores the response for replay under the request's
// idempotency key, if the request carried one.
func (h *BaseHandler) CompleteIdempotency(c *gin.Context, statusCode int, contentType string, response any) {
	key, ok := c.Get("idempotency_key")
	if !ok {
		return
	}
	store, ok := c.Get("idempotency_store")
	if !ok {
		return
	}
	if s, ok := store.(idempotency.Store); ok {
		_ = s.CompleteKey(c.Request.Context(), key.(string), statusCode, contentType, response)
	}
}

// Created sends 201 response with data.
func (h *BaseHandler) Created(c *gin.Context, data any) {
	h.CompleteIdempotency(c, http.StatusCreated, "application/json", data)
	c.JSON(http.StatusCreated, data)
}

// NoContent sends an empty 204 response.
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// OK sends 200 response with data.
func (h *BaseHandler) OK(c *gin.Context, data any) {
	h.CompleteIdempotency(c, http.StatusOK, "application/json", data)
	c.JSON(http.StatusOK, data)
}
