// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"time"

	"novaerp/internal/core/apperror"
	"novaerp/internal/core/id"
)

// ListResponse wraps list results with pagination.
type ListResponse struct {
	Items      any   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// IDResponse for create operations.
type IDResponse struct {
	ID string `json:"id"`
}

// ErrorResponse for error details.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// BaseResponse contains common response fields.
type BaseResponse struct {
	ID        string    `json:"id"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// parseID parses a required id field of a request body.
func parseID(field, raw string) (id.ID, error) {
	parsed, err := id.Parse(raw)
	if err != nil {
		return id.Nil(), apperror.NewValidation("invalid id format").
			WithDetail("field", field).
			WithDetail("value", raw)
	}
	return parsed, nil
}

// parseOptionalID parses an optional id field; nil or empty means absent.
func parseOptionalID(field string, raw *string) (*id.ID, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	parsed, err := parseID(field, *raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
