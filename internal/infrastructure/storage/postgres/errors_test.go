package postgres

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"novaerp/internal/core/apperror"
)

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
	}{
		{"serialization failure", &pgconn.PgError{Code: "40001"}, apperror.CodeConcurrentModification, http.StatusConflict},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, apperror.CodeConcurrentModification, http.StatusConflict},
		{"negative stock check", &pgconn.PgError{Code: "23514", ConstraintName: "products_stock_quantity_check"}, apperror.CodeConcurrentModification, http.StatusConflict},
		{"unique violation", &pgconn.PgError{Code: "23505"}, apperror.CodeConflict, http.StatusConflict},
		{"missing reference", &pgconn.PgError{Code: "23503", Detail: `Key (customer_id)=(x) is not present in table "customers".`}, apperror.CodeNotFound, http.StatusNotFound},
		{"referenced on delete", &pgconn.PgError{Code: "23503", Detail: `Key (id)=(x) is still referenced from table "sale_items".`}, apperror.CodeInUse, http.StatusConflict},
		{"lock timeout", &pgconn.PgError{Code: "55P03"}, apperror.CodeTimeout, http.StatusServiceUnavailable},
		{"statement timeout", fmt.Errorf("query: %w", &pgconn.PgError{Code: "57014"}), apperror.CodeTimeout, http.StatusServiceUnavailable},
		{"connection failure", &pgconn.PgError{Code: "08006"}, apperror.CodeUnavailable, http.StatusServiceUnavailable},
		{"context deadline", fmt.Errorf("exec: %w", context.DeadlineExceeded), apperror.CodeTimeout, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TranslateError(tt.err)

			assert.True(t, apperror.HasCode(got, tt.wantCode), "got %v", got)
			assert.Equal(t, tt.wantStatus, apperror.GetHTTPStatus(got))
		})
	}
}

func TestTranslateError_Passthrough(t *testing.T) {
	assert.NoError(t, TranslateError(nil))

	appErr := apperror.NewNotFound("product", "1")
	assert.Same(t, appErr, TranslateError(appErr))

	canceled := fmt.Errorf("exec: %w", context.Canceled)
	assert.ErrorIs(t, TranslateError(canceled), context.Canceled)
	assert.False(t, apperror.IsAppError(TranslateError(canceled)))

	plain := errors.New("boom")
	assert.Equal(t, plain, TranslateError(plain))
}

func TestTranslateError_TransientClassification(t *testing.T) {
	assert.True(t, apperror.IsTransient(TranslateError(&pgconn.PgError{Code: "57014"})))
	assert.True(t, apperror.IsTransient(TranslateError(&pgconn.PgError{Code: "57P01"})))
	assert.False(t, apperror.IsTransient(TranslateError(&pgconn.PgError{Code: "40001"})))
}

func TestIsForeignKeyViolation(t *testing.T) {
	assert.True(t, IsForeignKeyViolation(fmt.Errorf("delete: %w", &pgconn.PgError{Code: "23503"})))
	assert.False(t, IsForeignKeyViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsForeignKeyViolation(errors.New("boom")))
}
