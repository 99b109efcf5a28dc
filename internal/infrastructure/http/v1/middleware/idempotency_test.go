package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"novaerp/internal/core/apperror"
	"novaerp/internal/core/idempotency"
	"novaerp/internal/infrastructure/storage/memory"
)

// newIdempotentEngine serves POST /sales, failing the first call with
// firstErr and succeeding afterwards. calls counts handler executions.
func newIdempotentEngine(t *testing.T, store idempotency.Store, firstErr error, calls *int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandler(), Idempotency(store))
	r.POST("/sales", func(c *gin.Context) {
		*calls++
		if *calls == 1 {
			_ = c.Error(firstErr)
			c.Abort()
			return
		}
		body := gin.H{"id": "sale-1"}
		key := c.GetString(ContextIdempotencyKey)
		require.NoError(t, store.CompleteKey(c.Request.Context(), key, http.StatusCreated, "application/json", body))
		c.JSON(http.StatusCreated, body)
	})
	return r
}

func postSale(r *gin.Engine, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/sales", bytes.NewBufferString(`{"items":[1]}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderIdempotencyKey, key)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIdempotency_RetryableFailureReleasesKey(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   int
		rerun    bool
		retrySts int
	}{
		{"concurrent modification", apperror.NewConcurrentModification("product", "p-1"), http.StatusConflict, true, http.StatusCreated},
		{"lock timeout", apperror.NewTimeout("lock wait"), http.StatusServiceUnavailable, true, http.StatusCreated},
		{"insufficient stock", apperror.NewInsufficientStock("p-1", "Laptop", 1, 5), http.StatusBadRequest, false, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			r := newIdempotentEngine(t, memory.New().Idempotency(), tt.err, &calls)

			first := postSale(r, "k1")
			assert.Equal(t, tt.status, first.Code)

			retry := postSale(r, "k1")
			assert.Equal(t, tt.retrySts, retry.Code)
			if tt.rerun {
				assert.Equal(t, 2, calls, "retry must reach the handler")
				assert.Empty(t, retry.Header().Get("Idempotent-Replayed"))

				replay := postSale(r, "k1")
				assert.Equal(t, http.StatusCreated, replay.Code)
				assert.Equal(t, "true", replay.Header().Get("Idempotent-Replayed"))
				assert.Equal(t, 2, calls)
			} else {
				assert.Equal(t, 1, calls)
				assert.Equal(t, "true", retry.Header().Get("Idempotent-Replayed"))
			}
		})
	}
}
