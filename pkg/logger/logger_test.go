package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	appctx "novaerp/internal/core/context"
)

func TestFromContext_AddsTraceAndUser(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	base := &Logger{zap.New(core).Sugar()}

	ctx := appctx.WithTrace(context.Background(), &appctx.TraceContext{TraceID: "trace-1", RequestID: "req-1"})
	ctx = appctx.WithUser(ctx, &appctx.UserContext{UserID: "cashier-7"})
	ctx = WithLogger(ctx, base)

	Info(ctx, "sale processed", "sale_number", "SALE-20250101-ABCDEF01")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "trace-1", fields["trace_id"])
		assert.Equal(t, "req-1", fields["request_id"])
		assert.Equal(t, "cashier-7", fields["user_id"])
		assert.Equal(t, "SALE-20250101-ABCDEF01", fields["sale_number"])
	}
}

func TestSetDefault(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	SetDefault(&Logger{zap.New(core).Sugar()})
	t.Cleanup(func() { SetDefault(nil) })

	Warn(context.Background(), "rollback")
	assert.Equal(t, 1, logs.FilterMessage("rollback").Len())
}
