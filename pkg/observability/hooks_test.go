package observability

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	var h Hooks = Noop{}

	h.OnCacheHit(ctx, "leagues")
	h.OnCacheMiss(ctx, "teams")
	h.OnCacheSet(ctx, "teams", 1024)

	h.OnRequest(ctx, "teams", "GET", "/api/teams/La%20Liga")
	h.OnResponse(ctx, "teams", 200, time.Second)
	h.OnError(ctx, "teams", "timeout", errors.New("deadline exceeded"))

	h.OnRetry(ctx, "live-matches", 1, time.Second)
	h.OnStaleFallback(ctx, "live-matches", time.Minute)
	h.OnExhausted(ctx, "live-matches", 3)
	h.OnFallback(ctx, "predict")
}

func TestOrNoop(t *testing.T) {
	if _, ok := OrNoop(nil).(Noop); !ok {
		t.Error("OrNoop(nil) should return Noop")
	}

	custom := &testHooks{}
	if OrNoop(custom) != custom {
		t.Error("OrNoop should return non-nil hooks unchanged")
	}
}

func TestEmbeddedNoopOverride(t *testing.T) {
	h := &testHooks{}
	var hooks Hooks = h

	hooks.OnRetry(context.Background(), "leagues", 1, time.Second)
	hooks.OnRetry(context.Background(), "leagues", 2, 2*time.Second)
	hooks.OnCacheHit(context.Background(), "leagues")

	if h.retries != 2 {
		t.Errorf("retries = %d, want 2", h.retries)
	}
}

// testHooks overrides a single event and inherits the rest from Noop.
type testHooks struct {
	Noop
	retries int
}

func (h *testHooks) OnRetry(context.Context, string, int, time.Duration) { h.retries++ }
