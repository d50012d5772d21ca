package connectors

import (
	"context"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Serves one force-order frame per connection, then drops it, so every
// consume call goes through a full connect/read/disconnect cycle.
func newDroppingStreamServer(t *testing.T) string {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		frame := `{"e":"forceOrder","o":{"s":"BTCUSDT","S":"SELL","q":"2","ap":"100"}}`
		_ = conn.WriteMessage(websocket.TextMessage, []byte(frame))
		_ = conn.Close()
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestConsumeReturnsOnDisconnect(t *testing.T) {
	url := newDroppingStreamServer(t)
	tracker := NewLiquidationTracker(time.Minute)

	err := tracker.consume(context.Background(), url)
	require.Error(t, err, "server drop ends the read loop with an error")

	agg, ok := tracker.Aggregate("BTCUSDT")
	require.True(t, ok)
	assert.InDelta(t, 200, agg.LongVolume, 1e-9)
	assert.Zero(t, agg.ShortVolume)
}

func TestConsumeDoesNotLeakWatcherGoroutines(t *testing.T) {
	url := newDroppingStreamServer(t)
	tracker := NewLiquidationTracker(time.Minute)
	ctx := context.Background()

	before := runtime.NumGoroutine()

	for i := 0; i < 30; i++ {
		require.Error(t, tracker.consume(ctx, url))
	}

	// The per-connection watcher exits with its connection; only transient
	// server-side goroutines may still be winding down.
	require.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before+3
	}, 2*time.Second, 10*time.Millisecond, "reconnect churn must not accumulate goroutines")
}
