package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalengine/src/model"
)

func testSignal() model.RankedSignal {
	return model.RankedSignal{
		CandidateSignal: model.CandidateSignal{
			Symbol:     "BTCUSDT",
			Direction:  model.DirectionLong,
			EntryPrice: 65000,
			Target:     66300,
			Stop:       64350,
			Leverage:   10,
			Strategy:   "funding_extreme",
			Rationale:  "funding rate -0.1700%, crowd is SHORT",
		},
		Score:      77,
		Confidence: 95,
	}
}

func TestSignalAccepted_PostsWebhook(t *testing.T) {
	var got pushMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewNotifier(Config{WebhookURL: srv.URL, Timeout: time.Second})
	n.SignalAccepted(context.Background(), testSignal())

	assert.Equal(t, "signal", got.Kind)
	assert.True(t, strings.Contains(got.Text, "BTCUSDT"))
	assert.True(t, strings.Contains(got.Text, "LONG"))
}

func TestPush_FailureIsSwallowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := NewNotifier(Config{WebhookURL: srv.URL, Timeout: time.Second})

	// Must not panic or error out; delivery failures are logged only.
	n.PositionClosed(context.Background(), model.ClosedPosition{
		Symbol:    "BTCUSDT",
		Direction: model.DirectionLong,
		Reason:    model.CloseReasonTakeProfit,
	})
}

func TestPush_NoURLIsNoop(t *testing.T) {
	n := NewNotifier(Config{})
	n.SignalAccepted(context.Background(), testSignal())
}
