package alert

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/slack-go/slack"
)

func newTestDispatcher(t *testing.T, handler http.HandlerFunc) (*SlackDispatcher, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	client := slack.New("test-token", slack.OptionAPIURL(server.URL+"/"))
	return &SlackDispatcher{client: client, channel: "C12345"}, server
}

func TestDispatchHotspotPostsBlockMessage(t *testing.T) {
	var captured map[string]any
	dispatcher, server := newTestDispatcher(t, func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		_ = json.Unmarshal([]byte(r.FormValue("blocks")), &captured)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"channel":"C12345","ts":"1234.5678"}`))
	})
	defer server.Close()

	err := dispatcher.DispatchHotspot(context.Background(), HotspotAlert{
		FlashpointTitle: "Border Incident",
		ClusterID:       3,
		Summary:         "Something happened.",
		ArticleCount:    12,
		HotspotScore:    0.87,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if captured == nil {
		t.Fatalf("expected blocks to be captured from the outgoing request")
	}
}

func TestDispatchHotspotTruncatesLongSummary(t *testing.T) {
	var rawBlocks string
	dispatcher, server := newTestDispatcher(t, func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		rawBlocks = r.FormValue("blocks")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	defer server.Close()

	longSummary := strings.Repeat("a", 1000)
	err := dispatcher.DispatchHotspot(context.Background(), HotspotAlert{
		FlashpointTitle: "Long Summary Event",
		Summary:         longSummary,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Count(rawBlocks, "a") > maxSummaryChars+50 {
		t.Fatalf("expected summary to be truncated to %d chars", maxSummaryChars)
	}
}

func TestDispatchRunFailurePostsMessage(t *testing.T) {
	posted := false
	dispatcher, server := newTestDispatcher(t, func(w http.ResponseWriter, r *http.Request) {
		posted = true
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	defer server.Close()

	err := dispatcher.DispatchRunFailure(context.Background(), RunFailureAlert{
		RunID:        "run-2026-07-31",
		TargetDate:   "2026-07-31",
		Tier:         "B",
		ErrorMessage: "database connection refused",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !posted {
		t.Fatalf("expected the dispatcher to POST a message")
	}
}

func TestDispatchHotspotReturnsErrorOnSlackFailure(t *testing.T) {
	dispatcher, server := newTestDispatcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":false,"error":"channel_not_found"}`))
	})
	defer server.Close()

	err := dispatcher.DispatchHotspot(context.Background(), HotspotAlert{FlashpointTitle: "X"})
	if err == nil {
		t.Fatalf("expected an error when Slack reports ok:false")
	}
}

func TestNoopDispatcherNeverErrors(t *testing.T) {
	var d Dispatcher = NoopDispatcher{}
	if err := d.DispatchHotspot(context.Background(), HotspotAlert{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := d.DispatchRunFailure(context.Background(), RunFailureAlert{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
