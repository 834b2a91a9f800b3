package metrics

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)
	return log
}

func TestNewServer(t *testing.T) {
	s := NewServer("8080", testLogger())
	if s == nil || s.server == nil {
		t.Fatalf("expected a non-nil server")
	}
	if s.server.Addr != ":8080" {
		t.Fatalf("Addr = %q, want :8080", s.server.Addr)
	}
}

func TestServerMetricsAndHealthEndpoints(t *testing.T) {
	s := NewServer("9998", testLogger())
	s.StartAsync()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Stop(ctx)
	}()

	time.Sleep(200 * time.Millisecond)

	metricsResp, err := http.Get("http://localhost:9998/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer metricsResp.Body.Close()
	if metricsResp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", metricsResp.StatusCode)
	}
	body, err := io.ReadAll(metricsResp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	if !strings.Contains(string(body), "# HELP") {
		t.Errorf("expected Prometheus exposition format, got: %q", body)
	}

	healthResp, err := http.Get("http://localhost:9998/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer healthResp.Body.Close()
	if healthResp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", healthResp.StatusCode)
	}
	healthBody, _ := io.ReadAll(healthResp.Body)
	if string(healthBody) != "OK" {
		t.Errorf("body = %q, want OK", healthBody)
	}
}
