package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	clierr "github.com/ggonzalez94/yieldscout/internal/errors"
)

func TestDoJSONDoesNotRetryServerError(t *testing.T) {
	var count int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&count, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := New(2*time.Second, 0)
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	var out map[string]any
	_, err = client.DoJSON(context.Background(), req, &out)
	if !clierr.Is(err, clierr.CodeUnavailable) {
		t.Fatalf("expected network error, got %v", err)
	}
	if atomic.LoadInt32(&count) != 1 {
		t.Fatalf("expected exactly one attempt, got %d", count)
	}
}

func TestDoJSONMalformedBodyIsDataFormat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": "oops"`))
	}))
	defer srv.Close()

	client := New(2*time.Second, 0)
	req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL, nil)
	var out map[string]any
	if _, err := client.DoJSON(context.Background(), req, &out); !clierr.Is(err, clierr.CodeDataFormat) {
		t.Fatalf("expected data format error, got %v", err)
	}
}

func TestDoJSONDeadlineIsTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	client := New(5*time.Second, 0)
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	var out map[string]any
	if _, err := client.DoJSON(ctx, req, &out); !clierr.Is(err, clierr.CodeTimeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestDoJSONRateLimitedWaitHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client := New(2*time.Second, 1)
	ctx := context.Background()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	var out map[string]any
	if _, err := client.DoJSON(ctx, req, &out); err != nil {
		t.Fatalf("first request failed: %v", err)
	}

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	req2, _ := http.NewRequestWithContext(short, http.MethodGet, srv.URL, nil)
	if _, err := client.DoJSON(short, req2, &out); !clierr.Is(err, clierr.CodeTimeout) {
		t.Fatalf("expected limiter wait to time out, got %v", err)
	}
}
