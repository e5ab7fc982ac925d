package app

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/ggonzalez94/yieldscout/internal/cache"
	"github.com/ggonzalez94/yieldscout/internal/config"
	clierr "github.com/ggonzalez94/yieldscout/internal/errors"
	"github.com/ggonzalez94/yieldscout/internal/model"
)

type cachePolicyEnvelope struct {
	Success  bool           `json:"success"`
	Data     map[string]any `json:"data"`
	Warnings []string       `json:"warnings"`
	Meta     struct {
		Cache model.CacheStatus `json:"cache"`
	} `json:"meta"`
}

func TestRunCachedCommandServesFreshEntry(t *testing.T) {
	state, stdout := newCachePolicyTestState(t)
	key := "runner-cache-policy-fresh"
	if err := state.cache.Set(key, []byte(`{"source":"cache"}`), time.Minute); err != nil {
		t.Fatalf("cache set failed: %v", err)
	}

	fetchCalls := 0
	err := runCachedCommand(state, "test command", key, time.Minute, func(ctx context.Context) (any, error) {
		fetchCalls++
		return map[string]any{"source": "upstream"}, nil
	})
	if err != nil {
		t.Fatalf("runCachedCommand failed: %v", err)
	}
	if fetchCalls != 0 {
		t.Fatalf("fresh entry should skip the fetch, got calls=%d", fetchCalls)
	}
	env := decodeCachePolicyEnvelope(t, stdout)
	if env.Data["source"] != "cache" || env.Meta.Cache.Status != "hit" {
		t.Fatalf("expected cache hit, got %#v", env)
	}
}

func TestRunCachedCommandFetchesAfterTTLExpiry(t *testing.T) {
	state, stdout := newCachePolicyTestState(t)
	key := "runner-cache-policy-fetch-after-ttl"
	if err := state.cache.Set(key, []byte(`{"source":"cache"}`), time.Second); err != nil {
		t.Fatalf("cache set failed: %v", err)
	}
	time.Sleep(1100 * time.Millisecond)

	fetchCalls := 0
	err := runCachedCommand(state, "test command", key, time.Minute, func(ctx context.Context) (any, error) {
		fetchCalls++
		return map[string]any{"source": "upstream"}, nil
	})
	if err != nil {
		t.Fatalf("runCachedCommand failed: %v", err)
	}
	if fetchCalls != 1 {
		t.Fatalf("expected fetch after ttl expiry, got calls=%d", fetchCalls)
	}
	env := decodeCachePolicyEnvelope(t, stdout)
	if env.Data["source"] != "upstream" || env.Meta.Cache.Status != "write" {
		t.Fatalf("expected fresh upstream data written to cache, got %#v", env)
	}
}

func TestRunCachedCommandNeverServesExpiredOnFailure(t *testing.T) {
	state, stdout := newCachePolicyTestState(t)
	key := "runner-cache-policy-no-stale"
	if err := state.cache.Set(key, []byte(`{"source":"cache"}`), time.Second); err != nil {
		t.Fatalf("cache set failed: %v", err)
	}
	time.Sleep(1100 * time.Millisecond)

	err := runCachedCommand(state, "test command", key, time.Minute, func(ctx context.Context) (any, error) {
		return nil, clierr.New(clierr.CodeUnavailable, "yields aggregator returned 503")
	})
	if !clierr.Is(err, clierr.CodeUnavailable) {
		t.Fatalf("expected network error, got %v", err)
	}
	if stdout.Len() != 0 {
		t.Fatalf("expected no output on failure, got %s", stdout.String())
	}
}

func TestRunCachedCommandRetriesNetworkErrors(t *testing.T) {
	state, _ := newCachePolicyTestState(t)
	state.settings.Retries = 2

	calls := 0
	err := runCachedCommand(state, "test command", "retry-network", time.Minute, func(ctx context.Context) (any, error) {
		calls++
		if calls < 3 {
			return nil, clierr.New(clierr.CodeUnavailable, "yields aggregator returned 502")
		}
		return map[string]any{"ok": true}, nil
	})
	if err != nil {
		t.Fatalf("expected success on third attempt, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestRunCachedCommandDoesNotRetryDataFormat(t *testing.T) {
	state, _ := newCachePolicyTestState(t)
	state.settings.Retries = 3

	calls := 0
	err := runCachedCommand(state, "test command", "retry-format", time.Minute, func(ctx context.Context) (any, error) {
		calls++
		return nil, clierr.New(clierr.CodeDataFormat, "unexpected pools payload")
	})
	if !clierr.Is(err, clierr.CodeDataFormat) || calls != 1 {
		t.Fatalf("expected single data format failure, got calls=%d err=%v", calls, err)
	}
}

func TestRunCachedCommandBypassWhenCacheDisabled(t *testing.T) {
	state, stdout := newCachePolicyTestState(t)
	state.settings.CacheEnabled = false
	err := runCachedCommand(state, "test command", "bypass", time.Minute, func(ctx context.Context) (any, error) {
		return map[string]any{"source": "upstream"}, nil
	})
	if err != nil {
		t.Fatalf("runCachedCommand failed: %v", err)
	}
	if env := decodeCachePolicyEnvelope(t, stdout); env.Meta.Cache.Status != "bypass" {
		t.Fatalf("expected bypass status, got %+v", env.Meta.Cache)
	}
}

func newCachePolicyTestState(t *testing.T) (*runtimeState, *bytes.Buffer) {
	t.Helper()
	tmp := t.TempDir()
	store, err := cache.Open(filepath.Join(tmp, "cache.db"), filepath.Join(tmp, "cache.lock"))
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	stdout := &bytes.Buffer{}
	state := &runtimeState{
		runner: NewRunnerWithWriters(stdout, &bytes.Buffer{}),
		ctx:    context.Background(),
		cache:  store,
		settings: config.Settings{
			OutputMode:   "json",
			CacheEnabled: true,
			Retries:      0,
		},
	}
	return state, stdout
}

func decodeCachePolicyEnvelope(t *testing.T, buf *bytes.Buffer) cachePolicyEnvelope {
	t.Helper()
	var env cachePolicyEnvelope
	if err := json.Unmarshal(buf.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v output=%s", err, buf.String())
	}
	return env
}
