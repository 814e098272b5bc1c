package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func newTestLimiter(config *Config) (*Limiter, *time.Time) {
	l := NewLimiter(config)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, &now
}

func optimizeConfig() *Config {
	return &Config{
		Enabled:         true,
		DefaultRate:     PerWindow(1000, time.Minute),
		DefaultBurst:    1000,
		EndpointConfigs: DefaultEndpointConfigs(PerWindow(1, time.Hour), 2),
	}
}

func TestLimiter_BurstThenDeny(t *testing.T) {
	l, _ := newTestLimiter(optimizeConfig())
	defer l.Stop()

	for i := 0; i < 2; i++ {
		allowed, info := l.Allow("10.0.0.1", "/resumes/optimize", "POST")
		if !allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
		if info.Limit != 2 {
			t.Errorf("expected limit 2, got %d", info.Limit)
		}
	}

	allowed, info := l.Allow("10.0.0.1", "/resumes/optimize", "POST")
	if allowed {
		t.Fatal("third request should be denied")
	}
	if info.Remaining != 0 {
		t.Errorf("expected 0 remaining, got %d", info.Remaining)
	}
	if info.RetryAfter < 59*time.Minute || info.RetryAfter > 61*time.Minute {
		t.Errorf("expected retry after about an hour, got %s", info.RetryAfter)
	}
}

func TestLimiter_Refill(t *testing.T) {
	l, now := newTestLimiter(optimizeConfig())
	defer l.Stop()

	l.Allow("c", "/resumes/optimize", "POST")
	l.Allow("c", "/resumes/optimize", "POST")
	if allowed, _ := l.Allow("c", "/resumes/optimize", "POST"); allowed {
		t.Fatal("bucket should be empty")
	}

	*now = now.Add(time.Hour + time.Second)
	if allowed, _ := l.Allow("c", "/resumes/optimize", "POST"); !allowed {
		t.Error("one token should have refilled after an hour")
	}
	if allowed, _ := l.Allow("c", "/resumes/optimize", "POST"); allowed {
		t.Error("only one token should have refilled")
	}
}

func TestLimiter_StreamAndPlainShareNothing(t *testing.T) {
	l, _ := newTestLimiter(optimizeConfig())
	defer l.Stop()

	l.Allow("c", "/resumes/optimize", "POST")
	l.Allow("c", "/resumes/optimize", "POST")
	if allowed, _ := l.Allow("c", "/resumes/optimize/stream", "POST"); !allowed {
		t.Error("stream endpoint has its own bucket")
	}
}

func TestLimiter_ClientsAreIsolated(t *testing.T) {
	l, _ := newTestLimiter(optimizeConfig())
	defer l.Stop()

	for i := 0; i < 3; i++ {
		l.Allow("client-a", "/resumes/optimize", "POST")
	}
	if allowed, _ := l.Allow("client-b", "/resumes/optimize", "POST"); !allowed {
		t.Error("client-b should not be limited by client-a")
	}
}

func TestLimiter_DefaultAppliesToUnmatchedPaths(t *testing.T) {
	cfg := optimizeConfig()
	cfg.DefaultRate = PerWindow(1, time.Hour)
	cfg.DefaultBurst = 1
	l, _ := newTestLimiter(cfg)
	defer l.Stop()

	if allowed, _ := l.Allow("c", "/resumes", "GET"); !allowed {
		t.Fatal("first request should be allowed")
	}
	// /resumes/{id} shares the default bucket with /resumes
	if allowed, _ := l.Allow("c", "/resumes/abc", "GET"); allowed {
		t.Error("default bucket should be exhausted")
	}
}

func TestLimiter_HealthIsUnlimited(t *testing.T) {
	cfg := optimizeConfig()
	cfg.DefaultRate = PerWindow(1, time.Hour)
	cfg.DefaultBurst = 1
	l, _ := newTestLimiter(cfg)
	defer l.Stop()

	for i := 0; i < 10; i++ {
		if allowed, _ := l.Allow("c", "/health", "GET"); !allowed {
			t.Fatalf("health request %d should be allowed", i+1)
		}
	}
}

func TestLimiter_ListsAndDisabled(t *testing.T) {
	cfg := optimizeConfig()
	cfg.Whitelist = map[string]bool{"trusted": true}
	cfg.Blacklist = map[string]bool{"banned": true}
	l, _ := newTestLimiter(cfg)
	defer l.Stop()

	for i := 0; i < 5; i++ {
		if allowed, _ := l.Allow("trusted", "/resumes/optimize", "POST"); !allowed {
			t.Fatal("whitelisted client should never be limited")
		}
	}
	if allowed, _ := l.Allow("banned", "/health", "GET"); allowed {
		t.Error("blacklisted client should always be denied")
	}

	off, _ := newTestLimiter(&Config{Enabled: false})
	for i := 0; i < 5; i++ {
		if allowed, _ := off.Allow("c", "/resumes/optimize", "POST"); !allowed {
			t.Fatal("disabled limiter should allow everything")
		}
	}
}

func TestLimiter_Concurrent(t *testing.T) {
	cfg := optimizeConfig()
	cfg.EndpointConfigs = DefaultEndpointConfigs(PerWindow(1, time.Hour), 50)
	l, _ := newTestLimiter(cfg)
	defer l.Stop()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Allow("c", "/resumes/optimize", "POST"); ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 50 {
		t.Errorf("expected exactly 50 allowed requests, got %d", allowed)
	}
}

func TestLimiter_CleanupBuckets(t *testing.T) {
	l, now := newTestLimiter(optimizeConfig())
	defer l.Stop()

	for i := 0; i < 3; i++ {
		l.Allow(fmt.Sprintf("client-%d", i), "/resumes/optimize", "POST")
	}
	*now = now.Add(2 * time.Hour)
	l.Allow("client-fresh", "/resumes/optimize", "POST")

	l.cleanupBuckets(now.Add(-time.Hour))

	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.buckets) != 1 {
		t.Errorf("expected only the fresh bucket to remain, got %d", len(l.buckets))
	}
}

func TestLimiter_StopIsIdempotent(t *testing.T) {
	l := NewLimiter(&Config{Enabled: true, CleanupInterval: time.Millisecond})
	l.Stop()
	l.Stop()
}

func TestMatchEndpoint(t *testing.T) {
	configs := DefaultEndpointConfigs(1, 1)

	tests := []struct {
		path, method string
		wantPath     string
	}{
		{"/resumes/optimize", "POST", "/resumes/optimize"},
		{"/resumes/optimize/stream", "POST", "/resumes/optimize/stream"},
		{"/resumes/123", "DELETE", "/resumes/"},
		{"/resumes/123", "GET", ""},
		{"/templates", "GET", ""},
		{"/health", "GET", "/health"},
	}
	for _, tt := range tests {
		got := MatchEndpoint(tt.path, tt.method, configs)
		switch {
		case tt.wantPath == "" && got != nil:
			t.Errorf("%s %s: expected no match, got %s", tt.method, tt.path, got.Path)
		case tt.wantPath != "" && (got == nil || got.Path != tt.wantPath):
			t.Errorf("%s %s: expected %s, got %+v", tt.method, tt.path, tt.wantPath, got)
		}
	}
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("RATE_LIMIT_WHITELIST", " 10.0.0.1 , ,10.0.0.2")
	t.Setenv("RATE_LIMIT_DEFAULT_LIMIT", "60")

	cfg := LoadConfig(0.5, 4)
	if !cfg.Enabled {
		t.Fatal("expected enabled by default")
	}
	if len(cfg.Whitelist) != 2 || !cfg.Whitelist["10.0.0.2"] {
		t.Errorf("unexpected whitelist %v", cfg.Whitelist)
	}
	if cfg.DefaultRate != PerWindow(60, time.Minute) || cfg.DefaultBurst != 60 {
		t.Errorf("unexpected default rate %v burst %d", cfg.DefaultRate, cfg.DefaultBurst)
	}
	if cfg.EndpointConfigs[0].Rate != 0.5 || cfg.EndpointConfigs[0].Burst != 4 {
		t.Errorf("unexpected optimize limit %+v", cfg.EndpointConfigs[0])
	}

	t.Setenv("RATE_LIMIT_ENABLED", "false")
	if LoadConfig(0.5, 4).Enabled {
		t.Error("RATE_LIMIT_ENABLED=false should disable limiting")
	}
}
