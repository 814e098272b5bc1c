// Package ratelimit limits requests per client and endpoint with token buckets.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Info describes the limit applied to one request
type Info struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultRate     rate.Limit
	DefaultBurst    int
	CleanupInterval time.Duration
	// IdleTTL is how long an unused bucket is kept
	IdleTTL         time.Duration
	Whitelist       map[string]bool
	Blacklist       map[string]bool
	EndpointConfigs []EndpointConfig
}

type bucket struct {
	limiter  *rate.Limiter
	burst    int
	lastSeen time.Time
}

// Limiter keeps one token bucket per client and endpoint.
type Limiter struct {
	config      *Config
	mu          sync.Mutex
	buckets     map[string]*bucket
	cleanupStop chan struct{}
	stopOnce    sync.Once
	now         func() time.Time
}

// NewLimiter creates a rate limiter. A nil config uses DefaultConfig.
func NewLimiter(config *Config) *Limiter {
	if config == nil {
		config = DefaultConfig()
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = time.Hour
	}

	l := &Limiter{
		config:  config,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}

	if config.Enabled && config.CleanupInterval > 0 {
		l.cleanupStop = make(chan struct{})
		go l.cleanup(config.CleanupInterval)
	}
	return l
}

// Allow reports whether a request from clientID to method+path may proceed.
func (l *Limiter) Allow(clientID, path, method string) (bool, Info) {
	if !l.config.Enabled || l.config.Whitelist[clientID] {
		return true, Info{Allowed: true}
	}
	if l.config.Blacklist[clientID] {
		return false, Info{Allowed: false}
	}

	endpoint := MatchEndpoint(path, method, l.config.EndpointConfigs)
	if endpoint == nil {
		endpoint = &EndpointConfig{Path: "*", Method: "*", Rate: l.config.DefaultRate, Burst: l.config.DefaultBurst}
	}
	if endpoint.Rate <= 0 {
		return true, Info{Allowed: true}
	}

	now := l.now()
	b := l.getBucket(clientID+":"+endpoint.Method+":"+endpoint.Path, endpoint, now)

	info := Info{Limit: b.burst}
	if b.limiter.AllowN(now, 1) {
		info.Allowed = true
	} else {
		reservation := b.limiter.ReserveN(now, 1)
		if reservation.OK() {
			info.RetryAfter = reservation.DelayFrom(now)
			reservation.CancelAt(now)
		}
	}

	tokens := b.limiter.TokensAt(now)
	if tokens < 0 {
		tokens = 0
	}
	info.Remaining = int(tokens)
	missing := float64(b.burst) - tokens
	info.ResetTime = now.Add(time.Duration(missing / float64(endpoint.Rate) * float64(time.Second)))
	return info.Allowed, info
}

func (l *Limiter) getBucket(key string, endpoint *EndpointConfig, now time.Time) *bucket {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		burst := endpoint.Burst
		if burst <= 0 {
			burst = 1
		}
		b = &bucket{limiter: rate.NewLimiter(endpoint.Rate, burst), burst: burst}
		l.buckets[key] = b
	}
	b.lastSeen = now
	return b
}

func (l *Limiter) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.cleanupBuckets(l.now().Add(-l.config.IdleTTL))
		case <-l.cleanupStop:
			return
		}
	}
}

// cleanupBuckets drops buckets last used before cutoff
func (l *Limiter) cleanupBuckets(cutoff time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, key)
		}
	}
}

// Stop stops the cleanup goroutine. It is safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() {
		if l.cleanupStop != nil {
			close(l.cleanupStop)
		}
	})
}
