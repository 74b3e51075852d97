package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/blicktrack/platform/internal/config"
	redis "github.com/redis/go-redis/v9"
)

const keyEntitlementTenant = "entitlement:check:tenant:%s"

// EntitlementLimiter throttles entitlement checks per tenant. A nil
// limiter (no Redis configured) allows everything.
type EntitlementLimiter struct {
	enabled bool

	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewEntitlementLimiter(cfg config.Config, client *redis.Client) *EntitlementLimiter {
	if client == nil {
		return nil
	}
	rate := cfg.EntitlementRate
	burst := cfg.EntitlementBurst
	if rate <= 0 || burst <= 0 {
		return nil
	}
	return &EntitlementLimiter{
		enabled: true,
		bucket:  NewTokenBucket(client),
		rate:    rate,
		burst:   burst,
	}
}

func (l *EntitlementLimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *EntitlementLimiter) AllowTenant(ctx context.Context, tenantID string) (*Result, error) {
	if !l.Enabled() {
		return &Result{Allowed: true}, nil
	}
	key := fmt.Sprintf(keyEntitlementTenant, strings.TrimSpace(tenantID))
	return l.bucket.Allow(ctx, key, l.rate, l.burst)
}

// RetryAfterSeconds rounds up for the Retry-After header.
func (r *Result) RetryAfterSeconds() int {
	if r == nil || r.RetryAfter <= 0 {
		return 1
	}
	seconds := int((r.RetryAfter + time.Second - 1) / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	return seconds
}
