package tts

import (
	"context"
	"math/rand/v2"
	"time"
)

// RotationPolicy bounds how often a synthesis switches keys after 401s.
type RotationPolicy struct {
	MaxRotations int           // 0 = try every key once, -1 = no limit
	BaseDelay    time.Duration // pause after a full pass over the pool
	MaxDelay     time.Duration // cap for the growing pause
}

// DefaultRotationPolicy tries each key once. The delays apply only when
// MaxRotations lets rotation wrap the pool.
func DefaultRotationPolicy() RotationPolicy {
	return RotationPolicy{
		BaseDelay: 500 * time.Millisecond,
		MaxDelay:  10 * time.Second,
	}
}

// limit returns the number of rotations allowed for a pool of poolSize
// keys, or -1 when unlimited.
func (p RotationPolicy) limit(poolSize int) int {
	switch {
	case p.MaxRotations < 0:
		return -1
	case p.MaxRotations > 0:
		return p.MaxRotations
	default:
		return poolSize - 1
	}
}

// delay is the pause before the attempt that follows rotation number
// rotations. Only a rotation that wraps back to the first key pauses.
func (p RotationPolicy) delay(rotations, poolSize int) time.Duration {
	if poolSize <= 0 || rotations == 0 || rotations%poolSize != 0 || p.BaseDelay <= 0 {
		return 0
	}
	maxDelay := p.MaxDelay
	if maxDelay < p.BaseDelay {
		maxDelay = p.BaseDelay
	}
	return backoffWithJitter(p.BaseDelay, maxDelay, rotations/poolSize-1)
}

// backoffWithJitter computes delay = min(base * 2^attempt, max) + jitter(±25%).
func backoffWithJitter(base, max time.Duration, attempt int) time.Duration {
	if attempt > 30 {
		attempt = 30
	}
	delay := base << uint(attempt)
	if delay > max || delay <= 0 {
		delay = max
	}

	quarter := delay / 4
	if quarter > 0 {
		jitter := time.Duration(rand.Int64N(int64(quarter*2))) - quarter
		delay += jitter
	}
	return delay
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
