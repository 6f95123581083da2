package cache

import (
	"context"
	"time"
)

// Layered puts a process-local L1 in front of a shared L2 (Redis).
type Layered struct {
	l1    BytesCache
	l2    BytesCache
	l1TTL time.Duration
}

// NewLayered keeps L1 entries for at most l1TTL so replicas converge on L2.
func NewLayered(l1, l2 BytesCache, l1TTL time.Duration) *Layered {
	return &Layered{l1: l1, l2: l2, l1TTL: l1TTL}
}

func (c *Layered) GetBytes(ctx context.Context, key string) ([]byte, bool, error) {
	if b, ok, _ := c.l1.GetBytes(ctx, key); ok {
		return b, true, nil
	}
	b, ok, err := c.l2.GetBytes(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	_ = c.l1.SetBytes(ctx, key, b, c.l1TTL)
	return b, true, nil
}

// SetBytes writes through: L2 first, then L1.
func (c *Layered) SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.l2.SetBytes(ctx, key, value, ttl); err != nil {
		return err
	}
	l1TTL := c.l1TTL
	if ttl > 0 && ttl < l1TTL {
		l1TTL = ttl
	}
	return c.l1.SetBytes(ctx, key, value, l1TTL)
}
