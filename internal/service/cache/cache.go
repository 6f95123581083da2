package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// BytesCache is a minimal cache API storing raw bytes with TTL.
// A miss is (nil, false, nil); err is reserved for backend failures.
type BytesCache interface {
	GetBytes(ctx context.Context, key string) (b []byte, ok bool, err error)
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Key builds "<kind>:<sha256(parts...)>" so arbitrarily long inputs map to a
// fixed-size key. Parts are length-prefixed to keep ("ab","c") and ("a","bc") apart.
func Key(kind string, parts ...[]byte) string {
	h := sha256.New()
	var n [8]byte
	for _, p := range parts {
		l := uint64(len(p))
		for i := 0; i < 8; i++ {
			n[i] = byte(l >> (8 * i))
		}
		h.Write(n[:])
		h.Write(p)
	}
	return kind + ":" + hex.EncodeToString(h.Sum(nil))
}
