package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"time"
)

// Cache stores marshaled analysis results keyed by input digest. Caching is
// strictly per-submission: identical inputs map to identical keys, nothing
// is shared between distinct documents.
type Cache interface {
	// Get retrieves a cached result. Returns nil, nil on a miss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a result with TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Close closes the cache connection.
	Close() error
}

// Key derives a cache key from the pipeline name and the exact request
// inputs. Parts are length-prefixed so concatenations cannot collide.
func Key(pipeline string, parts ...[]byte) string {
	h := sha256.New()
	h.Write([]byte(pipeline))
	var lenBuf [8]byte
	for _, p := range parts {
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(p)))
		h.Write(lenBuf[:])
		h.Write(p)
	}
	return hex.EncodeToString(h.Sum(nil))
}
