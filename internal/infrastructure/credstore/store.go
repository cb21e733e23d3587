// Package credstore provides the ephemeral credential store backing the
// account lifecycle flows: short-lived, single-purpose values (email
// verification codes, password reset tokens) kept under namespaced keys with
// a per-key TTL.
//
// The two operations the lifecycle core leans on for correctness are
// SetIfAbsent (two concurrent issuance requests for the same key must not
// both succeed) and GetAndDelete (two concurrent consumption attempts must
// not both observe the value).
package credstore

import (
	"context"
	"time"
)

// Store is the ephemeral credential store capability.
// Get and GetAndDelete return "" for keys that are absent or expired;
// a consumed, expired, and never-issued key are indistinguishable.
type Store interface {
	// SetIfAbsent writes value under key with the given TTL only when no
	// live value exists. Returns false when a prior value is still live.
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// Get returns the live value for key, or "".
	Get(ctx context.Context, key string) (string, error)
	// GetAndDelete atomically returns the live value for key and removes it.
	GetAndDelete(ctx context.Context, key string) (string, error)
	// Exists reports whether a live value exists for key.
	Exists(ctx context.Context, key string) (bool, error)
}
