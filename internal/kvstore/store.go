// Package kvstore is a small versioned key-value cache. Every value is
// wrapped in an envelope carrying the schema version and an optional expiry;
// entries written under another version read as misses and are evicted.
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SchemaVersion is the envelope version written by this build.
const SchemaVersion = 1

// ErrEmptyKey is returned for operations on an empty key.
var ErrEmptyKey = errors.New("kvstore: empty key")

// Store is implemented by every backend.
type Store interface {
	// Get decodes the value stored at key into dst and reports whether it was found.
	Get(ctx context.Context, key string, dst any) (bool, error)
	// Set stores value under key. A zero ttl never expires.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error
	// Clear removes every key owned by the store.
	Clear(ctx context.Context) error
}

type envelope struct {
	Version int             `json:"version"`
	SavedAt time.Time       `json:"saved_at"`
	Expires *time.Time      `json:"expires,omitempty"`
	Data    json.RawMessage `json:"data"`
}

type options struct {
	version int
	now     func() time.Time
}

// Option configures a backend.
type Option func(*options)

// WithVersion overrides the schema version, mainly for migrations and tests.
func WithVersion(v int) Option {
	return func(o *options) { o.version = v }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func newOptions(opts []Option) options {
	o := options{version: SchemaVersion, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) encode(value any, ttl time.Duration) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode value: %w", err)
	}

	now := o.now().UTC()
	env := envelope{Version: o.version, SavedAt: now, Data: data}
	if ttl > 0 {
		exp := now.Add(ttl)
		env.Expires = &exp
	}

	raw, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return raw, nil
}

// decode reports found=false and stale=true when the entry must be evicted.
func (o options) decode(raw []byte, dst any) (found, stale bool, err error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return false, true, nil
	}
	if env.Version != o.version {
		return false, true, nil
	}
	if env.Expires != nil && !o.now().Before(*env.Expires) {
		return false, true, nil
	}
	if dst == nil {
		return true, false, nil
	}
	if err := json.Unmarshal(env.Data, dst); err != nil {
		return false, false, fmt.Errorf("decode value: %w", err)
	}
	return true, false, nil
}
