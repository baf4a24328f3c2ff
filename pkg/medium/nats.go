package medium

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NATS stores records in a JetStream key-value bucket.
type NATS struct {
	kv      jetstream.KeyValue
	timeout time.Duration
	closed  atomic.Bool
}

// NATSConfig holds NATS medium configuration.
type NATSConfig struct {
	// Conn is the NATS connection to use.
	Conn *nats.Conn

	// Bucket is the KV bucket name.
	Bucket string

	// History is the number of revisions to keep per key.
	// Default: 1
	History int

	// Timeout bounds every bucket operation.
	// Default: 5s
	Timeout time.Duration
}

// DefaultNATSConfig returns configuration with sensible defaults.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		Bucket:  "store-records",
		History: 1,
		Timeout: 5 * time.Second,
	}
}

// NewNATS creates (or updates) the configured bucket and returns a medium on it.
func NewNATS(cfg NATSConfig) (*NATS, error) {
	if cfg.Conn == nil {
		return nil, errors.New("medium: nats connection required")
	}
	defaults := DefaultNATSConfig()
	if cfg.Bucket == "" {
		cfg.Bucket = defaults.Bucket
	}
	if cfg.History <= 0 {
		cfg.History = defaults.History
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}

	js, err := jetstream.New(cfg.Conn)
	if err != nil {
		return nil, fmt.Errorf("medium: jetstream: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:  cfg.Bucket,
		History: uint8(cfg.History),
	})
	if err != nil {
		return nil, fmt.Errorf("medium: create kv bucket: %w", err)
	}
	return NewNATSFromKeyValue(kv, cfg.Timeout), nil
}

// NewNATSFromKeyValue wraps an existing bucket handle.
func NewNATSFromKeyValue(kv jetstream.KeyValue, timeout time.Duration) *NATS {
	if timeout <= 0 {
		timeout = DefaultNATSConfig().Timeout
	}
	return &NATS{kv: kv, timeout: timeout}
}

func (n *NATS) GetItem(ctx context.Context, key string) (string, bool, error) {
	if err := ValidateKey(key); err != nil {
		return "", false, err
	}
	if n.closed.Load() {
		return "", false, ErrClosed
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	entry, err := n.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("medium: kv get %q: %w", key, err)
	}
	return string(entry.Value()), true, nil
}

func (n *NATS) SetItem(ctx context.Context, key, value string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if n.closed.Load() {
		return ErrClosed
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	if _, err := n.kv.PutString(ctx, key, value); err != nil {
		return fmt.Errorf("medium: kv put %q: %w", key, err)
	}
	return nil
}

// Close marks the medium closed. The NATS connection is owned by the caller.
func (n *NATS) Close() error {
	n.closed.Store(true)
	return nil
}
