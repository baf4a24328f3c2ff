package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-store/pkg/codec"
	"github.com/goliatone/go-store/pkg/medium"
)

// persister moves values between a store and its medium. Every operation
// returns its fault; the store decides to log and continue.
type persister[T any] struct {
	key      string
	medium   medium.Medium
	encode   func(T) (string, error)
	decode   func(string) (T, error)
	logger   Logger
	observer Observer

	mu       sync.Mutex
	written  uint64
	hasWrite bool
}

func newPersister[T any](cfg storeConfig) (*persister[T], error) {
	p := &persister[T]{
		key:      cfg.key,
		medium:   cfg.medium,
		encode:   codec.Serializer[T](cfg.codec),
		decode:   codec.Deserializer[T](cfg.codec),
		logger:   cfg.logger,
		observer: cfg.observer,
	}
	if cfg.serializer != nil {
		fn, ok := cfg.serializer.(func(T) (string, error))
		if !ok {
			return nil, fmt.Errorf("%w: serializer %T does not accept %s", ErrInvalidOption, cfg.serializer, typeName[T]())
		}
		p.encode = fn
	}
	if cfg.deserializer != nil {
		fn, ok := cfg.deserializer.(func(string) (T, error))
		if !ok {
			return nil, fmt.Errorf("%w: deserializer %T does not produce %s", ErrInvalidOption, cfg.deserializer, typeName[T]())
		}
		p.decode = fn
	}
	return p, nil
}

func (p *persister[T]) enabled() bool {
	return p != nil && p.medium != nil
}

// read returns the persisted value. An absent record, an empty record and a
// record holding null are all reported as not found.
func (p *persister[T]) read(ctx context.Context) (T, bool, error) {
	var zero T
	if !p.enabled() {
		return zero, false, nil
	}

	ctx = p.observer.OnPersistStart(ctx, p.key, "load")
	start := time.Now()
	value, found, err := p.readRecord(ctx)
	p.observer.OnPersistComplete(ctx, time.Since(start), err)
	return value, found, err
}

func (p *persister[T]) readRecord(ctx context.Context) (value T, found bool, err error) {
	var zero T
	op := "read"
	defer func() {
		if r := recover(); r != nil {
			value, found, err = zero, false, &PersistenceError{Op: op, Key: p.key, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	raw, ok, err := p.medium.GetItem(ctx, p.key)
	if err != nil {
		return zero, false, &PersistenceError{Op: "read", Key: p.key, Err: err}
	}
	trimmed := strings.TrimSpace(raw)
	if !ok || trimmed == "" || trimmed == "null" {
		return zero, false, nil
	}
	op = "decode"
	decoded, err := p.decode(raw)
	if err != nil {
		return zero, false, &PersistenceError{Op: op, Key: p.key, Err: err}
	}
	return decoded, true, nil
}

// load is read with faults logged and treated as not found.
func (p *persister[T]) load(ctx context.Context) (T, bool) {
	value, found, err := p.read(ctx)
	if err != nil {
		p.logger.Warn("store: persisted value ignored", "key", p.key, "error", err)
		var zero T
		return zero, false
	}
	return value, found
}

// write stores value for revision. Writes for a revision older than the last
// one written are skipped so a slow writer never overwrites newer state.
func (p *persister[T]) write(ctx context.Context, revision uint64, value T) error {
	if !p.enabled() {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.hasWrite && revision <= p.written {
		return nil
	}

	ctx = p.observer.OnPersistStart(ctx, p.key, "write")
	start := time.Now()
	err := p.writeRecord(ctx, value)
	p.observer.OnPersistComplete(ctx, time.Since(start), err)

	// a failed write still claims its revision
	p.written = revision
	p.hasWrite = true
	return err
}

// writeRecord reports a panicking codec or medium as a PersistenceError.
func (p *persister[T]) writeRecord(ctx context.Context, value T) (err error) {
	op := "encode"
	defer func() {
		if r := recover(); r != nil {
			err = &PersistenceError{Op: op, Key: p.key, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	raw, err := p.encode(value)
	if err != nil {
		return &PersistenceError{Op: op, Key: p.key, Err: err}
	}
	op = "write"
	if err := p.medium.SetItem(ctx, p.key, raw); err != nil {
		return &PersistenceError{Op: op, Key: p.key, Err: err}
	}
	return nil
}

// store is write with faults logged and otherwise ignored.
func (p *persister[T]) store(ctx context.Context, revision uint64, value T) {
	if err := p.write(ctx, revision, value); err != nil {
		p.logger.Warn("store: persist failed", "key", p.key, "revision", revision, "error", err)
	}
}

func typeName[T any]() string {
	var zero T
	return fmt.Sprintf("%T", &zero)[1:]
}
