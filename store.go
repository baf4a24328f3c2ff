package store

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-store/merge"
	"github.com/goliatone/go-store/pkg/activity"
)

// Store is an observable container for a single value of type T.
type Store[T any] struct {
	key     string
	id      string
	cfg     storeConfig
	persist *persister[T]
	emitter *activity.Emitter

	evalOnce  sync.Once
	evaluator Evaluator

	// writeMu serializes updates; mu guards the fields below it.
	writeMu      sync.Mutex
	mu           sync.RWMutex
	state        T
	initial      T
	revision     uint64
	listeners    []listenerEntry[T]
	nextListener uint64
}

type listenerEntry[T any] struct {
	id uint64
	fn Listener[T]
}

// New returns the store registered under the configured key, building it on
// first use. A new store loads its persisted value when one exists and calls
// init otherwise. The resolved value is written back once when a medium is
// configured.
//
// A key already holding a store of another type yields ErrTypeMismatch.
// Options of a later call for an existing key are ignored.
func New[T any](init Initializer[T], opts ...Option) (*Store[T], error) {
	cfg := applyOptions(opts)
	persist, err := newPersister[T](cfg)
	if err != nil {
		return nil, err
	}

	instance := cfg.registry.GetOrCreate(cfg.key, func() any {
		return build(init, cfg, persist)
	})
	s, ok := instance.(*Store[T])
	if !ok {
		return nil, fmt.Errorf("%w: key %q holds %T, want *Store[%s]", ErrTypeMismatch, cfg.key, instance, typeName[T]())
	}
	return s, nil
}

// MustNew is like New but panics on error.
func MustNew[T any](init Initializer[T], opts ...Option) *Store[T] {
	s, err := New(init, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

func build[T any](init Initializer[T], cfg storeConfig, persist *persister[T]) *Store[T] {
	s := &Store[T]{
		key:     cfg.key,
		id:      uuid.NewString(),
		cfg:     cfg,
		persist: persist,
		emitter: activity.NewEmitter(cfg.activityHooks, cfg.activityConfig),
	}

	source := "persisted"
	value, found := persist.load(cfg.ctx)
	if !found {
		source = "initializer"
		if init != nil {
			value = init(s.Set, s.Get, s)
		}
	}

	s.mu.Lock()
	s.state = value
	s.initial = value
	s.revision++
	revision := s.revision
	s.mu.Unlock()

	persist.store(cfg.ctx, revision, value)
	s.emit(func() activity.Event {
		return activity.BuildStoreCreatedEvent(activity.StoreEventInput{
			Key:        s.key,
			InstanceID: s.id,
			Revision:   revision,
			Source:     source,
			NewValue:   snapshotOf(value),
		})
	})
	return s
}

// Key returns the registry and persistence key.
func (s *Store[T]) Key() string {
	return s.key
}

// ID returns the identifier assigned when the store was built.
func (s *Store[T]) ID() string {
	return s.id
}

// Get returns the current value.
func (s *Store[T]) Get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Initial returns the value resolved at construction.
func (s *Store[T]) Initial() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initial
}

// Revision counts committed values, including the initial one.
func (s *Store[T]) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// Set merges update into the current value one level deep. Record shaped
// values are combined key by key, anything else is replaced.
func (s *Store[T]) Set(update Update[T]) {
	s.apply(update, ModeMerge)
}

// Replace swaps the current value for update. A partial update is applied to
// the zero value of T, dropping every key it does not name.
func (s *Store[T]) Replace(update Update[T]) {
	s.apply(update, ModeReplace)
}

// Subscribe registers listener for every accepted change and returns a
// function removing it. Calling the returned function again has no effect.
// Registering the same function twice yields two independent registrations.
func (s *Store[T]) Subscribe(listener Listener[T]) (dispose func()) {
	if listener == nil {
		return func() {}
	}
	s.mu.Lock()
	s.nextListener++
	id := s.nextListener
	s.listeners = append(s.listeners, listenerEntry[T]{id: id, fn: listener})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { s.unsubscribe(id) })
	}
}

// Listeners reports how many listeners are registered.
func (s *Store[T]) Listeners() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.listeners)
}

func (s *Store[T]) unsubscribe(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = slices.DeleteFunc(slices.Clone(s.listeners), func(entry listenerEntry[T]) bool {
		return entry.id == id
	})
}

func (s *Store[T]) apply(update Update[T], mode Mode) {
	ctx := s.cfg.observer.OnSetStart(s.cfg.ctx, s.key, mode)
	start := time.Now()

	s.writeMu.Lock()
	previous := s.Get()
	next, changed := s.next(previous, update.resolve(previous), mode)
	if !changed {
		s.writeMu.Unlock()
		s.cfg.observer.OnSetComplete(ctx, false, 0, time.Since(start))
		return
	}

	s.mu.Lock()
	s.state = next
	s.revision++
	revision := s.revision
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()
	s.writeMu.Unlock()

	s.persist.store(ctx, revision, next)
	s.notify(ctx, listeners, next, previous)
	s.emit(func() activity.Event {
		return activity.BuildStoreUpdatedEvent(activity.StoreEventInput{
			Key:        s.key,
			InstanceID: s.id,
			Revision:   revision,
			Mode:       string(mode),
			OldValue:   snapshotOf(previous),
			NewValue:   snapshotOf(next),
		})
	})
	s.cfg.observer.OnSetComplete(ctx, true, len(listeners), time.Since(start))
}

// next computes the value that follows current. It reports false when the
// update leaves the store untouched: a Func or a Replace yielding the current
// value, a scalar Value equal to it, or a partial that cannot be applied.
func (s *Store[T]) next(current T, c candidate[T], mode Mode) (T, bool) {
	if !c.partial {
		structured := mode == ModeMerge && merge.Structured(c.full)
		// a plain record merged in always yields a fresh value
		if structured && !c.derived {
			return merge.Shallow(current, c.full), true
		}
		if merge.Identical(c.full, current) {
			return current, false
		}
		if structured {
			return merge.Shallow(current, c.full), true
		}
		return c.full, true
	}

	var (
		next T
		err  error
	)
	if mode == ModeMerge {
		next, err = merge.Apply(current, map[string]any(c.fields))
	} else {
		next, err = merge.Materialize[T](map[string]any(c.fields))
	}
	if err != nil {
		s.cfg.logger.Warn("store: partial update ignored", "key", s.key, "mode", string(mode), "error", err)
		return current, false
	}
	return next, true
}

func (s *Store[T]) notify(ctx context.Context, listeners []listenerEntry[T], next, previous T) {
	for _, entry := range listeners {
		s.invoke(ctx, entry, next, previous)
	}
}

func (s *Store[T]) invoke(ctx context.Context, entry listenerEntry[T], next, previous T) {
	defer func() {
		if r := recover(); r != nil {
			s.cfg.logger.Error("store: listener panicked", "key", s.key, "listener", entry.id, "panic", r)
			s.cfg.observer.OnListenerFault(ctx, s.key, r)
		}
	}()
	entry.fn(next, previous)
}

// emit builds the event only when some hook will receive it.
func (s *Store[T]) emit(build func() activity.Event) {
	if !s.emitter.Enabled() {
		return
	}
	event := build()
	if err := s.emitter.Emit(s.cfg.ctx, event); err != nil {
		s.cfg.logger.Warn("store: activity hook failed", "key", s.key, "verb", event.Verb, "error", err)
	}
}
