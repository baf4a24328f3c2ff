// Package counter is a persisted integer counter built on a keyed store.
package counter

import (
	"fmt"

	store "github.com/goliatone/go-store"
)

// DefaultKey names the counter store when no key is given.
const DefaultKey = "counter"

// State is the persisted counter record.
type State struct {
	Count int `json:"count" yaml:"count" toml:"count"`
}

// Counter exposes the counter actions over its store.
type Counter struct {
	store *store.Store[State]
}

// New returns the counter for the key configured in opts, starting at zero
// when nothing is persisted.
func New(opts ...store.Option) (*Counter, error) {
	opts = append([]store.Option{store.WithKey(DefaultKey)}, opts...)
	s, err := store.New(func(store.SetFunc[State], store.GetFunc[State], *store.Store[State]) State {
		return State{}
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("counter: %w", err)
	}
	return &Counter{store: s}, nil
}

// Increment adds one.
func (c *Counter) Increment() {
	c.store.Set(store.Func(func(s State) State { return State{Count: s.Count + 1} }))
}

// Decrement subtracts one.
func (c *Counter) Decrement() {
	c.store.Set(store.Func(func(s State) State { return State{Count: s.Count - 1} }))
}

// Reset replaces the record with a zero count.
func (c *Counter) Reset() {
	c.store.Replace(store.Value(State{}))
}

// Count returns the current count.
func (c *Counter) Count() int {
	return c.store.Get().Count
}

// Store returns the underlying store.
func (c *Counter) Store() *store.Store[State] {
	return c.store
}
