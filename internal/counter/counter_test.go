package counter

import (
	"context"
	"testing"

	store "github.com/goliatone/go-store"
	"github.com/goliatone/go-store/pkg/medium"
)

func newCounter(t *testing.T, opts ...store.Option) *Counter {
	t.Helper()
	opts = append([]store.Option{store.WithRegistry(store.NewRegistry())}, opts...)
	c, err := New(opts...)
	if err != nil {
		t.Fatalf("new counter: %v", err)
	}
	return c
}

func TestActions(t *testing.T) {
	c := newCounter(t)
	var seen []int
	c.Store().Subscribe(func(state, _ State) { seen = append(seen, state.Count) })

	c.Increment()
	c.Increment()
	c.Decrement()
	if c.Count() != 1 {
		t.Fatalf("expected 1, got %d", c.Count())
	}
	c.Reset()
	c.Reset()
	if c.Count() != 0 {
		t.Fatalf("expected reset to zero, got %d", c.Count())
	}
	want := []int{1, 2, 1, 0}
	if len(seen) != len(want) {
		t.Fatalf("expected notifications %v, got %v", want, seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("expected notifications %v, got %v", want, seen)
		}
	}
}

func TestPersistedCount(t *testing.T) {
	session := medium.NewSession()
	first := newCounter(t, store.WithMedium(session))
	first.Increment()
	first.Increment()

	raw, ok, err := session.GetItem(context.Background(), DefaultKey)
	if err != nil || !ok || raw != `{"count":2}` {
		t.Fatalf("unexpected record %q ok=%v err=%v", raw, ok, err)
	}

	second := newCounter(t, store.WithMedium(session))
	if second.Count() != 2 {
		t.Fatalf("expected persisted count 2, got %d", second.Count())
	}
	if second.Store().Initial().Count != 2 {
		t.Fatalf("expected initial to be the persisted value")
	}
}

func TestSameKeySharesCounter(t *testing.T) {
	registry := store.NewRegistry()
	a := newCounter(t, store.WithRegistry(registry))
	b := newCounter(t, store.WithRegistry(registry))
	a.Increment()
	if b.Count() != 1 || a.Store() != b.Store() {
		t.Fatalf("expected one shared counter per key")
	}
}

func TestKeyMismatch(t *testing.T) {
	registry := store.NewRegistry()
	store.MustNew(func(store.SetFunc[string], store.GetFunc[string], *store.Store[string]) string {
		return "taken"
	}, store.WithRegistry(registry), store.WithKey(DefaultKey))

	if _, err := New(store.WithRegistry(registry)); err == nil {
		t.Fatalf("expected type mismatch error")
	}
}
