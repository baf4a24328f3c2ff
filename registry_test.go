package store

import (
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
)

func TestRegistryGetOrCreate(t *testing.T) {
	reg := NewRegistry()
	calls := 0
	first := reg.GetOrCreate("a", func() any { calls++; return &calls })
	second := reg.GetOrCreate("a", func() any { t.Fatalf("factory must not run twice"); return nil })
	if first != second || calls != 1 {
		t.Fatalf("expected cached instance, calls=%d", calls)
	}
	if value, ok := reg.Lookup("a"); !ok || value != first {
		t.Fatalf("lookup failed: %v %v", value, ok)
	}
	if _, ok := reg.Lookup("missing"); ok {
		t.Fatalf("unexpected lookup hit")
	}
}

func TestRegistryConcurrentConstruction(t *testing.T) {
	reg := NewRegistry()
	var calls atomic.Int32
	var wg sync.WaitGroup
	results := make([]any, 20)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = reg.GetOrCreate("shared", func() any {
				calls.Add(1)
				return new(int)
			})
		}(i)
	}
	wg.Wait()
	if calls.Load() != 1 {
		t.Fatalf("expected one factory call, got %d", calls.Load())
	}
	for _, result := range results {
		if result != results[0] {
			t.Fatalf("expected every caller to receive the same instance")
		}
	}
}

func TestRegistryKeysSorted(t *testing.T) {
	reg := NewRegistry()
	for _, key := range []string{"b", "c", "a"} {
		reg.GetOrCreate(key, func() any { return key })
	}
	if keys := reg.Keys(); !reflect.DeepEqual(keys, []string{"a", "b", "c"}) {
		t.Fatalf("unexpected keys %v", keys)
	}
}

func TestDefaultRegistryShared(t *testing.T) {
	if DefaultRegistry() != DefaultRegistry() {
		t.Fatalf("expected a single default registry")
	}
	s := MustNew(constant(1), WithKey("registry_test.default"))
	if value, ok := DefaultRegistry().Lookup("registry_test.default"); !ok || value != s {
		t.Fatalf("expected store cached in the default registry")
	}
}

func TestZeroRegistryUsable(t *testing.T) {
	var reg Registry
	if reg.GetOrCreate("k", func() any { return 1 }) != 1 {
		t.Fatalf("zero registry should lazily initialise")
	}
}

func TestRegistryRetriesAfterFactoryPanic(t *testing.T) {
	reg := NewRegistry()
	func() {
		defer func() {
			if r := recover(); r != "init failed" {
				t.Fatalf("expected factory panic to propagate, got %v", r)
			}
		}()
		reg.GetOrCreate("p", func() any { panic("init failed") })
	}()

	if _, ok := reg.Lookup("p"); ok {
		t.Fatalf("failed construction must not be cached")
	}
	if got := reg.GetOrCreate("p", func() any { return 7 }); got != 7 {
		t.Fatalf("expected retry to build the instance, got %v", got)
	}
}

func TestNewRetriesAfterInitializerPanic(t *testing.T) {
	reg := NewRegistry()
	func() {
		defer func() {
			if recover() == nil {
				t.Fatalf("expected initializer panic to propagate")
			}
		}()
		New(func(SetFunc[int], GetFunc[int], *Store[int]) int { panic("boom") },
			WithRegistry(reg), WithKey("p"))
	}()

	s, err := New(constant(7), WithRegistry(reg), WithKey("p"))
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if s.Get() != 7 {
		t.Fatalf("expected retried initializer value, got %d", s.Get())
	}
}

func TestRegistryWaitersRetryAfterPanic(t *testing.T) {
	reg := NewRegistry()
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan any)

	go func() {
		defer func() { recover() }()
		reg.GetOrCreate("k", func() any {
			close(started)
			<-release
			panic("first attempt")
		})
	}()
	<-started
	go func() {
		done <- reg.GetOrCreate("k", func() any { return "second" })
	}()
	close(release)

	if got := <-done; got != "second" {
		t.Fatalf("expected waiter to build its own instance, got %v", got)
	}
}
