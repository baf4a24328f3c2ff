package store

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/goliatone/go-store/pkg/activity"
)

func TestActivityEventsForLifecycle(t *testing.T) {
	capture := &activity.CaptureHook{}
	s := MustNew(constant(counterState{Count: 1}),
		WithRegistry(NewRegistry()),
		WithKey("counter"),
		WithActivityHooks(activity.Hooks{nil, capture}),
	)
	s.Replace(Value(counterState{Count: 1}))
	s.Set(Patch[counterState](Fields{"count": 2}))

	if verbs := capture.Verbs(); !reflect.DeepEqual(verbs, []string{activity.VerbStoreCreated, activity.VerbStoreUpdated}) {
		t.Fatalf("unexpected verbs %v", verbs)
	}
	events := capture.Snapshot()
	created, updated := events[0], events[1]
	if created.ObjectType != "store" || created.ObjectID != "counter" || created.Channel != "store" {
		t.Fatalf("unexpected created event %+v", created)
	}
	if created.Metadata["source"] != "initializer" || created.Metadata["instance_id"] != s.ID() {
		t.Fatalf("unexpected created metadata %+v", created.Metadata)
	}
	if updated.Metadata["revision"] != uint64(2) || updated.Metadata["mode"] != "merge" {
		t.Fatalf("unexpected updated metadata %+v", updated.Metadata)
	}
	if !reflect.DeepEqual(updated.Metadata["new_value"], map[string]any{"count": float64(2)}) {
		t.Fatalf("unexpected new_value %#v", updated.Metadata["new_value"])
	}
}

func TestActivityHookFailureIsLogged(t *testing.T) {
	logger := &recordingLogger{}
	failing := activity.HookFunc(func(context.Context, activity.Event) error {
		return errors.New("sink down")
	})
	s := MustNew(constant(0),
		WithRegistry(NewRegistry()),
		WithLogger(logger),
		WithActivityHooks(activity.Hooks{failing}),
	)
	s.Set(Value(1))
	if s.Get() != 1 {
		t.Fatalf("hook failure must not affect state")
	}
	if logger.count("warn") != 2 {
		t.Fatalf("expected created and updated hook failures logged, got %d", logger.count("warn"))
	}
}

func TestActivityConfigCanDisable(t *testing.T) {
	capture := &activity.CaptureHook{}
	MustNew(constant(0),
		WithRegistry(NewRegistry()),
		WithActivityHooks(activity.Hooks{capture}),
		WithActivityConfig(activity.Config{Enabled: false}),
	)
	if len(capture.Snapshot()) != 0 {
		t.Fatalf("expected no events when disabled")
	}
}

func TestActivityConfigDefaults(t *testing.T) {
	capture := &activity.CaptureHook{}
	MustNew(constant(0),
		WithRegistry(NewRegistry()),
		WithActivityHooks(activity.Hooks{capture}),
		WithActivityConfig(activity.Config{Enabled: true, Channel: "audit", ActorID: "svc"}),
	)
	events := capture.Snapshot()
	if len(events) != 1 || events[0].Channel != "audit" || events[0].ActorID != "svc" {
		t.Fatalf("unexpected events %+v", events)
	}
}

func TestActivityHooksAccessorClones(t *testing.T) {
	hook := activity.HookFunc(func(context.Context, activity.Event) error { return nil })
	s := MustNew(constant(0), WithRegistry(NewRegistry()), WithActivityHooks(activity.Hooks{nil, hook}))

	hooks := s.ActivityHooks()
	if len(hooks) != 1 {
		t.Fatalf("expected 1 hook, got %d", len(hooks))
	}
	hooks[0] = nil
	if again := s.ActivityHooks(); len(again) != 1 || again[0] == nil {
		t.Fatalf("expected cloned hooks unaffected by mutation, got %+v", again)
	}

	plain := MustNew(constant(0), WithRegistry(NewRegistry()))
	if plain.ActivityHooks() != nil {
		t.Fatalf("expected nil hooks by default")
	}
}
