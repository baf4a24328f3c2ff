package store

import (
	"context"
	"time"
)

// Listener receives the committed value and the value it replaced.
type Listener[T any] func(state, previous T)

// SetFunc merges update into the current value.
type SetFunc[T any] func(update Update[T])

// GetFunc returns the current value.
type GetFunc[T any] func() T

// Initializer produces the first value of a store when nothing was persisted.
// It receives the store operations so the value can close over them. It is
// called at most once per store.
type Initializer[T any] func(set SetFunc[T], get GetFunc[T], api *Store[T]) T

// Logger receives warnings for persistence faults and errors for listener
// faults. *slog.Logger satisfies it.
type Logger interface {
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Observer receives lifecycle callbacks for instrumentation. Start hooks may
// return a derived context which is handed back to the matching Complete hook.
type Observer interface {
	OnSetStart(ctx context.Context, key string, mode Mode) context.Context
	OnSetComplete(ctx context.Context, changed bool, listeners int, duration time.Duration)
	OnPersistStart(ctx context.Context, key string, op string) context.Context
	OnPersistComplete(ctx context.Context, duration time.Duration, err error)
	OnListenerFault(ctx context.Context, key string, recovered any)
}

// Mode selects how an update combines with the current value.
type Mode string

const (
	ModeMerge   Mode = "merge"
	ModeReplace Mode = "replace"
)

// Response stores a typed result produced by an evaluator.
type Response[T any] struct {
	Value T
}

// RuleContext carries inputs needed when evaluating an expression.
type RuleContext struct {
	Snapshot any
	Previous any
	Now      *time.Time
	Args     map[string]any
	Metadata map[string]any
	Key      string
}

func (ctx RuleContext) withDefaultNow() RuleContext {
	if ctx.Now != nil {
		return ctx
	}
	now := time.Now()
	ctx.Now = &now
	return ctx
}

func (ctx RuleContext) timestamp() time.Time {
	ctx = ctx.withDefaultNow()
	return *ctx.Now
}

func (ctx RuleContext) withDefaultMaps() RuleContext {
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) withDefaults() RuleContext {
	return ctx.withDefaultNow().withDefaultMaps()
}

func (ctx RuleContext) keyLabel() string {
	if ctx.Key != "" {
		return ctx.Key
	}
	return "unknown"
}

// bindings returns the variables every engine exposes: now, args, metadata,
// key, state and prev, plus the top-level fields of a record snapshot.
// Snapshot fields never shadow the reserved names.
func (ctx RuleContext) bindings() map[string]any {
	env := map[string]any{}
	if snapshot, ok := ctx.Snapshot.(map[string]any); ok {
		for key, value := range snapshot {
			env[key] = value
		}
	}
	env["now"] = ctx.timestamp()
	env["args"] = ctx.Args
	env["metadata"] = ctx.Metadata
	env["key"] = ctx.Key
	env["state"] = ctx.Snapshot
	env["prev"] = ctx.Previous
	return env
}

// Evaluator executes expressions against a rule context.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string, opts ...CompileOption) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// CompileOption configures evaluator compile behaviour.
type CompileOption interface {
	applyCompileOption(*compileConfig)
}

type compileConfig struct{}
