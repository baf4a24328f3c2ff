package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

type counterState struct {
	Count int    `json:"count"`
	Label string `json:"label,omitempty"`
}

type logEntry struct {
	level string
	msg   string
	args  []any
}

type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordingLogger) Warn(msg string, args ...any) {
	l.record("warn", msg, args)
}

func (l *recordingLogger) Error(msg string, args ...any) {
	l.record("error", msg, args)
}

func (l *recordingLogger) record(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, args: args})
}

func (l *recordingLogger) count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, entry := range l.entries {
		if entry.level == level {
			n++
		}
	}
	return n
}

type recordingObserver struct {
	mu        sync.Mutex
	sets      []bool
	persisted []string
	failures  int
	faults    []any
}

func (o *recordingObserver) OnSetStart(ctx context.Context, _ string, _ Mode) context.Context {
	return ctx
}

func (o *recordingObserver) OnSetComplete(_ context.Context, changed bool, _ int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sets = append(o.sets, changed)
}

func (o *recordingObserver) OnPersistStart(ctx context.Context, _ string, op string) context.Context {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.persisted = append(o.persisted, op)
	return ctx
}

func (o *recordingObserver) OnPersistComplete(_ context.Context, _ time.Duration, err error) {
	if err == nil {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failures++
}

func (o *recordingObserver) OnListenerFault(_ context.Context, _ string, recovered any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.faults = append(o.faults, recovered)
}

type fakeProgramCache struct {
	store  map[string]any
	hits   int
	misses int
}

func (c *fakeProgramCache) Get(key string) (any, bool) {
	if c.store == nil {
		c.store = make(map[string]any)
	}
	value, ok := c.store[key]
	if ok {
		c.hits++
		return value, true
	}
	c.misses++
	return nil, false
}

func (c *fakeProgramCache) Set(key string, value any) {
	if c.store == nil {
		c.store = make(map[string]any)
	}
	c.store[key] = value
}

type capturingEvaluator struct {
	contexts []RuleContext
}

func (c *capturingEvaluator) Evaluate(ctx RuleContext, _ string) (any, error) {
	c.contexts = append(c.contexts, ctx)
	return true, nil
}

func (c *capturingEvaluator) Compile(string, ...CompileOption) (CompiledRule, error) {
	return nil, fmt.Errorf("capturing evaluator does not support compile")
}

var evaluatorFactories = []struct {
	name string
	new  func(cache ProgramCache, registry *FunctionRegistry) Evaluator
}{
	{
		name: "expr",
		new: func(cache ProgramCache, registry *FunctionRegistry) Evaluator {
			opts := []ExprEvaluatorOption{}
			if cache != nil {
				opts = append(opts, ExprWithProgramCache(cache))
			}
			if registry != nil {
				opts = append(opts, ExprWithFunctionRegistry(registry))
			}
			return NewExprEvaluator(opts...)
		},
	},
	{
		name: "cel",
		new: func(cache ProgramCache, registry *FunctionRegistry) Evaluator {
			opts := []CELEvaluatorOption{}
			if cache != nil {
				opts = append(opts, CELWithProgramCache(cache))
			}
			if registry != nil {
				opts = append(opts, CELWithFunctionRegistry(registry))
			}
			return NewCELEvaluator(opts...)
		},
	},
	{
		name: "js",
		new: func(cache ProgramCache, registry *FunctionRegistry) Evaluator {
			opts := []JSEvaluatorOption{}
			if cache != nil {
				opts = append(opts, JSWithProgramCache(cache))
			}
			if registry != nil {
				opts = append(opts, JSWithFunctionRegistry(registry))
			}
			return NewJSEvaluator(opts...)
		},
	},
}

func constant[T any](value T) Initializer[T] {
	return func(SetFunc[T], GetFunc[T], *Store[T]) T {
		return value
	}
}

// panickingMedium panics instead of returning errors.
type panickingMedium struct {
	readPanic  any
	writePanic any
}

func (m panickingMedium) GetItem(context.Context, string) (string, bool, error) {
	if m.readPanic != nil {
		panic(m.readPanic)
	}
	return "", false, nil
}

func (m panickingMedium) SetItem(context.Context, string, string) error {
	if m.writePanic != nil {
		panic(m.writePanic)
	}
	return nil
}

func (l *recordingLogger) persistenceErrors() []*PersistenceError {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*PersistenceError
	for _, entry := range l.entries {
		for _, arg := range entry.args {
			var perr *PersistenceError
			if err, ok := arg.(error); ok && errors.As(err, &perr) {
				out = append(out, perr)
			}
		}
	}
	return out
}
