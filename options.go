package store

import (
	"context"
	"log/slog"

	"github.com/goliatone/go-store/pkg/activity"
	"github.com/goliatone/go-store/pkg/codec"
	"github.com/goliatone/go-store/pkg/medium"
)

// DefaultKey is used when no key is configured.
const DefaultKey = "default_store"

// Option configures a store at construction time.
type Option func(*storeConfig)

type storeConfig struct {
	key          string
	medium       medium.Medium
	codec        codec.Codec
	serializer   any
	deserializer any
	registry     *Registry
	logger       Logger
	ctx          context.Context
	observer     Observer

	activityHooks  activity.Hooks
	activityConfig activity.Config
	activitySet    bool

	evaluator    Evaluator
	programCache ProgramCache
	functions    *FunctionRegistry
	evalLogger   EvaluatorLogger
}

func applyOptions(opts []Option) storeConfig {
	cfg := storeConfig{
		key:   DefaultKey,
		codec: codec.JSON(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.key == "" {
		cfg.key = DefaultKey
	}
	if cfg.registry == nil {
		cfg.registry = DefaultRegistry()
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.ctx == nil {
		cfg.ctx = context.Background()
	}
	if cfg.observer == nil {
		cfg.observer = noopObserver{}
	}
	if cfg.evalLogger == nil {
		cfg.evalLogger = noopEvaluatorLogger{}
	}
	if !cfg.activitySet {
		cfg.activityConfig.Enabled = len(cfg.activityHooks) > 0
	}
	return cfg
}

// WithKey sets the registry and persistence key. Default is "default_store".
func WithKey(key string) Option {
	return func(cfg *storeConfig) {
		cfg.key = key
	}
}

// WithMedium configures where the value is persisted. A nil medium disables
// persistence, which is also the default.
func WithMedium(m medium.Medium) Option {
	return func(cfg *storeConfig) {
		cfg.medium = m
	}
}

// WithCodec sets both serializer and deserializer from c. Explicit
// WithSerializer or WithDeserializer options take precedence.
func WithCodec(c codec.Codec) Option {
	return func(cfg *storeConfig) {
		cfg.codec = c
	}
}

// WithSerializer overrides the encoder. fn must be a func(T) (string, error)
// for the store's T, otherwise New fails with ErrInvalidOption.
func WithSerializer[T any](fn func(T) (string, error)) Option {
	return func(cfg *storeConfig) {
		cfg.serializer = fn
	}
}

// WithDeserializer overrides the decoder. Keeping it compatible with the
// serializer is the caller's responsibility.
func WithDeserializer[T any](fn func(string) (T, error)) Option {
	return func(cfg *storeConfig) {
		cfg.deserializer = fn
	}
}

// WithRegistry selects the registry the store is cached in.
func WithRegistry(r *Registry) Option {
	return func(cfg *storeConfig) {
		cfg.registry = r
	}
}

// WithLogger sets the logger used for persistence and listener faults.
func WithLogger(logger Logger) Option {
	return func(cfg *storeConfig) {
		cfg.logger = logger
	}
}

// WithContext sets the context passed to the medium, hooks and observer.
func WithContext(ctx context.Context) Option {
	return func(cfg *storeConfig) {
		cfg.ctx = ctx
	}
}

// WithObserver attaches lifecycle instrumentation.
func WithObserver(observer Observer) Option {
	return func(cfg *storeConfig) {
		cfg.observer = observer
	}
}

// WithEvaluator configures the expression engine. Default is expr.
func WithEvaluator(e Evaluator) Option {
	return func(cfg *storeConfig) {
		cfg.evaluator = e
	}
}
