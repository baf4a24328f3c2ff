package store

import "github.com/goliatone/go-store/pkg/activity"

// WithActivityHooks attaches hooks notified with store.created and
// store.updated events. Hooks are cloned and nil entries dropped. Emission is
// enabled whenever at least one hook remains, unless WithActivityConfig says
// otherwise.
func WithActivityHooks(hooks activity.Hooks) Option {
	normalized := cloneActivityHooks(hooks)
	return func(cfg *storeConfig) {
		cfg.activityHooks = normalized
	}
}

// WithActivityConfig sets emission defaults such as channel and actor.
func WithActivityConfig(config activity.Config) Option {
	return func(cfg *storeConfig) {
		cfg.activityConfig = config
		cfg.activitySet = true
	}
}

// ActivityHooks returns a copy of the configured hooks.
func (s *Store[T]) ActivityHooks() activity.Hooks {
	if s == nil {
		return nil
	}
	return cloneActivityHooks(s.cfg.activityHooks)
}

func cloneActivityHooks(hooks activity.Hooks) activity.Hooks {
	if len(hooks) == 0 {
		return nil
	}
	normalized := make([]activity.ActivityHook, 0, len(hooks))
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		normalized = append(normalized, hook)
	}
	if len(normalized) == 0 {
		return nil
	}
	return activity.Hooks(normalized)
}
