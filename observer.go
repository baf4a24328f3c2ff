package store

import (
	"context"
	"time"
)

type noopObserver struct{}

func (noopObserver) OnSetStart(ctx context.Context, _ string, _ Mode) context.Context { return ctx }

func (noopObserver) OnSetComplete(context.Context, bool, int, time.Duration) {}

func (noopObserver) OnPersistStart(ctx context.Context, _ string, _ string) context.Context {
	return ctx
}

func (noopObserver) OnPersistComplete(context.Context, time.Duration, error) {}

func (noopObserver) OnListenerFault(context.Context, string, any) {}
