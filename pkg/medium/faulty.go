package medium

import (
	"context"
	"sync"
)

// Faulty wraps a Medium and returns configured errors instead of delegating.
// A nil Inner behaves like an empty Session.
type Faulty struct {
	Inner    Medium
	ReadErr  error
	WriteErr error

	mu     sync.Mutex
	reads  int
	writes int
}

func (f *Faulty) GetItem(ctx context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	f.reads++
	err := f.ReadErr
	f.mu.Unlock()
	if err != nil {
		return "", false, err
	}
	return f.inner().GetItem(ctx, key)
}

func (f *Faulty) SetItem(ctx context.Context, key, value string) error {
	f.mu.Lock()
	f.writes++
	err := f.WriteErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.inner().SetItem(ctx, key, value)
}

// Calls reports how many reads and writes were attempted.
func (f *Faulty) Calls() (reads, writes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads, f.writes
}

func (f *Faulty) inner() Medium {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Inner == nil {
		f.Inner = NewSession()
	}
	return f.Inner
}
