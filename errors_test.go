package store

import (
	"errors"
	"strings"
	"testing"
)

func TestWrapEvaluationErrorCreatesMetadata(t *testing.T) {
	base := errors.New("boom")
	err := wrapEvaluationError("expr", "count > missing", "counter", base)

	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected EvaluationError, got %T", err)
	}
	if evalErr.Engine != "expr" || evalErr.Expr != "count > missing" || evalErr.Key != "counter" {
		t.Fatalf("unexpected metadata %+v", evalErr)
	}
	if !errors.Is(err, base) {
		t.Fatalf("wrapped error should unwrap to base error")
	}
	if !strings.HasPrefix(err.Error(), "store: expr evaluator") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestWrapEvaluationErrorAugmentsExisting(t *testing.T) {
	base := errors.New("compile failure")
	existing := &EvaluationError{
		Engine: "expr",
		Err:    base,
	}

	err := wrapEvaluationError("cel", "rule", "settings", existing)
	if !errors.Is(err, base) {
		t.Fatalf("expected base error to unwrap")
	}
	if existing.Engine != "expr" {
		t.Fatalf("existing engine should not be overwritten, got %q", existing.Engine)
	}
	if existing.Expr != "rule" || existing.Key != "settings" {
		t.Fatalf("expected expression and key to be filled, got %+v", existing)
	}
}

func TestWrapEvaluatorErrorKeepsPrefixed(t *testing.T) {
	prefixed := errors.New("store: already wrapped")
	if wrapEvaluatorError("expr", prefixed) != prefixed {
		t.Fatalf("expected prefixed error to pass through")
	}
	wrapped := wrapEvaluatorError("cel", errors.New("bad"))
	if wrapped.Error() != "store: cel evaluator: bad" {
		t.Fatalf("unexpected wrap %q", wrapped.Error())
	}
	if wrapEvaluatorError("cel", nil) != nil {
		t.Fatalf("expected nil passthrough")
	}
}

func TestPersistenceErrorUnwraps(t *testing.T) {
	base := errors.New("quota exceeded")
	err := error(&PersistenceError{Op: "write", Key: "counter", Err: base})
	if !errors.Is(err, base) {
		t.Fatalf("expected unwrap to base")
	}
	if err.Error() != `store: write "counter": quota exceeded` {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
