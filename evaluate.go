package store

import (
	"errors"
	"fmt"
	"time"
)

// Evaluate runs expr against the current value. Record fields are bound as
// top-level variables and the whole value as state.
func (s *Store[T]) Evaluate(expr string) (Response[any], error) {
	return s.EvaluateWith(RuleContext{}, expr)
}

// EvaluateWith runs expr using ctx, falling back to the current value when
// ctx.Snapshot is nil.
func (s *Store[T]) EvaluateWith(ctx RuleContext, expr string) (Response[any], error) {
	if expr == "" {
		return Response[any]{}, ErrEmptyExpression
	}
	evaluator, err := s.resolveEvaluator()
	if err != nil {
		return Response[any]{}, err
	}
	if ctx.Snapshot == nil {
		ctx.Snapshot = snapshotOf(s.Get())
	}
	if ctx.Key == "" {
		ctx.Key = s.key
	}
	ctx = ctx.withDefaults()

	start := time.Now()
	value, evalErr := evaluator.Evaluate(ctx, expr)
	s.logEvaluation(evaluator, expr, time.Since(start), evalErr)
	if evalErr != nil {
		return Response[any]{}, wrapEvaluationError(evaluatorEngineName(evaluator), expr, ctx.keyLabel(), evalErr)
	}
	return Response[any]{Value: value}, nil
}

// SubscribeWhen registers listener for changes whose new value satisfies
// expr. The expression sees the new value as state and the previous one as
// prev. It is compiled once here; evaluation failures and non-boolean results
// skip the listener and are reported to the evaluator logger.
func (s *Store[T]) SubscribeWhen(expr string, listener Listener[T]) (dispose func(), err error) {
	if expr == "" {
		return nil, ErrEmptyExpression
	}
	if listener == nil {
		return func() {}, nil
	}
	evaluator, err := s.resolveEvaluator()
	if err != nil {
		return nil, err
	}
	rule, err := evaluator.Compile(expr)
	if err != nil {
		return nil, wrapEvaluationError(evaluatorEngineName(evaluator), expr, s.key, err)
	}

	return s.Subscribe(func(state, previous T) {
		ctx := RuleContext{
			Snapshot: snapshotOf(state),
			Previous: snapshotOf(previous),
			Key:      s.key,
		}.withDefaults()
		start := time.Now()
		result, evalErr := rule.Evaluate(ctx)
		if evalErr == nil {
			if _, ok := result.(bool); !ok {
				evalErr = fmt.Errorf("store: condition returned %T, want bool", result)
			}
		}
		s.logEvaluation(evaluator, expr, time.Since(start), evalErr)
		if matched, _ := result.(bool); evalErr == nil && matched {
			listener(state, previous)
		}
	}), nil
}

func (s *Store[T]) logEvaluation(evaluator Evaluator, expr string, duration time.Duration, err error) {
	s.cfg.evalLogger.LogEvaluation(EvaluatorLogEvent{
		Engine:   evaluatorEngineName(evaluator),
		Expr:     expr,
		Key:      s.key,
		Duration: duration,
		Err:      err,
	})
}

func (s *Store[T]) resolveEvaluator() (Evaluator, error) {
	s.evalOnce.Do(func() {
		if s.cfg.evaluator != nil {
			s.evaluator = s.cfg.evaluator
			return
		}
		var exprOpts []ExprEvaluatorOption
		if s.cfg.programCache != nil {
			exprOpts = append(exprOpts, ExprWithProgramCache(s.cfg.programCache))
		}
		if s.cfg.functions != nil {
			exprOpts = append(exprOpts, ExprWithFunctionRegistry(s.cfg.functions))
		}
		s.evaluator = NewExprEvaluator(exprOpts...)
	})
	if s.evaluator == nil {
		return nil, ErrNoEvaluator
	}
	return s.evaluator, nil
}

func evaluatorEngineName(e Evaluator) string {
	switch e.(type) {
	case nil:
		return "unknown"
	case *exprEvaluator:
		return "expr"
	case *celEvaluator:
		return "cel"
	default:
		if named, ok := e.(interface{ Engine() string }); ok {
			return named.Engine()
		}
		return "custom"
	}
}

// IsEvaluationError reports whether err came from an expression engine.
func IsEvaluationError(err error) bool {
	var evalErr *EvaluationError
	return errors.As(err, &evalErr)
}
