//go:build !js_eval

package store

// NewJSEvaluator is unavailable without the js_eval build tag and returns nil.
// Stores configured with a nil evaluator fall back to expr.
func NewJSEvaluator(...JSEvaluatorOption) Evaluator {
	return nil
}

func jsEvaluatorAvailable() bool {
	return false
}
