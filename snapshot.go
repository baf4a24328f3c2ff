package store

import "encoding/json"

// snapshotOf returns the JSON view of value: records become map[string]any,
// numbers float64. Values that cannot round trip are returned unchanged.
func snapshotOf(value any) any {
	raw, err := json.Marshal(value)
	if err != nil {
		return value
	}
	var document any
	if err := json.Unmarshal(raw, &document); err != nil {
		return value
	}
	return document
}
