package internal

import (
	"encoding/json"
)

// List accepts either a single JSON value or an array of values.
// Request bodies may pass "ports": 8080 or "ports": [8080, 8081] interchangeably.
type List[T any] []T

func (value *List[T]) UnmarshalJSON(data []byte) error {
	var single T
	if err := json.Unmarshal(data, &single); err == nil {
		*value = []T{single}
		return nil
	}

	var many []T
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}

	*value = many
	return nil
}
