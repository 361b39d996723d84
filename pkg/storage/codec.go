package storage

import (
	"encoding/json"
	"fmt"
)

// encode serializes a value for storage. Plain strings pass through untouched
// so stored text stays human-readable; everything else is JSON-encoded.
func encode(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	data, err := json.Marshal(value)
	if err != nil {
		// Unserializable values degrade to their string form.
		return fmt.Sprint(value)
	}
	return string(data)
}

// decode parses stored text symmetrically with encode. Text that does not
// parse as JSON is returned as the raw string rather than failing.
func decode(text string) any {
	var value any
	if err := json.Unmarshal([]byte(text), &value); err != nil {
		return text
	}
	// JSON strings decode back to the string itself, keeping Set/Get
	// symmetric for both quoted and unquoted text.
	return value
}
