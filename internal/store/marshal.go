package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/roach88/rewind/internal/canon"
)

// marshalSettings converts session settings to canonical JSON TEXT.
func marshalSettings(settings map[string]any) (string, error) {
	if len(settings) == 0 {
		return "{}", nil
	}
	data, err := canon.Marshal(settings)
	if err != nil {
		return "", fmt.Errorf("marshal settings: %w", err)
	}
	return string(data), nil
}

// unmarshalSettings parses settings TEXT. Numbers decode as json.Number so
// large integers survive.
func unmarshalSettings(data string) (map[string]any, error) {
	out := map[string]any{}
	if data == "" || data == "{}" {
		return out, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}
	return out, nil
}
