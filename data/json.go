package data

import (
	"encoding/json"
	"fmt"
)

// JSONCodec serializes values as JSON.
type JSONCodec struct{}

func (JSONCodec) Marshal(v any) ([]byte, error) {
	out, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshalling json: %w", err)
	}

	return out, nil
}

func (JSONCodec) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshalling json: %w", err)
	}

	return nil
}

func (JSONCodec) ContentType() string { return "application/json" }

func (JSONCodec) Name() string { return "json" }
