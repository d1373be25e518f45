package service

import (
	"bytes"
	"encoding/json"
)

// jsonCodec serializes plain Go structs for Connect. Registered under the name
// "json", it serves both application/json and application/connect+json.
// Unknown fields are ignored.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}
