// Package msgpack provides MessagePack decoding for filter input payloads.
// Used by modelfilter.ParseMsgpack to deserialize request bodies.
package msgpack

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// DecodeMap deserializes MessagePack data into a map[string]any.
// Filter input structure is not known at compile time, so all payloads decode
// through the generic map form.
func DecodeMap(data []byte) (map[string]any, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty MessagePack data")
	}

	var result map[string]any
	if err := msgpack.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode MessagePack map: %w", err)
	}

	return result, nil
}

// Encode serializes a Go value into MessagePack format.
// Kept for round-trip use in tests and examples.
func Encode(v any) ([]byte, error) {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode MessagePack: %w", err)
	}

	return data, nil
}
