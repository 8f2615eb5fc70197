package persistence

import (
	"encoding/json"
	"fmt"

	"github.com/Layr-Labs/verified-messages-go/pkg/types"
)

// MarshalRecord serializes a PostedMessageRecord to JSON bytes.
func MarshalRecord(r *types.PostedMessageRecord) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("cannot marshal nil PostedMessageRecord")
	}

	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal PostedMessageRecord to JSON: %w", err)
	}

	return data, nil
}

// UnmarshalRecord deserializes a PostedMessageRecord from JSON bytes.
func UnmarshalRecord(data []byte) (*types.PostedMessageRecord, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cannot unmarshal empty data")
	}

	var r types.PostedMessageRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON to PostedMessageRecord: %w", err)
	}

	return &r, nil
}

// MarshalEvent serializes a PostedMessageEvent to JSON bytes.
func MarshalEvent(e *types.PostedMessageEvent) ([]byte, error) {
	if e == nil {
		return nil, fmt.Errorf("cannot marshal nil PostedMessageEvent")
	}

	return json.Marshal(e)
}

// UnmarshalEvent deserializes a PostedMessageEvent from JSON bytes.
func UnmarshalEvent(data []byte) (*types.PostedMessageEvent, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cannot unmarshal empty data")
	}

	var e types.PostedMessageEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON to PostedMessageEvent: %w", err)
	}

	return &e, nil
}
