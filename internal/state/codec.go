package state

import (
	"encoding/json"
	"fmt"
)

// envelope is the on-disk layout of a persisted snapshot: the schema
// version alongside the raw state payload. Decoders tolerate unknown
// fields inside State and leave fields missing from State at their
// prototype defaults - that is the forward/backward compatibility
// mechanism identified by Version.
type envelope struct {
	Version int             `json:"version"`
	State   json.RawMessage `json:"state"`
}

// Encode serializes a persistent state value into its versioned
// envelope. The payload is canonical JSON so identical values always
// produce identical bytes.
func Encode(p PersistentState) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("encode: nil persistent state")
	}
	payload, err := MarshalCanonical(p)
	if err != nil {
		return nil, fmt.Errorf("encode persistent state: %w", err)
	}
	data, err := json.Marshal(envelope{
		Version: p.StateVersion(),
		State:   payload,
	})
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return data, nil
}

// Decode parses a versioned envelope into prototype, which must be a
// pointer to a PersistentState value pre-populated with defaults.
// Fields absent from the payload keep their prototype defaults; unknown
// payload fields are ignored.
func Decode(data []byte, prototype any) error {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	if len(env.State) == 0 {
		return fmt.Errorf("decode envelope: empty state payload")
	}
	if err := json.Unmarshal(env.State, prototype); err != nil {
		return fmt.Errorf("decode persistent state: %w", err)
	}
	return nil
}

// DecodeVersion extracts only the schema version from an envelope,
// without decoding the state payload. Used by tooling that reports on
// snapshots it cannot fully decode.
func DecodeVersion(data []byte) (int, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return 0, fmt.Errorf("decode envelope version: %w", err)
	}
	return env.Version, nil
}
