package selector

import "encoding/json"

// State is an externally-typed container for per-stream selector state: a
// type name plus opaque encoded bytes. It is the unit of checkpointing
// exchanged across invocations when one logical stream is processed in
// shards.
type State struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value,omitempty"`
}

// MarshalState encodes v under the given type name.
func MarshalState(typeName string, v any) (State, error) {
	value, err := json.Marshal(v)
	if err != nil {
		return State{}, err
	}
	return State{Type: typeName, Value: value}, nil
}

// Is reports whether the state carries a message of the given type.
func (s State) Is(typeName string) bool {
	return s.Type == typeName
}

// Decode unmarshals the state's value into v.
func (s State) Decode(v any) error {
	return json.Unmarshal(s.Value, v)
}
