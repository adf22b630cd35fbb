package simproto

import "encoding/json"

// structToMap round-trips through encoding/json so callers can build an
// Event.Details map from a typed struct without hand-writing field lists.
func structToMap(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// DecodeDetails unmarshals an Event's generic Details map into a typed
// struct (the inverse of ToMap).
func DecodeDetails(details map[string]any, out any) error {
	b, err := json.Marshal(details)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}
