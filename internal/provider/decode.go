package provider

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// DecodeObject decodes the JSON object in data into targets, keyed by member
// name. Names match exactly, so "Data" never fills a "data" target the way
// struct tags would. Members without a target are ignored, absent ones leave
// their target untouched.
func DecodeObject(data []byte, targets map[string]any) error {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return err
	}
	for name, target := range targets {
		raw, ok := members[name]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, target); err != nil {
			return errors.Wrapf(err, "decoding %q", name)
		}
	}
	return nil
}
