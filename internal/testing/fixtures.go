package testing

import (
	"encoding/json"
	"os"
	"testing"
)

// WriteJSONL writes rows to path as JSON lines, one object per line.
func WriteJSONL(t *testing.T, path string, rows []map[string]any) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create fixture %s: %v", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			t.Fatalf("Failed to encode fixture row: %v", err)
		}
	}
}

// NumberedRows returns n rows of the form {"n": 0} ... {"n": n-1}.
func NumberedRows(n int) []map[string]any {
	rows := make([]map[string]any, n)
	for i := range rows {
		rows[i] = map[string]any{"n": i}
	}
	return rows
}
