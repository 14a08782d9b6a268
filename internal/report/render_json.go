package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteJSONFile writes the document as indented JSON, creating the parent
// directory when needed.
func WriteJSONFile(path string, d Document) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// WriteJSON writes the document as JSON to w.
func WriteJSON(w io.Writer, d Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// FileName is the default base name for a saved report.
func FileName(d Document) string {
	serial := d.Radio.Serial
	if serial == "" {
		serial = "unknown"
	}
	stamp := d.Start.UTC().Format("20060102T150405Z")
	return fmt.Sprintf("%s_%s_%s", serial, d.Type, stamp)
}
