package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
)

// WriteJSON writes a snapshot value as indented JSON via a temp-file rename,
// so a crash mid-write never leaves a truncated checkpoint behind.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("committing snapshot: %w", err)
	}
	return nil
}

// ReadJSON loads a snapshot value from a JSON file.
func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading snapshot: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing snapshot: %w", err)
	}
	return nil
}
