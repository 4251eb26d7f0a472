// Package audit persists the list of canonical orders sent during a run.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/procsift/procsift/internal/models"
)

// Writer overwrites the audit artifact each run; the file always reflects
// the most recent run only.
type Writer struct {
	path string
}

func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

// Write serializes the sent orders. An empty run writes an empty list.
func (w *Writer) Write(orders []models.CanonicalOrder) error {
	if orders == nil {
		orders = []models.CanonicalOrder{}
	}

	data, err := json.MarshalIndent(orders, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal audit artifact: %w", err)
	}

	if dir := filepath.Dir(w.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create audit directory: %w", err)
		}
	}

	if err := os.WriteFile(w.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write audit artifact: %w", err)
	}
	return nil
}
