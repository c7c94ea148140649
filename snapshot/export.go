package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExportFile writes the snapshot's encoded bytes to path. The bytes are
// written exactly as the canvas encoder produced them; no re-encoding. If
// path has no extension, the format's extension is appended. Returns the
// path actually written.
func (s *Snapshot) ExportFile(path string) (string, error) {
	format, raw, err := ParseDataURL(s.DataURL)
	if err != nil {
		return "", err
	}
	if filepath.Ext(path) == "" {
		path += format.Ext()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("snapshot: export mkdir: %w", err)
		}
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", fmt.Errorf("snapshot: export write: %w", err)
	}
	return path, nil
}

// ExportName derives a stable file name for a snapshot: the activation ID
// with the capture ID suffix and format extension. Used when the caller
// supplies a directory rather than a file path.
func (s *Snapshot) ExportName() string {
	id := strings.TrimPrefix(s.ID, "cap_")
	return s.ActivationID + "_" + id + s.Format.Ext()
}
