// Package snapshot defines the capture records emitted by the mirror engine.
// These are the public API contract: any consumer (archive, viewer, custom
// pipelines) imports this package to receive and process captures.
package snapshot

import "encoding/json"

// Format is an image MIME type the canvas encoder understands.
type Format string

const (
	FormatPNG  Format = "image/png"
	FormatJPEG Format = "image/jpeg"
	FormatWebP Format = "image/webp"
)

// Lossy reports whether the format takes a quality parameter. The encoder
// ignores quality for lossless formats.
func (f Format) Lossy() bool {
	return f == FormatJPEG || f == FormatWebP
}

// Valid reports whether f is one of the supported encodings.
func (f Format) Valid() bool {
	switch f {
	case FormatPNG, FormatJPEG, FormatWebP:
		return true
	}
	return false
}

// Ext returns the file extension for the format, including the dot.
func (f Format) Ext() string {
	switch f {
	case FormatPNG:
		return ".png"
	case FormatJPEG:
		return ".jpg"
	case FormatWebP:
		return ".webp"
	}
	return ".bin"
}

// Snapshot is one capture of a surface's pixel content. The data URL is the
// immutable asset: exactly the string assigned to the mirror image's src.
type Snapshot struct {
	ID           string `json:"id"`            // cap_ + UUIDv7
	ActivationID string `json:"activation_id"` // act_ + UUIDv7
	PageURL      string `json:"page_url"`
	Surface      string `json:"surface"` // selector or reference description
	Format       Format `json:"format"`
	DataURL      string `json:"data_url"`
	Timestamp    int64  `json:"timestamp"` // epoch milliseconds
}

// Marshal serialises a Snapshot to JSON.
func Marshal(s *Snapshot) ([]byte, error) {
	return json.Marshal(s)
}

// Unmarshal deserialises a Snapshot from JSON.
func Unmarshal(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
