package snapshot

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"strings"

	"golang.org/x/image/webp"
)

// ParseDataURL splits a "data:<mime>;base64,<payload>" string into its
// format and decoded payload bytes. This is the only wire format the engine
// produces; anything else is rejected.
func ParseDataURL(dataURL string) (Format, []byte, error) {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return "", nil, fmt.Errorf("snapshot: not a data URL")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("snapshot: malformed data URL")
	}
	mime, b64 := strings.CutSuffix(meta, ";base64")
	if !b64 {
		return "", nil, fmt.Errorf("snapshot: data URL is not base64-encoded")
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("snapshot: decode base64: %w", err)
	}
	return Format(mime), raw, nil
}

// EncodeDataURL builds a data URL from encoded image bytes. The inverse of
// ParseDataURL; used by tests and by fakes standing in for a live page.
func EncodeDataURL(format Format, raw []byte) string {
	return "data:" + string(format) + ";base64," + base64.StdEncoding.EncodeToString(raw)
}

// DecodeImage decodes a snapshot's data URL into pixels. PNG and JPEG use
// the stdlib codecs; WebP decodes via golang.org/x/image.
func (s *Snapshot) DecodeImage() (image.Image, error) {
	format, raw, err := ParseDataURL(s.DataURL)
	if err != nil {
		return nil, err
	}
	switch format {
	case FormatPNG:
		return png.Decode(bytes.NewReader(raw))
	case FormatJPEG:
		return jpeg.Decode(bytes.NewReader(raw))
	case FormatWebP:
		return webp.Decode(bytes.NewReader(raw))
	}
	return nil, fmt.Errorf("snapshot: unsupported format %q", format)
}
