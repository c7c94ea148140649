package engine

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"sync"

	"github.com/hazyhaar/canvasmirror/mirror/internal/dom"
	"github.com/hazyhaar/canvasmirror/snapshot"
)

// fakeDoc is an in-memory document with an explicit frame queue: captures
// queue a continuation that only runs when the test pumps a frame, matching
// the engine's frame-boundary deferral contract.
type fakeDoc struct {
	mu       sync.Mutex
	elements map[string]*fakeSurface
	mirrors  map[string]*fakeImage
	frames   []func()
}

func newFakeDoc() *fakeDoc {
	return &fakeDoc{
		elements: make(map[string]*fakeSurface),
		mirrors:  make(map[string]*fakeImage),
	}
}

func (d *fakeDoc) URL() string { return "https://example.test/draw" }

func (d *fakeDoc) QuerySurface(ctx context.Context, selector string) (dom.Surface, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.elements[selector]
	if !ok {
		return nil, nil
	}
	return s, nil
}

// addCanvas attaches a canvas element with the given pixel content.
func (d *fakeDoc) addCanvas(selector string, pixels *image.NRGBA) *fakeSurface {
	s := &fakeSurface{
		doc:       d,
		selector:  selector,
		pixels:    pixels,
		drawable:  true,
		connected: true,
		attrs:     make(map[string]string),
	}
	d.mu.Lock()
	d.elements[selector] = s
	d.mu.Unlock()
	return s
}

// addDiv attaches a non-drawable element.
func (d *fakeDoc) addDiv(selector string) *fakeSurface {
	s := &fakeSurface{doc: d, selector: selector, connected: true, attrs: make(map[string]string)}
	d.mu.Lock()
	d.elements[selector] = s
	d.mu.Unlock()
	return s
}

func (d *fakeDoc) queueFrame(f func()) {
	d.mu.Lock()
	d.frames = append(d.frames, f)
	d.mu.Unlock()
}

// pumpFrame runs every queued frame continuation, like one repaint.
func (d *fakeDoc) pumpFrame() {
	d.mu.Lock()
	q := d.frames
	d.frames = nil
	d.mu.Unlock()
	for _, f := range q {
		f()
	}
}

func (d *fakeDoc) pendingFrames() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.frames)
}

func (d *fakeDoc) mirrorCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.mirrors)
}

func (d *fakeDoc) mirror(id string) *fakeImage {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mirrors[id]
}

type fakeSurface struct {
	doc       *fakeDoc
	selector  string
	pixels    *image.NRGBA
	drawable  bool
	connected bool
	attrs     map[string]string
	classes   []string
	style     string
}

func (s *fakeSurface) Describe() string { return s.selector }

func (s *fakeSurface) Drawable(ctx context.Context) (bool, error) { return s.drawable, nil }

func (s *fakeSurface) Connected(ctx context.Context) (bool, error) {
	s.doc.mu.Lock()
	defer s.doc.mu.Unlock()
	return s.connected, nil
}

func (s *fakeSurface) disconnect() {
	s.doc.mu.Lock()
	s.connected = false
	s.doc.mu.Unlock()
}

func (s *fakeSurface) SetAttribute(ctx context.Context, name, value string) error {
	s.doc.mu.Lock()
	s.attrs[name] = value
	s.doc.mu.Unlock()
	return nil
}

func (s *fakeSurface) AddClasses(ctx context.Context, tokens []string) error {
	s.doc.mu.Lock()
	s.classes = append(s.classes, tokens...)
	s.doc.mu.Unlock()
	return nil
}

func (s *fakeSurface) SetStyle(ctx context.Context, css string) error {
	s.doc.mu.Lock()
	if css != "" {
		s.style += ";" + css
	}
	s.doc.mu.Unlock()
	return nil
}

func (s *fakeSurface) InsertMirror(ctx context.Context, spec dom.MirrorSpec) (dom.Image, error) {
	img := &fakeImage{
		doc:       s.doc,
		id:        spec.ID,
		classes:   spec.Classes,
		style:     spec.Style,
		after:     s,
		connected: true,
	}
	s.doc.mu.Lock()
	s.doc.mirrors[spec.ID] = img
	s.doc.mu.Unlock()
	return img, nil
}

func (s *fakeSurface) Capture(ctx context.Context, mirrorID string, format snapshot.Format, quality float64) (string, error) {
	res := make(chan string, 1)
	s.doc.queueFrame(func() {
		s.doc.mu.Lock()
		img := s.doc.mirrors[mirrorID]
		live := s.connected && img != nil && img.connected
		s.doc.mu.Unlock()
		if !live {
			res <- ""
			return
		}
		url := s.encode(format, quality)
		s.doc.mu.Lock()
		img.src = url
		s.doc.mu.Unlock()
		res <- url
	})
	select {
	case v := <-res:
		return v, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (s *fakeSurface) encode(format snapshot.Format, quality float64) string {
	var buf bytes.Buffer
	switch format {
	case snapshot.FormatJPEG:
		q := int(quality * 100)
		if q < 1 {
			q = 1
		}
		jpeg.Encode(&buf, s.pixels, &jpeg.Options{Quality: q})
	default:
		format = snapshot.FormatPNG
		png.Encode(&buf, s.pixels)
	}
	return snapshot.EncodeDataURL(format, buf.Bytes())
}

type fakeImage struct {
	doc       *fakeDoc
	id        string
	classes   []string
	style     string
	after     *fakeSurface
	connected bool
	src       string
}

func (i *fakeImage) Connected(ctx context.Context) (bool, error) {
	i.doc.mu.Lock()
	defer i.doc.mu.Unlock()
	return i.connected, nil
}

func (i *fakeImage) Source(ctx context.Context) (string, error) {
	i.doc.mu.Lock()
	defer i.doc.mu.Unlock()
	return i.src, nil
}

func (i *fakeImage) source() string {
	i.doc.mu.Lock()
	defer i.doc.mu.Unlock()
	return i.src
}

// gradientImage produces pixel content with enough variation that JPEG
// output size responds to the quality knob.
func gradientImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 7 % 256),
				G: uint8(y * 13 % 256),
				B: uint8((x*y + x) % 256),
				A: 255,
			})
		}
	}
	return img
}

func hasClass(tokens []string, want string) bool {
	for _, tok := range tokens {
		if tok == want {
			return true
		}
	}
	return false
}

func dataURLPrefix(format snapshot.Format) string {
	return "data:" + string(format) + ";base64,"
}
