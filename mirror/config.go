package mirror

import (
	"errors"
	"maps"
	"strings"
	"time"

	"github.com/go-rod/rod"

	"github.com/hazyhaar/canvasmirror/mirror/internal/config"
	"github.com/hazyhaar/canvasmirror/mirror/internal/dom"
	"github.com/hazyhaar/canvasmirror/mirror/internal/engine"
	"github.com/hazyhaar/canvasmirror/snapshot"
)

// Config is the top-level daemon configuration. Re-exported from internal.
type Config = config.Config

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig = config.BrowserConfig

// SinkConfig defines an output backend.
type SinkConfig = config.SinkConfig

// ArchiveConfig enables the SQLite capture history.
type ArchiveConfig = config.ArchiveConfig

// ViewerConfig enables the HTTP viewer.
type ViewerConfig = config.ViewerConfig

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	return config.LoadFile(path)
}

// ErrNoCapture is returned by export paths before any capture completed.
var ErrNoCapture = errors.New("mirror: no capture yet")

// Defaults applied at activation time. The style strings are copied into
// each activation's configuration, never shared.
const (
	DefaultFormat       = snapshot.FormatJPEG
	DefaultQuality      = 0.5
	DefaultResolveEvery = 100 * time.Millisecond

	// Surface above, mirror image below, both pinned to the container
	// origin so the image sits exactly under the canvas.
	DefaultSurfaceStyle = "position:absolute;top:0;left:0;z-index:1"
	DefaultImageStyle   = "position:absolute;top:0;left:0;z-index:0"
)

// SurfaceRef identifies the target surface: a CSS selector, an indirect Ref
// container, or a direct element.
type SurfaceRef = dom.SurfaceRef

// Ref is an indirect surface container whose target may be set after
// activation; the resolver reads it on every retry.
type Ref = dom.Ref

// BySelector references the surface by a CSS selector queried against the
// document on every resolution attempt.
func BySelector(selector string) SurfaceRef { return dom.Selector(selector) }

// ByRef references the surface through an indirect container.
func ByRef(r *Ref) SurfaceRef { return r }

// ByElement references an element handle the caller already holds.
func ByElement(page *rod.Page, el *rod.Element) SurfaceRef {
	return dom.Direct(dom.NewRodDocument(page).FromElement(el))
}

// ResolvePolicy controls the resolution retry loop.
type ResolvePolicy struct {
	// Every is the fixed delay between attempts. Default 100 ms.
	Every time.Duration
	// MaxAttempts bounds the retry loop; the activation tears itself down
	// with a logged error once exceeded. 0 = retry forever.
	MaxAttempts int
}

// MirrorConfig describes one activation. It is copied and normalised at
// activation time and never mutated afterwards.
type MirrorConfig struct {
	// ID names the activation; generated when empty.
	ID string

	// URL is the page to open (Engine.Mirror). Ignored by MirrorPage.
	URL string

	// Surface identifies the target canvas. Required.
	Surface SurfaceRef

	// ImageClass and SurfaceClass are space-separated class token lists.
	ImageClass   string
	SurfaceClass string

	// SurfaceAttrs are applied to the surface element, overwriting any
	// existing attribute of the same name.
	SurfaceAttrs map[string]string

	// SurfaceStyle and ImageStyle override the default positioning CSS.
	SurfaceStyle string
	ImageStyle   string

	// Format is the encoding MIME type. Default image/jpeg.
	Format snapshot.Format

	// Quality in [0,1]; ignored for lossless formats. 0 means the default
	// (0.5).
	Quality float64

	// Interval selects the capture mode: 0 = manual (caller-driven),
	// any positive duration = periodic.
	Interval time.Duration

	Resolve ResolvePolicy
}

// normalize produces the engine configuration: defaults filled in, class
// strings tokenised, maps copied so later caller mutation cannot leak in.
func (c MirrorConfig) normalize(id string) engine.Config {
	format := c.Format
	if format == "" {
		format = DefaultFormat
	}
	quality := c.Quality
	if quality == 0 {
		quality = DefaultQuality
	}
	surfaceStyle := c.SurfaceStyle
	if surfaceStyle == "" {
		surfaceStyle = DefaultSurfaceStyle
	}
	imageStyle := c.ImageStyle
	if imageStyle == "" {
		imageStyle = DefaultImageStyle
	}

	return engine.Config{
		ActivationID:       id,
		Ref:                c.Surface,
		SurfaceClasses:     strings.Fields(c.SurfaceClass),
		SurfaceAttrs:       maps.Clone(c.SurfaceAttrs),
		SurfaceStyle:       surfaceStyle,
		ImageClasses:       strings.Fields(c.ImageClass),
		ImageStyle:         imageStyle,
		Format:             format,
		Quality:            quality,
		Interval:           c.Interval,
		ResolveEvery:       c.Resolve.Every,
		ResolveMaxAttempts: c.Resolve.MaxAttempts,
	}
}

// FromFileMirror converts a YAML mirror entry into a MirrorConfig.
func FromFileMirror(m config.Mirror) MirrorConfig {
	return MirrorConfig{
		ID:           m.ID,
		URL:          m.URL,
		Surface:      BySelector(m.Surface),
		ImageClass:   m.ImageClass,
		SurfaceClass: m.SurfaceClass,
		SurfaceAttrs: m.SurfaceAttrs,
		Format:       snapshot.Format(m.Format),
		Quality:      m.Quality,
		Interval:     m.Interval.Std(),
		Resolve: ResolvePolicy{
			Every:       m.ResolveEvery.Std(),
			MaxAttempts: m.ResolveMaxAttempts,
		},
	}
}
