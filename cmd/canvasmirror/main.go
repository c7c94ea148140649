// Command canvasmirror mirrors canvas elements into sibling image elements
// so session recorders see their content, and exports captures as files.
//
// Usage:
//
//	canvasmirror -config mirror.yaml                 # daemon: mirrors from YAML config
//	canvasmirror -url URL -surface "#c" -out shot    # one-shot capture and export
//	canvasmirror -config mirror.yaml -mcp            # also serve MCP tools on stdio
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/canvasmirror/archive"
	"github.com/hazyhaar/canvasmirror/mirror"
	"github.com/hazyhaar/canvasmirror/snapshot"
	"github.com/hazyhaar/canvasmirror/viewer"
)

func main() {
	configPath := flag.String("config", "", "path to mirror.yaml config file")
	singleURL := flag.String("url", "", "one-shot: page URL to open")
	surface := flag.String("surface", "", "one-shot: CSS selector of the canvas")
	outPath := flag.String("out", "", "one-shot: export file path")
	format := flag.String("format", "", "one-shot: image/jpeg, image/png, or image/webp")
	quality := flag.Float64("quality", 0, "one-shot: encoding quality in [0,1]")
	serveAddr := flag.String("serve", "", "viewer listen address (overrides config)")
	archivePath := flag.String("archive", "", "SQLite capture archive path (overrides config)")
	mcpStdio := flag.Bool("mcp", false, "serve MCP tools on stdio")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := runOptions{
		configPath:  *configPath,
		singleURL:   *singleURL,
		surface:     *surface,
		outPath:     *outPath,
		format:      *format,
		quality:     *quality,
		serveAddr:   *serveAddr,
		archivePath: *archivePath,
		mcpStdio:    *mcpStdio,
	}
	if err := run(ctx, logger, opts); err != nil {
		logger.Error("canvasmirror: fatal", "error", err)
		os.Exit(1)
	}
}

type runOptions struct {
	configPath  string
	singleURL   string
	surface     string
	outPath     string
	format      string
	quality     float64
	serveAddr   string
	archivePath string
	mcpStdio    bool
}

func run(ctx context.Context, logger *slog.Logger, opts runOptions) error {
	if opts.singleURL != "" {
		return runOneShot(ctx, logger, opts)
	}
	if opts.configPath != "" {
		return runDaemon(ctx, logger, opts)
	}
	fmt.Fprintln(os.Stderr, "usage: canvasmirror -config <file> | -url <url> -surface <selector> [-out <path>]")
	os.Exit(1)
	return nil
}

// runOneShot opens the page, mirrors the surface in manual mode, captures
// once, and exports the result.
func runOneShot(ctx context.Context, logger *slog.Logger, opts runOptions) error {
	if opts.surface == "" {
		return fmt.Errorf("one-shot mode needs -surface")
	}

	eng := mirror.New(nil, logger)
	defer eng.Stop()

	act, err := eng.Mirror(ctx, mirror.MirrorConfig{
		URL:     opts.singleURL,
		Surface: mirror.BySelector(opts.surface),
		Format:  snapshot.Format(opts.format),
		Quality: opts.quality,
		Resolve: mirror.ResolvePolicy{MaxAttempts: 100},
	})
	if err != nil {
		return err
	}

	// Wait for resolution, then capture once.
	trigger := act.TriggerFunc()
	deadline := time.Now().Add(30 * time.Second)
	for act.State() != "active_manual" {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-act.Done():
			return fmt.Errorf("surface %q never resolved", opts.surface)
		case <-time.After(50 * time.Millisecond):
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timed out waiting for %q", opts.surface)
		}
	}

	trigger()
	for act.Captures() == 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timed out waiting for capture")
		}
	}

	out := opts.outPath
	if out == "" {
		out = act.Latest().ExportName()
	}
	path, err := act.Export(out)
	if err != nil {
		return err
	}
	logger.Info("canvasmirror: exported", "path", path)
	fmt.Println(path)
	return nil
}

// runDaemon mirrors every configured surface until interrupted.
func runDaemon(ctx context.Context, logger *slog.Logger, opts runOptions) error {
	cfg, err := mirror.LoadConfigFile(opts.configPath)
	if err != nil {
		return err
	}
	if opts.serveAddr != "" {
		cfg.Viewer.Addr = opts.serveAddr
	}
	if opts.archivePath != "" {
		cfg.Archive.Path = opts.archivePath
	}

	sinks, err := buildSinks(cfg, logger)
	if err != nil {
		return err
	}

	eng := mirror.New(cfg, logger, sinks...)
	if err := eng.Start(ctx); err != nil {
		return err
	}
	defer eng.Stop()

	if cfg.Viewer.Addr != "" {
		v := viewer.New(viewer.ForEngine(eng), logger)
		go func() {
			if err := v.Serve(cfg.Viewer.Addr); err != nil {
				logger.Error("viewer: serve", "error", err)
			}
		}()
	}

	if opts.mcpStdio {
		srv := mcp.NewServer(&mcp.Implementation{
			Name:    "canvasmirror",
			Version: "1.0.0",
		}, nil)
		eng.RegisterMCP(srv)
		go func() {
			if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
				logger.Error("mcp: run", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("canvasmirror: shutting down")
	return nil
}

func buildSinks(cfg *mirror.Config, logger *slog.Logger) ([]mirror.Sink, error) {
	var sinks []mirror.Sink
	for _, sc := range cfg.Sinks {
		switch sc.Type {
		case "stdout":
			sinks = append(sinks, mirror.NewStdoutSink(nil))
		case "webhook":
			sinks = append(sinks, mirror.NewWebhookSink(sc.URL, logger))
		}
	}
	if cfg.Archive.Path != "" {
		store, err := archive.Open(cfg.Archive.Path, archive.WithKeep(cfg.Archive.Keep))
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, store)
	}
	return sinks, nil
}
