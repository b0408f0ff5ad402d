package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/scan-splitter/internal/api"
	"github.com/ironsheep/scan-splitter/internal/config"
	"github.com/ironsheep/scan-splitter/internal/observability"
	"github.com/ironsheep/scan-splitter/internal/segment"
	"github.com/ironsheep/scan-splitter/internal/server"
	"github.com/ironsheep/scan-splitter/internal/storage"
	"github.com/ironsheep/scan-splitter/internal/vision"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -h flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("scan-splitter %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			printHelp()
			return
		}
	}

	configPath := flag.String("config", os.Getenv("SCANSPLIT_CONFIG"), "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)
	server.Version = Version

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	seg, archive := buildSegmenter(ctx, cfg)

	mode := flag.Arg(0)
	switch mode {
	case "", "serve":
		err = serveHTTP(ctx, cfg, seg, archive)
	case "mcp":
		logrus.WithField("version", Version).Info("Starting MCP server on stdio")
		err = server.New(seg).Run(ctx)
	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q (want serve or mcp)\n", mode)
		os.Exit(2)
	}

	if err != nil && err != context.Canceled {
		logrus.WithError(err).Fatal("Server error")
	}
}

func printHelp() {
	fmt.Println("scan-splitter - find the individual photos on a scanned page")
	fmt.Println()
	fmt.Println("Usage: scan-splitter [-config path] [serve|mcp]")
	fmt.Println()
	fmt.Println("Modes:")
	fmt.Println("  serve            HTTP API on the configured port (default)")
	fmt.Println("  mcp              MCP server over stdin/stdout")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -config path     YAML config file (or SCANSPLIT_CONFIG)")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  SCANSPLIT_SERVER_PORT=8080         HTTP port")
	fmt.Println("  SCANSPLIT_VISION_ENABLED=true      Allow useAI requests")
	fmt.Println("  SCANSPLIT_VISION_PROVIDER=openai   openai, ollama, anthropic or mistral")
	fmt.Println("  SCANSPLIT_MINIO_ENDPOINT=host:9000 Archive crops to MinIO")
	fmt.Println("  SCANSPLIT_LOG_LEVEL=debug          Enable debug logging")
}

// buildSegmenter wires the optional vision model and crop archive. Either one
// failing to initialise is logged and the service runs without it.
func buildSegmenter(ctx context.Context, cfg *config.Config) (*segment.Segmenter, *storage.CropStore) {
	var detector segment.VisionDetector
	if cfg.Vision.Enabled {
		client, err := vision.New(vision.Config{
			Provider:    cfg.Vision.Provider,
			Model:       cfg.Vision.Model,
			APIKey:      cfg.Vision.APIKey,
			BaseURL:     cfg.Vision.BaseURL,
			MaxTokens:   cfg.Vision.MaxTokens,
			Temperature: cfg.Vision.Temperature,
		})
		if err != nil {
			logrus.WithError(err).Warn("Vision model unavailable, useAI requests will use histogram detection")
		} else {
			detector = client
		}
	}

	var (
		archiver segment.Archiver
		store    *storage.CropStore
	)
	if cfg.MinIO.Enabled() {
		s, err := storage.NewCropStore(cfg.MinIO)
		if err != nil {
			logrus.WithError(err).Warn("Crop archive unavailable")
		} else {
			if err := s.EnsureBucket(ctx); err != nil {
				logrus.WithError(err).Warn("Failed to ensure crop bucket")
			}
			archiver = s
			store = s
		}
	}

	seg := segment.New(segment.Options{
		Params:           cfg.Segment.Params(),
		VisionTimeout:    cfg.Vision.Timeout,
		MaxVisionRegions: cfg.Vision.MaxRegions,
		PreviewMaxDim:    cfg.Preview.MaxDim,
		PreviewQuality:   cfg.Preview.Quality,
		PreviewWorkers:   cfg.Preview.Workers,
		MaxPixels:        cfg.Server.MaxPixels,
		BoxColor:         cfg.Preview.BoxColor,
	}, detector, archiver)

	return seg, store
}

func serveHTTP(ctx context.Context, cfg *config.Config, seg *segment.Segmenter, store *storage.CropStore) error {
	routerCfg := api.RouterConfig{
		Segmenter:      seg,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	}
	if store != nil {
		routerCfg.Archive = store
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      api.NewRouter(routerCfg),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: cfg.Vision.Timeout + 60*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logrus.WithField("addr", srv.Addr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logrus.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logrus.Info("HTTP server stopped")
	return nil
}
