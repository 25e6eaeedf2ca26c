package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"image"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/atotto/clipboard"

	"github.com/ironsheep/shape-vision/internal/api"
	"github.com/ironsheep/shape-vision/internal/capture"
	"github.com/ironsheep/shape-vision/internal/config"
	"github.com/ironsheep/shape-vision/internal/detection"
	"github.com/ironsheep/shape-vision/internal/imaging"
	"github.com/ironsheep/shape-vision/internal/persist"
	"github.com/ironsheep/shape-vision/internal/render"
	"github.com/ironsheep/shape-vision/internal/runner"
	"github.com/ironsheep/shape-vision/internal/server"
)

// loadConfig parses fs and loads the configuration named by its -config flag.
func loadConfig(fs *flag.FlagSet, args []string) (config.Config, error) {
	path := fs.String("config", "", "YAML configuration file")
	if err := fs.Parse(args); err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Load(*path)
	if err != nil {
		return config.Config{}, err
	}
	if cfg.Debug() {
		log.Printf("shape-vision %s (built %s, commit %s)", Version, BuildTime, GitCommit)
	}
	return cfg, nil
}

func runMCP(args []string) error {
	cfg, err := loadConfig(flag.NewFlagSet("mcp", flag.ExitOnError), args)
	if err != nil {
		return err
	}
	p, err := cfg.NewPipeline()
	if err != nil {
		return err
	}
	hsv, rgb, err := cfg.ColorTables()
	if err != nil {
		return err
	}
	return server.New(p,
		server.WithVersion(Version),
		server.WithDebug(cfg.Debug()),
		server.WithColorTables(hsv, rgb),
	).Run()
}

func runConfig(args []string) error {
	cfg, err := loadConfig(flag.NewFlagSet("config", flag.ExitOnError), args)
	if err != nil {
		return err
	}
	data, err := cfg.Marshal()
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}

func runDetect(args []string) error {
	fs := flag.NewFlagSet("detect", flag.ExitOnError)
	jsonPath := fs.String("out", "", "write records to this JSON file (default from config, \"-\" for stdout)")
	annotate := fs.String("annotate", "", "save the annotated frame as PNG")
	svgPath := fs.String("svg", "", "save an SVG overlay of the detections")
	copyJSON := fs.Bool("copy", false, "copy the records JSON to the clipboard")
	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("no image paths given")
	}
	if *jsonPath != "" {
		cfg.Output.JSONPath = *jsonPath
	}
	if *annotate != "" {
		cfg.Output.AnnotatePath = *annotate
	}
	if *svgPath != "" {
		cfg.Output.SVGPath = *svgPath
	}
	cfg.Capture.Source = config.SourceFile
	cfg.Capture.Paths = fs.Args()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rec, err := execute(ctx, cfg)
	if err != nil {
		return err
	}

	if *copyJSON {
		data, err := json.MarshalIndent(rec.Records(), "", "    ")
		if err != nil {
			return fmt.Errorf("failed to encode records: %w", err)
		}
		if err := clipboard.WriteAll(string(data)); err != nil {
			return fmt.Errorf("failed to copy to clipboard: %w", err)
		}
	}
	return nil
}

func runCapture(source string, args []string) error {
	fs := flag.NewFlagSet(source, flag.ExitOnError)
	maxFrames := fs.Int("frames", 0, "stop after this many frames (0 = until the source ends)")
	display := fs.Bool("display", false, "show annotated frames in a window, q quits (needs -tags gocv)")
	jsonPath := fs.String("out", "", "write records to this JSON file (default from config)")
	index := fs.Int("index", -1, "camera index (camera)")
	fps := fs.Int("fps", 0, "frames sampled per second (video)")
	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}

	cfg.Capture.Source = source
	if *maxFrames > 0 {
		cfg.Capture.MaxFrames = *maxFrames
	}
	if *display {
		cfg.Output.Display = true
	}
	if *jsonPath != "" {
		cfg.Output.JSONPath = *jsonPath
	}
	if *index >= 0 {
		cfg.Capture.CameraIndex = *index
	}
	if *fps > 0 {
		cfg.Capture.VideoFPS = *fps
	}
	if source == config.SourceVideo && fs.NArg() > 0 {
		cfg.Capture.VideoPath = fs.Arg(0)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, err = execute(ctx, cfg)
	return err
}

func runHTTP(args []string) error {
	fs := flag.NewFlagSet("http", flag.ExitOnError)
	addr := fs.String("addr", "", "listen address (default from config)")
	record := fs.Bool("record", false, "keep every detected frame and write the records at shutdown")
	jsonPath := fs.String("out", "", "write records to this JSON file when recording (default from config)")
	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.HTTP.Addr = *addr
	}
	if *jsonPath != "" {
		cfg.Output.JSONPath = *jsonPath
	}

	p, err := cfg.NewPipeline()
	if err != nil {
		return err
	}
	rec, err := httpRecorder(cfg.Output, *record)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: api.SetRouter(cfg, p, rec),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		log.Printf("HTTP API listening on %s", cfg.HTTP.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve: %w", err)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP shutdown: %v", err)
		}
	}

	if rec == nil {
		return nil
	}
	return rec.Flush(context.Background())
}

// httpRecorder returns the recorder for the http command. A long-running
// server holds records in memory until shutdown, so recording is off unless
// asked for, and then needs somewhere to write them.
func httpRecorder(out config.OutputConfig, record bool) (*persist.Recorder, error) {
	if !record {
		return nil, nil
	}
	sink, err := buildSink(out)
	if err != nil {
		return nil, err
	}
	if sink == nil {
		return nil, errors.New("-record needs an output: set -out, output.json_path or output.s3_bucket")
	}
	return persist.NewRecorder(sink), nil
}

// execute runs the configured source through the pipeline, writes the
// requested outputs and flushes the records.
func execute(ctx context.Context, cfg config.Config) (*persist.Recorder, error) {
	p, err := cfg.NewPipeline()
	if err != nil {
		return nil, err
	}

	src, err := openSource(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	sink, err := buildSink(cfg.Output)
	if err != nil {
		return nil, err
	}
	rec := persist.NewRecorder(sink)

	r := &runner.Runner{
		Source:                 src,
		Pipeline:               p,
		Recorder:               rec,
		MaxFrames:              cfg.Capture.MaxFrames,
		SkipFailedReads:        cfg.Capture.SkipFailedReads,
		MaxConsecutiveFailures: cfg.Capture.MaxConsecutiveFailures,
		Debug:                  cfg.Debug(),
	}

	total := len(cfg.Capture.Paths)
	style := render.DefaultStyle()
	r.OnFrame = func(frame int, img image.Image, shapes []detection.IdentifiedShape) {
		if err := writeFrameOutputs(cfg.Output, frame, total, img, shapes, style); err != nil {
			log.Printf("frame %d: %v", frame, err)
		}
	}

	if cfg.Output.Display {
		win, err := render.OpenWindow("shape-vision: "+capture.NameOf(src), style)
		if err != nil {
			return nil, err
		}
		defer win.Close()
		r.Display = win
	}

	stats, runErr := r.Run(ctx)
	log.Printf("%s: %d frames, %d shapes, %d failed reads, stopped: %s",
		capture.NameOf(src), stats.Frames, stats.Shapes, stats.Failures, stats.Reason)

	// Records gathered before a failure are still written.
	flushErr := rec.Flush(context.Background())
	return rec, errors.Join(runErr, flushErr)
}

func openSource(ctx context.Context, cfg config.Config) (capture.Source, error) {
	c := cfg.Capture
	switch c.Source {
	case config.SourceFile:
		if len(c.Paths) == 0 {
			return nil, errors.New("no image paths configured")
		}
		return capture.NewFileSource(c.Paths, imaging.NewImageCache()), nil
	case config.SourceVideo:
		if c.VideoPath == "" {
			return nil, errors.New("no video path given")
		}
		if cfg.Debug() {
			if info, err := capture.ProbeVideo(c.VideoPath); err == nil {
				log.Printf("video %s: %dx%d, %d frames at %.2f fps", c.VideoPath, info.Width, info.Height, info.Frames, info.FrameRate)
			}
		}
		return capture.OpenVideo(ctx, c.VideoPath, c.VideoFPS)
	case config.SourceScreen:
		return capture.NewScreenSource(c.ScreenRectangle()), nil
	case config.SourceCamera:
		return capture.OpenCamera(c.CameraIndex)
	default:
		return nil, fmt.Errorf("unknown capture source %q", c.Source)
	}
}

// buildSink returns the sinks named by the output configuration, or nil when
// none is. A JSON path of "-" writes to stdout.
func buildSink(out config.OutputConfig) (persist.Sink, error) {
	var sinks persist.MultiSink
	switch out.JSONPath {
	case "":
	case "-":
		sinks = append(sinks, persist.WriterSink{W: os.Stdout})
	default:
		sinks = append(sinks, persist.FileSink{Path: out.JSONPath})
	}
	if out.S3Bucket != "" {
		s3, err := persist.NewS3Sink(out.S3Bucket, out.S3Key, out.S3Region)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s3)
	}

	switch len(sinks) {
	case 0:
		return nil, nil
	case 1:
		return sinks[0], nil
	default:
		return sinks, nil
	}
}

func writeFrameOutputs(out config.OutputConfig, frame, total int, img image.Image, shapes []detection.IdentifiedShape, style render.Style) error {
	if out.AnnotatePath != "" {
		if err := render.SavePNG(render.Annotate(img, shapes, style), framePath(out.AnnotatePath, frame, total)); err != nil {
			return err
		}
	}
	if out.SVGPath != "" {
		path := framePath(out.SVGPath, frame, total)
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		b := img.Bounds()
		render.WriteSVG(f, b.Dx(), b.Dy(), shapes, style)
		if err := f.Close(); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	return nil
}

// framePath returns path unchanged for a single-frame run and otherwise
// inserts the zero-padded frame number before the extension.
func framePath(path string, frame, total int) string {
	if total == 1 {
		return path
	}
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s_%04d%s", strings.TrimSuffix(path, ext), frame, ext)
}
