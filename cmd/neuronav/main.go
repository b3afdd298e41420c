package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/neuronav/go-neuronav/internal/config"
	"github.com/neuronav/go-neuronav/internal/log"
	"github.com/neuronav/go-neuronav/pkg/recorder"
	"github.com/neuronav/go-neuronav/pkg/sensor"
)

func main() {
	name := flag.String("name", "oak-d-pro", "Sensor name (used in artifact filenames)")
	mode := flag.String("mode", "", "Force capture mode: webcam or synthetic (default: detect device)")
	index := flag.Int("index", 0, "Webcam device index")
	preset := flag.String("preset", "", "Resolution preset: 480p, 720p or 1080p")
	width := flag.Int("width", 1280, "Frame width")
	height := flag.Int("height", 720, "Frame height")
	fps := flag.Int("fps", 30, "Target frame rate")
	duration := flag.Duration("duration", 0, "Recording length (0 = until interrupted)")
	out := flag.String("out", "", "Output directory (default from NEURONAV_OUTPUT_DIR)")
	noFallback := flag.Bool("no-fallback", false, "Fail instead of falling back to a mock source")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: load config: %v\n", err)
		os.Exit(1)
	}

	level := cfg.LogLevel
	if *debug {
		level = "debug"
	}
	log.Init(level)

	// Ctrl+C ends the recording cleanly; the artifact stays playable.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	w, h := *width, *height
	if *preset != "" {
		pcfg, ok := sensor.ApplyPreset(sensor.DefaultConfig(), *preset)
		if !ok {
			fmt.Fprintf(os.Stderr, "Error: unknown preset %q (known: %v)\n", *preset, sensor.PresetNames())
			os.Exit(1)
		}
		w, h = pcfg.Width, pcfg.Height
	}

	opts := []sensor.Option{
		sensor.WithResolution(w, h),
		sensor.WithFPS(*fps),
		sensor.WithWebcamIndex(*index),
		sensor.WithPython(cfg.PythonBin),
		sensor.WithAllowFallback(!*noFallback),
		sensor.WithLogger(log.L()),
	}
	switch *mode {
	case "":
	case "webcam":
		opts = append(opts, sensor.WithMockSource(sensor.ModeWebcam))
	case "synthetic":
		opts = append(opts, sensor.WithMockSource(sensor.ModeSynthetic))
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown mode %q (webcam, synthetic)\n", *mode)
		os.Exit(1)
	}

	s, err := sensor.GetDepthai(ctx, *name, opts...)
	if err != nil {
		log.Error("sensor setup failed", "error", err)
		os.Exit(1)
	}

	outputDir := cfg.OutputDir
	if *out != "" {
		outputDir = *out
	}

	client, err := recorder.NewClient(cfg.APIKey,
		recorder.WithOutputDir(outputDir),
		recorder.WithLogger(log.L()),
	)
	if err != nil {
		log.Error("client setup failed", "error", err)
		_ = s.Cleanup()
		os.Exit(1)
	}

	rec, err := client.Record(ctx, s, *duration)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		log.Error("recording failed", "error", err)
		os.Exit(1)
	}

	if rec.Path == "" {
		log.Warn("no frames captured, no artifact written")
		return
	}
	log.Info("done",
		"path", rec.Path,
		"frames", rec.Frames,
		"elapsed", rec.Duration.Round(time.Millisecond),
	)
}
