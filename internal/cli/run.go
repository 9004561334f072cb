package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vcompose/vcompose/internal/config"
	"github.com/vcompose/vcompose/internal/pipeline"
	"github.com/vcompose/vcompose/internal/types"
)

func run(cmd *cobra.Command, jobPath string) error {
	out, _ := cmd.Flags().GetString("out")
	configPath, _ := cmd.Flags().GetString("config")
	orientation, _ := cmd.Flags().GetString("orientation")
	bgm, _ := cmd.Flags().GetString("bgm")
	bgmGain, _ := cmd.Flags().GetFloat64("bgm-gain")
	workDir, _ := cmd.Flags().GetString("work-dir")
	verbose, _ := cmd.Flags().GetBool("verbose")

	log := newLogger(verbose)

	job, err := readJob(jobPath)
	if err != nil {
		return err
	}

	renderCfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	absIn, err := filepath.Abs(job.Input)
	if err != nil {
		return err
	}

	if orientation != "" {
		job.Orientation = types.Orientation(orientation)
	}
	if bgm != "" {
		job.BackgroundAudio = bgm
	}
	if bgmGain > 0 {
		job.BackgroundGain = bgmGain
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := pipeline.Config{
		Input:           absIn,
		Segments:        job.Segments,
		Output:          out,
		Orientation:     job.Orientation,
		BackgroundAudio: job.BackgroundAudio,
		BackgroundGain:  job.BackgroundGain,

		Render: renderCfg,
		Logger: log,

		FFmpegPath:  getenvDefault("VCOMPOSE_FFMPEG", "ffmpeg"),
		FFprobePath: getenvDefault("VCOMPOSE_FFPROBE", "ffprobe"),

		WorkDir: workDir,
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	_, err = pipeline.Run(ctx, cfg)
	return err
}

func readJob(path string) (types.RenderJob, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return types.RenderJob{}, fmt.Errorf("read job: %w", err)
	}
	var job types.RenderJob
	if err := json.Unmarshal(b, &job); err != nil {
		return types.RenderJob{}, fmt.Errorf("parse job: %w", err)
	}
	return job, nil
}

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
