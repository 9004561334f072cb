// Package pipeline wires the adapters and the render engine together for one
// job: workspace lifecycle, asset resolution, and atomic publication of the
// finished file.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vcompose/vcompose/internal/config"
	"github.com/vcompose/vcompose/internal/ports"
	"github.com/vcompose/vcompose/internal/ports/adapters/ffmpeg"
	"github.com/vcompose/vcompose/internal/render"
	"github.com/vcompose/vcompose/internal/types"
)

type Config struct {
	Input       string
	Segments    []types.SegmentDescriptor
	Output      string
	Orientation types.Orientation

	// BackgroundAudio is a music file basename resolved inside the
	// configured assets directory; empty disables the layer.
	BackgroundAudio string
	BackgroundGain  float64

	// CropCenter is an optional crop-center source for portrait reframing.
	CropCenter ports.CropCenterFunc

	Render config.Config
	Logger zerolog.Logger

	FFmpegPath  string
	FFprobePath string

	// WorkDir is the base directory scratch workspaces are created under.
	// If empty, the OS temp directory is used.
	WorkDir string
}

func (c Config) Validate() error {
	if c.Input == "" {
		return errors.New("input is empty")
	}
	if _, err := os.Stat(c.Input); err != nil {
		return fmt.Errorf("stat input: %w", err)
	}
	if len(c.Segments) == 0 {
		return errors.New("at least one segment is required")
	}
	if c.Output == "" {
		return errors.New("output path is empty")
	}
	if c.Orientation != "" && !c.Orientation.Valid() {
		return fmt.Errorf("unknown orientation %q", c.Orientation)
	}
	if strings.ContainsAny(c.BackgroundAudio, `/\`) {
		return fmt.Errorf("background audio must be a bare file name, got %q", c.BackgroundAudio)
	}
	return c.Render.Validate()
}

// Run renders the job into a scratch workspace and publishes the result to
// cfg.Output with a rename, so a crashed render never leaves a partial file
// at the destination.
func Run(ctx context.Context, cfg Config) (render.Result, error) {
	log := cfg.Logger

	ws, err := newWorkspace(cfg.WorkDir)
	if err != nil {
		return render.Result{}, err
	}
	defer ws.cleanup(log)
	log.Debug().Str("workspace", ws.dir).Msg("workspace ready")

	media := ffmpeg.New(cfg.FFmpegPath, cfg.FFprobePath)
	eng := render.New(render.Deps{
		Media:      media,
		Config:     cfg.Render,
		Logger:     log,
		CropCenter: cfg.CropCenter,
	})

	res, err := eng.Run(ctx, render.Input{
		Source:          cfg.Input,
		Segments:        cfg.Segments,
		Orientation:     cfg.Orientation,
		BackgroundAudio: resolveBackground(cfg.Render.AssetsDir, cfg.BackgroundAudio),
		BackgroundGain:  cfg.BackgroundGain,
		WorkDir:         ws.dir,
		Out:             filepath.Join(ws.dir, "render.mp4"),
	})
	if err != nil {
		return render.Result{}, err
	}

	if err := publish(res.Out, cfg.Output); err != nil {
		return render.Result{}, err
	}
	res.Out = cfg.Output
	log.Info().
		Str("output", cfg.Output).
		Float64("duration_s", res.DurationSec).
		Int("segments", res.Segments).
		Msg("render published")
	return res, nil
}

// resolveBackground joins a bare music file name with the assets directory.
// Validate already rejected names with path separators.
func resolveBackground(assetsDir, name string) string {
	if name == "" {
		return ""
	}
	return filepath.Join(assetsDir, filepath.Base(name))
}

// publish moves the rendered file to its destination. Rename is atomic on
// the same filesystem; when the destination sits on another device, fall
// back to copy-then-rename next to the destination.
func publish(src, dst string) error {
	if dir := filepath.Dir(dst); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	tmp := dst + ".partial"
	if err := copyFile(src, tmp); err != nil {
		return err
	}
	return os.Rename(tmp, dst)
}

func copyFile(src, dst string) error {
	b, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("read rendered file: %w", err)
	}
	if err := os.WriteFile(dst, b, 0o644); err != nil {
		return fmt.Errorf("copy rendered file: %w", err)
	}
	return nil
}

type workspace struct {
	dir string
}

func newWorkspace(base string) (*workspace, error) {
	if base == "" {
		base = os.TempDir()
	}
	dir := filepath.Join(base, "vcompose-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &workspace{dir: dir}, nil
}

func (w *workspace) cleanup(log zerolog.Logger) {
	if err := os.RemoveAll(w.dir); err != nil {
		log.Warn().Err(err).Str("workspace", w.dir).Msg("workspace cleanup failed")
	}
}

// ensure the adapter satisfies the port
var _ ports.MediaTool = (*ffmpeg.Adapter)(nil)
