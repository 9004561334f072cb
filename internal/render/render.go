// Package render drives a full composition job: probe the source, compose
// every segment in submission order, splice the parts into a timeline, and
// lay optional background music under the result.
package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/vcompose/vcompose/internal/compositor"
	"github.com/vcompose/vcompose/internal/config"
	"github.com/vcompose/vcompose/internal/engine"
	"github.com/vcompose/vcompose/internal/ports"
	"github.com/vcompose/vcompose/internal/types"
)

// Deps are the collaborators the engine runs against. Media is required;
// CropCenter is optional and nil means static center crops.
type Deps struct {
	Media      ports.MediaTool
	Config     config.Config
	Logger     zerolog.Logger
	CropCenter ports.CropCenterFunc
}

// Input is one render job with all paths already resolved.
type Input struct {
	Source      string
	Segments    []types.SegmentDescriptor
	Orientation types.Orientation

	// BackgroundAudio is a resolved music file path; empty disables the
	// music layer. BackgroundGain <= 0 selects the default gain.
	BackgroundAudio string
	BackgroundGain  float64

	// WorkDir holds intermediate artifacts; Out is the finished file.
	WorkDir string
	Out     string
}

// Result reports what a finished job produced.
type Result struct {
	Out         string
	DurationSec float64
	Segments    int
}

type Engine struct {
	deps Deps
	comp *compositor.Compositor
}

func New(deps Deps) *Engine {
	return &Engine{
		deps: deps,
		comp: compositor.New(deps.Media, deps.Config, deps.Logger),
	}
}

// Run executes the job. Segment order in the output matches submission
// order. Optional layers degrade with a warning; everything else fails the
// job with a classified error.
func (e *Engine) Run(ctx context.Context, in Input) (Result, error) {
	if len(in.Segments) == 0 {
		return Result{}, engine.Wrapf(engine.ErrInvalidInput, "render", "validate", "no segments")
	}
	orientation := in.Orientation
	if orientation == "" {
		orientation = types.OrientationVertical
	}
	if !orientation.Valid() {
		return Result{}, engine.Wrapf(engine.ErrInvalidInput, "render", "validate",
			"unknown orientation %q", orientation)
	}

	info, err := e.deps.Media.Probe(ctx, in.Source)
	if err != nil {
		return Result{}, engine.Wrap(engine.ErrDecode, "render", "probe source", err)
	}

	var (
		parts       []string
		timelineDur float64
	)
	for i, seg := range in.Segments {
		e.deps.Logger.Info().
			Int("segment", i).
			Float64("start", seg.Start).
			Float64("end", seg.End).
			Msg("composing segment")
		part, err := e.comp.Compose(ctx, compositor.Request{
			Source:      in.Source,
			SourceInfo:  info,
			Segment:     seg,
			Index:       i,
			Orientation: orientation,
			CropCenter:  e.deps.CropCenter,
			WorkDir:     in.WorkDir,
		})
		if err != nil {
			return Result{}, err
		}
		parts = append(parts, part)
		timelineDur += seg.Duration()
	}

	timeline := filepath.Join(in.WorkDir, "timeline.mp4")
	if err := e.deps.Media.Concat(ctx, parts, timeline); err != nil {
		return Result{}, engine.Wrap(engine.ErrEncode, "render", "concat", err)
	}

	if err := e.finish(ctx, in, timeline, timelineDur); err != nil {
		return Result{}, err
	}
	return Result{Out: in.Out, DurationSec: timelineDur, Segments: len(parts)}, nil
}

// finish lays background music under the timeline when configured, otherwise
// re-muxes the timeline as-is. A missing music file skips the layer.
func (e *Engine) finish(ctx context.Context, in Input, timeline string, timelineDur float64) error {
	bgPath := in.BackgroundAudio
	if bgPath != "" {
		if _, err := os.Stat(bgPath); err != nil {
			e.deps.Logger.Warn().
				Str("background", bgPath).
				Msg("background audio missing, rendering without music")
			bgPath = ""
		}
	}
	if bgPath == "" {
		if err := e.deps.Media.Finalize(ctx, timeline, in.Out); err != nil {
			return engine.Wrap(engine.ErrEncode, "render", "finalize", err)
		}
		return nil
	}

	bgInfo, err := e.deps.Media.Probe(ctx, bgPath)
	if err != nil {
		return engine.Wrap(engine.ErrDecode, "render", "probe background", err)
	}
	bg := ports.BackgroundSpec{
		Path:        bgPath,
		DurationSec: bgInfo.Duration,
		Gain:        in.BackgroundGain,
	}
	// Composed parts always carry an audio stream, silent bed included.
	if err := e.deps.Media.MixBackground(ctx, timeline, bg, timelineDur, true, e.encodeSettings(), in.Out); err != nil {
		return engine.Wrap(engine.ErrEncode, "render", "mix background", err)
	}
	return nil
}

func (e *Engine) encodeSettings() ports.EncodeSettings {
	cfg := e.deps.Config
	return ports.EncodeSettings{
		FPS:          cfg.Video.FPS,
		VideoCodec:   cfg.Video.Codec,
		Preset:       cfg.Video.Preset,
		CRF:          cfg.Video.CRF,
		AudioCodec:   cfg.Audio.Codec,
		AudioBitrate: fmt.Sprintf("%dk", cfg.Audio.BitrateKbps),
	}
}
