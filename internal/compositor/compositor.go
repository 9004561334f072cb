// Package compositor turns segment descriptors into fully-resolved
// composition specs: it validates cut ranges, prepares caption files,
// resolves optional narration and overlay layers, and hands the result to
// the media backend. All per-segment policy lives here so the backend
// stays mechanical.
package compositor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/vcompose/vcompose/internal/config"
	"github.com/vcompose/vcompose/internal/domain/captions"
	"github.com/vcompose/vcompose/internal/domain/reframe"
	"github.com/vcompose/vcompose/internal/engine"
	"github.com/vcompose/vcompose/internal/ports"
	"github.com/vcompose/vcompose/internal/types"
)

// cropSampleStep is the interval at which a crop-center function is sampled
// when compiling the piecewise crop expression.
const cropSampleStep = 0.5

type Compositor struct {
	media ports.MediaTool
	cfg   config.Config
	log   zerolog.Logger
}

func New(media ports.MediaTool, cfg config.Config, log zerolog.Logger) *Compositor {
	return &Compositor{media: media, cfg: cfg, log: log}
}

// Request is one segment to compose, with the already-probed source it cuts
// from and the scratch directory segment artifacts go into.
type Request struct {
	Source      string
	SourceInfo  ports.MediaInfo
	Segment     types.SegmentDescriptor
	Index       int
	Orientation types.Orientation
	CropCenter  ports.CropCenterFunc
	WorkDir     string
}

// Compose renders one segment into the work directory and returns the path
// of the composed part. Missing narration degrades to a warning; an invalid
// cut range aborts.
func (c *Compositor) Compose(ctx context.Context, req Request) (string, error) {
	seg := req.Segment
	if err := c.validateRange(seg, req.SourceInfo.Duration); err != nil {
		return "", err
	}

	size := req.Orientation.TargetSize()
	spec := ports.ComposeSpec{
		Source:         req.Source,
		Start:          seg.Start,
		End:            seg.End,
		Orientation:    req.Orientation,
		Size:           size,
		SourceHasAudio: req.SourceInfo.HasAudio,
		FadeSec:        c.cfg.FadeSec,
		Encode:         c.encodeSettings(),
		Out:            filepath.Join(req.WorkDir, fmt.Sprintf("seg_%03d.mp4", req.Index)),
	}

	if req.Orientation != types.OrientationHorizontal {
		spec.CropX = c.cropExpr(seg, size, req.CropCenter)
	}

	subPath, err := c.writeCaptions(seg, size, req.WorkDir, req.Index)
	if err != nil {
		return "", err
	}
	spec.SubtitlePath = subPath
	if subPath != "" {
		if font := c.cfg.ResolveFont(); font != "" {
			spec.FontsDir = filepath.Dir(font)
		}
	}

	spec.NarrationPath = c.resolveNarration(seg, req.Index)
	spec.Overlay = c.overlaySpec(seg)

	if err := c.media.ComposeSegment(ctx, spec); err != nil {
		return "", engine.Wrap(engine.ErrEncode, "compositor", fmt.Sprintf("segment %d", req.Index), err)
	}
	return spec.Out, nil
}

func (c *Compositor) validateRange(seg types.SegmentDescriptor, sourceDur float64) error {
	switch {
	case seg.Start < 0:
		return engine.Wrapf(engine.ErrInvalidInput, "compositor", "validate",
			"segment start %.3f is negative", seg.Start)
	case seg.End <= seg.Start:
		return engine.Wrapf(engine.ErrInvalidInput, "compositor", "validate",
			"segment range [%.3f, %.3f] is empty", seg.Start, seg.End)
	case seg.End > sourceDur:
		return engine.Wrapf(engine.ErrInvalidInput, "compositor", "validate",
			"segment end %.3f exceeds source duration %.3f", seg.End, sourceDur)
	}
	return nil
}

// writeCaptions merges the segment transcript into cues and writes them as a
// segment-local ASS file. Returns "" when the segment has no usable cues.
func (c *Compositor) writeCaptions(seg types.SegmentDescriptor, size types.Size, workDir string, index int) (string, error) {
	if len(seg.Transcript) == 0 {
		return "", nil
	}

	local := make([]types.CaptionFragment, 0, len(seg.Transcript))
	for _, f := range seg.Transcript {
		if f.End <= seg.Start || f.Start >= seg.End {
			continue
		}
		local = append(local, types.CaptionFragment{
			Start: f.Start - seg.Start,
			End:   f.End - seg.Start,
			Text:  f.Text,
		})
	}
	cues := captions.Merge(local, captions.MergeOptions{
		MaxDuration: c.cfg.Captions.MaxCueSec,
		MaxGap:      c.cfg.Captions.MaxGapSec,
		Terminals:   c.cfg.TerminalRunes(),
	})
	cues = captions.ClampToWindow(cues, seg.Duration(), c.cfg.Captions.MinCueSec)
	if len(cues) == 0 {
		return "", nil
	}

	doc := captions.RenderASS(cues, size, seg.Position(), c.cfg.Font.FallbackFamily)
	path := filepath.Join(workDir, fmt.Sprintf("seg_%03d.ass", index))
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		return "", engine.Wrap(engine.ErrEncode, "compositor", "write captions", err)
	}
	return path, nil
}

// resolveNarration checks the narration clip exists; a missing file degrades
// to the original segment audio instead of failing the render.
func (c *Compositor) resolveNarration(seg types.SegmentDescriptor, index int) string {
	if seg.NarrationPath == "" {
		return ""
	}
	if _, err := os.Stat(seg.NarrationPath); err != nil {
		c.log.Warn().
			Int("segment", index).
			Str("narration", seg.NarrationPath).
			Msg("narration clip missing, keeping original audio")
		return ""
	}
	return seg.NarrationPath
}

func (c *Compositor) overlaySpec(seg types.SegmentDescriptor) *ports.OverlaySpec {
	if seg.OverlayText == "" {
		return nil
	}
	return &ports.OverlaySpec{
		Text:      seg.OverlayText,
		LeadInSec: c.cfg.Overlay.LeadInSec,
		Opacity:   c.cfg.Overlay.Opacity,
		FontSize:  c.cfg.Overlay.FontSize,
		FontFile:  c.cfg.ResolveFont(),
	}
}

// cropExpr samples the crop-center function over the segment and compiles the
// samples into a crop-x expression. Timestamps handed to the function are
// source-absolute; the emitted expression runs on segment-local time.
func (c *Compositor) cropExpr(seg types.SegmentDescriptor, size types.Size, fn ports.CropCenterFunc) string {
	if fn == nil {
		return ""
	}
	var samples []reframe.CropSample
	for t := 0.0; t < seg.Duration(); t += cropSampleStep {
		samples = append(samples, reframe.CropSample{T: t, Offset: fn(seg.Start + t)})
	}
	return reframe.CropXExpr(size, samples)
}

func (c *Compositor) encodeSettings() ports.EncodeSettings {
	return ports.EncodeSettings{
		FPS:          c.cfg.Video.FPS,
		VideoCodec:   c.cfg.Video.Codec,
		Preset:       c.cfg.Video.Preset,
		CRF:          c.cfg.Video.CRF,
		AudioCodec:   c.cfg.Audio.Codec,
		AudioBitrate: fmt.Sprintf("%dk", c.cfg.Audio.BitrateKbps),
	}
}
