package ports

import (
	"context"

	"github.com/vcompose/vcompose/internal/types"
)

// CropCenterFunc is supplied by a face-detection collaborator: given a
// source-absolute timestamp it returns the horizontal crop-center offset in
// pixels relative to the geometric center. nil means static center crop.
type CropCenterFunc func(timestamp float64) float64

// MediaInfo is what probing a media file yields.
type MediaInfo struct {
	Duration float64
	Width    int
	Height   int
	HasAudio bool
}

// EncodeSettings are the fixed output encoding parameters.
type EncodeSettings struct {
	FPS          int
	VideoCodec   string
	Preset       string
	CRF          int
	AudioCodec   string
	AudioBitrate string
}

// OverlaySpec is a persistent corner label shown for a lead-in period.
type OverlaySpec struct {
	Text      string
	LeadInSec float64
	Opacity   float64
	FontSize  int
	FontFile  string
}

// ComposeSpec describes one fully-resolved segment composition: the cut
// range, the reframe graph, optional caption/overlay/narration layers, and
// the fades. All optional layers are already validated by the compositor;
// the adapter performs no policy decisions.
type ComposeSpec struct {
	Source string
	Start  float64
	End    float64

	Orientation types.Orientation
	Size        types.Size
	// CropX overrides the backdrop crop-x expression in vertical mode.
	CropX string

	// SubtitlePath is a segment-local ASS file, empty when no captions.
	SubtitlePath string
	// FontsDir points the subtitle renderer at the resolved font file's
	// directory; empty means installed system fonts.
	FontsDir string

	Overlay *OverlaySpec

	// NarrationPath is an existing narration clip, empty to keep the
	// original track untouched.
	NarrationPath string
	// SourceHasAudio tells the adapter whether a silent bed must be
	// synthesized so every composed part carries an audio stream.
	SourceHasAudio bool

	FadeSec float64
	Encode  EncodeSettings

	Out string
}

// BackgroundSpec describes the timeline-level music layer.
type BackgroundSpec struct {
	Path string
	// DurationSec is the music file's own duration, used to compute looping.
	DurationSec float64
	Gain        float64
}

// MediaTool is the rendering backend: probing, per-segment composition,
// concatenation, and the final background-audio encode.
type MediaTool interface {
	Probe(ctx context.Context, path string) (MediaInfo, error)

	// ComposeSegment cuts, reframes, layers and fades one segment into
	// spec.Out. Output duration equals End-Start.
	ComposeSegment(ctx context.Context, spec ComposeSpec) error

	// Concat joins already-composed parts back-to-back into out without
	// re-encoding.
	Concat(ctx context.Context, parts []string, out string) error

	// MixBackground loops/trims bg under the timeline, scales it by
	// bg.Gain and encodes the final file to out. timelineDur bounds the
	// output; timelineHasAudio selects mix-under versus music-only.
	MixBackground(ctx context.Context, timeline string, bg BackgroundSpec, timelineDur float64, timelineHasAudio bool, enc EncodeSettings, out string) error

	// Finalize publishes a timeline that needs no background layer,
	// re-muxing it for progressive playback.
	Finalize(ctx context.Context, timeline, out string) error
}
