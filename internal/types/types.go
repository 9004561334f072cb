package types

// Orientation selects the output framing mode.
type Orientation string

const (
	OrientationVertical   Orientation = "vertical"
	OrientationHorizontal Orientation = "horizontal"
)

// Size is an output frame size in pixels.
type Size struct {
	W int
	H int
}

// TargetSize maps an orientation to its fixed output dimensions.
func (o Orientation) TargetSize() Size {
	if o == OrientationHorizontal {
		return Size{W: 1920, H: 1080}
	}
	return Size{W: 1080, H: 1920}
}

// Valid reports whether the orientation is one of the two supported modes.
func (o Orientation) Valid() bool {
	return o == OrientationVertical || o == OrientationHorizontal
}

// SubtitlePosition places burned-in captions on the frame.
type SubtitlePosition string

const (
	PositionTop    SubtitlePosition = "top"
	PositionCenter SubtitlePosition = "center"
	PositionBottom SubtitlePosition = "bottom"
)

// CaptionFragment is a raw transcript fragment in source-absolute seconds.
// Fragments may be arbitrarily short (word or phrase level).
type CaptionFragment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// CaptionCue is a display-ready caption unit in segment-local seconds
// (0 at the start of the cut).
type CaptionCue struct {
	Start float64
	End   float64
	Text  string
}

// SegmentDescriptor is the unit of work handed to the engine: a time range of
// the source plus optional presentation metadata. Immutable once submitted.
type SegmentDescriptor struct {
	Start            float64           `json:"start"`
	End              float64           `json:"end"`
	Transcript       []CaptionFragment `json:"transcript,omitempty"`
	NarrationPath    string            `json:"narration_path,omitempty"`
	OverlayText      string            `json:"overlay_text,omitempty"`
	SubtitlePosition SubtitlePosition  `json:"subtitle_position,omitempty"`
}

// Duration returns the segment's post-cut duration in seconds.
func (d SegmentDescriptor) Duration() float64 { return d.End - d.Start }

// Position returns the subtitle position, defaulting to bottom.
func (d SegmentDescriptor) Position() SubtitlePosition {
	switch d.SubtitlePosition {
	case PositionTop, PositionCenter:
		return d.SubtitlePosition
	default:
		return PositionBottom
	}
}

// RenderJob is the JSON document the CLI feeds the pipeline.
type RenderJob struct {
	Input           string              `json:"input"`
	Segments        []SegmentDescriptor `json:"segments"`
	Orientation     Orientation         `json:"orientation,omitempty"`
	BackgroundAudio string              `json:"background_audio,omitempty"`
	BackgroundGain  float64             `json:"background_gain,omitempty"`
}
