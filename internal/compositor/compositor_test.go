package compositor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/vcompose/vcompose/internal/config"
	"github.com/vcompose/vcompose/internal/engine"
	"github.com/vcompose/vcompose/internal/ports"
	"github.com/vcompose/vcompose/internal/types"
)

type fakeMedia struct {
	specs      []ports.ComposeSpec
	composeErr error
}

func (f *fakeMedia) Probe(ctx context.Context, path string) (ports.MediaInfo, error) {
	return ports.MediaInfo{}, errors.New("not used")
}

func (f *fakeMedia) ComposeSegment(ctx context.Context, spec ports.ComposeSpec) error {
	f.specs = append(f.specs, spec)
	return f.composeErr
}

func (f *fakeMedia) Concat(ctx context.Context, parts []string, out string) error { return nil }

func (f *fakeMedia) MixBackground(ctx context.Context, timeline string, bg ports.BackgroundSpec, timelineDur float64, timelineHasAudio bool, enc ports.EncodeSettings, out string) error {
	return nil
}

func (f *fakeMedia) Finalize(ctx context.Context, timeline, out string) error { return nil }

func newTestCompositor(media ports.MediaTool) *Compositor {
	cfg := config.Default()
	cfg.Font.File = "" // no font file in test environments
	return New(media, cfg, zerolog.Nop())
}

func baseRequest(t *testing.T) Request {
	t.Helper()
	return Request{
		Source:      "/in/source.mp4",
		SourceInfo:  ports.MediaInfo{Duration: 120, Width: 1920, Height: 1080, HasAudio: true},
		Segment:     types.SegmentDescriptor{Start: 10, End: 40},
		Index:       1,
		Orientation: types.OrientationVertical,
		WorkDir:     t.TempDir(),
	}
}

func TestCompose_BuildsSpecFromDescriptor(t *testing.T) {
	t.Parallel()

	fake := &fakeMedia{}
	c := newTestCompositor(fake)
	req := baseRequest(t)

	out, err := c.Compose(context.Background(), req)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if len(fake.specs) != 1 {
		t.Fatalf("expected one composition, got %d", len(fake.specs))
	}
	spec := fake.specs[0]
	if spec.Start != 10 || spec.End != 40 {
		t.Fatalf("cut range = [%v, %v]", spec.Start, spec.End)
	}
	if spec.Size != (types.Size{W: 1080, H: 1920}) {
		t.Fatalf("size = %+v", spec.Size)
	}
	if !spec.SourceHasAudio {
		t.Fatal("probed audio flag not forwarded")
	}
	if filepath.Base(out) != "seg_001.mp4" {
		t.Fatalf("out = %s", out)
	}
	if spec.SubtitlePath != "" || spec.Overlay != nil || spec.NarrationPath != "" {
		t.Fatalf("bare descriptor grew optional layers: %+v", spec)
	}
}

func TestCompose_RejectsBadRanges(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		start float64
		end   float64
	}{
		{"negative start", -1, 10},
		{"empty range", 20, 20},
		{"inverted range", 40, 10},
		{"past source end", 100, 130},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			fake := &fakeMedia{}
			c := newTestCompositor(fake)
			req := baseRequest(t)
			req.Segment = types.SegmentDescriptor{Start: tc.start, End: tc.end}

			_, err := c.Compose(context.Background(), req)
			if !errors.Is(err, engine.ErrInvalidInput) {
				t.Fatalf("err = %v, want ErrInvalidInput", err)
			}
			if len(fake.specs) != 0 {
				t.Fatal("invalid range must not reach the backend")
			}
		})
	}
}

func TestCompose_WritesSegmentLocalCaptions(t *testing.T) {
	t.Parallel()

	fake := &fakeMedia{}
	c := newTestCompositor(fake)
	req := baseRequest(t)
	req.Segment.Transcript = []types.CaptionFragment{
		{Start: 11, End: 13, Text: "Opening line."},
		{Start: 5, End: 9, Text: "Before the cut."},
		{Start: 50, End: 55, Text: "After the cut."},
	}

	if _, err := c.Compose(context.Background(), req); err != nil {
		t.Fatalf("Compose: %v", err)
	}
	spec := fake.specs[0]
	if spec.SubtitlePath == "" {
		t.Fatal("expected a caption file")
	}
	doc, err := os.ReadFile(spec.SubtitlePath)
	if err != nil {
		t.Fatalf("read captions: %v", err)
	}
	if !strings.Contains(string(doc), "Opening line.") {
		t.Fatalf("in-range fragment missing:\n%s", doc)
	}
	if strings.Contains(string(doc), "Before the cut.") || strings.Contains(string(doc), "After the cut.") {
		t.Fatalf("out-of-range fragments leaked:\n%s", doc)
	}
	// Fragment at source time 11-13 must land at local time 1-3.
	if !strings.Contains(string(doc), "0:00:01.00,0:00:03.00") {
		t.Fatalf("cue not shifted to segment-local time:\n%s", doc)
	}
}

func TestCompose_MissingNarrationDegrades(t *testing.T) {
	t.Parallel()

	fake := &fakeMedia{}
	c := newTestCompositor(fake)
	req := baseRequest(t)
	req.Segment.NarrationPath = filepath.Join(t.TempDir(), "nope.wav")

	if _, err := c.Compose(context.Background(), req); err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if fake.specs[0].NarrationPath != "" {
		t.Fatal("missing narration must be dropped, not forwarded")
	}
}

func TestCompose_ExistingNarrationForwarded(t *testing.T) {
	t.Parallel()

	fake := &fakeMedia{}
	c := newTestCompositor(fake)
	req := baseRequest(t)
	narr := filepath.Join(t.TempDir(), "narr.wav")
	if err := os.WriteFile(narr, []byte("riff"), 0o644); err != nil {
		t.Fatal(err)
	}
	req.Segment.NarrationPath = narr

	if _, err := c.Compose(context.Background(), req); err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if fake.specs[0].NarrationPath != narr {
		t.Fatalf("narration = %q, want %q", fake.specs[0].NarrationPath, narr)
	}
}

func TestCompose_OverlayFromConfig(t *testing.T) {
	t.Parallel()

	fake := &fakeMedia{}
	c := newTestCompositor(fake)
	req := baseRequest(t)
	req.Segment.OverlayText = "Part 3"

	if _, err := c.Compose(context.Background(), req); err != nil {
		t.Fatalf("Compose: %v", err)
	}
	o := fake.specs[0].Overlay
	if o == nil {
		t.Fatal("expected overlay spec")
	}
	if o.Text != "Part 3" || o.LeadInSec != 3.0 || o.Opacity != 0.8 || o.FontSize != 40 {
		t.Fatalf("overlay = %+v", o)
	}
}

func TestCompose_CropCenterCompiledForVertical(t *testing.T) {
	t.Parallel()

	fake := &fakeMedia{}
	c := newTestCompositor(fake)
	req := baseRequest(t)
	var seen []float64
	req.CropCenter = func(ts float64) float64 {
		seen = append(seen, ts)
		return 42
	}

	if _, err := c.Compose(context.Background(), req); err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if len(seen) == 0 {
		t.Fatal("crop-center function never sampled")
	}
	if seen[0] != req.Segment.Start {
		t.Fatalf("first sample at %v, want source-absolute %v", seen[0], req.Segment.Start)
	}
	if !strings.Contains(fake.specs[0].CropX, "42.0") {
		t.Fatalf("crop expression missing sampled offset: %s", fake.specs[0].CropX)
	}
}

func TestCompose_HorizontalSkipsCrop(t *testing.T) {
	t.Parallel()

	fake := &fakeMedia{}
	c := newTestCompositor(fake)
	req := baseRequest(t)
	req.Orientation = types.OrientationHorizontal
	req.CropCenter = func(ts float64) float64 { return 42 }

	if _, err := c.Compose(context.Background(), req); err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if fake.specs[0].CropX != "" {
		t.Fatalf("horizontal segment got crop expression %q", fake.specs[0].CropX)
	}
}

func TestCompose_BackendFailureTaggedEncode(t *testing.T) {
	t.Parallel()

	fake := &fakeMedia{composeErr: errors.New("boom")}
	c := newTestCompositor(fake)

	_, err := c.Compose(context.Background(), baseRequest(t))
	if !errors.Is(err, engine.ErrEncode) {
		t.Fatalf("err = %v, want ErrEncode", err)
	}
}
