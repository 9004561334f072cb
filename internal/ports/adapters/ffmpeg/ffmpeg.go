// Package ffmpeg shells out to ffmpeg/ffprobe to execute the filter graphs
// built by the domain packages. It is the only package that touches media
// bytes; everything above it works with paths and filter strings.
package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	ffmpeggo "github.com/u2takey/ffmpeg-go"

	"github.com/vcompose/vcompose/internal/domain/audiomix"
	"github.com/vcompose/vcompose/internal/domain/reframe"
	"github.com/vcompose/vcompose/internal/ports"
	"github.com/vcompose/vcompose/internal/types"
)

type Adapter struct {
	ffmpeg  string
	ffprobe string
}

func New(ffmpegPath, ffprobePath string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath}
}

type probeStream struct {
	CodecType string `json:"codec_type"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

type probeOutput struct {
	Streams []probeStream `json:"streams"`
	Format  struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func (a *Adapter) Probe(ctx context.Context, path string) (ports.MediaInfo, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration:stream=codec_type,width,height",
		"-of", "json",
		path,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return ports.MediaInfo{}, fmt.Errorf("ffprobe %s: %w\n%s", path, err, string(b))
	}
	var out probeOutput
	if err := json.Unmarshal(b, &out); err != nil {
		return ports.MediaInfo{}, fmt.Errorf("parse ffprobe output: %w", err)
	}

	info := ports.MediaInfo{}
	if out.Format.Duration != "" {
		sec, err := strconv.ParseFloat(strings.TrimSpace(out.Format.Duration), 64)
		if err != nil {
			return ports.MediaInfo{}, fmt.Errorf("parse duration %q: %w", out.Format.Duration, err)
		}
		info.Duration = sec
	}
	for _, s := range out.Streams {
		switch s.CodecType {
		case "video":
			if info.Width == 0 {
				info.Width = s.Width
				info.Height = s.Height
			}
		case "audio":
			info.HasAudio = true
		}
	}
	if info.Duration <= 0 {
		return ports.MediaInfo{}, fmt.Errorf("no usable duration in %s", path)
	}
	return info, nil
}

func (a *Adapter) ComposeSegment(ctx context.Context, spec ports.ComposeSpec) error {
	dur := spec.End - spec.Start

	args := []string{
		"-y",
		"-ss", fmtSeconds(spec.Start),
		"-to", fmtSeconds(spec.End),
		"-i", spec.Source,
	}
	narrIdx, silentIdx := -1, -1
	next := 1
	if spec.NarrationPath != "" {
		args = append(args, "-i", spec.NarrationPath)
		narrIdx = next
		next++
	}
	if !spec.SourceHasAudio {
		// Every composed part must carry an audio stream or concat breaks.
		args = append(args,
			"-f", "lavfi",
			"-t", fmtSeconds(dur),
			"-i", "anullsrc=channel_layout=stereo:sample_rate=48000",
		)
		silentIdx = next
	}

	filter := buildComposeFilter(spec, dur, narrIdx, silentIdx)
	args = append(args,
		"-filter_complex", filter,
		"-map", "[vfinal]",
		"-map", "[afinal]",
	)
	args = append(args, encodeArgs(spec.Encode)...)
	args = append(args, spec.Out)

	cmd := exec.CommandContext(ctx, a.ffmpeg, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg compose segment: %w\n%s", err, string(b))
	}
	return nil
}

func (a *Adapter) Concat(ctx context.Context, parts []string, out string) error {
	listPath := strings.TrimSuffix(out, filepath.Ext(out)) + ".concat.txt"
	var lines []string
	for _, p := range parts {
		lines = append(lines, fmt.Sprintf("file '%s'", strings.ReplaceAll(p, "'", `'\''`)))
	}
	if err := os.WriteFile(listPath, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}
	defer os.Remove(listPath)

	stream := ffmpeggo.Input(listPath, ffmpeggo.KwArgs{"f": "concat", "safe": "0"}).
		Output(out, ffmpeggo.KwArgs{"c": "copy"}).
		OverWriteOutput()
	return a.runStream(ctx, "concat", stream)
}

func (a *Adapter) MixBackground(ctx context.Context, timeline string, bg ports.BackgroundSpec, timelineDur float64, timelineHasAudio bool, enc ports.EncodeSettings, out string) error {
	args := []string{
		"-y",
		"-i", timeline,
	}
	if loops := audiomix.StreamLoops(bg.DurationSec, timelineDur); loops > 0 {
		args = append(args, "-stream_loop", strconv.Itoa(loops))
	}
	args = append(args,
		"-i", bg.Path,
		"-filter_complex", audiomix.BackgroundMix(bg.Gain, timelineDur, timelineHasAudio),
		"-map", "0:v",
		"-map", "[aout]",
		"-c:v", "copy",
		"-c:a", enc.AudioCodec,
		"-b:a", enc.AudioBitrate,
		"-movflags", "+faststart",
		out,
	)
	cmd := exec.CommandContext(ctx, a.ffmpeg, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg mix background: %w\n%s", err, string(b))
	}
	return nil
}

func (a *Adapter) Finalize(ctx context.Context, timeline, out string) error {
	stream := ffmpeggo.Input(timeline).
		Output(out, ffmpeggo.KwArgs{"c": "copy", "movflags": "+faststart"}).
		OverWriteOutput()
	return a.runStream(ctx, "finalize", stream)
}

// runStream executes a graph assembled with ffmpeg-go under our context and
// binary path.
func (a *Adapter) runStream(ctx context.Context, op string, stream *ffmpeggo.Stream) error {
	cmd := exec.CommandContext(ctx, a.ffmpeg, stream.GetArgs()...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg %s: %w\n%s", op, err, string(b))
	}
	return nil
}

// buildComposeFilter assembles the full filter_complex for one segment:
// reframe, captions, overlay, audio layering, fades. Producing [vfinal] and
// [afinal] regardless of which optional layers are present keeps the -map
// arguments fixed.
func buildComposeFilter(spec ports.ComposeSpec, dur float64, narrIdx, silentIdx int) string {
	var parts []string

	// Video: reframe, then the flat post chain.
	if spec.Orientation == types.OrientationHorizontal {
		parts = append(parts, fmt.Sprintf("[0:v]%s[vout]", reframe.Horizontal(spec.Size)))
	} else {
		parts = append(parts, "[0:v]null[vin]")
		parts = append(parts, reframe.Vertical(spec.Size, spec.CropX))
	}

	post := []string{fmt.Sprintf("fps=%d", spec.Encode.FPS)}
	if spec.SubtitlePath != "" {
		sub := "subtitles=" + escapeFilterPath(spec.SubtitlePath)
		if spec.FontsDir != "" {
			sub += ":fontsdir=" + escapeFilterPath(spec.FontsDir)
		}
		post = append(post, sub)
	}
	if o := spec.Overlay; o != nil {
		post = append(post, drawtext(o))
	}
	post = append(post, audiomix.VideoFades(spec.FadeSec, dur))
	parts = append(parts, fmt.Sprintf("[vout]%s[vfinal]", strings.Join(post, ",")))

	// Audio: pick the bed, optionally duck under narration, then fade.
	srcLabel := "0:a"
	if silentIdx >= 0 {
		srcLabel = fmt.Sprintf("%d:a", silentIdx)
	}
	if narrIdx >= 0 {
		parts = append(parts, audiomix.NarrationMix(srcLabel, fmt.Sprintf("%d:a", narrIdx)))
		parts = append(parts, fmt.Sprintf("[aout]%s[afinal]", audiomix.AudioFades(spec.FadeSec, dur)))
	} else {
		parts = append(parts, fmt.Sprintf("[%s]%s[afinal]", srcLabel, audiomix.AudioFades(spec.FadeSec, dur)))
	}

	return strings.Join(parts, ";")
}

func drawtext(o *ports.OverlaySpec) string {
	f := fmt.Sprintf(
		"drawtext=text='%s':fontsize=%d:fontcolor=white:box=1:boxcolor=black@%.2f:boxborderw=10:x=20:y=20:enable='lte(t,%s)'",
		escapeDrawtext(o.Text), o.FontSize, o.Opacity, fmtSeconds(o.LeadInSec))
	if o.FontFile != "" {
		f += ":fontfile=" + escapeFilterPath(o.FontFile)
	}
	return f
}

func encodeArgs(enc ports.EncodeSettings) []string {
	return []string{
		"-c:v", enc.VideoCodec,
		"-preset", enc.Preset,
		"-crf", strconv.Itoa(enc.CRF),
		"-r", strconv.Itoa(enc.FPS),
		"-pix_fmt", "yuv420p",
		"-c:a", enc.AudioCodec,
		"-b:a", enc.AudioBitrate,
	}
}

func fmtSeconds(sec float64) string {
	return strconv.FormatFloat(sec, 'f', 3, 64)
}

func escapeFilterPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "\\\\")
	p = strings.ReplaceAll(p, ":", "\\:")
	p = strings.ReplaceAll(p, "'", "\\'")
	return p
}

func escapeDrawtext(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "'", "\\'")
	s = strings.ReplaceAll(s, ":", "\\:")
	s = strings.ReplaceAll(s, "%", "\\%")
	return s
}
