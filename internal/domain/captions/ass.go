package captions

import (
	"fmt"
	"strings"
	"time"

	"github.com/vcompose/vcompose/internal/types"
)

// ASS alignment codes (numpad layout).
const (
	alignBottomCenter = 2
	alignMiddleCenter = 5
	alignTopCenter    = 8
)

// RenderASS renders segment-local cues as a burn-ready ASS document sized to
// the output frame. fontName is an installed family name; the caption style
// follows the short-form-video look: white fill, heavy black outline, wrapped
// at 90% of the frame width.
func RenderASS(cues []types.CaptionCue, size types.Size, pos types.SubtitlePosition, fontName string) string {
	var b strings.Builder
	b.WriteString(header(size, pos, fontName))
	b.WriteString("\n[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	for _, c := range cues {
		b.WriteString("Dialogue: 0,")
		b.WriteString(assTime(secs(c.Start)))
		b.WriteString(",")
		b.WriteString(assTime(secs(c.End)))
		b.WriteString(",Caption,,0,0,0,,")
		b.WriteString(sanitizeASS(c.Text))
		b.WriteString("\n")
	}
	return b.String()
}

func header(size types.Size, pos types.SubtitlePosition, fontName string) string {
	fontSize := int(float64(size.W) * 0.055)
	marginH := size.W / 20
	align, marginV := placement(size, pos)
	return fmt.Sprintf(strings.TrimSpace(`
[Script Info]
ScriptType: v4.00+
PlayResX: %d
PlayResY: %d
ScaledBorderAndShadow: yes

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: Caption, %s, %d, &H00FFFFFF, &H00FFFFFF, &H00000000, &H64000000, 1,0,0,0,100,100,0,0,1,3,1,%d, %d,%d,%d,1
`), size.W, size.H, fontName, fontSize, align, marginH, marginH, marginV)
}

// placement converts a subtitle position into an ASS alignment plus vertical
// margin: bottom puts the baseline around 75% of frame height, top around
// 20%, center uses middle alignment with no margin.
func placement(size types.Size, pos types.SubtitlePosition) (align, marginV int) {
	switch pos {
	case types.PositionTop:
		return alignTopCenter, int(float64(size.H) * 0.20)
	case types.PositionCenter:
		return alignMiddleCenter, 0
	default:
		return alignBottomCenter, int(float64(size.H) * 0.25)
	}
}

func assTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hs := int(d / time.Hour)
	d -= time.Duration(hs) * time.Hour
	ms := int(d / time.Minute)
	d -= time.Duration(ms) * time.Minute
	s := int(d / time.Second)
	d -= time.Duration(s) * time.Second
	cs := int(d / (10 * time.Millisecond))
	return fmt.Sprintf("%d:%02d:%02d.%02d", hs, ms, s, cs)
}

func sanitizeASS(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "{", "(")
	s = strings.ReplaceAll(s, "}", ")")
	s = strings.ReplaceAll(s, "\n", "\\N")
	return strings.TrimSpace(s)
}

func secs(sec float64) time.Duration { return time.Duration(sec * float64(time.Second)) }
