// Package reframe builds the video filter chains that convert a source frame
// stream to the target aspect ratio: a plain isotropic resize for landscape
// output, or a blurred-backdrop/centered-foreground composite for portrait
// output.
package reframe

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vcompose/vcompose/internal/types"
)

// darkenFactor dims the blurred backdrop so it never competes with the
// foreground copy of the frame.
const darkenFactor = 0.7

// blurShrink is the downsample ratio of the cheap blur: shrink to 5% and
// upscale with bicubic interpolation, approximating a wide box blur.
const blurShrink = 0.05

// CropSample is a sampled horizontal crop-center offset, in pixels relative
// to the geometric center, at a segment-local time.
type CropSample struct {
	T      float64
	Offset float64
}

// Horizontal returns the filter chain for landscape output: resize so frame
// width equals the target width, height following the source aspect ratio.
func Horizontal(size types.Size) string {
	return fmt.Sprintf("scale=%d:-2", size.W)
}

// Vertical returns a labeled filter graph for portrait output. The input
// stream is split into a backdrop (scaled to target height, cropped to target
// width at cropX, blurred and darkened) and a foreground (scaled to target
// width, centered on top). The graph consumes [vin] and produces [vout].
func Vertical(size types.Size, cropX string) string {
	if cropX == "" {
		cropX = CenterCropX(size)
	}
	shrunkW := fmt.Sprintf("trunc(iw*%g/2)*2", blurShrink)
	shrunkH := fmt.Sprintf("trunc(ih*%g/2)*2", blurShrink)
	parts := []string{
		"[vin]split=2[rfbg][rffg]",
		fmt.Sprintf("[rfbg]scale=-2:%d,crop=%d:%d:%s:0,scale=%s:%s,scale=%d:%d:flags=bicubic,colorchannelmixer=rr=%g:gg=%g:bb=%g[rfbgd]",
			size.H, size.W, size.H, cropX, shrunkW, shrunkH, size.W, size.H,
			darkenFactor, darkenFactor, darkenFactor),
		fmt.Sprintf("[rffg]scale=%d:-2[rffgs]", size.W),
		"[rfbgd][rffgs]overlay=(main_w-overlay_w)/2:(main_h-overlay_h)/2[vout]",
	}
	return strings.Join(parts, ";")
}

// CenterCropX is the static geometric-center crop expression used when no
// crop-center function is supplied.
func CenterCropX(size types.Size) string {
	return fmt.Sprintf("(iw-%d)/2", size.W)
}

// CropXExpr compiles sampled crop-center offsets into a piecewise-constant
// ffmpeg crop-x expression, clamped so the crop window always stays inside
// the frame. An empty sample set falls back to the geometric center.
func CropXExpr(size types.Size, samples []CropSample) string {
	if len(samples) == 0 {
		return CenterCropX(size)
	}
	sorted := make([]CropSample, len(samples))
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].T < sorted[j].T })

	// Nested if(lt(t,...)) chain, evaluated against segment-local time.
	expr := fmt.Sprintf("%.1f", sorted[len(sorted)-1].Offset)
	for i := len(sorted) - 2; i >= 0; i-- {
		expr = fmt.Sprintf("if(lt(t,%.3f),%.1f,%s)", sorted[i+1].T, sorted[i].Offset, expr)
	}
	center := CenterCropX(size)
	return fmt.Sprintf("min(max(%s+(%s),0),iw-%d)", center, expr, size.W)
}
