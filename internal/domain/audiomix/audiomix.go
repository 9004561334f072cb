// Package audiomix builds the audio filter graphs for narration ducking,
// background-music looping, and segment fades. Mixing is plain additive
// sample summing after per-track gain; clipping is left to the encoder.
package audiomix

import (
	"fmt"
	"math"
)

const (
	// NarrationDuck is the gain applied to the original track while
	// narration plays over it.
	NarrationDuck = 0.2

	// DefaultBackgroundGain keeps looped music well under speech.
	DefaultBackgroundGain = 0.1
)

// NarrationMix returns a filter graph that ducks the original track and
// additively mixes full-gain narration over it. srcLabel and narrLabel are
// input stream specifiers (e.g. "0:a", "1:a"); the graph produces [aout],
// trimmed to the visual duration by the first input.
func NarrationMix(srcLabel, narrLabel string) string {
	return fmt.Sprintf(
		"[%s]volume=%.2f[ducked];[ducked][%s]amix=inputs=2:duration=first:normalize=0[aout]",
		srcLabel, NarrationDuck, narrLabel)
}

// BackgroundMix returns a filter graph layering gain-scaled background music
// under an already-composed timeline track. When the timeline carries no
// audio the background is used alone, trimmed to the timeline duration.
func BackgroundMix(gain, timelineDur float64, timelineHasAudio bool) string {
	if gain <= 0 {
		gain = DefaultBackgroundGain
	}
	if !timelineHasAudio {
		return fmt.Sprintf("[1:a]volume=%.3f,atrim=0:%.3f[aout]", gain, timelineDur)
	}
	return fmt.Sprintf(
		"[1:a]volume=%.3f[bg];[0:a][bg]amix=inputs=2:duration=first:normalize=0[aout]",
		gain)
}

// Plays returns how many times a background clip must play back-to-back to
// cover the full timeline before trimming. A clip at least as long as the
// timeline plays once.
func Plays(bgDur, timelineDur float64) int {
	if bgDur <= 0 {
		return 0
	}
	n := int(math.Ceil(timelineDur / bgDur))
	if n < 1 {
		n = 1
	}
	return n
}

// StreamLoops converts Plays into the ffmpeg -stream_loop value: the number
// of extra repetitions after the first playback.
func StreamLoops(bgDur, timelineDur float64) int {
	n := Plays(bgDur, timelineDur)
	if n <= 1 {
		return 0
	}
	return n - 1
}

// LoopedDuration is the pre-trim duration of the repeated background clip.
func LoopedDuration(bgDur, timelineDur float64) float64 {
	return float64(Plays(bgDur, timelineDur)) * bgDur
}

// VideoFades returns the fade-in/fade-out video filter pair for a clip of
// clipDur seconds. Fades sit entirely inside the clip window.
func VideoFades(fadeSec, clipDur float64) string {
	fadeSec = clampFade(fadeSec, clipDur)
	return fmt.Sprintf("fade=t=in:st=0:d=%.3f,fade=t=out:st=%.3f:d=%.3f",
		fadeSec, clipDur-fadeSec, fadeSec)
}

// AudioFades is the audio counterpart of VideoFades.
func AudioFades(fadeSec, clipDur float64) string {
	fadeSec = clampFade(fadeSec, clipDur)
	return fmt.Sprintf("afade=t=in:st=0:d=%.3f,afade=t=out:st=%.3f:d=%.3f",
		fadeSec, clipDur-fadeSec, fadeSec)
}

// clampFade keeps overlapping fades out of very short clips.
func clampFade(fadeSec, clipDur float64) float64 {
	if max := clipDur / 2; fadeSec > max {
		return max
	}
	return fadeSec
}
