// Package captions merges fine-grained transcript fragments into
// display-ready cues and renders them as ASS subtitle documents.
package captions

import (
	"strings"

	"github.com/vcompose/vcompose/internal/types"
)

// MergeOptions tunes the greedy cue merge.
type MergeOptions struct {
	// MaxDuration caps a running cue; it only fires once the accumulated
	// text is longer than minMergeRunes.
	MaxDuration float64
	// MaxGap is the silence between fragments that forces a cue break.
	MaxGap float64
	// Terminals are sentence-terminal runes that end a cue immediately.
	Terminals []rune
}

// minMergeRunes keeps the duration rule from emitting stub cues for slow,
// sparse speech.
const minMergeRunes = 10

// DefaultMergeOptions mirrors the engine's standard cueing behaviour.
func DefaultMergeOptions() MergeOptions {
	return MergeOptions{
		MaxDuration: 5.0,
		MaxGap:      1.0,
		Terminals:   []rune("。！？.!?"),
	}
}

// Merge accumulates fragments into sentence/clause-level cues in a single
// greedy pass. A cue ends when the inter-fragment gap exceeds MaxGap, when a
// fragment carries a sentence-terminal rune, when the running duration
// exceeds MaxDuration with enough accumulated text, or at end of input —
// whichever fires first. Fragment text is concatenated verbatim.
//
// Merge is idempotent on its own output: every emitted cue re-triggers the
// same terminal condition when fed back in alone.
func Merge(fragments []types.CaptionFragment, opts MergeOptions) []types.CaptionCue {
	if len(fragments) == 0 {
		return nil
	}
	if opts.MaxDuration <= 0 || opts.MaxGap <= 0 {
		def := DefaultMergeOptions()
		if opts.MaxDuration <= 0 {
			opts.MaxDuration = def.MaxDuration
		}
		if opts.MaxGap <= 0 {
			opts.MaxGap = def.MaxGap
		}
	}
	if len(opts.Terminals) == 0 {
		opts.Terminals = DefaultMergeOptions().Terminals
	}

	var out []types.CaptionCue
	var text strings.Builder
	curStart := fragments[0].Start
	curEnd := fragments[0].Start

	flush := func() {
		if text.Len() == 0 {
			return
		}
		out = append(out, types.CaptionCue{Start: curStart, End: curEnd, Text: text.String()})
		text.Reset()
	}

	for i, frag := range fragments {
		if frag.Start-curEnd > opts.MaxGap && text.Len() > 0 {
			flush()
			curStart = frag.Start
		}
		if text.Len() == 0 {
			curStart = frag.Start
		}

		text.WriteString(frag.Text)
		curEnd = frag.End

		endOfSentence := containsAny(frag.Text, opts.Terminals)
		longEnough := curEnd-curStart > opts.MaxDuration && runeLen(text.String()) > minMergeRunes
		if endOfSentence || longEnough || i == len(fragments)-1 {
			flush()
		}
	}
	return out
}

// ClampToWindow clamps cues to [0, window] seconds and drops any cue whose
// clamped duration is at or below minDur. Cue order is preserved.
func ClampToWindow(cues []types.CaptionCue, window, minDur float64) []types.CaptionCue {
	out := make([]types.CaptionCue, 0, len(cues))
	for _, c := range cues {
		start := c.Start
		if start < 0 {
			start = 0
		}
		end := c.End
		if end > window {
			end = window
		}
		if end-start <= minDur {
			continue
		}
		out = append(out, types.CaptionCue{Start: start, End: end, Text: c.Text})
	}
	return out
}

func containsAny(s string, runes []rune) bool {
	for _, r := range runes {
		if strings.ContainsRune(s, r) {
			return true
		}
	}
	return false
}

func runeLen(s string) int { return len([]rune(s)) }
