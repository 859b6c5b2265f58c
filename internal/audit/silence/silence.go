//nolint:staticcheck // too dumb
// Package silence measures leading and trailing silence padding by windowed
// RMS segmentation over the mono mix.
package silence

import (
	"math"

	"github.com/farcloser/velum/internal/types"
)

type Options struct {
	ThresholdDb   float64 // below this = silence (default -60)
	MinDurationMs int     // minimum silence to report (default 1000)
	WindowMs      int     // RMS window size (default 50)
}

func DefaultOptions() Options {
	return Options{
		ThresholdDb:   -60.0,
		MinDurationMs: 1000,
		WindowMs:      50,
	}
}

// Analyze segments the track into silent and non-silent stretches and
// reports leading/trailing padding.
func Analyze(audio *types.AudioData, opts Options) *types.SilenceAnalysis {
	if opts.ThresholdDb == 0 {
		opts.ThresholdDb = -60.0
	}

	if opts.MinDurationMs == 0 {
		opts.MinDurationMs = 1000
	}

	if opts.WindowMs == 0 {
		opts.WindowMs = 50
	}

	mono := audio.Mono()
	rate := audio.SampleRate

	result := &types.SilenceAnalysis{Frames: uint64(len(mono))}
	if len(mono) == 0 || rate <= 0 {
		return result
	}

	windowFrames := max(rate*opts.WindowMs/1000, 1)
	minSilenceFrames := rate * opts.MinDurationMs / 1000
	threshold := math.Pow(10, opts.ThresholdDb/20)

	type segment struct {
		start, end int
	}

	var (
		segments     []segment
		inSilence    bool
		silenceStart int
	)

	for pos := 0; pos < len(mono); pos += windowFrames {
		end := min(pos+windowFrames, len(mono))

		var sumSq float64
		for _, s := range mono[pos:end] {
			sumSq += s * s
		}

		rms := math.Sqrt(sumSq / float64(end-pos))
		isSilent := rms < threshold

		switch {
		case isSilent && !inSilence:
			inSilence = true
			silenceStart = pos
		case !isSilent && inSilence:
			if pos-silenceStart >= minSilenceFrames {
				segments = append(segments, segment{silenceStart, pos})
			}

			inSilence = false
		}
	}

	if inSilence && len(mono)-silenceStart >= minSilenceFrames {
		segments = append(segments, segment{silenceStart, len(mono)})
	}

	for _, seg := range segments {
		result.TotalSilence += float64(seg.end-seg.start) / float64(rate)
	}

	if len(segments) > 0 {
		if segments[0].start == 0 {
			result.LeadingSec = float64(segments[0].end) / float64(rate)
		}

		last := segments[len(segments)-1]
		if last.end == len(mono) {
			result.TrailingSec = float64(last.end-last.start) / float64(rate)
		}
	}

	return result
}
