//nolint:staticcheck // too dumb with Db
// Package enf looks for electrical-network-frequency contamination: 50/60 Hz
// mains hum and its harmonics. Real hum is a razor-sharp spectral line with
// a near-constant level across the track; musical bass content at the same
// frequencies varies with the performance, so the temporal coefficient of
// variation gates the detection.
package enf

import (
	"math"

	"github.com/farcloser/velum/internal/dsp"
	"github.com/farcloser/velum/internal/types"
)

type Options struct {
	FFTSize    int // default 8192
	WindowsMax int // default 32
}

func DefaultOptions() Options {
	return Options{
		FFTSize:    8192,
		WindowsMax: 32,
	}
}

const (
	spikeThresholdDb = 15.0
	maxVarianceForCV = 0.3
	sharpnessDb      = 6.0
)

var harmonics = []float64{1, 2, 3, 4, 5, 6}

// Analyze measures hum spikes at 50 and 60 Hz fundamentals across several
// analysis windows.
func Analyze(planner *dsp.Planner, audio *types.AudioData, opts Options) *types.HumAnalysis {
	if opts.FFTSize == 0 {
		opts = DefaultOptions()
	}

	result := &types.HumAnalysis{Stability: 1}

	samples := audio.Mono()
	if len(samples) < opts.FFTSize {
		return result
	}

	proc := planner.Get(opts.FFTSize, dsp.WindowHann)
	binHz := float64(audio.SampleRate) / float64(opts.FFTSize)

	hop := opts.FFTSize / 2
	available := (len(samples)-opts.FFTSize)/hop + 1
	windows := min(available, opts.WindowsMax)

	spikes50 := make([]float64, 0, windows)
	spikes60 := make([]float64, 0, windows)

	for w := range windows {
		pos := w * hop
		magDb := dsp.ToDb(proc.Magnitudes(samples[pos : pos+opts.FFTSize]))

		spikes50 = append(spikes50, windowSpike(magDb, 50, binHz))
		spikes60 = append(spikes60, windowSpike(magDb, 60, binHz))
	}

	mean50, cv50 := meanAndCV(spikes50)
	mean60, cv60 := meanAndCV(spikes60)

	if mean50 > spikeThresholdDb && cv50 < maxVarianceForCV {
		result.Has50Hz = true
		result.LevelDb = mean50
		result.Stability = cv50
	}

	if mean60 > spikeThresholdDb && cv60 < maxVarianceForCV {
		result.Has60Hz = true

		if mean60 > result.LevelDb {
			result.LevelDb = mean60
			result.Stability = cv60
		}
	}

	if result.Has50Hz || result.Has60Hz {
		result.Confidence = math.Min(result.LevelDb/30, 1) * (1 - result.Stability/maxVarianceForCV)
	}

	return result
}

// windowSpike returns the worst harmonic spike over surrounding bins, with
// a sharpness check: the peak must stand 6 dB above its immediate
// neighbors to count as a tonal line rather than a broad bump.
func windowSpike(magDb []float64, fundamental, binHz float64) float64 {
	var maxSpike float64

	for _, harmonic := range harmonics {
		bin := int(fundamental * harmonic / binHz)
		if bin <= 5 || bin >= len(magDb)-5 {
			continue
		}

		peakLevel := magDb[bin]

		var surroundSum float64

		surroundCount := 0

		for i := bin - 5; i <= bin+5; i++ {
			if i < bin-1 || i > bin+1 {
				surroundSum += magDb[i]
				surroundCount++
			}
		}

		if surroundCount == 0 {
			continue
		}

		adjacentAvg := (magDb[bin-1] + magDb[bin+1]) / 2
		if peakLevel-adjacentAvg < sharpnessDb {
			continue
		}

		if spike := peakLevel - surroundSum/float64(surroundCount); spike > maxSpike {
			maxSpike = spike
		}
	}

	return maxSpike
}

func meanAndCV(values []float64) (mean, cv float64) {
	if len(values) == 0 {
		return 0, 1
	}

	var sum float64
	for _, v := range values {
		sum += v
	}

	mean = sum / float64(len(values))

	var varianceSum float64

	for _, v := range values {
		d := v - mean
		varianceSum += d * d
	}

	stdDev := math.Sqrt(varianceSum / float64(len(values)))

	cv = 1.0
	if mean > 0 {
		cv = stdDev / mean
	}

	return mean, cv
}
