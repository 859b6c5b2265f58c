//nolint:staticcheck // too dumb with Db
// Package clipping detects digital overs in the sample domain and
// inter-sample peaks in the reconstructed signal (4x polyphase
// oversampling per ITU-R BS.1770).
package clipping

import (
	"math"

	"github.com/farcloser/velum/internal/types"
)

type Options struct {
	Threshold      float64 // |sample| at or above counts as clipped; default 0.99
	MinConsecutive int     // minimum run length to count a region; default 3
	InterSample    bool
}

func DefaultOptions() Options {
	return Options{
		Threshold:      0.99,
		MinConsecutive: 3,
		InterSample:    true,
	}
}

const (
	oversample   = 4  // 4x oversampling per ITU-R BS.1770
	tapsPerPhase = 12 // filter taps per phase
	totalTaps    = oversample * tapsPerPhase

	distributionBins = 100
)

// Polyphase filter coefficients for 4x oversampling: windowed sinc with a
// Kaiser window (beta=5), lowpass at the original Nyquist.
var polyphaseCoeffs [oversample][tapsPerPhase]float64

func init() {
	const beta = 5.0

	for phase := range oversample {
		for tap := range tapsPerPhase {
			n := tap*oversample + phase
			center := float64(totalTaps-1) / 2

			x := float64(n) - center

			sinc := 1.0
			if math.Abs(x) >= 1e-10 {
				sinc = math.Sin(math.Pi*x/oversample) / (math.Pi * x / oversample)
			}

			alpha := (float64(n) - center) / center
			if math.Abs(alpha) <= 1 {
				window := bessel0(beta*math.Sqrt(1-alpha*alpha)) / bessel0(beta)
				polyphaseCoeffs[phase][tap] = sinc * window * oversample
			}
		}
	}

	for phase := range oversample {
		var sum float64
		for tap := range tapsPerPhase {
			sum += polyphaseCoeffs[phase][tap]
		}

		for tap := range tapsPerPhase {
			polyphaseCoeffs[phase][tap] /= sum
		}
	}
}

func bessel0(x float64) float64 {
	sum := 1.0
	term := 1.0

	for k := 1; k <= 25; k++ {
		term *= (x * x) / (4 * float64(k) * float64(k))
		sum += term

		if term < 1e-12 {
			break
		}
	}

	return sum
}

// Analyze scans for clipped runs and inter-sample peaks. Returns nil when
// the input is clean.
func Analyze(audio *types.AudioData, opts Options) *types.ClippingAnalysis {
	if opts.Threshold == 0 {
		opts = DefaultOptions()
	}

	samples := audio.Samples

	var (
		regions          [][2]int
		currentStart     = -1
		consecutive      int
		maxPeak          float64
		clipped          uint64
		truePeak         float64
		interSamplePeaks uint64
	)

	history := make([][]float64, audio.Channels)
	for ch := range history {
		history[ch] = make([]float64, tapsPerPhase)
	}

	for i, sample := range samples {
		abs := math.Abs(sample)
		if abs > maxPeak {
			maxPeak = abs
		}

		if abs >= opts.Threshold {
			if currentStart < 0 {
				currentStart = i
			}

			consecutive++
			clipped++
		} else {
			if consecutive >= opts.MinConsecutive && currentStart >= 0 {
				regions = append(regions, [2]int{currentStart, i})
			}

			currentStart = -1
			consecutive = 0
		}

		if opts.InterSample && audio.Channels > 0 {
			ch := i % audio.Channels
			hist := history[ch]
			copy(hist, hist[1:])
			hist[tapsPerPhase-1] = sample

			for phase := range oversample {
				var interp float64
				for tap := range tapsPerPhase {
					interp += hist[tap] * polyphaseCoeffs[phase][tap]
				}

				absInterp := math.Abs(interp)
				if absInterp > truePeak {
					truePeak = absInterp
				}

				if absInterp > 1 {
					interSamplePeaks++
				}
			}
		}
	}

	if consecutive >= opts.MinConsecutive && currentStart >= 0 {
		regions = append(regions, [2]int{currentStart, len(samples)})
	}

	totalClipped := clipped + interSamplePeaks
	if totalClipped == 0 {
		return nil
	}

	peakDb := -120.0
	if maxPeak > 0 {
		peakDb = 20 * math.Log10(maxPeak)
	}

	truePeakDb := -120.0
	if truePeak > 0 {
		truePeakDb = 20 * math.Log10(truePeak)
	}

	result := &types.ClippingAnalysis{
		ClippedSamples:   totalClipped,
		Regions:          len(regions),
		PeakDb:           peakDb,
		TruePeakDb:       truePeakDb,
		InterSamplePeaks: interSamplePeaks,
		ClipRatio:        float64(totalClipped) / float64(max(len(samples), 1)),
	}

	if len(regions) > 0 {
		result.Distribution = buildDistribution(regions, len(samples))
	}

	return result
}

// buildDistribution maps clipped regions onto a normalized histogram across
// the track.
func buildDistribution(regions [][2]int, totalSamples int) []float64 {
	distribution := make([]float64, distributionBins)
	samplesPerBin := float64(totalSamples) / distributionBins

	for _, region := range regions {
		startBin := int(float64(region[0]) / samplesPerBin)
		endBin := int(math.Ceil(float64(region[1]) / samplesPerBin))

		for bin := startBin; bin < endBin && bin < distributionBins; bin++ {
			distribution[bin]++
		}
	}

	var maxVal float64
	for _, v := range distribution {
		maxVal = math.Max(maxVal, v)
	}

	if maxVal > 0 {
		for i := range distribution {
			distribution[i] /= maxVal
		}
	}

	return distribution
}

// TruePeakOnly measures sample peak and reconstructed true peak without
// clip-run bookkeeping, for quality metrics.
func TruePeakOnly(audio *types.AudioData) (samplePeakDb, truePeakDb float64) {
	var samplePeak, truePeak float64

	history := make([][]float64, audio.Channels)
	for ch := range history {
		history[ch] = make([]float64, tapsPerPhase)
	}

	for i, sample := range audio.Samples {
		abs := math.Abs(sample)
		if abs > samplePeak {
			samplePeak = abs
		}

		ch := i % max(audio.Channels, 1)
		hist := history[ch]
		copy(hist, hist[1:])
		hist[tapsPerPhase-1] = sample

		for phase := range oversample {
			var interp float64
			for tap := range tapsPerPhase {
				interp += hist[tap] * polyphaseCoeffs[phase][tap]
			}

			if abs := math.Abs(interp); abs > truePeak {
				truePeak = abs
			}
		}
	}

	samplePeakDb, truePeakDb = -120, -120
	if samplePeak > 0 {
		samplePeakDb = 20 * math.Log10(samplePeak)
	}

	if truePeak > 0 {
		truePeakDb = 20 * math.Log10(truePeak)
	}

	return samplePeakDb, truePeakDb
}
