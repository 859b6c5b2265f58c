//nolint:staticcheck // too dumb with Db
// Package dither detects bit-reduction dither in 24-bit containers and
// classifies the noise: PDF shape separates rectangular from triangular,
// spectral tilt and shaping-peak position separate the noise-shaped
// families (Lipshitz, Shibata variants, F-weighted, E-weighted).
package dither

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/farcloser/velum/internal/dsp"
	"github.com/farcloser/velum/internal/types"
)

type Options struct {
	FFTSize     int // default 8192
	MaxSegments int // default 64
}

func DefaultOptions() Options {
	return Options{
		FFTSize:     8192,
		MaxSegments: 64,
	}
}

const (
	maxAnalysisSamples = 500000
	silenceFloor       = 1e-7
	tpdfRMSFactor      = 0.408 // std dev of ±1 LSB triangular dither, in LSB
	shapedTiltDb       = 3.0   // tilt above which the noise counts as shaped
)

var scaleBuckets = []float64{0.5, 0.75, 1.0, 1.25, 1.5, 2.0}

// Analyze detects whether the samples carry fewer information bits than the
// container claims plus a dither noise layer, and classifies that noise.
func Analyze(planner *dsp.Planner, audio *types.AudioData, opts Options) *types.DitherAnalysis {
	if opts.FFTSize == 0 {
		opts = DefaultOptions()
	}

	samples := audio.Mono()
	containerBits := int(audio.ClaimedDepth)

	result := &types.DitherAnalysis{
		Algorithm:     types.DitherNone,
		ContainerBits: containerBits,
		NoiseFloorDb:  -96,
	}

	effectiveBits := detectEffectiveBits(samples, containerBits)
	result.EffectiveBits = effectiveBits
	result.Evidence = append(result.Evidence, fmt.Sprintf(
		"effective bit depth %d (container %d)", effectiveBits, containerBits,
	))

	result.IsBitReduced = effectiveBits < containerBits && containerBits >= 24
	if !result.IsBitReduced {
		result.AlgorithmConfidence = 0.9

		return result
	}

	// LSB statistics at the effective depth: the container's padded bits say
	// nothing about the dither layer.
	lsbEntropy, uniqueLSB := effectiveLSBStats(samples, effectiveBits)

	noise := isolateNoise(samples, effectiveBits)

	lsb := 1.0 / float64(uint64(1)<<(effectiveBits-1))
	if dsp.RMS(noise) < lsb*0.2 {
		// No noise layer at all: plain truncation.
		result.Algorithm = types.DitherNone
		result.AlgorithmConfidence = 0.8
		result.Evidence = append(result.Evidence, "no dither noise layer: truncated bit reduction")

		return result
	}

	profileNoiseSpectrum(planner, noise, audio.SampleRate, opts, result)
	result.Evidence = append(result.Evidence, fmt.Sprintf(
		"noise spectral tilt %.1f dB/octave", result.SpectralTilt,
	))

	flatness, triangularity := analyzePDF(noise, effectiveBits)
	result.PDFFlatness = flatness
	result.PDFTriangularity = triangularity
	result.Evidence = append(result.Evidence, fmt.Sprintf(
		"PDF flatness %.2f, triangularity %.2f", flatness, triangularity,
	))

	result.Scale, result.ScaleConfidence = estimateScale(noise, effectiveBits)
	if result.Scale > 0 {
		result.Evidence = append(result.Evidence, fmt.Sprintf("estimated dither scale %.2gx", result.Scale))
	}

	result.Algorithm, result.AlgorithmConfidence = classify(result, lsbEntropy, uniqueLSB)
	result.NoiseShaping = result.SpectralTilt > shapedTiltDb
	result.NoiseFloorDb = dsp.AmplitudeToDb(dsp.RMS(noise))
	result.Evidence = append(result.Evidence, fmt.Sprintf(
		"detected algorithm %s (%.0f%% confidence), noise floor %.1f dBFS",
		result.Algorithm, result.AlgorithmConfidence*100, result.NoiseFloorDb,
	))

	return result
}

// detectEffectiveBits inspects per-bit activity of the integer
// representation. A low bit used by fewer than 1% of non-silent samples is
// considered padding.
func detectEffectiveBits(samples []float64, containerBits int) int {
	if containerBits < 16 {
		containerBits = 16
	}

	scale := float64(uint64(1) << (containerBits - 1))
	limit := min(len(samples), maxAnalysisSamples)

	analyzeBits := min(12, containerBits)
	bitActivity := make([]uint64, analyzeBits)

	var total uint64

	for _, sample := range samples[:limit] {
		if math.Abs(sample) < silenceFloor {
			continue
		}

		sampleInt := int64(sample * scale)
		magnitude := sampleInt
		if magnitude < 0 {
			magnitude = -magnitude
		}

		for bit := range analyzeBits {
			if (magnitude>>bit)&1 != 0 {
				bitActivity[bit]++
			}
		}

		total++
	}

	if total < 1000 {
		return containerBits
	}

	effective := containerBits

	for i, activity := range bitActivity {
		ratio := float64(activity) / float64(total)
		if ratio >= 0.01 || i >= 8 {
			break
		}

		effective = containerBits - (i + 1)
	}

	// The classic 16-in-24 pattern: at least 6 of the lower 8 bits inert.
	zerosAtLSB := 0

	for _, activity := range bitActivity[:min(8, analyzeBits)] {
		if float64(activity)/float64(total) < 0.02 {
			zerosAtLSB++
		}
	}

	if zerosAtLSB >= 6 && containerBits == 24 {
		effective = 16
	}

	return effective
}

// effectiveLSBStats computes entropy and distinct-value count of the lower
// byte at the effective depth.
func effectiveLSBStats(samples []float64, effectiveBits int) (entropy float64, uniqueLSB int) {
	scale := float64(uint64(1) << (effectiveBits - 1))
	limit := min(len(samples), maxAnalysisSamples)

	var histogram [256]uint64

	var total uint64

	for _, sample := range samples[:limit] {
		if math.Abs(sample) < silenceFloor {
			continue
		}

		magnitude := int64(math.Abs(sample) * scale)
		histogram[magnitude&0xFF]++
		total++
	}

	if total == 0 {
		return 0, 0
	}

	for _, c := range histogram {
		if c > 0 {
			uniqueLSB++
		}
	}

	return dsp.Entropy(histogram[:]) / 8.0, uniqueLSB
}

const quietWindowSize = 4096

// isolateNoise extracts the dither noise layer. Preferred source: quiet
// windows, where the program material is absent and the samples are the
// noise itself (minus the window mean, to shed any DC or slow content).
// When the track has no quiet stretches, fall back to the residual against
// re-quantization at the effective depth, which exposes sub-grid noise.
func isolateNoise(samples []float64, effectiveBits int) []float64 {
	var noise []float64

	for start := 0; start+quietWindowSize <= len(samples); start += quietWindowSize {
		window := samples[start : start+quietWindowSize]

		rms := dsp.RMS(window)
		if rms <= 1e-8 || rms >= 0.01 {
			continue
		}

		var mean float64
		for _, s := range window {
			mean += s
		}

		mean /= quietWindowSize

		for _, s := range window {
			noise = append(noise, s-mean)
		}

		if len(noise) >= maxAnalysisSamples {
			break
		}
	}

	if len(noise) >= quietWindowSize {
		return noise
	}

	containerScale := float64(int64(1) << 23)
	effectiveScale := float64(uint64(1) << (effectiveBits - 1))
	quantizeFactor := containerScale / effectiveScale

	noise = make([]float64, len(samples))

	for i, sample := range samples {
		scaled := sample * containerScale
		quantized := math.Round(scaled/quantizeFactor) * quantizeFactor
		noise[i] = (scaled - quantized) / containerScale
	}

	return noise
}

// profileNoiseSpectrum fills tilt, band ratios and the shaping peak from an
// averaged Blackman-Harris spectrum of the noise.
func profileNoiseSpectrum(
	planner *dsp.Planner,
	noise []float64,
	sampleRate int,
	opts Options,
	result *types.DitherAnalysis,
) {
	if len(noise) < opts.FFTSize*2 {
		return
	}

	proc := planner.Get(opts.FFTSize, dsp.WindowBlackmanHarris)

	spectrum := dsp.Averaged(proc, noise, sampleRate, opts.MaxSegments)
	if spectrum == nil {
		return
	}

	lowEnd := spectrum.Bin(4000)
	midEnd := spectrum.Bin(12000)
	highEnd := spectrum.Bin(22000)

	var low, mid, high float64

	for i := 1; i < len(spectrum.Db); i++ {
		energy := dsp.DbToAmplitude(spectrum.Db[i])

		switch {
		case i < lowEnd:
			low += energy
		case i < midEnd:
			mid += energy
		case i <= highEnd:
			high += energy
		}
	}

	total := math.Max(low+mid+high, 1e-10)
	result.LowBandRatio = low / total
	result.MidBandRatio = mid / total
	result.HighBandRatio = high / total

	result.SpectralTilt = spectralTilt(spectrum)
	result.ShapingPeakHz = shapingPeak(spectrum)
}

// spectralTilt regresses dB level against log2(frequency) between 100 Hz
// and 20 kHz; the slope is dB per octave.
func spectralTilt(spectrum *dsp.Spectrum) float64 {
	var xs, ys []float64

	for i := 4; i < len(spectrum.Db); i++ {
		freq := spectrum.Freq(i)
		if freq > 100 && freq < 20000 && spectrum.Db[i] > -100 {
			xs = append(xs, math.Log2(freq))
			ys = append(ys, spectrum.Db[i])
		}
	}

	if len(xs) < 10 {
		return 0
	}

	_, slope := stat.LinearRegression(xs, ys, nil, false)

	return slope
}

// shapingPeak looks for a peak in 10-20 kHz standing >= 6 dB above the
// band average. Returns 0 when no peak qualifies.
func shapingPeak(spectrum *dsp.Spectrum) float64 {
	startBin := spectrum.Bin(10000)
	endBin := spectrum.Bin(20000)

	if startBin >= endBin {
		return 0
	}

	maxVal := math.Inf(-1)
	maxBin := startBin

	var sum float64

	for i := startBin; i <= endBin; i++ {
		if spectrum.Db[i] > maxVal {
			maxVal = spectrum.Db[i]
			maxBin = i
		}

		sum += spectrum.Db[i]
	}

	avg := sum / float64(endBin-startBin+1)
	if maxVal > avg+6 {
		return spectrum.Freq(maxBin)
	}

	return 0
}

// analyzePDF histograms the noise amplitude. Flatness is 1/(1 + sigma/mu)
// against the uniform expectation; triangularity is the Pearson correlation
// against the ideal triangular PDF.
//
// Dither from a real bit reduction is discrete (integer multiples of the
// effective LSB), so when the noise sits on that grid the histogram uses
// level-aligned bins; a 256-bin histogram of a three-level signal would
// correlate with nothing.
func analyzePDF(noise []float64, effectiveBits int) (flatness, triangularity float64) {
	maxNoise := dsp.Peak(noise)
	if maxNoise < 1e-10 {
		return 0, 0
	}

	lsb := 1.0 / float64(uint64(1)<<(effectiveBits-1))

	numBins := 256
	binWidth := maxNoise * 2 / float64(numBins)

	if maxLevel := int(math.Round(maxNoise / lsb)); maxLevel >= 1 && maxLevel <= 8 && onGrid(noise, lsb) {
		numBins = 2*maxLevel + 1
		binWidth = lsb
	}

	histogram := make([]float64, numBins)

	var total float64

	for _, n := range noise {
		bin := int(math.Round((n + maxNoise) / binWidth))
		if bin >= 0 && bin < numBins {
			histogram[bin]++
			total++
		}
	}

	if total == 0 {
		return 0, 0
	}

	expected := total / float64(numBins)

	var varianceSum float64

	for _, c := range histogram {
		d := c - expected
		varianceSum += d * d
	}

	sigma := math.Sqrt(varianceSum / float64(numBins))
	flatness = 1 / (1 + sigma/expected)

	ideal := make([]float64, numBins)
	actual := make([]float64, numBins)
	center := float64(numBins-1) / 2

	for i := range numBins {
		dist := math.Abs(float64(i) - center)
		ideal[i] = 1 - dist/center
		actual[i] = histogram[i] / total
	}

	triangularity = stat.Correlation(actual, ideal, nil)
	if math.IsNaN(triangularity) || triangularity < 0 {
		triangularity = 0
	}

	return flatness, triangularity
}

// onGrid reports whether the noise values are (near) integer multiples of
// the given LSB.
func onGrid(noise []float64, lsb float64) bool {
	limit := min(len(noise), 4096)

	for _, n := range noise[:limit] {
		level := n / lsb
		if math.Abs(level-math.Round(level)) > 0.05 {
			return false
		}
	}

	return true
}

// estimateScale compares the noise RMS against the standard TPDF RMS of one
// LSB and buckets the ratio.
func estimateScale(noise []float64, effectiveBits int) (scale, confidence float64) {
	lsb := 1.0 / float64(uint64(1)<<(effectiveBits-1))
	expectedRMS := lsb * tpdfRMSFactor

	ratio := dsp.RMS(noise) / math.Max(expectedRMS, 1e-10)

	best := 0.0
	bestDist := math.Inf(1)

	for _, bucket := range scaleBuckets {
		if d := math.Abs(ratio - bucket); d < bestDist {
			bestDist = d
			best = bucket
		}
	}

	if ratio > 2.25 || ratio < 0.375 {
		return 0, 0.3
	}

	return best, 0.7 + 0.2*(1-math.Min(bestDist, 1))
}

// classify scores the algorithm candidates additively and keeps the winner
// when its score reaches 0.4.
func classify(result *types.DitherAnalysis, lsbEntropy float64, uniqueLSB int) (types.DitherAlgorithm, float64) {
	scores := make(map[types.DitherAlgorithm]float64)
	tilt := result.SpectralTilt
	absTilt := math.Abs(tilt)

	if absTilt < 1.5 && result.PDFFlatness > 0.7 {
		scores[types.DitherRectangular] += result.PDFFlatness*0.8 + (1-absTilt/10)*0.5
	}

	if absTilt < 1.5 && result.PDFTriangularity > 0.5 {
		scores[types.DitherTriangular] += result.PDFTriangularity + (1-absTilt/10)*0.3
	}

	if tilt > 2 && tilt < 8 && result.PDFTriangularity > 0.3 {
		scores[types.DitherTriangularHighPass] += tilt/10*0.8 + result.PDFTriangularity*0.5
	}

	if tilt > 4 {
		if tilt < 10 {
			scores[types.DitherLipshitz] += 0.6 + (1-math.Abs(tilt-7)/5)*0.4
		}

		if peak := result.ShapingPeakHz; peak > 0 {
			if peak > 13000 && peak < 17000 {
				scores[types.DitherShibata] += 0.9
			}

			if peak > 9000 && peak < 14000 {
				scores[types.DitherLowShibata] += 0.8
			}

			if peak > 16000 && peak < 21000 {
				scores[types.DitherHighShibata] += 0.8
			}
		}

		if tilt > 6 && tilt < 15 {
			scores[types.DitherFWeighted] += 0.5 + (1-math.Abs(tilt-10)/8)*0.4
		}

		if tilt > 10 {
			scores[types.DitherModifiedEWeighted] += 0.6
			scores[types.DitherImprovedEWeighted] += 0.55
		}
	}

	// Truncation: no dither noise at all.
	if lsbEntropy < 0.3 && uniqueLSB < 10 {
		scores[types.DitherNone] += 1.2
	}

	// Fixed evaluation order so that ties resolve deterministically.
	candidates := []types.DitherAlgorithm{
		types.DitherNone,
		types.DitherRectangular,
		types.DitherTriangular,
		types.DitherTriangularHighPass,
		types.DitherLipshitz,
		types.DitherShibata,
		types.DitherLowShibata,
		types.DitherHighShibata,
		types.DitherFWeighted,
		types.DitherModifiedEWeighted,
		types.DitherImprovedEWeighted,
	}

	best := types.DitherUnknown
	bestScore := 0.0

	for _, algo := range candidates {
		if score := scores[algo]; score > bestScore {
			bestScore = score
			best = algo
		}
	}

	confidence := math.Min(bestScore/1.5, 0.95)
	if bestScore < 0.4 {
		best = types.DitherUnknown
	}

	return best, confidence
}
