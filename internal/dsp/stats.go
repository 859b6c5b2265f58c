//nolint:staticcheck // too dumb with Db
package dsp

import (
	"math"
	"sort"
)

// RMS returns the root mean square of the samples.
func RMS(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}

	var sumSq float64
	for _, s := range samples {
		sumSq += s * s
	}

	return math.Sqrt(sumSq / float64(len(samples)))
}

// Peak returns the maximum absolute sample value.
func Peak(samples []float64) float64 {
	var peak float64

	for _, s := range samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}

	return peak
}

// AmplitudeToDb converts a linear amplitude to dB relative to full scale.
func AmplitudeToDb(amplitude float64) float64 {
	if amplitude <= magEpsilon {
		return dbFloor
	}

	return 20 * math.Log10(amplitude)
}

// DbToAmplitude converts dB to linear amplitude.
func DbToAmplitude(db float64) float64 {
	return math.Pow(10, db/20)
}

// MovingAverage smooths data with an edge-compensated sliding window.
func MovingAverage(data []float64, windowSize int) []float64 {
	if len(data) < windowSize || windowSize <= 1 {
		out := make([]float64, len(data))
		copy(out, data)

		return out
	}

	result := make([]float64, len(data))
	half := windowSize / 2

	for i := range data {
		start := max(i-half, 0)
		end := min(i+half+1, len(data))

		var sum float64
		for j := start; j < end; j++ {
			sum += data[j]
		}

		result[i] = sum / float64(end-start)
	}

	return result
}

// Median returns the median of the values. The input is not modified.
func Median(data []float64) float64 {
	return Percentile(data, 0.5)
}

// Percentile returns the p-th percentile (p in [0, 1]) via partial sort.
// The input is not modified.
func Percentile(data []float64, p float64) float64 {
	if len(data) == 0 {
		return 0
	}

	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)

	idx := int(p * float64(len(sorted)))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}

	return sorted[idx]
}

// Entropy returns the Shannon entropy (bits) of a histogram.
func Entropy(histogram []uint64) float64 {
	var total uint64
	for _, c := range histogram {
		total += c
	}

	if total == 0 {
		return 0
	}

	var entropy float64

	for _, count := range histogram {
		if count == 0 {
			continue
		}

		p := float64(count) / float64(total)
		entropy -= p * math.Log2(p)
	}

	return entropy
}

// Autocorrelation returns energy-normalized autocorrelation up to maxLag.
func Autocorrelation(samples []float64, maxLag int) []float64 {
	n := len(samples)
	if maxLag >= n {
		maxLag = n - 1
	}

	var energy float64
	for _, s := range samples {
		energy += s * s
	}

	result := make([]float64, maxLag+1)
	if energy < 1e-10 {
		return result
	}

	for lag := 0; lag <= maxLag; lag++ {
		var sum float64
		for i := 0; i < n-lag; i++ {
			sum += samples[i] * samples[i+lag]
		}

		result[lag] = sum / energy
	}

	return result
}

// ZeroCrossingRate returns the fraction of adjacent sample pairs that
// cross zero.
func ZeroCrossingRate(samples []float64) float64 {
	if len(samples) < 2 {
		return 0
	}

	crossings := 0
	for i := 1; i < len(samples); i++ {
		if (samples[i-1] >= 0) != (samples[i] >= 0) {
			crossings++
		}
	}

	return float64(crossings) / float64(len(samples)-1)
}

const (
	envelopeAttack  = 0.01
	envelopeRelease = 1e-4
)

// Envelope follows |sample| with a fast attack and slow release.
func Envelope(samples []float64) []float64 {
	envelope := make([]float64, len(samples))

	var current float64

	for i, s := range samples {
		abs := math.Abs(s)
		if abs > current {
			current += envelopeAttack * (abs - current)
		} else {
			current += envelopeRelease * (abs - current)
		}

		envelope[i] = current
	}

	return envelope
}

// SpectralCentroid returns the magnitude-weighted mean frequency.
func SpectralCentroid(magnitudes []float64, binHz float64) float64 {
	var weightedSum, total float64

	for i, m := range magnitudes {
		weightedSum += float64(i) * binHz * m
		total += m
	}

	if total == 0 {
		return 0
	}

	return weightedSum / total
}

// SpectralSpread returns the magnitude-weighted standard deviation around
// the centroid.
func SpectralSpread(magnitudes []float64, binHz float64) float64 {
	centroid := SpectralCentroid(magnitudes, binHz)

	var varianceSum, total float64

	for i, m := range magnitudes {
		diff := float64(i)*binHz - centroid
		varianceSum += diff * diff * m
		total += m
	}

	if total == 0 {
		return 0
	}

	return math.Sqrt(varianceSum / total)
}

// SpectralFlatness returns the Wiener entropy: geometric mean over
// arithmetic mean. 1.0 for white noise, near 0 for tonal content.
func SpectralFlatness(magnitudes []float64) float64 {
	if len(magnitudes) == 0 {
		return 0
	}

	var logSum, sum float64

	count := 0

	for _, m := range magnitudes {
		if m > 0 {
			logSum += math.Log(m)
			sum += m
			count++
		}
	}

	if count == 0 || sum == 0 {
		return 0
	}

	geometric := math.Exp(logSum / float64(count))
	arithmetic := sum / float64(count)

	return geometric / arithmetic
}

// SpectralRolloffPercentile returns the frequency below which the given
// fraction of spectral energy is contained.
func SpectralRolloffPercentile(magnitudes []float64, binHz, fraction float64) float64 {
	var total float64
	for _, m := range magnitudes {
		total += m * m
	}

	threshold := total * fraction

	var cumulative float64

	for i, m := range magnitudes {
		cumulative += m * m
		if cumulative >= threshold {
			return float64(i) * binHz
		}
	}

	return float64(len(magnitudes)) * binHz
}

// SpectralFlux returns the rectified frame-to-frame spectral change.
func SpectralFlux(prev, curr []float64) float64 {
	if len(prev) != len(curr) {
		return 0
	}

	var sum float64

	for i := range curr {
		diff := curr[i] - prev[i]
		if diff > 0 {
			sum += diff * diff
		}
	}

	return math.Sqrt(sum)
}
