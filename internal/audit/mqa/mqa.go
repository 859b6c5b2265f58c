//nolint:staticcheck // too dumb with Db
// Package mqa detects MQA-encoded audio. MQA carries folded ultrasonic data
// in the lower 8 bits of 24-bit PCM and inflates the noise floor above
// 18 kHz, which leaves measurable fingerprints: elevated LSB entropy,
// structured LSB correlation and periodicity, and HF noise patterns.
//
// Only fires for 24-bit files at 44.1/48 kHz; never fires on silence.
package mqa

import (
	"fmt"
	"math"
	"math/bits"

	"github.com/farcloser/velum/internal/dsp"
	"github.com/farcloser/velum/internal/types"
)

// Thresholds is a preset bundle. Early MQA encoders (2017-2018) inject less
// HF noise and leave lower LSB entropy than current ones, so they need
// their own thresholds.
type Thresholds struct {
	LsbEntropy        float64 // current-era encoders
	LsbEntropyEarly   float64 // early encoders
	NoiseFloorDb      float64
	NoiseFloorDbEarly float64
	BitPattern        float64
	DetectEarly       bool
}

// DefaultThresholds are the balanced preset.
func DefaultThresholds() Thresholds {
	return Thresholds{
		LsbEntropy:        0.75,
		LsbEntropyEarly:   0.40,
		NoiseFloorDb:      6.0,
		NoiseFloorDbEarly: 2.0,
		BitPattern:        0.20,
		DetectEarly:       true,
	}
}

// StrictThresholds trade recall for fewer false positives.
func StrictThresholds() Thresholds {
	return Thresholds{
		LsbEntropy:        0.90,
		LsbEntropyEarly:   0.75,
		NoiseFloorDb:      15.0,
		NoiseFloorDbEarly: 10.0,
		BitPattern:        0.40,
		DetectEarly:       true,
	}
}

// EarlyEncoderThresholds are tuned for the 2017-2018 encoder family.
func EarlyEncoderThresholds() Thresholds {
	return Thresholds{
		LsbEntropy:        0.50,
		LsbEntropyEarly:   0.30,
		NoiseFloorDb:      4.0,
		NoiseFloorDbEarly: 1.5,
		BitPattern:        0.15,
		DetectEarly:       true,
	}
}

const (
	analysisWindow = 262144
	hfAnalysisFreq = 18000.0
	silenceRMS     = 1e-6
	scale24        = 8388608.0
)

var (
	correlationLags = []int{1, 2, 4, 8, 16, 32, 64, 128}
	framePeriods    = []int{256, 512, 1024, 1152, 2048, 2304, 4096}
)

// Analyze runs the MQA metric battery over the mono mix.
func Analyze(planner *dsp.Planner, audio *types.AudioData, thresholds Thresholds) *types.MqaAnalysis {
	result := &types.MqaAnalysis{TypeTag: "unknown"}

	if audio.ClaimedDepth != types.Depth24 ||
		(audio.SampleRate != 44100 && audio.SampleRate != 48000) {
		result.Evidence = append(result.Evidence, "not 24-bit 44.1/48 kHz (MQA requirement)")

		return result
	}

	samples := audio.Mono()
	if len(samples) > analysisWindow {
		samples = samples[:analysisWindow]
	}

	if dsp.RMS(samples) < silenceRMS {
		result.Evidence = append(result.Evidence, "near-silent input")

		return result
	}

	lsbBytes := extractLSBBytes(samples)

	result.LsbEntropy = lsbEntropy(lsbBytes)
	result.LsbCorrelation = lsbCorrelation(lsbBytes)
	result.NoiseElevationDb = noiseFloorElevation(planner, samples, audio.SampleRate)
	result.HFNoiseDb = hfNoiseLevel(planner, samples, audio.SampleRate)
	result.PeriodicityScore = lsbPeriodicity(lsbBytes)
	result.BitTransitionRate = bitTransitionRate(lsbBytes)
	result.ClusteringScore = lsbClustering(lsbBytes)
	result.FoldingScore = spectralFolding(planner, samples, audio.SampleRate)

	switch audio.SampleRate {
	case 44100:
		result.OriginalRate = 88200
	case 48000:
		result.OriginalRate = 96000
	}

	score(result, thresholds)

	return result
}

// score combines the metrics into a confidence and sets the verdict.
func score(result *types.MqaAnalysis, th Thresholds) {
	earlyScore := 0.0

	if th.DetectEarly {
		if result.LsbEntropy > 0.30 && result.LsbEntropy < 0.80 {
			earlyScore += 0.35
		}

		if result.PeriodicityScore > 0.10 {
			earlyScore += 0.30
		}

		if result.ClusteringScore > 0.20 {
			earlyScore += 0.25
		}

		if result.BitTransitionRate > 0.35 && result.BitTransitionRate < 0.60 {
			earlyScore += 0.20
		}

		if result.NoiseElevationDb > 1 && result.NoiseElevationDb < 20 {
			earlyScore += 0.25
		}
	}

	isLikelyEarly := earlyScore > 0.25
	if isLikelyEarly {
		result.Evidence = append(result.Evidence,
			fmt.Sprintf("early encoder indicators (score %.2f)", earlyScore))
	}

	// Basic-indicator path: entropy over the early floor plus any second signal.
	basicIndicators := result.LsbEntropy > th.LsbEntropyEarly &&
		(result.NoiseElevationDb > th.NoiseFloorDbEarly ||
			result.LsbCorrelation > 0.06 ||
			result.HFNoiseDb > -75)

	entropyThreshold := th.LsbEntropy
	noiseThreshold := th.NoiseFloorDb

	if isLikelyEarly || basicIndicators {
		entropyThreshold = th.LsbEntropyEarly
		noiseThreshold = th.NoiseFloorDbEarly
	}

	var confidence float64

	factors := 0

	switch {
	case result.LsbEntropy > entropyThreshold:
		factor := (result.LsbEntropy - entropyThreshold) / (1 - entropyThreshold)
		confidence += math.Min(factor, 1) * 0.35
		factors++
		result.Evidence = append(result.Evidence,
			fmt.Sprintf("elevated LSB entropy (%.3f)", result.LsbEntropy))
	case result.LsbEntropy > 0.35:
		factor := (result.LsbEntropy - 0.35) / 0.40
		confidence += math.Min(factor, 1) * 0.25
		factors++
		result.Evidence = append(result.Evidence,
			fmt.Sprintf("moderate LSB entropy (%.3f)", result.LsbEntropy))
	}

	if result.LsbCorrelation > 0.06 {
		confidence += math.Min((result.LsbCorrelation-0.06)/0.4, 1) * 0.15
		factors++
		result.Evidence = append(result.Evidence,
			fmt.Sprintf("LSB correlation pattern (%.3f)", result.LsbCorrelation))
	}

	switch {
	case result.NoiseElevationDb > noiseThreshold:
		confidence += math.Min((result.NoiseElevationDb-noiseThreshold)/25, 1) * 0.20
		factors++
		result.Evidence = append(result.Evidence,
			fmt.Sprintf("elevated noise floor above 18 kHz (+%.1f dB)", result.NoiseElevationDb))
	case result.NoiseElevationDb > 1:
		confidence += math.Min(result.NoiseElevationDb/noiseThreshold, 1) * 0.10
		factors++
		result.Evidence = append(result.Evidence,
			fmt.Sprintf("slight noise floor elevation (+%.1f dB)", result.NoiseElevationDb))
	}

	hfThreshold := -70.0
	if isLikelyEarly {
		hfThreshold = -75.0
	}

	if result.HFNoiseDb > hfThreshold {
		confidence += math.Min((result.HFNoiseDb+90)/30, 1) * 0.10
		factors++
		result.Evidence = append(result.Evidence,
			fmt.Sprintf("characteristic HF noise (%.1f dBFS)", result.HFNoiseDb))
	}

	if result.FoldingScore > th.BitPattern {
		confidence += math.Min((result.FoldingScore-th.BitPattern)/0.5, 1) * 0.10
		factors++
		result.Evidence = append(result.Evidence,
			fmt.Sprintf("spectral folding artifacts (score %.2f)", result.FoldingScore))
	}

	if result.PeriodicityScore > 0.15 {
		confidence += math.Min((result.PeriodicityScore-0.15)/0.5, 1) * 0.15
		factors++
		result.Evidence = append(result.Evidence,
			fmt.Sprintf("LSB periodicity at frame boundaries (%.2f)", result.PeriodicityScore))
	}

	if result.ClusteringScore > 0.25 {
		confidence += math.Min((result.ClusteringScore-0.25)/0.5, 1) * 0.15
		factors++
		result.Evidence = append(result.Evidence,
			fmt.Sprintf("LSB value clustering (%.2f)", result.ClusteringScore))
	}

	result.Confidence = math.Min(confidence, 1)

	detectionThreshold := 0.35
	if isLikelyEarly {
		detectionThreshold = 0.25
	}

	// High LSB entropy alone is any dense signal; real MQA always leaves a
	// noise fingerprint on top of the data layer.
	hasNoiseFingerprint := result.NoiseElevationDb > 1 ||
		result.HFNoiseDb > -80 ||
		result.ClusteringScore > 0.25 ||
		result.PeriodicityScore > 0.15

	result.IsEncoded = result.Confidence > detectionThreshold && factors >= 2 && hasNoiseFingerprint

	if result.IsEncoded {
		switch {
		case isLikelyEarly:
			result.TypeTag = "early"
		case result.LsbEntropy > 0.85:
			result.TypeTag = "current"
		default:
			result.TypeTag = "unknown"
		}
	} else {
		result.OriginalRate = 0
	}
}

func extractLSBBytes(samples []float64) []uint8 {
	lsbs := make([]uint8, len(samples))

	for i, sample := range samples {
		clamped := math.Max(-1, math.Min(1, sample))
		int24 := int32(clamped * scale24)

		if int24 < 0 {
			int24 = -int24
		}

		lsbs[i] = uint8(int24 & 0xFF)
	}

	return lsbs
}

func lsbEntropy(lsbs []uint8) float64 {
	var histogram [256]uint64

	unique := make(map[uint8]struct{})

	for _, b := range lsbs {
		histogram[b]++
		unique[b] = struct{}{}
	}

	if len(unique) <= 1 {
		return 0
	}

	return dsp.Entropy(histogram[:]) / 8.0
}

// lsbCorrelation returns the mean absolute autocorrelation of the LSB byte
// sequence at the canonical lags.
func lsbCorrelation(lsbs []uint8) float64 {
	if len(lsbs) < 1000 {
		return 0
	}

	n := float64(len(lsbs))

	var meanVal float64
	for _, b := range lsbs {
		meanVal += float64(b)
	}

	meanVal /= n

	var variance float64

	for _, b := range lsbs {
		d := float64(b) - meanVal
		variance += d * d
	}

	variance /= n
	if variance < 0.001 {
		return 0
	}

	var sum float64

	count := 0

	for _, lag := range correlationLags {
		if lag >= len(lsbs) {
			continue
		}

		var corr float64

		pairs := len(lsbs) - lag
		for i := range pairs {
			corr += (float64(lsbs[i]) - meanVal) * (float64(lsbs[i+lag]) - meanVal)
		}

		corr /= float64(pairs) * variance
		sum += math.Abs(corr)
		count++
	}

	if count == 0 {
		return 0
	}

	return sum / float64(count)
}

// lsbPeriodicity checks for repetition at common MQA frame-boundary periods.
// Random bytes match at ~1/256; structured encodings match far more often.
func lsbPeriodicity(lsbs []uint8) float64 {
	if len(lsbs) < 4096 {
		return 0
	}

	if len(lsbs) > 65536 {
		lsbs = lsbs[:65536]
	}

	var maxPeriodicity float64

	for _, period := range framePeriods {
		if period*3 > len(lsbs) {
			continue
		}

		matches := 0
		checkLen := min(len(lsbs), period*10)

		for i := period; i < checkLen; i++ {
			if lsbs[i] == lsbs[i-period] {
				matches++
			}
		}

		periodicity := float64(matches) / float64(checkLen-period)
		if periodicity > 0.01 {
			maxPeriodicity = math.Max(maxPeriodicity, periodicity*10)
		}
	}

	return math.Min(maxPeriodicity, 1)
}

// bitTransitionRate counts bit flips between consecutive LSB bytes; MQA
// data streams sit near 0.5.
func bitTransitionRate(lsbs []uint8) float64 {
	if len(lsbs) < 1000 {
		return 0.5
	}

	limit := min(len(lsbs), 100000)

	var transitions, totalBits uint64

	for i := 1; i < limit; i++ {
		transitions += uint64(bits.OnesCount8(lsbs[i] ^ lsbs[i-1]))
		totalBits += 8
	}

	return float64(transitions) / float64(totalBits)
}

// lsbClustering counts LSB byte values holding more than 1% share; few
// common values means high clustering.
func lsbClustering(lsbs []uint8) float64 {
	if len(lsbs) < 1000 {
		return 0
	}

	limit := min(len(lsbs), 100000)

	var histogram [256]uint64

	for _, b := range lsbs[:limit] {
		histogram[b]++
	}

	threshold := uint64(limit / 100)
	common := 0

	for _, c := range histogram {
		if c > threshold {
			common++
		}
	}

	switch {
	case common < 50:
		return 1 - float64(common)/50
	case common < 150:
		return 0.5 * (1 - (float64(common)-50)/100)
	default:
		return 0
	}
}

// noiseFloorElevation compares the 18-20 kHz band against 10-16 kHz.
func noiseFloorElevation(planner *dsp.Planner, samples []float64, sampleRate int) float64 {
	spectrum := singleFrameSpectrum(planner, samples, sampleRate, 16384)
	if spectrum == nil {
		return 0
	}

	low := spectrum.BandAverage(10000, 16000)
	high := spectrum.BandAverage(18000, 20000)

	return high - low
}

// hfNoiseLevel returns the average magnitude level above 18 kHz in dBFS.
func hfNoiseLevel(planner *dsp.Planner, samples []float64, sampleRate int) float64 {
	spectrum := singleFrameSpectrum(planner, samples, sampleRate, 8192)
	if spectrum == nil {
		return -100
	}

	return spectrum.BandAverage(hfAnalysisFreq, spectrum.Nyquist())
}

// spectralFolding checks for mirror symmetry around fs/4 and fs/3, the
// fold points of the MQA origami scheme.
func spectralFolding(planner *dsp.Planner, samples []float64, sampleRate int) float64 {
	const fftSize = 8192

	if len(samples) < fftSize {
		return 0
	}

	proc := planner.Get(fftSize, dsp.WindowHann)
	mags := proc.Magnitudes(samples[:fftSize])

	binHz := float64(sampleRate) / fftSize
	foldPoints := []float64{float64(sampleRate) / 4, float64(sampleRate) / 3}

	var foldingScore float64

	for _, foldFreq := range foldPoints {
		foldBin := int(foldFreq / binHz)
		if foldBin < 50 || foldBin >= len(mags)-50 {
			continue
		}

		const checkRange = 30

		var correlation float64

		for offset := 1; offset < checkRange; offset++ {
			below := mags[foldBin-offset]
			above := mags[foldBin+offset]

			if below > 1e-10 && above > 1e-10 {
				if math.Abs(math.Log10(below/above)) < 0.5 {
					correlation++
				}
			}
		}

		foldingScore = math.Max(foldingScore, correlation/checkRange)
	}

	return foldingScore
}

func singleFrameSpectrum(planner *dsp.Planner, samples []float64, sampleRate, wantSize int) *dsp.Spectrum {
	size := wantSize
	for size > len(samples) {
		size /= 2
	}

	if size < 1024 {
		return nil
	}

	proc := planner.Get(size, dsp.WindowHann)

	return dsp.Averaged(proc, samples[:size], sampleRate, 1)
}
