//nolint:staticcheck // too dumb with Db
// Package resample detects sample-rate conversion from its two footprints: a
// spectral null at the original Nyquist, and the anti-aliasing filter's
// cutoff/transition/stopband shape, which also identifies the resampler
// engine and quality tier.
package resample

import (
	"fmt"
	"math"

	"github.com/farcloser/velum/internal/audit/spectral"
	"github.com/farcloser/velum/internal/dsp"
	"github.com/farcloser/velum/internal/types"
)

type Options struct {
	FFTSize    int // default 16384; high resolution needed for null detection
	WindowsMax int // default 100
}

func DefaultOptions() Options {
	return Options{
		FFTSize:    16384,
		WindowsMax: 100,
	}
}

// Candidate original rates probed for a Nyquist null.
var candidateRates = []int{
	8000, 11025, 16000, 22050, 32000, 44100, 48000, 88200, 96000, 176400, 192000,
}

// Plausible upsampling pairs for the fallback signature check.
var upsamplePairs = [][2]int{
	{44100, 88200},
	{44100, 96000},
	{44100, 176400},
	{44100, 192000},
	{48000, 96000},
	{48000, 192000},
	{88200, 176400},
	{96000, 192000},
}

// Analyze looks for resampling artifacts. When there are not enough samples
// for two FFT frames it returns a result with IsResampled false and an
// evidence line saying so.
func Analyze(planner *dsp.Planner, audio *types.AudioData, opts Options) *types.ResampleAnalysis {
	if opts.FFTSize == 0 {
		opts = DefaultOptions()
	}

	samples := audio.Mono()

	result := &types.ResampleAnalysis{
		CurrentRate: audio.SampleRate,
		Quality:     types.QualityStandard,
	}

	if len(samples) < opts.FFTSize*2 {
		result.Evidence = append(result.Evidence, "insufficient samples for resampling analysis")

		return result
	}

	proc := planner.Get(opts.FFTSize, dsp.WindowBlackmanHarris)

	spectrum := dsp.Averaged(proc, samples, audio.SampleRate, opts.WindowsMax)
	if spectrum == nil {
		return result
	}

	if null := detectSpectralNull(spectrum, audio.SampleRate); null != nil {
		result.HasNyquistNull = true
		result.NullFrequencyHz = null.frequencyHz
		result.OriginalRate = null.impliedRate
		result.IsResampled = true
		result.Confidence = null.confidence

		if null.impliedRate < audio.SampleRate {
			result.Direction = types.ResampleUpsample
			result.Evidence = append(result.Evidence, fmt.Sprintf(
				"spectral null at %.0f Hz suggests upsampling from %d Hz",
				null.frequencyHz, null.impliedRate,
			))
		} else {
			result.Direction = types.ResampleDownsample
			result.Evidence = append(result.Evidence, fmt.Sprintf(
				"spectral characteristics suggest downsampling from %d Hz", null.impliedRate,
			))
		}
	}

	filter := characterizeFilter(spectrum)
	result.FilterCutoffRatio = filter.cutoffRatio
	result.TransitionBandHz = filter.transitionBandHz
	result.StopbandAttnDb = filter.stopbandAttnDb
	result.PassbandRippleDb = filter.passbandRippleDb

	result.Evidence = append(result.Evidence, fmt.Sprintf(
		"anti-aliasing filter cutoff %.1f%% of Nyquist, transition band %.0f Hz",
		filter.cutoffRatio*100, filter.transitionBandHz,
	))

	if result.IsResampled {
		engine, engineConf, quality := classifyEngine(filter)
		result.Engine = engine
		result.EngineConfidence = engineConf
		result.Quality = quality
		result.Evidence = append(result.Evidence, fmt.Sprintf(
			"resampler engine %s (%.0f%% confidence), quality %s", engine, engineConf*100, quality,
		))
	}

	// Fallback: no clear null, but the energy still collapses just below a
	// plausible original Nyquist.
	if !result.IsResampled {
		if up := detectUpsamplingSignature(spectrum, audio.SampleRate); up != nil {
			result.IsResampled = true
			result.OriginalRate = up.originalRate
			result.Direction = types.ResampleUpsample
			result.Confidence = up.confidence
			result.Evidence = append(result.Evidence, fmt.Sprintf(
				"possible upsampling from %d Hz (low confidence)", up.originalRate,
			))
		}
	}

	return result
}

type spectralNull struct {
	frequencyHz float64
	impliedRate int
	depthDb     float64
	confidence  float64
}

// detectSpectralNull probes each candidate rate's Nyquist for a null region.
func detectSpectralNull(spectrum *dsp.Spectrum, sampleRate int) *spectralNull {
	nyquist := spectrum.Nyquist()

	var best *spectralNull

	for _, origRate := range candidateRates {
		if origRate >= sampleRate {
			continue
		}

		origNyquist := float64(origRate) / 2
		if origNyquist >= nyquist {
			continue
		}

		// A dip at a frequency that is also a plausible codec cutoff is the
		// lossy detector's business, not ours.
		if spectral.MatchesKnownCutoff(origNyquist, sampleRate) {
			continue
		}

		nullBin := spectrum.Bin(origNyquist)
		if nullBin >= len(spectrum.Db)-10 {
			continue
		}

		isNull, depthDb, confidence := analyzeNullRegion(spectrum, nullBin)
		if !isNull || confidence <= 0.5 {
			continue
		}

		if best == nil || confidence > best.confidence {
			best = &spectralNull{
				frequencyHz: spectrum.Freq(nullBin),
				impliedRate: origRate,
				depthDb:     depthDb,
				confidence:  confidence,
			}
		}
	}

	return best
}

// analyzeNullRegion examines ±500 Hz around a candidate null bin. A null
// requires the minimum inside to sit >= 15 dB below the mean immediately
// below and the mean above to sit >= 10 dB below the mean below.
func analyzeNullRegion(spectrum *dsp.Spectrum, centerBin int) (isNull bool, depthDb, confidence float64) {
	regionBins := int(500 / spectrum.BinHz)

	start := max(centerBin-regionBins, 0)
	end := min(centerBin+regionBins, len(spectrum.Db))

	if end <= start+10 {
		return false, 0, 0
	}

	beforeEnd := max(centerBin-5, start)
	if beforeEnd <= start {
		return false, 0, 0
	}

	beforeAvg := mean(spectrum.Db[start:beforeEnd])

	afterStart := min(centerBin+5, end)

	afterAvg := -60.0
	if afterStart < end {
		afterAvg = mean(spectrum.Db[afterStart:end])
	}

	nullStart := max(centerBin-3, 0)
	nullEnd := min(centerBin+3, len(spectrum.Db))
	nullMin := math.Inf(1)

	for i := nullStart; i < nullEnd; i++ {
		nullMin = math.Min(nullMin, spectrum.Db[i])
	}

	depthDb = beforeAvg - nullMin
	isNull = depthDb > 15 && afterAvg < beforeAvg-10

	if isNull {
		depthFactor := math.Min(depthDb/40, 1)
		transitionFactor := math.Min((beforeAvg-afterAvg)/30, 1)
		confidence = depthFactor*0.6 + transitionFactor*0.4
	}

	return isNull, depthDb, confidence
}

type filterShape struct {
	cutoffRatio      float64
	cutoffHz         float64
	transitionBandHz float64
	stopbandAttnDb   float64
	passbandRippleDb float64
}

// characterizeFilter measures the anti-aliasing filter: passband 1-5 kHz,
// stopband over the top 5% of bins, -3 dB cutoff scanning down from
// Nyquist, transition band width down to -60 dB, and passband ripple.
func characterizeFilter(spectrum *dsp.Spectrum) filterShape {
	nyquist := spectrum.Nyquist()

	pbStart := spectrum.Bin(1000)
	pbEnd := spectrum.Bin(5000)

	passbandLevel := -20.0
	if pbEnd > pbStart {
		passbandLevel = mean(spectrum.Db[pbStart:pbEnd])
	}

	sbStart := max(len(spectrum.Db)*95/100, 1)
	stopbandLevel := mean(spectrum.Db[sbStart:])

	cutoffThreshold := passbandLevel - 3
	cutoffBin := len(spectrum.Db) - 1

	for i := len(spectrum.Db) - 1; i >= len(spectrum.Db)/2; i-- {
		if spectrum.Db[i] > cutoffThreshold {
			cutoffBin = i

			break
		}
	}

	cutoffHz := spectrum.Freq(cutoffBin)

	stopThreshold := passbandLevel - 60
	stopBin := len(spectrum.Db) - 1

	for i := cutoffBin; i < len(spectrum.Db); i++ {
		if spectrum.Db[i] < stopThreshold {
			stopBin = i

			break
		}
	}

	passbandMax, passbandMin := math.Inf(-1), math.Inf(1)
	for i := pbStart; i < pbEnd && i < len(spectrum.Db); i++ {
		passbandMax = math.Max(passbandMax, spectrum.Db[i])
		passbandMin = math.Min(passbandMin, spectrum.Db[i])
	}

	ripple := 0.0
	if pbEnd > pbStart {
		ripple = passbandMax - passbandMin
	}

	return filterShape{
		cutoffRatio:      cutoffHz / nyquist,
		cutoffHz:         cutoffHz,
		transitionBandHz: float64(stopBin-cutoffBin) * spectrum.BinHz,
		stopbandAttnDb:   passbandLevel - stopbandLevel,
		passbandRippleDb: ripple,
	}
}

// classifyEngine maps filter characteristics onto known resampler buckets.
func classifyEngine(filter filterShape) (engine string, confidence float64, quality types.ResampleQuality) {
	engine = "unknown"

	if filter.cutoffRatio > 0.80 && filter.cutoffRatio < 0.90 &&
		filter.stopbandAttnDb > 50 && filter.stopbandAttnDb < 80 {
		engine, confidence = "default engine", 0.6
	}

	if filter.cutoffRatio > 0.78 && filter.cutoffRatio < 0.88 &&
		filter.stopbandAttnDb < 60 && confidence < 0.55 {
		engine, confidence = "cubic interpolator", 0.55
	}

	if filter.stopbandAttnDb > 80 && filter.transitionBandHz < 2000 && confidence < 0.7 {
		engine, confidence = "high-attenuation windowed FIR", 0.7
	}

	if filter.stopbandAttnDb > 55 && filter.stopbandAttnDb < 70 && confidence < 0.5 {
		engine, confidence = "kaiser beta 9", 0.5
	}

	if filter.stopbandAttnDb > 70 && filter.stopbandAttnDb < 90 && confidence < 0.6 {
		engine, confidence = "kaiser beta 12", 0.6
	}

	if filter.stopbandAttnDb > 90 && filter.stopbandAttnDb <= 100 && confidence < 0.65 {
		engine, confidence = "kaiser beta 16", 0.65
	}

	if filter.stopbandAttnDb > 100 {
		switch {
		case filter.cutoffRatio > 0.89 && filter.cutoffRatio < 0.93:
			engine, confidence = "precision resampler, cutoff 0.91", 0.7
		case filter.cutoffRatio > 0.93 && filter.cutoffRatio < 0.97:
			engine, confidence = "precision resampler, cutoff 0.95", 0.7
		case filter.passbandRippleDb < 0.1:
			engine, confidence = "precision resampler, chebyshev passband", 0.75
		case filter.stopbandAttnDb > 130:
			engine, confidence = "precision resampler, very high quality", 0.7
		case filter.stopbandAttnDb > 110:
			engine, confidence = "precision resampler, high quality", 0.65
		default:
			engine, confidence = "precision resampler", 0.6
		}
	}

	switch {
	case filter.stopbandAttnDb > 130 && filter.passbandRippleDb < 0.1:
		quality = types.QualityTransparent
	case filter.stopbandAttnDb > 100:
		quality = types.QualityVeryHigh
	case filter.stopbandAttnDb > 70:
		quality = types.QualityHigh
	case filter.stopbandAttnDb > 50:
		quality = types.QualityStandard
	default:
		quality = types.QualityLow
	}

	return engine, confidence, quality
}

type upsamplingSignature struct {
	originalRate int
	confidence   float64
}

// detectUpsamplingSignature checks each plausible (original, current) pair
// for a >= 15 dB energy collapse around 0.95 * original Nyquist: the band
// just inside the candidate passband must carry energy, the band just above
// the anti-aliasing corner must not.
func detectUpsamplingSignature(spectrum *dsp.Spectrum, sampleRate int) *upsamplingSignature {
	for _, pair := range upsamplePairs {
		orig, target := pair[0], pair[1]
		if target != sampleRate {
			continue
		}

		origNyquist := float64(orig) / 2

		beforeAvg := spectrum.BandAverage(origNyquist*0.80, origNyquist*0.90)
		afterAvg := spectrum.BandAverage(origNyquist*0.95, math.Min(origNyquist*1.05, spectrum.Nyquist()))

		if drop := beforeAvg - afterAvg; drop > 15 {
			return &upsamplingSignature{
				originalRate: orig,
				confidence:   math.Min(drop/40, 0.6),
			}
		}
	}

	return nil
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}
