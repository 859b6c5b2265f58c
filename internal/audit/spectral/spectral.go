//nolint:staticcheck // too dumb with Db
// Package spectral detects lossy-codec transcodes by locating the frequency
// cutoff of an averaged spectrum and matching it against known codec
// signatures.
package spectral

import (
	"fmt"
	"math"

	"github.com/farcloser/velum/internal/dsp"
	"github.com/farcloser/velum/internal/types"
)

type Options struct {
	FFTSize    int // default 8192
	WindowsMax int // default 50
	Smoothing  int // moving-average bins; default 8
}

func DefaultOptions() Options {
	return Options{
		FFTSize:    8192,
		WindowsMax: 50,
		Smoothing:  8,
	}
}

type codecCutoff struct {
	codec     string
	bitrate   int     // kbps
	cutoff    float64 // Hz
	tolerance float64 // Hz
}

// Known cutoff frequencies per codec and bitrate. LAME-era MP3, typical AAC
// encoders, Opus, and Vorbis quality levels.
var codecCutoffs = []codecCutoff{
	{"MP3", 64, 11000, 1000},
	{"MP3", 96, 14000, 1000},
	{"MP3", 128, 16000, 1000},
	{"MP3", 160, 17500, 1000},
	{"MP3", 192, 18500, 1000},
	{"MP3", 224, 19000, 1000},
	{"MP3", 256, 19500, 1000},
	{"MP3", 320, 20500, 1000},

	{"AAC", 96, 14000, 1000},
	{"AAC", 128, 15500, 1000},
	{"AAC", 160, 17000, 1000},
	{"AAC", 192, 18000, 1000},
	{"AAC", 256, 19000, 1000},
	{"AAC", 320, 20000, 1000},

	{"Opus", 48, 12000, 500},
	{"Opus", 64, 14000, 1000},
	{"Opus", 96, 18000, 1000},
	{"Opus", 128, 20000, 1000},
	{"Opus", 192, 20000, 500},

	{"Vorbis", 80, 14000, 1000},  // ~q3
	{"Vorbis", 112, 16000, 1000}, // ~q5
	{"Vorbis", 160, 18000, 1000}, // ~q7
	{"Vorbis", 192, 19000, 1000}, // ~q8
	{"Vorbis", 256, 20000, 500},  // ~q9
}

// MaxSampleRate returns the hard sample-rate cap for a codec name, or 0 for
// unknown codecs. Matches above the cap must be suppressed.
func MaxSampleRate(codec string) int {
	switch codec {
	case "MP3", "Opus":
		return 48000
	case "AAC":
		return 96000
	case "Vorbis":
		return 192000
	}

	return 0
}

// MatchesKnownCutoff reports whether a frequency sits within tolerance of a
// codec cutoff that is possible at the given sample rate. The resampling
// detector uses this to avoid reading a codec cutoff as a Nyquist null
// (16 kHz is both the MP3 128 cutoff and the 32 kHz Nyquist).
func MatchesKnownCutoff(freqHz float64, sampleRate int) bool {
	for _, entry := range codecCutoffs {
		if sampleRate > MaxSampleRate(entry.codec) {
			continue
		}

		if math.Abs(freqHz-entry.cutoff) < entry.tolerance {
			return true
		}
	}

	return false
}

// Analyze computes an averaged spectrum and determines the cutoff by three
// complementary methods. Returns nil when there are not enough samples for
// a single FFT frame.
func Analyze(planner *dsp.Planner, audio *types.AudioData, opts Options) *types.CutoffAnalysis {
	if opts.FFTSize == 0 {
		opts = DefaultOptions()
	}

	samples := audio.Mono()
	if len(samples) < opts.FFTSize {
		return nil
	}

	proc := planner.Get(opts.FFTSize, dsp.WindowHann)

	spectrum := dsp.Averaged(proc, samples, audio.SampleRate, opts.WindowsMax)
	if spectrum == nil {
		return nil
	}

	if opts.Smoothing > 1 {
		spectrum.Db = dsp.MovingAverage(spectrum.Db, opts.Smoothing)
	}

	return analyzeSpectrum(spectrum)
}

func analyzeSpectrum(spectrum *dsp.Spectrum) *types.CutoffAnalysis {
	nyquist := spectrum.Nyquist()

	candidates := []cutoffEstimate{
		detectEnergyDrop(spectrum),
		detectDerivative(spectrum),
		detectNoiseFloorCrossing(spectrum),
	}

	cutoffHz, rolloff, confidence := combine(candidates, nyquist)
	cutoffRatio := cutoffHz / nyquist

	result := &types.CutoffAnalysis{
		CutoffHz:         cutoffHz,
		CutoffRatio:      cutoffRatio,
		RolloffSteepness: rolloff,
		Confidence:       confidence,
	}

	if codec, bitrate, matchConf := matchCodec(cutoffHz, rolloff); codec != "" {
		result.Codec = codec
		result.Bitrate = bitrate
		result.MatchConfidence = matchConf
	}

	// A near-Nyquist cutoff that matches no codec is mastering or natural
	// roll-off, not a transcode.
	result.IsTranscode = cutoffRatio < 0.95 && rolloff > 10 && confidence > 0.4 &&
		(result.Codec != "" || cutoffRatio < 0.85)
	if result.IsTranscode {
		result.Evidence = append(result.Evidence, fmt.Sprintf(
			"frequency cutoff at %.0f Hz (%.1f%% of Nyquist) with %.0f dB/oct roll-off",
			cutoffHz, cutoffRatio*100, rolloff,
		))
	} else {
		result.Evidence = append(result.Evidence, fmt.Sprintf(
			"frequency response to %.0f Hz (%.1f%% of Nyquist)", cutoffHz, cutoffRatio*100,
		))
	}

	return result
}

type cutoffEstimate struct {
	cutoffHz   float64
	rolloff    float64
	confidence float64
}

// combine takes a confidence-weighted average when the three estimates
// agree within 8% of Nyquist, otherwise the best single estimate at
// reduced confidence.
func combine(estimates []cutoffEstimate, nyquist float64) (cutoff, rolloff, confidence float64) {
	lowest, highest := estimates[0].cutoffHz, estimates[0].cutoffHz

	for _, e := range estimates[1:] {
		lowest = math.Min(lowest, e.cutoffHz)
		highest = math.Max(highest, e.cutoffHz)
	}

	if highest-lowest < nyquist*0.08 {
		var weightSum, cutoffSum, rolloffSum, confSum float64

		for _, e := range estimates {
			weightSum += e.confidence
			cutoffSum += e.cutoffHz * e.confidence
			rolloffSum += e.rolloff * e.confidence
			confSum += e.confidence
		}

		if weightSum < 0.01 {
			return nyquist, 0, 0.1
		}

		return cutoffSum / weightSum, rolloffSum / weightSum, math.Min(confSum/3, 0.95)
	}

	best := estimates[0]
	for _, e := range estimates[1:] {
		if e.confidence > best.confidence {
			best = e
		}
	}

	return best.cutoffHz, best.rolloff, best.confidence * 0.7
}

// detectEnergyDrop finds the passband peak in 2-8 kHz and searches upward
// from 10 kHz for 30 consecutive bins below peak - 25 dB.
func detectEnergyDrop(spectrum *dsp.Spectrum) cutoffEstimate {
	nyquist := spectrum.Nyquist()
	if len(spectrum.Db) < 100 {
		return cutoffEstimate{nyquist, 0, 0}
	}

	refStart := spectrum.Bin(2000)
	refEnd := spectrum.Bin(8000)

	if refEnd <= refStart {
		return cutoffEstimate{nyquist, 0, 0}
	}

	refPeak := math.Inf(-1)
	for i := refStart; i <= refEnd; i++ {
		refPeak = math.Max(refPeak, spectrum.Db[i])
	}

	threshold := refPeak - 25

	const consecutiveRequired = 30

	searchStart := spectrum.Bin(10000)
	consecutive := 0
	firstDrop := len(spectrum.Db) - 1

	for i := searchStart; i < len(spectrum.Db); i++ {
		if spectrum.Db[i] < threshold {
			if consecutive == 0 {
				firstDrop = i
			}

			consecutive++

			if consecutive >= consecutiveRequired {
				cutoffHz := spectrum.Freq(firstDrop)
				rolloff := rolloffAt(spectrum, firstDrop)
				dropMagnitude := refPeak - spectrum.Db[i]
				confidence := clamp(dropMagnitude/40, 0.4, 0.95)

				return cutoffEstimate{cutoffHz, rolloff, confidence}
			}
		} else {
			consecutive = 0
		}
	}

	// No sustained drop: likely genuine lossless.
	return cutoffEstimate{nyquist, 0, 0.3}
}

// detectDerivative locates the steepest negative smoothed slope above 10 kHz.
func detectDerivative(spectrum *dsp.Spectrum) cutoffEstimate {
	nyquist := spectrum.Nyquist()
	if len(spectrum.Db) < 50 {
		return cutoffEstimate{nyquist, 0, 0}
	}

	const derivWindow = 10

	searchStart := max(spectrum.Bin(10000), derivWindow)

	var (
		maxNegDeriv float64
		maxNegIdx   = len(spectrum.Db) - 1
	)

	for i := searchStart; i < len(spectrum.Db)-derivWindow; i++ {
		freqDiff := float64(2*derivWindow) * spectrum.BinHz
		derivative := (spectrum.Db[i+derivWindow] - spectrum.Db[i-derivWindow]) / freqDiff

		if derivative < maxNegDeriv {
			maxNegDeriv = derivative
			maxNegIdx = i
		}
	}

	// -3 dB per kHz or steeper qualifies as an edge.
	if maxNegDeriv < -0.003 {
		cutoffHz := spectrum.Freq(maxNegIdx)
		rolloff := math.Min(-maxNegDeriv*6000, 200)
		confidence := clamp(-maxNegDeriv*200, 0.3, 0.85)

		return cutoffEstimate{cutoffHz, rolloff, confidence}
	}

	return cutoffEstimate{nyquist, 0, 0.2}
}

// detectNoiseFloorCrossing estimates the noise floor as the 20th percentile
// of the top 10% of bins and finds the highest bin still 15 dB above it.
func detectNoiseFloorCrossing(spectrum *dsp.Spectrum) cutoffEstimate {
	nyquist := spectrum.Nyquist()
	highStart := len(spectrum.Db) * 9 / 10

	if highStart >= len(spectrum.Db) {
		return cutoffEstimate{nyquist, 0, 0}
	}

	noiseFloor := dsp.Percentile(spectrum.Db[highStart:], 0.2)
	threshold := noiseFloor + 15

	searchStart := spectrum.Bin(10000)
	lastAbove := len(spectrum.Db) - 1

	for i := len(spectrum.Db) - 1; i >= searchStart; i-- {
		if spectrum.Db[i] > threshold {
			lastAbove = i

			break
		}
	}

	cutoffHz := spectrum.Freq(lastAbove)
	if cutoffHz > nyquist*0.95 {
		return cutoffEstimate{nyquist, 0, 0.25}
	}

	rolloff := rolloffAt(spectrum, lastAbove)

	signalPeak := math.Inf(-1)
	for i := spectrum.Bin(2000); i <= spectrum.Bin(8000); i++ {
		signalPeak = math.Max(signalPeak, spectrum.Db[i])
	}

	snr := signalPeak - noiseFloor
	confidence := clamp(snr/50, 0.3, 0.8)

	return cutoffEstimate{cutoffHz, rolloff, confidence}
}

// rolloffAt measures the dB drop over the half octave above the cutoff bin,
// scaled to dB/octave.
func rolloffAt(spectrum *dsp.Spectrum, cutoffBin int) float64 {
	if cutoffBin < 20 || cutoffBin >= len(spectrum.Db)-20 {
		return 0
	}

	cutoffFreq := spectrum.Freq(cutoffBin)
	halfOctaveBin := spectrum.Bin(cutoffFreq * math.Sqrt2)

	if halfOctaveBin <= cutoffBin || halfOctaveBin >= len(spectrum.Db) {
		return 0
	}

	drop := spectrum.Db[cutoffBin] - spectrum.Db[halfOctaveBin]

	return math.Max(drop*2, 0)
}

// matchCodec scores the cutoff against the signature table. Combined score
// is 0.7 * distance fit + 0.3 * steepness fit.
func matchCodec(cutoffHz, rolloff float64) (codec string, bitrate int, confidence float64) {
	if cutoffHz > 20500 || rolloff < 5 {
		return "", 0, 0
	}

	var bestScore float64

	for _, entry := range codecCutoffs {
		distance := math.Abs(cutoffHz - entry.cutoff)
		if distance >= entry.tolerance {
			continue
		}

		distanceScore := 1 - distance/entry.tolerance
		rolloffScore := math.Min(rolloff/60, 1)
		score := distanceScore*0.7 + rolloffScore*0.3

		if score > bestScore {
			bestScore = score
			codec = entry.codec
			bitrate = entry.bitrate
		}
	}

	return codec, bitrate, bestScore
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
