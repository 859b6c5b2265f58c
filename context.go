package velum

import (
	"fmt"

	"github.com/farcloser/velum/internal/types"
)

// Codec sample-rate caps. A lossy-codec match above its cap is impossible
// and must be suppressed: MP3 and Opus top out at 48 kHz, AAC at 96 kHz,
// Vorbis at 192 kHz.
const (
	mp3MaxSampleRate    = 48000
	aacMaxSampleRate    = 96000
	vorbisMaxSampleRate = 192000
	opusMaxSampleRate   = 48000
)

// DetectionContext carries what earlier pipeline stages found so later
// stages can adjust or suppress themselves. It lives for one file's run and
// is never shared across workers.
type DetectionContext struct {
	SampleRate        int
	ContainerBitDepth int
	ActualBitDepth    int

	MP3Applicable    bool
	AACApplicable    bool
	VorbisApplicable bool
	OpusApplicable   bool

	Dithering  *types.DitherAnalysis
	Resampling *types.ResampleAnalysis

	SuppressLossyDetection bool

	Evidence []string
}

// NewDetectionContext derives the codec applicability flags from the
// sample rate.
func NewDetectionContext(sampleRate, containerBitDepth int) *DetectionContext {
	ctx := &DetectionContext{
		SampleRate:        sampleRate,
		ContainerBitDepth: containerBitDepth,
		ActualBitDepth:    containerBitDepth,
		MP3Applicable:     sampleRate <= mp3MaxSampleRate,
		AACApplicable:     sampleRate <= aacMaxSampleRate,
		VorbisApplicable:  sampleRate <= vorbisMaxSampleRate,
		OpusApplicable:    sampleRate <= opusMaxSampleRate,
	}

	if !ctx.MP3Applicable {
		ctx.Evidence = append(ctx.Evidence, fmt.Sprintf(
			"sample rate %d Hz > MP3 max %d Hz: skipping MP3 detection", sampleRate, mp3MaxSampleRate))
	}

	if !ctx.AACApplicable {
		ctx.Evidence = append(ctx.Evidence, fmt.Sprintf(
			"sample rate %d Hz > AAC max %d Hz: skipping AAC detection", sampleRate, aacMaxSampleRate))
	}

	return ctx
}

// SetDithering records a dither stage result. High-confidence dither means
// later lossy detection runs at reduced sensitivity: noise shaping can look
// like codec artifacts.
func (ctx *DetectionContext) SetDithering(result *types.DitherAnalysis) {
	if result == nil {
		return
	}

	if result.IsBitReduced && result.Algorithm != types.DitherNone {
		ctx.Evidence = append(ctx.Evidence, fmt.Sprintf(
			"dithering detected: %s (%d -> %d bit)",
			result.Algorithm, result.ContainerBits, result.EffectiveBits))

		if result.AlgorithmConfidence > 0.6 {
			ctx.Evidence = append(ctx.Evidence,
				"high-confidence dithering: reducing lossy detection sensitivity")
		}
	}

	if result.EffectiveBits > 0 {
		ctx.ActualBitDepth = result.EffectiveBits
	}

	ctx.Dithering = result
}

// SetResampling records a resample stage result. Above 0.6 confidence the
// lossy stage is suppressed entirely: the anti-aliasing filter roll-off
// would be mistaken for a codec cutoff.
func (ctx *DetectionContext) SetResampling(result *types.ResampleAnalysis) {
	if result == nil {
		return
	}

	if result.IsResampled {
		ctx.Evidence = append(ctx.Evidence, fmt.Sprintf(
			"resampling detected: %d Hz -> %d Hz (%s)",
			result.OriginalRate, result.CurrentRate, result.Direction))

		if result.Confidence > 0.6 {
			ctx.SuppressLossyDetection = true
			ctx.Evidence = append(ctx.Evidence,
				"suppressing lossy detection: resampling filter rolloff expected")
		}
	}

	ctx.Resampling = result
}

// ShouldRunLossyDetection gates the lossy codec stage: at least one codec
// must be applicable at this sample rate and no earlier stage may have
// suppressed it.
func (ctx *DetectionContext) ShouldRunLossyDetection() bool {
	if !ctx.MP3Applicable && !ctx.AACApplicable && !ctx.VorbisApplicable && !ctx.OpusApplicable {
		return false
	}

	return !ctx.SuppressLossyDetection
}

// AdjustLossyConfidence scales a lossy-codec confidence by what earlier
// stages found, and zeroes it for codecs impossible at this sample rate.
func (ctx *DetectionContext) AdjustLossyConfidence(raw float64, codec string) float64 {
	confidence := raw

	if dither := ctx.Dithering; dither != nil {
		if dither.IsBitReduced && dither.AlgorithmConfidence > 0.5 {
			confidence *= 0.7
		}
	}

	if resample := ctx.Resampling; resample != nil {
		if resample.IsResampled && resample.Confidence > 0.5 {
			confidence *= 0.6
		}
	}

	switch codec {
	case "MP3":
		if !ctx.MP3Applicable {
			confidence = 0
		}
	case "AAC":
		if !ctx.AACApplicable {
			confidence = 0
		}
	case "Vorbis":
		if !ctx.VorbisApplicable {
			confidence = 0
		}
	case "Opus":
		if !ctx.OpusApplicable {
			confidence = 0
		}
	}

	return confidence
}
