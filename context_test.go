package velum_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/farcloser/velum"
	"github.com/farcloser/velum/internal/types"
)

func TestContextSampleRateConstraints(t *testing.T) {
	// 44.1 kHz: every codec applicable.
	ctx := velum.NewDetectionContext(44100, 24)
	assert.True(t, ctx.MP3Applicable)
	assert.True(t, ctx.AACApplicable)
	assert.True(t, ctx.VorbisApplicable)
	assert.True(t, ctx.OpusApplicable)

	// 96 kHz: MP3 and Opus out, AAC still in.
	ctx = velum.NewDetectionContext(96000, 24)
	assert.False(t, ctx.MP3Applicable)
	assert.False(t, ctx.OpusApplicable)
	assert.True(t, ctx.AACApplicable)
	assert.NotEmpty(t, ctx.Evidence)

	// 176.4 kHz: only Vorbis remains.
	ctx = velum.NewDetectionContext(176400, 24)
	assert.False(t, ctx.MP3Applicable)
	assert.False(t, ctx.AACApplicable)
	assert.True(t, ctx.VorbisApplicable)
}

func TestAdjustLossyConfidenceCodecGates(t *testing.T) {
	ctx := velum.NewDetectionContext(176400, 24)

	assert.InDelta(t, 0.0, ctx.AdjustLossyConfidence(0.9, "MP3"), 1e-12)
	assert.InDelta(t, 0.9, ctx.AdjustLossyConfidence(0.9, "Vorbis"), 1e-12)
}

func TestDitherWeakensLossyDetection(t *testing.T) {
	ctx := velum.NewDetectionContext(44100, 24)
	ctx.SetDithering(&types.DitherAnalysis{
		IsBitReduced:        true,
		Algorithm:           types.DitherTriangular,
		AlgorithmConfidence: 0.8,
		EffectiveBits:       16,
		ContainerBits:       24,
	})

	assert.Equal(t, 16, ctx.ActualBitDepth)
	assert.InDelta(t, 0.9*0.7, ctx.AdjustLossyConfidence(0.9, "MP3"), 1e-9)
	assert.True(t, ctx.ShouldRunLossyDetection())
}

func TestHighConfidenceResampleSuppressesLossy(t *testing.T) {
	ctx := velum.NewDetectionContext(96000, 24)
	ctx.SetResampling(&types.ResampleAnalysis{
		IsResampled:  true,
		Confidence:   0.8,
		OriginalRate: 44100,
		CurrentRate:  96000,
		Direction:    types.ResampleUpsample,
	})

	assert.True(t, ctx.SuppressLossyDetection)
	assert.False(t, ctx.ShouldRunLossyDetection())
}

func TestLowConfidenceResampleOnlyWeakens(t *testing.T) {
	ctx := velum.NewDetectionContext(96000, 24)
	ctx.SetResampling(&types.ResampleAnalysis{
		IsResampled:  true,
		Confidence:   0.55,
		OriginalRate: 44100,
		CurrentRate:  96000,
		Direction:    types.ResampleUpsample,
	})

	assert.False(t, ctx.SuppressLossyDetection)
	assert.True(t, ctx.ShouldRunLossyDetection())
	assert.InDelta(t, 0.9*0.6, ctx.AdjustLossyConfidence(0.9, "AAC"), 1e-9)
}
