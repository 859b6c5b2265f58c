package dither_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farcloser/velum/internal/audit/dither"
	"github.com/farcloser/velum/internal/dsp"
	"github.com/farcloser/velum/internal/types"
)

const lsb16 = 1.0 / 32768.0

// tpdf returns triangular dither noise with a ±1 LSB peak.
func tpdf(rng *rand.Rand) float64 {
	return (rng.Float64() - rng.Float64()) * lsb16
}

// ditheredAudio builds a 24-bit container holding 16-bit content: a sine
// burst followed by dithered silence, everything snapped to the 16-bit grid
// after TPDF dither.
func ditheredAudio(length int) *types.AudioData {
	rng := rand.New(rand.NewSource(42)) //nolint:gosec // deterministic test data

	samples := make([]float64, length)

	for i := range samples {
		var signal float64
		if i < length/2 {
			signal = 0.3 * math.Sin(2*math.Pi*1000*float64(i)/44100)
		}

		samples[i] = math.Round((signal+tpdf(rng))*32768) / 32768
	}

	return &types.AudioData{
		Samples:      samples,
		SampleRate:   44100,
		Channels:     1,
		ClaimedDepth: types.Depth24,
	}
}

func TestTPDFDitherClassified(t *testing.T) {
	audio := ditheredAudio(4 * 44100)

	analysis := dither.Analyze(dsp.NewPlanner(), audio, dither.DefaultOptions())
	require.NotNil(t, analysis)

	assert.True(t, analysis.IsBitReduced)
	assert.Equal(t, 16, analysis.EffectiveBits)
	assert.Equal(t, types.DitherTriangular, analysis.Algorithm)
	assert.False(t, analysis.NoiseShaping)
	assert.GreaterOrEqual(t, analysis.AlgorithmConfidence, 0.4)
}

func TestTruncationIsNotDither(t *testing.T) {
	// 16-bit content without any dither layer: silence is digital zero.
	samples := make([]float64, 4*44100)
	for i := range samples[:len(samples)/2] {
		signal := 0.3 * math.Sin(2*math.Pi*1000*float64(i)/44100)
		samples[i] = math.Round(signal*32768) / 32768
	}

	audio := &types.AudioData{
		Samples:      samples,
		SampleRate:   44100,
		Channels:     1,
		ClaimedDepth: types.Depth24,
	}

	analysis := dither.Analyze(dsp.NewPlanner(), audio, dither.DefaultOptions())
	require.NotNil(t, analysis)

	assert.True(t, analysis.IsBitReduced)
	assert.Equal(t, types.DitherNone, analysis.Algorithm)
}

func TestFullPrecisionNotBitReduced(t *testing.T) {
	samples := make([]float64, 2*44100)
	for i := range samples {
		samples[i] = 0.3*math.Sin(2*math.Pi*997.3*float64(i)/44100) +
			0.0001*math.Sin(2*math.Pi*3001.7*float64(i)/44100)
	}

	audio := &types.AudioData{
		Samples:      samples,
		SampleRate:   44100,
		Channels:     1,
		ClaimedDepth: types.Depth24,
	}

	analysis := dither.Analyze(dsp.NewPlanner(), audio, dither.DefaultOptions())
	require.NotNil(t, analysis)

	assert.False(t, analysis.IsBitReduced)
	assert.Equal(t, types.DitherNone, analysis.Algorithm)
}

func TestSixteenBitContainerNotReported(t *testing.T) {
	audio := ditheredAudio(2 * 44100)
	audio.ClaimedDepth = types.Depth16

	analysis := dither.Analyze(dsp.NewPlanner(), audio, dither.DefaultOptions())
	require.NotNil(t, analysis)

	// Dither in a 16-bit container is normal mastering, not a defect.
	assert.False(t, analysis.IsBitReduced)
}
