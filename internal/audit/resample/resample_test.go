package resample_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farcloser/velum/internal/audit/resample"
	"github.com/farcloser/velum/internal/dsp"
	"github.com/farcloser/velum/internal/types"
)

func harmonicAudio(sampleRate, length int, limitHz float64) *types.AudioData {
	samples := make([]float64, length)

	for i := range samples {
		tick := float64(i) / float64(sampleRate)

		var value float64

		for harmonic := 1; float64(harmonic)*100 < limitHz; harmonic++ {
			value += math.Sin(2*math.Pi*100*float64(harmonic)*tick) / float64(harmonic)
		}

		samples[i] = value
	}

	peak := 0.0
	for _, s := range samples {
		peak = math.Max(peak, math.Abs(s))
	}

	for i := range samples {
		samples[i] *= 0.3 / peak
	}

	return &types.AudioData{
		Samples:      samples,
		SampleRate:   sampleRate,
		Channels:     1,
		ClaimedDepth: types.Depth24,
	}
}

func TestUpsampledFromCD(t *testing.T) {
	// 96 kHz container with content stopping at 20 kHz: the footprint of a
	// 44.1 kHz master pushed through a resampler.
	audio := harmonicAudio(96000, 192000, 20000)

	analysis := resample.Analyze(dsp.NewPlanner(), audio, resample.DefaultOptions())
	require.NotNil(t, analysis)

	assert.True(t, analysis.IsResampled)
	assert.Equal(t, 44100, analysis.OriginalRate)
	assert.Equal(t, types.ResampleUpsample, analysis.Direction)
	assert.Greater(t, analysis.Confidence, 0.3)
}

func TestGenuineWidebandClean(t *testing.T) {
	audio := harmonicAudio(96000, 192000, 45000)

	analysis := resample.Analyze(dsp.NewPlanner(), audio, resample.DefaultOptions())
	require.NotNil(t, analysis)

	assert.False(t, analysis.IsResampled)
}

func TestCodecCutoffNotMistakenForNull(t *testing.T) {
	// An MP3 128 cutoff at 16 kHz in a 44.1 kHz file must not read as
	// "upsampled from 32 kHz".
	audio := harmonicAudio(44100, 132300, 16000)

	analysis := resample.Analyze(dsp.NewPlanner(), audio, resample.DefaultOptions())
	require.NotNil(t, analysis)

	assert.False(t, analysis.IsResampled)
}

func TestInsufficientSamples(t *testing.T) {
	audio := &types.AudioData{
		Samples: make([]float64, 1000), SampleRate: 96000, Channels: 1, ClaimedDepth: types.Depth24,
	}

	analysis := resample.Analyze(dsp.NewPlanner(), audio, resample.DefaultOptions())
	require.NotNil(t, analysis)

	assert.False(t, analysis.IsResampled)
	assert.NotEmpty(t, analysis.Evidence)
}

func TestFilterCharacterization(t *testing.T) {
	audio := harmonicAudio(96000, 192000, 20000)

	analysis := resample.Analyze(dsp.NewPlanner(), audio, resample.DefaultOptions())
	require.NotNil(t, analysis)

	// Passband 1-5 kHz carries energy; the top 5% of the spectrum does not.
	assert.Greater(t, analysis.StopbandAttnDb, 50.0)
	assert.GreaterOrEqual(t, analysis.PassbandRippleDb, 0.0)
}
