package spectral_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farcloser/velum/internal/audit/spectral"
	"github.com/farcloser/velum/internal/dsp"
	"github.com/farcloser/velum/internal/types"
)

// harmonicAudio sums 100 Hz harmonics up to limitHz, normalized to peak 0.3.
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

func TestMP3CutoffDetected(t *testing.T) {
	audio := harmonicAudio(44100, 88200, 16000)

	analysis := spectral.Analyze(dsp.NewPlanner(), audio, spectral.DefaultOptions())
	require.NotNil(t, analysis)

	assert.True(t, analysis.IsTranscode)
	assert.InDelta(t, 16000, analysis.CutoffHz, 1000)
	assert.Equal(t, "MP3", analysis.Codec)
	assert.Equal(t, 128, analysis.Bitrate)
	assert.Greater(t, analysis.RolloffSteepness, 10.0)
	assert.Greater(t, analysis.Confidence, 0.4)
}

func TestFullBandwidthNotTranscode(t *testing.T) {
	audio := harmonicAudio(44100, 88200, 22000)

	analysis := spectral.Analyze(dsp.NewPlanner(), audio, spectral.DefaultOptions())
	require.NotNil(t, analysis)

	assert.False(t, analysis.IsTranscode)
	assert.Greater(t, analysis.CutoffRatio, 0.9)
}

func TestNearNyquistCutoffWithoutCodecIgnored(t *testing.T) {
	// 45 kHz content in a 96 kHz file: 93.75% of Nyquist, matches no codec.
	audio := harmonicAudio(96000, 144000, 45000)

	analysis := spectral.Analyze(dsp.NewPlanner(), audio, spectral.DefaultOptions())
	require.NotNil(t, analysis)

	assert.False(t, analysis.IsTranscode)
}

func TestPureToneNotTranscode(t *testing.T) {
	samples := make([]float64, 88200)
	for i := range samples {
		samples[i] = 0.3 * math.Sin(2*math.Pi*1000*float64(i)/44100)
	}

	audio := &types.AudioData{
		Samples: samples, SampleRate: 44100, Channels: 1, ClaimedDepth: types.Depth24,
	}

	analysis := spectral.Analyze(dsp.NewPlanner(), audio, spectral.DefaultOptions())
	require.NotNil(t, analysis)

	// A tone has no high-frequency content at all, but also no steep codec
	// edge: roll-off gating must keep it clean.
	assert.False(t, analysis.IsTranscode)
}

func TestTooShortInput(t *testing.T) {
	audio := &types.AudioData{
		Samples: make([]float64, 1000), SampleRate: 44100, Channels: 1, ClaimedDepth: types.Depth16,
	}

	assert.Nil(t, spectral.Analyze(dsp.NewPlanner(), audio, spectral.DefaultOptions()))
}

func TestMaxSampleRate(t *testing.T) {
	assert.Equal(t, 48000, spectral.MaxSampleRate("MP3"))
	assert.Equal(t, 48000, spectral.MaxSampleRate("Opus"))
	assert.Equal(t, 96000, spectral.MaxSampleRate("AAC"))
	assert.Equal(t, 192000, spectral.MaxSampleRate("Vorbis"))
	assert.Equal(t, 0, spectral.MaxSampleRate("FLAC"))
}

func TestMatchesKnownCutoff(t *testing.T) {
	// 16 kHz is the MP3 128 signature at CD rates.
	assert.True(t, spectral.MatchesKnownCutoff(16000, 44100))

	// Above the MP3/Opus cap AAC 128 and Vorbis q5 still claim it.
	assert.True(t, spectral.MatchesKnownCutoff(16000, 96000))

	// 22.05 kHz matches nothing anywhere.
	assert.False(t, spectral.MatchesKnownCutoff(22050, 96000))
}
