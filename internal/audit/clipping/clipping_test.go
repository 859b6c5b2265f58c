package clipping_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farcloser/velum/internal/audit/clipping"
	"github.com/farcloser/velum/internal/types"
)

func sineAudio(length int, amplitude float64) *types.AudioData {
	samples := make([]float64, length)
	for i := range samples {
		samples[i] = amplitude * math.Sin(2*math.Pi*1000*float64(i)/44100)
	}

	return &types.AudioData{
		Samples:      samples,
		SampleRate:   44100,
		Channels:     1,
		ClaimedDepth: types.Depth16,
	}
}

func TestCleanSignalReturnsNil(t *testing.T) {
	audio := sineAudio(44100, 0.5)
	assert.Nil(t, clipping.Analyze(audio, clipping.DefaultOptions()))
}

func TestClippedRunDetected(t *testing.T) {
	audio := sineAudio(8820, 0.5)
	for i := 1000; i < 1010; i++ {
		audio.Samples[i] = 1.0
	}

	analysis := clipping.Analyze(audio, clipping.DefaultOptions())
	require.NotNil(t, analysis)

	assert.GreaterOrEqual(t, analysis.ClippedSamples, uint64(10))
	assert.GreaterOrEqual(t, analysis.Regions, 1)
	assert.InDelta(t, 0.0, analysis.PeakDb, 0.1)
	assert.NotNil(t, analysis.Distribution)
}

func TestShortRunsIgnored(t *testing.T) {
	audio := sineAudio(44100, 0.5)
	// Two isolated samples at full scale: below the minimum run length.
	audio.Samples[100] = 1.0
	audio.Samples[5000] = -1.0

	analysis := clipping.Analyze(audio, clipping.DefaultOptions())
	if analysis != nil {
		assert.Equal(t, 0, analysis.Regions)
	}
}

func TestTrailingRunFlushed(t *testing.T) {
	audio := sineAudio(8820, 0.5)
	for i := len(audio.Samples) - 8; i < len(audio.Samples); i++ {
		audio.Samples[i] = -1.0
	}

	analysis := clipping.Analyze(audio, clipping.DefaultOptions())
	require.NotNil(t, analysis)
	assert.GreaterOrEqual(t, analysis.Regions, 1)
}

func TestTruePeakOnly(t *testing.T) {
	audio := sineAudio(44100, 0.5)

	samplePeakDb, truePeakDb := clipping.TruePeakOnly(audio)

	assert.InDelta(t, -6.0, samplePeakDb, 0.2)
	// Reconstruction never sits below the sample peak by more than a hair.
	assert.GreaterOrEqual(t, truePeakDb, samplePeakDb-0.5)
}
