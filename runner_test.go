package velum_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farcloser/velum"
	"github.com/farcloser/velum/internal/types"
)

var errUnreadable = errors.New("unreadable")

func fakeDecode(_ context.Context, path string) (*types.AudioData, error) {
	if path == "broken.flac" {
		return nil, errUnreadable
	}

	samples := make([]float64, 44100)
	for i := range samples {
		samples[i] = 0.3 * math.Sin(2*math.Pi*1000*float64(i)/44100)
	}

	return &types.AudioData{
		Samples:      samples,
		SampleRate:   44100,
		Channels:     1,
		ClaimedDepth: types.Depth16,
	}, nil
}

func TestRunnerProcessesAllFiles(t *testing.T) {
	paths := []string{"a.flac", "b.flac", "c.flac", "d.flac", "e.flac"}

	runner := &velum.Runner{
		Workers: 3,
		Config:  velum.DefaultConfig(),
		Decode:  fakeDecode,
	}

	results, err := runner.Run(context.Background(), paths)
	require.NoError(t, err)
	require.Len(t, results, len(paths))

	seen := make(map[string]bool)
	for _, result := range results {
		seen[result.FilePath] = true

		assert.Equal(t, velum.VerdictGenuine, result.Verdict)
	}

	assert.Len(t, seen, len(paths))
	assert.Equal(t, uint64(len(paths)), runner.Progress())
}

func TestRunnerDecodeFailureIsUnknown(t *testing.T) {
	runner := &velum.Runner{
		Workers: 2,
		Config:  velum.DefaultConfig(),
		Decode:  fakeDecode,
	}

	results, err := runner.Run(context.Background(), []string{"ok.flac", "broken.flac"})
	require.NoError(t, err)
	require.Len(t, results, 2)

	var broken *velum.AnalysisResult

	for _, result := range results {
		if result.FilePath == "broken.flac" {
			broken = result
		}
	}

	require.NotNil(t, broken)
	assert.Equal(t, velum.VerdictUnknown, broken.Verdict)
	assert.Empty(t, broken.Detections)
	assert.NotEmpty(t, broken.Error)
}

func TestRunnerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := &velum.Runner{
		Workers: 2,
		Config:  velum.DefaultConfig(),
		Decode:  fakeDecode,
	}

	_, err := runner.Run(ctx, []string{"a.flac", "b.flac"})
	assert.Error(t, err)
}

func TestRunnerDefaultsWorkerCount(t *testing.T) {
	runner := &velum.Runner{
		Config: velum.DefaultConfig(),
		Decode: fakeDecode,
	}

	results, err := runner.Run(context.Background(), []string{"a.flac"})
	require.NoError(t, err)
	assert.Len(t, results, 1)
}
