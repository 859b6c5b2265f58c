package dsp_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farcloser/velum/internal/dsp"
)

func TestMakeWindowShapes(t *testing.T) {
	for _, window := range []dsp.Window{
		dsp.WindowHann,
		dsp.WindowHamming,
		dsp.WindowBlackman,
		dsp.WindowBlackmanHarris,
		dsp.WindowKaiser,
	} {
		coeffs := dsp.MakeWindow(1024, window)
		require.Len(t, coeffs, 1024)

		// Near-zero (or the window's pedestal) at the edges, ~1 at center.
		assert.Less(t, coeffs[0], 0.1, "window %s edge", window)
		assert.InDelta(t, 1.0, coeffs[512], 0.01, "window %s center", window)
	}
}

func TestProcessorLocatesTone(t *testing.T) {
	const (
		fftSize    = 4096
		sampleRate = 44100
	)

	proc := dsp.NewProcessor(fftSize, dsp.WindowHann)

	// Tone placed exactly on a bin.
	bin := 300
	freq := float64(bin) * sampleRate / fftSize

	frame := make([]float64, fftSize)
	for i := range frame {
		frame[i] = math.Sin(2 * math.Pi * freq * float64(i) / sampleRate)
	}

	mags := proc.Magnitudes(frame)
	require.Len(t, mags, fftSize/2+1)

	maxBin := 0
	for i, m := range mags {
		if m > mags[maxBin] {
			maxBin = i
		}
	}

	assert.Equal(t, bin, maxBin)
}

func TestPlannerCachesPlans(t *testing.T) {
	planner := dsp.NewPlanner()

	first := planner.Get(8192, dsp.WindowHann)
	second := planner.Get(8192, dsp.WindowHann)
	other := planner.Get(8192, dsp.WindowBlackmanHarris)

	assert.Same(t, first, second)
	assert.NotSame(t, first, other)
}

func TestAveragedDeterministic(t *testing.T) {
	samples := harmonicStack(44100, 44100, 8000)
	proc := dsp.NewProcessor(8192, dsp.WindowHann)

	first := dsp.Averaged(proc, samples, 44100, 50)
	second := dsp.Averaged(proc, samples, 44100, 50)

	require.NotNil(t, first)
	require.NotNil(t, second)
	require.Len(t, second.Db, len(first.Db))

	for i := range first.Db {
		assert.InDelta(t, first.Db[i], second.Db[i], 1e-12)
	}
}

func TestAveragedConcatenationAgrees(t *testing.T) {
	samples := harmonicStack(44100, 44100, 8000)
	doubled := append(append([]float64{}, samples...), samples...)

	proc := dsp.NewProcessor(8192, dsp.WindowHann)

	base := dsp.Averaged(proc, samples, 44100, 50)
	truncated := dsp.Averaged(proc, doubled[:len(samples)], 44100, 50)

	require.NotNil(t, base)
	require.NotNil(t, truncated)
	require.Equal(t, base.Windows, truncated.Windows)

	for i := range base.Db {
		assert.InDelta(t, base.Db[i], truncated.Db[i], 1e-4)
	}
}

func TestAveragedTooShort(t *testing.T) {
	proc := dsp.NewProcessor(8192, dsp.WindowHann)
	assert.Nil(t, dsp.Averaged(proc, make([]float64, 100), 44100, 50))
}

func TestRolloffOnBandLimitedSignal(t *testing.T) {
	samples := harmonicStack(44100, 88200, 15000)
	proc := dsp.NewProcessor(8192, dsp.WindowHann)

	spectrum := dsp.Averaged(proc, samples, 44100, 50)
	require.NotNil(t, spectrum)

	rolloffHz, transitionHz := spectrum.Rolloff()

	assert.InDelta(t, 15000, rolloffHz, 1500)
	assert.GreaterOrEqual(t, transitionHz, 0.0)
}

func TestBrickWallDetection(t *testing.T) {
	// A 100 Hz line spectrum: the gap just above the first harmonic past
	// mid-spectrum (11.1 kHz) already falls more than 40 dB within 10 bins,
	// so the scan stops there rather than at the 15 kHz content limit.
	samples := harmonicStack(44100, 88200, 15000)
	proc := dsp.NewProcessor(8192, dsp.WindowHann)

	spectrum := dsp.Averaged(proc, samples, 44100, 50)
	require.NotNil(t, spectrum)

	cutoff, found := spectrum.BrickWall()
	require.True(t, found)
	assert.InDelta(t, 11120, cutoff, 100)

	// The same inter-harmonic gap is found when the harmonics run up to Nyquist.
	wideband := harmonicStack(44100, 88200, 22000)
	spectrum = dsp.Averaged(proc, wideband, 44100, 50)
	require.NotNil(t, spectrum)

	_, found = spectrum.BrickWall()
	assert.True(t, found)
}

func TestBandAverage(t *testing.T) {
	samples := harmonicStack(44100, 88200, 10000)
	proc := dsp.NewProcessor(8192, dsp.WindowHann)

	spectrum := dsp.Averaged(proc, samples, 44100, 50)
	require.NotNil(t, spectrum)

	passband := spectrum.BandAverage(1000, 8000)
	stopband := spectrum.BandAverage(15000, 20000)

	assert.Greater(t, passband, stopband+40)
}

// harmonicStack sums 100 Hz harmonics up to limitHz, normalized to peak 0.3.
func harmonicStack(sampleRate, length int, limitHz float64) []float64 {
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

	if peak > 0 {
		for i := range samples {
			samples[i] *= 0.3 / peak
		}
	}

	return samples
}
