package velum_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farcloser/velum"
)

func TestModifierApply(t *testing.T) {
	modifier := velum.NewModifier(0.5, 0.3)

	// 0.8 * 0.5 = 0.4, above threshold.
	adjusted, ok := modifier.Apply(0.8)
	require.True(t, ok)
	assert.InDelta(t, 0.4, adjusted, 1e-9)

	// 0.5 * 0.5 = 0.25, below threshold: suppressed.
	_, ok = modifier.Apply(0.5)
	assert.False(t, ok)

	// Result clamps to [0, 1].
	adjusted, ok = velum.NewModifier(2, 0).Apply(0.9)
	require.True(t, ok)
	assert.InDelta(t, 1.0, adjusted, 1e-9)
}

func TestZeroValueModifierIsIdentity(t *testing.T) {
	var modifier velum.Modifier

	adjusted, ok := modifier.Apply(0.7)
	require.True(t, ok)
	assert.InDelta(t, 0.7, adjusted, 1e-12)
}

func TestNoiseProfileSuppressesSpectralCutoff(t *testing.T) {
	profile := velum.NewProfile(velum.PresetNoise)

	// 0.9 * 0.3 = 0.27, below the 0.7 threshold.
	_, ok := profile.AdjustConfidence(velum.DetectorSpectralCutoff, 0.9)
	assert.False(t, ok)

	standard := velum.NewProfile(velum.PresetStandard)
	adjusted, ok := standard.AdjustConfidence(velum.DetectorSpectralCutoff, 0.8)
	require.True(t, ok)
	assert.InDelta(t, 0.8, adjusted, 1e-9)
}

func TestDisabledDetectorSuppressed(t *testing.T) {
	profile := velum.NewProfile(velum.PresetPodcast)

	// Podcast profile disables resampling and MQA detection.
	assert.False(t, profile.IsEnabled(velum.DetectorResample))
	assert.False(t, profile.IsEnabled(velum.DetectorMQA))

	_, ok := profile.AdjustConfidence(velum.DetectorResample, 0.9)
	assert.False(t, ok)
}

func TestGlobalSensitivityApplied(t *testing.T) {
	profile := velum.NewProfile(velum.PresetHighRes)

	// Sensitivity 0.8, no modifier for bit depth.
	adjusted, ok := profile.AdjustConfidence(velum.DetectorBitDepth, 1.0)
	require.True(t, ok)
	assert.InDelta(t, 0.8, adjusted, 1e-9)
}

func TestSetSensitivityClamps(t *testing.T) {
	profile := velum.NewProfile(velum.PresetStandard)

	profile.SetSensitivity(5)
	assert.InDelta(t, 2.0, profile.GlobalSensitivity, 1e-12)

	profile.SetSensitivity(0)
	assert.InDelta(t, 0.1, profile.GlobalSensitivity, 1e-12)
}

func TestParsePreset(t *testing.T) {
	for name, expected := range map[string]velum.ProfilePreset{
		"standard":   velum.PresetStandard,
		"":           velum.PresetStandard,
		"highres":    velum.PresetHighRes,
		"hi-res":     velum.PresetHighRes,
		"edm":        velum.PresetElectronic,
		"ambient":    velum.PresetNoise,
		"orchestral": velum.PresetClassical,
		"speech":     velum.PresetPodcast,
	} {
		preset, err := velum.ParsePreset(name)
		require.NoError(t, err, name)
		assert.Equal(t, expected, preset, name)
	}

	_, err := velum.ParsePreset("bogus")
	assert.Error(t, err)
}

func TestEnableDisable(t *testing.T) {
	profile := velum.NewProfile(velum.PresetStandard)

	profile.Disable(velum.DetectorMQA)
	assert.False(t, profile.IsEnabled(velum.DetectorMQA))

	profile.Enable(velum.DetectorMQA)
	assert.True(t, profile.IsEnabled(velum.DetectorMQA))
}

func TestAllPresetsShipSpectralKnobs(t *testing.T) {
	for _, preset := range []velum.ProfilePreset{
		velum.PresetStandard, velum.PresetHighRes, velum.PresetElectronic,
		velum.PresetNoise, velum.PresetClassical, velum.PresetPodcast,
	} {
		profile := velum.NewProfile(preset)

		assert.Positive(t, profile.SpectralCutoffToleranceHz, preset.String())
		assert.Positive(t, profile.SpectralMinFreqHz, preset.String())
		assert.Positive(t, profile.PreEchoSensitivity, preset.String())
		assert.GreaterOrEqual(t, profile.GlobalSensitivity, 0.1, preset.String())
		assert.LessOrEqual(t, profile.GlobalSensitivity, 2.0, preset.String())
	}
}
