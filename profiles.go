package velum

import (
	"fmt"
	"math"
)

// ProfilePreset names a built-in detection profile.
type ProfilePreset int

const (
	PresetStandard ProfilePreset = iota
	PresetHighRes
	PresetElectronic
	PresetNoise
	PresetClassical
	PresetPodcast
	PresetCustom
)

func (p ProfilePreset) String() string {
	switch p {
	case PresetStandard:
		return "standard"
	case PresetHighRes:
		return "highres"
	case PresetElectronic:
		return "electronic"
	case PresetNoise:
		return "noise"
	case PresetClassical:
		return "classical"
	case PresetPodcast:
		return "podcast"
	case PresetCustom:
		return "custom"
	}

	return "standard"
}

// ParsePreset converts a user-supplied name (with common aliases) to a preset.
func ParsePreset(name string) (ProfilePreset, error) {
	switch name {
	case "standard", "":
		return PresetStandard, nil
	case "highres", "highresaudio", "hi-res":
		return PresetHighRes, nil
	case "electronic", "edm":
		return PresetElectronic, nil
	case "noise", "ambient":
		return PresetNoise, nil
	case "classical", "orchestral":
		return PresetClassical, nil
	case "podcast", "speech", "voice":
		return PresetPodcast, nil
	case "custom":
		return PresetCustom, nil
	default:
		return 0, fmt.Errorf(
			"unknown profile %q (valid: standard, highres, electronic, noise, classical, podcast, custom)", name)
	}
}

// Description returns a one-line summary for profile listings.
func (p ProfilePreset) Description() string {
	switch p {
	case PresetStandard:
		return "Balanced settings for most music"
	case PresetHighRes:
		return "For verified high-resolution audio sources"
	case PresetElectronic:
		return "Electronic music with intentional sharp cutoffs"
	case PresetNoise:
		return "Noise/ambient/drone with full-spectrum energy"
	case PresetClassical:
		return "Classical/orchestral with wide dynamic range"
	case PresetPodcast:
		return "Speech/podcast content"
	case PresetCustom:
		return "Fully custom configuration"
	}

	return ""
}

// Modifier adjusts one detector's confidence within a profile. Findings
// whose modified confidence falls below MinThreshold are suppressed.
type Modifier struct {
	Multiplier   float64 // clamped to [0, 2]
	MinThreshold float64 // clamped to [0, 1]
}

// NewModifier clamps the inputs to their legal ranges.
func NewModifier(multiplier, minThreshold float64) Modifier {
	return Modifier{
		Multiplier:   math.Min(math.Max(multiplier, 0), 2),
		MinThreshold: clampUnit(minThreshold),
	}
}

// Apply returns the modified confidence, or (0, false) when suppressed.
func (m Modifier) Apply(raw float64) (float64, bool) {
	multiplier := m.Multiplier
	if multiplier == 0 && m.MinThreshold == 0 {
		// Zero value means "no modifier".
		multiplier = 1
	}

	modified := raw * multiplier
	if modified < m.MinThreshold {
		return 0, false
	}

	return clampUnit(modified), true
}

// ProfileConfig tunes per-detector confidence and spectral knobs for a
// genre. Detectors know nothing about profiles; the pipeline mediates.
type ProfileConfig struct {
	Preset            ProfilePreset
	Name              string
	EnabledDetectors  map[Detector]bool
	Modifiers         map[Detector]Modifier
	GlobalSensitivity float64 // [0.1, 2.0]

	SpectralCutoffToleranceHz int
	SpectralMinFreqHz         int
	PreEchoSensitivity        float64
}

// NewProfile returns the configuration for a preset.
func NewProfile(preset ProfilePreset) *ProfileConfig {
	switch preset {
	case PresetHighRes:
		return &ProfileConfig{
			Preset:           PresetHighRes,
			Name:             "High-Resolution Audio",
			EnabledDetectors: allEnabled(),
			Modifiers: map[Detector]Modifier{
				DetectorSpectralCutoff: NewModifier(0.7, 0.4),
				DetectorResample:       NewModifier(0.8, 0.3),
			},
			GlobalSensitivity:         0.8,
			SpectralCutoffToleranceHz: 1000,
			SpectralMinFreqHz:         20000,
			PreEchoSensitivity:        0.5,
		}
	case PresetElectronic:
		return &ProfileConfig{
			Preset:           PresetElectronic,
			Name:             "Electronic/EDM",
			EnabledDetectors: allEnabled(),
			Modifiers: map[Detector]Modifier{
				DetectorSpectralCutoff: NewModifier(0.5, 0.6),
				DetectorClipping:       NewModifier(0.6, 0.5),
			},
			GlobalSensitivity:         0.9,
			SpectralCutoffToleranceHz: 2000,
			SpectralMinFreqHz:         18000,
			PreEchoSensitivity:        0.6,
		}
	case PresetNoise:
		return &ProfileConfig{
			Preset:           PresetNoise,
			Name:             "Noise/Ambient",
			EnabledDetectors: allEnabled(),
			Modifiers: map[Detector]Modifier{
				DetectorSpectralCutoff: NewModifier(0.3, 0.7),
				DetectorDither:         NewModifier(0.4, 0.6),
				DetectorBitDepth:       NewModifier(0.5, 0.5),
			},
			GlobalSensitivity:         0.6,
			SpectralCutoffToleranceHz: 3000,
			SpectralMinFreqHz:         15000,
			PreEchoSensitivity:        0.3,
		}
	case PresetClassical:
		return &ProfileConfig{
			Preset:           PresetClassical,
			Name:             "Classical/Orchestral",
			EnabledDetectors: allEnabled(),
			Modifiers: map[Detector]Modifier{
				DetectorClipping: NewModifier(1.2, 0.2),
			},
			GlobalSensitivity:         1.0,
			SpectralCutoffToleranceHz: 500,
			SpectralMinFreqHz:         18000,
			PreEchoSensitivity:        0.8,
		}
	case PresetPodcast:
		return &ProfileConfig{
			Preset: PresetPodcast,
			Name:   "Podcast/Speech",
			EnabledDetectors: map[Detector]bool{
				DetectorBitDepth:       true,
				DetectorDither:         true,
				DetectorSpectralCutoff: true,
				DetectorClipping:       true,
				DetectorSilence:        true,
			},
			Modifiers: map[Detector]Modifier{
				DetectorSpectralCutoff: NewModifier(0.4, 0.7),
				DetectorClipping:       NewModifier(0.3, 0.8),
			},
			GlobalSensitivity:         0.7,
			SpectralCutoffToleranceHz: 4000,
			SpectralMinFreqHz:         12000,
			PreEchoSensitivity:        0.5,
		}
	case PresetStandard, PresetCustom:
		fallthrough
	default:
		return &ProfileConfig{
			Preset:                    PresetStandard,
			Name:                      "Standard",
			EnabledDetectors:          allEnabled(),
			Modifiers:                 map[Detector]Modifier{},
			GlobalSensitivity:         1.0,
			SpectralCutoffToleranceHz: 500,
			SpectralMinFreqHz:         16000,
			PreEchoSensitivity:        0.7,
		}
	}
}

func allEnabled() map[Detector]bool {
	enabled := make(map[Detector]bool, len(AllDetectors()))
	for _, d := range AllDetectors() {
		enabled[d] = true
	}

	return enabled
}

// IsEnabled reports whether a detector participates under this profile.
func (p *ProfileConfig) IsEnabled(detector Detector) bool {
	return p.EnabledDetectors[detector]
}

// Enable turns a detector on.
func (p *ProfileConfig) Enable(detector Detector) {
	p.EnabledDetectors[detector] = true
}

// Disable turns a detector off.
func (p *ProfileConfig) Disable(detector Detector) {
	delete(p.EnabledDetectors, detector)
}

// SetModifier overrides a detector's confidence modifier.
func (p *ProfileConfig) SetModifier(detector Detector, modifier Modifier) {
	p.Modifiers[detector] = modifier
	p.Preset = PresetCustom
}

// SetSensitivity clamps and sets the global sensitivity.
func (p *ProfileConfig) SetSensitivity(sensitivity float64) {
	p.GlobalSensitivity = math.Min(math.Max(sensitivity, 0.1), 2.0)
}

// AdjustConfidence applies the profile to one raw confidence. Returns
// (0, false) when the detector is disabled or the finding is suppressed.
func (p *ProfileConfig) AdjustConfidence(detector Detector, raw float64) (float64, bool) {
	if !p.IsEnabled(detector) {
		return 0, false
	}

	modified, ok := p.Modifiers[detector].Apply(raw)
	if !ok {
		return 0, false
	}

	return clampUnit(modified * p.GlobalSensitivity), true
}
