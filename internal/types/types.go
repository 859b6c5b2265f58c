//nolint:staticcheck // too dumb on Db vs. DB
package types

type BitDepth uint

const (
	Depth16 BitDepth = 16
	Depth24 BitDepth = 24
	Depth32 BitDepth = 32
)

// AudioData is decoded, normalized PCM plus the container metadata the
// detectors need. Samples are interleaved floats in [-1.0, 1.0]; detectors
// never see raw integer PCM. Immutable after decode.
type AudioData struct {
	Samples       []float64
	SampleRate    int
	Channels      int
	ClaimedDepth  BitDepth
	DepthInferred bool // true when the container did not state a bit depth
	Codec         string
	Format        string
}

// Frames returns the number of sample frames (samples per channel).
func (a *AudioData) Frames() int {
	if a.Channels == 0 {
		return 0
	}

	return len(a.Samples) / a.Channels
}

// Duration returns the audio duration in seconds.
func (a *AudioData) Duration() float64 {
	if a.SampleRate <= 0 {
		return 0
	}

	return float64(a.Frames()) / float64(a.SampleRate)
}

// Mono returns a mono mix (mean of channels), computed on demand.
// For mono input the sample slice is returned as-is.
func (a *AudioData) Mono() []float64 {
	if a.Channels <= 1 {
		return a.Samples
	}

	frames := a.Frames()
	mono := make([]float64, frames)
	channels := float64(a.Channels)

	for frame := range frames {
		var sum float64
		for ch := range a.Channels {
			sum += a.Samples[frame*a.Channels+ch]
		}

		mono[frame] = sum / channels
	}

	return mono
}

// Channel returns a single de-interleaved channel, computed on demand.
func (a *AudioData) Channel(ch int) []float64 {
	if a.Channels <= 1 {
		return a.Samples
	}

	frames := a.Frames()
	out := make([]float64, frames)

	for frame := range frames {
		out[frame] = a.Samples[frame*a.Channels+ch]
	}

	return out
}

/*
Bit Depth Analysis Interpretation

## Sub-analysis agreement

| Methods agreeing on 16-bit | Confidence | Verdict                       |
|----------------------------|------------|-------------------------------|
| 0-1                        | any        | Trust claimed depth           |
| 2 (weighted 1.5x margin)   | >= 0.80    | 16-bit, slightly reduced conf |
| 3-4                        | >= 0.80    | 16-bit, full confidence       |

A mismatch is only reported when the container claims >= 24 bits, analysis
settles on <= 16 bits, and aggregate confidence reaches 0.85. Everything
below that defaults to the claimed depth: a false "fake" verdict on genuine
24-bit material is far worse than a miss.
*/

// BitDepthAnalysis contains results returned by the bitdepth auditor.
type BitDepthAnalysis struct {
	Claimed    BitDepth
	Actual     BitDepth
	Confidence float64
	IsInflated bool // Actual < Claimed with high confidence

	// Per-method verdicts for transparency.
	LSBMethod        BitDepth
	HistogramMethod  BitDepth
	NoiseMethod      BitDepth
	ClusteringMethod BitDepth

	Evidence []string
}

// DitherAlgorithm identifies a dither noise family.
type DitherAlgorithm int

const (
	DitherNone DitherAlgorithm = iota
	DitherRectangular
	DitherTriangular
	DitherTriangularHighPass
	DitherLipshitz
	DitherShibata
	DitherLowShibata
	DitherHighShibata
	DitherFWeighted
	DitherModifiedEWeighted
	DitherImprovedEWeighted
	DitherUnknown
)

func (d DitherAlgorithm) String() string {
	switch d {
	case DitherNone:
		return "none"
	case DitherRectangular:
		return "rectangular"
	case DitherTriangular:
		return "triangular"
	case DitherTriangularHighPass:
		return "triangular_hp"
	case DitherLipshitz:
		return "lipshitz"
	case DitherShibata:
		return "shibata"
	case DitherLowShibata:
		return "low_shibata"
	case DitherHighShibata:
		return "high_shibata"
	case DitherFWeighted:
		return "f_weighted"
	case DitherModifiedEWeighted:
		return "modified_e_weighted"
	case DitherImprovedEWeighted:
		return "improved_e_weighted"
	case DitherUnknown:
		return "unknown"
	}

	return "unknown"
}

/*
Dither Analysis Interpretation

## Spectral tilt vs algorithm family

| Tilt (dB/octave) | PDF shape        | Family                     |
|------------------|------------------|----------------------------|
| ~0               | flat             | rectangular (RPDF)         |
| ~0               | triangular       | triangular (TPDF)          |
| 2-8              | triangular-ish   | high-pass triangular       |
| 4-10             | any              | Lipshitz                   |
| > 4 + HF peak    | any              | Shibata (peak position)    |
| 6-15             | any              | F-weighted                 |
| > 10             | any              | E-weighted variants        |

Shibata variants by shaping-peak position: 9-14 kHz low, 13-17 kHz standard,
16-21 kHz high.

## Scale buckets

RMS of the isolated noise divided by LSB * 0.408 (standard TPDF RMS),
bucketed to 0.5 / 0.75 / 1.0 / 1.25 / 1.5 / 2.0x.
*/

// DitherAnalysis contains results returned by the dither auditor.
type DitherAnalysis struct {
	Algorithm           DitherAlgorithm
	AlgorithmConfidence float64
	Scale               float64 // amplitude multiplier bucket; 0 = unknown
	ScaleConfidence     float64
	IsBitReduced        bool
	EffectiveBits       int
	ContainerBits       int
	NoiseShaping        bool // spectral tilt above ~3 dB/octave
	NoiseFloorDb        float64
	SpectralTilt        float64 // dB/octave
	LowBandRatio        float64 // 0-4 kHz share of noise energy
	MidBandRatio        float64 // 4-12 kHz
	HighBandRatio       float64 // 12-22 kHz
	PDFFlatness         float64
	PDFTriangularity    float64
	ShapingPeakHz       float64 // 0 = no peak
	Evidence            []string
}

// ResampleDirection indicates which way a sample rate conversion went.
type ResampleDirection int

const (
	ResampleNone ResampleDirection = iota
	ResampleUpsample
	ResampleDownsample
)

func (d ResampleDirection) String() string {
	switch d {
	case ResampleUpsample:
		return "upsample"
	case ResampleDownsample:
		return "downsample"
	case ResampleNone:
		return "none"
	}

	return "none"
}

// ResampleQuality is the estimated quality tier of a resampling pass.
type ResampleQuality int

const (
	QualityLow ResampleQuality = iota
	QualityStandard
	QualityHigh
	QualityVeryHigh
	QualityTransparent
)

func (q ResampleQuality) String() string {
	switch q {
	case QualityLow:
		return "low"
	case QualityStandard:
		return "standard"
	case QualityHigh:
		return "high"
	case QualityVeryHigh:
		return "very_high"
	case QualityTransparent:
		return "transparent"
	}

	return "standard"
}

/*
Resampling Analysis Interpretation

## Spectral null

An upsampled file keeps a null at the original Nyquist: the anti-aliasing
filter of the source format removed everything above it, and upsampling
cannot put it back. Null depth (to 40 dB) and transition sharpness (to
30 dB) both feed confidence.

## Engine classification by filter characteristics

| Stopband attn (dB) | Signature                    | Engine bucket            |
|--------------------|------------------------------|--------------------------|
| 50-60              | cutoff ratio 0.80-0.90       | low-grade default engine |
| 60-80              | transition band < 2 kHz      | windowed FIR             |
| 70-100             | by exact attenuation         | Kaiser beta 9 / 12 / 16  |
| > 100              | cutoff ratio 0.89-0.93       | custom cutoff 0.91       |
| > 100              | cutoff ratio 0.93-0.97       | custom cutoff 0.95       |
| > 100              | passband ripple < 0.1 dB     | Chebyshev passband       |
*/

// ResampleAnalysis contains results returned by the resample auditor.
type ResampleAnalysis struct {
	IsResampled       bool
	Confidence        float64
	CurrentRate       int
	OriginalRate      int // 0 = undetermined
	Direction         ResampleDirection
	Engine            string
	EngineConfidence  float64
	Quality           ResampleQuality
	FilterCutoffRatio float64
	TransitionBandHz  float64
	StopbandAttnDb    float64
	PassbandRippleDb  float64
	HasNyquistNull    bool
	NullFrequencyHz   float64
	Evidence          []string
}

/*
Lossy Codec Cutoff Interpretation

| Cutoff     | Likely source        | Notes                      |
|------------|----------------------|----------------------------|
| ~11 kHz    | MP3 64               | Speech-grade bitrate       |
| ~16 kHz    | MP3 128              | Classic piracy bitrate     |
| ~18 kHz    | MP3 192 / Vorbis q7  | "Good enough" tier         |
| ~19.5 kHz  | MP3 256              | Near transparent           |
| ~20.5 kHz  | MP3 320              | Max MP3; often borderline  |

A transcode verdict requires all three: cutoff ratio < 0.95 of Nyquist,
roll-off steeper than 10 dB/octave, and combined confidence above 0.4.
*/

// CutoffAnalysis contains results returned by the spectral (lossy codec) auditor.
type CutoffAnalysis struct {
	CutoffHz         float64
	CutoffRatio      float64 // of Nyquist
	RolloffSteepness float64 // dB/octave
	Confidence       float64
	IsTranscode      bool
	Codec            string // "" = no codec matched
	Bitrate          int    // kbps; 0 = unknown
	MatchConfidence  float64
	Evidence         []string
}

// MqaAnalysis contains results returned by the MQA auditor.
type MqaAnalysis struct {
	IsEncoded         bool
	Confidence        float64
	OriginalRate      int    // 0 = undetermined
	TypeTag           string // "early", "current", "unknown"
	LsbEntropy        float64
	LsbCorrelation    float64
	NoiseElevationDb  float64
	HFNoiseDb         float64
	PeriodicityScore  float64
	ClusteringScore   float64
	BitTransitionRate float64
	FoldingScore      float64
	Evidence          []string
}

// ClippingAnalysis contains results returned by the clipping auditor.
type ClippingAnalysis struct {
	ClippedSamples   uint64
	Regions          int
	PeakDb           float64
	TruePeakDb       float64 // 4x oversampled reconstruction peak
	InterSamplePeaks uint64
	ClipRatio        float64
	Distribution     []float64 // normalized 100-bin temporal histogram; nil when clean
}

// SilenceAnalysis contains results returned by the silence auditor.
type SilenceAnalysis struct {
	LeadingSec   float64
	TrailingSec  float64
	TotalSilence float64
	Frames       uint64
}

// HumAnalysis contains results returned by the power-line hum (ENF) auditor.
type HumAnalysis struct {
	Has50Hz    bool
	Has60Hz    bool
	LevelDb    float64 // worst spike above surrounding bins
	Stability  float64 // coefficient of variation across windows; low = steady hum
	Confidence float64
}

// QualityMetrics are informational measurements attached to a result.
type QualityMetrics struct {
	PeakDb           float64 `json:"peak_db"`
	RmsDb            float64 `json:"rms_db"`
	CrestFactorDb    float64 `json:"crest_factor_db"`
	TruePeakDb       float64 `json:"true_peak_db"`
	DCOffset         float64 `json:"dc_offset"`
	NoiseFloorDb     float64 `json:"noise_floor_db"`
	SpectralCentroid float64 `json:"spectral_centroid_hz"`
	HumLevelDb       float64 `json:"hum_level_db,omitempty"`
	HasMainsHum      bool    `json:"has_mains_hum,omitempty"`
}
