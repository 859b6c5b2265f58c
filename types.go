//nolint:staticcheck // too dumb on Db vs. DB
package velum

import (
	"math"
	"time"

	"github.com/farcloser/velum/internal/types"
)

// Detector identifies one of the pipeline's detection stages.
type Detector int

const (
	DetectorBitDepth Detector = iota
	DetectorDither
	DetectorResample
	DetectorSpectralCutoff
	DetectorMQA
	DetectorClipping
	DetectorSilence
	DetectorENF
)

// AllDetectors lists every stage in pipeline order.
func AllDetectors() []Detector {
	return []Detector{
		DetectorBitDepth,
		DetectorDither,
		DetectorResample,
		DetectorSpectralCutoff,
		DetectorMQA,
		DetectorClipping,
		DetectorSilence,
		DetectorENF,
	}
}

func (d Detector) String() string {
	switch d {
	case DetectorBitDepth:
		return "bit_depth"
	case DetectorDither:
		return "dither"
	case DetectorResample:
		return "resample"
	case DetectorSpectralCutoff:
		return "spectral_cutoff"
	case DetectorMQA:
		return "mqa"
	case DetectorClipping:
		return "clipping"
	case DetectorSilence:
		return "silence"
	case DetectorENF:
		return "enf"
	}

	return "unknown"
}

// ParseDetector converts a detector name back to its identifier.
func ParseDetector(name string) (Detector, bool) {
	for _, d := range AllDetectors() {
		if d.String() == name {
			return d, true
		}
	}

	return 0, false
}

// Severity indicates how bad a detected defect is.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	}

	return "unknown"
}

// Weight returns the verdict-aggregation weight for a severity.
func (s Severity) Weight() float64 {
	switch s {
	case SeverityCritical:
		return 1.0
	case SeverityHigh:
		return 0.8
	case SeverityMedium:
		return 0.5
	case SeverityLow:
		return 0.3
	case SeverityInfo:
		return 0.1
	}

	return 0.1
}

// SeverityFromConfidence maps a confidence score onto a severity band.
func SeverityFromConfidence(confidence float64) Severity {
	switch {
	case confidence >= 0.85:
		return SeverityHigh
	case confidence >= 0.65:
		return SeverityMedium
	case confidence >= 0.40:
		return SeverityLow
	default:
		return SeverityInfo
	}
}

// DefectKind tags a Defect payload.
type DefectKind int

const (
	DefectLossyTranscode DefectKind = iota
	DefectUpsampled
	DefectBitDepthInflated
	DefectClipping
	DefectSilencePadding
	DefectMqaEncoded
	DefectUpsampledLossyTranscode
	DefectDitheringDetected
	DefectResamplingDetected
)

func (k DefectKind) String() string {
	switch k {
	case DefectLossyTranscode:
		return "lossy_transcode"
	case DefectUpsampled:
		return "upsampled"
	case DefectBitDepthInflated:
		return "bit_depth_inflated"
	case DefectClipping:
		return "clipping"
	case DefectSilencePadding:
		return "silence_padding"
	case DefectMqaEncoded:
		return "mqa_encoded"
	case DefectUpsampledLossyTranscode:
		return "upsampled_lossy_transcode"
	case DefectDitheringDetected:
		return "dithering_detected"
	case DefectResamplingDetected:
		return "resampling_detected"
	}

	return "unknown"
}

// Defect is a tagged defect variant. Only the fields belonging to the Kind
// are meaningful; the set of kinds is closed by design.
type Defect struct {
	Kind DefectKind `json:"kind"`

	// LossyTranscode / UpsampledLossyTranscode
	CodecName        string  `json:"codec_name,omitempty"`
	EstimatedBitrate int     `json:"estimated_bitrate,omitempty"` // kbps; 0 = unknown
	CutoffHz         float64 `json:"cutoff_hz,omitempty"`

	// Upsampled / UpsampledLossyTranscode / ResamplingDetected
	OriginalRate int    `json:"original_rate,omitempty"`
	CurrentRate  int    `json:"current_rate,omitempty"`
	TargetRate   int    `json:"target_rate,omitempty"`
	QualityTag   string `json:"quality_tag,omitempty"`

	// BitDepthInflated
	ActualBits  int `json:"actual_bits,omitempty"`
	ClaimedBits int `json:"claimed_bits,omitempty"`

	// Clipping
	PeakLevelDb    float64 `json:"peak_level_db,omitempty"`
	ClippedSamples uint64  `json:"clipped_samples,omitempty"`

	// SilencePadding
	DurationSecs float64 `json:"duration_secs,omitempty"`

	// MqaEncoded
	MqaTypeTag string  `json:"mqa_type_tag,omitempty"`
	LsbEntropy float64 `json:"lsb_entropy,omitempty"`

	// DitheringDetected
	AlgorithmName string `json:"algorithm_name,omitempty"`
	EffectiveBits int    `json:"effective_bits,omitempty"`
	NoiseShaping  bool   `json:"noise_shaping,omitempty"`
}

// RawDetection is what a single detector emits, before profile adjustment.
// No side effects; confidence is clamped on construction.
type RawDetection struct {
	Detector    Detector
	Defect      Defect
	Confidence  float64
	Severity    Severity
	Description string
	Evidence    string
	Temporal    []float64 // optional normalized temporal distribution
}

// NewRawDetection builds a raw detection with the confidence clamped to [0, 1].
func NewRawDetection(detector Detector, defect Defect, confidence float64, description string) RawDetection {
	return RawDetection{
		Detector:    detector,
		Defect:      defect,
		Confidence:  clampUnit(confidence),
		Severity:    SeverityFromConfidence(confidence),
		Description: description,
	}
}

// Detection is a profile-adjusted finding.
type Detection struct {
	Defect         Defect    `json:"defect"`
	Confidence     float64   `json:"confidence"`
	RawConfidence  float64   `json:"raw_confidence"`
	Severity       Severity  `json:"-"`
	SeverityName   string    `json:"severity"`
	Method         string    `json:"method"`
	Evidence       string    `json:"evidence,omitempty"`
	Temporal       []float64 `json:"temporal_distribution,omitempty"`
	DetectorSource Detector  `json:"-"`
}

// Verdict is the overall classification of a file.
type Verdict int

const (
	VerdictGenuine Verdict = iota
	VerdictSuspicious
	VerdictTranscoded
	VerdictUnknown
)

func (v Verdict) String() string {
	switch v {
	case VerdictGenuine:
		return "genuine"
	case VerdictSuspicious:
		return "suspicious"
	case VerdictTranscoded:
		return "transcoded"
	case VerdictUnknown:
		return "unknown"
	}

	return "unknown"
}

// AnalysisResult is the complete per-file outcome.
type AnalysisResult struct {
	FilePath          string                `json:"file_path"`
	FileHash          string                `json:"file_hash,omitempty"`
	SampleRate        int                   `json:"sample_rate"`
	BitDepth          int                   `json:"bit_depth"`
	Channels          int                   `json:"channels"`
	DurationSecs      float64               `json:"duration_secs"`
	Detections        []Detection           `json:"detections"`
	OverallConfidence float64               `json:"overall_confidence"`
	QualityMetrics    *types.QualityMetrics `json:"quality_metrics,omitempty"`
	Verdict           Verdict               `json:"-"`
	VerdictName       string                `json:"verdict"`
	Error             string                `json:"error,omitempty"`
	Timestamp         time.Time             `json:"timestamp"`
}

// IsGenuine reports whether the file passed clean.
func (r *AnalysisResult) IsGenuine() bool {
	return r.Verdict == VerdictGenuine
}

func clampUnit(v float64) float64 {
	return math.Min(math.Max(v, 0), 1)
}
