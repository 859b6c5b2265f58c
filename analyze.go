//nolint:staticcheck // too dumb with Db
package velum

import (
	"fmt"
	"math"
	"time"

	"github.com/farcloser/velum/internal/audit/bitdepth"
	"github.com/farcloser/velum/internal/audit/clipping"
	"github.com/farcloser/velum/internal/audit/dither"
	"github.com/farcloser/velum/internal/audit/enf"
	"github.com/farcloser/velum/internal/audit/mqa"
	"github.com/farcloser/velum/internal/audit/resample"
	"github.com/farcloser/velum/internal/audit/silence"
	"github.com/farcloser/velum/internal/audit/spectral"
	"github.com/farcloser/velum/internal/dsp"
	"github.com/farcloser/velum/internal/types"
)

/*
Usage:

	pipeline := velum.NewPipeline(velum.DefaultConfig())
	result := pipeline.Analyze(audio, "album/track.flac")

	if result.Verdict == velum.VerdictTranscoded {
	    for _, detection := range result.Detections {
	        fmt.Printf("[%s] %s\n", detection.SeverityName, detection.Evidence)
	    }
	}

	// Genre-aware
	cfg := velum.DefaultConfig()
	cfg.Profile = velum.NewProfile(velum.PresetElectronic)
	result = velum.NewPipeline(cfg).Analyze(audio, path)
*/

// Sensitivity selects the overall detection aggressiveness.
type Sensitivity int

const (
	SensitivityLow Sensitivity = iota
	SensitivityMedium
	SensitivityHigh
)

func (s Sensitivity) String() string {
	switch s {
	case SensitivityLow:
		return "low"
	case SensitivityMedium:
		return "medium"
	case SensitivityHigh:
		return "high"
	}

	return "medium"
}

// ParseSensitivity converts a flag value to a Sensitivity.
func ParseSensitivity(name string) (Sensitivity, error) {
	switch name {
	case "low":
		return SensitivityLow, nil
	case "medium", "":
		return SensitivityMedium, nil
	case "high":
		return SensitivityHigh, nil
	default:
		return 0, fmt.Errorf("unknown sensitivity %q (valid: low, medium, high)", name)
	}
}

// Config configures one analysis pipeline.
type Config struct {
	MinConfidence  float64
	EnableMQA      bool
	EnableClipping bool
	EnableSilence  bool
	EnableENF      bool
	Sensitivity    Sensitivity
	Profile        *ProfileConfig

	// MinPaddingSec is the leading/trailing silence above which a
	// SilencePadding finding is emitted.
	MinPaddingSec float64
}

// DefaultConfig returns the standard pipeline configuration.
func DefaultConfig() Config {
	return Config{
		MinConfidence:  0.3,
		EnableMQA:      true,
		EnableClipping: true,
		EnableSilence:  true,
		EnableENF:      false,
		Sensitivity:    SensitivityMedium,
		Profile:        NewProfile(PresetStandard),
		MinPaddingSec:  2.0,
	}
}

// Pipeline runs the ordered detector chain over one file at a time. Not
// safe for concurrent use; each worker owns its own Pipeline (and with it
// its own FFT plan cache).
type Pipeline struct {
	config  Config
	planner *dsp.Planner
}

// NewPipeline builds a pipeline, backfilling zero-value config fields.
func NewPipeline(config Config) *Pipeline {
	if config.Profile == nil {
		config.Profile = NewProfile(PresetStandard)
	}

	if config.MinConfidence == 0 {
		config.MinConfidence = 0.3
	}

	if config.MinPaddingSec == 0 {
		config.MinPaddingSec = 2.0
	}

	return &Pipeline{
		config:  config,
		planner: dsp.NewPlanner(),
	}
}

// Analyze runs the full detection pipeline over decoded audio.
//
// Stage order is load-bearing: bit depth and dither run before resampling,
// resampling before the lossy-codec stage, so that DSP artifacts (dither
// noise shaping, anti-aliasing roll-off) are known before anything tries to
// read a codec signature out of the spectrum.
func (p *Pipeline) Analyze(audio *types.AudioData, filePath string) *AnalysisResult {
	result := &AnalysisResult{
		FilePath:   filePath,
		Detections: []Detection{},
		Timestamp:  time.Now().UTC(),
		Verdict:    VerdictUnknown,
	}

	if audio != nil {
		result.SampleRate = audio.SampleRate
		result.BitDepth = int(audio.ClaimedDepth)
		result.Channels = audio.Channels
		result.DurationSecs = audio.Duration()
	}

	if reason := validate(audio); reason != "" {
		result.Error = reason
		result.VerdictName = result.Verdict.String()

		return result
	}

	ctx := NewDetectionContext(audio.SampleRate, int(audio.ClaimedDepth))

	var raws []RawDetection

	// Stage 2: bit depth.
	p.runStage(result, func() {
		if raw := p.detectBitDepth(audio, ctx); raw != nil {
			raws = append(raws, *raw)
		}
	})

	// Stage 3: dither.
	p.runStage(result, func() {
		if raw := p.detectDither(audio, ctx); raw != nil {
			raws = append(raws, *raw)
		}
	})

	// Stage 4: resampling.
	p.runStage(result, func() {
		if raw := p.detectResampling(audio, ctx); raw != nil {
			raws = append(raws, *raw)
		}
	})

	// Stage 5: lossy codec, gated and adjusted by everything above.
	p.runStage(result, func() {
		if raw := p.detectLossy(audio, ctx); raw != nil {
			raws = append(raws, *raw)
		}
	})

	// Stage 6: optional detectors. None of them consume the context.
	if p.config.EnableMQA {
		p.runStage(result, func() {
			if raw := p.detectMQA(audio); raw != nil {
				raws = append(raws, *raw)
			}
		})
	}

	if p.config.EnableClipping {
		p.runStage(result, func() {
			if raw := p.detectClipping(audio); raw != nil {
				raws = append(raws, *raw)
			}
		})
	}

	if p.config.EnableSilence {
		p.runStage(result, func() {
			if raw := p.detectSilencePadding(audio); raw != nil {
				raws = append(raws, *raw)
			}
		})
	}

	raws = p.composeUpsampledTranscode(raws, ctx)

	// Stage 7: profile application.
	for _, raw := range raws {
		adjusted, ok := p.config.Profile.AdjustConfidence(raw.Detector, raw.Confidence)
		if !ok || adjusted < p.config.MinConfidence {
			continue
		}

		result.Detections = append(result.Detections, Detection{
			Defect:         raw.Defect,
			Confidence:     adjusted,
			RawConfidence:  raw.Confidence,
			Severity:       raw.Severity,
			SeverityName:   raw.Severity.String(),
			Method:         raw.Detector.String(),
			Evidence:       raw.Evidence,
			Temporal:       raw.Temporal,
			DetectorSource: raw.Detector,
		})
	}

	// Stage 8: verdict.
	result.Verdict, result.OverallConfidence = composeVerdict(result.Detections)
	result.VerdictName = result.Verdict.String()

	p.runStage(result, func() {
		result.QualityMetrics = p.qualityMetrics(audio)
	})

	return result
}

// validate returns a non-empty reason when the input cannot be analyzed.
func validate(audio *types.AudioData) string {
	switch {
	case audio == nil || len(audio.Samples) == 0:
		return "empty input: no samples decoded"
	case audio.SampleRate <= 0:
		return fmt.Sprintf("invalid sample rate %d", audio.SampleRate)
	case audio.Channels <= 0:
		return "empty channel layout"
	}

	for _, s := range audio.Samples {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return "non-finite samples in input"
		}
	}

	return ""
}

// runStage isolates one detector: a panic inside it degrades that stage to
// "no finding" and leaves everything earlier stages produced intact.
func (p *Pipeline) runStage(result *AnalysisResult, stage func()) {
	defer func() {
		if r := recover(); r != nil {
			result.Error = fmt.Sprintf("detector panic: %v", r)
		}
	}()

	stage()
}

func (p *Pipeline) detectBitDepth(audio *types.AudioData, ctx *DetectionContext) *RawDetection {
	analysis := bitdepth.Analyze(audio)
	if analysis == nil {
		return nil
	}

	ctx.ActualBitDepth = int(analysis.Actual)

	if !analysis.IsInflated {
		return nil
	}

	raw := NewRawDetection(DetectorBitDepth, Defect{
		Kind:        DefectBitDepthInflated,
		ActualBits:  int(analysis.Actual),
		ClaimedBits: int(analysis.Claimed),
	}, analysis.Confidence, fmt.Sprintf(
		"container claims %d bit, content is %d bit", analysis.Claimed, analysis.Actual))
	raw.Evidence = lastEvidence(analysis.Evidence)

	return &raw
}

func (p *Pipeline) detectDither(audio *types.AudioData, ctx *DetectionContext) *RawDetection {
	analysis := dither.Analyze(p.planner, audio, dither.DefaultOptions())
	ctx.SetDithering(analysis)

	if analysis == nil || !analysis.IsBitReduced || analysis.Algorithm == types.DitherNone {
		return nil
	}

	raw := NewRawDetection(DetectorDither, Defect{
		Kind:          DefectDitheringDetected,
		AlgorithmName: analysis.Algorithm.String(),
		EffectiveBits: analysis.EffectiveBits,
		NoiseShaping:  analysis.NoiseShaping,
	}, analysis.AlgorithmConfidence, fmt.Sprintf(
		"%s dither at %d effective bits", analysis.Algorithm, analysis.EffectiveBits))
	raw.Severity = SeverityInfo
	raw.Evidence = lastEvidence(analysis.Evidence)

	return &raw
}

func (p *Pipeline) detectResampling(audio *types.AudioData, ctx *DetectionContext) *RawDetection {
	analysis := resample.Analyze(p.planner, audio, resample.DefaultOptions())
	ctx.SetResampling(analysis)

	if analysis == nil || !analysis.IsResampled {
		return nil
	}

	// A Nyquist null pins down the whole conversion; the fallback signature
	// only supports the weaker "upsampled" claim.
	defect := Defect{
		Kind:         DefectResamplingDetected,
		OriginalRate: analysis.OriginalRate,
		TargetRate:   analysis.CurrentRate,
		CurrentRate:  analysis.CurrentRate,
		QualityTag:   analysis.Quality.String(),
	}
	if !analysis.HasNyquistNull {
		defect = Defect{
			Kind:         DefectUpsampled,
			OriginalRate: analysis.OriginalRate,
			CurrentRate:  analysis.CurrentRate,
		}
	}

	raw := NewRawDetection(DetectorResample, defect, analysis.Confidence, fmt.Sprintf(
		"resampling signature: %d Hz -> %d Hz (%s quality)",
		analysis.OriginalRate, analysis.CurrentRate, analysis.Quality))
	raw.Severity = SeverityMedium
	raw.Evidence = lastEvidence(analysis.Evidence)

	return &raw
}

func (p *Pipeline) detectLossy(audio *types.AudioData, ctx *DetectionContext) *RawDetection {
	if !ctx.ShouldRunLossyDetection() {
		return nil
	}

	analysis := spectral.Analyze(p.planner, audio, spectral.DefaultOptions())
	if analysis == nil || !analysis.IsTranscode {
		return nil
	}

	confidence := ctx.AdjustLossyConfidence(analysis.Confidence, analysis.Codec)
	if confidence <= 0 {
		return nil
	}

	raw := NewRawDetection(DetectorSpectralCutoff, Defect{
		Kind:             DefectLossyTranscode,
		CodecName:        analysis.Codec,
		EstimatedBitrate: analysis.Bitrate,
		CutoffHz:         analysis.CutoffHz,
	}, confidence, fmt.Sprintf(
		"spectral cutoff at %.0f Hz (%.1f%% of Nyquist)",
		analysis.CutoffHz, analysis.CutoffRatio*100))
	if analysis.CutoffRatio < 0.5 {
		raw.Severity = SeverityCritical
	}

	raw.Evidence = lastEvidence(analysis.Evidence)

	return &raw
}

func (p *Pipeline) detectMQA(audio *types.AudioData) *RawDetection {
	thresholds := mqa.DefaultThresholds()

	switch p.config.Sensitivity {
	case SensitivityLow:
		thresholds = mqa.StrictThresholds()
	case SensitivityHigh:
		thresholds = mqa.EarlyEncoderThresholds()
	case SensitivityMedium:
	}

	analysis := mqa.Analyze(p.planner, audio, thresholds)
	if analysis == nil || !analysis.IsEncoded {
		return nil
	}

	raw := NewRawDetection(DetectorMQA, Defect{
		Kind:         DefectMqaEncoded,
		OriginalRate: analysis.OriginalRate,
		MqaTypeTag:   analysis.TypeTag,
		LsbEntropy:   analysis.LsbEntropy,
	}, analysis.Confidence, fmt.Sprintf(
		"MQA encoding (%s encoder family, LSB entropy %.2f)", analysis.TypeTag, analysis.LsbEntropy))
	raw.Severity = SeverityInfo
	raw.Evidence = lastEvidence(analysis.Evidence)

	return &raw
}

func (p *Pipeline) detectClipping(audio *types.AudioData) *RawDetection {
	analysis := clipping.Analyze(audio, clipping.DefaultOptions())
	if analysis == nil {
		return nil
	}

	confidence := math.Min(analysis.ClipRatio*1000, 1)

	raw := NewRawDetection(DetectorClipping, Defect{
		Kind:           DefectClipping,
		PeakLevelDb:    analysis.PeakDb,
		ClippedSamples: analysis.ClippedSamples,
	}, confidence, fmt.Sprintf(
		"%d clipped samples (%.4f%%), %d regions",
		analysis.ClippedSamples, analysis.ClipRatio*100, analysis.Regions))
	raw.Severity = clippingSeverity(analysis.ClipRatio)
	raw.Temporal = analysis.Distribution

	return &raw
}

func clippingSeverity(ratio float64) Severity {
	switch {
	case ratio > 0.01:
		return SeverityCritical
	case ratio > 0.001:
		return SeverityHigh
	case ratio > 0.0001:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

func (p *Pipeline) detectSilencePadding(audio *types.AudioData) *RawDetection {
	analysis := silence.Analyze(audio, silence.DefaultOptions())
	if analysis == nil {
		return nil
	}

	worst := math.Max(analysis.LeadingSec, analysis.TrailingSec)
	if worst < p.config.MinPaddingSec {
		return nil
	}

	raw := NewRawDetection(DetectorSilence, Defect{
		Kind:         DefectSilencePadding,
		DurationSecs: worst,
	}, math.Min(worst/10, 1), fmt.Sprintf(
		"silence padding: %.1fs leading, %.1fs trailing", analysis.LeadingSec, analysis.TrailingSec))
	raw.Severity = SeverityInfo

	return &raw
}

// composeUpsampledTranscode enforces the coexistence rule: a resampling
// finding and a lossy-transcode finding survive together only when the
// cutoff is NOT explained by the resampling (it sits well below the
// original Nyquist). In that case the pair collapses into the composite
// defect; otherwise the lossy finding is dropped.
func (p *Pipeline) composeUpsampledTranscode(raws []RawDetection, ctx *DetectionContext) []RawDetection {
	var resampleIdx, lossyIdx = -1, -1

	for i, raw := range raws {
		switch raw.Defect.Kind {
		case DefectResamplingDetected, DefectUpsampled:
			resampleIdx = i
		case DefectLossyTranscode:
			lossyIdx = i
		default:
		}
	}

	if resampleIdx < 0 || lossyIdx < 0 {
		return raws
	}

	resampleRaw := raws[resampleIdx]
	lossyRaw := raws[lossyIdx]

	// Anti-aliasing filters cut at 85-98% of the original Nyquist, so a
	// cutoff in that region is the resampling itself, not a codec.
	origNyquist := float64(resampleRaw.Defect.OriginalRate) / 2
	explained := origNyquist > 0 && lossyRaw.Defect.CutoffHz >= 0.85*origNyquist &&
		lossyRaw.Defect.CutoffHz <= origNyquist+float64(p.config.Profile.SpectralCutoffToleranceHz)

	out := make([]RawDetection, 0, len(raws))

	for i, raw := range raws {
		if i == lossyIdx {
			continue
		}

		if i == resampleIdx && !explained {
			composite := NewRawDetection(DetectorSpectralCutoff, Defect{
				Kind:             DefectUpsampledLossyTranscode,
				OriginalRate:     resampleRaw.Defect.OriginalRate,
				CurrentRate:      ctx.SampleRate,
				CodecName:        lossyRaw.Defect.CodecName,
				EstimatedBitrate: lossyRaw.Defect.EstimatedBitrate,
				CutoffHz:         lossyRaw.Defect.CutoffHz,
			}, math.Max(resampleRaw.Confidence, lossyRaw.Confidence), fmt.Sprintf(
				"lossy transcode (%s, cutoff %.0f Hz) upsampled from %d Hz",
				lossyRaw.Defect.CodecName, lossyRaw.Defect.CutoffHz, resampleRaw.Defect.OriginalRate))
			composite.Severity = SeverityHigh
			out = append(out, composite)

			continue
		}

		out = append(out, raw)
	}

	return out
}

// qualityMetrics computes the informational measurements attached to every
// successful result.
func (p *Pipeline) qualityMetrics(audio *types.AudioData) *types.QualityMetrics {
	mono := audio.Mono()

	peak := dsp.Peak(mono)
	rms := dsp.RMS(mono)

	metrics := &types.QualityMetrics{
		PeakDb: dsp.AmplitudeToDb(peak),
		RmsDb:  dsp.AmplitudeToDb(rms),
	}

	if rms > 0 && peak > 0 {
		metrics.CrestFactorDb = metrics.PeakDb - metrics.RmsDb
	}

	var dcSum float64
	for _, s := range mono {
		dcSum += s
	}

	metrics.DCOffset = dcSum / float64(max(len(mono), 1))

	// Noise floor: 1st percentile of |sample|.
	abs := make([]float64, len(mono))
	for i, s := range mono {
		abs[i] = math.Abs(s)
	}

	metrics.NoiseFloorDb = dsp.AmplitudeToDb(dsp.Percentile(abs, 0.01))

	_, metrics.TruePeakDb = clipping.TruePeakOnly(audio)

	if len(mono) >= 8192 {
		proc := p.planner.Get(8192, dsp.WindowHann)
		mags := proc.Magnitudes(mono[:8192])
		metrics.SpectralCentroid = dsp.SpectralCentroid(mags, float64(audio.SampleRate)/8192)
	}

	if p.config.EnableENF {
		hum := enf.Analyze(p.planner, audio, enf.DefaultOptions())
		if hum != nil && (hum.Has50Hz || hum.Has60Hz) {
			metrics.HumLevelDb = hum.LevelDb
			metrics.HasMainsHum = true
		}
	}

	return metrics
}

func lastEvidence(evidence []string) string {
	if len(evidence) == 0 {
		return ""
	}

	return evidence[len(evidence)-1]
}
