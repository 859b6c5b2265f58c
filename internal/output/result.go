// Package output provides shared result serialization for velum JSON and
// console output.
package output

import (
	"fmt"

	"github.com/farcloser/velum"
)

// ResultToMap converts an analysis result into the canonical map structure
// used for JSON and console serialization.
func ResultToMap(result *velum.AnalysisResult) map[string]any {
	meta := map[string]any{
		"verdict":            result.VerdictName,
		"overall_confidence": result.OverallConfidence,
		"sample_rate":        result.SampleRate,
		"bit_depth":          result.BitDepth,
		"channels":           result.Channels,
		"duration_secs":      result.DurationSecs,
		"timestamp":          result.Timestamp,
	}

	if result.FileHash != "" {
		meta["file_hash"] = result.FileHash
	}

	if result.Error != "" {
		meta["error"] = result.Error
	}

	detections := make([]any, 0, len(result.Detections))
	for _, detection := range result.Detections {
		detections = append(detections, DetectionToMap(detection))
	}

	meta["detections"] = detections

	if metrics := result.QualityMetrics; metrics != nil {
		quality := map[string]any{
			"peak_db":              metrics.PeakDb,
			"rms_db":               metrics.RmsDb,
			"crest_factor_db":      metrics.CrestFactorDb,
			"true_peak_db":         metrics.TruePeakDb,
			"dc_offset":            metrics.DCOffset,
			"noise_floor_db":       metrics.NoiseFloorDb,
			"spectral_centroid_hz": metrics.SpectralCentroid,
		}

		if metrics.HasMainsHum {
			quality["hum_level_db"] = metrics.HumLevelDb
			quality["has_mains_hum"] = true
		}

		meta["quality_metrics"] = quality
	}

	return meta
}

// DetectionToMap converts one finding to a map.
func DetectionToMap(detection velum.Detection) map[string]any {
	entry := map[string]any{
		"kind":       detection.Defect.Kind.String(),
		"confidence": detection.Confidence,
		"severity":   detection.SeverityName,
		"method":     detection.Method,
	}

	if detection.Evidence != "" {
		entry["evidence"] = detection.Evidence
	}

	defect := detection.Defect

	switch defect.Kind {
	case velum.DefectLossyTranscode:
		entry["codec"] = defect.CodecName
		entry["cutoff_hz"] = defect.CutoffHz

		if defect.EstimatedBitrate > 0 {
			entry["estimated_bitrate"] = defect.EstimatedBitrate
		}
	case velum.DefectUpsampled:
		entry["original_rate"] = defect.OriginalRate
		entry["current_rate"] = defect.CurrentRate
	case velum.DefectBitDepthInflated:
		entry["actual_bits"] = defect.ActualBits
		entry["claimed_bits"] = defect.ClaimedBits
	case velum.DefectClipping:
		entry["peak_level_db"] = defect.PeakLevelDb
		entry["clipped_samples"] = defect.ClippedSamples
	case velum.DefectSilencePadding:
		entry["duration_secs"] = defect.DurationSecs
	case velum.DefectMqaEncoded:
		entry["mqa_type"] = defect.MqaTypeTag
		entry["lsb_entropy"] = defect.LsbEntropy

		if defect.OriginalRate > 0 {
			entry["original_rate"] = defect.OriginalRate
		}
	case velum.DefectUpsampledLossyTranscode:
		entry["original_rate"] = defect.OriginalRate
		entry["current_rate"] = defect.CurrentRate
		entry["codec"] = defect.CodecName
		entry["cutoff_hz"] = defect.CutoffHz

		if defect.EstimatedBitrate > 0 {
			entry["estimated_bitrate"] = defect.EstimatedBitrate
		}
	case velum.DefectDitheringDetected:
		entry["algorithm"] = defect.AlgorithmName
		entry["effective_bits"] = defect.EffectiveBits
		entry["noise_shaping"] = defect.NoiseShaping
	case velum.DefectResamplingDetected:
		entry["original_rate"] = defect.OriginalRate
		entry["target_rate"] = defect.TargetRate
		entry["quality"] = defect.QualityTag
	}

	return entry
}

// Summary renders the one-line human summary for a result.
func Summary(result *velum.AnalysisResult) string {
	if result.Error != "" {
		return fmt.Sprintf("unable to determine: %s", result.Error)
	}

	switch result.Verdict {
	case velum.VerdictGenuine:
		return fmt.Sprintf("appears genuine (%.0f%% confidence)", result.OverallConfidence*100)
	case velum.VerdictTranscoded:
		return fmt.Sprintf("likely transcoded (%d findings)", len(result.Detections))
	case velum.VerdictSuspicious:
		return fmt.Sprintf("suspicious (%d findings)", len(result.Detections))
	case velum.VerdictUnknown:
		fallthrough
	default:
		return "unable to determine"
	}
}
