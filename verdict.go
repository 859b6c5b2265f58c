package velum

// composeVerdict aggregates detections into an overall verdict and
// confidence. Weighting follows severity; confidence is the complement of
// the severity-weighted mean detection confidence, so an empty list means
// full confidence in a genuine file.
func composeVerdict(detections []Detection) (Verdict, float64) {
	if len(detections) == 0 {
		return VerdictGenuine, 1.0
	}

	var weightSum, weightedConfidence float64

	highCount := 0

	var maxRawHigh float64

	for _, detection := range detections {
		weight := detection.Severity.Weight()
		weightSum += weight
		weightedConfidence += weight * detection.Confidence

		if detection.Severity >= SeverityHigh {
			highCount++

			if detection.RawConfidence > maxRawHigh {
				maxRawHigh = detection.RawConfidence
			}
		}
	}

	score := weightedConfidence / weightSum
	overall := clampUnit(1 - score)

	switch {
	case highCount >= 2:
		return VerdictTranscoded, overall
	case highCount == 1 && maxRawHigh >= 0.7:
		return VerdictTranscoded, overall
	case score >= 0.5:
		return VerdictSuspicious, overall
	case score < 0.3:
		return VerdictGenuine, overall
	default:
		return VerdictSuspicious, overall
	}
}
