package velum_test

import (
	"math"
	"testing"

	"pgregory.net/rapid"

	"github.com/farcloser/velum"
	"github.com/farcloser/velum/internal/audit/bitdepth"
	"github.com/farcloser/velum/internal/audit/clipping"
	"github.com/farcloser/velum/internal/audit/mqa"
	"github.com/farcloser/velum/internal/audit/silence"
	"github.com/farcloser/velum/internal/audit/spectral"
	"github.com/farcloser/velum/internal/dsp"
	"github.com/farcloser/velum/internal/types"
)

// Scaling the input by 0 < k <= 1 must not move the detected cutoff, the
// transcode verdict, or the steepness classification: all thresholds are
// relative to the signal's own levels.
func TestScalingInvariance(t *testing.T) {
	base := harmonicAudio(44100, 88200, 16000, types.Depth24)
	planner := dsp.NewPlanner()

	reference := spectral.Analyze(planner, base, spectral.DefaultOptions())
	if reference == nil {
		t.Fatal("reference analysis failed")
	}

	rapid.Check(t, func(t *rapid.T) {
		k := rapid.Float64Range(0.25, 1).Draw(t, "k")

		scaled := &types.AudioData{
			Samples:      make([]float64, len(base.Samples)),
			SampleRate:   base.SampleRate,
			Channels:     base.Channels,
			ClaimedDepth: base.ClaimedDepth,
		}
		for i, s := range base.Samples {
			scaled.Samples[i] = s * k
		}

		analysis := spectral.Analyze(planner, scaled, spectral.DefaultOptions())
		if analysis == nil {
			t.Fatal("scaled analysis failed")
		}

		if analysis.IsTranscode != reference.IsTranscode {
			t.Fatalf("transcode verdict changed at k=%v", k)
		}

		if math.Abs(analysis.CutoffHz-reference.CutoffHz) > 500 {
			t.Fatalf("cutoff moved from %v to %v at k=%v", reference.CutoffHz, analysis.CutoffHz, k)
		}

		if (analysis.RolloffSteepness > 10) != (reference.RolloffSteepness > 10) {
			t.Fatalf("steepness classification changed at k=%v", k)
		}
	})
}

// Detectors that do not consume the pipeline context are pure functions of
// the audio: running them in any order produces identical outputs.
func TestContextFreeDetectorsOrderIndependent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		length := rapid.IntRange(16384, 65536).Draw(t, "length")
		freq := rapid.Float64Range(100, 8000).Draw(t, "freq")
		amplitude := rapid.Float64Range(0.05, 1).Draw(t, "amplitude")

		samples := make([]float64, length)
		for i := range samples {
			samples[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/44100)
		}

		audio := &types.AudioData{
			Samples:      samples,
			SampleRate:   44100,
			Channels:     1,
			ClaimedDepth: types.Depth24,
		}

		planner := dsp.NewPlanner()

		// Forward order.
		bits1 := bitdepth.Analyze(audio)
		clip1 := clipping.Analyze(audio, clipping.DefaultOptions())
		mqa1 := mqa.Analyze(planner, audio, mqa.DefaultThresholds())
		sil1 := silence.Analyze(audio, silence.DefaultOptions())

		// Reverse order.
		sil2 := silence.Analyze(audio, silence.DefaultOptions())
		mqa2 := mqa.Analyze(planner, audio, mqa.DefaultThresholds())
		clip2 := clipping.Analyze(audio, clipping.DefaultOptions())
		bits2 := bitdepth.Analyze(audio)

		if bits1.Actual != bits2.Actual || bits1.IsInflated != bits2.IsInflated {
			t.Fatal("bit depth analysis depends on ordering")
		}

		if (clip1 == nil) != (clip2 == nil) {
			t.Fatal("clipping analysis depends on ordering")
		}

		if clip1 != nil && clip1.ClippedSamples != clip2.ClippedSamples {
			t.Fatal("clipping counts depend on ordering")
		}

		if mqa1.IsEncoded != mqa2.IsEncoded {
			t.Fatal("MQA analysis depends on ordering")
		}

		if sil1.LeadingSec != sil2.LeadingSec || sil1.TrailingSec != sil2.TrailingSec {
			t.Fatal("silence analysis depends on ordering")
		}
	})
}

// Every emitted confidence stays in [0, 1] whatever the input looks like.
func TestConfidenceClampProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		length := rapid.IntRange(0, 32768).Draw(t, "length")
		seedFreq := rapid.Float64Range(50, 20000).Draw(t, "freq")
		amplitude := rapid.Float64Range(0, 1).Draw(t, "amplitude")

		samples := make([]float64, length)
		for i := range samples {
			samples[i] = amplitude * math.Sin(2*math.Pi*seedFreq*float64(i)/44100)
		}

		audio := &types.AudioData{
			Samples:      samples,
			SampleRate:   44100,
			Channels:     1,
			ClaimedDepth: types.Depth24,
		}

		result := velum.NewPipeline(velum.DefaultConfig()).Analyze(audio, "prop.flac")

		if result.OverallConfidence < 0 || result.OverallConfidence > 1 {
			t.Fatalf("overall confidence %v out of range", result.OverallConfidence)
		}

		for _, detection := range result.Detections {
			if detection.Confidence < 0 || detection.Confidence > 1 {
				t.Fatalf("detection confidence %v out of range", detection.Confidence)
			}
		}

		if len(result.Detections) == 0 && result.Error == "" {
			if result.Verdict != velum.VerdictGenuine {
				t.Fatalf("empty detections must be genuine, got %v", result.Verdict)
			}

			if result.OverallConfidence != 1.0 {
				t.Fatalf("empty detections must have confidence 1.0, got %v", result.OverallConfidence)
			}
		}
	})
}
