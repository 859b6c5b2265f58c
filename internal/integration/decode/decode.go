// Package decode turns an audio file into normalized AudioData by probing
// it with ffprobe and extracting 32-bit PCM with ffmpeg.
package decode

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/farcloser/velum/internal/integration/ffmpeg"
	"github.com/farcloser/velum/internal/integration/ffprobe"
	"github.com/farcloser/velum/internal/types"
)

const maxValue32 = 2147483648.0 // 2^31 — 32-bit signed PCM normalization divisor

var errNoAudioStream = errors.New("no audio stream found")

// File probes and decodes the first audio stream of the file at path.
func File(ctx context.Context, path string) (*types.AudioData, error) {
	return Stream(ctx, path, 0)
}

// Stream probes and decodes the streamIndex-th audio stream.
func Stream(ctx context.Context, path string, streamIndex int) (*types.AudioData, error) {
	probeResult, err := ffprobe.Probe(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("probing %s: %w", path, err)
	}

	stream, err := findAudioStream(probeResult, streamIndex)
	if err != nil {
		return nil, err
	}

	sampleRate, err := strconv.Atoi(stream.SampleRate)
	if err != nil || sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate from probe: %q", stream.SampleRate)
	}

	if stream.Channels <= 0 {
		return nil, fmt.Errorf("invalid channel count from probe: %d", stream.Channels)
	}

	file, err := os.Open(path) //nolint:gosec // decoding user-specified audio files
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer file.Close()

	var pcm bytes.Buffer

	if err := ffmpeg.ExtractStream(ctx, file, &pcm, streamIndex, types.Depth32); err != nil {
		return nil, fmt.Errorf("extracting PCM from %s: %w", path, err)
	}

	claimed, inferred := resolveClaimedDepth(stream)

	return &types.AudioData{
		Samples:       normalizeS32LE(pcm.Bytes()),
		SampleRate:    sampleRate,
		Channels:      stream.Channels,
		ClaimedDepth:  claimed,
		DepthInferred: inferred,
		Codec:         stream.CodecName,
		Format:        probeResult.Format.FormatName,
	}, nil
}

func findAudioStream(result *ffprobe.Result, streamIndex int) (*ffprobe.Stream, error) {
	audioCount := 0

	for i := range result.Streams {
		if result.Streams[i].CodecType == "audio" {
			if audioCount == streamIndex {
				return &result.Streams[i], nil
			}

			audioCount++
		}
	}

	return nil, fmt.Errorf("%w: index %d (file has %d audio streams)",
		errNoAudioStream, streamIndex, audioCount)
}

// resolveClaimedDepth determines the container bit depth. For lossless
// codecs bits_per_raw_sample is the most reliable source; PCM containers
// state bits_per_sample. When neither is present the depth is inferred
// as 16-bit.
func resolveClaimedDepth(stream *ffprobe.Stream) (types.BitDepth, bool) {
	if stream.BitsPerRawSample != "" {
		if bits, err := strconv.Atoi(stream.BitsPerRawSample); err == nil {
			if depth, ok := toBitDepth(bits); ok {
				return depth, false
			}
		}
	}

	if stream.BitsPerSample > 0 {
		if depth, ok := toBitDepth(stream.BitsPerSample); ok {
			return depth, false
		}
	}

	return types.Depth16, true
}

func toBitDepth(bits int) (types.BitDepth, bool) {
	switch bits {
	case 16:
		return types.Depth16, true
	case 24:
		return types.Depth24, true
	case 32:
		return types.Depth32, true
	default:
		return 0, false
	}
}

// normalizeS32LE converts raw s32le PCM bytes to floats in [-1, 1].
func normalizeS32LE(data []byte) []float64 {
	completeSamples := len(data) / 4
	samples := make([]float64, completeSamples)

	for i := range completeSamples {
		raw := int32(binary.LittleEndian.Uint32(data[i*4:]))
		samples[i] = float64(raw) / maxValue32
	}

	return samples
}
