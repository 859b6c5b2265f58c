package velum

import (
	"context"
	"crypto/md5" //nolint:gosec // content fingerprint for dedup, not security
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/farcloser/velum/internal/types"
)

// DecodeFunc turns a file path into normalized PCM. It is the runner's only
// I/O-bound step and the only one subject to the per-file timeout.
type DecodeFunc func(ctx context.Context, path string) (*types.AudioData, error)

// Runner fans file paths out over a bounded worker pool. Parallel across
// files, strictly sequential within one file: no detector is parallelized
// internally. Each worker owns its own Pipeline, and with it a private FFT
// plan cache.
type Runner struct {
	Workers       int           // default: host CPU count
	QueueDepth    int           // bounded work queue; producer blocks when full
	DecodeTimeout time.Duration // 0 = no per-file limit
	Config        Config
	Decode        DecodeFunc

	progress atomic.Uint64
}

// Progress returns the number of files finished so far.
func (r *Runner) Progress() uint64 {
	return r.progress.Load()
}

// Run analyzes every path and returns one result per path. File order in
// the output is not guaranteed; the verdict aggregation is per-file, so
// ordering never affects outcomes. A file that fails to decode yields an
// Unknown-verdict result rather than an error; Run itself only fails on
// context cancellation.
func (r *Runner) Run(ctx context.Context, paths []string) ([]*AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("batch analysis aborted: %w", err)
	}

	workers := r.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	queueDepth := r.QueueDepth
	if queueDepth <= 0 {
		queueDepth = workers * 2
	}

	queue := make(chan string, queueDepth)
	results := make(chan *AnalysisResult, queueDepth)

	group, groupCtx := errgroup.WithContext(ctx)

	// Producer: blocks when the queue is full.
	group.Go(func() error {
		defer close(queue)

		for _, path := range paths {
			select {
			case queue <- path:
			case <-groupCtx.Done():
				return groupCtx.Err()
			}
		}

		return nil
	})

	workerGroup, workerCtx := errgroup.WithContext(groupCtx)

	for range workers {
		workerGroup.Go(func() error {
			pipeline := NewPipeline(r.Config)

			for path := range queue {
				result := r.analyzeOne(workerCtx, pipeline, path)
				r.progress.Add(1)

				select {
				case results <- result:
				case <-workerCtx.Done():
					return workerCtx.Err()
				}
			}

			return nil
		})
	}

	group.Go(func() error {
		defer close(results)

		return workerGroup.Wait()
	})

	collected := make([]*AnalysisResult, 0, len(paths))
	for result := range results {
		collected = append(collected, result)
	}

	if err := group.Wait(); err != nil {
		return collected, fmt.Errorf("batch analysis aborted: %w", err)
	}

	return collected, nil
}

// analyzeOne decodes and analyzes a single file, degrading any failure into
// an Unknown-verdict result.
func (r *Runner) analyzeOne(ctx context.Context, pipeline *Pipeline, path string) *AnalysisResult {
	decodeCtx := ctx

	if r.DecodeTimeout > 0 {
		var cancel context.CancelFunc

		decodeCtx, cancel = context.WithTimeout(ctx, r.DecodeTimeout)
		defer cancel()
	}

	audio, err := r.Decode(decodeCtx, path)
	if err != nil {
		return &AnalysisResult{
			FilePath:    path,
			Detections:  []Detection{},
			Verdict:     VerdictUnknown,
			VerdictName: VerdictUnknown.String(),
			Error:       fmt.Sprintf("decode failed: %v", err),
			Timestamp:   time.Now().UTC(),
		}
	}

	result := pipeline.Analyze(audio, path)

	if hash, hashErr := hashFile(path); hashErr == nil {
		result.FileHash = hash
	}

	return result
}

func hashFile(path string) (string, error) {
	file, err := os.Open(path) //nolint:gosec // analyzing user-specified audio files
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer file.Close()

	hasher := md5.New() //nolint:gosec // content fingerprint, not security
	if _, err := io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}
