//nolint:wrapcheck
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/farcloser/velum"
	"github.com/farcloser/velum/internal/integration/decode"
	"github.com/farcloser/velum/internal/types"
)

var (
	errScanArgs     = errors.New("expected at least one file or directory argument")
	errNoAudioFiles = errors.New("no audio files found to analyze")
)

// Extensions considered lossless containers worth checking.
var losslessExtensions = map[string]bool{
	".flac": true,
	".wav":  true,
	".aiff": true,
	".aif":  true,
	".m4a":  true,
	".ape":  true,
	".wv":   true,
}

func scanCommand() *cli.Command {
	return &cli.Command{
		Name:      "scan",
		Usage:     "Recursively analyze audio files under the given paths",
		ArgsUsage: "<path>...",
		Flags: append(analysisFlags(),
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"w"},
				Usage:   "Number of parallel workers (0 = CPU count)",
			},
			&cli.DurationFlag{
				Name:  "decode-timeout",
				Usage: "Per-file decode time limit",
				Value: 2 * time.Minute,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() == 0 {
				return errScanArgs
			}

			cfg, err := configFromFlags(cmd)
			if err != nil {
				return err
			}

			paths, err := collectFiles(cmd.Args().Slice())
			if err != nil {
				return err
			}

			if len(paths) == 0 {
				return errNoAudioFiles
			}

			runner := &velum.Runner{
				Workers:       cmd.Int("workers"),
				DecodeTimeout: cmd.Duration("decode-timeout"),
				Config:        cfg,
				Decode: func(ctx context.Context, path string) (*types.AudioData, error) {
					return decode.File(ctx, path)
				},
			}

			results, err := runner.Run(ctx, paths)
			if err != nil {
				return err
			}

			if err := outputResults(results, cmd.String("format")); err != nil {
				return err
			}

			printSummary(results)

			return nil
		},
	}
}

// collectFiles expands directories into the lossless audio files they
// contain; explicit file arguments are taken as-is.
func collectFiles(args []string) ([]string, error) {
	var paths []string

	for _, arg := range args {
		err := filepath.WalkDir(arg, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			if entry.IsDir() {
				return nil
			}

			if path == arg || losslessExtensions[strings.ToLower(filepath.Ext(path))] {
				paths = append(paths, path)
			}

			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", arg, err)
		}
	}

	return paths, nil
}

func printSummary(results []*velum.AnalysisResult) {
	var genuine, suspect, unknown int

	for _, result := range results {
		switch result.Verdict {
		case velum.VerdictGenuine:
			genuine++
		case velum.VerdictUnknown:
			unknown++
		case velum.VerdictSuspicious, velum.VerdictTranscoded:
			suspect++
		}
	}

	fmt.Printf("\nfiles analyzed: %d\ngenuine lossless: %d\npotentially fake: %d\n", len(results), genuine, suspect)

	if unknown > 0 {
		fmt.Printf("undetermined: %d\n", unknown)
	}
}
