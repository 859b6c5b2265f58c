//nolint:wrapcheck
package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/farcloser/velum"
	"github.com/farcloser/velum/internal/integration/decode"
)

var errAnalyzeArgs = errors.New("expected exactly one argument: file path")

func analyzeCommand() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "Analyze a single audio file for fake lossless markers",
		ArgsUsage: "<file>",
		Flags: append(analysisFlags(),
			&cli.IntFlag{
				Name:  "stream",
				Usage: "Audio stream index (0-based)",
				Value: 0,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return fmt.Errorf("%w: got %d", errAnalyzeArgs, cmd.NArg())
			}

			cfg, err := configFromFlags(cmd)
			if err != nil {
				return err
			}

			filePath := cmd.Args().First()

			audio, err := decode.Stream(ctx, filePath, cmd.Int("stream"))
			if err != nil {
				return fmt.Errorf("decoding: %w", err)
			}

			result := velum.NewPipeline(cfg).Analyze(audio, filePath)

			return outputResults([]*velum.AnalysisResult{result}, cmd.String("format"))
		},
	}
}
