package main

import (
	"github.com/urfave/cli/v3"

	"github.com/farcloser/velum"
)

// analysisFlags are shared between the analyze and scan commands.
func analysisFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "profile",
			Aliases: []string{"p"},
			Usage:   "Detection profile: standard, highres, electronic, noise, classical, podcast",
			Value:   "standard",
		},
		&cli.FloatFlag{
			Name:  "min-confidence",
			Usage: "Findings below this confidence are dropped",
			Value: 0.3,
		},
		&cli.StringFlag{
			Name:    "sensitivity",
			Aliases: []string{"s"},
			Usage:   "Detection sensitivity: low, medium, high",
			Value:   "medium",
		},
		&cli.BoolFlag{
			Name:  "mqa",
			Usage: "Enable MQA detection",
			Value: true,
		},
		&cli.BoolFlag{
			Name:  "clipping",
			Usage: "Enable clipping detection",
			Value: true,
		},
		&cli.BoolFlag{
			Name:  "enf",
			Usage: "Enable power-line hum (ENF) analysis",
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format: console, json, markdown",
			Value:   "console",
		},
	}
}

func configFromFlags(cmd *cli.Command) (velum.Config, error) {
	sensitivity, err := velum.ParseSensitivity(cmd.String("sensitivity"))
	if err != nil {
		return velum.Config{}, err
	}

	preset, err := velum.ParsePreset(cmd.String("profile"))
	if err != nil {
		return velum.Config{}, err
	}

	cfg := velum.DefaultConfig()
	cfg.MinConfidence = cmd.Float("min-confidence")
	cfg.EnableMQA = cmd.Bool("mqa")
	cfg.EnableClipping = cmd.Bool("clipping")
	cfg.EnableENF = cmd.Bool("enf")
	cfg.Sensitivity = sensitivity
	cfg.Profile = velum.NewProfile(preset)

	return cfg, nil
}
