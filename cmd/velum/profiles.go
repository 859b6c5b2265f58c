package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/farcloser/velum"
)

func profilesCommand() *cli.Command {
	return &cli.Command{
		Name:  "profiles",
		Usage: "List detection profiles and their settings",
		Action: func(_ context.Context, _ *cli.Command) error {
			presets := []velum.ProfilePreset{
				velum.PresetStandard,
				velum.PresetHighRes,
				velum.PresetElectronic,
				velum.PresetNoise,
				velum.PresetClassical,
				velum.PresetPodcast,
			}

			for _, preset := range presets {
				profile := velum.NewProfile(preset)
				fmt.Printf("%-12s %s (sensitivity %.1f)\n", preset, preset.Description(), profile.GlobalSensitivity)

				for _, detector := range velum.AllDetectors() {
					if !profile.IsEnabled(detector) {
						fmt.Printf("             - %s disabled\n", detector)

						continue
					}

					if modifier, ok := profile.Modifiers[detector]; ok {
						fmt.Printf("             - %s x%.1f, threshold %.1f\n",
							detector, modifier.Multiplier, modifier.MinThreshold)
					}
				}
			}

			return nil
		},
	}
}
