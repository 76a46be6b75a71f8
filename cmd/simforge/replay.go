package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/simforge/engine/internal/content"
	"github.com/simforge/engine/internal/sim"
)

func replayCmd() *cobra.Command {
	var (
		packPath string
		frames   int
	)
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Run a pack twice from the same seed and compare state digests",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log, err := newLogger(cfg.Logging)
			if err != nil {
				return err
			}
			defer log.Sync()

			pack, err := content.Load(packPath)
			if err != nil {
				return err
			}

			dt := cfg.Simulation.TickRate.Seconds()
			run := func() (string, error) {
				state := sim.New(log, cfg.Simulation.Seed)
				if err := pack.Apply(state); err != nil {
					return "", err
				}
				for i := 0; i < frames; i++ {
					state.Step(dt, nil)
				}
				return state.DigestHex()
			}

			first, err := run()
			if err != nil {
				return err
			}
			second, err := run()
			if err != nil {
				return err
			}
			if first != second {
				return fmt.Errorf("digest mismatch: %s vs %s", first, second)
			}
			fmt.Printf("deterministic over %d frames: %s\n", frames, first)
			return nil
		},
	}
	cmd.Flags().StringVarP(&packPath, "pack", "p", "", "content pack (YAML)")
	cmd.Flags().IntVarP(&frames, "frames", "n", 600, "frames to simulate")
	cmd.MarkFlagRequired("pack")
	return cmd
}
