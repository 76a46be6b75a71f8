package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/simforge/engine/internal/config"
	"github.com/simforge/engine/internal/content"
	"github.com/simforge/engine/internal/persist"
	"github.com/simforge/engine/internal/sim"
)

func runCmd() *cobra.Command {
	var (
		packPath string
		frames   int
		saveName string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a content pack headless for a number of frames",
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

			state := sim.New(log, cfg.Simulation.Seed)
			if packPath != "" {
				pack, err := content.Load(packPath)
				if err != nil {
					return err
				}
				if err := pack.Apply(state); err != nil {
					return fmt.Errorf("apply pack: %w", err)
				}
				log.Info("pack loaded", zap.String("pack", pack.Name),
					zap.Int("entities", len(state.Entities)))
			}

			dt := cfg.Simulation.TickRate.Seconds()
			for i := 0; i < frames; i++ {
				state.Step(dt, nil)
			}
			digest, err := state.DigestHex()
			if err != nil {
				return err
			}
			log.Info("run complete",
				zap.Int64("frame", state.Frame),
				zap.Float64("time", state.Time),
				zap.String("digest", digest))

			if saveName != "" {
				if err := saveSnapshot(cmd.Context(), cfg, state, saveName, digest); err != nil {
					return err
				}
				log.Info("snapshot saved", zap.String("name", saveName))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&packPath, "pack", "p", "", "content pack (YAML)")
	cmd.Flags().IntVarP(&frames, "frames", "n", 600, "frames to simulate")
	cmd.Flags().StringVar(&saveName, "save", "", "save a snapshot under this name")
	return cmd
}

// saveSnapshot writes to the file archive, and to Postgres when enabled.
func saveSnapshot(ctx context.Context, cfg *config.Config, state *sim.State, name, digest string) error {
	body, err := state.Dump()
	if err != nil {
		return err
	}
	store, err := persist.NewFileStore(cfg.Snapshots.Dir)
	if err != nil {
		return err
	}
	if err := store.Save(name, body); err != nil {
		return err
	}
	if !cfg.Database.Enabled {
		return nil
	}
	db, err := persist.NewDB(ctx, cfg.Database, zap.NewNop())
	if err != nil {
		return err
	}
	defer db.Close()
	if err := persist.RunMigrations(ctx, db.Pool); err != nil {
		return err
	}
	repo := persist.NewSnapshotRepo(db)
	return repo.Save(ctx, persist.SnapshotMeta{
		Name: name, Frame: state.Frame, SimTime: state.Time, Digest: digest,
	}, body)
}
