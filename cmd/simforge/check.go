package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/simforge/engine/internal/content"
)

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <pack.yaml>...",
		Short: "Validate content packs without running them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var failed bool
			for _, path := range args {
				pack, err := content.Load(path)
				if err != nil {
					failed = true
					fmt.Printf("%s: %v\n", path, err)
					continue
				}
				fmt.Printf("%s: ok (%d templates, %d systems, %d events)\n",
					path, len(pack.Templates), len(pack.Systems), len(pack.Events))
			}
			if failed {
				return fmt.Errorf("validation failed")
			}
			return nil
		},
	}
}
