package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hydraping/hydraping/internal/config"
)

func newInitCmd() *cobra.Command {
	var (
		configPath string
		force      bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default settings.toml if one is not already present",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath
			if path == "" {
				path = config.DefaultPath()
			}

			created, err := config.Init(path, force)
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "wrote default config to %s\n", path)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "config already exists at %s, left unchanged\n", path)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to settings.toml (default ~/.config/hydraping/settings.toml)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config with the default")

	return cmd
}
