package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pushkit-dev/pushkit/internal/config"
	"github.com/pushkit-dev/pushkit/internal/errors"
)

func initCmd() *cobra.Command {
	var (
		key     string
		secret  string
		cluster string
		force   bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a pushkit.json in the working directory",
		Long: `Create a starter pushkit.json configuration file.

Examples:
  pushkit init --key=app-key
  pushkit init --key=app-key --secret=app-secret --cluster=eu`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(key, secret, cluster, force)
		},
	}

	cmd.Flags().StringVarP(&key, "key", "k", "", "App key")
	cmd.Flags().StringVar(&secret, "secret", "", "App secret (only the auth server needs it)")
	cmd.Flags().StringVar(&cluster, "cluster", "", "Cluster name, e.g. eu")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing pushkit.json")

	return cmd
}

func runInit(key, secret, cluster string, force bool) error {
	path, err := filepath.Abs(config.ConfigFileName)
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); err == nil && !force {
		return errors.Newf(errors.CategoryCLI, "%s already exists", config.ConfigFileName).
			WithSuggestion("Pass --force to overwrite it")
	}

	cfg := config.New()
	cfg.Key = key
	cfg.Secret = secret
	cfg.Cluster = cluster
	if err := cfg.SaveTo(path); err != nil {
		return err
	}

	success("Wrote %s", config.ConfigFileName)
	if key == "" {
		info("Set \"key\" before connecting")
	}
	return nil
}
