package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"audioscribe/internal/config"
)

func newRootCmd() *cobra.Command {
	var envFile, port string

	cmd := &cobra.Command{
		Use:          "audioscribe",
		Short:        "Audio upload and transcription service",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadEnv(envFile); err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if port != "" {
				cfg.Port = port
			}
			return run(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "load environment from this file instead of ./.env")
	cmd.Flags().StringVar(&port, "port", "", "listen port, overrides PORT")
	return cmd
}

// loadEnv loads path, or ./.env when path is empty. Only a missing default
// file is tolerated.
func loadEnv(path string) error {
	if path == "" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}
