package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/automatix-sh/automatix/internal/config"
	"github.com/automatix-sh/automatix/internal/script"
)

func newListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List available scripts",
		Long:  "Lists every script found in the configured script directories.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath(), "path to Automatix config file")
	return cmd
}

func runList(cmd *cobra.Command, configPath string) error {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	paths, err := script.List(cfg.ScriptDirs)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(paths) == 0 {
		fmt.Fprintf(out, "No scripts found in %s.\n", strings.Join(cfg.ScriptDirs, ", "))
		return nil
	}

	for _, path := range paths {
		s, err := script.Load(path)
		if err != nil {
			fmt.Fprintf(out, "%-30s (unreadable: %v)\n", scriptName(path), err)
			continue
		}
		fmt.Fprintf(out, "%-30s %s\n", scriptName(path), s.Name)
	}
	return nil
}

// scriptName strips directory and extension for display.
func scriptName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
