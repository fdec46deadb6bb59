package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/automatix-sh/automatix/internal/config"
	"github.com/automatix-sh/automatix/internal/sync"
)

func newSyncCmd() *cobra.Command {
	var (
		configPath string
		destDir    string
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Pull shared scripts from a GitHub repository",
		Long:  "Downloads script files from the configured GitHub repository path into the first script directory. Unchanged files are left alone.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, configPath, destDir)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath(), "path to Automatix config file")
	cmd.Flags().StringVar(&destDir, "dest", "", "destination directory (default: first configured script dir)")
	return cmd
}

func runSync(cmd *cobra.Command, configPath, destDir string) error {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if destDir == "" {
		if len(cfg.ScriptDirs) == 0 {
			return fmt.Errorf("no script directories configured")
		}
		destDir = cfg.ScriptDirs[0]
	}

	client, err := sync.New(cfg.Sync)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Syncing %s/%s/%s into %s\n", cfg.Sync.Owner, cfg.Sync.Repo, cfg.Sync.Path, destDir)

	results, err := client.Pull(context.Background(), destDir)
	if err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Fprintln(out, "Everything up to date.")
		return nil
	}
	for _, res := range results {
		verb := "added"
		if res.Updated {
			verb = "updated"
		}
		fmt.Fprintf(out, "  %s %s\n", verb, res.Name)
	}
	fmt.Fprintf(out, "%d file(s) synced.\n", len(results))
	return nil
}
