package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/automatix-sh/automatix/internal/config"
	"github.com/automatix-sh/automatix/internal/db"
	"github.com/automatix-sh/automatix/internal/remote"
)

func newTrustHostCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "trust-host <host>",
		Short: "Fetch and store a host's SSH key",
		Long:  "Connects to the host, records its public key in the history store, and trusts it for future remote steps. Verify the fingerprint out of band before trusting production hosts.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrustHost(cmd, configPath, args[0])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath(), "path to Automatix config file")
	return cmd
}

func runTrustHost(cmd *cobra.Command, configPath, host string) error {
	cfg, gormDB, err := openStore(configPath)
	if err != nil {
		return err
	}

	key, err := remote.TrustHost(host, db.HostKeys{DB: gormDB}, cfg.SSH.ConnectTimeout)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Trusted %s: %s\n", host, key)
	return nil
}
