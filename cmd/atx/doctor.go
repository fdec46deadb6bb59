package main

import (
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/automatix-sh/automatix/internal/config"
	"github.com/automatix-sh/automatix/internal/db"
	"github.com/automatix-sh/automatix/internal/script"
)

func newDoctorCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check system prerequisites and configuration",
		Long:  "Runs diagnostic checks on Automatix prerequisites: config, script directories, history store, SSH credentials, and notifier settings.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath(), "path to Automatix config file")
	return cmd
}

type checkResult struct {
	name   string
	status string // "PASS", "FAIL", "WARN"
	detail string
}

func runDoctor(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Automatix Doctor")
	fmt.Fprintln(out, "================")

	var results []checkResult

	// 1. Config
	cfg, cfgResult := checkConfig(configPath)
	results = append(results, cfgResult)

	// 2. Script dirs
	if cfg != nil {
		results = append(results, checkScriptDirs(cfg))
	} else {
		results = append(results, checkResult{"Script dirs", "FAIL", "skipped (no config)"})
	}

	// 3. History store
	if cfg != nil {
		results = append(results, checkHistoryStore(cfg))
	} else {
		results = append(results, checkResult{"History store", "FAIL", "skipped (no config)"})
	}

	// 4. SSH credentials
	if cfg != nil {
		results = append(results, checkSSHKey(cfg))
	} else {
		results = append(results, checkResult{"SSH key", "FAIL", "skipped (no config)"})
	}
	results = append(results, checkSSHAgent())

	// 5. Notifiers
	if cfg != nil {
		results = append(results, checkNotifiers(cfg))
	}

	// 6. Shell
	results = append(results, checkShell())

	passed, failed, warned := 0, 0, 0
	for _, r := range results {
		printCheckResult(out, r)
		switch r.status {
		case "PASS":
			passed++
		case "FAIL":
			failed++
		case "WARN":
			warned++
		}
	}

	fmt.Fprintf(out, "\n%d passed, %d failed, %d warning\n", passed, failed, warned)

	if failed > 0 {
		return fmt.Errorf("%d check(s) failed", failed)
	}
	return nil
}

func printCheckResult(out io.Writer, r checkResult) {
	marker := map[string]string{"PASS": "✓", "FAIL": "✗", "WARN": "!"}[r.status]
	fmt.Fprintf(out, "%s %-22s %s\n", marker, r.name, r.detail)
}

func checkConfig(configPath string) (*config.Config, checkResult) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg, _ := config.LoadOrDefault(configPath)
		return cfg, checkResult{"Config", "WARN", fmt.Sprintf("%s not found, using defaults", configPath)}
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, checkResult{"Config", "FAIL", err.Error()}
	}
	return cfg, checkResult{"Config", "PASS", configPath}
}

func checkScriptDirs(cfg *config.Config) checkResult {
	paths, err := script.List(cfg.ScriptDirs)
	if err != nil {
		return checkResult{"Script dirs", "FAIL", err.Error()}
	}
	if len(paths) == 0 {
		return checkResult{"Script dirs", "WARN", "no scripts found"}
	}
	return checkResult{"Script dirs", "PASS", fmt.Sprintf("%d script(s) found", len(paths))}
}

func checkHistoryStore(cfg *config.Config) checkResult {
	gormDB, err := db.Connect(cfg.History)
	if err != nil {
		return checkResult{"History store", "FAIL", err.Error()}
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return checkResult{"History store", "FAIL", fmt.Sprintf("get sql.DB: %v", err)}
	}
	if err := sqlDB.Ping(); err != nil {
		return checkResult{"History store", "FAIL", fmt.Sprintf("ping failed: %v", err)}
	}
	return checkResult{"History store", "PASS", fmt.Sprintf("%s reachable", cfg.History.Driver)}
}

func checkSSHKey(cfg *config.Config) checkResult {
	if cfg.SSH.KeyFile == "" {
		return checkResult{"SSH key", "WARN", "ssh.key_file not set, agent auth only"}
	}
	if _, err := os.Stat(cfg.SSH.KeyFile); err != nil {
		return checkResult{"SSH key", "FAIL", fmt.Sprintf("%s: %v", cfg.SSH.KeyFile, err)}
	}
	return checkResult{"SSH key", "PASS", cfg.SSH.KeyFile}
}

func checkSSHAgent() checkResult {
	if os.Getenv("SSH_AUTH_SOCK") == "" {
		return checkResult{"SSH agent", "WARN", "SSH_AUTH_SOCK not set"}
	}
	return checkResult{"SSH agent", "PASS", "agent socket available"}
}

func checkNotifiers(cfg *config.Config) checkResult {
	n := 0
	if cfg.Notify.Command != "" {
		n++
	}
	if cfg.Notify.Slack.BotToken != "" {
		n++
	}
	if cfg.Notify.Discord.BotToken != "" {
		n++
	}
	if n == 0 {
		return checkResult{"Notifiers", "WARN", "none configured"}
	}
	return checkResult{"Notifiers", "PASS", fmt.Sprintf("%d configured", n)}
}

func checkShell() checkResult {
	if _, err := exec.LookPath("sh"); err != nil {
		return checkResult{"Shell", "FAIL", "sh not found in PATH"}
	}
	return checkResult{"Shell", "PASS", "sh available"}
}
