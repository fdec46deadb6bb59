package main

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/automatix-sh/automatix/internal/config"
	"github.com/automatix-sh/automatix/internal/db"
	"github.com/automatix-sh/automatix/internal/notify"
	"github.com/automatix-sh/automatix/internal/notify/discord"
	"github.com/automatix-sh/automatix/internal/notify/slack"
	"github.com/automatix-sh/automatix/internal/remote"
	"github.com/automatix-sh/automatix/internal/runner"
)

// openStore loads the config and opens the migrated history store.
func openStore(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	gormDB, err := db.Connect(cfg.History)
	if err != nil {
		return nil, nil, err
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		return nil, nil, err
	}
	return cfg, gormDB, nil
}

// dialFunc builds the SSH dialer used for remote steps.
func dialFunc(cfg *config.Config, gormDB *gorm.DB) runner.DialFunc {
	opts := remote.Options{
		User:                  cfg.SSH.User,
		KeyFile:               cfg.SSH.KeyFile,
		ConnectTimeout:        cfg.SSH.ConnectTimeout,
		InsecureIgnoreHostKey: cfg.SSH.InsecureIgnoreHostKey,
		Keys:                  db.HostKeys{DB: gormDB},
	}
	return func(host string) (runner.RemoteExecutor, error) {
		return remote.Dial(host, opts)
	}
}

// buildNotifiers assembles the notifiers configured in cfg.Notify.
func buildNotifiers(cfg *config.Config) ([]notify.Notifier, error) {
	var notifiers []notify.Notifier
	if cfg.Notify.Command != "" {
		notifiers = append(notifiers, notify.CommandNotifier{Command: cfg.Notify.Command})
	}
	if cfg.Notify.Slack.BotToken != "" {
		n, err := slack.New(slack.Opts{
			BotToken: cfg.Notify.Slack.BotToken,
			Channel:  cfg.Notify.Slack.Channel,
		})
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, n)
	}
	if cfg.Notify.Discord.BotToken != "" {
		n, err := discord.New(discord.Opts{
			BotToken: cfg.Notify.Discord.BotToken,
			Channel:  cfg.Notify.Discord.Channel,
		})
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, n)
	}
	return notifiers, nil
}

// notifyResult fans a run result out to the configured notifiers.
func notifyResult(notifiers []notify.Notifier, res *runner.Result, batchIndex, batchTotal int) {
	if len(notifiers) == 0 || res == nil {
		return
	}
	notify.Fanout(notifiers, notify.Summary{
		RunID:      res.RunID,
		Script:     res.Script,
		Status:     res.Status,
		ExitCode:   res.ExitCode,
		Failed:     res.Failed,
		Duration:   res.Duration,
		BatchIndex: batchIndex,
		BatchTotal: batchTotal,
	})
}
