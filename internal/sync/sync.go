// Package sync pulls shared script files from a GitHub repository
// directory into a local script dir.
package sync

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"

	"github.com/automatix-sh/automatix/internal/config"
)

// contentsGetter abstracts the GitHub contents API, enabling test mocks.
type contentsGetter interface {
	GetContents(ctx context.Context, owner, repo, path string, opts *github.RepositoryContentGetOptions) (*github.RepositoryContent, []*github.RepositoryContent, *github.Response, error)
	DownloadContents(ctx context.Context, owner, repo, filepath string, opts *github.RepositoryContentGetOptions) (io.ReadCloser, *github.Response, error)
}

// Result describes one synced file.
type Result struct {
	Name    string
	Updated bool // false when the file was newly added
}

// Client syncs scripts from one repository.
type Client struct {
	contents contentsGetter
	cfg      config.SyncConfig
}

// New creates a sync client. A token enables private repositories;
// public ones work anonymously.
func New(cfg config.SyncConfig) (*Client, error) {
	if cfg.Owner == "" || cfg.Repo == "" {
		return nil, fmt.Errorf("sync: sync.owner and sync.repo must be configured")
	}
	httpClient := oauth2.NewClient(context.Background(), nil)
	if cfg.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		httpClient = oauth2.NewClient(context.Background(), ts)
	}
	gh := github.NewClient(httpClient)
	return &Client{contents: gh.Repositories, cfg: cfg}, nil
}

// newWithContents is the test constructor.
func newWithContents(cfg config.SyncConfig, contents contentsGetter) *Client {
	return &Client{contents: contents, cfg: cfg}
}

// Pull downloads every .yaml/.yml file in the configured repository path
// into destDir, returning what changed. Unchanged files are skipped.
func (c *Client) Pull(ctx context.Context, destDir string) ([]Result, error) {
	opts := &github.RepositoryContentGetOptions{Ref: c.cfg.Ref}
	_, entries, _, err := c.contents.GetContents(ctx, c.cfg.Owner, c.cfg.Repo, c.cfg.Path, opts)
	if err != nil {
		return nil, fmt.Errorf("sync: list %s/%s/%s: %w", c.cfg.Owner, c.cfg.Repo, c.cfg.Path, err)
	}
	if entries == nil {
		return nil, fmt.Errorf("sync: %s in %s/%s is not a directory", c.cfg.Path, c.cfg.Owner, c.cfg.Repo)
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("sync: create %s: %w", destDir, err)
	}

	var results []Result
	for _, entry := range entries {
		if entry.GetType() != "file" {
			continue
		}
		name := entry.GetName()
		ext := filepath.Ext(name)
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		rc, _, err := c.contents.DownloadContents(ctx, c.cfg.Owner, c.cfg.Repo, entry.GetPath(), opts)
		if err != nil {
			return results, fmt.Errorf("sync: download %s: %w", entry.GetPath(), err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return results, fmt.Errorf("sync: read %s: %w", entry.GetPath(), err)
		}

		dest := filepath.Join(destDir, name)
		existing, readErr := os.ReadFile(dest)
		if readErr == nil && strings.TrimSpace(string(existing)) == strings.TrimSpace(string(data)) {
			continue
		}
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			return results, fmt.Errorf("sync: write %s: %w", dest, err)
		}
		results = append(results, Result{Name: name, Updated: readErr == nil})
	}
	return results, nil
}
