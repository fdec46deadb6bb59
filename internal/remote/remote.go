// Package remote executes commands and transfers files on remote systems
// over SSH, verifying host keys against the history store.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// HostKeyStore looks up and records trusted host keys. Implemented by the
// history store; a map-backed fake serves in tests.
type HostKeyStore interface {
	// GetHostKey returns the trusted key for host in authorized_keys
	// format, or "" if the host is unknown.
	GetHostKey(host string) (string, error)
	// PutHostKey records the trusted key for host, replacing any previous one.
	PutHostKey(host, publicKey string) error
}

// Options configures a remote connection.
type Options struct {
	User                  string
	KeyFile               string // private key path; agent fallback if auth fails
	ConnectTimeout        time.Duration
	InsecureIgnoreHostKey bool
	Keys                  HostKeyStore
}

// Client is an established SSH connection to one system.
type Client struct {
	addr   string
	client *ssh.Client
	sftp   *sftp.Client
}

// Dial connects to host (host[:port], default port 22) using the configured
// key file first and the ssh-agent as a fallback.
func Dial(host string, opts Options) (*Client, error) {
	addr := host
	if _, _, err := net.SplitHostPort(host); err != nil {
		addr = net.JoinHostPort(host, "22")
	}

	timeout := opts.ConnectTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey()
	if !opts.InsecureIgnoreHostKey {
		if opts.Keys == nil {
			return nil, fmt.Errorf("remote: no host key store configured (set ssh.insecure_ignore_host_key to opt out of verification)")
		}
		hostKeyCallback = storeHostKeyCallback(opts.Keys)
	}

	var authAttempts []ssh.AuthMethod
	if opts.KeyFile != "" {
		signer, err := loadSigner(opts.KeyFile)
		if err != nil {
			return nil, err
		}
		authAttempts = append(authAttempts, ssh.PublicKeys(signer))
	}
	if agentAuth := sshAgentAuth(); agentAuth != nil {
		authAttempts = append(authAttempts, agentAuth)
	}
	if len(authAttempts) == 0 {
		return nil, fmt.Errorf("remote: no authentication method available (no key file configured and no ssh agent found)")
	}

	var client *ssh.Client
	var lastErr error
	for _, auth := range authAttempts {
		cfg := &ssh.ClientConfig{
			User:            opts.User,
			Auth:            []ssh.AuthMethod{auth},
			HostKeyCallback: hostKeyCallback,
			Timeout:         timeout,
		}
		c, err := ssh.Dial("tcp", addr, cfg)
		if err == nil {
			client = c
			break
		}
		// Auth failures fall through to the next method; anything else
		// (unreachable host, key mismatch) fails fast.
		if !strings.Contains(err.Error(), "unable to authenticate") {
			return nil, fmt.Errorf("remote: connect %s: %w", addr, err)
		}
		lastErr = err
	}
	if client == nil {
		return nil, fmt.Errorf("remote: authenticate to %s: %w", addr, lastErr)
	}

	sftpClient, err := sftp.NewClient(client)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("remote: sftp session on %s: %w", addr, err)
	}

	return &Client{addr: addr, client: client, sftp: sftpClient}, nil
}

// storeHostKeyCallback verifies presented host keys against the store.
func storeHostKeyCallback(keys HostKeyStore) ssh.HostKeyCallback {
	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		host, _, err := net.SplitHostPort(hostname)
		if err != nil {
			host = hostname
		}
		presented := strings.TrimSpace(string(ssh.MarshalAuthorizedKey(key)))

		known, err := keys.GetHostKey(host)
		if err != nil {
			return fmt.Errorf("query host key store: %w", err)
		}
		if known == "" {
			return fmt.Errorf("unknown host key for %s; run 'atx trust-host %s' to add it", host, host)
		}
		if strings.TrimSpace(known) != presented {
			return fmt.Errorf("host key mismatch for %s: remote presented %s (possible man-in-the-middle)", host, presented)
		}
		return nil
	}
}

// loadSigner parses the private key at path.
func loadSigner(path string) (ssh.Signer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("remote: read key file %s: %w", path, err)
	}
	signer, err := ssh.ParsePrivateKey(data)
	if err != nil {
		return nil, fmt.Errorf("remote: parse key file %s: %w", path, err)
	}
	return signer, nil
}

// Run executes a command on the remote host, streaming stdout and stderr
// to the given writers. It returns the remote exit code. Cancellation of
// ctx sends a signal and closes the session.
func (c *Client) Run(ctx context.Context, command string, stdout, stderr io.Writer) (int, error) {
	session, err := c.client.NewSession()
	if err != nil {
		return -1, fmt.Errorf("remote: session on %s: %w", c.addr, err)
	}
	defer session.Close()

	session.Stdout = stdout
	session.Stderr = stderr

	if err := session.Start(command); err != nil {
		return -1, fmt.Errorf("remote: start on %s: %w", c.addr, err)
	}

	done := make(chan error, 1)
	go func() { done <- session.Wait() }()

	select {
	case <-ctx.Done():
		session.Signal(ssh.SIGTERM)
		session.Close()
		<-done
		return -1, ctx.Err()
	case err := <-done:
		if err == nil {
			return 0, nil
		}
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitStatus(), nil
		}
		return -1, fmt.Errorf("remote: wait on %s: %w", c.addr, err)
	}
}

// Put uploads a local file to the remote path via SFTP, creating parent
// directories as needed and preserving a private mode.
func (c *Client) Put(localPath, remotePath string) error {
	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("remote: open %s: %w", localPath, err)
	}
	defer src.Close()

	if dir := sftpDir(remotePath); dir != "" {
		_ = c.sftp.MkdirAll(dir)
	}
	dst, err := c.sftp.Create(remotePath)
	if err != nil {
		return fmt.Errorf("remote: create %s on %s: %w", remotePath, c.addr, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		_ = c.sftp.Remove(remotePath)
		return fmt.Errorf("remote: upload %s to %s: %w", localPath, c.addr, err)
	}
	return dst.Close()
}

// Get downloads a remote file to the local path via SFTP.
func (c *Client) Get(remotePath, localPath string) error {
	src, err := c.sftp.Open(remotePath)
	if err != nil {
		return fmt.Errorf("remote: open %s on %s: %w", remotePath, c.addr, err)
	}
	defer src.Close()

	dst, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("remote: create %s: %w", localPath, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("remote: download %s from %s: %w", remotePath, c.addr, err)
	}
	return dst.Close()
}

// Close closes the SFTP and SSH connections.
func (c *Client) Close() {
	if c.sftp != nil {
		c.sftp.Close()
	}
	if c.client != nil {
		c.client.Close()
	}
}

// sftpDir returns the parent directory of a remote path using forward
// slashes, or "" if there is none.
func sftpDir(p string) string {
	idx := strings.LastIndexByte(p, '/')
	if idx <= 0 {
		return ""
	}
	return p[:idx]
}
