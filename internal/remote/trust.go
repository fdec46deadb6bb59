package remote

import (
	"fmt"
	"net"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
)

// FetchHostKey connects to a host just to retrieve its public key. The
// connection is always rejected after the key is captured, so no
// authentication happens.
func FetchHostKey(host string, timeout time.Duration) (string, error) {
	addr := host
	if _, _, err := net.SplitHostPort(host); err != nil {
		addr = net.JoinHostPort(host, "22")
	}
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	var captured string
	cfg := &ssh.ClientConfig{
		User: "keyscan",
		HostKeyCallback: func(hostname string, remote net.Addr, key ssh.PublicKey) error {
			captured = strings.TrimSpace(string(ssh.MarshalAuthorizedKey(key)))
			return fmt.Errorf("key captured")
		},
		Timeout: timeout,
	}

	client, err := ssh.Dial("tcp", addr, cfg)
	if err == nil {
		client.Close()
	}
	if captured == "" {
		return "", fmt.Errorf("remote: fetch host key from %s: %w", addr, err)
	}
	return captured, nil
}

// TrustHost fetches a host's public key and records it in the store,
// returning the stored key.
func TrustHost(host string, keys HostKeyStore, timeout time.Duration) (string, error) {
	key, err := FetchHostKey(host, timeout)
	if err != nil {
		return "", err
	}
	bare := host
	if h, _, err := net.SplitHostPort(host); err == nil {
		bare = h
	}
	if err := keys.PutHostKey(bare, key); err != nil {
		return "", fmt.Errorf("remote: store host key for %s: %w", bare, err)
	}
	return key, nil
}
