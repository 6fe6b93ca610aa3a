package ssh

import (
	"fmt"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Dialer opens a connection; Connect is the production implementation
type Dialer func(opts *ConnectionOptions) (*Connection, error)

// Connect establishes an SSH connection to a remote host
func Connect(opts *ConnectionOptions) (*Connection, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid connection options: %w", err)
	}

	hostKeyCallback, err := hostKeyCallback(opts)
	if err != nil {
		return nil, err
	}

	config := &ssh.ClientConfig{
		User:            opts.User,
		Auth:            []ssh.AuthMethod{opts.AuthMethod},
		HostKeyCallback: hostKeyCallback,
		Timeout:         opts.Timeout,
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}

	client, err := ssh.Dial("tcp", opts.Address(), config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", opts.Address(), err)
	}

	return &Connection{
		Host:   opts.Host,
		Port:   opts.Port,
		User:   opts.User,
		client: client,
	}, nil
}

// hostKeyCallback verifies against known_hosts when configured. Freshly
// provisioned appliances have no recorded key yet, so the fallback accepts
// any host key.
func hostKeyCallback(opts *ConnectionOptions) (ssh.HostKeyCallback, error) {
	if opts.KnownHostsFile == "" {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	callback, err := knownhosts.New(opts.KnownHostsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load known hosts %s: %w", opts.KnownHostsFile, err)
	}
	return callback, nil
}

// Close closes the SSH connection
func (c *Connection) Close() error {
	if c.client == nil {
		return fmt.Errorf("connection is not established")
	}
	return c.client.Close()
}
