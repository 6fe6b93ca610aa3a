package ssh

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"golang.org/x/crypto/ssh"
)

// DefaultTimeout bounds connection establishment when none is configured
const DefaultTimeout = 30 * time.Second

// Connection represents an active SSH connection to a remote host
type Connection struct {
	Host   string
	Port   int
	User   string
	client *ssh.Client
}

// KeyPair represents an SSH public/private key pair
type KeyPair struct {
	Private []byte // OpenSSH PEM
	Public  []byte // authorized_keys line
}

// ConnectionOptions contains options for establishing an SSH connection
type ConnectionOptions struct {
	Host       string
	Port       int
	User       string
	AuthMethod ssh.AuthMethod
	Timeout    time.Duration

	// KnownHostsFile enables host key verification against an OpenSSH
	// known_hosts file. Empty accepts any host key.
	KnownHostsFile string
}

// Validate validates the ConnectionOptions
func (opts *ConnectionOptions) Validate() error {
	if opts.Host == "" {
		return fmt.Errorf("host cannot be empty")
	}
	if opts.Port <= 0 || opts.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", opts.Port)
	}
	if opts.User == "" {
		return fmt.Errorf("user cannot be empty")
	}
	if opts.AuthMethod == nil {
		return fmt.Errorf("auth method cannot be nil")
	}
	if opts.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative")
	}
	return nil
}

// Address returns the host:port address string
func (opts *ConnectionOptions) Address() string {
	return net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port))
}

// DefaultConnectionOptions returns ConnectionOptions for port 22 with the default timeout
func DefaultConnectionOptions(host, user string, auth ssh.AuthMethod) *ConnectionOptions {
	return &ConnectionOptions{
		Host:       host,
		Port:       22,
		User:       user,
		AuthMethod: auth,
		Timeout:    DefaultTimeout,
	}
}
