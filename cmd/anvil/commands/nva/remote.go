package nva

import (
	"github.com/catalystcommunity/anvil/v1/internal/freebsd"
	"github.com/catalystcommunity/anvil/v1/internal/network"
	"github.com/catalystcommunity/anvil/v1/internal/ssh"
)

// Remote is an open session to the appliance
type Remote interface {
	freebsd.SSHExecutor
	network.SSHExecutor
	Close() error
}

// Dialer opens a Remote
type Dialer func(opts *ssh.ConnectionOptions) (Remote, error)

// DialSSH connects with x/crypto/ssh
func DialSSH(opts *ssh.ConnectionOptions) (Remote, error) {
	conn, err := ssh.Connect(opts)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// KeyStore keeps the generated appliance key
type KeyStore interface {
	Store(account string, key []byte) error
	Load(account string) ([]byte, error)
	Delete(account string) error
}
