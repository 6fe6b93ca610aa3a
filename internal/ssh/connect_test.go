package ssh

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

func TestConnect_ValidationErrors(t *testing.T) {
	_, err := Connect(&ConnectionOptions{Port: 22, User: "test", AuthMethod: ssh.Password("test")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid connection options")
	assert.Contains(t, err.Error(), "host cannot be empty")
}

func TestConnect_ConnectionRefused(t *testing.T) {
	opts := &ConnectionOptions{
		Host:       "127.0.0.1",
		Port:       1,
		User:       "test",
		AuthMethod: ssh.Password("test"),
		Timeout:    time.Second,
	}

	_, err := Connect(opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect")
}

func TestConnect_MissingKnownHosts(t *testing.T) {
	opts := DefaultConnectionOptions("127.0.0.1", "test", ssh.Password("test"))
	opts.KnownHostsFile = filepath.Join(t.TempDir(), "missing")

	_, err := Connect(opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load known hosts")
}

func TestHostKeyCallback(t *testing.T) {
	t.Run("insecure without known hosts", func(t *testing.T) {
		cb, err := hostKeyCallback(&ConnectionOptions{})
		require.NoError(t, err)
		assert.NotNil(t, cb)
	})

	t.Run("known hosts file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "known_hosts")
		require.NoError(t, os.WriteFile(path, nil, 0600))

		cb, err := hostKeyCallback(&ConnectionOptions{KnownHostsFile: path})
		require.NoError(t, err)
		assert.NotNil(t, cb)
	})
}

func TestConnection_NotEstablished(t *testing.T) {
	conn := &Connection{Host: "example.com", Port: 22, User: "test"}

	err := conn.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection is not established")
}
