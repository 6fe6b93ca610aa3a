//go:build integration

package ssh

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startSSHServer runs an OpenSSH server that trusts kp and returns its host
// and mapped port
func startSSHServer(t *testing.T, ctx context.Context, kp *KeyPair) (string, int) {
	t.Helper()

	req := testcontainers.ContainerRequest{
		Image:        "linuxserver/openssh-server:latest",
		ExposedPorts: []string{"2222/tcp"},
		Env: map[string]string{
			"PUID":            "1000",
			"PGID":            "1000",
			"TZ":              "UTC",
			"USER_NAME":       "azureuser",
			"PUBLIC_KEY":      strings.TrimSpace(string(kp.Public)),
			"PASSWORD_ACCESS": "false",
		},
		WaitingFor: wait.ForLog("done.").WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start SSH container, is Docker running? %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "2222")
	require.NoError(t, err)

	return host, port.Int()
}

func TestConnection_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	kp, err := GenerateKeyPair("anvil-integration")
	require.NoError(t, err)
	host, port := startSSHServer(t, ctx, kp)

	auth, err := kp.AuthMethod()
	require.NoError(t, err)

	opts := DefaultConnectionOptions(host, "azureuser", auth)
	opts.Port = port

	// sshd may still be generating host keys when the log line appears
	var conn *Connection
	require.Eventually(t, func() bool {
		conn, err = Connect(opts)
		return err == nil
	}, 30*time.Second, time.Second)
	defer conn.Close()

	out, err := conn.Execute("uname -s")
	require.NoError(t, err)
	assert.Equal(t, "Linux", strings.TrimSpace(out))

	result, err := conn.Exec("echo oops >&2; exit 3")
	require.NoError(t, err)
	assert.Equal(t, 3, result.ExitCode)
	assert.Equal(t, "oops\n", result.Stderr)

	timeoutCtx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	_, err = conn.ExecContext(timeoutCtx, "sleep 10")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "interrupted")
}

func TestConnect_Integration_WrongKey(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	trusted, err := GenerateKeyPair("trusted")
	require.NoError(t, err)
	host, port := startSSHServer(t, ctx, trusted)

	other, err := GenerateKeyPair("other")
	require.NoError(t, err)
	auth, err := other.AuthMethod()
	require.NoError(t, err)

	opts := DefaultConnectionOptions(host, "azureuser", auth)
	opts.Port = port
	opts.Timeout = 10 * time.Second

	_, err = Connect(opts)
	require.Error(t, err)
}
