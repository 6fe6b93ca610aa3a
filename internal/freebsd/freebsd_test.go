package freebsd

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockSSHExecutor implements SSHExecutor for testing
type mockSSHExecutor struct {
	commands  []string
	responses map[string]string
	errors    map[string]error
}

func newMockSSHExecutor() *mockSSHExecutor {
	return &mockSSHExecutor{
		responses: make(map[string]string),
		errors:    make(map[string]error),
	}
}

func (m *mockSSHExecutor) Execute(cmd string) (string, error) {
	m.commands = append(m.commands, cmd)

	for pattern, err := range m.errors {
		if strings.HasPrefix(cmd, pattern) {
			return "", err
		}
	}

	for pattern, resp := range m.responses {
		if strings.HasPrefix(cmd, pattern) {
			return resp, nil
		}
	}

	return "", nil
}

func TestSysrc(t *testing.T) {
	conn := newMockSSHExecutor()

	require.NoError(t, Sysrc(conn, "gateway_enable", "YES"))
	assert.Equal(t, []string{"sudo sysrc 'gateway_enable=YES'"}, conn.commands)

	err := Sysrc(conn, "bad; rm -rf /", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid name")
	assert.Len(t, conn.commands, 1)
}

func TestSysrc_QuotesValue(t *testing.T) {
	conn := newMockSSHExecutor()
	require.NoError(t, Sysrc(conn, "ifconfig_hn0", "DHCP it's"))
	assert.Equal(t, `sudo sysrc 'ifconfig_hn0=DHCP it'\''s'`, conn.commands[0])
}

func TestSysrcGet(t *testing.T) {
	conn := newMockSSHExecutor()
	conn.responses["sysrc -n pf_enable"] = "YES\n"

	value, err := SysrcGet(conn, "pf_enable")
	require.NoError(t, err)
	assert.Equal(t, "YES", value)
}

func TestSysctl(t *testing.T) {
	conn := newMockSSHExecutor()

	require.NoError(t, Sysctl(conn, "net.inet.ip.forwarding", "1"))
	assert.Equal(t, []string{
		"sudo sysctl 'net.inet.ip.forwarding=1'",
		"sudo sysrc -f /etc/sysctl.conf 'net.inet.ip.forwarding=1'",
	}, conn.commands)
}

func TestSysctl_Error(t *testing.T) {
	conn := newMockSSHExecutor()
	conn.errors["sudo sysctl"] = fmt.Errorf("unknown oid")

	err := Sysctl(conn, "net.inet.ip.nope", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to set sysctl net.inet.ip.nope")
	assert.Len(t, conn.commands, 1, "nothing is persisted when the live change fails")
}

func TestServices(t *testing.T) {
	conn := newMockSSHExecutor()

	require.NoError(t, EnableService(conn, "pf"))
	require.NoError(t, StartService(conn, "pf"))
	require.NoError(t, ReloadService(conn, "pf"))

	assert.Equal(t, []string{
		"sudo sysrc 'pf_enable=YES'",
		"sudo service pf start",
		"sudo service pf reload",
	}, conn.commands)
}

func TestServiceError(t *testing.T) {
	conn := newMockSSHExecutor()
	conn.errors["sudo service pf start"] = fmt.Errorf("exit 1")

	err := StartService(conn, "pf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start service pf")
}

func TestIsServiceRunning(t *testing.T) {
	conn := newMockSSHExecutor()
	conn.responses["sudo service pf status"] = "running\n"
	conn.responses["sudo service pflog status"] = "stopped\n"

	running, err := IsServiceRunning(conn, "pf")
	require.NoError(t, err)
	assert.True(t, running)

	running, err = IsServiceRunning(conn, "pflog")
	require.NoError(t, err)
	assert.False(t, running)
}

func TestWriteFile(t *testing.T) {
	conn := newMockSSHExecutor()
	require.NoError(t, WriteFile(conn, "/etc/motd", "hello\n\n"))
	assert.Equal(t, "sudo tee /etc/motd > /dev/null << 'ANVIL_EOF'\nhello\nANVIL_EOF", conn.commands[0])
}
