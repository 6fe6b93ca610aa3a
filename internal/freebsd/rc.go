// Package freebsd configures a remote FreeBSD host over SSH: rc.conf and
// sysctl.conf settings, rc services and the pf firewall.
package freebsd

import (
	"fmt"
	"regexp"
	"strings"
)

// SSHExecutor defines the interface for executing commands via SSH
type SSHExecutor interface {
	Execute(cmd string) (string, error)
}

// SysctlConf is the file sysctl settings are persisted in
const SysctlConf = "/etc/sysctl.conf"

var rcNamePattern = regexp.MustCompile(`^[A-Za-z0-9_.]+$`)

func validName(name string) error {
	if !rcNamePattern.MatchString(name) {
		return fmt.Errorf("invalid name %q", name)
	}
	return nil
}

func quote(value string) string {
	return "'" + strings.ReplaceAll(value, "'", `'\''`) + "'"
}

// Sysrc sets an rc.conf variable
func Sysrc(conn SSHExecutor, key, value string) error {
	if err := validName(key); err != nil {
		return err
	}
	cmd := fmt.Sprintf("sudo sysrc %s", quote(key+"="+value))
	if _, err := conn.Execute(cmd); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// SysrcGet reads an rc.conf variable. An unset variable is an error.
func SysrcGet(conn SSHExecutor, key string) (string, error) {
	if err := validName(key); err != nil {
		return "", err
	}
	out, err := conn.Execute(fmt.Sprintf("sysrc -n %s", key))
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	return strings.TrimSpace(out), nil
}

// Sysctl applies a kernel setting now and persists it in /etc/sysctl.conf
func Sysctl(conn SSHExecutor, key, value string) error {
	if err := validName(key); err != nil {
		return err
	}
	if _, err := conn.Execute(fmt.Sprintf("sudo sysctl %s", quote(key+"="+value))); err != nil {
		return fmt.Errorf("failed to set sysctl %s: %w", key, err)
	}
	// sysrc edits any file in rc.conf syntax, which sysctl.conf shares
	if _, err := conn.Execute(fmt.Sprintf("sudo sysrc -f %s %s", SysctlConf, quote(key+"="+value))); err != nil {
		return fmt.Errorf("failed to persist sysctl %s: %w", key, err)
	}
	return nil
}

// EnableService sets <name>_enable=YES so the service starts on boot
func EnableService(conn SSHExecutor, name string) error {
	return Sysrc(conn, name+"_enable", "YES")
}

// StartService starts an rc service
func StartService(conn SSHExecutor, name string) error {
	return serviceCommand(conn, name, "start")
}

// ReloadService reloads an rc service
func ReloadService(conn SSHExecutor, name string) error {
	return serviceCommand(conn, name, "reload")
}

func serviceCommand(conn SSHExecutor, name, action string) error {
	if err := validName(name); err != nil {
		return err
	}
	if _, err := conn.Execute(fmt.Sprintf("sudo service %s %s", name, action)); err != nil {
		return fmt.Errorf("failed to %s service %s: %w", action, name, err)
	}
	return nil
}

// IsServiceRunning reports whether an rc service reports itself running
func IsServiceRunning(conn SSHExecutor, name string) (bool, error) {
	if err := validName(name); err != nil {
		return false, err
	}
	out, err := conn.Execute(fmt.Sprintf("sudo service %s status >/dev/null 2>&1 && echo running || echo stopped", name))
	if err != nil {
		return false, fmt.Errorf("failed to query service %s: %w", name, err)
	}
	return strings.TrimSpace(out) == "running", nil
}

// WriteFile replaces a root-owned file with content
func WriteFile(conn SSHExecutor, path, content string) error {
	cmd := fmt.Sprintf("sudo tee %s > /dev/null << 'ANVIL_EOF'\n%s\nANVIL_EOF", path, strings.TrimRight(content, "\n"))
	if _, err := conn.Execute(cmd); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
