package freebsd

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

const (
	// PFConfPath is where pf reads its ruleset from at boot
	PFConfPath    = "/etc/pf.conf"
	pfConfStaging = "/etc/pf.conf.anvil"
)

// PFConfig describes the NAT gateway ruleset
type PFConfig struct {
	// ExternalIF is the interface traffic leaves through
	ExternalIF string
	// InternalNets are the prefixes that get NATed behind ExternalIF
	InternalNets []string
	// SSHPort stays reachable from anywhere; 0 means 22
	SSHPort int
}

const pfTemplate = `# managed by anvil
ext_if = {{ .ExternalIF | quote }}
table <internal> const { {{ join ", " .InternalNets }} }

set skip on lo0
scrub in all

nat on $ext_if inet from <internal> to ! <internal> -> ($ext_if)

pass in quick on $ext_if inet proto tcp to ($ext_if) port {{ .SSHPort | default 22 }} keep state
pass in quick on $ext_if inet proto icmp all
pass in quick on $ext_if inet from <internal> to any keep state
block in on $ext_if inet to ($ext_if)
pass out all keep state
`

// RenderPFConf renders the pf ruleset for cfg
func RenderPFConf(cfg PFConfig) (string, error) {
	if cfg.ExternalIF == "" {
		return "", fmt.Errorf("external interface cannot be empty")
	}
	if len(cfg.InternalNets) == 0 {
		return "", fmt.Errorf("at least one internal network is required")
	}

	tmpl, err := template.New("pf.conf").Funcs(sprig.TxtFuncMap()).Parse(pfTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, cfg); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}

// ApplyPFConf stages content, validates it with pfctl -n, installs it as
// /etc/pf.conf and loads it. An invalid ruleset never replaces the
// installed one.
func ApplyPFConf(conn SSHExecutor, content string) error {
	if err := WriteFile(conn, pfConfStaging, content); err != nil {
		return err
	}

	if _, err := conn.Execute(fmt.Sprintf("sudo pfctl -nf %s", pfConfStaging)); err != nil {
		return fmt.Errorf("pf ruleset failed validation: %w", err)
	}

	if _, err := conn.Execute(fmt.Sprintf("sudo mv %s %s", pfConfStaging, PFConfPath)); err != nil {
		return fmt.Errorf("failed to install %s: %w", PFConfPath, err)
	}

	if _, err := conn.Execute(fmt.Sprintf("sudo pfctl -f %s", PFConfPath)); err != nil {
		return fmt.Errorf("failed to load pf ruleset: %w", err)
	}

	return nil
}

// PFStatus is a summary of pfctl -s info
type PFStatus struct {
	Enabled bool
	States  int
}

// GetPFStatus queries whether pf is enabled and how many states it tracks
func GetPFStatus(conn SSHExecutor) (*PFStatus, error) {
	out, err := conn.Execute("sudo pfctl -s info")
	if err != nil {
		return nil, fmt.Errorf("failed to query pf: %w", err)
	}

	status := &PFStatus{}
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		switch {
		case len(fields) >= 2 && fields[0] == "Status:":
			status.Enabled = fields[1] == "Enabled"
		case len(fields) >= 3 && fields[0] == "current" && fields[1] == "entries":
			fmt.Sscanf(fields[2], "%d", &status.States)
		}
	}
	return status, nil
}

// NATRules returns the loaded NAT rules as printed by pfctl -s nat
func NATRules(conn SSHExecutor) ([]string, error) {
	out, err := conn.Execute("sudo pfctl -s nat")
	if err != nil {
		return nil, fmt.Errorf("failed to list NAT rules: %w", err)
	}

	var rules []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			rules = append(rules, line)
		}
	}
	return rules, nil
}
