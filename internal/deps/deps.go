// Package deps implements the check-deps action: it reports every external
// tool a script needs and fails when a required one is missing or too old.
package deps

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/Masterminds/semver/v3"
	"github.com/fatih/color"
	"github.com/hashicorp/go-multierror"

	"github.com/catalystcommunity/anvil/v1/internal/azure"
	"github.com/catalystcommunity/anvil/v1/internal/shell"
)

var (
	// ErrMissingDependency marks a required tool that is absent or unusable
	ErrMissingDependency = errors.New("missing dependency")
	// ErrVersionTooOld marks an installed version below the minimum
	ErrVersionTooOld = errors.New("version too old")
)

// status labels, padded to statusWidth before colouring
const (
	statusOK       = "OK"
	statusNotFound = "NOT FOUND"
	statusTooOld   = "TOO OLD"
	statusUnknown  = "UNKNOWN VERSION"
	statusWidth    = len(statusUnknown)
)

// Tool is an external program a script invokes
type Tool struct {
	Name     string
	Required bool
}

// Common tool sets
var (
	Az      = Tool{Name: azure.Tool, Required: true}
	Kubectl = Tool{Name: "kubectl"}
	SSH     = Tool{Name: "ssh"}
)

// Checker resolves tools on PATH and prints a report
type Checker struct {
	runner       shell.Runner
	minAzVersion string
	out          io.Writer
}

// NewChecker creates a Checker that enforces minAzVersion for az
func NewChecker(runner shell.Runner, minAzVersion string, out io.Writer) *Checker {
	return &Checker{runner: runner, minAzVersion: minAzVersion, out: out}
}

// Check prints one line per tool and returns an error wrapping
// ErrMissingDependency for every required tool that failed
func (c *Checker) Check(ctx context.Context, tools ...Tool) error {
	ok := color.New(color.FgGreen).SprintFunc()
	bad := color.New(color.FgRed).SprintFunc()
	warn := color.New(color.FgYellow).SprintFunc()

	// only the tool name is a tabwriter cell; status and detail share the
	// trailing cell, which tabwriter does not measure
	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	line := func(name string, paint func(a ...interface{}) string, label, detail string) {
		fmt.Fprintf(w, "%s\t%s  %s\n", name, paint(fmt.Sprintf("%-*s", statusWidth, label)), detail)
	}
	fmt.Fprintf(w, "TOOL\t%-*s  DETAIL\n", statusWidth, "STATUS")

	var result *multierror.Error
	for _, tool := range tools {
		path, err := c.runner.LookPath(tool.Name)
		if err != nil {
			if tool.Required {
				line(tool.Name, bad, statusNotFound, "required")
				result = multierror.Append(result, fmt.Errorf("%s: %w", tool.Name, ErrMissingDependency))
			} else {
				line(tool.Name, warn, statusNotFound, "optional")
			}
			continue
		}

		detail := path
		if tool.Name == azure.Tool {
			version, verr := c.checkAzVersion(ctx)
			if verr != nil {
				label := statusUnknown
				if errors.Is(verr, ErrVersionTooOld) {
					label = statusTooOld
				}
				line(tool.Name, bad, label, fmt.Sprintf("%s (%v)", path, verr))
				result = multierror.Append(result, verr)
				continue
			}
			detail = fmt.Sprintf("%s (%s)", path, version)
		}
		line(tool.Name, ok, statusOK, detail)
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write dependency report: %w", err)
	}
	return result.ErrorOrNil()
}

// checkAzVersion compares the installed azure-cli against the minimum. The
// returned error never wraps the az exit status, so a broken az still
// exits 1 like any other missing dependency.
func (c *Checker) checkAzVersion(ctx context.Context) (string, error) {
	installed, err := azure.NewClient(c.runner, "").Version(ctx)
	if err != nil {
		return "", fmt.Errorf("az: %w: cannot determine version: %v", ErrMissingDependency, err)
	}
	if err := CompareVersions(installed, c.minAzVersion); err != nil {
		if errors.Is(err, ErrVersionTooOld) {
			return installed, fmt.Errorf("az: %w: %w", ErrMissingDependency, err)
		}
		return installed, fmt.Errorf("az: %w: %v", ErrMissingDependency, err)
	}
	return installed, nil
}

// CompareVersions returns an error when either version cannot be parsed,
// and one wrapping ErrVersionTooOld when installed is older than minimum
func CompareVersions(installed, minimum string) error {
	have, err := semver.NewVersion(installed)
	if err != nil {
		return fmt.Errorf("unparseable version %q: %w", installed, err)
	}
	want, err := semver.NewVersion(minimum)
	if err != nil {
		return fmt.Errorf("unparseable minimum version %q: %w", minimum, err)
	}
	if have.LessThan(want) {
		return fmt.Errorf("%w: %s is older than required %s", ErrVersionTooOld, have, want)
	}
	return nil
}
