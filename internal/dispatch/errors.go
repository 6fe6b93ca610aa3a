package dispatch

import (
	"errors"
	"fmt"

	"github.com/catalystcommunity/anvil/v1/internal/shell"
)

// ErrNotFound marks a target resource that does not exist
var ErrNotFound = errors.New("not found")

// UsageError reports a missing or unsupported selector
type UsageError struct {
	Reason string
}

func (e *UsageError) Error() string {
	return "usage error: " + e.Reason
}

// NotFound builds an ErrNotFound error for a named resource, e.g.
// "virtual network anvil-vnet not found"
func NotFound(kind, name string) error {
	return fmt.Errorf("%s %s %w", kind, name, ErrNotFound)
}

// IsUsage reports whether err is a usage error
func IsUsage(err error) bool {
	var usageErr *UsageError
	return errors.As(err, &usageErr)
}

// ExitStatus maps an error returned by a handler to a process exit status.
// External tool failures propagate the tool's own exit code.
func ExitStatus(err error) int {
	if err == nil {
		return 0
	}
	if IsUsage(err) || errors.Is(err, ErrNotFound) {
		return 1
	}
	if exitErr, ok := shell.AsExitError(err); ok && exitErr.Code > 0 {
		return exitErr.Code
	}
	return 1
}
