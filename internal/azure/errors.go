package azure

import (
	"strings"

	"github.com/catalystcommunity/anvil/v1/internal/shell"
)

var notFoundMarkers = []string{
	"ResourceNotFound",
	"ResourceGroupNotFound",
	"(NotFound)",
	"was not found",
	"could not be found",
}

// IsNotFound reports whether err is an az failure caused by a missing resource
func IsNotFound(err error) bool {
	exitErr, ok := shell.AsExitError(err)
	if !ok {
		return false
	}
	for _, marker := range notFoundMarkers {
		if strings.Contains(exitErr.Stderr, marker) {
			return true
		}
	}
	return false
}
