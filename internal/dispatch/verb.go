package dispatch

import (
	"fmt"
	"strings"
)

// Verb selects one administrative action of a script
type Verb int

const (
	// VerbInstall creates the script's resources
	VerbInstall Verb = iota + 1
	// VerbDelete removes the script's resources
	VerbDelete
	// VerbShow prints the current state of the script's resources
	VerbShow
	// VerbCheckDeps verifies the external tools the script needs
	VerbCheckDeps
	// VerbConfigure applies configuration to already provisioned resources
	VerbConfigure
	// VerbCredentials fetches access credentials for the provisioned resources
	VerbCredentials
)

var verbNames = map[Verb]string{
	VerbInstall:     "install",
	VerbDelete:      "delete",
	VerbShow:        "show",
	VerbCheckDeps:   "check-deps",
	VerbConfigure:   "configure",
	VerbCredentials: "credentials",
}

// String returns the verb as typed on the command line
func (v Verb) String() string {
	if name, ok := verbNames[v]; ok {
		return name
	}
	return fmt.Sprintf("Verb(%d)", int(v))
}

// Verbs returns every known verb in declaration order
func Verbs() []Verb {
	return []Verb{VerbInstall, VerbDelete, VerbShow, VerbCheckDeps, VerbConfigure, VerbCredentials}
}

// ParseVerb converts a selector string to a Verb
func ParseVerb(s string) (Verb, error) {
	selector := strings.TrimSpace(s)
	if selector == "" {
		return 0, &UsageError{Reason: "no action given"}
	}
	for _, v := range Verbs() {
		if verbNames[v] == selector {
			return v, nil
		}
	}
	return 0, &UsageError{Reason: fmt.Sprintf("unknown action %q", selector)}
}
