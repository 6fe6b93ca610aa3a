package app

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// ConfirmFunc asks the user to approve a destructive action
type ConfirmFunc func(prompt string) (bool, error)

// NewConfirm returns a ConfirmFunc reading answers from in. Without a
// terminal, or with assumeYes, every prompt is approved.
func NewConfirm(in io.Reader, out io.Writer, assumeYes, interactive bool) ConfirmFunc {
	if assumeYes || !interactive {
		return func(string) (bool, error) { return true, nil }
	}

	reader := bufio.NewReader(in)
	return func(prompt string) (bool, error) {
		fmt.Fprintf(out, "%s [y/N]: ", prompt)
		answer, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return false, fmt.Errorf("failed to read answer: %w", err)
		}
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y", "yes":
			return true, nil
		default:
			return false, nil
		}
	}
}

// AlwaysConfirm approves every prompt
func AlwaysConfirm(string) (bool, error) {
	return true, nil
}
