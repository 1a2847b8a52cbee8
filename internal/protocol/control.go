// Package protocol interprets the text messages exchanged between the nodes:
// fixed control phrases on the serial link and structured duration phrases
// coming from the remote web UI.
package protocol

import (
	"fmt"

	"elapsed_timer/internal/models"
)

// Control phrases sent by the master node.
const (
	StartPhrase = "Power on - start counting"
	StopPhrase  = "Power off - stop counting time"
	ResetPhrase = "RESET"
)

// ResetSentinel is the remote UI's reset request.
const ResetSentinel = "Reset"

// ParseControl maps an exact control phrase to its command.
// Anything else yields a no-op command.
func ParseControl(msg string) models.Command {
	switch msg {
	case StartPhrase:
		return models.StartCommand()
	case StopPhrase:
		return models.StopCommand()
	case ResetPhrase:
		return models.ResetCommand()
	default:
		return models.Command{}
	}
}

// ControlPhrase is the inverse of ParseControl.
func ControlPhrase(kind models.CommandKind) (string, bool) {
	switch kind {
	case models.CommandStart:
		return StartPhrase, true
	case models.CommandStop:
		return StopPhrase, true
	case models.CommandReset:
		return ResetPhrase, true
	default:
		return "", false
	}
}

// FormatStatus renders the plain-text status line served over HTTP.
func FormatStatus(c models.Counter) string {
	return fmt.Sprintf("Timer: %d days %d hours %d minutes %d seconds", c.Days, c.Hours, c.Minutes, c.Seconds)
}
