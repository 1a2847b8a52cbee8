package models

// CommandKind tags a Command.
type CommandKind string

const (
	CommandNone        CommandKind = ""
	CommandStart       CommandKind = "START"
	CommandStop        CommandKind = "STOP"
	CommandReset       CommandKind = "RESET"
	CommandSetDuration CommandKind = "SET"
)

// Command is one interpreted inbound message. Duration and Fields are only
// meaningful for CommandSetDuration.
type Command struct {
	Kind     CommandKind
	Duration Counter
	Fields   FieldMask
}

// IsNoop reports whether the command carries no action.
func (c Command) IsNoop() bool { return c.Kind == CommandNone }

func StartCommand() Command { return Command{Kind: CommandStart} }
func StopCommand() Command  { return Command{Kind: CommandStop} }
func ResetCommand() Command { return Command{Kind: CommandReset} }

// SetDurationCommand overwrites all four fields.
func SetDurationCommand(days, hours, minutes, seconds int) Command {
	return Command{
		Kind:     CommandSetDuration,
		Duration: Counter{Days: days, Hours: hours, Minutes: minutes, Seconds: seconds},
		Fields:   AllFields,
	}
}
