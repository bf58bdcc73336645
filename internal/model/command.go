package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// CommandKind identifies one of the three directives the controller understands.
type CommandKind int

const (
	KindHalt CommandKind = iota + 1
	KindArm
	KindSetChannel
)

func (k CommandKind) String() string {
	switch k {
	case KindHalt:
		return "halt"
	case KindArm:
		return "arm"
	case KindSetChannel:
		return "set"
	default:
		return "unknown"
	}
}

// Command is a user intent addressed to the controller.
// Fields are kept as text: whatever the user typed is sent verbatim, nothing is validated or escaped.
type Command struct {
	Kind      CommandKind
	Channel   string
	Mode      string
	Frequency string
	Goal      string
}

var ErrUnknownCommand = errors.New("unknown command")

func Halt(channel int) Command {
	return Command{Kind: KindHalt, Channel: strconv.Itoa(channel)}
}

func Arm(channel int) Command {
	return Command{Kind: KindArm, Channel: strconv.Itoa(channel)}
}

func SetChannel(channel int, mode Mode, frequency, goal float64) Command {
	return Command{
		Kind:      KindSetChannel,
		Channel:   strconv.Itoa(channel),
		Mode:      strconv.Itoa(int(mode)),
		Frequency: FormatNumber(frequency),
		Goal:      FormatNumber(goal),
	}
}

// SetChannelRaw builds a settings command straight from form input.
func SetChannelRaw(channel, mode, frequency, goal string) Command {
	return Command{Kind: KindSetChannel, Channel: channel, Mode: mode, Frequency: frequency, Goal: goal}
}

// Encode produces the wire string sent as the cmd parameter:
//
//	AH<chan>                          halt
//	AA<chan>                          arm
//	S<chan>,<mode>,<frequency>,<goal> set channel
func (c Command) Encode() string {
	switch c.Kind {
	case KindHalt:
		return "AH" + c.Channel
	case KindArm:
		return "AA" + c.Channel
	case KindSetChannel:
		return "S" + c.Channel + "," + c.Mode + "," + c.Frequency + "," + c.Goal
	default:
		return ""
	}
}

func (c Command) String() string {
	return c.Encode()
}

// ParseCommand recognises one of the three wire forms. Fields are returned verbatim,
// so S1,x,,5 parses fine; it is up to the receiver to make sense of them.
func ParseCommand(s string) (Command, error) {
	switch {
	case strings.HasPrefix(s, "AH"):
		return Command{Kind: KindHalt, Channel: s[2:]}, nil
	case strings.HasPrefix(s, "AA"):
		return Command{Kind: KindArm, Channel: s[2:]}, nil
	case strings.HasPrefix(s, "S"):
		parts := strings.SplitN(s[1:], ",", 4)
		if len(parts) != 4 {
			return Command{}, fmt.Errorf("%w: %q: set needs 4 fields, got %d", ErrUnknownCommand, s, len(parts))
		}
		return SetChannelRaw(parts[0], parts[1], parts[2], parts[3]), nil
	default:
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, s)
	}
}
