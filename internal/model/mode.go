package model

// Mode is the operating policy of a channel, as coded on the wire.
type Mode int

const (
	ModeUnknown Mode = -1
	ModeManual  Mode = 0
	ModeTimed   Mode = 1
	ModeWatered Mode = 2
)

// Label is the display name of the mode; empty for modes the dashboard does not know.
func (m Mode) Label() string {
	switch m {
	case ModeManual:
		return "Manual"
	case ModeTimed:
		return "Timed"
	case ModeWatered:
		return "Watered"
	default:
		return ""
	}
}

// GoalUnit is the unit the channel goal is expressed in under this mode.
func (m Mode) GoalUnit() string {
	switch m {
	case ModeTimed:
		return "ms"
	case ModeWatered:
		return "L"
	default:
		return ""
	}
}

func (m Mode) Known() bool {
	return m.Label() != ""
}

// ModeOf only accepts integral numbers, so "1" (a string), true or 1.5 are unknown modes.
func ModeOf(v Value) Mode {
	if _, isBool := v.raw.(bool); isBool {
		return ModeUnknown
	}
	f, ok := v.Float64()
	if !ok || f != float64(int(f)) {
		return ModeUnknown
	}
	return Mode(int(f))
}
