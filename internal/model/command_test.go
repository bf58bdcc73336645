package model

import (
	"errors"
	"testing"
)

func TestEncode(t *testing.T) {
	cases := []struct {
		name string
		cmd  Command
		want string
	}{
		{"halt", Halt(2), "AH2"},
		{"arm", Arm(3), "AA3"},
		{"set", SetChannel(1, ModeWatered, 1000, 5), "S1,2,1000,5"},
		{"set fractional goal", SetChannel(4, ModeWatered, 60000, 2.5), "S4,2,60000,2.5"},
		{"raw form input is not validated", SetChannelRaw("7", "x", "", "-1"), "S7,x,,-1"},
		{"raw halt", Command{Kind: KindHalt, Channel: "abc"}, "AHabc"},
		{"zero command", Command{}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.cmd.Encode(); got != tc.want {
				t.Fatalf("Encode() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestParseCommandInvertsEncode(t *testing.T) {
	for _, cmd := range []Command{Halt(1), Arm(4), SetChannel(3, ModeTimed, 60000, 500), SetChannelRaw("2", "", "a", "b")} {
		got, err := ParseCommand(cmd.Encode())
		if err != nil {
			t.Fatalf("ParseCommand(%q): %v", cmd.Encode(), err)
		}
		if got != cmd {
			t.Fatalf("ParseCommand(%q) = %+v, want %+v", cmd.Encode(), got, cmd)
		}
	}
}

func TestParseCommandRejectsUnknownForms(t *testing.T) {
	for _, s := range []string{"", "XX1", "S1,2,3", "ah2"} {
		if _, err := ParseCommand(s); !errors.Is(err, ErrUnknownCommand) {
			t.Errorf("ParseCommand(%q) error = %v, want ErrUnknownCommand", s, err)
		}
	}
}
