package model

import (
	"encoding/json"
	"math"
	"testing"
)

func TestDecodeSnapshot(t *testing.T) {
	body := `{
		"temp": 21.5,
		"moisture": 512,
		"water": 3.25,
		"uptime": 99,
		"ch1": {"mode": 1, "frequency": 60000, "goal": 500, "status": true, "extra": "x"},
		"ch3": {"goal": 3},
		"ch4": 7
	}`
	s, err := DecodeSnapshot([]byte(body))
	if err != nil {
		t.Fatalf("DecodeSnapshot: %v", err)
	}

	if s.Temperature == nil || s.Temperature.String() != "21.5" {
		t.Fatalf("temperature = %v", s.Temperature)
	}
	if s.Moisture.String() != "512" || s.Water.String() != "3.25" {
		t.Fatalf("moisture/water = %v/%v", s.Moisture, s.Water)
	}

	ch1 := s.Channel(1)
	if ch1 == nil {
		t.Fatal("ch1 missing")
	}
	if m, ok := ch1.ParsedMode(); !ok || m != ModeTimed {
		t.Fatalf("ch1 mode = %v, %v", m, ok)
	}
	if ch1.GoalUnit() != "ms" || !ch1.Status.Truthy() {
		t.Fatalf("ch1 unit=%q status=%v", ch1.GoalUnit(), ch1.Status)
	}

	if s.Channel(2) != nil {
		t.Fatal("ch2 should be absent")
	}
	if ch3 := s.Channel(3); ch3 == nil || ch3.Mode != nil || ch3.GoalUnit() != "" {
		t.Fatalf("ch3 = %+v", ch3)
	}
	if s.Channel(4) != nil {
		t.Fatal("a non-object channel group carries nothing")
	}
}

func TestDecodeSnapshotRejectsNonObjects(t *testing.T) {
	for _, body := range []string{"", "null", "[1,2]", "{\"temp\":", "42"} {
		if _, err := DecodeSnapshot([]byte(body)); err == nil {
			t.Errorf("DecodeSnapshot(%q) expected error", body)
		}
	}
}

func TestModeOf(t *testing.T) {
	cases := []struct {
		raw  string
		want Mode
	}{
		{"0", ModeManual},
		{"1", ModeTimed},
		{"2", ModeWatered},
		{"2.0", ModeWatered},
		{"9", Mode(9)},
		{"1.5", ModeUnknown},
		{`"1"`, ModeUnknown},
		{"true", ModeUnknown},
		{"null", ModeUnknown},
	}
	for _, tc := range cases {
		v := decodeValue(json.RawMessage(tc.raw))
		if v == nil {
			t.Fatalf("decodeValue(%s) = nil", tc.raw)
		}
		got := ModeOf(*v)
		if got != tc.want {
			t.Errorf("ModeOf(%s) = %d, want %d", tc.raw, got, tc.want)
		}
	}
	if Mode(9).Label() != "" || Mode(9).GoalUnit() != "" || Mode(9).Known() {
		t.Fatal("unknown mode must have empty label and unit")
	}
}

func TestValueString(t *testing.T) {
	cases := map[string]string{
		"1000":    "1000",
		"1e3":     "1000",
		"0.50":    "0.5",
		"-3":      "-3",
		`"wet"`:   "wet",
		"true":    "true",
		"null":    "null",
		`{"a":1}`: `{"a":1}`,
		"-0":      "0",
		"1e-7":    "1e-7",
		"0.00001": "0.00001",
	}
	for raw, want := range cases {
		if got := decodeValue(json.RawMessage(raw)).String(); got != want {
			t.Errorf("Value(%s).String() = %q, want %q", raw, got, want)
		}
	}
}

func TestFormatNumber(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{500, "500"},
		{0.5, "0.5"},
		{math.Copysign(0, -1), "0"},
		{0.000001, "0.000001"},
		{0.0000001, "1e-7"},
		{-1.5e-7, "-1.5e-7"},
		{1e20, "100000000000000000000"},
		{1e21, "1e+21"},
		{1.5e300, "1.5e+300"},
		{math.Inf(1), "Infinity"},
		{math.NaN(), "NaN"},
	}
	for _, tc := range cases {
		if got := FormatNumber(tc.in); got != tc.want {
			t.Errorf("FormatNumber(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestValueTruthy(t *testing.T) {
	cases := map[string]bool{
		"true": true, "false": false, "1": true, "0": false,
		`""`: false, `"off"`: true, "null": false, "{}": true,
	}
	for raw, want := range cases {
		if got := decodeValue(json.RawMessage(raw)).Truthy(); got != want {
			t.Errorf("Value(%s).Truthy() = %v, want %v", raw, got, want)
		}
	}
}

func TestSnapshotMarshalRoundTrip(t *testing.T) {
	s := &Snapshot{Temperature: ValueOf(20.5), Water: ValueOf(true)}
	s.Channels[1] = &ChannelState{Mode: ValueOf(2), Goal: ValueOf(3), Status: ValueOf(false)}

	b, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	back, err := DecodeSnapshot(b)
	if err != nil {
		t.Fatalf("DecodeSnapshot(%s): %v", b, err)
	}
	if back.Moisture != nil || back.Channel(1) != nil {
		t.Fatalf("absent fields came back: %s", b)
	}
	if back.Temperature.String() != "20.5" || back.Water.String() != "true" {
		t.Fatalf("round trip = %s", b)
	}
	if ch := back.Channel(2); ch == nil || ch.GoalUnit() != "L" || ch.Status.Truthy() {
		t.Fatalf("ch2 round trip = %s", b)
	}
}
