package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ChannelCount is the number of irrigation outputs on the controller.
const ChannelCount = 4

// Snapshot is one status payload returned by GET /poll.
// Every field is optional: a nil field was absent from the payload and must not touch its widget.
type Snapshot struct {
	Temperature *Value
	Moisture    *Value
	Water       *Value
	Channels    [ChannelCount]*ChannelState
}

// ChannelState is the status group of one channel (ch1..ch4).
type ChannelState struct {
	Mode      *Value
	Frequency *Value
	Goal      *Value
	Status    *Value
}

// Channel returns the group for channel n (1-based), nil when absent or out of range.
func (s *Snapshot) Channel(n int) *ChannelState {
	if s == nil || n < 1 || n > ChannelCount {
		return nil
	}
	return s.Channels[n-1]
}

// ParsedMode decodes the mode sub-field; ok is false when the group carried no mode.
func (c *ChannelState) ParsedMode() (Mode, bool) {
	if c == nil || c.Mode == nil {
		return ModeUnknown, false
	}
	return ModeOf(*c.Mode), true
}

// GoalUnit is derived from the mode delivered in the same group.
// No mode in this delivery means no unit, whatever was shown before.
func (c *ChannelState) GoalUnit() string {
	m, ok := c.ParsedMode()
	if !ok {
		return ""
	}
	return m.GoalUnit()
}

// ChannelKey is the payload key of channel n ("ch1".."ch4").
func ChannelKey(n int) string {
	return "ch" + strconv.Itoa(n)
}

type topField int

const (
	topIgnored topField = iota
	topTemperature
	topMoisture
	topWater
	topChannel
)

func classifyTop(key string) (topField, int) {
	switch key {
	case "temp":
		return topTemperature, 0
	case "moisture":
		return topMoisture, 0
	case "water":
		return topWater, 0
	case "ch1", "ch2", "ch3", "ch4":
		return topChannel, int(key[2] - '0')
	default:
		return topIgnored, 0
	}
}

// DecodeSnapshot parses a /poll body. The payload must be a JSON object; unknown keys,
// at the top level or inside a channel group, are skipped. A channel group that is not
// an object carries nothing and is skipped as well.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if top == nil {
		return nil, fmt.Errorf("decode snapshot: payload is null")
	}

	s := &Snapshot{}
	for key, raw := range top {
		kind, ch := classifyTop(key)
		switch kind {
		case topTemperature:
			s.Temperature = decodeValue(raw)
		case topMoisture:
			s.Moisture = decodeValue(raw)
		case topWater:
			s.Water = decodeValue(raw)
		case topChannel:
			s.Channels[ch-1] = decodeChannel(raw)
		default:
			// campo sconosciuto: ignorato
		}
	}
	return s, nil
}

func decodeChannel(raw json.RawMessage) *ChannelState {
	var group map[string]json.RawMessage
	if err := json.Unmarshal(raw, &group); err != nil || group == nil {
		return nil
	}
	c := &ChannelState{}
	for key, v := range group {
		switch key {
		case "mode":
			c.Mode = decodeValue(v)
		case "frequency":
			c.Frequency = decodeValue(v)
		case "goal":
			c.Goal = decodeValue(v)
		case "status":
			c.Status = decodeValue(v)
		default:
		}
	}
	return c
}

func decodeValue(raw json.RawMessage) *Value {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil
	}
	return &Value{raw: v}
}

// MarshalJSON writes the snapshot back in the /poll wire form, omitting absent fields.
func (s *Snapshot) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, 3+ChannelCount)
	if s.Temperature != nil {
		out["temp"] = s.Temperature
	}
	if s.Moisture != nil {
		out["moisture"] = s.Moisture
	}
	if s.Water != nil {
		out["water"] = s.Water
	}
	for i, c := range s.Channels {
		if c != nil {
			out[ChannelKey(i+1)] = c
		}
	}
	return json.Marshal(out)
}

func (c *ChannelState) MarshalJSON() ([]byte, error) {
	out := make(map[string]*Value, 4)
	if c.Mode != nil {
		out["mode"] = c.Mode
	}
	if c.Frequency != nil {
		out["frequency"] = c.Frequency
	}
	if c.Goal != nil {
		out["goal"] = c.Goal
	}
	if c.Status != nil {
		out["status"] = c.Status
	}
	return json.Marshal(out)
}

// ValueOf is a convenience for building snapshots in code (simulator, tests).
func ValueOf(v any) *Value {
	val := NewValue(v)
	return &val
}
