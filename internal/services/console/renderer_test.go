package console

import (
	"testing"

	"github.com/LeonardoBeccarini/irrigation-console/internal/model"
)

func decode(t *testing.T, body string) *model.Snapshot {
	t.Helper()
	s, err := model.DecodeSnapshot([]byte(body))
	if err != nil {
		t.Fatalf("DecodeSnapshot(%s): %v", body, err)
	}
	return s
}

func TestRenderFullSnapshot(t *testing.T) {
	tree := NewWidgetTree()
	r := NewRenderer(tree)
	r.Render(decode(t, `{
		"temp": 22.5, "moisture": 40, "water": 1.5,
		"ch1": {"mode": 1, "frequency": 60000, "goal": 500, "status": true},
		"ch2": {"mode": 2, "frequency": 3600000, "goal": 3, "status": false},
		"ch3": {"mode": 0, "frequency": 0, "goal": 0, "status": 0},
		"ch4": {"mode": 9, "goal": 7}
	}`))

	want := map[string]string{
		"temp": "22.5", "moisture": "40", "wtr": "1.5",
		"m1": "Timed", "f1": "60000ms", "g1": "500ms", "st1": "On",
		"m2": "Watered", "f2": "3600000ms", "g2": "3L", "st2": "Off",
		"m3": "Manual", "f3": "0ms", "g3": "0", "st3": "Off",
		"m4": "", "g4": "7",
	}
	for id, text := range want {
		if got, _ := tree.Text(id); got != text {
			t.Errorf("widget %s = %q, want %q", id, got, text)
		}
	}
}

func TestGoalUnitDoesNotDependOnKeyOrder(t *testing.T) {
	bodies := []string{
		`{"ch1": {"mode": 1, "goal": 500}}`,
		`{"ch1": {"goal": 500, "mode": 1}}`,
		`{"ch1": {"status": 1, "goal": 500, "frequency": 10, "mode": 1}}`,
	}
	for _, body := range bodies {
		tree := NewWidgetTree()
		NewRenderer(tree).Render(decode(t, body))
		if got, _ := tree.Text("g1"); got != "500ms" {
			t.Errorf("%s: g1 = %q, want 500ms", body, got)
		}
	}
}

func TestGoalWithoutModeHasNoUnit(t *testing.T) {
	tree := NewWidgetTree()
	r := NewRenderer(tree)
	r.Render(decode(t, `{"ch2": {"mode": 2, "goal": 3}}`))
	r.Render(decode(t, `{"ch2": {"goal": 4}}`))

	if got, _ := tree.Text("g2"); got != "4" {
		t.Fatalf("g2 = %q, want 4", got)
	}
	if got, _ := tree.Text("m2"); got != "Watered" {
		t.Fatalf("m2 = %q, absent mode must not touch the widget", got)
	}
}

func TestAbsentFieldsKeepPreviousText(t *testing.T) {
	tree := NewWidgetTree()
	r := NewRenderer(tree)
	r.Render(decode(t, `{"temp": 20, "moisture": 30, "ch1": {"status": true}}`))
	updates := r.Render(decode(t, `{"temp": 21, "bogus": {"x": 1}, "ch9": {}}`))

	if len(updates) != 1 || updates[0] != (Update{Widget: "temp", Text: "21"}) {
		t.Fatalf("updates = %+v", updates)
	}
	if got, _ := tree.Text("moisture"); got != "30" {
		t.Errorf("moisture = %q", got)
	}
	if got, _ := tree.Text("st1"); got != "On" {
		t.Errorf("st1 = %q", got)
	}
}

func TestUpdatesForEmptySnapshot(t *testing.T) {
	r := NewRenderer(nil)
	if u := r.Updates(decode(t, `{}`)); len(u) != 0 {
		t.Fatalf("updates = %+v", u)
	}
	if u := r.Updates(nil); u != nil {
		t.Fatalf("updates(nil) = %+v", u)
	}
}

func TestStringValuesRenderVerbatim(t *testing.T) {
	tree := NewWidgetTree()
	NewRenderer(tree).Render(decode(t, `{"temp": "n/a", "water": true, "ch1": {"frequency": "x", "status": "off"}}`))
	for id, want := range map[string]string{"temp": "n/a", "wtr": "true", "f1": "xms", "st1": "On"} {
		if got, _ := tree.Text(id); got != want {
			t.Errorf("%s = %q, want %q", id, got, want)
		}
	}
}
