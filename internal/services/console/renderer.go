package console

import (
	"github.com/LeonardoBeccarini/irrigation-console/internal/model"
)

// binding lega un widget al campo dello snapshot che lo alimenta.
// render ritorna false quando il campo manca: il widget resta com'è.
type binding struct {
	widget string
	render func(s *model.Snapshot) (string, bool)
}

// Renderer traduce uno snapshot in update dei widget.
// La tabella widget -> campo è costruita una volta sola.
type Renderer struct {
	table []binding
	tree  *WidgetTree
}

func NewRenderer(tree *WidgetTree) *Renderer {
	table := []binding{
		{WidgetTemperature, scalar(func(s *model.Snapshot) *model.Value { return s.Temperature })},
		{WidgetMoisture, scalar(func(s *model.Snapshot) *model.Value { return s.Moisture })},
		{WidgetWater, scalar(func(s *model.Snapshot) *model.Value { return s.Water })},
	}
	for ch := 1; ch <= model.ChannelCount; ch++ {
		table = append(table,
			binding{ModeWidget(ch), channel(ch, renderMode)},
			binding{FrequencyWidget(ch), channel(ch, renderFrequency)},
			binding{GoalWidget(ch), channel(ch, renderGoal)},
			binding{StatusWidget(ch), channel(ch, renderStatus)},
		)
	}
	return &Renderer{table: table, tree: tree}
}

// Updates calcola gli update per s senza applicarli.
func (r *Renderer) Updates(s *model.Snapshot) []Update {
	if s == nil {
		return nil
	}
	var out []Update
	for _, b := range r.table {
		if text, ok := b.render(s); ok {
			out = append(out, Update{Widget: b.widget, Text: text})
		}
	}
	return out
}

// Render applica lo snapshot all'albero dei widget e ritorna gli update applicati.
func (r *Renderer) Render(s *model.Snapshot) []Update {
	updates := r.Updates(s)
	if r.tree != nil {
		r.tree.Apply(updates)
	}
	return updates
}

func scalar(get func(*model.Snapshot) *model.Value) func(*model.Snapshot) (string, bool) {
	return func(s *model.Snapshot) (string, bool) {
		v := get(s)
		if v == nil {
			return "", false
		}
		return v.String(), true
	}
}

func channel(ch int, render func(*model.ChannelState) (string, bool)) func(*model.Snapshot) (string, bool) {
	return func(s *model.Snapshot) (string, bool) {
		c := s.Channel(ch)
		if c == nil {
			return "", false
		}
		return render(c)
	}
}

func renderMode(c *model.ChannelState) (string, bool) {
	m, ok := c.ParsedMode()
	if !ok {
		return "", false
	}
	return m.Label(), true
}

func renderFrequency(c *model.ChannelState) (string, bool) {
	if c.Frequency == nil {
		return "", false
	}
	return c.Frequency.String() + "ms", true
}

// l'unità arriva dal mode dello stesso gruppo, qualunque sia l'ordine delle chiavi
func renderGoal(c *model.ChannelState) (string, bool) {
	if c.Goal == nil {
		return "", false
	}
	return c.Goal.String() + c.GoalUnit(), true
}

func renderStatus(c *model.ChannelState) (string, bool) {
	if c.Status == nil {
		return "", false
	}
	if c.Status.Truthy() {
		return "On", true
	}
	return "Off", true
}
