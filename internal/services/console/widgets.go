package console

import (
	"strconv"
	"sync"

	"github.com/LeonardoBeccarini/irrigation-console/internal/model"
)

// Widget ids, come nella dashboard: temp, moisture, wtr e per ogni canale m<N>, f<N>, g<N>, st<N>.
const (
	WidgetTemperature = "temp"
	WidgetMoisture    = "moisture"
	WidgetWater       = "wtr"
)

func ModeWidget(ch int) string      { return "m" + strconv.Itoa(ch) }
func FrequencyWidget(ch int) string { return "f" + strconv.Itoa(ch) }
func GoalWidget(ch int) string      { return "g" + strconv.Itoa(ch) }
func StatusWidget(ch int) string    { return "st" + strconv.Itoa(ch) }

// WidgetIDs ritorna tutti gli id in ordine di visualizzazione.
func WidgetIDs() []string {
	ids := []string{WidgetTemperature, WidgetMoisture, WidgetWater}
	for ch := 1; ch <= model.ChannelCount; ch++ {
		ids = append(ids, ModeWidget(ch), FrequencyWidget(ch), GoalWidget(ch), StatusWidget(ch))
	}
	return ids
}

// Update è la scrittura di un testo in un widget.
type Update struct {
	Widget string `json:"widget"`
	Text   string `json:"text"`
}

// WidgetTree è l'albero dei widget della console: id -> testo mostrato.
// Lo scrive solo il renderer, lo leggono view, handler HTTP e test.
type WidgetTree struct {
	mu   sync.RWMutex
	text map[string]string
}

func NewWidgetTree() *WidgetTree {
	t := &WidgetTree{text: make(map[string]string)}
	for _, id := range WidgetIDs() {
		t.text[id] = ""
	}
	return t
}

// Apply scrive gli update; i widget non toccati mantengono il testo precedente.
func (t *WidgetTree) Apply(updates []Update) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, u := range updates {
		t.text[u.Widget] = u.Text
	}
}

func (t *WidgetTree) Text(id string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.text[id]
	return s, ok
}

// Copy ritorna una copia del contenuto corrente.
func (t *WidgetTree) Copy() map[string]string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]string, len(t.text))
	for k, v := range t.text {
		out[k] = v
	}
	return out
}
