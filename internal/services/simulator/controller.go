package simulator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/LeonardoBeccarini/irrigation-console/internal/model"
)

var ErrChannelRange = errors.New("channel out of range")

// Settings sono le impostazioni persistenti di un canale.
type Settings struct {
	Mode      model.Mode
	Frequency float64 // ms
	Goal      float64 // ms (Timed) o litri (Watered)
}

// Event segnala l'inizio o la fine di un evento di irrigazione.
type Event struct {
	ID      string    `json:"id"`
	Channel int       `json:"channel"`
	Kind    string    `json:"kind"` // "start" | "stop"
	Mode    string    `json:"mode"`
	Time    time.Time `json:"time"`
}

type channel struct {
	settings Settings

	// evento in corso; le impostazioni sono fotografate all'avvio
	running    bool
	eventID    string
	event      Settings
	motor      bool
	phaseStart time.Time
	startWater float64
	delivered  float64 // litri erogati da questo canale
}

// Controller simula il controller di irrigazione: quattro canali, un contatore d'acqua,
// sensori di umidità e temperatura.
type Controller struct {
	mu       sync.Mutex
	log      logr.Logger
	channels [model.ChannelCount]channel
	water    float64 // litri erogati in totale
	flowPerS float64 // litri al secondo per canale aperto
	soil     *Soil
	last     time.Time
	now      time.Time
	onEvent  func(Event)
}

func NewController(log logr.Logger, flowPerMin float64, soil *Soil) *Controller {
	return &Controller{
		log:      log.WithName("controller"),
		flowPerS: flowPerMin / 60,
		soil:     soil,
	}
}

// OnEvent registra il callback per start/stop; viene chiamato fuori dal lock.
func (c *Controller) OnEvent(fn func(Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEvent = fn
}

func (c *Controller) Apply(cmd model.Command) error {
	return c.ApplyAt(cmd, time.Now())
}

// ApplyAt esegue un comando all'istante now.
//   - S<ch>,<mode>,<freq>,<goal>: salva le impostazioni, un evento in corso non cambia
//   - AA<ch>: avvia un evento secondo il mode; Manual/Timed/Watered, altri mode non avviano nulla
//   - AH<ch>: ferma il canale
func (c *Controller) ApplyAt(cmd model.Command, now time.Time) error {
	ch, err := strconv.Atoi(cmd.Channel)
	if err != nil {
		return fmt.Errorf("channel %q: %w", cmd.Channel, err)
	}
	if ch < 1 || ch > model.ChannelCount {
		return fmt.Errorf("%w: %d", ErrChannelRange, ch)
	}

	c.mu.Lock()
	c.step(now)
	var events []Event
	switch cmd.Kind {
	case model.KindSetChannel:
		s, perr := parseSettings(cmd)
		if perr != nil {
			c.mu.Unlock()
			return perr
		}
		c.channels[ch-1].settings = s
		c.log.Info("Channel settings stored", "channel", ch, "mode", int(s.Mode), "frequency", s.Frequency, "goal", s.Goal)
	case model.KindArm:
		events = c.arm(ch, now)
	case model.KindHalt:
		events = c.halt(ch, now)
	default:
		c.mu.Unlock()
		return model.ErrUnknownCommand
	}
	fn := c.onEvent
	c.mu.Unlock()

	if fn != nil {
		for _, e := range events {
			fn(e)
		}
	}
	return nil
}

func parseSettings(cmd model.Command) (Settings, error) {
	mode, err := strconv.Atoi(cmd.Mode)
	if err != nil {
		return Settings{}, fmt.Errorf("mode %q: %w", cmd.Mode, err)
	}
	freq, err := strconv.ParseFloat(cmd.Frequency, 64)
	if err != nil {
		return Settings{}, fmt.Errorf("frequency %q: %w", cmd.Frequency, err)
	}
	goal, err := strconv.ParseFloat(cmd.Goal, 64)
	if err != nil {
		return Settings{}, fmt.Errorf("goal %q: %w", cmd.Goal, err)
	}
	return Settings{Mode: model.Mode(mode), Frequency: freq, Goal: goal}, nil
}

func (c *Controller) arm(n int, now time.Time) []Event {
	ch := &c.channels[n-1]
	if !ch.settings.Mode.Known() {
		c.log.Info("Mode starts no watering event", "channel", n, "mode", int(ch.settings.Mode))
		return nil
	}

	var events []Event
	if ch.running {
		// un nuovo evento sostituisce quello in corso
		events = append(events, c.stopEvent(n, now))
	}
	ch.running = true
	ch.eventID = uuid.NewString()
	ch.event = ch.settings
	ch.phaseStart = now
	ch.startWater = ch.delivered
	// Timed parte dalla fase di pausa, gli altri mode aprono subito
	ch.motor = ch.event.Mode != model.ModeTimed
	c.log.Info("Watering event started", "channel", n, "id", ch.eventID, "mode", ch.event.Mode.Label())

	return append(events, Event{ID: ch.eventID, Channel: n, Kind: "start", Mode: ch.event.Mode.Label(), Time: now})
}

func (c *Controller) halt(n int, now time.Time) []Event {
	if !c.channels[n-1].running {
		c.channels[n-1].motor = false
		return nil
	}
	return []Event{c.stopEvent(n, now)}
}

func (c *Controller) stopEvent(n int, now time.Time) Event {
	ch := &c.channels[n-1]
	e := Event{ID: ch.eventID, Channel: n, Kind: "stop", Mode: ch.event.Mode.Label(), Time: now}
	ch.running = false
	ch.motor = false
	ch.eventID = ""
	c.log.Info("Watering event stopped", "channel", n, "id", e.ID)
	return e
}

// Step avanza la simulazione fino a now.
func (c *Controller) Step(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.step(now)
}

func (c *Controller) step(now time.Time) {
	if c.last.IsZero() {
		c.last = now
	}
	dt := now.Sub(c.last)
	if dt < 0 {
		dt = 0
	}
	c.last = now
	c.now = now

	// acqua erogata nell'intervallo con lo stato dei motori precedente
	open := false
	for i := range c.channels {
		ch := &c.channels[i]
		if ch.motor {
			l := c.flowPerS * dt.Seconds()
			ch.delivered += l
			c.water += l
			open = true
		}
	}
	if c.soil != nil {
		c.soil.Advance(dt, open)
	}

	for i := range c.channels {
		advance(&c.channels[i], now)
	}
}

func advance(ch *channel, now time.Time) {
	if !ch.running {
		return
	}
	elapsed := now.Sub(ch.phaseStart)
	switch ch.event.Mode {
	case model.ModeManual:
		ch.motor = true
	case model.ModeTimed:
		onFor := msDuration(ch.event.Goal)
		offFor := msDuration(ch.event.Frequency - ch.event.Goal)
		if !ch.motor && elapsed >= offFor {
			ch.motor = true
			ch.phaseStart = now
		} else if ch.motor && elapsed >= onFor {
			ch.motor = false
			ch.phaseStart = now
		}
	case model.ModeWatered:
		if ch.motor && ch.delivered-ch.startWater >= ch.event.Goal {
			ch.motor = false
		}
		// phaseStart è l'inizio del ciclo: si riparte dopo frequency ms
		if !ch.motor && elapsed >= msDuration(ch.event.Frequency) {
			ch.motor = true
			ch.phaseStart = now
			ch.startWater = ch.delivered
		}
	}
}

func msDuration(ms float64) time.Duration {
	if ms <= 0 || math.IsNaN(ms) {
		return 0
	}
	return time.Duration(ms * float64(time.Millisecond))
}

// Snapshot ritorna lo stato nella forma di GET /poll.
func (c *Controller) Snapshot() *model.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := &model.Snapshot{Water: model.ValueOf(math.Round(c.water*100) / 100)}
	if c.soil != nil {
		s.Temperature = model.ValueOf(c.soil.Temperature(c.now))
		s.Moisture = model.ValueOf(c.soil.MoisturePercent())
	}
	for i := range c.channels {
		ch := &c.channels[i]
		s.Channels[i] = &model.ChannelState{
			Mode:      model.ValueOf(int(ch.settings.Mode)),
			Frequency: model.ValueOf(ch.settings.Frequency),
			Goal:      model.ValueOf(ch.settings.Goal),
			Status:    model.ValueOf(ch.motor),
		}
	}
	return s
}

// Settings ritorna le impostazioni del canale n (1-based).
func (c *Controller) Settings(n int) (Settings, bool) {
	if n < 1 || n > model.ChannelCount {
		return Settings{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channels[n-1].settings, true
}

// Run avanza la simulazione ogni tick finché ctx non termina.
func (c *Controller) Run(ctx context.Context, tick time.Duration) {
	t := time.NewTicker(tick)
	defer t.Stop()
	c.Step(time.Now())
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			c.Step(now)
		}
	}
}
