package console

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/go-logr/logr"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/LeonardoBeccarini/irrigation-console/internal/model"
)

const (
	measurementController = "controller_status"
	measurementChannel    = "channel_state"
)

// History scrive ogni snapshot su InfluxDB tramite la WriteAPI asincrona
// e tiene traccia dell'ultimo errore di scrittura per /healthz.
type History struct {
	log    logr.Logger
	api    api.WriteAPI
	device string

	mu      sync.RWMutex
	lastErr time.Time
	written int64
}

// NewHistory attiva il listener degli errori asincroni di Influx.
func NewHistory(log logr.Logger, w api.WriteAPI, device string) *History {
	h := &History{
		log:     log.WithName("history"),
		api:     w,
		device:  device,
		lastErr: time.Now().Add(-24 * time.Hour), // di default "lontano nel tempo"
	}
	go func() {
		for err := range w.Errors() {
			if err != nil {
				h.mu.Lock()
				h.lastErr = time.Now()
				h.mu.Unlock()
				h.log.Error(err, "influx write error")
			}
		}
	}()
	return h
}

func (h *History) Name() string { return "influx" }

func (h *History) Observe(_ context.Context, s *model.Snapshot) error {
	now := time.Now()
	for _, p := range SnapshotPoints(h.device, s, now) {
		h.api.WritePoint(p)
	}
	h.mu.Lock()
	h.written++
	h.mu.Unlock()
	return nil
}

// LastErrorAge ritorna da quanto tempo non si verificano errori di scrittura.
func (h *History) LastErrorAge() time.Duration {
	if h == nil {
		return 99999 * time.Hour
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return time.Since(h.lastErr)
}

func (h *History) Written() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.written
}

// SnapshotPoints converte uno snapshot in punti Influx: un controller_status con i campi
// globali presenti e un channel_state per ogni canale presente. I valori non numerici
// finiscono come stringa; i campi assenti non vengono scritti.
func SnapshotPoints(device string, s *model.Snapshot, t time.Time) []*write.Point {
	var points []*write.Point

	fields := map[string]any{}
	addField(fields, "temperature", s.Temperature)
	addField(fields, "moisture", s.Moisture)
	addField(fields, "water", s.Water)
	if len(fields) > 0 {
		points = append(points, influxdb2.NewPoint(measurementController,
			map[string]string{"device": device}, fields, t))
	}

	for ch := 1; ch <= model.ChannelCount; ch++ {
		c := s.Channel(ch)
		if c == nil {
			continue
		}
		tags := map[string]string{"device": device, "channel": strconv.Itoa(ch)}
		cf := map[string]any{}
		if m, ok := c.ParsedMode(); ok {
			cf["mode"] = int64(m)
			if label := m.Label(); label != "" {
				tags["mode"] = label
			}
		}
		addField(cf, "frequency_ms", c.Frequency)
		addField(cf, "goal", c.Goal)
		if c.Status != nil {
			cf["on"] = c.Status.Truthy()
		}
		if len(cf) == 0 {
			continue
		}
		points = append(points, influxdb2.NewPoint(measurementChannel, tags, cf, t))
	}
	return points
}

func addField(fields map[string]any, name string, v *model.Value) {
	if v == nil {
		return
	}
	if f, ok := v.Float64(); ok {
		fields[name] = f
		return
	}
	fields[name] = v.String()
}
