package console

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/LeonardoBeccarini/irrigation-console/internal/hlog"
	"github.com/LeonardoBeccarini/irrigation-console/internal/model"
	"github.com/go-logr/logr"
)

// PollInterval è la pausa fra la fine di un ciclo e l'inizio del successivo.
const PollInterval = 1000 * time.Millisecond

// SnapshotSource fornisce lo stato corrente del controller (DeviceClient in produzione).
type SnapshotSource interface {
	Poll(ctx context.Context) (*model.Snapshot, error)
}

// Sink riceve ogni snapshot già renderizzato (bridge MQTT, storico Influx).
type Sink interface {
	Name() string
	Observe(ctx context.Context, s *model.Snapshot) error
}

// Poller possiede il ciclo periodico: poll, render, notifica dei sink, attesa.
// I cicli sono sequenziali e non si sovrappongono mai.
type Poller struct {
	log      logr.Logger
	source   SnapshotSource
	renderer *Renderer
	metrics  *Metrics
	sinks    []Sink
	interval time.Duration

	lastOK atomic.Int64 // unix nano dell'ultimo render
	cycles atomic.Uint64
}

func NewPoller(log logr.Logger, source SnapshotSource, renderer *Renderer, metrics *Metrics, sinks ...Sink) *Poller {
	return &Poller{
		log:      log.WithName("poller"),
		source:   source,
		renderer: renderer,
		metrics:  metrics,
		sinks:    sinks,
		interval: PollInterval,
	}
}

// Run esegue cicli finché ctx non viene cancellato; il primo ciclo parte subito.
// Un ciclo fallito non interrompe il loop: il successivo viene comunque schedulato.
func (p *Poller) Run(ctx context.Context) error {
	p.log.Info("Polling started", "interval", p.interval)
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Info("Polling stopped", "cycles", p.cycles.Load())
			return nil
		case <-timer.C:
		}

		_ = p.Cycle(ctx)

		// l'intervallo parte dalla fine del ciclo
		timer.Reset(p.interval)
	}
}

// Cycle esegue un singolo ciclo. L'errore ritornato indica solo "nessun update in questo ciclo".
func (p *Poller) Cycle(ctx context.Context) error {
	p.cycles.Add(1)
	start := time.Now()
	s, err := p.source.Poll(ctx)
	p.metrics.ObservePoll(time.Since(start), err)
	if err != nil {
		if !hlog.IsContextCancellation(err) {
			p.log.V(1).Info("Poll failed, no update this cycle", "error", err.Error())
		}
		return err
	}

	updates := p.renderer.Render(s)
	p.lastOK.Store(time.Now().UnixNano())
	p.log.V(1).Info("Snapshot rendered", "updates", len(updates))

	for _, sink := range p.sinks {
		if err := sink.Observe(ctx, s); err != nil {
			p.metrics.ObserveSinkError(sink.Name())
			hlog.ErrorIfNotCanceled(p.log, err, "Sink failed", "sink", sink.Name())
		}
	}
	return nil
}

// LastSuccess è zero finché nessuno snapshot è stato renderizzato.
func (p *Poller) LastSuccess() time.Time {
	n := p.lastOK.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

func (p *Poller) Cycles() uint64 {
	return p.cycles.Load()
}
