package console

import (
	"context"
	"sync"
	"time"

	"github.com/LeonardoBeccarini/irrigation-console/internal/hlog"
	"github.com/LeonardoBeccarini/irrigation-console/internal/model"
	"github.com/go-logr/logr"
)

// CommandSender invia la stringa di comando al controller.
type CommandSender interface {
	Send(ctx context.Context, cmd string) error
}

// Dispatcher invia i comandi in modo fire-and-forget: Dispatch ritorna subito,
// nessun retry, l'esito finisce solo nei log e nelle metriche.
// Più dispatch possono sovrapporsi fra loro e con il poll.
type Dispatcher struct {
	ctx     context.Context
	cancel  context.CancelFunc
	log     logr.Logger
	sender  CommandSender
	metrics *Metrics
	wg      sync.WaitGroup
}

// NewDispatcher lega i dispatch a ctx: cancellarlo (o chiamare Shutdown) interrompe le richieste in volo.
func NewDispatcher(ctx context.Context, log logr.Logger, sender CommandSender, metrics *Metrics) *Dispatcher {
	ctx, cancel := context.WithCancel(ctx)
	return &Dispatcher{ctx: ctx, cancel: cancel, log: log.WithName("dispatcher"), sender: sender, metrics: metrics}
}

func (d *Dispatcher) Dispatch(cmd model.Command) {
	d.DispatchRaw(cmd.Kind.String(), cmd.Encode())
}

// DispatchRaw invia una stringa già codificata; kind serve solo per le metriche.
func (d *Dispatcher) DispatchRaw(kind, encoded string) {
	if encoded == "" {
		d.log.Info("Empty command, nothing dispatched", "kind", kind)
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		err := d.sender.Send(d.ctx, encoded)
		d.metrics.ObserveDispatch(kind, err)
		if err != nil {
			if !hlog.IsContextCancellation(err) {
				d.log.V(1).Info("Command dropped", "cmd", encoded, "error", err.Error())
			}
			return
		}
		d.log.V(1).Info("Command sent", "cmd", encoded)
	}()
}

// Wait attende i dispatch in volo (comandi one-shot da CLI).
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Shutdown concede grace ai dispatch in volo, poi li cancella e attende che terminino.
// Dopo Shutdown i nuovi dispatch falliscono subito.
func (d *Dispatcher) Shutdown(grace time.Duration) {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	t := time.NewTimer(grace)
	defer t.Stop()
	select {
	case <-done:
	case <-t.C:
		d.log.Info("Cancelling in-flight commands", "grace", grace)
	}
	d.cancel()
	<-done
}
