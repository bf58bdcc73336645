package console

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-logr/logr"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusDown     = "down"
)

// PollState è ciò che lo status server legge dal Poller.
type PollState interface {
	LastSuccess() time.Time
	Cycles() uint64
}

type BreakerReporter interface {
	BreakerState() string
}

// ConnChecker è soddisfatta da mqtt.Client.
type ConnChecker interface {
	IsConnectionOpen() bool
}

type WriteTracker interface {
	LastErrorAge() time.Duration
}

type HealthReport struct {
	Status          string   `json:"status"`
	LastPollAgeSec  float64  `json:"last_poll_age_sec"` // -1: nessuno snapshot finora
	Cycles          uint64   `json:"cycles"`
	Breaker         string   `json:"breaker"`
	MQTTConnected   *bool    `json:"mqtt_connected,omitempty"`
	LastWriteErrorS *float64 `json:"last_write_error_age_sec,omitempty"`
}

// StatusServer espone /healthz, /readyz, /metrics e /widgets, più l'health gRPC opzionale.
type StatusServer struct {
	log     logr.Logger
	poller  PollState
	device  BreakerReporter
	tree    *WidgetTree
	metrics *Metrics

	mqtt    ConnChecker  // nil se il bridge non è attivo
	history WriteTracker // nil se lo storico non è attivo

	staleAfter    time.Duration
	writeErrGrace time.Duration
	grpcHealth    *health.Server
	now           func() time.Time
}

func NewStatusServer(log logr.Logger, poller PollState, device BreakerReporter, tree *WidgetTree, metrics *Metrics) *StatusServer {
	return &StatusServer{
		log:           log.WithName("status"),
		poller:        poller,
		device:        device,
		tree:          tree,
		metrics:       metrics,
		staleAfter:    5 * PollInterval,
		writeErrGrace: 30 * time.Second,
		grpcHealth:    health.NewServer(),
		now:           time.Now,
	}
}

func (s *StatusServer) WithMQTT(c ConnChecker) *StatusServer    { s.mqtt = c; return s }
func (s *StatusServer) WithHistory(w WriteTracker) *StatusServer { s.history = w; return s }

// Report calcola lo stato corrente.
// ok: snapshot recente e dipendenze opzionali sane; degraded: qualcosa non va ma un
// snapshot c'è stato; down: nessuno snapshot renderizzato.
func (s *StatusServer) Report() HealthReport {
	r := HealthReport{
		LastPollAgeSec: -1,
		Cycles:         s.poller.Cycles(),
		Breaker:        s.device.BreakerState(),
	}

	last := s.poller.LastSuccess()
	fresh := false
	if !last.IsZero() {
		age := s.now().Sub(last)
		r.LastPollAgeSec = age.Seconds()
		fresh = age <= s.staleAfter
	}

	depsOK := true
	if s.mqtt != nil {
		connected := s.mqtt.IsConnectionOpen()
		r.MQTTConnected = &connected
		depsOK = depsOK && connected
	}
	if s.history != nil {
		age := s.history.LastErrorAge()
		sec := age.Seconds()
		r.LastWriteErrorS = &sec
		depsOK = depsOK && age > s.writeErrGrace
	}

	switch {
	case last.IsZero():
		r.Status = StatusDown
	case fresh && depsOK:
		r.Status = StatusOK
	default:
		r.Status = StatusDegraded
	}
	return r
}

// Ready: almeno uno snapshot renderizzato.
func (s *StatusServer) Ready() bool {
	return !s.poller.LastSuccess().IsZero()
}

// syncGRPC riporta lo stato sul servizio grpc.health.v1 (service "").
func (s *StatusServer) syncGRPC() {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if s.Report().Status == StatusOK {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.grpcHealth.SetServingStatus("", st)
}

func (s *StatusServer) handleHealthz(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Report())
}

// Handler /readyz: 200 solo dopo il primo snapshot.
func (s *StatusServer) handleReadyz(c echo.Context) error {
	type resp struct {
		Ready bool `json:"ready"`
	}
	ready := s.Ready()
	code := http.StatusOK
	if !ready {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, resp{Ready: ready})
}

func (s *StatusServer) handleWidgets(c echo.Context) error {
	return c.JSON(http.StatusOK, s.tree.Copy())
}

func (s *StatusServer) Echo() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	e.GET("/healthz", s.handleHealthz)
	e.GET("/readyz", s.handleReadyz)
	e.GET("/widgets", s.handleWidgets)
	if s.metrics != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{})))
	}
	return e
}

// Serve avvia HTTP (se httpAddr non è vuoto) e gRPC health (se grpcAddr non è vuoto)
// e blocca fino alla cancellazione di ctx.
func (s *StatusServer) Serve(ctx context.Context, httpAddr, grpcAddr string) error {
	errc := make(chan error, 2)

	var e *echo.Echo
	if httpAddr != "" {
		e = s.Echo()
		go func() {
			s.log.Info("HTTP listening", "addr", httpAddr)
			if err := e.Start(httpAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- err
			}
		}()
	}

	var gs *grpc.Server
	if grpcAddr != "" {
		lis, err := net.Listen("tcp", grpcAddr)
		if err != nil {
			return err
		}
		gs = grpc.NewServer()
		healthpb.RegisterHealthServer(gs, s.grpcHealth)
		go func() {
			s.log.Info("gRPC health listening", "addr", grpcAddr)
			if err := gs.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				errc <- err
			}
		}()
	}

	tick := time.NewTicker(PollInterval)
	defer tick.Stop()
	s.syncGRPC()

	var err error
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case err = <-errc:
			break loop
		case <-tick.C:
			s.syncGRPC()
		}
	}

	s.grpcHealth.Shutdown()
	if gs != nil {
		gs.GracefulStop()
	}
	if e != nil {
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = e.Shutdown(shCtx)
	}
	return err
}
