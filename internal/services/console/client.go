package console

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/LeonardoBeccarini/irrigation-console/internal/model"
	"github.com/sony/gobreaker"
)

// limite sulla dimensione del payload di /poll
const maxPollBody = 1 << 20

// DeviceClient incapsula le due chiamate HTTP verso il controller: GET /poll e GET /int?cmd=.
// Il poll passa attraverso un circuit breaker; i comandi no.
type DeviceClient struct {
	base     string
	pollPath string
	cmdPath  string
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker
}

// NewDeviceClient costruisce il client; un timeout a zero significa nessun timeout.
func NewDeviceClient(dev DeviceConfig, br BreakerConfig) *DeviceClient {
	return &DeviceClient{
		base:     strings.TrimRight(strings.TrimSpace(dev.URL), "/"),
		pollPath: normalizePath(dev.PollPath),
		cmdPath:  normalizePath(dev.CommandPath),
		client:   &http.Client{Timeout: dev.Timeout},
		breaker:  newBreaker("device-poll", br),
	}
}

func normalizePath(p string) string {
	return "/" + strings.TrimLeft(strings.TrimSpace(p), "/")
}

// newBreaker ritorna nil se il breaker è disabilitato (failures <= 0).
func newBreaker(name string, cfg BreakerConfig) *gobreaker.CircuitBreaker {
	if cfg.Failures <= 0 {
		return nil
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: cfg.OpenFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= uint32(cfg.Failures)
		},
	})
}

func (c *DeviceClient) PollURL() string    { return c.base + c.pollPath }
func (c *DeviceClient) CommandURL() string { return c.base + c.cmdPath }

// BreakerState è "disabled" quando il breaker non è configurato.
func (c *DeviceClient) BreakerState() string {
	if c.breaker == nil {
		return "disabled"
	}
	return c.breaker.State().String()
}

// Poll legge lo stato corrente del controller.
// Errore di rete, status non 2xx, payload non valido o breaker aperto: nessuno snapshot.
func (c *DeviceClient) Poll(ctx context.Context) (*model.Snapshot, error) {
	if c.breaker == nil {
		return c.poll(ctx)
	}
	res, err := c.breaker.Execute(func() (any, error) {
		return c.poll(ctx)
	})
	if err != nil {
		return nil, err
	}
	return res.(*model.Snapshot), nil
}

func (c *DeviceClient) poll(ctx context.Context) (*model.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.PollURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("poll request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("poll: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("poll: upstream status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPollBody))
	if err != nil {
		return nil, fmt.Errorf("poll read: %w", err)
	}
	return model.DecodeSnapshot(body)
}

// Send esegue GET <command path>?cmd=<cmd>. Il corpo della risposta viene scartato;
// l'errore serve solo per log e metriche.
func (c *DeviceClient) Send(ctx context.Context, cmd string) error {
	u := c.CommandURL() + "?" + url.Values{"cmd": {cmd}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("command request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("command %q: %w", cmd, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("command %q: upstream status %d", cmd, resp.StatusCode)
	}
	return nil
}

