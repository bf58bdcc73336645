package simulator

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/go-logr/logr/testr"

	"github.com/LeonardoBeccarini/irrigation-console/internal/model"
	"github.com/LeonardoBeccarini/irrigation-console/internal/services/console"
)

func newTestAPI(t *testing.T) (*Controller, *httptest.Server) {
	t.Helper()
	ctrl := newTestController(t, 6)
	srv := httptest.NewServer(NewAPI(testr.New(t), ctrl))
	t.Cleanup(srv.Close)
	return ctrl, srv
}

func get(t *testing.T, rawURL string) (int, string) {
	t.Helper()
	resp, err := http.Get(rawURL)
	if err != nil {
		t.Fatalf("GET %s: %v", rawURL, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(b)
}

func TestAPI_Command(t *testing.T) {
	ctrl, srv := newTestAPI(t)

	code, body := get(t, srv.URL+"/int?"+url.Values{"cmd": {"S2,1,60000,5000"}}.Encode())
	if code != http.StatusOK || body != "OK" {
		t.Fatalf("set: %d %q", code, body)
	}
	s, _ := ctrl.Settings(2)
	if s.Mode != model.ModeTimed || s.Frequency != 60000 || s.Goal != 5000 {
		t.Fatalf("settings = %+v", s)
	}

	for _, bad := range []string{"", "XX1", "AH9", "S1,x,1,1"} {
		code, _ := get(t, srv.URL+"/int?"+url.Values{"cmd": {bad}}.Encode())
		if code != http.StatusBadRequest {
			t.Errorf("cmd %q: status %d, want 400", bad, code)
		}
	}
}

func TestAPI_Poll(t *testing.T) {
	_, srv := newTestAPI(t)
	get(t, srv.URL+"/int?cmd=S1,2,10000,3")

	code, body := get(t, srv.URL+"/poll")
	if code != http.StatusOK {
		t.Fatalf("poll: %d", code)
	}
	s, err := model.DecodeSnapshot([]byte(body))
	if err != nil {
		t.Fatalf("decode %s: %v", body, err)
	}
	ch := s.Channel(1)
	if ch == nil {
		t.Fatalf("channel 1 missing in %s", body)
	}
	if m, ok := ch.ParsedMode(); !ok || m != model.ModeWatered {
		t.Fatalf("mode = %v (%v)", m, ok)
	}
	if ch.GoalUnit() != "L" {
		t.Fatalf("goal unit = %q", ch.GoalUnit())
	}
	if s.Moisture == nil || s.Temperature == nil || s.Water == nil {
		t.Fatalf("globals missing in %s", body)
	}
}

// La console completa contro il simulatore: il poll renderizza i widget e i comandi arrivano al device.
func TestAPI_ConsoleRoundTrip(t *testing.T) {
	ctrl, srv := newTestAPI(t)
	log := testr.New(t)

	client := console.NewDeviceClient(console.DeviceConfig{
		URL:         srv.URL,
		PollPath:    "/poll",
		CommandPath: "/int",
	}, console.BreakerConfig{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	d := console.NewDispatcher(ctx, log, client, nil)
	d.Dispatch(model.SetChannel(3, model.ModeTimed, 1000, 300))
	d.Wait()
	if s, _ := ctrl.Settings(3); s.Mode != model.ModeTimed {
		t.Fatalf("settings after dispatch = %+v", s)
	}

	tree := console.NewWidgetTree()
	p := console.NewPoller(log, client, console.NewRenderer(tree), nil)
	if err := p.Cycle(ctx); err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if got, _ := tree.Text(console.ModeWidget(3)); got != "Timed" {
		t.Errorf("mode widget = %q", got)
	}
	if got, _ := tree.Text(console.GoalWidget(3)); got != "300ms" {
		t.Errorf("goal widget = %q", got)
	}
	if got, _ := tree.Text(console.StatusWidget(3)); got != "Off" {
		t.Errorf("status widget = %q", got)
	}
}
