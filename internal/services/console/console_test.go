package console

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-logr/logr/testr"
)

type fakeDevice struct {
	polls    atomic.Int32
	commands chan string
	hang     bool // /int non risponde finché il client non chiude
}

func (d *fakeDevice) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/poll":
		d.polls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"moisture":33,"ch1":{"mode":0,"status":1}}`)
	case "/int":
		select {
		case d.commands <- r.URL.Query().Get("cmd"):
		default:
		}
		if d.hang {
			<-r.Context().Done()
			return
		}
		_, _ = io.WriteString(w, "OK")
	default:
		http.NotFound(w, r)
	}
}

func newTestConsole(t *testing.T, dev *fakeDevice) *Console {
	t.Helper()
	srv := httptest.NewServer(dev)
	t.Cleanup(srv.Close)

	cfg := Config{Device: DeviceConfig{URL: srv.URL, PollPath: "/poll", CommandPath: "/int"}}
	c, err := New(context.Background(), testr.New(t), cfg, io.Discard)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestRunKeepsPollingAfterEndOfInput(t *testing.T) {
	dev := &fakeDevice{commands: make(chan string, 4)}
	c := newTestConsole(t, dev)

	ctx, cancel := context.WithTimeout(context.Background(), 1500*time.Millisecond)
	defer cancel()

	start := time.Now()
	if err := c.Run(ctx, strings.NewReader(""), io.Discard); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if elapsed := time.Since(start); elapsed < time.Second {
		t.Fatalf("Run returned after %v, before the context ended", elapsed)
	}
	if n := dev.polls.Load(); n < 2 {
		t.Fatalf("polls = %d, want at least 2", n)
	}
	if got, _ := c.Tree.Text(WidgetMoisture); got != "33" {
		t.Errorf("moisture widget = %q", got)
	}
	if got, _ := c.Tree.Text(StatusWidget(1)); got != "On" {
		t.Errorf("status widget = %q", got)
	}
}

func TestRunQuitDoesNotWaitForHungCommand(t *testing.T) {
	dev := &fakeDevice{commands: make(chan string, 4), hang: true}
	c := newTestConsole(t, dev)
	c.shutdownGrace = 50 * time.Millisecond

	done := make(chan error, 1)
	go func() {
		done <- c.Run(context.Background(), strings.NewReader("halt 1\nquit\n"), io.Discard)
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run still blocked after quit")
	}
}

func TestNewRejectsUnreachableBroker(t *testing.T) {
	cfg := Config{
		Device: DeviceConfig{URL: "http://127.0.0.1:1", PollPath: "/poll", CommandPath: "/int"},
		MQTT:   MQTTConfig{Enabled: true, Host: "127.0.0.1", Port: 1, Device: "esp32"},
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := New(ctx, testr.New(t), cfg, io.Discard); err == nil {
		t.Fatal("New succeeded without a broker")
	}
}
