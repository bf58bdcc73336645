package console

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sony/gobreaker"
)

func TestPollDecodesSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/poll" || r.Method != http.MethodGet {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"temp": 19, "ch2": {"mode": 2, "goal": 3}}`))
	}))
	defer srv.Close()

	c := NewDeviceClient(DeviceConfig{URL: srv.URL + "/", PollPath: "poll", CommandPath: "/int"}, BreakerConfig{})
	s, err := c.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if s.Temperature.String() != "19" || s.Channel(2).GoalUnit() != "L" {
		t.Fatalf("snapshot = %+v", s)
	}
	if c.BreakerState() != "disabled" {
		t.Fatalf("breaker = %s", c.BreakerState())
	}
}

func TestPollFailures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusInternalServerError) },
		"html":   func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("<html>")) },
		"null":   func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("null")) },
		"array":  func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("[]")) },
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(h)
			defer srv.Close()
			c := NewDeviceClient(DeviceConfig{URL: srv.URL, PollPath: "/poll", CommandPath: "/int"}, BreakerConfig{})
			if _, err := c.Poll(context.Background()); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestPollBreakerOpens(t *testing.T) {
	var mu sync.Mutex
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewDeviceClient(DeviceConfig{URL: srv.URL, PollPath: "/poll", CommandPath: "/int"},
		BreakerConfig{Failures: 2, OpenFor: time.Minute})
	for i := 0; i < 2; i++ {
		if _, err := c.Poll(context.Background()); err == nil {
			t.Fatal("expected upstream error")
		}
	}
	_, err := c.Poll(context.Background())
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("third poll error = %v, want open breaker", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if hits != 2 {
		t.Fatalf("device hit %d times, open breaker must not call it", hits)
	}
	if c.BreakerState() != "open" {
		t.Fatalf("breaker = %s", c.BreakerState())
	}
}

func TestSendCarriesCommandAsSoleParameter(t *testing.T) {
	got := make(chan *http.Request, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got <- r
		_, _ = w.Write([]byte("ignored"))
	}))
	defer srv.Close()

	c := NewDeviceClient(DeviceConfig{URL: srv.URL, PollPath: "/poll", CommandPath: "/int"}, BreakerConfig{})
	if err := c.Send(context.Background(), "S1,2,1000,5"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	r := <-got
	if r.Method != http.MethodGet || r.URL.Path != "/int" {
		t.Fatalf("request = %s %s", r.Method, r.URL.Path)
	}
	q := r.URL.Query()
	if len(q) != 1 || q.Get("cmd") != "S1,2,1000,5" {
		t.Fatalf("query = %v", q)
	}
}

func TestSendPassesInputVerbatim(t *testing.T) {
	got := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got <- r.URL.Query().Get("cmd")
	}))
	defer srv.Close()

	c := NewDeviceClient(DeviceConfig{URL: srv.URL, PollPath: "/poll", CommandPath: "/int"}, BreakerConfig{})
	raw := "S1,a b,&x=1,#"
	if err := c.Send(context.Background(), raw); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if s := <-got; s != raw {
		t.Fatalf("device received %q, want %q", s, raw)
	}
}
