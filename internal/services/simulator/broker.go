package simulator

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-logr/logr"
	mochi "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
)

// Broker è un broker MQTT embedded (mochi) con client inline: lo usa la console per il
// bridge in sviluppo, e il simulatore ci pubblica gli eventi di irrigazione.
type Broker struct {
	log    logr.Logger
	server *mochi.Server
	addr   string
}

func NewBroker(log logr.Logger, addr string) (*Broker, error) {
	log = log.WithName("broker")
	server := mochi.New(&mochi.Options{
		InlineClient: true,
		Logger:       slog.New(logr.ToSlogHandler(log)),
	})

	// Allow all connections.
	if err := server.AddHook(new(auth.AllowHook), nil); err != nil {
		return nil, fmt.Errorf("auth hook: %w", err)
	}

	tcp := listeners.NewTCP(listeners.Config{ID: "tcp", Address: addr})
	if err := server.AddListener(tcp); err != nil {
		return nil, fmt.Errorf("listener %s: %w", addr, err)
	}
	return &Broker{log: log, server: server, addr: addr}, nil
}

// Start non blocca: i listener girano in background.
func (b *Broker) Start() error {
	if err := b.server.Serve(); err != nil {
		return err
	}
	b.log.Info("Now listening for MQTT connections", "addr", b.addr)
	return nil
}

// PublishEvent pubblica un evento di irrigazione con il client inline.
func (b *Broker) PublishEvent(topic string, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return b.server.Publish(topic, payload, false, 1)
}

func (b *Broker) Close() error {
	return b.server.Close()
}

func EventTopic(device string) string {
	return "irrigation/" + device + "/events"
}
