package console

import (
	"context"
	"fmt"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-logr/logr"

	"github.com/LeonardoBeccarini/irrigation-console/internal/model"
	"github.com/LeonardoBeccarini/irrigation-console/pkg/dedup"
	"github.com/LeonardoBeccarini/irrigation-console/pkg/mqttbus"
)

// CommandDispatch è la parte del Dispatcher usata dal bridge.
type CommandDispatch interface {
	DispatchRaw(kind, encoded string)
}

// Bridge collega la console a un broker MQTT: pubblica ogni snapshot sul topic di stato
// e inoltra al device i comandi ricevuti sul topic dei comandi.
type Bridge struct {
	log        logr.Logger
	publisher  mqttbus.IPublisher
	dispatcher CommandDispatch
	dedup      *dedup.Deduper
}

func NewBridge(log logr.Logger, publisher mqttbus.IPublisher, dispatcher CommandDispatch, d *dedup.Deduper) *Bridge {
	return &Bridge{log: log.WithName("mqtt"), publisher: publisher, dispatcher: dispatcher, dedup: d}
}

func (b *Bridge) Name() string { return "mqtt" }

// Observe pubblica lo snapshot nella stessa forma JSON di GET /poll.
func (b *Bridge) Observe(_ context.Context, s *model.Snapshot) error {
	return b.publisher.Publish(s)
}

// HandleCommand è l'handler del consumer sul topic dei comandi.
// Il payload è una delle tre forme (AH<ch>, AA<ch>, S<ch>,<mode>,<freq>,<goal>).
func (b *Bridge) HandleCommand(topic string, msg mqtt.Message) error {
	// un comando retained verrebbe rieseguito ad ogni riconnessione
	if msg.Retained() {
		b.log.V(1).Info("Ignoring retained command", "topic", topic)
		return nil
	}

	payload := strings.TrimSpace(string(msg.Payload()))
	cmd, err := model.ParseCommand(payload)
	if err != nil {
		return fmt.Errorf("command on %s: %w", topic, err)
	}

	if msg.Qos() > 0 && b.dedup != nil && !b.dedup.ShouldProcess(dedup.MessageKey(msg.MessageID(), []byte(payload))) {
		b.log.V(1).Info("Duplicate command dropped", "topic", topic, "id", msg.MessageID())
		return nil
	}

	b.log.Info("Command from MQTT", "topic", topic, "cmd", payload)
	b.dispatcher.DispatchRaw(cmd.Kind.String(), cmd.Encode())
	return nil
}
