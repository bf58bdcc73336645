package mqttbus

import (
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// IPublisher pubblica un messaggio sul topic del publisher.
type IPublisher interface {
	Publish(message any) error
}

// Publisher holds the client and the topic messages are published to
type Publisher struct {
	client   mqtt.Client
	topic    string
	qos      byte
	retained bool
}

func NewPublisher(client mqtt.Client, topic string, qos byte, retained bool) *Publisher {
	return &Publisher{client: client, topic: topic, qos: qos, retained: retained}
}

// Publish accetta string, []byte o qualunque valore serializzabile in JSON.
func (p *Publisher) Publish(message any) error {
	payload, err := encode(message)
	if err != nil {
		return fmt.Errorf("publish %s: %w", p.topic, err)
	}

	token := p.client.Publish(p.topic, p.qos, p.retained, payload)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("failed to publish message to %s: %w", p.topic, token.Error())
	}
	return nil
}

func encode(message any) ([]byte, error) {
	switch m := message.(type) {
	case []byte:
		return m, nil
	case string:
		return []byte(m), nil
	default:
		return json.Marshal(m)
	}
}
