package mqttbus

import (
	"context"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-logr/logr"
)

// Handler riceve il topic di sottoscrizione e il payload del messaggio.
type Handler func(topic string, message mqtt.Message) error

// Consumer holds the client and the topic it subscribes to
type Consumer struct {
	client  mqtt.Client
	log     logr.Logger
	handler Handler
	topic   string
	qos     byte
}

func NewConsumer(client mqtt.Client, log logr.Logger, topic string, qos byte, handler Handler) *Consumer {
	return &Consumer{client: client, log: log, topic: topic, qos: qos, handler: handler}
}

// Consume subscribes to the topic and processes messages using the handler.
// It blocks until the context is cancelled.
func (c *Consumer) Consume(ctx context.Context) error {
	token := c.client.Subscribe(c.topic, c.qos, func(_ mqtt.Client, message mqtt.Message) {
		if c.handler == nil {
			c.log.Info("No handler set", "topic", c.topic)
			return
		}
		if err := c.handler(c.topic, message); err != nil {
			c.log.Error(err, "Error handling message", "topic", c.topic)
		}
	})
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", c.topic, token.Error())
	}
	c.log.Info("Subscribed", "topic", c.topic)

	<-ctx.Done()

	// Unsubscribe when exiting to clean up
	if c.client.IsConnected() {
		c.client.Unsubscribe(c.topic).Wait()
	}
	return nil
}
