package mqttbus

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-logr/logr"
	"github.com/google/uuid"
)

type Config struct {
	Host       string
	Port       int
	User       string
	Password   string
	ClientID   string // vuoto: generato come <prefix>-<uuid>
	MaxRetries int
}

func (c Config) BrokerURL() string {
	return fmt.Sprintf("tcp://%s:%d", c.Host, c.Port)
}

// clientID ritorna l'id configurato o ne genera uno univoco.
func (c Config) clientID(prefix string) string {
	if c.ClientID != "" {
		return c.ClientID
	}
	return prefix + "-" + uuid.NewString()
}

// Connect apre la connessione al broker con retry esponenziale.
// La connessione viene chiusa quando ctx termina.
func Connect(ctx context.Context, log logr.Logger, cfg Config, prefix string) (mqtt.Client, error) {
	connAddr := cfg.BrokerURL()

	opts := mqtt.NewClientOptions()
	opts.AddBroker(connAddr)
	opts.SetUsername(cfg.User)
	opts.SetPassword(cfg.Password)
	opts.SetClientID(cfg.clientID(prefix))
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Error(err, "MQTT connection lost", "broker", connAddr)
	})

	// Exponential backoff per le retry in caso di fail
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 10 * time.Second
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 5
	}

	var client mqtt.Client
	err := backoff.Retry(func() error {
		client = mqtt.NewClient(opts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			log.V(1).Info("Failed to connect to MQTT broker", "broker", connAddr, "error", token.Error().Error())
			return token.Error()
		}
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(maxRetries-1)), ctx))
	if err != nil {
		return nil, fmt.Errorf("could not establish MQTT connection to %s after retries: %w", connAddr, err)
	}

	log.Info("Connected to MQTT broker", "broker", connAddr)

	go func() {
		<-ctx.Done()
		Close(log, client)
	}()

	return client, nil
}

func Close(log logr.Logger, client mqtt.Client) {
	if client != nil && client.IsConnected() {
		client.Disconnect(250)
		log.Info("MQTT connection closed")
	}
}
