package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-logr/logr"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"golang.org/x/sync/errgroup"

	"github.com/LeonardoBeccarini/irrigation-console/pkg/dedup"
	"github.com/LeonardoBeccarini/irrigation-console/pkg/mqttbus"
)

// Console tiene insieme i componenti di un processo `run`.
type Console struct {
	log        logr.Logger
	cfg        Config
	Metrics    *Metrics
	Tree       *WidgetTree
	View       *View
	Client     *DeviceClient
	Dispatcher *Dispatcher
	Poller     *Poller
	Status     *StatusServer

	mqtt     mqtt.Client
	consumer *mqttbus.Consumer
	closers  []func()

	// tempo concesso ai comandi in volo allo shutdown
	shutdownGrace time.Duration
}

// New costruisce la console e apre le connessioni opzionali (MQTT, InfluxDB).
// ctx governa la vita delle connessioni e dei dispatch.
func New(ctx context.Context, log logr.Logger, cfg Config, out io.Writer) (*Console, error) {
	c := &Console{
		log:     log,
		cfg:     cfg,
		Metrics: NewMetrics(),
		Tree:    NewWidgetTree(),
		Client:  NewDeviceClient(cfg.Device, cfg.Breaker),

		shutdownGrace: 2 * time.Second,
	}
	c.View = NewView(c.Tree)
	c.Dispatcher = NewDispatcher(ctx, log, c.Client, c.Metrics)

	var sinks []Sink
	if cfg.View && out != nil {
		sinks = append(sinks, NewViewSink(c.View, out))
	}

	var history *History
	if cfg.Influx.Enabled {
		ic := influxdb2.NewClient(cfg.Influx.URL, cfg.Influx.Token)
		wapi := ic.WriteAPI(cfg.Influx.Org, cfg.Influx.Bucket)
		history = NewHistory(log, wapi, cfg.MQTT.Device)
		sinks = append(sinks, history)
		// consenti flush prima di chiudere
		c.closers = append(c.closers, func() {
			wapi.Flush()
			ic.Close()
		})
		log.Info("History enabled", "url", cfg.Influx.URL, "bucket", cfg.Influx.Bucket)
	}

	if cfg.MQTT.Enabled {
		client, err := mqttbus.Connect(ctx, log, mqttbus.Config{
			Host:     cfg.MQTT.Host,
			Port:     cfg.MQTT.Port,
			User:     cfg.MQTT.User,
			Password: cfg.MQTT.Password,
			ClientID: cfg.MQTT.ClientID,
		}, "irrigation-console")
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("mqtt: %w", err)
		}
		c.mqtt = client
		c.closers = append(c.closers, func() { mqttbus.Close(log, client) })

		// stato retained: chi si sottoscrive riceve subito l'ultimo snapshot
		pub := mqttbus.NewPublisher(client, cfg.MQTT.StateTopic(), 0, true)
		bridge := NewBridge(log, pub, c.Dispatcher, dedup.New(cfg.MQTT.DedupTTL, 1000))
		c.consumer = mqttbus.NewConsumer(client, log.WithName("mqtt"), cfg.MQTT.CommandTopic(), 1, bridge.HandleCommand)
		sinks = append(sinks, bridge)
	}

	c.Poller = NewPoller(log, c.Client, NewRenderer(c.Tree), c.Metrics, sinks...)
	c.Status = NewStatusServer(log, c.Poller, c.Client, c.Tree, c.Metrics)
	if c.mqtt != nil {
		c.Status.WithMQTT(c.mqtt)
	}
	if history != nil {
		c.Status.WithHistory(history)
	}
	return c, nil
}

// Run avvia poller, status server, consumer MQTT e (se in non è nil) il prompt.
// Ritorna alla cancellazione di ctx o su "quit". A fine input il prompt si chiude
// ma il poll continua fino al segnale.
func (c *Console) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.Poller.Run(ctx) })

	if c.cfg.HTTPAddr != "" || c.cfg.GRPCAddr != "" {
		g.Go(func() error { return c.Status.Serve(ctx, c.cfg.HTTPAddr, c.cfg.GRPCAddr) })
	}
	if c.consumer != nil {
		g.Go(func() error { return c.consumer.Consume(ctx) })
	}
	// il prompt resta fuori dal gruppo: una Read su stdin non si interrompe con ctx
	if in != nil {
		go func() {
			err := NewPrompt(in, out, c.Dispatcher, c.View).Run(ctx)
			switch {
			case errors.Is(err, ErrQuit):
				cancel()
			case err != nil:
				c.log.Error(err, "Prompt failed, console keeps polling")
			default:
				c.log.V(1).Info("Input closed, console keeps polling")
			}
		}()
	}

	err := g.Wait()
	c.Dispatcher.Shutdown(c.shutdownGrace)
	return err
}

func (c *Console) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}
