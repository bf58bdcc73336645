package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/LeonardoBeccarini/irrigation-console/internal/hlog"
	"github.com/LeonardoBeccarini/irrigation-console/internal/services/simulator"
)

var flags struct {
	Config  string
	Verbose bool
	Debug   bool
}

var v = viper.New()

var rootCmd = &cobra.Command{
	Use:          "irrigation-sim",
	Short:        "Stand-in irrigation controller serving /poll and /int",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := hlog.Init(hlog.Options{Verbose: flags.Verbose, Debug: flags.Debug})
		if flags.Config != "" {
			v.SetConfigFile(flags.Config)
			if err := v.ReadInConfig(); err != nil {
				return fmt.Errorf("config %s: %w", flags.Config, err)
			}
		}
		cfg, err := simulator.LoadConfig(v)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		soil := simulator.NewSoil(cfg.Seed, cfg.GainPerMin, cfg.DecayPerMin, cfg.BaseTemp)
		ctrl := simulator.NewController(log, cfg.FlowPerMin, soil)
		go ctrl.Run(ctx, cfg.Tick)

		if cfg.BrokerEnabled {
			broker, err := simulator.NewBroker(log, cfg.BrokerAddr)
			if err != nil {
				return err
			}
			if err := broker.Start(); err != nil {
				return err
			}
			defer broker.Close()
			topic := simulator.EventTopic(cfg.Device)
			ctrl.OnEvent(func(e simulator.Event) {
				if err := broker.PublishEvent(topic, e); err != nil {
					log.Error(err, "Publish event failed", "topic", topic)
				}
			})
		}

		e := simulator.NewAPI(log, ctrl)
		go func() {
			<-ctx.Done()
			shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = e.Shutdown(shCtx)
		}()
		log.Info("Simulator listening", "addr", cfg.HTTPAddr)
		if err := e.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	simulator.SetDefaults(v)

	f := rootCmd.Flags()
	f.StringVarP(&flags.Config, "config", "c", "", "YAML configuration `file`")
	f.BoolVarP(&flags.Verbose, "verbose", "v", false, "verbose output (info level)")
	f.BoolVarP(&flags.Debug, "debug", "d", false, "debug output (debug level, shows V(1) logs)")
	f.String("http", ":8080", "HTTP address (http.addr)")
	f.Bool("broker", false, "run the embedded MQTT broker (broker.enabled)")
	f.String("broker-addr", ":1883", "embedded broker address (broker.addr)")
	f.Float64("flow", 6, "litres per minute per open channel (flow_lpm)")
	_ = v.BindPFlag("http.addr", f.Lookup("http"))
	_ = v.BindPFlag("broker.enabled", f.Lookup("broker"))
	_ = v.BindPFlag("broker.addr", f.Lookup("broker-addr"))
	_ = v.BindPFlag("flow_lpm", f.Lookup("flow"))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
