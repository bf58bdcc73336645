package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/LeonardoBeccarini/irrigation-console/internal/hlog"
	"github.com/LeonardoBeccarini/irrigation-console/internal/model"
	"github.com/LeonardoBeccarini/irrigation-console/internal/services/console"
)

var flags struct {
	Config   string
	Verbose  bool
	Debug    bool
	LogFile  string
	Json     bool
	NoPrompt bool
}

var v = viper.New()

var rootCmd = &cobra.Command{
	Use:          "irrigation-console",
	Short:        "Console for the irrigation controller: live status and channel commands",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		hlog.Init(hlog.Options{Verbose: flags.Verbose, Debug: flags.Debug, File: flags.LogFile})
		if flags.Config != "" {
			v.SetConfigFile(flags.Config)
			if err := v.ReadInConfig(); err != nil {
				return fmt.Errorf("config %s: %w", flags.Config, err)
			}
			hlog.Logger.Info("Configuration loaded", "file", v.ConfigFileUsed())
		}
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Poll the controller every second, show the widgets and accept actions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := console.LoadConfig(v)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		log := hlog.Logger

		c, err := console.New(ctx, log, cfg, os.Stdout)
		if err != nil {
			return err
		}
		defer c.Close()

		log.Info("Console started", "device", cfg.Device.URL)
		if flags.NoPrompt {
			return c.Run(ctx, nil, os.Stdout)
		}
		return c.Run(ctx, os.Stdin, os.Stdout)
	},
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Poll the controller once and print the widgets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := console.LoadConfig(v)
		if err != nil {
			return err
		}
		client := console.NewDeviceClient(cfg.Device, console.BreakerConfig{})
		s, err := client.Poll(cmd.Context())
		if err != nil {
			return err
		}
		tree := console.NewWidgetTree()
		console.NewRenderer(tree).Render(s)
		return printResult(tree.Copy())
	},
}

func printResult(out any) error {
	var b []byte
	var err error
	if flags.Json {
		b, err = json.Marshal(out)
	} else {
		b, err = yaml.Marshal(out)
	}
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

// oneShot invia un singolo comando e attende l'esito della richiesta.
func oneShot(ctx context.Context, cmd model.Command) error {
	cfg, err := console.LoadConfig(v)
	if err != nil {
		return err
	}
	client := console.NewDeviceClient(cfg.Device, console.BreakerConfig{})
	d := console.NewDispatcher(ctx, hlog.Logger, client, nil)
	d.Dispatch(cmd)
	d.Wait()
	fmt.Println(cmd.Encode())
	return nil
}

var haltCmd = &cobra.Command{
	Use:   "halt <chan>",
	Short: "Stop watering on a channel (AH<chan>)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return oneShot(cmd.Context(), model.Command{Kind: model.KindHalt, Channel: args[0]})
	},
}

var armCmd = &cobra.Command{
	Use:   "arm <chan>",
	Short: "Start a watering event on a channel (AA<chan>)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return oneShot(cmd.Context(), model.Command{Kind: model.KindArm, Channel: args[0]})
	},
}

var setCmd = &cobra.Command{
	Use:   "set <chan> <mode> <frequency> <goal>",
	Short: "Store channel settings (S<chan>,<mode>,<frequency>,<goal>)",
	Long: "Store channel settings. Mode: " +
		strconv.Itoa(int(model.ModeManual)) + "=Manual " +
		strconv.Itoa(int(model.ModeTimed)) + "=Timed " +
		strconv.Itoa(int(model.ModeWatered)) + "=Watered. Values are sent as typed.",
	Args: cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		return oneShot(cmd.Context(), model.SetChannelRaw(args[0], args[1], args[2], args[3]))
	},
}

func init() {
	console.SetDefaults(v)

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.Config, "config", "c", "", "YAML configuration `file`")
	pf.BoolVarP(&flags.Verbose, "verbose", "v", false, "verbose output (info level)")
	pf.BoolVarP(&flags.Debug, "debug", "d", false, "debug output (debug level, shows V(1) logs)")
	pf.StringVar(&flags.LogFile, "log-file", "", "write logs to a rotating `file` instead of stderr")
	pf.String("device-url", "", "controller base URL (device.url)")
	pf.Duration("timeout", 0, "request timeout, 0 = none (device.timeout)")
	rootCmd.MarkFlagsMutuallyExclusive("verbose", "debug")
	_ = v.BindPFlag("device.url", pf.Lookup("device-url"))
	_ = v.BindPFlag("device.timeout", pf.Lookup("timeout"))

	runCmd.Flags().BoolVar(&flags.NoPrompt, "no-prompt", false, "do not read actions from stdin")
	runCmd.Flags().Bool("view", false, "redraw the widget table after every snapshot")
	runCmd.Flags().String("http", ":5009", "status server address, empty disables (http.addr)")
	runCmd.Flags().String("grpc", "", "gRPC health address, empty disables (grpc.addr)")
	runCmd.Flags().Bool("mqtt", false, "enable the MQTT bridge (mqtt.enabled)")
	_ = v.BindPFlag("view", runCmd.Flags().Lookup("view"))
	_ = v.BindPFlag("http.addr", runCmd.Flags().Lookup("http"))
	_ = v.BindPFlag("grpc.addr", runCmd.Flags().Lookup("grpc"))
	_ = v.BindPFlag("mqtt.enabled", runCmd.Flags().Lookup("mqtt"))

	showCmd.Flags().BoolVarP(&flags.Json, "json", "j", false, "output in json format")

	rootCmd.AddCommand(runCmd, showCmd, haltCmd, armCmd, setCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
