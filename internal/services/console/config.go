package console

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix: ogni chiave è sovrascrivibile da env, es. device.url -> CONSOLE_DEVICE_URL.
const EnvPrefix = "CONSOLE"

type DeviceConfig struct {
	URL         string
	PollPath    string
	CommandPath string
	Timeout     time.Duration // 0 = nessun timeout
}

type BreakerConfig struct {
	Failures int           // fallimenti consecutivi prima di aprire; 0 disabilita
	OpenFor  time.Duration // durata dello stato open
}

type MQTTConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	ClientID string
	Device   string // segmento del topic: irrigation/<device>/state, irrigation/<device>/cmd
	DedupTTL time.Duration
}

func (c MQTTConfig) StateTopic() string   { return "irrigation/" + c.Device + "/state" }
func (c MQTTConfig) CommandTopic() string { return "irrigation/" + c.Device + "/cmd" }

type InfluxConfig struct {
	Enabled bool
	URL     string
	Token   string
	Org     string
	Bucket  string
}

type Config struct {
	Device   DeviceConfig
	Breaker  BreakerConfig
	HTTPAddr string // vuoto: status server disabilitato
	GRPCAddr string // vuoto: health gRPC disabilitato
	View     bool   // vista terminale ad ogni snapshot
	MQTT     MQTTConfig
	Influx   InfluxConfig
}

// SetDefaults registra i default; va chiamato prima di LoadConfig.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("device.url", "http://192.168.4.1")
	v.SetDefault("device.poll_path", "/poll")
	v.SetDefault("device.command_path", "/int")
	v.SetDefault("device.timeout", time.Duration(0))

	v.SetDefault("breaker.failures", 5)
	v.SetDefault("breaker.open_for", 5*time.Second)

	v.SetDefault("http.addr", ":5009")
	v.SetDefault("grpc.addr", "")
	v.SetDefault("view", false)

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.host", "localhost")
	v.SetDefault("mqtt.port", 1883)
	v.SetDefault("mqtt.user", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.client_id", "")
	v.SetDefault("mqtt.device", "esp32")
	v.SetDefault("mqtt.dedup_ttl", 2*time.Minute)

	v.SetDefault("influx.enabled", false)
	v.SetDefault("influx.url", "http://influxdb:8086")
	v.SetDefault("influx.token", "")
	v.SetDefault("influx.org", "sdcc")
	v.SetDefault("influx.bucket", "irrigation")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

func LoadConfig(v *viper.Viper) (Config, error) {
	cfg := Config{
		Device: DeviceConfig{
			URL:         v.GetString("device.url"),
			PollPath:    v.GetString("device.poll_path"),
			CommandPath: v.GetString("device.command_path"),
			Timeout:     v.GetDuration("device.timeout"),
		},
		Breaker: BreakerConfig{
			Failures: v.GetInt("breaker.failures"),
			OpenFor:  v.GetDuration("breaker.open_for"),
		},
		HTTPAddr: v.GetString("http.addr"),
		GRPCAddr: v.GetString("grpc.addr"),
		View:     v.GetBool("view"),
		MQTT: MQTTConfig{
			Enabled:  v.GetBool("mqtt.enabled"),
			Host:     v.GetString("mqtt.host"),
			Port:     v.GetInt("mqtt.port"),
			User:     v.GetString("mqtt.user"),
			Password: v.GetString("mqtt.password"),
			ClientID: v.GetString("mqtt.client_id"),
			Device:   v.GetString("mqtt.device"),
			DedupTTL: v.GetDuration("mqtt.dedup_ttl"),
		},
		Influx: InfluxConfig{
			Enabled: v.GetBool("influx.enabled"),
			URL:     v.GetString("influx.url"),
			Token:   v.GetString("influx.token"),
			Org:     v.GetString("influx.org"),
			Bucket:  v.GetString("influx.bucket"),
		},
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	u, err := url.Parse(c.Device.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("device.url %q: must be an absolute http(s) URL", c.Device.URL)
	}
	if c.Device.Timeout < 0 {
		return fmt.Errorf("device.timeout must not be negative")
	}
	if c.Breaker.Failures > 0 && c.Breaker.OpenFor <= 0 {
		return fmt.Errorf("breaker.open_for must be positive when breaker.failures > 0")
	}
	if c.MQTT.Enabled && (c.MQTT.Device == "" || strings.ContainsAny(c.MQTT.Device, "/+#")) {
		return fmt.Errorf("mqtt.device %q: must be a single topic level", c.MQTT.Device)
	}
	if c.Influx.Enabled && (c.Influx.URL == "" || c.Influx.Bucket == "") {
		return fmt.Errorf("influx.url and influx.bucket are required when influx is enabled")
	}
	return nil
}
