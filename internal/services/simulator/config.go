package simulator

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "SIM"

type Config struct {
	HTTPAddr    string
	Tick        time.Duration
	FlowPerMin  float64 // litri al minuto per canale aperto
	Seed        float64 // umidità iniziale [0..1]
	GainPerMin  float64
	DecayPerMin float64
	BaseTemp    float64

	BrokerEnabled bool
	BrokerAddr    string
	Device        string
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("tick", 100*time.Millisecond)
	v.SetDefault("flow_lpm", 6.0)
	v.SetDefault("soil.seed", defaultSeed)
	v.SetDefault("soil.gain_per_min", 0.05)
	v.SetDefault("soil.decay_per_min", 0.005)
	v.SetDefault("temperature.base", 21.0)
	v.SetDefault("broker.enabled", false)
	v.SetDefault("broker.addr", ":1883")
	v.SetDefault("device", "esp32")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

func LoadConfig(v *viper.Viper) (Config, error) {
	cfg := Config{
		HTTPAddr:      v.GetString("http.addr"),
		Tick:          v.GetDuration("tick"),
		FlowPerMin:    v.GetFloat64("flow_lpm"),
		Seed:          v.GetFloat64("soil.seed"),
		GainPerMin:    v.GetFloat64("soil.gain_per_min"),
		DecayPerMin:   v.GetFloat64("soil.decay_per_min"),
		BaseTemp:      v.GetFloat64("temperature.base"),
		BrokerEnabled: v.GetBool("broker.enabled"),
		BrokerAddr:    v.GetString("broker.addr"),
		Device:        v.GetString("device"),
	}
	if cfg.Tick <= 0 {
		return Config{}, fmt.Errorf("tick must be positive")
	}
	if cfg.FlowPerMin < 0 {
		return Config{}, fmt.Errorf("flow_lpm must not be negative")
	}
	if cfg.HTTPAddr == "" {
		return Config{}, fmt.Errorf("http.addr is required")
	}
	return cfg, nil
}
