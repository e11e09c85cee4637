package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	_errors "github.com/mirzahilmi/lora-orion-bridge/internal/common/errors"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port            uint32  `json:"port" yaml:"port"`
	IsDevelopment   bool    `json:"isDevelopment" yaml:"isDevelopment"`
	ShutdownTimeout int64   `json:"shutdownTimeout" yaml:"shutdownTimeout"`
	QuiescenceMs    int64   `json:"quiescenceMs" yaml:"quiescenceMs"`
	Network         Network `json:"network" yaml:"network"`
	Orion           Orion   `json:"orion" yaml:"orion"`
	Radio           Radio   `json:"radio" yaml:"radio"`
	Mqtt            Mqtt    `json:"mqtt" yaml:"mqtt"`
	Oidc            Oidc    `json:"oidc" yaml:"oidc"`
}

// Network describes the uplink the bridge reaches Orion through. Joining the
// network is left to the host; the bridge only probes and waits for it.
type Network struct {
	Ssid          string `json:"ssid" yaml:"ssid"`
	Attempts      int    `json:"attempts" yaml:"attempts"`
	IntervalMs    int64  `json:"intervalMs" yaml:"intervalMs"`
	DialTimeoutMs int64  `json:"dialTimeoutMs" yaml:"dialTimeoutMs"`
}

type Orion struct {
	BaseUrl     string `json:"baseUrl" yaml:"baseUrl"`
	EntityId    string `json:"entityId" yaml:"entityId"`
	EntityType  string `json:"entityType" yaml:"entityType"`
	Service     string `json:"service" yaml:"service"`
	ServicePath string `json:"servicePath" yaml:"servicePath"`
	UserAgent   string `json:"userAgent" yaml:"userAgent"`
	TimeoutMs   int64  `json:"timeoutMs" yaml:"timeoutMs"`
}

type Radio struct {
	Frequency float64 `json:"frequency" yaml:"frequency"`
	Source    string  `json:"source" yaml:"source"`
	Path      string  `json:"path" yaml:"path"`
	QueueSize int     `json:"queueSize" yaml:"queueSize"`
}

type Mqtt struct {
	BrokerUrl string `json:"brokerUrl" yaml:"brokerUrl"`
	Username  string `json:"username" yaml:"username"`
	Password  string `json:"password" yaml:"password"`
	ClientId  string `json:"clientId" yaml:"clientId"`
	Topic     string `json:"topic" yaml:"topic"`
	Qos       byte   `json:"qos" yaml:"qos"`
}

type Oidc struct {
	Issuer   string `json:"issuer" yaml:"issuer"`
	ClientId string `json:"clientId" yaml:"clientId"`
}

const (
	RadioSourceMqtt  = "mqtt"
	RadioSourceStdin = "stdin"
	RadioSourceFile  = "file"
)

// Defaults describe one field receiver: sensor001 on a local Orion, 915 MHz, 5 s between cycles.
func Defaults() Config {
	return Config{
		Port:            8080,
		ShutdownTimeout: 10,
		QuiescenceMs:    5000,
		Network: Network{
			Attempts:      20,
			IntervalMs:    500,
			DialTimeoutMs: 2000,
		},
		Orion: Orion{
			BaseUrl:    "http://localhost:1026/v2/entities",
			EntityId:   "sensor001",
			EntityType: "sensorTempHum",
			UserAgent:  "lora-orion-bridge/1.0",
			TimeoutMs:  10000,
		},
		Radio: Radio{
			Frequency: 915e6,
			Source:    RadioSourceStdin,
			QueueSize: 1,
		},
		Mqtt: Mqtt{
			ClientId: "lora-orion-bridge",
			Topic:    "lora/rx",
		},
	}
}

// Load reads path on top of Defaults. An empty path yields the defaults.
// Files ending in .yaml or .yml are decoded as YAML, everything else as JSON.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, cfg.Validate()
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: cannot read file %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &cfg)
	default:
		err = json.Unmarshal(raw, &cfg)
	}
	if err != nil {
		return cfg, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	fields := map[string]string{}

	if u, err := url.Parse(c.Orion.BaseUrl); err != nil || u.Host == "" ||
		(u.Scheme != "http" && u.Scheme != "https") {
		fields["orion.baseUrl"] = "must be an absolute http(s) url"
	}
	if c.Orion.EntityId == "" {
		fields["orion.entityId"] = "must not be empty"
	}
	if c.Orion.EntityType == "" {
		fields["orion.entityType"] = "must not be empty"
	}
	if c.QuiescenceMs <= 0 {
		fields["quiescenceMs"] = "must be positive"
	}
	if c.Network.Attempts <= 0 {
		fields["network.attempts"] = "must be positive"
	}
	if c.Radio.QueueSize < 0 {
		fields["radio.queueSize"] = "must not be negative"
	}
	if c.Network.IntervalMs < 0 {
		fields["network.intervalMs"] = "must not be negative"
	}

	switch c.Radio.Source {
	case RadioSourceStdin:
	case RadioSourceFile:
		if c.Radio.Path == "" {
			fields["radio.path"] = "required for file source"
		}
	case RadioSourceMqtt:
		if c.Mqtt.BrokerUrl == "" {
			fields["mqtt.brokerUrl"] = "required for mqtt source"
		}
		if c.Mqtt.Topic == "" {
			fields["mqtt.topic"] = "required for mqtt source"
		}
		if c.Mqtt.Qos > 2 {
			fields["mqtt.qos"] = "must be 0, 1 or 2"
		}
	default:
		fields["radio.source"] = fmt.Sprintf("unknown source %q", c.Radio.Source)
	}

	if len(fields) > 0 {
		return _errors.NewValidationError(fields)
	}
	return nil
}

func (c Config) Quiescence() time.Duration {
	return time.Duration(c.QuiescenceMs) * time.Millisecond
}

func (n Network) Interval() time.Duration {
	return time.Duration(n.IntervalMs) * time.Millisecond
}

func (n Network) DialTimeout() time.Duration {
	return time.Duration(n.DialTimeoutMs) * time.Millisecond
}

func (o Orion) Timeout() time.Duration {
	return time.Duration(o.TimeoutMs) * time.Millisecond
}
