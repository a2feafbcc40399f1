// Package config handles global configuration loading using viper.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"firestige.xyz/strix/internal/core"
	"firestige.xyz/strix/internal/spead"
)

// GlobalConfig represents the top-level static configuration.
// Maps to the root keys of the YAML config file.
type GlobalConfig struct {
	Node      NodeConfig      `mapstructure:"node"`
	Stream    StreamConfig    `mapstructure:"stream"`
	Transport TransportConfig `mapstructure:"transport"`
	Source    SourceConfig    `mapstructure:"source"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Log       LogConfig       `mapstructure:"log"`
}

// ─── Node Identity ───

// NodeConfig contains node identification settings.
type NodeConfig struct {
	ID   string            `mapstructure:"id"` // Empty = os.Hostname()
	Tags map[string]string `mapstructure:"tags"`
}

// ─── Stream ───

// StreamConfig configures the packetizer and the send pipeline.
type StreamConfig struct {
	// HeapAddressBits is the address-field width of the SPEAD flavour.
	// Must be a multiple of 8. Default 40 (SPEAD-64-40).
	HeapAddressBits int `mapstructure:"heap_address_bits"`

	// MaxPacketSize is the wire-packet byte budget, header included.
	// Default 1472 (fits one Ethernet UDP datagram).
	MaxPacketSize int `mapstructure:"max_packet_size"`

	// RingCapacity bounds the packet queue between the generator and the
	// sender goroutines. Default 64.
	RingCapacity int `mapstructure:"ring_capacity"`

	// Senders is the number of consumer goroutines draining the ring.
	// Default 1.
	Senders int `mapstructure:"senders"`

	// PushRetries is how many times the producer retries a full ring before
	// dropping the packet. Default 40.
	PushRetries int `mapstructure:"push_retries"`

	// RetryBackoff is the pause between retries, e.g. "500us". Default 1ms.
	RetryBackoff string `mapstructure:"retry_backoff"`
}

// ─── Transport ───

// TransportConfig selects where packets go.
type TransportConfig struct {
	Type      string `mapstructure:"type"`       // "udp" | "file"
	Target    string `mapstructure:"target"`     // udp: host:port
	BatchSize int    `mapstructure:"batch_size"` // udp: datagrams per WriteBatch
	Path      string `mapstructure:"path"`       // file: dump path
}

// ─── Source ───

// SourceConfig selects the heap source. Options are decoded by the source
// implementation itself (mapstructure), so each source defines its own keys.
type SourceConfig struct {
	Type    string         `mapstructure:"type"` // "synthetic" | "pcap"
	Options map[string]any `mapstructure:"options"`
}

// ─── Metrics ───

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
	Path    string `mapstructure:"path"`
}

// ─── Log ───

// LogConfig contains logging settings.
type LogConfig struct {
	Level   string        `mapstructure:"level"`  // debug | info | warn | error
	Format  string        `mapstructure:"format"` // text | json
	Outputs OutputsConfig `mapstructure:"outputs"`
}

// OutputsConfig lists optional log sinks beyond stdout.
type OutputsConfig struct {
	File FileOutputConfig `mapstructure:"file"`
	Loki LokiOutputConfig `mapstructure:"loki"`
}

// FileOutputConfig configures rotating file output.
type FileOutputConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Path     string         `mapstructure:"path"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig configures lumberjack rotation.
type RotationConfig struct {
	MaxSizeMB  int  `mapstructure:"max_size_mb"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAgeDays int  `mapstructure:"max_age_days"`
	Compress   bool `mapstructure:"compress"`
}

// LokiOutputConfig configures the Loki push output.
type LokiOutputConfig struct {
	Enabled      bool              `mapstructure:"enabled"`
	Endpoint     string            `mapstructure:"endpoint"`
	Labels       map[string]string `mapstructure:"labels"`
	BatchSize    int               `mapstructure:"batch_size"`
	BatchTimeout string            `mapstructure:"batch_timeout"`
}

// Load reads and validates the configuration file at path.
func Load(path string) (*GlobalConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg GlobalConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("stream.heap_address_bits", 40)
	v.SetDefault("stream.max_packet_size", 1472)
	v.SetDefault("stream.ring_capacity", 64)
	v.SetDefault("stream.senders", 1)
	v.SetDefault("stream.push_retries", 40)
	v.SetDefault("stream.retry_backoff", "1ms")
	v.SetDefault("transport.type", "udp")
	v.SetDefault("transport.batch_size", 8)
	v.SetDefault("source.type", "synthetic")
	v.SetDefault("metrics.listen", "0.0.0.0:9090")
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Validate fails fast on configuration the pipeline cannot run with.
func (c *GlobalConfig) Validate() error {
	if _, err := spead.NewFlavour(c.Stream.HeapAddressBits); err != nil {
		return err
	}
	if c.Stream.MaxPacketSize < spead.PrefixSize+16 {
		return fmt.Errorf("%w: stream.max_packet_size %d (minimum %d)",
			core.ErrPacketSizeTooSmall, c.Stream.MaxPacketSize, spead.PrefixSize+16)
	}
	if c.Stream.RingCapacity <= 0 {
		return fmt.Errorf("%w: stream.ring_capacity must be positive", core.ErrConfigInvalid)
	}
	if c.Stream.Senders <= 0 {
		return fmt.Errorf("%w: stream.senders must be positive", core.ErrConfigInvalid)
	}
	if c.Stream.RetryBackoff != "" {
		if _, err := time.ParseDuration(c.Stream.RetryBackoff); err != nil {
			return fmt.Errorf("%w: stream.retry_backoff: %v", core.ErrConfigInvalid, err)
		}
	}
	switch c.Transport.Type {
	case "udp":
		if c.Transport.Target == "" {
			return fmt.Errorf("%w: transport.target is required for udp", core.ErrConfigInvalid)
		}
	case "file":
		if c.Transport.Path == "" {
			return fmt.Errorf("%w: transport.path is required for file", core.ErrConfigInvalid)
		}
	default:
		return fmt.Errorf("%w: %q", core.ErrTransportUnknown, c.Transport.Type)
	}
	return nil
}

// RetryBackoffDuration returns the parsed retry backoff.
func (c *StreamConfig) RetryBackoffDuration() time.Duration {
	d, err := time.ParseDuration(c.RetryBackoff)
	if err != nil || d <= 0 {
		return time.Millisecond
	}
	return d
}
