package connector

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents database connection configuration.
type Config struct {
	Driver         string            `mapstructure:"driver" json:"driver" yaml:"driver"`
	Provider       string            `mapstructure:"provider" json:"provider" yaml:"provider"`
	DSN            string            `mapstructure:"dsn" json:"dsn" yaml:"dsn"`
	Host           string            `mapstructure:"host" json:"host" yaml:"host"`
	Port           int               `mapstructure:"port" json:"port" yaml:"port"`
	Database       string            `mapstructure:"database" json:"database" yaml:"database"`
	Username       string            `mapstructure:"username" json:"username" yaml:"username"`
	Password       string            `mapstructure:"password" json:"password" yaml:"password"`
	SSLMode        string            `mapstructure:"ssl_mode" json:"ssl_mode" yaml:"ssl_mode"`
	Params         map[string]string `mapstructure:"params" json:"params" yaml:"params"`
	Pool           PoolConfig        `mapstructure:"pool" json:"pool" yaml:"pool"`
	ConnectTimeout time.Duration     `mapstructure:"connect_timeout" json:"connect_timeout" yaml:"connect_timeout"`
	CommandTimeout time.Duration     `mapstructure:"command_timeout" json:"command_timeout" yaml:"command_timeout"`
	Retry          *RetryConfig      `mapstructure:"retry" json:"retry,omitempty" yaml:"retry,omitempty"`
}

// PoolConfig defines connection pool settings.
type PoolConfig struct {
	MaxOpen     int           `mapstructure:"max_open" json:"max_open" yaml:"max_open"`
	MaxIdle     int           `mapstructure:"max_idle" json:"max_idle" yaml:"max_idle"`
	MaxLifetime time.Duration `mapstructure:"max_lifetime" json:"max_lifetime" yaml:"max_lifetime"`
	MaxIdleTime time.Duration `mapstructure:"max_idle_time" json:"max_idle_time" yaml:"max_idle_time"`
}

// RetryConfig defines connection retry behavior.
type RetryConfig struct {
	MaxRetries int           `mapstructure:"max_retries" json:"max_retries" yaml:"max_retries"`
	BaseDelay  time.Duration `mapstructure:"base_delay" json:"base_delay" yaml:"base_delay"`
	MaxDelay   time.Duration `mapstructure:"max_delay" json:"max_delay" yaml:"max_delay"`
	Backoff    float64       `mapstructure:"backoff" json:"backoff" yaml:"backoff"`
}

// ClusterConfig defines a primary with read replicas.
type ClusterConfig struct {
	Primary      Config   `mapstructure:"primary" json:"primary" yaml:"primary"`
	Replicas     []Config `mapstructure:"replicas" json:"replicas" yaml:"replicas"`
	ReadStrategy string   `mapstructure:"read_strategy" json:"read_strategy" yaml:"read_strategy"`
}

var (
	// ErrNoDriver is returned when a configuration names no driver.
	ErrNoDriver = errors.New("netrube: connection driver is required")
	// ErrUnknownDriver is returned when no provider is registered for a driver.
	ErrUnknownDriver = errors.New("netrube: unknown connection driver")
)

// EnvPrefix prefixes environment overrides, e.g. NETRUBE_HOST.
const EnvPrefix = "NETRUBE"

// LoadConfig reads a configuration file (YAML, JSON or TOML, by extension)
// and applies NETRUBE_* environment overrides. With an empty path it looks
// for netrube.* in the working directory and is fine without one.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("pool.max_open", 10)
	v.SetDefault("pool.max_idle", 5)
	v.SetDefault("pool.max_lifetime", time.Hour)
	v.SetDefault("pool.max_idle_time", 30*time.Minute)
	v.SetDefault("connect_timeout", 10*time.Second)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("netrube")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range []string{"driver", "provider", "dsn", "host", "port", "database", "username", "password", "ssl_mode"} {
		_ = v.BindEnv(key)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the fields every provider needs.
func (c *Config) Validate() error {
	if c.Driver == "" {
		return ErrNoDriver
	}
	if c.Retry != nil && c.Retry.MaxRetries < 0 {
		return fmt.Errorf("invalid retry count: %d", c.Retry.MaxRetries)
	}
	if c.DSN == "" && (c.Port < 0 || c.Port > 65535) {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	return nil
}

// ValidateCluster validates cluster configuration.
func (cc *ClusterConfig) ValidateCluster() error {
	if err := cc.Primary.Validate(); err != nil {
		return fmt.Errorf("primary: %w", err)
	}
	for i := range cc.Replicas {
		if err := cc.Replicas[i].Validate(); err != nil {
			return fmt.Errorf("replica %d: %w", i, err)
		}
	}

	switch cc.ReadStrategy {
	case "", "primary", "round_robin", "random":
		return nil
	}
	return fmt.Errorf("invalid read strategy: %s", cc.ReadStrategy)
}
