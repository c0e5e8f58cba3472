package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	SLA      SLAConfig      `yaml:"sla"`
	Pricing  PricingConfig  `yaml:"pricing"`
	Publish  PublishConfig  `yaml:"publish"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

type RabbitMQConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// SLAConfig holds the deadline timeouts applied at order creation and the
// early-warning thresholds the tracker fires ahead of each deadline.
type SLAConfig struct {
	AcceptTimeoutMinutes int `yaml:"accept_timeout_minutes"`
	ReadyTimeoutMinutes  int `yaml:"ready_timeout_minutes"`
	AcceptWarningSeconds int `yaml:"accept_warning_seconds"`
	ReadyWarningSeconds  int `yaml:"ready_warning_seconds"`
}

func (c SLAConfig) AcceptTimeout() time.Duration {
	return time.Duration(c.AcceptTimeoutMinutes) * time.Minute
}

func (c SLAConfig) ReadyTimeout() time.Duration {
	return time.Duration(c.ReadyTimeoutMinutes) * time.Minute
}

func (c SLAConfig) AcceptWarning() time.Duration {
	return time.Duration(c.AcceptWarningSeconds) * time.Second
}

func (c SLAConfig) ReadyWarning() time.Duration {
	return time.Duration(c.ReadyWarningSeconds) * time.Second
}

type PricingConfig struct {
	DeliveryFee float64 `yaml:"delivery_fee"`
	ServiceFee  float64 `yaml:"service_fee"`
}

// PublishConfig bounds a single publish attempt and the retry schedule the
// distributor applies on backpressure.
type PublishConfig struct {
	TimeoutSeconds int `yaml:"timeout_seconds"`
	MaxAttempts    int `yaml:"max_attempts"`
	BackoffMillis  int `yaml:"backoff_millis"`
}

func (c PublishConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c PublishConfig) Backoff() time.Duration {
	return time.Duration(c.BackoffMillis) * time.Millisecond
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.SLA.AcceptTimeoutMinutes == 0 {
		c.SLA.AcceptTimeoutMinutes = 5
	}
	if c.SLA.ReadyTimeoutMinutes == 0 {
		c.SLA.ReadyTimeoutMinutes = 30
	}
	if c.SLA.AcceptWarningSeconds == 0 {
		c.SLA.AcceptWarningSeconds = 60
	}
	if c.SLA.ReadyWarningSeconds == 0 {
		c.SLA.ReadyWarningSeconds = 300
	}
	if c.Publish.TimeoutSeconds == 0 {
		c.Publish.TimeoutSeconds = 5
	}
	if c.Publish.MaxAttempts == 0 {
		c.Publish.MaxAttempts = 3
	}
	if c.Publish.BackoffMillis == 0 {
		c.Publish.BackoffMillis = 200
	}
}
