// Package config loads the YAML configuration of a subscription client:
// manager settings, the simulated server and the subscriptions with their
// monitored items.
//
// Durations are written as Go duration strings:
//
//	manager:
//	  minPublishWorkerCount: 2
//	  maxPublishWorkerCount: 15
//	subscriptions:
//	  - name: line1
//	    publishingInterval: 250ms
//	    keepAliveCount: 10
//	    publishingEnabled: true
//	    items:
//	      - nodeId: ns=2;s=Line1.Temperature
//	        queueSize: 10
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gopcua/opcua/ua"
	"gopkg.in/yaml.v3"

	"github.com/mash-protocol/uasub-go/pkg/sim"
	"github.com/mash-protocol/uasub-go/pkg/subscription"
)

// Config is the root of a configuration file.
type Config struct {
	LogLevel    string `yaml:"logLevel"`
	MetricsAddr string `yaml:"metricsAddr"`
	TraceFile   string `yaml:"traceFile"`

	Manager       subscription.ManagerConfig `yaml:"manager"`
	Simulator     sim.Config                 `yaml:"simulator"`
	Subscriptions []Subscription             `yaml:"subscriptions"`
}

// Subscription is a subscription definition.
type Subscription struct {
	subscription.Options `yaml:",inline"`

	Items []Item `yaml:"items"`
}

// Item is a monitored item definition.
type Item struct {
	NodeID           string        `yaml:"nodeId"`
	SamplingInterval time.Duration `yaml:"samplingInterval"`
	QueueSize        uint32        `yaml:"queueSize"`
	DiscardOldest    bool          `yaml:"discardOldest"`
}

// Options converts the definition to item options.
func (i Item) Options() (subscription.ItemOptions, error) {
	node, err := ua.ParseNodeID(i.NodeID)
	if err != nil {
		return subscription.ItemOptions{}, fmt.Errorf("node id %q: %w", i.NodeID, err)
	}
	return subscription.ItemOptions{
		NodeID:           node,
		SamplingInterval: i.SamplingInterval,
		QueueSize:        i.QueueSize,
		DiscardOldest:    i.DiscardOldest,
	}, nil
}

// LoadError describes a configuration that could not be loaded.
type LoadError struct {
	File    string
	Message string
	Cause   error
}

func (e *LoadError) Error() string {
	msg := e.Message
	if e.File != "" {
		msg = e.File + ": " + msg
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *LoadError) Unwrap() error { return e.Cause }

// Default returns the configuration used for absent keys.
func Default() *Config {
	return &Config{
		LogLevel:  "info",
		Manager:   subscription.DefaultManagerConfig(),
		Simulator: sim.DefaultConfig(),
	}
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &LoadError{Message: "failed to parse YAML", Cause: err}
	}
	for i := range cfg.Subscriptions {
		cfg.Subscriptions[i].applyDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, &LoadError{Message: "invalid configuration", Cause: err}
	}
	return cfg, nil
}

// Load reads and parses a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{File: path, Message: "failed to read file", Cause: err}
	}
	cfg, err := Parse(data)
	if err != nil {
		if le, ok := err.(*LoadError); ok {
			le.File = path
		}
		return nil, err
	}
	return cfg, nil
}

func (s *Subscription) applyDefaults() {
	def := subscription.DefaultOptions()
	if s.PublishingInterval == 0 {
		s.PublishingInterval = def.PublishingInterval
	}
	if s.KeepAliveCount == 0 {
		s.KeepAliveCount = def.KeepAliveCount
	}
}

// Validate checks value ranges and node ids.
func (c *Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	m := c.Manager
	if m.MinPublishWorkerCount < 0 {
		return fmt.Errorf("manager.minPublishWorkerCount must not be negative")
	}
	if m.MaxPublishWorkerCount < 1 {
		return fmt.Errorf("manager.maxPublishWorkerCount must be at least 1")
	}
	if m.MinPublishWorkerCount > m.MaxPublishWorkerCount {
		return fmt.Errorf("manager.minPublishWorkerCount %d exceeds maxPublishWorkerCount %d",
			m.MinPublishWorkerCount, m.MaxPublishWorkerCount)
	}
	if m.Backoff.Initial < 0 || m.Backoff.Max < 0 {
		return fmt.Errorf("manager.backoff durations must not be negative")
	}
	if c.Simulator.MinPublishingInterval <= 0 {
		return fmt.Errorf("simulator.minPublishingInterval must be positive")
	}

	names := make(map[string]bool, len(c.Subscriptions))
	for i, s := range c.Subscriptions {
		if s.Name != "" {
			if names[s.Name] {
				return fmt.Errorf("subscriptions[%d]: duplicate name %q", i, s.Name)
			}
			names[s.Name] = true
		}
		if s.PublishingInterval < 0 {
			return fmt.Errorf("subscriptions[%d]: publishingInterval must not be negative", i)
		}
		if s.MinLifetimeInterval < 0 {
			return fmt.Errorf("subscriptions[%d]: minLifetimeInterval must not be negative", i)
		}
		for j, item := range s.Items {
			if item.NodeID == "" {
				return fmt.Errorf("subscriptions[%d].items[%d]: nodeId is required", i, j)
			}
			if _, err := item.Options(); err != nil {
				return fmt.Errorf("subscriptions[%d].items[%d]: %w", i, j, err)
			}
		}
	}
	return nil
}

// Level parses LogLevel ("debug", "info", "warn", "error").
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("logLevel: %w", err)
	}
	return level, nil
}
