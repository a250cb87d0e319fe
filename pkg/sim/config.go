package sim

import (
	"log/slog"
	"time"

	"github.com/juju/clock"
)

// Config configures a simulated server.
type Config struct {
	// SessionTimeout is reported by every session.
	SessionTimeout time.Duration `yaml:"sessionTimeout"`

	// MinPublishingInterval is the fastest publishing interval granted.
	MinPublishingInterval time.Duration `yaml:"minPublishingInterval"`

	// MaxRetransmitQueue bounds the retransmission queue per subscription.
	MaxRetransmitQueue int `yaml:"maxRetransmitQueue"`

	// MaxConcurrentPublish limits outstanding publish requests per session.
	// Excess requests fail with BadTooManyPublishRequests. 0 is unlimited.
	MaxConcurrentPublish int `yaml:"maxConcurrentPublish"`

	// DisableTransfer makes TransferSubscriptions fail with
	// BadServiceUnsupported.
	DisableTransfer bool `yaml:"disableTransfer"`

	Clock  clock.Clock  `yaml:"-"`
	Logger *slog.Logger `yaml:"-"`
}

// DefaultConfig returns the default simulator configuration.
func DefaultConfig() Config {
	return Config{
		SessionTimeout:        time.Minute,
		MinPublishingInterval: 50 * time.Millisecond,
		MaxRetransmitQueue:    100,
	}
}
