package subscription

import "time"

// Options configures a subscription. They are the requested values; the
// server may revise them, see the Current* accessors of Subscription.
type Options struct {
	// Name is used in log output only.
	Name string `yaml:"name"`

	PublishingInterval         time.Duration `yaml:"publishingInterval"`
	KeepAliveCount             uint32        `yaml:"keepAliveCount"`
	LifetimeCount              uint32        `yaml:"lifetimeCount"`
	MaxNotificationsPerPublish uint32        `yaml:"maxNotificationsPerPublish"`
	Priority                   uint8         `yaml:"priority"`
	PublishingEnabled          bool          `yaml:"publishingEnabled"`

	// MinLifetimeInterval raises the lifetime count so that the server keeps
	// the subscription at least this long without a publish request.
	MinLifetimeInterval time.Duration `yaml:"minLifetimeInterval"`

	// Handler receives notifications. Nil discards them.
	Handler Handler `yaml:"-"`
}

// DefaultOptions returns options for a 1s subscription.
func DefaultOptions() Options {
	return Options{
		PublishingInterval: time.Second,
		KeepAliveCount:     10,
		PublishingEnabled:  true,
	}
}
