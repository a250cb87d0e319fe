package metrics

import (
	"time"

	"github.com/mash-protocol/uasub-go/pkg/subscription"
)

// NopMetrics discards all measurements.
type NopMetrics struct{}

var _ subscription.Metrics = (*NopMetrics)(nil)

// NewNop returns a no-op collector.
func NewNop() *NopMetrics {
	return &NopMetrics{}
}

func (n *NopMetrics) RecordPublish(_ string, _ time.Duration)        {}
func (n *NopMetrics) SetPublishWorkers(_ int)                        {}
func (n *NopMetrics) SetMaxPublishWorkers(_ int)                     {}
func (n *NopMetrics) RecordAcks(_ int)                               {}
func (n *NopMetrics) RecordRepublish(_ bool)                         {}
func (n *NopMetrics) RecordLostMessages(_ int)                       {}
func (n *NopMetrics) RecordDroppedMessage()                          {}
func (n *NopMetrics) RecordPublishState(_ subscription.PublishState) {}
