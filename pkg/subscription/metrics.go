package subscription

import "time"

// Metrics receives pipeline measurements. Implementations must be safe for
// concurrent use. See package metrics for a Prometheus implementation.
type Metrics interface {
	// RecordPublish records a finished Publish call. status is the OPC UA
	// status code name, "Good" for success.
	RecordPublish(status string, latency time.Duration)

	// SetPublishWorkers reports the current worker pool size.
	SetPublishWorkers(n int)

	// SetMaxPublishWorkers reports the current worker ceiling.
	SetMaxPublishWorkers(n int)

	// RecordAcks records acknowledgements sent with a Publish.
	RecordAcks(n int)

	// RecordRepublish records the outcome of a Republish call.
	RecordRepublish(ok bool)

	// RecordLostMessages records sequence numbers that could not be
	// recovered.
	RecordLostMessages(n int)

	// RecordDroppedMessage records a stale or duplicate message.
	RecordDroppedMessage()

	// RecordPublishState records a publish state change.
	RecordPublishState(state PublishState)
}

type nopMetrics struct{}

func (nopMetrics) RecordPublish(string, time.Duration) {}
func (nopMetrics) SetPublishWorkers(int)               {}
func (nopMetrics) SetMaxPublishWorkers(int)            {}
func (nopMetrics) RecordAcks(int)                      {}
func (nopMetrics) RecordRepublish(bool)                {}
func (nopMetrics) RecordLostMessages(int)              {}
func (nopMetrics) RecordDroppedMessage()               {}
func (nopMetrics) RecordPublishState(PublishState)     {}

var _ Metrics = nopMetrics{}
