package log

import (
	"time"
)

// Event is one trace record of the subscription publish pipeline.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID identifies the manager instance that produced the event (UUID).
	SessionID string `cbor:"2,keyasint"`

	// Direction indicates message flow relative to the client.
	Direction Direction `cbor:"3,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"4,keyasint"`

	// SubscriptionID is the server-assigned subscription id, if any.
	SubscriptionID uint32 `cbor:"5,keyasint,omitempty"`

	// Worker is the publish worker index for publish traffic.
	Worker *int `cbor:"6,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Service      *ServiceEvent      `cbor:"10,keyasint,omitempty"`
	Notification *NotificationEvent `cbor:"11,keyasint,omitempty"`
	StateChange  *StateChangeEvent  `cbor:"12,keyasint,omitempty"`
	Error        *ErrorEventData    `cbor:"13,keyasint,omitempty"`
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates a message received from the server.
	DirectionIn Direction = 0
	// DirectionOut indicates a message sent to the server.
	DirectionOut Direction = 1
	// DirectionLocal indicates a client-side event with no traffic.
	DirectionLocal Direction = 2
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	case DirectionLocal:
		return "LOCAL"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryService indicates a service request or response.
	CategoryService Category = 0
	// CategoryNotification indicates a dispatched notification message.
	CategoryNotification Category = 1
	// CategoryState indicates a state change.
	CategoryState Category = 2
	// CategoryError indicates an error event.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryService:
		return "SERVICE"
	case CategoryNotification:
		return "NOTIFICATION"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ServiceEvent captures a service call or its result.
type ServiceEvent struct {
	// Service names the OPC UA service.
	Service Service `cbor:"1,keyasint"`

	// RequestHandle correlates request and response.
	RequestHandle uint32 `cbor:"2,keyasint,omitempty"`

	// Status is the OPC UA status code of a response (0 = Good).
	Status uint32 `cbor:"3,keyasint,omitempty"`

	// Acks lists acknowledgements carried by a publish request, or
	// acknowledgements rolled back after a failed one.
	Acks []Ack `cbor:"4,keyasint,omitempty"`

	// TimeoutHint is the timeout hint sent with the request in milliseconds.
	TimeoutHint uint32 `cbor:"5,keyasint,omitempty"`

	// Duration is the round trip time of a response (nanoseconds).
	Duration *time.Duration `cbor:"6,keyasint,omitempty"`

	// MoreNotifications mirrors the publish response flag.
	MoreNotifications bool `cbor:"7,keyasint,omitempty"`

	// Available lists the sequence numbers the server can still retransmit.
	Available []uint32 `cbor:"8,keyasint,omitempty"`
}

// Ack is a subscription acknowledgement.
type Ack struct {
	SubscriptionID uint32 `cbor:"1,keyasint"`
	SequenceNumber uint32 `cbor:"2,keyasint"`
}

// Service identifies an OPC UA service.
type Service uint8

const (
	ServicePublish Service = iota
	ServiceRepublish
	ServiceCreateSubscription
	ServiceModifySubscription
	ServiceDeleteSubscriptions
	ServiceSetPublishingMode
	ServiceTransferSubscriptions
	ServiceMonitoredItems
)

// String returns the service name.
func (s Service) String() string {
	switch s {
	case ServicePublish:
		return "Publish"
	case ServiceRepublish:
		return "Republish"
	case ServiceCreateSubscription:
		return "CreateSubscription"
	case ServiceModifySubscription:
		return "ModifySubscription"
	case ServiceDeleteSubscriptions:
		return "DeleteSubscriptions"
	case ServiceSetPublishingMode:
		return "SetPublishingMode"
	case ServiceTransferSubscriptions:
		return "TransferSubscriptions"
	case ServiceMonitoredItems:
		return "MonitoredItems"
	default:
		return "Unknown"
	}
}

// NotificationEvent captures the fate of one notification message.
type NotificationEvent struct {
	// SequenceNumber of the notification message.
	SequenceNumber uint32 `cbor:"1,keyasint"`

	// PublishTime as reported by the server.
	PublishTime time.Time `cbor:"2,keyasint"`

	// Kind of payload that was dispatched.
	Kind NotificationKind `cbor:"3,keyasint"`

	// Count is the number of item notifications or events.
	Count int `cbor:"4,keyasint,omitempty"`

	// Republished is set when the message was recovered with Republish.
	Republished bool `cbor:"5,keyasint,omitempty"`

	// Dropped is set for stale or duplicate messages that were not dispatched.
	Dropped bool `cbor:"6,keyasint,omitempty"`

	// Lost is set for gaps that could not be recovered.
	Lost bool `cbor:"7,keyasint,omitempty"`
}

// NotificationKind is the payload kind of a notification message.
type NotificationKind uint8

const (
	NotificationKeepAlive NotificationKind = iota
	NotificationDataChange
	NotificationEvents
	NotificationStatusChange
)

// String returns the notification kind name.
func (k NotificationKind) String() string {
	switch k {
	case NotificationKeepAlive:
		return "KEEPALIVE"
	case NotificationDataChange:
		return "DATACHANGE"
	case NotificationEvents:
		return "EVENT"
	case NotificationStatusChange:
		return "STATUSCHANGE"
	default:
		return "UNKNOWN"
	}
}

// StateChangeEvent captures subscription, worker and manager lifecycle.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntitySubscription indicates a subscription lifecycle change.
	StateEntitySubscription StateEntity = 0
	// StateEntityWorker indicates a publish worker was started or stopped.
	StateEntityWorker StateEntity = 1
	// StateEntityManager indicates a manager pause, resume or shutdown.
	StateEntityManager StateEntity = 2
	// StateEntityPublish indicates a publish state flag change.
	StateEntityPublish StateEntity = 3
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntitySubscription:
		return "SUBSCRIPTION"
	case StateEntityWorker:
		return "WORKER"
	case StateEntityManager:
		return "MANAGER"
	case StateEntityPublish:
		return "PUBLISH"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors anywhere in the pipeline.
type ErrorEventData struct {
	// Message is the error message.
	Message string `cbor:"1,keyasint"`

	// Code is the OPC UA status code (if applicable).
	Code *uint32 `cbor:"2,keyasint,omitempty"`

	// Context describes what operation was being performed.
	Context string `cbor:"3,keyasint,omitempty"`
}
