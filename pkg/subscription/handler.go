package subscription

import (
	"strings"
	"time"

	"github.com/gopcua/opcua/ua"
)

// PublishState is a set of flags describing the publishing state of a
// subscription or the circumstances of a notification.
type PublishState uint32

const (
	// PublishStateStopped is raised when no message arrived within the
	// keep-alive window.
	PublishStateStopped PublishState = 1 << iota
	// PublishStateRecovered is raised by the first message after Stopped.
	PublishStateRecovered
	// PublishStateKeepAlive marks a keep-alive message.
	PublishStateKeepAlive
	// PublishStateRepublish marks a message recovered with Republish.
	PublishStateRepublish
	// PublishStateTransferred is raised when the server reports that the
	// subscription was transferred to another session.
	PublishStateTransferred
	// PublishStateTimeout is raised when the server reports that the
	// subscription lifetime expired.
	PublishStateTimeout
)

// PublishStateNone is the empty flag set.
const PublishStateNone PublishState = 0

var publishStateNames = []struct {
	flag PublishState
	name string
}{
	{PublishStateStopped, "Stopped"},
	{PublishStateRecovered, "Recovered"},
	{PublishStateKeepAlive, "KeepAlive"},
	{PublishStateRepublish, "Republish"},
	{PublishStateTransferred, "Transferred"},
	{PublishStateTimeout, "Timeout"},
}

// Has reports whether all flags in f are set.
func (s PublishState) Has(f PublishState) bool {
	return s&f == f
}

// String returns the set flags joined by "|".
func (s PublishState) String() string {
	if s == PublishStateNone {
		return "None"
	}
	var names []string
	for _, n := range publishStateNames {
		if s.Has(n.flag) {
			names = append(names, n.name)
		}
	}
	if len(names) == 0 {
		return "Unknown"
	}
	return strings.Join(names, "|")
}

// Handler receives the notifications of a subscription.
//
// Calls for one subscription are made from its message goroutine, in
// sequence-number order, and never concurrently. OnPublishStateChanged may
// also be called from the keep-alive timer.
type Handler interface {
	OnKeepAliveNotification(sub *Subscription, sequenceNumber uint32, publishTime time.Time, state PublishState)

	OnDataChangeNotification(sub *Subscription, sequenceNumber uint32, publishTime time.Time,
		notification *ua.DataChangeNotification, state PublishState, stringTable []string)

	OnEventNotification(sub *Subscription, sequenceNumber uint32, publishTime time.Time,
		notification *ua.EventNotificationList, state PublishState, stringTable []string)

	OnPublishStateChanged(sub *Subscription, state PublishState)
}

// HandlerFuncs adapts optional functions to a Handler. Nil functions are
// skipped.
type HandlerFuncs struct {
	KeepAlive    func(sub *Subscription, sequenceNumber uint32, publishTime time.Time, state PublishState)
	DataChange   func(sub *Subscription, sequenceNumber uint32, publishTime time.Time, notification *ua.DataChangeNotification, state PublishState, stringTable []string)
	Event        func(sub *Subscription, sequenceNumber uint32, publishTime time.Time, notification *ua.EventNotificationList, state PublishState, stringTable []string)
	StateChanged func(sub *Subscription, state PublishState)
}

func (h HandlerFuncs) OnKeepAliveNotification(sub *Subscription, sequenceNumber uint32, publishTime time.Time, state PublishState) {
	if h.KeepAlive != nil {
		h.KeepAlive(sub, sequenceNumber, publishTime, state)
	}
}

func (h HandlerFuncs) OnDataChangeNotification(sub *Subscription, sequenceNumber uint32, publishTime time.Time,
	notification *ua.DataChangeNotification, state PublishState, stringTable []string) {
	if h.DataChange != nil {
		h.DataChange(sub, sequenceNumber, publishTime, notification, state, stringTable)
	}
}

func (h HandlerFuncs) OnEventNotification(sub *Subscription, sequenceNumber uint32, publishTime time.Time,
	notification *ua.EventNotificationList, state PublishState, stringTable []string) {
	if h.Event != nil {
		h.Event(sub, sequenceNumber, publishTime, notification, state, stringTable)
	}
}

func (h HandlerFuncs) OnPublishStateChanged(sub *Subscription, state PublishState) {
	if h.StateChanged != nil {
		h.StateChanged(sub, state)
	}
}

var _ Handler = HandlerFuncs{}
