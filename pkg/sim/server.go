// Package sim is an in-memory OPC UA server for the subscription services.
//
// It keeps subscriptions with sequence numbers, a retransmission queue and
// monitored items that report values written with Server.Write. Faults can
// be injected to exercise gap recovery, back-pressure and reconnects.
package sim

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gopcua/opcua/ua"
	"github.com/juju/clock"
)

// Server holds subscriptions shared by its sessions.
type Server struct {
	config Config
	clock  clock.Clock
	logger *slog.Logger

	mu         sync.Mutex
	subs       map[uint32]*subscription
	values     map[string]*ua.DataValue
	nextSubID  uint32
	nextItemID uint32
	wake       chan struct{}
	failRepub  bool
	stats      Stats
}

// Stats counts service calls.
type Stats struct {
	Publish           int
	PublishRejected   int
	Republish         int
	Acknowledged      int
	DroppedResponses  int
	TransferredOK     int
	KeepAlives        int
	DataChangeSent    int
	StatusChangesSent int
}

type subscription struct {
	id        uint32
	owner     *conn
	interval  time.Duration
	keepAlive uint32
	lifetime  uint32
	maxNotif  uint32
	priority  uint8
	enabled   bool

	nextSeq     uint32
	lastMessage time.Time
	retransmit  map[uint32]*ua.NotificationMessage
	order       []uint32

	items   map[uint32]*item
	pending []*ua.MonitoredItemNotification

	statusChange ua.StatusCode
	expire       bool
	dropNext     int
}

type item struct {
	id           uint32
	clientHandle uint32
	nodeKey      string
	mode         ua.MonitoringMode
	sampling     float64
	queueSize    uint32
}

// NewServer creates a simulated server.
func NewServer(config Config) *Server {
	def := DefaultConfig()
	if config.MinPublishingInterval <= 0 {
		config.MinPublishingInterval = def.MinPublishingInterval
	}
	if config.MaxRetransmitQueue <= 0 {
		config.MaxRetransmitQueue = def.MaxRetransmitQueue
	}
	if config.SessionTimeout <= 0 {
		config.SessionTimeout = def.SessionTimeout
	}
	if config.Clock == nil {
		config.Clock = clock.WallClock
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		config:   config,
		clock:    config.Clock,
		logger:   config.Logger,
		subs:     make(map[uint32]*subscription),
		values:   make(map[string]*ua.DataValue),
		wake:     make(chan struct{}),
	}
}

// NewSession opens a session on the server.
func (s *Server) NewSession() *Session {
	sess := &Session{server: s, conn: newConn()}
	s.logger.Debug("Session created", "session", sess.conn.id.String())
	return sess
}

func newConn() *conn {
	return &conn{id: ua.NewStringNodeID(1, uuid.NewString())}
}

// Write stores a value and queues it for every reporting item on node.
func (s *Server) Write(node *ua.NodeID, value *ua.DataValue) {
	key := node.String()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	for _, sub := range s.subs {
		for _, it := range sub.items {
			if it.nodeKey == key && it.mode == ua.MonitoringModeReporting {
				sub.queue(it, value)
			}
		}
	}
	s.signalLocked()
}

// DropNext makes the next n data messages of a subscription go missing in
// transit. They stay in the retransmission queue.
func (s *Server) DropNext(subscriptionID uint32, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub, ok := s.subs[subscriptionID]; ok {
		sub.dropNext += n
	}
}

// FailRepublish makes Republish fail with BadMessageNotAvailable.
func (s *Server) FailRepublish(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failRepub = fail
}

// SetTimeout expires a subscription. Its owner receives a BadTimeout status
// change and the subscription is deleted.
func (s *Server) SetTimeout(subscriptionID uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub, ok := s.subs[subscriptionID]; ok {
		sub.statusChange = ua.StatusBadTimeout
		sub.expire = true
		s.signalLocked()
	}
}

// SubscriptionIDs returns the ids of all subscriptions, ascending.
func (s *Server) SubscriptionIDs() []uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]uint32, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	return ids
}

// Retransmission returns the sequence numbers held for a subscription.
func (s *Server) Retransmission(subscriptionID uint32) []uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub, ok := s.subs[subscriptionID]; ok {
		return sub.available()
	}
	return nil
}

// Stats returns a snapshot of the call counters.
func (s *Server) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *Server) signalLocked() {
	close(s.wake)
	s.wake = make(chan struct{})
}

func (sub *subscription) queue(it *item, value *ua.DataValue) {
	sub.pending = append(sub.pending, &ua.MonitoredItemNotification{
		ClientHandle: it.clientHandle,
		Value:        value,
	})
	if it.queueSize > 0 {
		var count uint32
		for _, n := range sub.pending {
			if n.ClientHandle == it.clientHandle {
				count++
			}
		}
		if count > it.queueSize {
			for i, n := range sub.pending {
				if n.ClientHandle == it.clientHandle {
					sub.pending = append(sub.pending[:i], sub.pending[i+1:]...)
					break
				}
			}
		}
	}
}

func (sub *subscription) available() []uint32 {
	return append([]uint32(nil), sub.order...)
}

func (sub *subscription) store(msg *ua.NotificationMessage, limit int) {
	sub.retransmit[msg.SequenceNumber] = msg
	sub.order = append(sub.order, msg.SequenceNumber)
	for len(sub.order) > limit {
		delete(sub.retransmit, sub.order[0])
		sub.order = sub.order[1:]
	}
}

func (sub *subscription) ack(seq uint32) bool {
	if _, ok := sub.retransmit[seq]; !ok {
		return false
	}
	delete(sub.retransmit, seq)
	for i, v := range sub.order {
		if v == seq {
			sub.order = append(sub.order[:i], sub.order[i+1:]...)
			break
		}
	}
	return true
}

func (sub *subscription) keepAliveInterval() time.Duration {
	return sub.interval * time.Duration(sub.keepAlive)
}
