package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gopcua/opcua/ua"
	"github.com/juju/clock"
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/mash-protocol/uasub-go/internal/backoff"
	"github.com/mash-protocol/uasub-go/pkg/log"
	"github.com/mash-protocol/uasub-go/pkg/prioq"
)

// Default publish worker bounds.
const (
	DefaultMinPublishWorkerCount = 2
	DefaultMaxPublishWorkerCount = 15
)

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	// MinPublishWorkerCount is the lower bound of the worker pool while at
	// least one subscription is created.
	MinPublishWorkerCount int `yaml:"minPublishWorkerCount"`

	// MaxPublishWorkerCount is the upper bound of the worker pool. It is
	// lowered automatically when the server rejects publish requests.
	MaxPublishWorkerCount int `yaml:"maxPublishWorkerCount"`

	// TransferSubscriptionsOnRecreate tries TransferSubscriptions before
	// recreating subscriptions on a new session.
	TransferSubscriptionsOnRecreate bool `yaml:"transferSubscriptionsOnRecreate"`

	// ReturnDiagnostics is copied into every request header.
	ReturnDiagnostics uint32 `yaml:"returnDiagnostics"`

	// StartPaused creates the manager without publishing until Resume.
	StartPaused bool `yaml:"startPaused"`

	// Backoff spaces publish calls after BadTooManyPublishRequests.
	Backoff backoff.Config `yaml:"backoff"`

	// Logger receives operational log output. Nil discards it.
	Logger *slog.Logger `yaml:"-"`

	// TraceLogger receives protocol trace events. Nil disables tracing.
	TraceLogger log.Logger `yaml:"-"`

	// Metrics receives measurements. Nil discards them.
	Metrics Metrics `yaml:"-"`

	// Clock drives timers. Nil uses the wall clock.
	Clock clock.Clock `yaml:"-"`
}

// DefaultManagerConfig returns the default configuration.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		MinPublishWorkerCount:           DefaultMinPublishWorkerCount,
		MaxPublishWorkerCount:           DefaultMaxPublishWorkerCount,
		TransferSubscriptionsOnRecreate: true,
		Backoff:                         backoff.DefaultConfig(),
	}
}

// Manager owns the subscriptions of one session and runs the publish
// pipeline for them.
type Manager struct {
	session     Session
	config      ManagerConfig
	logger      *slog.Logger
	traceLogger log.Logger
	traceID     string
	metrics     Metrics
	clock       clock.Clock

	mu            sync.RWMutex
	subscriptions []*Subscription
	history       idHistory
	closed        bool
	nextSubHandle uint32

	acks    *prioq.Queue[*ua.SubscriptionAcknowledgement]
	running *gate
	control chan struct{}

	minWorkers         atomic.Int32
	maxWorkers         atomic.Int32
	workerCount        atomic.Int32
	controlCycles      atomic.Int64
	goodPublish        atomic.Int64
	badPublish         atomic.Int64
	requestHandle      atomic.Uint32
	transferOnRecreate atomic.Bool

	watchers   *xsync.Map[uint64, func(*Subscription, PublishState)]
	watcherSeq atomic.Uint64

	ctx            context.Context
	cancel         context.CancelFunc
	controllerDone chan struct{}
	closeOnce      sync.Once
}

// NewManager creates a manager for session and starts its publish
// controller. The manager publishes right away unless config.StartPaused
// is set.
func NewManager(session Session, config ManagerConfig) *Manager {
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	if config.Metrics == nil {
		config.Metrics = nopMetrics{}
	}
	if config.Clock == nil {
		config.Clock = clock.WallClock
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		session:     session,
		config:      config,
		traceLogger: config.TraceLogger,
		traceID:     uuid.NewString(),
		metrics:     config.Metrics,
		clock:       config.Clock,
		acks: prioq.New(func(a, b *ua.SubscriptionAcknowledgement) bool {
			return a.SequenceNumber < b.SequenceNumber
		}),
		running:        newGate(!config.StartPaused),
		control:        make(chan struct{}, 1),
		watchers:       xsync.NewMap[uint64, func(*Subscription, PublishState)](),
		ctx:            ctx,
		cancel:         cancel,
		controllerDone: make(chan struct{}),
	}
	m.logger = config.Logger.With("traceID", m.traceID)
	m.minWorkers.Store(int32(config.MinPublishWorkerCount))
	m.maxWorkers.Store(int32(config.MaxPublishWorkerCount))
	m.transferOnRecreate.Store(config.TransferSubscriptionsOnRecreate)
	m.metrics.SetMaxPublishWorkers(config.MaxPublishWorkerCount)

	go m.runController()
	return m
}

// TraceID identifies this manager in trace files and log output.
func (m *Manager) TraceID() string { return m.traceID }

// Add registers subscriptions built from opts. They are created on the
// server by their Create or ApplyChanges.
func (m *Manager) Add(opts ...Options) ([]*Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrManagerClosed
	}
	subs := make([]*Subscription, 0, len(opts))
	for _, o := range opts {
		m.nextSubHandle++
		s := newSubscription(m, m.nextSubHandle, o)
		m.subscriptions = append(m.subscriptions, s)
		subs = append(subs, s)
	}
	m.signal()
	return subs, nil
}

// Remove forgets sub, deletes it on the server and closes it.
func (m *Manager) Remove(ctx context.Context, sub *Subscription) error {
	m.complete(sub, "removed")
	err := sub.Delete(ctx, false)
	sub.Close()
	return err
}

// Complete forgets the subscription with the given server id and stops its
// message loop. It reports whether the subscription was found.
func (m *Manager) Complete(id uint32) bool {
	sub := m.byID(id)
	if sub == nil {
		return false
	}
	return m.complete(sub, "completed")
}

func (m *Manager) complete(sub *Subscription, reason string) bool {
	m.mu.Lock()
	idx := -1
	for i, s := range m.subscriptions {
		if s == sub {
			idx = i
			break
		}
	}
	if idx < 0 {
		m.mu.Unlock()
		return false
	}
	m.subscriptions = append(m.subscriptions[:idx], m.subscriptions[idx+1:]...)
	if id := sub.ID(); id != 0 {
		m.history.add(id)
	}
	m.mu.Unlock()

	sub.shutdown()
	m.traceState(sub, log.StateEntitySubscription, "", "Completed", reason)
	m.logger.Debug("Complete: subscription removed",
		"subscription", sub.String(),
		"reason", reason)
	m.signal()
	return true
}

// Update asks the controller to re-evaluate the worker pool.
func (m *Manager) Update() {
	m.signal()
}

func (m *Manager) signal() {
	select {
	case m.control <- struct{}{}:
	default:
	}
}

// Pause stops issuing publish requests. Workers stay alive and calls in
// flight are abandoned when they fail.
func (m *Manager) Pause() {
	if m.running.IsSet() {
		m.running.Reset()
		m.traceState(nil, log.StateEntityManager, "Running", "Paused", "")
		m.logger.Info("Publishing paused")
	}
}

// Resume restarts publishing after Pause.
func (m *Manager) Resume() {
	if !m.running.IsSet() {
		m.running.Set()
		m.traceState(nil, log.StateEntityManager, "Paused", "Running", "")
		m.logger.Info("Publishing resumed")
	}
	m.signal()
}

// Paused reports whether publishing is paused.
func (m *Manager) Paused() bool {
	return !m.running.IsSet()
}

// Items returns the registered subscriptions.
func (m *Manager) Items() []*Subscription {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*Subscription(nil), m.subscriptions...)
}

// Count returns the number of registered subscriptions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// CreatedCount returns the number of subscriptions that exist on the
// server.
func (m *Manager) CreatedCount() int {
	return len(m.created())
}

func (m *Manager) created() []*Subscription {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var subs []*Subscription
	for _, s := range m.subscriptions {
		if s.Created() {
			subs = append(subs, s)
		}
	}
	return subs
}

// ByID returns the subscription with the given server id, or nil.
func (m *Manager) ByID(id uint32) *Subscription {
	return m.byID(id)
}

func (m *Manager) byID(id uint32) *Subscription {
	if id == 0 {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.subscriptions {
		if s.ID() == id {
			return s
		}
	}
	return nil
}

func (m *Manager) inHistory(id uint32) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.history.contains(id)
}

func (m *Manager) MinPublishWorkerCount() int { return int(m.minWorkers.Load()) }

func (m *Manager) SetMinPublishWorkerCount(n int) {
	m.minWorkers.Store(int32(n))
	m.signal()
}

func (m *Manager) MaxPublishWorkerCount() int { return int(m.maxWorkers.Load()) }

func (m *Manager) SetMaxPublishWorkerCount(n int) {
	m.maxWorkers.Store(int32(n))
	m.metrics.SetMaxPublishWorkers(n)
	m.signal()
}

func (m *Manager) TransferSubscriptionsOnRecreate() bool { return m.transferOnRecreate.Load() }

func (m *Manager) SetTransferSubscriptionsOnRecreate(v bool) { m.transferOnRecreate.Store(v) }

// PublishWorkerCount returns the number of running publish workers.
func (m *Manager) PublishWorkerCount() int { return int(m.workerCount.Load()) }

// PublishControlCycles returns how often the controller re-evaluated the
// worker pool.
func (m *Manager) PublishControlCycles() int64 { return m.controlCycles.Load() }

// GoodPublishRequestCount returns the number of publish responses routed to
// a subscription.
func (m *Manager) GoodPublishRequestCount() int64 { return m.goodPublish.Load() }

// BadPublishRequestCount returns the number of failed publish calls and
// responses for unknown subscriptions.
func (m *Manager) BadPublishRequestCount() int64 { return m.badPublish.Load() }

// PendingAcks returns the number of queued acknowledgements.
func (m *Manager) PendingAcks() int { return m.acks.Len() }

// WatchPublishState registers fn for publish state changes of every
// subscription. The returned function unregisters it.
func (m *Manager) WatchPublishState(fn func(*Subscription, PublishState)) func() {
	id := m.watcherSeq.Add(1)
	m.watchers.Store(id, fn)
	return func() { m.watchers.Delete(id) }
}

func (m *Manager) notifyWatchers(sub *Subscription, state PublishState) {
	m.watchers.Range(func(_ uint64, fn func(*Subscription, PublishState)) bool {
		fn(sub, state)
		return true
	})
}

// RecreateSubscriptions moves all subscriptions to the current session
// after a reconnect. With transfer enabled and a previous session, created
// subscriptions are transferred first; everything not transferred is
// recreated. The returned error joins the per-subscription failures.
func (m *Manager) RecreateSubscriptions(ctx context.Context, previousSessionID *ua.NodeID) error {
	subs := m.Items()
	if len(subs) == 0 {
		return nil
	}

	remaining := subs
	if m.transferOnRecreate.Load() && previousSessionID != nil {
		m.logger.Info("RecreateSubscriptions: transferring",
			"previousSession", previousSessionID.String(),
			"count", len(subs))
		remaining = m.transferSubscriptions(ctx, subs)
	}

	var errs []error
	for _, s := range remaining {
		if err := s.Recreate(ctx); err != nil {
			m.logger.Error("RecreateSubscriptions: recreate failed",
				"subscription", s.String(),
				"error", err)
			errs = append(errs, fmt.Errorf("recreate %s: %w", s, err))
		}
	}
	m.signal()
	return errors.Join(errs...)
}

func (m *Manager) transferSubscriptions(ctx context.Context, subs []*Subscription) []*Subscription {
	var remaining, created []*Subscription
	var ids []uint32
	for _, s := range subs {
		if id := s.ID(); id != 0 {
			created = append(created, s)
			ids = append(ids, id)
		} else {
			remaining = append(remaining, s)
		}
	}
	if len(created) == 0 {
		return remaining
	}

	start := m.clock.Now()
	resp, err := m.session.TransferSubscriptions(ctx, &ua.TransferSubscriptionsRequest{
		RequestHeader:     m.requestHeader(0),
		SubscriptionIDs:   ids,
		SendInitialValues: false,
	})
	if err == nil && len(resp.Results) != len(ids) {
		err = fmt.Errorf("%w: %d results for %d subscriptions", ErrUnexpectedResponse, len(resp.Results), len(ids))
	}
	m.traceService(nil, log.ServiceTransferSubscriptions, err, m.clock.Now().Sub(start), nil)
	if err != nil {
		if code, ok := StatusOf(err); ok && code == ua.StatusBadServiceUnsupported {
			m.transferOnRecreate.Store(false)
			m.logger.Warn("TransferSubscriptions: not supported, disabling transfer")
		} else {
			m.logger.Error("TransferSubscriptions: failed",
				"error", err)
		}
		return append(remaining, created...)
	}

	for i, r := range resp.Results {
		s := created[i]
		switch {
		case r == nil:
			remaining = append(remaining, s)
		case r.StatusCode == ua.StatusBadNothingToDo:
			m.logger.Debug("TransferSubscriptions: already on session",
				"subscription", s.String())
		case IsBad(r.StatusCode):
			m.logger.Info("TransferSubscriptions: not transferred",
				"subscription", s.String(),
				"status", r.StatusCode)
			remaining = append(remaining, s)
		default:
			ok, err := s.Transfer(ctx, 0, r.AvailableSequenceNumbers)
			if err != nil || !ok {
				m.logger.Info("TransferSubscriptions: completing transfer failed",
					"subscription", s.String(),
					"error", err)
				remaining = append(remaining, s)
			}
		}
	}
	return remaining
}

// Close stops the controller and all workers and closes every
// subscription. Subscriptions are not deleted on the server.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.closed = true
		subs := m.subscriptions
		m.subscriptions = nil
		m.history.clear()
		m.mu.Unlock()

		m.cancel()
		<-m.controllerDone
		for _, s := range subs {
			s.Close()
		}
		m.acks.Close()
		m.watchers.Clear()
		m.traceState(nil, log.StateEntityManager, "", "Closed", "")
		m.logger.Info("Closed")
	})
	return nil
}

func (m *Manager) enqueueAck(ack *ua.SubscriptionAcknowledgement) error {
	return m.acks.Push(ack)
}

// takeAcks pops the fair share of queued acknowledgements for one publish
// request.
func (m *Manager) takeAcks() []*ua.SubscriptionAcknowledgement {
	n := ackShare(m.acks.Len(), int(m.workerCount.Load()))
	if n == 0 {
		return nil
	}
	return m.acks.PopN(n)
}

// ackShare splits pending acknowledgements evenly across workers.
func ackShare(pending, workers int) int {
	if workers < 1 {
		workers = 1
	}
	return pending / workers
}

// publishTimeout returns twice the longest keep-alive period of the created
// subscriptions, clamped to [minOperationTimeout, maxOperationTimeout], or 0
// when none is created.
func (m *Manager) publishTimeout() time.Duration {
	subs := m.created()
	if len(subs) == 0 {
		return 0
	}
	var timeout time.Duration
	for _, s := range subs {
		if t := s.CurrentPublishingInterval() * time.Duration(s.CurrentKeepAliveCount()); t > timeout {
			timeout = t
		}
	}
	timeout *= 2
	if timeout < minOperationTimeout {
		timeout = minOperationTimeout
	}
	if timeout > maxOperationTimeout {
		timeout = maxOperationTimeout
	}
	return timeout
}

func (m *Manager) requestHeader(timeoutHint uint32) *ua.RequestHeader {
	return &ua.RequestHeader{
		Timestamp:         m.clock.Now(),
		RequestHandle:     m.requestHandle.Add(1),
		ReturnDiagnostics: m.config.ReturnDiagnostics,
		TimeoutHint:       timeoutHint,
	}
}

func (m *Manager) trace(sub *Subscription, event log.Event) {
	if m.traceLogger == nil {
		return
	}
	event.Timestamp = m.clock.Now()
	event.SessionID = m.traceID
	if sub != nil && event.SubscriptionID == 0 {
		event.SubscriptionID = sub.ID()
	}
	m.traceLogger.Log(event)
}

func (m *Manager) traceState(sub *Subscription, entity log.StateEntity, oldState, newState, reason string) {
	m.trace(sub, log.Event{
		Direction: log.DirectionLocal,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   entity,
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	})
}

func (m *Manager) traceNotification(sub *Subscription, n *log.NotificationEvent) {
	m.trace(sub, log.Event{
		Direction:    log.DirectionIn,
		Category:     log.CategoryNotification,
		Notification: n,
	})
}

func (m *Manager) traceService(sub *Subscription, service log.Service, err error, d time.Duration, fill func(*log.ServiceEvent)) {
	if m.traceLogger == nil {
		return
	}
	e := &log.ServiceEvent{Service: service, Duration: &d}
	if err != nil {
		if code, ok := StatusOf(err); ok {
			e.Status = uint32(code)
		} else {
			e.Status = 0x80000000
		}
	}
	if fill != nil {
		fill(e)
	}
	m.trace(sub, log.Event{
		Direction: log.DirectionIn,
		Category:  log.CategoryService,
		Service:   e,
	})
}

func (m *Manager) traceError(sub *Subscription, op string, err error) {
	if m.traceLogger == nil {
		return
	}
	data := &log.ErrorEventData{Message: err.Error(), Context: op}
	if code, ok := StatusOf(err); ok {
		c := uint32(code)
		data.Code = &c
	}
	m.trace(sub, log.Event{
		Direction: log.DirectionLocal,
		Category:  log.CategoryError,
		Error:     data,
	})
}
