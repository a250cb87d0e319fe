package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopcua/opcua/ua"
	"github.com/juju/clock"

	"github.com/mash-protocol/uasub-go/pkg/log"
	"github.com/mash-protocol/uasub-go/pkg/prioq"
)

const (
	defaultKeepAliveCount uint32 = 10
	defaultLifetimeCount  uint32 = 1000
)

// Subscription is a client-side OPC UA subscription owned by a Manager.
//
// ID is 0 while the subscription does not exist on the server. Create,
// Modify, Delete, Transfer and Recreate are serialized per subscription.
type Subscription struct {
	m       *Manager
	session Session
	handler Handler
	logger  *slog.Logger
	handle  uint32

	// lifecycle serializes server-side state transitions.
	lifecycle sync.Mutex

	mu                                sync.RWMutex
	options                           Options
	id                                uint32
	currentPublishingInterval         time.Duration
	currentKeepAliveCount             uint32
	currentLifetimeCount              uint32
	currentMaxNotificationsPerPublish uint32
	currentPriority                   uint8
	currentPublishingEnabled          bool
	available                         []uint32

	lastSequenceNumber atomic.Uint32
	publishLateCount   atomic.Int64

	kaMu             sync.Mutex
	kaTimer          clock.Timer
	kaInterval       time.Duration
	lastNotification time.Time
	stopped          bool

	itemsMu      sync.Mutex
	items        map[uint32]*Item
	deletedItems []uint32
	nextHandle   atomic.Uint32

	messages  *prioq.Queue[incomingMessage]
	ctx       context.Context
	cancel    context.CancelFunc
	loopDone  chan struct{}
	closeOnce sync.Once
}

func newSubscription(m *Manager, handle uint32, opts Options) *Subscription {
	if opts.Handler == nil {
		opts.Handler = HandlerFuncs{}
	}
	ctx, cancel := context.WithCancel(m.ctx)
	s := &Subscription{
		m:        m,
		session:  m.session,
		handler:  opts.Handler,
		handle:   handle,
		options:  opts,
		items:    make(map[uint32]*Item),
		messages: prioq.New(func(a, b incomingMessage) bool { return a.sequenceNumber < b.sequenceNumber }),
		ctx:      ctx,
		cancel:   cancel,
		loopDone: make(chan struct{}),
	}
	s.logger = m.logger.With("subscription", s.Name())
	go s.processMessages()
	return s
}

// Name returns the configured name, or a generated one.
func (s *Subscription) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.options.Name != "" {
		return s.options.Name
	}
	return fmt.Sprintf("sub-%d", s.handle)
}

func (s *Subscription) String() string {
	return fmt.Sprintf("%s:%d", s.Name(), s.ID())
}

// ID returns the server-assigned id, 0 if not created.
func (s *Subscription) ID() uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

// Created reports whether the subscription exists on the server.
func (s *Subscription) Created() bool {
	return s.ID() != 0
}

// Options returns the requested options.
func (s *Subscription) Options() Options {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.options
}

// SetOptions replaces the requested options. The handler is kept if
// opts.Handler is nil. Changes reach the server with Modify or ApplyChanges.
func (s *Subscription) SetOptions(opts Options) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if opts.Handler == nil {
		opts.Handler = s.options.Handler
	}
	s.options = opts
}

func (s *Subscription) CurrentPublishingInterval() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentPublishingInterval
}

func (s *Subscription) CurrentKeepAliveCount() uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentKeepAliveCount
}

func (s *Subscription) CurrentLifetimeCount() uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentLifetimeCount
}

func (s *Subscription) CurrentMaxNotificationsPerPublish() uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentMaxNotificationsPerPublish
}

func (s *Subscription) CurrentPriority() uint8 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentPriority
}

func (s *Subscription) CurrentPublishingEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentPublishingEnabled
}

// LastSequenceNumberProcessed returns the highest dispatched sequence
// number, 0 before the first message.
func (s *Subscription) LastSequenceNumberProcessed() uint32 {
	return s.lastSequenceNumber.Load()
}

// AvailableSequenceNumbers returns the sequence numbers the server last
// reported in its retransmission queue, ascending.
func (s *Subscription) AvailableSequenceNumbers() []uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]uint32(nil), s.available...)
}

// PublishLateCount returns how often the keep-alive timer found publishing
// overdue.
func (s *Subscription) PublishLateCount() int64 {
	return s.publishLateCount.Load()
}

func (s *Subscription) setAvailable(available []uint32) {
	if available == nil {
		return
	}
	sorted := append([]uint32(nil), available...)
	sort.Slice(sorted, func(a, b int) bool { return sorted[a] < sorted[b] })
	s.mu.Lock()
	s.available = sorted
	s.mu.Unlock()
}

// ApplyChanges creates the subscription, or modifies it if it already
// exists, and then applies pending monitored item changes.
func (s *Subscription) ApplyChanges(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if s.Created() {
		if err := s.modifyLocked(ctx); err != nil {
			return err
		}
		return s.applyItemChangesLocked(ctx)
	}
	if err := s.createLocked(ctx); err != nil {
		return err
	}
	return s.createItemsLocked(ctx)
}

// Create creates the subscription and its monitored items on the server.
func (s *Subscription) Create(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if err := s.createLocked(ctx); err != nil {
		return err
	}
	return s.createItemsLocked(ctx)
}

func (s *Subscription) createLocked(ctx context.Context) error {
	if s.ctx.Err() != nil {
		return ErrClosed
	}
	if s.Created() {
		return ErrAlreadyCreated
	}

	opts := s.Options()
	keepAlive, lifetime := s.adjustCounts(opts)
	resp, err := s.session.CreateSubscription(ctx, &ua.CreateSubscriptionRequest{
		RequestHeader:               s.m.requestHeader(0),
		RequestedPublishingInterval: durationToMillis(opts.PublishingInterval),
		RequestedLifetimeCount:      lifetime,
		RequestedMaxKeepAliveCount:  keepAlive,
		MaxNotificationsPerPublish:  opts.MaxNotificationsPerPublish,
		PublishingEnabled:           opts.PublishingEnabled,
		Priority:                    opts.Priority,
	})
	if err != nil {
		s.m.traceError(s, "CreateSubscription", err)
		return fmt.Errorf("create subscription: %w", err)
	}

	s.onUpdateComplete(opts, resp.SubscriptionID,
		millisToDuration(resp.RevisedPublishingInterval),
		resp.RevisedMaxKeepAliveCount, resp.RevisedLifetimeCount)
	s.m.traceState(s, log.StateEntitySubscription, "NotCreated", "Created", "")
	s.logger.Info("Created",
		"id", resp.SubscriptionID,
		"publishingInterval", s.CurrentPublishingInterval(),
		"keepAliveCount", resp.RevisedMaxKeepAliveCount,
		"lifetimeCount", resp.RevisedLifetimeCount)
	s.m.Update()
	return nil
}

// Modify sends changed options to the server. Nothing is sent when the
// server already runs with the requested values. A change of
// PublishingEnabled alone is sent with SetPublishingMode.
func (s *Subscription) Modify(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	return s.modifyLocked(ctx)
}

func (s *Subscription) modifyLocked(ctx context.Context) error {
	id := s.ID()
	if id == 0 {
		return ErrNotCreated
	}

	opts := s.Options()
	keepAlive, lifetime := s.adjustCounts(opts)

	s.mu.RLock()
	changed := keepAlive != s.currentKeepAliveCount ||
		lifetime != s.currentLifetimeCount ||
		opts.Priority != s.currentPriority ||
		opts.MaxNotificationsPerPublish != s.currentMaxNotificationsPerPublish ||
		opts.PublishingInterval != s.currentPublishingInterval
	enabledChanged := opts.PublishingEnabled != s.currentPublishingEnabled
	s.mu.RUnlock()

	if changed {
		resp, err := s.session.ModifySubscription(ctx, &ua.ModifySubscriptionRequest{
			RequestHeader:               s.m.requestHeader(0),
			SubscriptionID:              id,
			RequestedPublishingInterval: durationToMillis(opts.PublishingInterval),
			RequestedLifetimeCount:      lifetime,
			RequestedMaxKeepAliveCount:  keepAlive,
			MaxNotificationsPerPublish:  opts.MaxNotificationsPerPublish,
			Priority:                    opts.Priority,
		})
		if err != nil {
			s.m.traceError(s, "ModifySubscription", err)
			return fmt.Errorf("modify subscription %d: %w", id, err)
		}
		s.onUpdateComplete(opts, 0,
			millisToDuration(resp.RevisedPublishingInterval),
			resp.RevisedMaxKeepAliveCount, resp.RevisedLifetimeCount)
		s.startKeepAlive()
		s.m.traceState(s, log.StateEntitySubscription, "Created", "Modified", "")
		s.m.Update()
	}

	if enabledChanged {
		if err := s.setPublishingModeLocked(ctx, opts.PublishingEnabled); err != nil {
			return err
		}
		s.logger.Info("Modified",
			"publishingEnabled", opts.PublishingEnabled)
	}
	return nil
}

// SetPublishingMode enables or disables publishing on the server.
func (s *Subscription) SetPublishingMode(ctx context.Context, enabled bool) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	return s.setPublishingModeLocked(ctx, enabled)
}

func (s *Subscription) setPublishingModeLocked(ctx context.Context, enabled bool) error {
	id := s.ID()
	if id == 0 {
		return ErrNotCreated
	}
	resp, err := s.session.SetPublishingMode(ctx, &ua.SetPublishingModeRequest{
		RequestHeader:     s.m.requestHeader(0),
		PublishingEnabled: enabled,
		SubscriptionIDs:   []uint32{id},
	})
	if err == nil && len(resp.Results) != 1 {
		err = fmt.Errorf("%w: %d results for 1 subscription", ErrUnexpectedResponse, len(resp.Results))
	}
	if err == nil && IsBad(resp.Results[0]) {
		err = resp.Results[0]
	}
	if err != nil {
		s.m.traceError(s, "SetPublishingMode", err)
		return fmt.Errorf("set publishing mode of subscription %d: %w", id, err)
	}

	s.mu.Lock()
	s.options.PublishingEnabled = enabled
	s.currentPublishingEnabled = enabled
	s.mu.Unlock()
	return nil
}

// Delete deletes the subscription on the server. Local state is reset even
// when the server call fails; with silent set the failure is not returned.
// Deleting a subscription that is not created does nothing.
func (s *Subscription) Delete(ctx context.Context, silent bool) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	return s.deleteLocked(ctx, silent)
}

func (s *Subscription) deleteLocked(ctx context.Context, silent bool) error {
	id := s.ID()
	if id == 0 {
		return nil
	}
	s.stopKeepAlive()
	defer s.onDeleteCompleted()

	resp, err := s.session.DeleteSubscriptions(ctx, &ua.DeleteSubscriptionsRequest{
		RequestHeader:   s.m.requestHeader(0),
		SubscriptionIDs: []uint32{id},
	})
	if err == nil && len(resp.Results) != 1 {
		err = fmt.Errorf("%w: %d results for 1 subscription", ErrUnexpectedResponse, len(resp.Results))
	}
	if err == nil && IsBad(resp.Results[0]) {
		err = resp.Results[0]
	}
	if err != nil {
		s.m.traceError(s, "DeleteSubscriptions", err)
		if !silent {
			return fmt.Errorf("delete subscription %d: %w", id, err)
		}
		s.logger.Debug("Delete: ignoring error",
			"id", id,
			"error", err)
	}
	return nil
}

// Transfer completes the transfer of the subscription to the current
// session. A non-zero id replaces the local id, e.g. when the subscription
// was restored from saved state. Monitored item handles are synchronized
// with the server; if that fails or the item counts differ, Transfer returns
// false and the caller should recreate the subscription.
func (s *Subscription) Transfer(ctx context.Context, id uint32, available []uint32) (bool, error) {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if id != 0 {
		s.mu.Lock()
		s.id = id
		s.mu.Unlock()
	} else if !s.Created() {
		return false, ErrNotCreated
	}

	s.stopKeepAlive()
	if !s.syncItemHandlesLocked(ctx, true) {
		return false, nil
	}
	s.setAvailable(available)
	if err := s.applyItemChangesLocked(ctx); err != nil {
		return false, err
	}
	s.startKeepAlive()
	s.m.traceState(s, log.StateEntitySubscription, "Created", "Transferred", "")
	s.logger.Info("Transferred",
		"id", s.ID(),
		"available", len(available))
	return true, nil
}

// Recreate drops all local state and creates the subscription and its
// monitored items again.
func (s *Subscription) Recreate(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.stopKeepAlive()
	s.resetServerState()
	if err := s.createLocked(ctx); err != nil {
		return err
	}
	s.syncItemHandlesLocked(ctx, false)
	if err := s.applyItemChangesLocked(ctx); err != nil {
		return err
	}
	s.m.traceState(s, log.StateEntitySubscription, "", "Recreated", "")
	return nil
}

// Close stops the message loop and the keep-alive timer. It does not delete
// the subscription on the server; see Manager.Remove.
func (s *Subscription) Close() {
	s.shutdown()
	<-s.loopDone
}

// shutdown is Close without waiting, safe to call from the message loop.
func (s *Subscription) shutdown() {
	s.closeOnce.Do(func() {
		s.cancel()
		s.stopKeepAlive()
		s.messages.Close()
	})
}

func (s *Subscription) onUpdateComplete(opts Options, createdID uint32,
	publishingInterval time.Duration, keepAliveCount, lifetimeCount uint32) {
	s.mu.Lock()
	if createdID != 0 {
		if s.currentPublishingEnabled != opts.PublishingEnabled {
			s.logger.Info("Created: publishing state", "publishingEnabled", opts.PublishingEnabled)
		}
		s.currentPublishingEnabled = opts.PublishingEnabled
	}
	if s.currentKeepAliveCount != keepAliveCount {
		s.logger.Info("Changed KeepAliveCount", "new", keepAliveCount)
		s.currentKeepAliveCount = keepAliveCount
	}
	if s.currentPublishingInterval != publishingInterval {
		s.logger.Info("Changed PublishingInterval", "new", publishingInterval)
		s.currentPublishingInterval = publishingInterval
	}
	if s.currentLifetimeCount != lifetimeCount {
		s.logger.Info("Changed LifetimeCount", "new", lifetimeCount)
		s.currentLifetimeCount = lifetimeCount
	}
	s.currentMaxNotificationsPerPublish = opts.MaxNotificationsPerPublish
	s.currentPriority = opts.Priority
	if createdID != 0 {
		s.id = createdID
	}
	s.mu.Unlock()

	if createdID != 0 {
		s.lastSequenceNumber.Store(0)
		s.startKeepAlive()
	}
}

func (s *Subscription) resetServerState() {
	s.mu.Lock()
	s.id = 0
	s.currentPublishingInterval = 0
	s.currentKeepAliveCount = 0
	s.currentLifetimeCount = 0
	s.currentMaxNotificationsPerPublish = 0
	s.currentPriority = 0
	s.currentPublishingEnabled = false
	s.available = nil
	s.mu.Unlock()

	s.lastSequenceNumber.Store(0)
	s.messages.Clear()
}

func (s *Subscription) onDeleteCompleted() {
	s.resetServerState()
	for _, item := range s.Items() {
		item.reset()
	}
	s.itemsMu.Lock()
	s.deletedItems = nil
	s.itemsMu.Unlock()

	s.m.traceState(s, log.StateEntitySubscription, "Created", "Deleted", "")
	s.logger.Info("Deleted")
	s.m.Update()
}

// adjustCounts returns keep-alive and lifetime counts that satisfy the
// protocol: keep-alive at least 1, lifetime at least three keep-alives and
// long enough for MinLifetimeInterval.
func (s *Subscription) adjustCounts(opts Options) (keepAlive, lifetime uint32) {
	keepAlive = opts.KeepAliveCount
	lifetime = opts.LifetimeCount

	if keepAlive == 0 {
		s.logger.Info("Adjusted KeepAliveCount",
			"old", keepAlive,
			"new", defaultKeepAliveCount)
		keepAlive = defaultKeepAliveCount
	}

	if opts.PublishingInterval > 0 {
		sessionTimeout := s.session.SessionTimeout()
		if opts.MinLifetimeInterval > 0 && opts.MinLifetimeInterval < sessionTimeout {
			s.logger.Warn("MinLifetimeInterval is smaller than the session timeout",
				"minLifetimeInterval", opts.MinLifetimeInterval,
				"sessionTimeout", sessionTimeout)
		}

		minLifetime := opts.MinLifetimeInterval.Milliseconds()
		interval := opts.PublishingInterval.Milliseconds()
		if interval > 0 && minLifetime > 0 {
			minCount := uint32(minLifetime / interval)
			if minLifetime%interval != 0 {
				minCount++
			}
			if lifetime < minCount {
				lifetime = minCount
				s.logger.Info("Adjusted LifetimeCount",
					"new", lifetime)
			}
		}

		if time.Duration(lifetime)*opts.PublishingInterval < sessionTimeout {
			s.logger.Warn("Lifetime is less than the session timeout",
				"lifetime", time.Duration(lifetime)*opts.PublishingInterval,
				"sessionTimeout", sessionTimeout)
		}
	} else if lifetime == 0 {
		s.logger.Info("Adjusted LifetimeCount",
			"old", lifetime,
			"new", defaultLifetimeCount)
		lifetime = defaultLifetimeCount
	}

	if minCount := 3 * keepAlive; lifetime < minCount {
		s.logger.Info("Adjusted LifetimeCount",
			"old", lifetime,
			"new", minCount)
		lifetime = minCount
	}
	return keepAlive, lifetime
}
