package sim

import (
	"context"
	"sort"
	"time"

	"github.com/gopcua/opcua/ua"
)

// Session is a client session on a Server. It implements the session
// contract of package subscription. Reconnect replaces the server-side
// session while the client keeps using the same value.
type Session struct {
	server   *Server
	conn     *conn
	inflight int
}

// conn is one server-side session. Subscriptions belong to a conn.
type conn struct {
	id     *ua.NodeID
	closed bool
}

// ID returns the id of the current server-side session.
func (c *Session) ID() *ua.NodeID {
	c.server.mu.Lock()
	defer c.server.mu.Unlock()
	return c.conn.id
}

// Reconnect closes the current server-side session and opens a new one. It
// returns the id of the closed session. Subscriptions stay on the server
// and can be transferred.
func (c *Session) Reconnect() *ua.NodeID {
	s := c.server
	s.mu.Lock()
	defer s.mu.Unlock()
	old := c.conn
	old.closed = true
	c.conn = newConn()
	s.signalLocked()
	s.logger.Debug("Session reconnected",
		"previous", old.id.String(),
		"session", c.conn.id.String())
	return old.id
}

// SessionTimeout returns the configured session timeout.
func (c *Session) SessionTimeout() time.Duration { return c.server.config.SessionTimeout }

// Close closes the session. Outstanding publish requests fail with
// BadSessionClosed. Its subscriptions stay on the server and can be
// transferred to another session.
func (c *Session) Close() {
	s := c.server
	s.mu.Lock()
	defer s.mu.Unlock()
	c.conn.closed = true
	s.signalLocked()
}

func (c *Session) checkLocked() error {
	if c.conn.closed {
		return ua.StatusBadSessionClosed
	}
	return nil
}

func (c *Session) responseHeader(req *ua.RequestHeader) *ua.ResponseHeader {
	h := &ua.ResponseHeader{Timestamp: c.server.clock.Now()}
	if req != nil {
		h.RequestHandle = req.RequestHandle
	}
	return h
}

func (c *Session) CreateSubscription(ctx context.Context, req *ua.CreateSubscriptionRequest) (*ua.CreateSubscriptionResponse, error) {
	s := c.server
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := c.checkLocked(); err != nil {
		return nil, err
	}

	s.nextSubID++
	sub := &subscription{
		id:          s.nextSubID,
		owner:       c.conn,
		priority:    req.Priority,
		enabled:     req.PublishingEnabled,
		nextSeq:     1,
		lastMessage: s.clock.Now(),
		retransmit:  make(map[uint32]*ua.NotificationMessage),
		items:       make(map[uint32]*item),
	}
	c.revise(sub, req.RequestedPublishingInterval, req.RequestedMaxKeepAliveCount,
		req.RequestedLifetimeCount, req.MaxNotificationsPerPublish)
	s.subs[sub.id] = sub
	s.signalLocked()
	s.logger.Debug("CreateSubscription",
		"subscriptionID", sub.id,
		"interval", sub.interval,
		"keepAlive", sub.keepAlive)

	return &ua.CreateSubscriptionResponse{
		ResponseHeader:            c.responseHeader(req.RequestHeader),
		SubscriptionID:            sub.id,
		RevisedPublishingInterval: float64(sub.interval) / float64(time.Millisecond),
		RevisedLifetimeCount:      sub.lifetime,
		RevisedMaxKeepAliveCount:  sub.keepAlive,
	}, nil
}

func (c *Session) revise(sub *subscription, intervalMS float64, keepAlive, lifetime, maxNotif uint32) {
	interval := time.Duration(intervalMS * float64(time.Millisecond))
	if interval < c.server.config.MinPublishingInterval {
		interval = c.server.config.MinPublishingInterval
	}
	if keepAlive == 0 {
		keepAlive = 1
	}
	if lifetime < 3*keepAlive {
		lifetime = 3 * keepAlive
	}
	sub.interval = interval
	sub.keepAlive = keepAlive
	sub.lifetime = lifetime
	sub.maxNotif = maxNotif
}

func (c *Session) ModifySubscription(ctx context.Context, req *ua.ModifySubscriptionRequest) (*ua.ModifySubscriptionResponse, error) {
	s := c.server
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := c.checkLocked(); err != nil {
		return nil, err
	}
	sub, ok := s.subs[req.SubscriptionID]
	if !ok || sub.owner != c.conn {
		return nil, ua.StatusBadSubscriptionIDInvalid
	}
	c.revise(sub, req.RequestedPublishingInterval, req.RequestedMaxKeepAliveCount,
		req.RequestedLifetimeCount, req.MaxNotificationsPerPublish)
	sub.priority = req.Priority
	s.signalLocked()
	return &ua.ModifySubscriptionResponse{
		ResponseHeader:            c.responseHeader(req.RequestHeader),
		RevisedPublishingInterval: float64(sub.interval) / float64(time.Millisecond),
		RevisedLifetimeCount:      sub.lifetime,
		RevisedMaxKeepAliveCount:  sub.keepAlive,
	}, nil
}

func (c *Session) DeleteSubscriptions(ctx context.Context, req *ua.DeleteSubscriptionsRequest) (*ua.DeleteSubscriptionsResponse, error) {
	s := c.server
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := c.checkLocked(); err != nil {
		return nil, err
	}
	results := make([]ua.StatusCode, len(req.SubscriptionIDs))
	for i, id := range req.SubscriptionIDs {
		sub, ok := s.subs[id]
		if !ok || sub.owner != c.conn {
			results[i] = ua.StatusBadSubscriptionIDInvalid
			continue
		}
		delete(s.subs, id)
		results[i] = ua.StatusOK
	}
	s.signalLocked()
	return &ua.DeleteSubscriptionsResponse{
		ResponseHeader: c.responseHeader(req.RequestHeader),
		Results:        results,
	}, nil
}

func (c *Session) SetPublishingMode(ctx context.Context, req *ua.SetPublishingModeRequest) (*ua.SetPublishingModeResponse, error) {
	s := c.server
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := c.checkLocked(); err != nil {
		return nil, err
	}
	results := make([]ua.StatusCode, len(req.SubscriptionIDs))
	for i, id := range req.SubscriptionIDs {
		sub, ok := s.subs[id]
		if !ok || sub.owner != c.conn {
			results[i] = ua.StatusBadSubscriptionIDInvalid
			continue
		}
		sub.enabled = req.PublishingEnabled
		results[i] = ua.StatusOK
	}
	s.signalLocked()
	return &ua.SetPublishingModeResponse{
		ResponseHeader: c.responseHeader(req.RequestHeader),
		Results:        results,
	}, nil
}

func (c *Session) TransferSubscriptions(ctx context.Context, req *ua.TransferSubscriptionsRequest) (*ua.TransferSubscriptionsResponse, error) {
	s := c.server
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := c.checkLocked(); err != nil {
		return nil, err
	}
	if s.config.DisableTransfer {
		return nil, ua.StatusBadServiceUnsupported
	}
	results := make([]*ua.TransferResult, len(req.SubscriptionIDs))
	for i, id := range req.SubscriptionIDs {
		sub, ok := s.subs[id]
		switch {
		case !ok:
			results[i] = &ua.TransferResult{StatusCode: ua.StatusBadSubscriptionIDInvalid}
		case sub.owner == c.conn:
			results[i] = &ua.TransferResult{StatusCode: ua.StatusBadNothingToDo}
		default:
			sub.owner = c.conn
			sub.lastMessage = s.clock.Now()
			s.stats.TransferredOK++
			results[i] = &ua.TransferResult{
				StatusCode:               ua.StatusOK,
				AvailableSequenceNumbers: sub.available(),
			}
		}
	}
	s.signalLocked()
	return &ua.TransferSubscriptionsResponse{
		ResponseHeader: c.responseHeader(req.RequestHeader),
		Results:        results,
	}, nil
}

func (c *Session) Republish(ctx context.Context, req *ua.RepublishRequest) (*ua.RepublishResponse, error) {
	s := c.server
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := c.checkLocked(); err != nil {
		return nil, err
	}
	s.stats.Republish++
	sub, ok := s.subs[req.SubscriptionID]
	if !ok || sub.owner != c.conn {
		return nil, ua.StatusBadSubscriptionIDInvalid
	}
	msg, ok := sub.retransmit[req.RetransmitSequenceNumber]
	if !ok || s.failRepub {
		return nil, ua.StatusBadMessageNotAvailable
	}
	return &ua.RepublishResponse{
		ResponseHeader:      c.responseHeader(req.RequestHeader),
		NotificationMessage: msg,
	}, nil
}

// Publish acknowledges req's acknowledgements and waits until a
// subscription of this session has a message to send.
func (c *Session) Publish(ctx context.Context, req *ua.PublishRequest) (*ua.PublishResponse, error) {
	s := c.server
	s.mu.Lock()
	if err := c.checkLocked(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if limit := s.config.MaxConcurrentPublish; limit > 0 && c.inflight >= limit {
		s.stats.PublishRejected++
		s.mu.Unlock()
		return nil, ua.StatusBadTooManyPublishRequests
	}
	s.stats.Publish++
	c.inflight++
	current := c.conn
	results := c.acknowledgeLocked(req.SubscriptionAcknowledgements)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		c.inflight--
		s.mu.Unlock()
	}()

	for {
		s.mu.Lock()
		if c.conn != current {
			s.mu.Unlock()
			return nil, ua.StatusBadSessionIDInvalid
		}
		if err := c.checkLocked(); err != nil {
			s.mu.Unlock()
			return nil, err
		}
		if !c.hasSubscriptionsLocked() {
			s.mu.Unlock()
			return nil, ua.StatusBadNoSubscription
		}
		resp := c.nextResponseLocked()
		wake := s.wake
		poll := c.pollIntervalLocked()
		s.mu.Unlock()

		if resp != nil {
			resp.ResponseHeader = c.responseHeader(req.RequestHeader)
			resp.Results = results
			return resp, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-wake:
		case <-s.clock.After(poll):
		}
	}
}

func (c *Session) acknowledgeLocked(acks []*ua.SubscriptionAcknowledgement) []ua.StatusCode {
	s := c.server
	results := make([]ua.StatusCode, len(acks))
	for i, a := range acks {
		sub, ok := s.subs[a.SubscriptionID]
		switch {
		case !ok:
			results[i] = ua.StatusBadSubscriptionIDInvalid
		case !sub.ack(a.SequenceNumber):
			results[i] = ua.StatusBadSequenceNumberUnknown
		default:
			s.stats.Acknowledged++
			results[i] = ua.StatusOK
		}
	}
	return results
}

func (c *Session) hasSubscriptionsLocked() bool {
	for _, sub := range c.server.subs {
		if sub.owner == c.conn {
			return true
		}
	}
	return false
}

func (c *Session) pollIntervalLocked() time.Duration {
	poll := time.Duration(0)
	for _, sub := range c.server.subs {
		if sub.owner == c.conn && (poll == 0 || sub.interval < poll) {
			poll = sub.interval
		}
	}
	if poll < c.server.config.MinPublishingInterval {
		poll = c.server.config.MinPublishingInterval
	}
	return poll
}

// ownedLocked returns the subscriptions of the session by descending priority.
func (c *Session) ownedLocked() []*subscription {
	var subs []*subscription
	for _, sub := range c.server.subs {
		if sub.owner == c.conn {
			subs = append(subs, sub)
		}
	}
	sort.Slice(subs, func(a, b int) bool {
		if subs[a].priority != subs[b].priority {
			return subs[a].priority > subs[b].priority
		}
		return subs[a].id < subs[b].id
	})
	return subs
}

func (c *Session) nextResponseLocked() *ua.PublishResponse {
	s := c.server
	now := s.clock.Now()
	for _, sub := range c.ownedLocked() {
		if sub.statusChange != 0 {
			msg := &ua.NotificationMessage{
				SequenceNumber: sub.nextSeq,
				PublishTime:    now,
				NotificationData: []*ua.ExtensionObject{
					ua.NewExtensionObject(&ua.StatusChangeNotification{Status: sub.statusChange}),
				},
			}
			sub.nextSeq++
			sub.statusChange = 0
			sub.lastMessage = now
			s.stats.StatusChangesSent++
			if sub.expire {
				delete(s.subs, sub.id)
			} else {
				sub.store(msg, s.config.MaxRetransmitQueue)
			}
			return &ua.PublishResponse{
				SubscriptionID:           sub.id,
				AvailableSequenceNumbers: sub.available(),
				NotificationMessage:      msg,
			}
		}

		due := now.Sub(sub.lastMessage) >= sub.interval
		if sub.enabled && due && len(sub.pending) > 0 {
			n := len(sub.pending)
			if sub.maxNotif > 0 && uint32(n) > sub.maxNotif {
				n = int(sub.maxNotif)
			}
			items := sub.pending[:n:n]
			sub.pending = append([]*ua.MonitoredItemNotification(nil), sub.pending[n:]...)
			msg := &ua.NotificationMessage{
				SequenceNumber: sub.nextSeq,
				PublishTime:    now,
				NotificationData: []*ua.ExtensionObject{
					ua.NewExtensionObject(&ua.DataChangeNotification{MonitoredItems: items}),
				},
			}
			sub.nextSeq++
			sub.lastMessage = now
			sub.store(msg, s.config.MaxRetransmitQueue)
			if sub.dropNext > 0 {
				sub.dropNext--
				s.stats.DroppedResponses++
				s.logger.Debug("Publish: dropping response",
					"subscriptionID", sub.id,
					"sequenceNumber", msg.SequenceNumber)
				continue
			}
			s.stats.DataChangeSent++
			return &ua.PublishResponse{
				SubscriptionID:           sub.id,
				AvailableSequenceNumbers: sub.available(),
				MoreNotifications:        len(sub.pending) > 0,
				NotificationMessage:      msg,
			}
		}

		if now.Sub(sub.lastMessage) >= sub.keepAliveInterval() {
			sub.lastMessage = now
			s.stats.KeepAlives++
			return &ua.PublishResponse{
				SubscriptionID:           sub.id,
				AvailableSequenceNumbers: sub.available(),
				NotificationMessage: &ua.NotificationMessage{
					SequenceNumber: sub.nextSeq,
					PublishTime:    now,
				},
			}
		}
	}
	return nil
}
