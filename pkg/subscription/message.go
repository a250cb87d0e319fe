package subscription

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/gopcua/opcua/ua"

	"github.com/mash-protocol/uasub-go/pkg/log"
	"github.com/mash-protocol/uasub-go/pkg/prioq"
)

type incomingMessage struct {
	sequenceNumber uint32
	message        *ua.NotificationMessage
	stringTable    []string
}

// onPublishReceived is called by a publish worker for every response
// routed to this subscription.
func (s *Subscription) onPublishReceived(msg *ua.NotificationMessage, available []uint32, stringTable []string) {
	s.notifyReceived()
	s.setAvailable(available)
	if msg == nil {
		return
	}
	err := s.messages.Push(incomingMessage{
		sequenceNumber: msg.SequenceNumber,
		message:        msg,
		stringTable:    stringTable,
	})
	if err != nil {
		s.logger.Debug("onPublishReceived: message dropped",
			"sequenceNumber", msg.SequenceNumber,
			"error", err)
	}
}

// processMessages dispatches queued messages in sequence-number order until
// the subscription is closed.
func (s *Subscription) processMessages() {
	defer close(s.loopDone)
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("processMessages: loop failed",
				"panic", r)
			s.m.complete(s, fmt.Sprintf("message loop failed: %v", r))
		}
	}()

	for {
		next, err := s.messages.Pop(s.ctx)
		if err != nil {
			if errors.Is(err, prioq.ErrClosed) || s.ctx.Err() != nil {
				return
			}
			s.logger.Error("processMessages: loop failed",
				"error", err)
			s.m.complete(s, err.Error())
			return
		}
		s.processMessage(next)
	}
}

func (s *Subscription) processMessage(next incomingMessage) {
	cur := next.sequenceNumber
	prev := s.lastSequenceNumber.Load()
	if wrapped(prev, cur) {
		prev = 0
	}
	if prev != 0 && cur > prev+1 {
		s.recoverGap(prev, cur)
		prev = s.lastSequenceNumber.Load()
	}

	// A keep-alive carries the next sequence number to be used, so it is
	// delivered but neither consumed nor acknowledged.
	if len(next.message.NotificationData) == 0 {
		if prev != 0 && cur <= prev {
			s.logger.Debug("processMessage: stale keep-alive",
				"sequenceNumber", cur,
				"lastSequenceNumber", prev)
			return
		}
		s.dispatch(next.message, next.stringTable, PublishStateNone)
		return
	}

	if cur <= prev {
		s.logger.Debug("processMessage: dropping old message",
			"sequenceNumber", cur,
			"lastSequenceNumber", prev)
		s.m.metrics.RecordDroppedMessage()
		s.m.traceNotification(s, &log.NotificationEvent{
			SequenceNumber: cur,
			PublishTime:    next.message.PublishTime,
			Dropped:        true,
		})
		return
	}

	s.lastSequenceNumber.Store(cur)
	s.dispatch(next.message, next.stringTable, PublishStateNone)
	s.ack(cur)
}

// wrapped reports whether cur follows prev after the sequence number rolled
// over. Sequence numbers restart at 1, never 0.
func wrapped(prev, cur uint32) bool {
	return prev == math.MaxUint32 && cur == 1
}

// recoverGap republishes the messages between prev and cur that the server
// still holds. Everything else in the gap is lost.
func (s *Subscription) recoverGap(prev, cur uint32) {
	missing := int(cur - prev - 1)
	var candidates []uint32
	for _, seq := range s.AvailableSequenceNumbers() {
		if seq > prev && seq < cur {
			candidates = append(candidates, seq)
		}
	}
	sort.Slice(candidates, func(a, b int) bool { return candidates[a] < candidates[b] })

	s.logger.Info("Sequence gap detected",
		"lastSequenceNumber", prev,
		"sequenceNumber", cur,
		"missing", missing,
		"available", len(candidates))
	if len(candidates) > 0 {
		s.publishStateChanged(PublishStateRepublish)
	}

	recovered := 0
	for _, seq := range candidates {
		msg, stringTable, err := s.republish(seq)
		if err != nil {
			s.logger.Warn("Republish: failed",
				"sequenceNumber", seq,
				"error", err)
			s.m.metrics.RecordRepublish(false)
			continue
		}
		s.m.metrics.RecordRepublish(true)
		recovered++
		s.lastSequenceNumber.Store(seq)
		s.dispatch(msg, stringTable, PublishStateRepublish)
		s.ack(seq)
	}

	if lost := missing - recovered; lost > 0 {
		s.logger.Warn("Messages lost",
			"lastSequenceNumber", prev,
			"sequenceNumber", cur,
			"lost", lost)
		s.m.metrics.RecordLostMessages(lost)
		s.m.traceNotification(s, &log.NotificationEvent{
			SequenceNumber: cur,
			Count:          lost,
			Lost:           true,
		})
	}
}

func (s *Subscription) republish(seq uint32) (*ua.NotificationMessage, []string, error) {
	id := s.ID()
	if id == 0 {
		return nil, nil, ErrNotCreated
	}
	start := s.m.clock.Now()
	resp, err := s.session.Republish(s.ctx, &ua.RepublishRequest{
		RequestHeader:            s.m.requestHeader(0),
		SubscriptionID:           id,
		RetransmitSequenceNumber: seq,
	})
	if err == nil && resp.NotificationMessage == nil {
		err = fmt.Errorf("%w: no notification message", ErrUnexpectedResponse)
	}
	s.m.traceService(s, log.ServiceRepublish, err, s.m.clock.Now().Sub(start), func(e *log.ServiceEvent) {
		e.Acks = []log.Ack{{SubscriptionID: id, SequenceNumber: seq}}
	})
	if err != nil {
		return nil, nil, err
	}
	var stringTable []string
	if resp.ResponseHeader != nil {
		stringTable = resp.ResponseHeader.StringTable
	}
	return resp.NotificationMessage, stringTable, nil
}

// dispatch delivers a message to the handler. Handler panics are logged
// and the message counts as processed.
func (s *Subscription) dispatch(msg *ua.NotificationMessage, stringTable []string, state PublishState) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("dispatch: handler panicked",
				"sequenceNumber", msg.SequenceNumber,
				"panic", r)
		}
	}()

	republished := state.Has(PublishStateRepublish)
	if len(msg.NotificationData) == 0 {
		s.m.traceNotification(s, &log.NotificationEvent{
			SequenceNumber: msg.SequenceNumber,
			PublishTime:    msg.PublishTime,
			Kind:           log.NotificationKeepAlive,
			Republished:    republished,
		})
		s.handler.OnKeepAliveNotification(s, msg.SequenceNumber, msg.PublishTime, state|PublishStateKeepAlive)
		return
	}

	for _, data := range msg.NotificationData {
		if data == nil {
			continue
		}
		switch n := data.Value.(type) {
		case *ua.DataChangeNotification:
			s.m.traceNotification(s, &log.NotificationEvent{
				SequenceNumber: msg.SequenceNumber,
				PublishTime:    msg.PublishTime,
				Kind:           log.NotificationDataChange,
				Count:          len(n.MonitoredItems),
				Republished:    republished,
			})
			s.handler.OnDataChangeNotification(s, msg.SequenceNumber, msg.PublishTime, n, state, stringTable)
		case *ua.EventNotificationList:
			s.m.traceNotification(s, &log.NotificationEvent{
				SequenceNumber: msg.SequenceNumber,
				PublishTime:    msg.PublishTime,
				Kind:           log.NotificationEvents,
				Count:          len(n.Events),
				Republished:    republished,
			})
			s.handler.OnEventNotification(s, msg.SequenceNumber, msg.PublishTime, n, state, stringTable)
		case *ua.StatusChangeNotification:
			s.m.traceNotification(s, &log.NotificationEvent{
				SequenceNumber: msg.SequenceNumber,
				PublishTime:    msg.PublishTime,
				Kind:           log.NotificationStatusChange,
				Republished:    republished,
			})
			s.onStatusChange(n, msg.PublishTime)
		default:
			s.logger.Warn("dispatch: unknown notification type",
				"sequenceNumber", msg.SequenceNumber,
				"type", fmt.Sprintf("%T", data.Value))
		}
	}
}

func (s *Subscription) onStatusChange(n *ua.StatusChangeNotification, publishTime time.Time) {
	var state PublishState
	switch n.Status {
	case ua.StatusGoodSubscriptionTransferred:
		state = PublishStateTransferred
	case ua.StatusBadTimeout:
		state = PublishStateTimeout
	default:
		s.logger.Info("Status changed",
			"status", n.Status,
			"publishTime", publishTime)
		return
	}
	s.logger.Info("Status changed",
		"status", n.Status,
		"state", state)
	s.publishStateChanged(state)
}

func (s *Subscription) ack(seq uint32) {
	err := s.m.enqueueAck(&ua.SubscriptionAcknowledgement{
		SubscriptionID: s.ID(),
		SequenceNumber: seq,
	})
	if err != nil {
		s.logger.Debug("ack: not queued",
			"sequenceNumber", seq,
			"error", err)
	}
}
