package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gopcua/opcua/ua"

	"github.com/mash-protocol/uasub-go/internal/backoff"
	"github.com/mash-protocol/uasub-go/pkg/log"
)

const (
	minOperationTimeout = time.Second
	maxOperationTimeout = 30 * time.Minute

	// timeoutHintIncrement is added to the timeout hint after a publish
	// request timed out on the server.
	timeoutHintIncrement = 1000
)

// publishWorker keeps one Publish call outstanding at a time.
type publishWorker struct {
	m       *Manager
	index   int
	logger  *slog.Logger
	backoff *backoff.Backoff

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	tooManyPublishRequests atomic.Bool
}

func newPublishWorker(m *Manager, index int) *publishWorker {
	ctx, cancel := context.WithCancel(m.ctx)
	return &publishWorker{
		m:       m,
		index:   index,
		logger:  m.logger.With("worker", index),
		backoff: backoff.New(m.config.Backoff),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

func (w *publishWorker) start() {
	go w.run()
}

// stop cancels the worker and waits for it to exit.
func (w *publishWorker) stop() {
	w.cancel()
	<-w.done
}

func (w *publishWorker) exited() bool {
	select {
	case <-w.done:
		return true
	default:
		return false
	}
}

func (w *publishWorker) run() {
	defer w.m.signal()
	defer close(w.done)

	w.traceState("Stopped", "Running")
	w.logger.Debug("Publish worker started")
	defer func() {
		w.traceState("Running", "Stopped")
		w.logger.Debug("Publish worker stopped")
	}()

	var timeoutHint uint32
	moreNotifications := true
	for w.ctx.Err() == nil {
		if err := w.m.running.Wait(w.ctx); err != nil {
			return
		}

		ackWait := w.m.publishTimeout()
		if hint := uint32(ackWait.Milliseconds()); hint > timeoutHint {
			timeoutHint = hint
		}

		var acks []*ua.SubscriptionAcknowledgement
		if moreNotifications {
			acks = w.m.takeAcks()
		} else {
			acks = w.waitForAcks(ackWait)
		}
		if w.ctx.Err() != nil {
			w.rollback(acks)
			return
		}
		if !w.m.running.IsSet() {
			// Paused during the acknowledgement wait.
			w.rollback(acks)
			continue
		}

		resp, err := w.publish(timeoutHint, acks)
		if err == nil {
			moreNotifications, err = w.onResponse(resp, acks)
		}
		if err != nil {
			if w.onError(err, acks, &timeoutHint, &moreNotifications) {
				return
			}
		}
	}
}

// waitForAcks blocks until an acknowledgement is queued or timeout passes
// and then takes the fair share. A zero timeout does not wait.
func (w *publishWorker) waitForAcks(timeout time.Duration) []*ua.SubscriptionAcknowledgement {
	if timeout <= 0 {
		return w.m.takeAcks()
	}
	ctx, cancel := context.WithCancel(w.ctx)
	defer cancel()
	timer := w.m.clock.AfterFunc(timeout, cancel)
	defer timer.Stop()

	first, err := w.m.acks.Pop(ctx)
	if err != nil {
		if w.ctx.Err() == nil {
			w.logger.Debug("Publish without acknowledgements",
				"waited", timeout)
		}
		return nil
	}
	return append([]*ua.SubscriptionAcknowledgement{first}, w.m.takeAcks()...)
}

func (w *publishWorker) publish(timeoutHint uint32, acks []*ua.SubscriptionAcknowledgement) (*ua.PublishResponse, error) {
	header := w.m.requestHeader(timeoutHint)
	w.m.metrics.RecordAcks(len(acks))
	w.m.trace(nil, log.Event{
		Direction: log.DirectionOut,
		Category:  log.CategoryService,
		Worker:    &w.index,
		Service: &log.ServiceEvent{
			Service:       log.ServicePublish,
			RequestHandle: header.RequestHandle,
			Acks:          traceAcks(acks),
			TimeoutHint:   timeoutHint,
		},
	})

	start := w.m.clock.Now()
	resp, err := w.m.session.Publish(w.ctx, &ua.PublishRequest{
		RequestHeader:                header,
		SubscriptionAcknowledgements: acks,
	})
	latency := w.m.clock.Now().Sub(start)

	status := "Good"
	if err != nil {
		status = publishStatusLabel(w.ctx, err)
	}
	w.m.metrics.RecordPublish(status, latency)

	event := &log.ServiceEvent{
		Service:       log.ServicePublish,
		RequestHandle: header.RequestHandle,
		Duration:      &latency,
	}
	var subID uint32
	if err != nil {
		if code, ok := StatusOf(err); ok {
			event.Status = uint32(code)
		} else {
			event.Status = 0x80000000
		}
	} else if resp != nil {
		subID = resp.SubscriptionID
		event.MoreNotifications = resp.MoreNotifications
		event.Available = resp.AvailableSequenceNumbers
	}
	w.m.trace(nil, log.Event{
		Direction:      log.DirectionIn,
		Category:       log.CategoryService,
		SubscriptionID: subID,
		Worker:         &w.index,
		Service:        event,
	})
	return resp, err
}

// onResponse routes a publish response and returns the server's
// MoreNotifications flag.
func (w *publishWorker) onResponse(resp *ua.PublishResponse, acks []*ua.SubscriptionAcknowledgement) (bool, error) {
	if resp == nil {
		return false, fmt.Errorf("%w: empty publish response", ErrUnexpectedResponse)
	}
	if len(resp.Results) != len(acks) {
		return false, fmt.Errorf("%w: %d acknowledgement results for %d acknowledgements",
			ErrUnexpectedResponse, len(resp.Results), len(acks))
	}
	for i, code := range resp.Results {
		if IsBad(code) {
			w.logger.Debug("Publish: acknowledgement rejected",
				"subscriptionID", acks[i].SubscriptionID,
				"sequenceNumber", acks[i].SequenceNumber,
				"status", code)
		}
	}

	w.tooManyPublishRequests.Store(false)
	w.backoff.Reset()

	var stringTable []string
	if resp.ResponseHeader != nil {
		stringTable = resp.ResponseHeader.StringTable
	}
	if sub := w.m.byID(resp.SubscriptionID); sub != nil {
		w.m.goodPublish.Add(1)
		sub.onPublishReceived(resp.NotificationMessage, resp.AvailableSequenceNumbers, stringTable)
		return resp.MoreNotifications, nil
	}

	if resp.SubscriptionID == 0 || w.m.inHistory(resp.SubscriptionID) {
		return resp.MoreNotifications, nil
	}

	w.m.badPublish.Add(1)
	w.logger.Info("Publish: response for unknown subscription, deleting",
		"subscriptionID", resp.SubscriptionID)
	_, err := w.m.session.DeleteSubscriptions(w.ctx, &ua.DeleteSubscriptionsRequest{
		RequestHeader:   w.m.requestHeader(0),
		SubscriptionIDs: []uint32{resp.SubscriptionID},
	})
	if err != nil {
		w.logger.Debug("Publish: deleting unknown subscription failed",
			"subscriptionID", resp.SubscriptionID,
			"error", err)
	}
	return true, nil
}

// onError handles a failed publish. It reports whether the worker should
// exit.
func (w *publishWorker) onError(err error, acks []*ua.SubscriptionAcknowledgement, timeoutHint *uint32, moreNotifications *bool) bool {
	class := classifyPublishError(w.ctx, err)
	w.rollback(acks)
	if class == publishErrorCanceled {
		return true
	}

	w.m.badPublish.Add(1)
	if !w.m.running.IsSet() {
		w.logger.Debug("Publish: abandoned while paused",
			"error", err)
		return false
	}

	switch class {
	case publishErrorTooManyRequests:
		w.tooManyPublishRequests.Store(true)
		w.m.signal()
		delay := w.backoff.Next()
		w.logger.Debug("Publish: too many publish requests",
			"delay", delay)
		w.sleep(delay)
	case publishErrorSession:
		w.logger.Debug("Publish: session error",
			"error", err)
		w.sleep(w.backoff.Next())
	case publishErrorOverload:
		w.logger.Debug("Publish: server overloaded, waiting for acknowledgements",
			"error", err)
		*moreNotifications = false
	case publishErrorTimeout:
		*timeoutHint += timeoutHintIncrement
		*moreNotifications = true
		w.logger.Debug("Publish: timed out",
			"timeoutHint", *timeoutHint,
			"error", err)
	default:
		w.logger.Error("Publish: failed",
			"error", err)
		w.sleep(w.backoff.Next())
	}
	return false
}

// rollback puts acknowledgements of a failed request back into the queue.
func (w *publishWorker) rollback(acks []*ua.SubscriptionAcknowledgement) {
	if len(acks) == 0 {
		return
	}
	if err := w.m.acks.PushAll(acks); err != nil {
		w.logger.Debug("Publish: acknowledgements not rolled back",
			"count", len(acks),
			"error", err)
		return
	}
	w.m.trace(nil, log.Event{
		Direction: log.DirectionLocal,
		Category:  log.CategoryService,
		Worker:    &w.index,
		Service: &log.ServiceEvent{
			Service: log.ServicePublish,
			Acks:    traceAcks(acks),
		},
	})
}

func (w *publishWorker) sleep(d time.Duration) {
	select {
	case <-w.m.clock.After(d):
	case <-w.ctx.Done():
	}
}

func (w *publishWorker) traceState(oldState, newState string) {
	w.m.trace(nil, log.Event{
		Direction: log.DirectionLocal,
		Category:  log.CategoryState,
		Worker:    &w.index,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityWorker,
			OldState: oldState,
			NewState: newState,
		},
	})
}

func traceAcks(acks []*ua.SubscriptionAcknowledgement) []log.Ack {
	if len(acks) == 0 {
		return nil
	}
	out := make([]log.Ack, len(acks))
	for i, a := range acks {
		out[i] = log.Ack{SubscriptionID: a.SubscriptionID, SequenceNumber: a.SequenceNumber}
	}
	return out
}

func publishStatusLabel(ctx context.Context, err error) string {
	if code, ok := StatusOf(err); ok {
		return fmt.Sprintf("0x%08X", uint32(code))
	}
	return classifyPublishError(ctx, err).String()
}
