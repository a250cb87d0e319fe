package subscription

import (
	"time"

	"github.com/mash-protocol/uasub-go/pkg/log"
)

const (
	minKeepAliveInterval = time.Second
	keepAliveMargin      = time.Second
)

// startKeepAlive (re)arms the keep-alive timer with one keep-alive period
// of the current settings, falling back to the requested settings.
func (s *Subscription) startKeepAlive() {
	s.mu.RLock()
	interval := s.currentPublishingInterval * time.Duration(s.currentKeepAliveCount+1)
	if interval < minKeepAliveInterval {
		interval = s.options.PublishingInterval * time.Duration(s.options.KeepAliveCount+1)
	}
	s.mu.RUnlock()
	if interval < minKeepAliveInterval {
		interval = minKeepAliveInterval
	}

	s.kaMu.Lock()
	defer s.kaMu.Unlock()
	if s.ctx.Err() != nil {
		return
	}
	if s.kaTimer != nil {
		s.kaTimer.Stop()
	}
	s.kaInterval = interval
	s.lastNotification = s.m.clock.Now()
	s.stopped = false
	s.kaTimer = s.m.clock.AfterFunc(interval, s.onKeepAliveTimer)
}

func (s *Subscription) stopKeepAlive() {
	s.kaMu.Lock()
	defer s.kaMu.Unlock()
	if s.kaTimer != nil {
		s.kaTimer.Stop()
		s.kaTimer = nil
	}
	s.lastNotification = time.Time{}
	s.stopped = false
}

func (s *Subscription) onKeepAliveTimer() {
	s.kaMu.Lock()
	if s.kaTimer == nil {
		s.kaMu.Unlock()
		return
	}
	late := s.m.clock.Now().Sub(s.lastNotification) > s.kaInterval+keepAliveMargin
	notify := false
	if late {
		s.publishLateCount.Add(1)
		if !s.stopped {
			s.stopped = true
			notify = true
		}
	}
	s.kaTimer.Reset(s.kaInterval)
	s.kaMu.Unlock()

	if notify {
		s.logger.Warn("Publishing stopped",
			"lastSequenceNumber", s.LastSequenceNumberProcessed(),
			"publishLateCount", s.PublishLateCount())
		s.publishStateChanged(PublishStateStopped)
	}
}

// notifyReceived records a publish response for the subscription.
func (s *Subscription) notifyReceived() {
	s.kaMu.Lock()
	s.lastNotification = s.m.clock.Now()
	wasStopped := s.stopped
	s.stopped = false
	if s.kaTimer != nil {
		s.kaTimer.Reset(s.kaInterval)
	}
	s.kaMu.Unlock()

	if wasStopped {
		s.logger.Info("Publishing recovered")
		s.publishStateChanged(PublishStateRecovered)
	}
}

// PublishingStopped reports whether the last message is older than one
// keep-alive period plus a margin.
func (s *Subscription) PublishingStopped() bool {
	s.kaMu.Lock()
	defer s.kaMu.Unlock()
	if s.lastNotification.IsZero() {
		return false
	}
	return s.m.clock.Now().Sub(s.lastNotification) > s.kaInterval+keepAliveMargin
}

// KeepAliveInterval returns the period checked by the keep-alive timer, 0
// while it is not running.
func (s *Subscription) KeepAliveInterval() time.Duration {
	s.kaMu.Lock()
	defer s.kaMu.Unlock()
	if s.kaTimer == nil {
		return 0
	}
	return s.kaInterval
}

func (s *Subscription) publishStateChanged(state PublishState) {
	s.m.metrics.RecordPublishState(state)
	s.m.traceState(s, log.StateEntityPublish, "", state.String(), "")
	func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("OnPublishStateChanged: handler panicked",
					"state", state,
					"panic", r)
			}
		}()
		s.handler.OnPublishStateChanged(s, state)
	}()
	s.m.notifyWatchers(s, state)
}
