package subscription

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gopcua/opcua/ua"
	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mash-protocol/uasub-go/internal/backoff"
	"github.com/mash-protocol/uasub-go/pkg/subscription/mocks"
)

type notification struct {
	kind  string
	seq   uint32
	state PublishState
}

// recorder collects handler calls.
type recorder struct {
	mu     sync.Mutex
	events []notification
	states []PublishState

	// block, if set, is waited on by every data change callback.
	block chan struct{}
}

func (r *recorder) handler() Handler {
	return HandlerFuncs{
		KeepAlive: func(_ *Subscription, seq uint32, _ time.Time, state PublishState) {
			r.add(notification{"keepalive", seq, state})
		},
		DataChange: func(_ *Subscription, seq uint32, _ time.Time, _ *ua.DataChangeNotification, state PublishState, _ []string) {
			if r.block != nil {
				<-r.block
			}
			r.add(notification{"datachange", seq, state})
		},
		Event: func(_ *Subscription, seq uint32, _ time.Time, _ *ua.EventNotificationList, state PublishState, _ []string) {
			r.add(notification{"event", seq, state})
		},
		StateChanged: func(_ *Subscription, state PublishState) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.states = append(r.states, state)
		},
	}
}

func (r *recorder) add(n notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, n)
}

func (r *recorder) all() []notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notification(nil), r.events...)
}

func (r *recorder) seqs(kind string) []uint32 {
	var out []uint32
	for _, n := range r.all() {
		if n.kind == kind {
			out = append(out, n.seq)
		}
	}
	return out
}

func (r *recorder) publishStates() []PublishState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]PublishState(nil), r.states...)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func testConfig() ManagerConfig {
	cfg := DefaultManagerConfig()
	cfg.Backoff = backoff.Config{Initial: time.Millisecond, Max: 10 * time.Millisecond}
	return cfg
}

func newTestManager(t *testing.T, session Session, mutate func(*ManagerConfig)) *Manager {
	t.Helper()
	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	m := NewManager(session, cfg)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

// newPausedManager returns a manager whose workers never publish, driven by
// a test clock.
func newPausedManager(t *testing.T, session Session) (*Manager, *testclock.Clock) {
	t.Helper()
	clk := testclock.NewClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	m := newTestManager(t, session, func(cfg *ManagerConfig) {
		cfg.StartPaused = true
		cfg.Clock = clk
	})
	return m, clk
}

func expectCreate(sess *mocks.MockSession, id uint32) {
	sess.EXPECT().SessionTimeout().Return(time.Minute).Maybe()
	sess.EXPECT().CreateSubscription(mock.Anything, mock.Anything).
		RunAndReturn(func(_ context.Context, req *ua.CreateSubscriptionRequest) (*ua.CreateSubscriptionResponse, error) {
			return &ua.CreateSubscriptionResponse{
				SubscriptionID:            id,
				RevisedPublishingInterval: req.RequestedPublishingInterval,
				RevisedLifetimeCount:      req.RequestedLifetimeCount,
				RevisedMaxKeepAliveCount:  req.RequestedMaxKeepAliveCount,
			}, nil
		}).Once()
}

// createdSubscription adds a subscription to m and creates it through the
// mock session.
func createdSubscription(t *testing.T, m *Manager, sess *mocks.MockSession, id uint32, h Handler) *Subscription {
	t.Helper()
	expectCreate(sess, id)
	opts := DefaultOptions()
	opts.Handler = h
	subs, err := m.Add(opts)
	require.NoError(t, err)
	require.NoError(t, subs[0].Create(context.Background()))
	return subs[0]
}

func dataMessage(seq uint32) *ua.NotificationMessage {
	return &ua.NotificationMessage{
		SequenceNumber: seq,
		PublishTime:    time.Now(),
		NotificationData: []*ua.ExtensionObject{{
			Value: &ua.DataChangeNotification{
				MonitoredItems: []*ua.MonitoredItemNotification{{ClientHandle: 1}},
			},
		}},
	}
}

func keepAliveMessage(seq uint32) *ua.NotificationMessage {
	return &ua.NotificationMessage{SequenceNumber: seq, PublishTime: time.Now()}
}

func statusMessage(seq uint32, status ua.StatusCode) *ua.NotificationMessage {
	return &ua.NotificationMessage{
		SequenceNumber: seq,
		PublishTime:    time.Now(),
		NotificationData: []*ua.ExtensionObject{{
			Value: &ua.StatusChangeNotification{Status: status},
		}},
	}
}

// queuedAcks drains the acknowledgement queue.
func queuedAcks(m *Manager) []uint32 {
	var seqs []uint32
	for _, a := range m.acks.PopN(m.acks.Len()) {
		seqs = append(seqs, a.SequenceNumber)
	}
	return seqs
}

func republished(_ context.Context, req *ua.RepublishRequest) (*ua.RepublishResponse, error) {
	return &ua.RepublishResponse{NotificationMessage: dataMessage(req.RetransmitSequenceNumber)}, nil
}

func retransmit(seq uint32) interface{} {
	return mock.MatchedBy(func(req *ua.RepublishRequest) bool {
		return req.RetransmitSequenceNumber == seq
	})
}
