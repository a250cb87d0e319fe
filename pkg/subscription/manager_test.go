package subscription

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gopcua/opcua/ua"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mash-protocol/uasub-go/pkg/sim"
)

const simWait = 5 * time.Second

var testNode = ua.NewStringNodeID(2, "Line1.Temperature")

// values collects data change values.
type values struct {
	mu          sync.Mutex
	values      []int32
	seqs        []uint32
	republished []uint32
}

func (v *values) handler() Handler {
	return HandlerFuncs{
		DataChange: func(_ *Subscription, seq uint32, _ time.Time, n *ua.DataChangeNotification, state PublishState, _ []string) {
			v.mu.Lock()
			defer v.mu.Unlock()
			v.seqs = append(v.seqs, seq)
			if state.Has(PublishStateRepublish) {
				v.republished = append(v.republished, seq)
			}
			for _, it := range n.MonitoredItems {
				if it.Value == nil || it.Value.Value == nil {
					continue
				}
				if x, ok := it.Value.Value.Value().(int32); ok {
					v.values = append(v.values, x)
				}
			}
		},
	}
}

func (v *values) last() int32 {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.values) == 0 {
		return 0
	}
	return v.values[len(v.values)-1]
}

func (v *values) sequence() []uint32 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]uint32(nil), v.seqs...)
}

func (v *values) republishedSeqs() []uint32 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]uint32(nil), v.republished...)
}

func newSimManager(t *testing.T, simCfg func(*sim.Config), mgrCfg func(*ManagerConfig)) (*sim.Server, *sim.Session, *Manager) {
	t.Helper()
	cfg := sim.DefaultConfig()
	cfg.MinPublishingInterval = 5 * time.Millisecond
	if simCfg != nil {
		simCfg(&cfg)
	}
	srv := sim.NewServer(cfg)
	sess := srv.NewSession()
	return srv, sess, newTestManager(t, sess, mgrCfg)
}

func startSubscription(t *testing.T, m *Manager, h Handler) *Subscription {
	t.Helper()
	subs, err := m.Add(Options{
		Name:               "line1",
		PublishingInterval: 20 * time.Millisecond,
		KeepAliveCount:     5,
		PublishingEnabled:  true,
		Handler:            h,
	})
	require.NoError(t, err)
	sub := subs[0]
	sub.AddItem(ItemOptions{NodeID: testNode, QueueSize: 10})
	require.NoError(t, sub.Create(context.Background()))
	require.True(t, sub.Created())
	return sub
}

func writeValue(srv *sim.Server, v int32) {
	srv.Write(testNode, &ua.DataValue{
		EncodingMask: ua.DataValueValue,
		Value:        ua.MustVariant(v),
	})
}

// writeAndWait writes v and waits until the handler has seen it.
func writeAndWait(t *testing.T, srv *sim.Server, rec *values, v int32) {
	t.Helper()
	writeValue(srv, v)
	require.Eventually(t, func() bool { return rec.last() == v }, simWait, 5*time.Millisecond,
		"value %d not delivered", v)
}

func TestManagerDeliversAndAcknowledges(t *testing.T) {
	srv, _, m := newSimManager(t, nil, nil)
	rec := &values{}
	sub := startSubscription(t, m, rec.handler())

	for v := int32(1); v <= 5; v++ {
		writeAndWait(t, srv, rec, v)
	}

	seqs := rec.sequence()
	for i := 1; i < len(seqs); i++ {
		assert.Equal(t, seqs[i-1]+1, seqs[i], "sequence %v", seqs)
	}
	assert.Equal(t, seqs[len(seqs)-1], sub.LastSequenceNumberProcessed())
	assert.Equal(t, DefaultMinPublishWorkerCount, m.PublishWorkerCount())
	assert.Equal(t, 1, m.CreatedCount())

	require.Eventually(t, func() bool {
		return len(srv.Retransmission(sub.ID())) == 0
	}, simWait, 5*time.Millisecond, "acknowledgements not delivered")
	assert.Empty(t, rec.republishedSeqs())
	assert.Greater(t, m.GoodPublishRequestCount(), int64(0))
}

func TestManagerRecoversDroppedMessage(t *testing.T) {
	srv, _, m := newSimManager(t, nil, nil)
	rec := &values{}
	sub := startSubscription(t, m, rec.handler())

	writeAndWait(t, srv, rec, 1)

	srv.DropNext(sub.ID(), 1)
	writeValue(srv, 2)
	require.Eventually(t, func() bool { return srv.Stats().DroppedResponses == 1 }, simWait, 5*time.Millisecond)
	writeAndWait(t, srv, rec, 3)

	republished := rec.republishedSeqs()
	require.Len(t, republished, 1)
	assert.Equal(t, 1, srv.Stats().Republish)

	seqs := rec.sequence()
	for i := 1; i < len(seqs); i++ {
		assert.Equal(t, seqs[i-1]+1, seqs[i], "sequence %v", seqs)
	}
}

func TestManagerBackpressureFromServer(t *testing.T) {
	metrics := &workerMetrics{}
	srv, _, m := newSimManager(t, func(c *sim.Config) {
		c.MaxConcurrentPublish = 1
	}, func(c *ManagerConfig) {
		c.StartPaused = true
		c.MinPublishWorkerCount = 1
		c.MaxPublishWorkerCount = 4
		c.Metrics = metrics
	})
	rec := &values{}
	startSubscription(t, m, rec.handler())
	for i := 0; i < 3; i++ {
		startSubscription(t, m, nil)
	}
	require.Eventually(t, func() bool {
		counts := metrics.snapshot()
		return len(counts) > 0 && counts[len(counts)-1] == 4
	}, simWait, 5*time.Millisecond)
	mark := len(metrics.snapshot())
	m.Resume()

	require.Eventually(t, func() bool {
		return m.MaxPublishWorkerCount() == 1 && m.PublishWorkerCount() == 1
	}, simWait, 5*time.Millisecond)
	assert.Greater(t, srv.Stats().PublishRejected, 0)

	counts := metrics.snapshot()
	for i := mark; i < len(counts); i++ {
		assert.LessOrEqual(t, counts[i], counts[i-1], "worker count grew: %v", counts)
	}

	writeAndWait(t, srv, rec, 42)
	assert.Equal(t, 1, m.MaxPublishWorkerCount())
}

func TestWorkerPoolFollowsCreatedSubscriptions(t *testing.T) {
	_, _, m := newSimManager(t, nil, func(c *ManagerConfig) {
		c.MinPublishWorkerCount = 1
		c.MaxPublishWorkerCount = 2
	})
	assert.Equal(t, 0, m.PublishWorkerCount())

	first := startSubscription(t, m, nil)
	require.Eventually(t, func() bool { return m.PublishWorkerCount() == 1 }, simWait, 5*time.Millisecond)

	second := startSubscription(t, m, nil)
	third := startSubscription(t, m, nil)
	require.Eventually(t, func() bool { return m.PublishWorkerCount() == 2 }, simWait, 5*time.Millisecond)
	assert.Equal(t, 3, m.Count())

	ctx := context.Background()
	for _, sub := range []*Subscription{first, second, third} {
		require.NoError(t, sub.Delete(ctx, false))
	}
	require.Eventually(t, func() bool { return m.PublishWorkerCount() == 0 }, simWait, 5*time.Millisecond)
	assert.Equal(t, 3, m.Count())
	assert.Greater(t, m.PublishControlCycles(), int64(0))
}

func TestRecreateSubscriptionsTransfers(t *testing.T) {
	srv, sess, m := newSimManager(t, nil, nil)
	rec := &values{}
	sub := startSubscription(t, m, rec.handler())
	id := sub.ID()
	itemID := sub.Items()[0].ServerID()
	writeAndWait(t, srv, rec, 1)

	m.Pause()
	prev := sess.Reconnect()
	require.NoError(t, m.RecreateSubscriptions(context.Background(), prev))
	m.Resume()

	assert.Equal(t, id, sub.ID())
	assert.Equal(t, itemID, sub.Items()[0].ServerID())
	assert.Equal(t, 1, srv.Stats().TransferredOK)
	assert.True(t, m.TransferSubscriptionsOnRecreate())

	writeAndWait(t, srv, rec, 2)
	assert.Empty(t, rec.republishedSeqs())
}

func TestRecreateSubscriptionsWithoutTransfer(t *testing.T) {
	srv, sess, m := newSimManager(t, func(c *sim.Config) {
		c.DisableTransfer = true
	}, nil)
	rec := &values{}
	sub := startSubscription(t, m, rec.handler())
	id := sub.ID()
	writeAndWait(t, srv, rec, 1)

	prev := sess.Reconnect()
	require.NoError(t, m.RecreateSubscriptions(context.Background(), prev))

	assert.False(t, m.TransferSubscriptionsOnRecreate())
	assert.NotEqual(t, id, sub.ID())
	assert.True(t, sub.Created())
	require.Len(t, sub.Items(), 1)
	assert.True(t, sub.Items()[0].Created())
	assert.Equal(t, 0, srv.Stats().TransferredOK)

	writeAndWait(t, srv, rec, 2)
}

func TestRecreateSubscriptionsWithoutPreviousSession(t *testing.T) {
	srv, sess, m := newSimManager(t, nil, nil)
	rec := &values{}
	sub := startSubscription(t, m, rec.handler())
	id := sub.ID()

	sess.Reconnect()
	require.NoError(t, m.RecreateSubscriptions(context.Background(), nil))

	assert.NotEqual(t, id, sub.ID())
	assert.Equal(t, 0, srv.Stats().TransferredOK)
	assert.True(t, m.TransferSubscriptionsOnRecreate())
	writeAndWait(t, srv, rec, 7)
}

func TestRemoveDeletesOnServer(t *testing.T) {
	srv, _, m := newSimManager(t, nil, nil)
	sub := startSubscription(t, m, nil)
	id := sub.ID()
	require.Equal(t, []uint32{id}, srv.SubscriptionIDs())

	require.NoError(t, m.Remove(context.Background(), sub))
	assert.Empty(t, srv.SubscriptionIDs())
	assert.Equal(t, 0, m.Count())
	assert.Nil(t, m.ByID(id))
	assert.True(t, m.inHistory(id))
	require.Eventually(t, func() bool { return m.PublishWorkerCount() == 0 }, simWait, 5*time.Millisecond)
}

func TestSubscriptionTimeoutReported(t *testing.T) {
	srv, _, m := newSimManager(t, nil, nil)
	states := make(chan PublishState, 4)
	sub := startSubscription(t, m, HandlerFuncs{
		StateChanged: func(_ *Subscription, state PublishState) { states <- state },
	})

	srv.SetTimeout(sub.ID())
	select {
	case state := <-states:
		assert.True(t, state.Has(PublishStateTimeout))
	case <-time.After(simWait):
		t.Fatal("timeout not reported")
	}
}

func TestManagerClose(t *testing.T) {
	_, _, m := newSimManager(t, nil, nil)
	sub := startSubscription(t, m, nil)
	require.Eventually(t, func() bool { return m.PublishWorkerCount() > 0 }, simWait, 5*time.Millisecond)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	assert.Equal(t, 0, m.PublishWorkerCount())
	assert.Equal(t, 0, m.Count())

	_, err := m.Add(DefaultOptions())
	assert.ErrorIs(t, err, ErrManagerClosed)
	assert.ErrorIs(t, sub.Create(context.Background()), ErrClosed)
}

func TestWatchPublishState(t *testing.T) {
	m := newTestManager(t, nil, func(c *ManagerConfig) { c.StartPaused = true })
	subs, err := m.Add(DefaultOptions())
	require.NoError(t, err)

	var got []PublishState
	cancel := m.WatchPublishState(func(_ *Subscription, state PublishState) {
		got = append(got, state)
	})
	m.notifyWatchers(subs[0], PublishStateStopped)
	cancel()
	m.notifyWatchers(subs[0], PublishStateRecovered)

	assert.Equal(t, []PublishState{PublishStateStopped}, got)
}

func TestRequestHeader(t *testing.T) {
	m := newTestManager(t, nil, func(c *ManagerConfig) {
		c.StartPaused = true
		c.ReturnDiagnostics = 0x3ff
	})
	first := m.requestHeader(0)
	second := m.requestHeader(5000)

	assert.Equal(t, first.RequestHandle+1, second.RequestHandle)
	assert.Equal(t, uint32(0x3ff), second.ReturnDiagnostics)
	assert.Equal(t, uint32(5000), second.TimeoutHint)
	assert.False(t, second.Timestamp.IsZero())
	assert.NotEmpty(t, m.TraceID())
}
