package subscription

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gopcua/opcua/ua"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mash-protocol/uasub-go/pkg/subscription/mocks"
)

func TestDesiredWorkerCount(t *testing.T) {
	tests := []struct {
		created, min, max int
		want              int
	}{
		{created: 0, min: 2, max: 15, want: 0},
		{created: 1, min: 2, max: 15, want: 2},
		{created: 5, min: 2, max: 15, want: 5},
		{created: 15, min: 2, max: 15, want: 15},
		{created: 40, min: 2, max: 15, want: 15},
		{created: 3, min: 0, max: 0, want: 1},
		{created: 1, min: 0, max: 15, want: 1},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, desiredWorkerCount(tc.created, tc.min, tc.max),
			"created=%d min=%d max=%d", tc.created, tc.min, tc.max)
	}
}

func testAcks() []*ua.SubscriptionAcknowledgement {
	return []*ua.SubscriptionAcknowledgement{
		{SubscriptionID: 1, SequenceNumber: 3},
		{SubscriptionID: 1, SequenceNumber: 4},
		{SubscriptionID: 2, SequenceNumber: 1},
	}
}

func TestWorkerErrorHandling(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		hint        uint32
		more        bool
		wantHint    uint32
		wantMore    bool
		wantTooMany bool
	}{
		{
			name:        "too many publish requests",
			err:         ua.StatusBadTooManyPublishRequests,
			more:        true,
			wantMore:    true,
			wantTooMany: true,
		},
		{
			name:     "timeout raises hint",
			err:      ua.StatusBadTimeout,
			hint:     5000,
			wantHint: 6000,
			wantMore: true,
		},
		{
			name:     "overload throttles",
			err:      ua.StatusBadTooManyOperations,
			more:     true,
			wantMore: false,
		},
		{
			name:     "session error is swallowed",
			err:      ua.StatusBadSessionIDInvalid,
			more:     true,
			wantMore: true,
		},
		{
			name:     "unhandled",
			err:      ua.StatusBadInternalError,
			more:     true,
			wantMore: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := newTestManager(t, mocks.NewMockSession(t), nil)
			w := newPublishWorker(m, 0)
			acks := testAcks()

			hint, more := tc.hint, tc.more
			exit := w.onError(tc.err, acks, &hint, &more)
			assert.False(t, exit)
			assert.Equal(t, tc.wantHint, hint)
			assert.Equal(t, tc.wantMore, more)
			assert.Equal(t, tc.wantTooMany, w.tooManyPublishRequests.Load())
			assert.Equal(t, int64(1), m.BadPublishRequestCount())

			// Rolled back unmodified.
			assert.ElementsMatch(t, acks, m.acks.PopN(len(acks)))
		})
	}
}

func TestWorkerExitsOnCancel(t *testing.T) {
	m := newTestManager(t, mocks.NewMockSession(t), nil)
	w := newPublishWorker(m, 0)
	w.cancel()
	acks := testAcks()

	var hint uint32
	more := false
	assert.True(t, w.onError(context.Canceled, acks, &hint, &more))
	assert.Equal(t, int64(0), m.BadPublishRequestCount())
	assert.Equal(t, len(acks), m.PendingAcks())
}

func TestWorkerErrorWhilePausedIsIgnored(t *testing.T) {
	m := newTestManager(t, mocks.NewMockSession(t), nil)
	m.Pause()
	w := newPublishWorker(m, 0)

	var hint uint32
	more := true
	assert.False(t, w.onError(ua.StatusBadTooManyPublishRequests, testAcks(), &hint, &more))
	assert.False(t, w.tooManyPublishRequests.Load())
	assert.Equal(t, 3, m.PendingAcks())
}

func TestAckShare(t *testing.T) {
	tests := []struct {
		pending, workers, want int
	}{
		{pending: 10, workers: 3, want: 3},
		{pending: 2, workers: 3, want: 0},
		{pending: 7, workers: 0, want: 7},
		{pending: 0, workers: 2, want: 0},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, ackShare(tc.pending, tc.workers))
	}
}

func TestTakeAcksInSequenceOrder(t *testing.T) {
	m := newTestManager(t, mocks.NewMockSession(t), nil)
	for seq := uint32(5); seq > 0; seq-- {
		require.NoError(t, m.enqueueAck(&ua.SubscriptionAcknowledgement{SubscriptionID: 1, SequenceNumber: seq}))
	}

	// No workers run without created subscriptions, so one request takes all.
	acks := m.takeAcks()
	require.Len(t, acks, 5)
	for i, a := range acks {
		assert.Equal(t, uint32(i+1), a.SequenceNumber)
	}
	assert.Nil(t, m.takeAcks())
}

func TestAckResultMismatchRollsBack(t *testing.T) {
	m := newTestManager(t, mocks.NewMockSession(t), nil)
	w := newPublishWorker(m, 0)
	acks := testAcks()

	_, err := w.onResponse(&ua.PublishResponse{SubscriptionID: 1}, acks)
	require.ErrorIs(t, err, ErrUnexpectedResponse)

	var hint uint32
	more := true
	w.onError(err, acks, &hint, &more)
	assert.Equal(t, 3, m.PendingAcks())
}

type workerMetrics struct {
	nopMetrics
	mu      sync.Mutex
	workers []int
}

func (r *workerMetrics) SetPublishWorkers(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.workers = append(r.workers, n)
}

func (r *workerMetrics) snapshot() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.workers...)
}

// startPool creates n subscriptions on a paused manager and waits until the
// controller reports a worker for each. It returns the number of worker
// count samples recorded so far.
func startPool(t *testing.T, m *Manager, sess *mocks.MockSession, metrics *workerMetrics, n int) int {
	t.Helper()
	for i := 0; i < n; i++ {
		createdSubscription(t, m, sess, uint32(7+i), nil)
	}
	require.Eventually(t, func() bool {
		counts := metrics.snapshot()
		return len(counts) > 0 && counts[len(counts)-1] == n
	}, waitFor, 5*time.Millisecond)
	require.Equal(t, n, m.PublishWorkerCount())
	return len(metrics.snapshot())
}

func TestControllerShrinksPoolOnBackpressure(t *testing.T) {
	sess := mocks.NewMockSession(t)
	metrics := &workerMetrics{}
	m := newTestManager(t, sess, func(cfg *ManagerConfig) {
		cfg.StartPaused = true
		cfg.MinPublishWorkerCount = 1
		cfg.MaxPublishWorkerCount = 4
		cfg.Metrics = metrics
	})

	sess.EXPECT().Publish(mock.Anything, mock.Anything).Return(nil, ua.StatusBadTooManyPublishRequests).Maybe()
	mark := startPool(t, m, sess, metrics, 4)
	m.Resume()

	require.Eventually(t, func() bool {
		return m.MaxPublishWorkerCount() == 1 && m.PublishWorkerCount() == 1
	}, waitFor, 5*time.Millisecond)
	assert.Equal(t, 1, m.MinPublishWorkerCount())
	assert.Greater(t, m.PublishControlCycles(), int64(0))

	counts := metrics.snapshot()
	require.Greater(t, len(counts), mark)
	assert.Equal(t, 4, counts[mark-1])
	for i := mark; i < len(counts); i++ {
		assert.LessOrEqual(t, counts[i], counts[i-1], "worker count grew: %v", counts)
	}
	assert.Equal(t, 1, counts[len(counts)-1])
}

func TestControllerKeepsMinimumOnBackpressure(t *testing.T) {
	sess := mocks.NewMockSession(t)
	metrics := &workerMetrics{}
	m := newTestManager(t, sess, func(cfg *ManagerConfig) {
		cfg.StartPaused = true
		cfg.MinPublishWorkerCount = 3
		cfg.MaxPublishWorkerCount = 3
		cfg.Metrics = metrics
	})

	sess.EXPECT().Publish(mock.Anything, mock.Anything).Return(nil, ua.StatusBadTooManyPublishRequests).Maybe()
	mark := startPool(t, m, sess, metrics, 3)
	m.Resume()

	// The maximum is lowered but stays below the minimum, which wins.
	require.Eventually(t, func() bool { return m.MaxPublishWorkerCount() == 1 }, waitFor, 5*time.Millisecond)
	require.Never(t, func() bool { return m.PublishWorkerCount() != 3 }, 100*time.Millisecond, 5*time.Millisecond)
	assert.Empty(t, metrics.snapshot()[mark:])
}

func TestPauseLetsInflightPublishFinish(t *testing.T) {
	sess := mocks.NewMockSession(t)
	m := newTestManager(t, sess, func(cfg *ManagerConfig) {
		cfg.MinPublishWorkerCount = 1
		cfg.MaxPublishWorkerCount = 1
	})

	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	sess.EXPECT().Publish(mock.Anything, mock.Anything).
		RunAndReturn(func(ctx context.Context, req *ua.PublishRequest) (*ua.PublishResponse, error) {
			n := calls.Add(1)
			if n == 1 {
				close(started)
				<-release
			}
			return &ua.PublishResponse{
				SubscriptionID:      7,
				MoreNotifications:   n == 1,
				NotificationMessage: keepAliveMessage(1),
				Results:             make([]ua.StatusCode, len(req.SubscriptionAcknowledgements)),
			}, nil
		}).Maybe()
	createdSubscription(t, m, sess, 7, nil)

	<-started
	m.Pause()
	assert.True(t, m.Paused())
	close(release)

	require.Eventually(t, func() bool { return m.GoodPublishRequestCount() == 1 }, waitFor, 5*time.Millisecond)
	assert.Never(t, func() bool { return calls.Load() > 1 }, 200*time.Millisecond, 10*time.Millisecond)

	m.Resume()
	require.Eventually(t, func() bool { return calls.Load() == 2 }, waitFor, 5*time.Millisecond)
}

func TestPauseDuringAcknowledgementWait(t *testing.T) {
	sess := mocks.NewMockSession(t)
	m := newTestManager(t, sess, func(cfg *ManagerConfig) {
		cfg.MinPublishWorkerCount = 1
		cfg.MaxPublishWorkerCount = 1
	})

	var calls atomic.Int32
	sess.EXPECT().Publish(mock.Anything, mock.Anything).
		RunAndReturn(func(_ context.Context, req *ua.PublishRequest) (*ua.PublishResponse, error) {
			calls.Add(1)
			return &ua.PublishResponse{
				SubscriptionID:      7,
				NotificationMessage: keepAliveMessage(1),
				Results:             make([]ua.StatusCode, len(req.SubscriptionAcknowledgements)),
			}, nil
		}).Maybe()

	// No more notifications and nothing to acknowledge: the worker waits
	// for acknowledgements up to the minimum operation timeout.
	expectCreate(sess, 7)
	subs, err := m.Add(Options{PublishingInterval: 100 * time.Millisecond, KeepAliveCount: 3, PublishingEnabled: true})
	require.NoError(t, err)
	require.NoError(t, subs[0].Create(context.Background()))

	require.Eventually(t, func() bool { return calls.Load() == 1 }, waitFor, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	m.Pause()

	assert.Never(t, func() bool { return calls.Load() > 1 }, minOperationTimeout+500*time.Millisecond, 10*time.Millisecond)

	m.Resume()
	require.Eventually(t, func() bool { return calls.Load() >= 2 }, waitFor, 5*time.Millisecond)
}

func TestUnknownSubscriptionIsDeleted(t *testing.T) {
	sess := mocks.NewMockSession(t)
	m := newTestManager(t, sess, func(cfg *ManagerConfig) {
		cfg.MinPublishWorkerCount = 1
		cfg.MaxPublishWorkerCount = 1
	})

	var calls atomic.Int32
	sess.EXPECT().Publish(mock.Anything, mock.Anything).
		RunAndReturn(func(ctx context.Context, req *ua.PublishRequest) (*ua.PublishResponse, error) {
			if calls.Add(1) > 1 {
				<-ctx.Done()
				return nil, ctx.Err()
			}
			return &ua.PublishResponse{
				SubscriptionID:      99,
				NotificationMessage: keepAliveMessage(1),
			}, nil
		}).Maybe()
	deleted := make(chan struct{})
	sess.EXPECT().DeleteSubscriptions(mock.Anything, mock.MatchedBy(func(req *ua.DeleteSubscriptionsRequest) bool {
		return len(req.SubscriptionIDs) == 1 && req.SubscriptionIDs[0] == 99
	})).RunAndReturn(func(context.Context, *ua.DeleteSubscriptionsRequest) (*ua.DeleteSubscriptionsResponse, error) {
		close(deleted)
		return &ua.DeleteSubscriptionsResponse{Results: []ua.StatusCode{ua.StatusOK}}, nil
	}).Once()
	createdSubscription(t, m, sess, 7, nil)

	select {
	case <-deleted:
	case <-time.After(waitFor):
		t.Fatal("unknown subscription not deleted")
	}
	assert.Equal(t, int64(1), m.BadPublishRequestCount())
	// The worker polls again right away.
	require.Eventually(t, func() bool { return calls.Load() == 2 }, waitFor, 5*time.Millisecond)
}

func TestRecentlyRemovedSubscriptionIsIgnored(t *testing.T) {
	sess := mocks.NewMockSession(t)
	m := newTestManager(t, sess, func(cfg *ManagerConfig) {
		cfg.MinPublishWorkerCount = 1
		cfg.MaxPublishWorkerCount = 1
		cfg.StartPaused = true
	})

	var calls atomic.Int32
	sess.EXPECT().Publish(mock.Anything, mock.Anything).
		RunAndReturn(func(ctx context.Context, req *ua.PublishRequest) (*ua.PublishResponse, error) {
			if calls.Add(1) > 1 {
				<-ctx.Done()
				return nil, ctx.Err()
			}
			return &ua.PublishResponse{
				SubscriptionID:      8,
				MoreNotifications:   true,
				NotificationMessage: keepAliveMessage(1),
			}, nil
		}).Maybe()
	createdSubscription(t, m, sess, 7, nil)
	removed := createdSubscription(t, m, sess, 8, nil)
	require.True(t, m.Complete(8))
	assert.False(t, m.Complete(8))
	assert.Nil(t, m.ByID(8))
	assert.Equal(t, uint32(8), removed.ID())

	m.Resume()
	require.Eventually(t, func() bool { return calls.Load() == 2 }, waitFor, 5*time.Millisecond)
	assert.Equal(t, int64(0), m.BadPublishRequestCount())
	assert.Equal(t, int64(0), m.GoodPublishRequestCount())
}
