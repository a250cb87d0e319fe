package subscription

import (
	"math"
	"testing"
	"time"

	"github.com/gopcua/opcua/ua"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mash-protocol/uasub-go/pkg/subscription/mocks"
)

const waitFor = 2 * time.Second

func TestMessagesAreDispatchedInSequenceOrder(t *testing.T) {
	sess := mocks.NewMockSession(t)
	m, _ := newPausedManager(t, sess)
	rec := &recorder{block: make(chan struct{})}
	sub := createdSubscription(t, m, sess, 7, rec.handler())

	sub.onPublishReceived(dataMessage(1), nil, nil)
	// The loop is now blocked in the handler for 1.
	sub.onPublishReceived(dataMessage(4), nil, nil)
	sub.onPublishReceived(dataMessage(2), nil, nil)
	sub.onPublishReceived(dataMessage(3), nil, nil)
	close(rec.block)

	require.Eventually(t, func() bool { return rec.count() == 4 }, waitFor, 5*time.Millisecond)
	assert.Equal(t, []uint32{1, 2, 3, 4}, rec.seqs("datachange"))
	assert.Equal(t, uint32(4), sub.LastSequenceNumberProcessed())
	assert.Equal(t, []uint32{1, 2, 3, 4}, queuedAcks(m))
}

func TestGapIsRecoveredWithRepublish(t *testing.T) {
	sess := mocks.NewMockSession(t)
	m, _ := newPausedManager(t, sess)
	rec := &recorder{}
	sub := createdSubscription(t, m, sess, 7, rec.handler())

	sub.onPublishReceived(dataMessage(1), nil, nil)
	sub.onPublishReceived(dataMessage(2), nil, nil)
	require.Eventually(t, func() bool { return sub.LastSequenceNumberProcessed() == 2 }, waitFor, 5*time.Millisecond)

	mock.InOrder(
		sess.EXPECT().Republish(mock.Anything, retransmit(3)).RunAndReturn(republished).Once(),
		sess.EXPECT().Republish(mock.Anything, retransmit(4)).RunAndReturn(republished).Once(),
	)
	sub.onPublishReceived(dataMessage(5), []uint32{3, 4}, nil)

	require.Eventually(t, func() bool { return rec.count() == 5 }, waitFor, 5*time.Millisecond)
	events := rec.all()
	assert.Equal(t, []uint32{1, 2, 3, 4, 5}, rec.seqs("datachange"))
	assert.True(t, events[2].state.Has(PublishStateRepublish))
	assert.True(t, events[3].state.Has(PublishStateRepublish))
	assert.False(t, events[4].state.Has(PublishStateRepublish))
	assert.Equal(t, uint32(5), sub.LastSequenceNumberProcessed())
	assert.Equal(t, []uint32{1, 2, 3, 4, 5}, queuedAcks(m))
	assert.Contains(t, rec.publishStates(), PublishStateRepublish)
}

func TestGapWithoutRetransmissionIsSkipped(t *testing.T) {
	sess := mocks.NewMockSession(t)
	m, _ := newPausedManager(t, sess)
	rec := &recorder{}
	sub := createdSubscription(t, m, sess, 7, rec.handler())

	sub.onPublishReceived(dataMessage(1), nil, nil)
	require.Eventually(t, func() bool { return sub.LastSequenceNumberProcessed() == 1 }, waitFor, 5*time.Millisecond)

	sess.EXPECT().Republish(mock.Anything, retransmit(3)).RunAndReturn(republished).Once()
	sub.onPublishReceived(dataMessage(4), []uint32{3}, nil)

	require.Eventually(t, func() bool { return sub.LastSequenceNumberProcessed() == 4 }, waitFor, 5*time.Millisecond)
	assert.Equal(t, []uint32{1, 3, 4}, rec.seqs("datachange"))
	assert.Equal(t, []uint32{1, 3, 4}, queuedAcks(m))
}

func TestFailedRepublishIsSkipped(t *testing.T) {
	sess := mocks.NewMockSession(t)
	m, _ := newPausedManager(t, sess)
	rec := &recorder{}
	sub := createdSubscription(t, m, sess, 7, rec.handler())

	sub.onPublishReceived(dataMessage(1), nil, nil)
	require.Eventually(t, func() bool { return sub.LastSequenceNumberProcessed() == 1 }, waitFor, 5*time.Millisecond)

	sess.EXPECT().Republish(mock.Anything, retransmit(2)).Return(nil, ua.StatusBadMessageNotAvailable).Once()
	sub.onPublishReceived(dataMessage(3), []uint32{2}, nil)

	require.Eventually(t, func() bool { return sub.LastSequenceNumberProcessed() == 3 }, waitFor, 5*time.Millisecond)
	assert.Equal(t, []uint32{1, 3}, rec.seqs("datachange"))
	assert.Equal(t, []uint32{1, 3}, queuedAcks(m))
}

func TestStaleAndDuplicateMessagesAreDropped(t *testing.T) {
	sess := mocks.NewMockSession(t)
	m, _ := newPausedManager(t, sess)
	rec := &recorder{}
	sub := createdSubscription(t, m, sess, 7, rec.handler())

	sub.onPublishReceived(dataMessage(1), nil, nil)
	sub.onPublishReceived(dataMessage(2), nil, nil)
	require.Eventually(t, func() bool { return sub.LastSequenceNumberProcessed() == 2 }, waitFor, 5*time.Millisecond)

	sub.onPublishReceived(dataMessage(2), nil, nil)
	sub.onPublishReceived(dataMessage(1), nil, nil)
	sub.onPublishReceived(dataMessage(3), nil, nil)

	require.Eventually(t, func() bool { return sub.LastSequenceNumberProcessed() == 3 }, waitFor, 5*time.Millisecond)
	assert.Equal(t, []uint32{1, 2, 3}, rec.seqs("datachange"))
	assert.Equal(t, []uint32{1, 2, 3}, queuedAcks(m))
}

func TestKeepAliveIsDispatchedWithoutAck(t *testing.T) {
	sess := mocks.NewMockSession(t)
	m, _ := newPausedManager(t, sess)
	rec := &recorder{}
	sub := createdSubscription(t, m, sess, 7, rec.handler())

	sub.onPublishReceived(dataMessage(1), nil, nil)
	require.Eventually(t, func() bool { return rec.count() == 1 }, waitFor, 5*time.Millisecond)
	sub.onPublishReceived(keepAliveMessage(2), nil, nil)
	require.Eventually(t, func() bool { return rec.count() == 2 }, waitFor, 5*time.Millisecond)
	sub.onPublishReceived(dataMessage(2), nil, nil)

	require.Eventually(t, func() bool { return rec.count() == 3 }, waitFor, 5*time.Millisecond)
	events := rec.all()
	assert.Equal(t, "keepalive", events[1].kind)
	assert.Equal(t, uint32(2), events[1].seq)
	assert.True(t, events[1].state.Has(PublishStateKeepAlive))
	assert.Equal(t, []uint32{1, 2}, rec.seqs("datachange"))
	assert.Equal(t, []uint32{1, 2}, queuedAcks(m))
}

func TestKeepAliveRevealsGap(t *testing.T) {
	sess := mocks.NewMockSession(t)
	m, _ := newPausedManager(t, sess)
	rec := &recorder{}
	sub := createdSubscription(t, m, sess, 7, rec.handler())

	sub.onPublishReceived(dataMessage(1), nil, nil)
	require.Eventually(t, func() bool { return sub.LastSequenceNumberProcessed() == 1 }, waitFor, 5*time.Millisecond)

	sess.EXPECT().Republish(mock.Anything, retransmit(2)).RunAndReturn(republished).Once()
	sub.onPublishReceived(keepAliveMessage(3), []uint32{2}, nil)

	require.Eventually(t, func() bool { return rec.count() == 3 }, waitFor, 5*time.Millisecond)
	assert.Equal(t, []uint32{1, 2}, rec.seqs("datachange"))
	assert.Equal(t, []uint32{3}, rec.seqs("keepalive"))
	assert.Equal(t, uint32(2), sub.LastSequenceNumberProcessed())
	assert.Equal(t, []uint32{1, 2}, queuedAcks(m))
}

func TestSequenceNumberRollover(t *testing.T) {
	sess := mocks.NewMockSession(t)
	m, _ := newPausedManager(t, sess)
	rec := &recorder{}
	sub := createdSubscription(t, m, sess, 7, rec.handler())
	sub.lastSequenceNumber.Store(math.MaxUint32)

	sub.onPublishReceived(keepAliveMessage(1), nil, nil)
	require.Eventually(t, func() bool { return rec.count() == 1 }, waitFor, 5*time.Millisecond)
	sub.onPublishReceived(dataMessage(1), nil, nil)
	require.Eventually(t, func() bool { return rec.count() == 2 }, waitFor, 5*time.Millisecond)
	sub.onPublishReceived(dataMessage(2), nil, nil)
	require.Eventually(t, func() bool { return rec.count() == 3 }, waitFor, 5*time.Millisecond)

	assert.Equal(t, []uint32{1}, rec.seqs("keepalive"))
	assert.Equal(t, []uint32{1, 2}, rec.seqs("datachange"))
	assert.Equal(t, uint32(2), sub.LastSequenceNumberProcessed())
	assert.Equal(t, []uint32{1, 2}, queuedAcks(m))
	assert.NotContains(t, rec.publishStates(), PublishStateRepublish)
}

func TestHandlerPanicIsContained(t *testing.T) {
	sess := mocks.NewMockSession(t)
	m, _ := newPausedManager(t, sess)
	calls := 0
	h := HandlerFuncs{
		DataChange: func(*Subscription, uint32, time.Time, *ua.DataChangeNotification, PublishState, []string) {
			calls++
			if calls == 1 {
				panic("boom")
			}
		},
	}
	sub := createdSubscription(t, m, sess, 7, h)

	sub.onPublishReceived(dataMessage(1), nil, nil)
	sub.onPublishReceived(dataMessage(2), nil, nil)

	require.Eventually(t, func() bool { return sub.LastSequenceNumberProcessed() == 2 }, waitFor, 5*time.Millisecond)
	assert.Equal(t, []uint32{1, 2}, queuedAcks(m))
	assert.Equal(t, 1, m.Count())
}

func TestStatusChangeRaisesPublishState(t *testing.T) {
	sess := mocks.NewMockSession(t)
	m, _ := newPausedManager(t, sess)
	rec := &recorder{}
	sub := createdSubscription(t, m, sess, 7, rec.handler())

	var watched []PublishState
	done := make(chan struct{}, 2)
	cancel := m.WatchPublishState(func(s *Subscription, state PublishState) {
		assert.Same(t, sub, s)
		watched = append(watched, state)
		done <- struct{}{}
	})
	defer cancel()

	sub.onPublishReceived(statusMessage(1, ua.StatusGoodSubscriptionTransferred), nil, nil)
	sub.onPublishReceived(statusMessage(2, ua.StatusBadTimeout), nil, nil)
	<-done
	<-done

	assert.Equal(t, []PublishState{PublishStateTransferred, PublishStateTimeout}, watched)
	assert.Equal(t, []PublishState{PublishStateTransferred, PublishStateTimeout}, rec.publishStates())
	require.Eventually(t, func() bool { return m.PendingAcks() == 2 }, waitFor, 5*time.Millisecond)
}

func TestLoopFailureCompletesSubscription(t *testing.T) {
	sess := mocks.NewMockSession(t)
	m, _ := newPausedManager(t, sess)
	sub := createdSubscription(t, m, sess, 7, nil)

	// A nil message panics outside the handler.
	require.NoError(t, sub.messages.Push(incomingMessage{sequenceNumber: 1}))

	require.Eventually(t, func() bool { return m.Count() == 0 }, waitFor, 5*time.Millisecond)
	select {
	case <-sub.loopDone:
	case <-time.After(waitFor):
		t.Fatal("message loop did not exit")
	}
	assert.True(t, m.inHistory(7))
}
