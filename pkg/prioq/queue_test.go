package prioq

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIntQueue() *Queue[uint32] {
	return New(func(a, b uint32) bool { return a < b })
}

func TestQueueOrdering(t *testing.T) {
	q := newIntQueue()
	for _, v := range []uint32{5, 3, 9, 1, 4} {
		require.NoError(t, q.Push(v))
	}
	assert.Equal(t, 5, q.Len())

	var got []uint32
	for {
		v, ok := q.TryPop()
		if !ok {
			break
		}
		got = append(got, v)
	}
	assert.Equal(t, []uint32{1, 3, 4, 5, 9}, got)
}

func TestQueuePopN(t *testing.T) {
	q := newIntQueue()
	require.NoError(t, q.PushAll([]uint32{7, 2, 5}))

	assert.Equal(t, []uint32{2, 5}, q.PopN(2))
	assert.Equal(t, []uint32{7}, q.PopN(10))
	assert.Nil(t, q.PopN(1))
	assert.Nil(t, q.PopN(0))
}

func TestQueuePopBlocks(t *testing.T) {
	q := newIntQueue()

	result := make(chan uint32, 1)
	go func() {
		v, err := q.Pop(context.Background())
		if err == nil {
			result <- v
		}
	}()

	select {
	case <-result:
		t.Fatal("Pop returned before an item was pushed")
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, q.Push(42))
	select {
	case v := <-result:
		assert.Equal(t, uint32(42), v)
	case <-time.After(time.Second):
		t.Fatal("Pop did not return after push")
	}
}

func TestQueuePopContext(t *testing.T) {
	q := newIntQueue()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := q.Pop(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestQueueClose(t *testing.T) {
	q := newIntQueue()
	require.NoError(t, q.Push(1))

	waiter := newIntQueue()
	errc := make(chan error, 1)
	go func() {
		_, err := waiter.Pop(context.Background())
		errc <- err
	}()

	q.Close()
	q.Close()
	waiter.Close()

	assert.ErrorIs(t, q.Push(2), ErrClosed)
	assert.ErrorIs(t, q.PushAll([]uint32{3}), ErrClosed)

	v, err := q.Pop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint32(1), v)

	_, err = q.Pop(context.Background())
	assert.ErrorIs(t, err, ErrClosed)

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("blocked reader was not released by Close")
	}
}

func TestQueueClear(t *testing.T) {
	q := newIntQueue()
	require.NoError(t, q.PushAll([]uint32{1, 2, 3}))
	assert.Equal(t, 3, q.Clear())
	assert.Zero(t, q.Len())
}

func TestQueueConcurrentReaders(t *testing.T) {
	q := newIntQueue()
	const n = 500

	var (
		mu  sync.Mutex
		got = make(map[uint32]int)
		wg  sync.WaitGroup
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				v, err := q.Pop(ctx)
				if err != nil {
					return
				}
				mu.Lock()
				got[v]++
				mu.Unlock()
			}
		}()
	}

	for i := uint32(1); i <= n; i++ {
		require.NoError(t, q.Push(i))
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == n
	}, 2*time.Second, 5*time.Millisecond)

	q.Close()
	wg.Wait()

	for i := uint32(1); i <= n; i++ {
		assert.Equal(t, 1, got[i], "item %d", i)
	}
}
