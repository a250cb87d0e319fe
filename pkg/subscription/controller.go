package subscription

import (
	"github.com/mash-protocol/uasub-go/pkg/log"
)

// desiredWorkerCount returns the worker pool size for created
// subscriptions: created clamped to [min, max], at least one, and zero
// while nothing is created.
func desiredWorkerCount(created, minCount, maxCount int) int {
	if created == 0 {
		return 0
	}
	n := created
	if n > maxCount {
		n = maxCount
	}
	if n < minCount {
		n = minCount
	}
	if n < 1 {
		n = 1
	}
	return n
}

// runController sizes the worker pool whenever it is signalled, until the
// manager is closed.
func (m *Manager) runController() {
	defer close(m.controllerDone)

	var workers []*publishWorker
	defer func() {
		for _, w := range workers {
			w.cancel()
		}
		for _, w := range workers {
			<-w.done
		}
		m.workerCount.Store(0)
		m.metrics.SetPublishWorkers(0)
	}()

	for {
		want := desiredWorkerCount(m.CreatedCount(), m.MinPublishWorkerCount(), m.MaxPublishWorkerCount())

		for len(workers) > want {
			last := workers[len(workers)-1]
			workers = workers[:len(workers)-1]
			last.stop()
		}
		for len(workers) < want {
			w := newPublishWorker(m, len(workers))
			workers = append(workers, w)
			w.start()
		}
		if n := int32(len(workers)); m.workerCount.Swap(n) != n {
			m.metrics.SetPublishWorkers(len(workers))
			m.logger.Debug("Publish workers",
				"count", len(workers),
				"min", m.MinPublishWorkerCount(),
				"max", m.MaxPublishWorkerCount())
		}

		select {
		case <-m.ctx.Done():
			return
		case <-m.control:
		}
		m.controlCycles.Add(1)

		tooMany := false
		alive := workers[:0]
		for _, w := range workers {
			if w.tooManyPublishRequests.Load() {
				tooMany = true
			}
			if !w.exited() {
				alive = append(alive, w)
			}
		}
		workers = alive

		if limit := m.MaxPublishWorkerCount(); tooMany && limit > 1 {
			if m.maxWorkers.CompareAndSwap(int32(limit), int32(limit-1)) {
				m.metrics.SetMaxPublishWorkers(limit - 1)
				m.traceState(nil, log.StateEntityManager, "", "MaxPublishWorkerCount", "too many publish requests")
				m.logger.Info("Lowered MaxPublishWorkerCount",
					"max", limit-1)
			}
		}
	}
}
