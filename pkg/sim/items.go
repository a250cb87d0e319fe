package sim

import (
	"context"
	"sort"

	"github.com/gopcua/opcua/ua"
)

func (c *Session) ownedSubscriptionLocked(id uint32) (*subscription, error) {
	sub, ok := c.server.subs[id]
	if !ok || sub.owner != c.conn {
		return nil, ua.StatusBadSubscriptionIDInvalid
	}
	return sub, nil
}

func (c *Session) CreateMonitoredItems(ctx context.Context, req *ua.CreateMonitoredItemsRequest) (*ua.CreateMonitoredItemsResponse, error) {
	s := c.server
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := c.checkLocked(); err != nil {
		return nil, err
	}
	sub, err := c.ownedSubscriptionLocked(req.SubscriptionID)
	if err != nil {
		return nil, err
	}

	results := make([]*ua.MonitoredItemCreateResult, len(req.ItemsToCreate))
	for i, r := range req.ItemsToCreate {
		if r == nil || r.ItemToMonitor == nil || r.ItemToMonitor.NodeID == nil || r.RequestedParameters == nil {
			results[i] = &ua.MonitoredItemCreateResult{StatusCode: ua.StatusBadNodeIDInvalid}
			continue
		}
		s.nextItemID++
		it := &item{
			id:           s.nextItemID,
			clientHandle: r.RequestedParameters.ClientHandle,
			nodeKey:      r.ItemToMonitor.NodeID.String(),
			mode:         r.MonitoringMode,
		}
		c.reviseItem(sub, it, r.RequestedParameters)
		sub.items[it.id] = it
		if v, ok := s.values[it.nodeKey]; ok && it.mode == ua.MonitoringModeReporting {
			sub.queue(it, v)
		}
		results[i] = &ua.MonitoredItemCreateResult{
			StatusCode:              ua.StatusOK,
			MonitoredItemID:         it.id,
			RevisedSamplingInterval: it.sampling,
			RevisedQueueSize:        it.queueSize,
		}
	}
	s.signalLocked()
	return &ua.CreateMonitoredItemsResponse{
		ResponseHeader: c.responseHeader(req.RequestHeader),
		Results:        results,
	}, nil
}

func (c *Session) reviseItem(sub *subscription, it *item, p *ua.MonitoringParameters) {
	it.sampling = p.SamplingInterval
	if it.sampling < 0 {
		it.sampling = float64(sub.interval.Milliseconds())
	}
	it.queueSize = p.QueueSize
	if it.queueSize == 0 {
		it.queueSize = 1
	}
}

func (c *Session) ModifyMonitoredItems(ctx context.Context, req *ua.ModifyMonitoredItemsRequest) (*ua.ModifyMonitoredItemsResponse, error) {
	s := c.server
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := c.checkLocked(); err != nil {
		return nil, err
	}
	sub, err := c.ownedSubscriptionLocked(req.SubscriptionID)
	if err != nil {
		return nil, err
	}

	results := make([]*ua.MonitoredItemModifyResult, len(req.ItemsToModify))
	for i, r := range req.ItemsToModify {
		it, ok := sub.items[r.MonitoredItemID]
		if !ok || r.RequestedParameters == nil {
			results[i] = &ua.MonitoredItemModifyResult{StatusCode: ua.StatusBadMonitoredItemIDInvalid}
			continue
		}
		it.clientHandle = r.RequestedParameters.ClientHandle
		c.reviseItem(sub, it, r.RequestedParameters)
		results[i] = &ua.MonitoredItemModifyResult{
			StatusCode:              ua.StatusOK,
			RevisedSamplingInterval: it.sampling,
			RevisedQueueSize:        it.queueSize,
		}
	}
	return &ua.ModifyMonitoredItemsResponse{
		ResponseHeader: c.responseHeader(req.RequestHeader),
		Results:        results,
	}, nil
}

func (c *Session) DeleteMonitoredItems(ctx context.Context, req *ua.DeleteMonitoredItemsRequest) (*ua.DeleteMonitoredItemsResponse, error) {
	s := c.server
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := c.checkLocked(); err != nil {
		return nil, err
	}
	sub, err := c.ownedSubscriptionLocked(req.SubscriptionID)
	if err != nil {
		return nil, err
	}

	results := make([]ua.StatusCode, len(req.MonitoredItemIDs))
	for i, id := range req.MonitoredItemIDs {
		if _, ok := sub.items[id]; !ok {
			results[i] = ua.StatusBadMonitoredItemIDInvalid
			continue
		}
		delete(sub.items, id)
		results[i] = ua.StatusOK
	}
	return &ua.DeleteMonitoredItemsResponse{
		ResponseHeader: c.responseHeader(req.RequestHeader),
		Results:        results,
	}, nil
}

func (c *Session) SetMonitoringMode(ctx context.Context, req *ua.SetMonitoringModeRequest) (*ua.SetMonitoringModeResponse, error) {
	s := c.server
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := c.checkLocked(); err != nil {
		return nil, err
	}
	sub, err := c.ownedSubscriptionLocked(req.SubscriptionID)
	if err != nil {
		return nil, err
	}

	results := make([]ua.StatusCode, len(req.MonitoredItemIDs))
	for i, id := range req.MonitoredItemIDs {
		it, ok := sub.items[id]
		if !ok {
			results[i] = ua.StatusBadMonitoredItemIDInvalid
			continue
		}
		it.mode = req.MonitoringMode
		results[i] = ua.StatusOK
	}
	return &ua.SetMonitoringModeResponse{
		ResponseHeader: c.responseHeader(req.RequestHeader),
		Results:        results,
	}, nil
}

// GetMonitoredItems returns server and client handles of a subscription's
// items, ordered by server handle.
func (c *Session) GetMonitoredItems(ctx context.Context, subscriptionID uint32) ([]uint32, []uint32, error) {
	s := c.server
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := c.checkLocked(); err != nil {
		return nil, nil, err
	}
	sub, ok := s.subs[subscriptionID]
	if !ok {
		return nil, nil, ua.StatusBadSubscriptionIDInvalid
	}
	ids := make([]uint32, 0, len(sub.items))
	for id := range sub.items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	clients := make([]uint32, len(ids))
	for i, id := range ids {
		clients[i] = sub.items[id].clientHandle
	}
	return ids, clients, nil
}
