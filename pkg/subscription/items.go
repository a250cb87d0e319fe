package subscription

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gopcua/opcua/ua"
)

// ItemOptions configures a monitored item. A zero MonitoringMode or
// AttributeID selects Reporting and the Value attribute; use
// SetMonitoringMode to disable an item after creation.
type ItemOptions struct {
	NodeID           *ua.NodeID
	AttributeID      ua.AttributeID
	IndexRange       string
	MonitoringMode   ua.MonitoringMode
	SamplingInterval time.Duration
	QueueSize        uint32
	DiscardOldest    bool
	Filter           *ua.ExtensionObject
}

// Item is a monitored item of a subscription. The client handle is assigned
// locally and stays fixed; the server id is known once created.
type Item struct {
	clientHandle uint32

	mu                      sync.Mutex
	options                 ItemOptions
	changed                 bool
	serverID                uint32
	created                 bool
	status                  ua.StatusCode
	mode                    ua.MonitoringMode
	revisedSamplingInterval time.Duration
	revisedQueueSize        uint32
}

// ClientHandle returns the handle the server stamps on notifications.
func (i *Item) ClientHandle() uint32 { return i.clientHandle }

// ServerID returns the server-assigned monitored item id, 0 if not created.
func (i *Item) ServerID() uint32 {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.serverID
}

// Created reports whether the item exists on the server.
func (i *Item) Created() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.created
}

// Status returns the result of the last create or modify.
func (i *Item) Status() ua.StatusCode {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.status
}

// Options returns the requested item options.
func (i *Item) Options() ItemOptions {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.options
}

// MonitoringMode returns the mode last acknowledged by the server.
func (i *Item) MonitoringMode() ua.MonitoringMode {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.mode
}

// RevisedSamplingInterval returns the sampling interval the server chose.
func (i *Item) RevisedSamplingInterval() time.Duration {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.revisedSamplingInterval
}

// Update replaces the item options. Created items are modified on the
// server by the next ApplyItemChanges.
func (i *Item) Update(opts ItemOptions) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.options = opts
	i.changed = true
}

func (i *Item) String() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return fmt.Sprintf("item(%d->%d)", i.clientHandle, i.serverID)
}

func (i *Item) reset() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.serverID = 0
	i.created = false
	i.changed = false
	i.status = 0
}

func (i *Item) parameters() *ua.MonitoringParameters {
	return &ua.MonitoringParameters{
		ClientHandle:     i.clientHandle,
		SamplingInterval: durationToMillis(i.options.SamplingInterval),
		Filter:           i.options.Filter,
		QueueSize:        i.options.QueueSize,
		DiscardOldest:    i.options.DiscardOldest,
	}
}

// AddItem registers a monitored item. It is created on the server by the
// next ApplyItemChanges or Create.
func (s *Subscription) AddItem(opts ItemOptions) *Item {
	if opts.MonitoringMode == 0 {
		opts.MonitoringMode = ua.MonitoringModeReporting
	}
	if opts.AttributeID == 0 {
		opts.AttributeID = ua.AttributeIDValue
	}
	item := &Item{
		clientHandle: s.nextHandle.Add(1),
		options:      opts,
		mode:         opts.MonitoringMode,
	}
	s.itemsMu.Lock()
	s.items[item.clientHandle] = item
	s.itemsMu.Unlock()
	return item
}

// RemoveItem unregisters item. A created item is deleted on the server by
// the next ApplyItemChanges.
func (s *Subscription) RemoveItem(item *Item) {
	s.itemsMu.Lock()
	defer s.itemsMu.Unlock()
	if _, ok := s.items[item.clientHandle]; !ok {
		return
	}
	delete(s.items, item.clientHandle)
	if id := item.ServerID(); id != 0 {
		s.deletedItems = append(s.deletedItems, id)
	}
}

// Items returns the registered items ordered by client handle.
func (s *Subscription) Items() []*Item {
	s.itemsMu.Lock()
	defer s.itemsMu.Unlock()
	items := make([]*Item, 0, len(s.items))
	for _, item := range s.items {
		items = append(items, item)
	}
	sort.Slice(items, func(a, b int) bool { return items[a].clientHandle < items[b].clientHandle })
	return items
}

// ItemByClientHandle looks up the item a notification refers to.
func (s *Subscription) ItemByClientHandle(handle uint32) (*Item, bool) {
	s.itemsMu.Lock()
	defer s.itemsMu.Unlock()
	item, ok := s.items[handle]
	return item, ok
}

// PendingDeletes returns the server ids of removed items not yet deleted.
func (s *Subscription) PendingDeletes() []uint32 {
	s.itemsMu.Lock()
	defer s.itemsMu.Unlock()
	return append([]uint32(nil), s.deletedItems...)
}

// ApplyItemChanges deletes removed items, modifies changed items and creates
// new items on the server, in that order.
func (s *Subscription) ApplyItemChanges(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	return s.applyItemChangesLocked(ctx)
}

func (s *Subscription) applyItemChangesLocked(ctx context.Context) error {
	if err := s.deleteItemsLocked(ctx); err != nil {
		return err
	}
	if err := s.modifyItemsLocked(ctx); err != nil {
		return err
	}
	return s.createItemsLocked(ctx)
}

func (s *Subscription) deleteItemsLocked(ctx context.Context) error {
	id := s.ID()
	if id == 0 {
		return ErrNotCreated
	}
	s.itemsMu.Lock()
	ids := s.deletedItems
	s.deletedItems = nil
	s.itemsMu.Unlock()
	if len(ids) == 0 {
		return nil
	}

	resp, err := s.session.DeleteMonitoredItems(ctx, &ua.DeleteMonitoredItemsRequest{
		RequestHeader:    s.m.requestHeader(0),
		SubscriptionID:   id,
		MonitoredItemIDs: ids,
	})
	if err == nil && len(resp.Results) != len(ids) {
		err = fmt.Errorf("%w: %d results for %d items", ErrUnexpectedResponse, len(resp.Results), len(ids))
	}
	if err != nil {
		s.itemsMu.Lock()
		s.deletedItems = append(ids, s.deletedItems...)
		s.itemsMu.Unlock()
		return fmt.Errorf("delete monitored items: %w", err)
	}
	for i, code := range resp.Results {
		if IsBad(code) && code != ua.StatusBadMonitoredItemIDInvalid {
			s.logger.Warn("DeleteMonitoredItems: item not deleted",
				"itemID", ids[i],
				"status", code)
		}
	}
	return nil
}

func (s *Subscription) modifyItemsLocked(ctx context.Context) error {
	id := s.ID()
	if id == 0 {
		return ErrNotCreated
	}
	var (
		items    []*Item
		requests []*ua.MonitoredItemModifyRequest
	)
	for _, item := range s.Items() {
		item.mu.Lock()
		if item.created && item.changed {
			items = append(items, item)
			requests = append(requests, &ua.MonitoredItemModifyRequest{
				MonitoredItemID:     item.serverID,
				RequestedParameters: item.parameters(),
			})
		}
		item.mu.Unlock()
	}
	if len(requests) == 0 {
		return nil
	}

	resp, err := s.session.ModifyMonitoredItems(ctx, &ua.ModifyMonitoredItemsRequest{
		RequestHeader:      s.m.requestHeader(0),
		SubscriptionID:     id,
		TimestampsToReturn: ua.TimestampsToReturnBoth,
		ItemsToModify:      requests,
	})
	if err == nil && len(resp.Results) != len(requests) {
		err = fmt.Errorf("%w: %d results for %d items", ErrUnexpectedResponse, len(resp.Results), len(requests))
	}
	if err != nil {
		return fmt.Errorf("modify monitored items: %w", err)
	}
	for i, result := range resp.Results {
		item := items[i]
		item.mu.Lock()
		item.status = result.StatusCode
		if !IsBad(result.StatusCode) {
			item.changed = false
			item.revisedSamplingInterval = millisToDuration(result.RevisedSamplingInterval)
			item.revisedQueueSize = result.RevisedQueueSize
		}
		item.mu.Unlock()
	}
	return nil
}

func (s *Subscription) createItemsLocked(ctx context.Context) error {
	id := s.ID()
	if id == 0 {
		return ErrNotCreated
	}
	var (
		items    []*Item
		requests []*ua.MonitoredItemCreateRequest
	)
	for _, item := range s.Items() {
		item.mu.Lock()
		if !item.created {
			items = append(items, item)
			requests = append(requests, &ua.MonitoredItemCreateRequest{
				ItemToMonitor: &ua.ReadValueID{
					NodeID:       item.options.NodeID,
					AttributeID:  item.options.AttributeID,
					IndexRange:   item.options.IndexRange,
					DataEncoding: &ua.QualifiedName{},
				},
				MonitoringMode:      item.options.MonitoringMode,
				RequestedParameters: item.parameters(),
			})
		}
		item.mu.Unlock()
	}
	if len(requests) == 0 {
		return nil
	}

	resp, err := s.session.CreateMonitoredItems(ctx, &ua.CreateMonitoredItemsRequest{
		RequestHeader:      s.m.requestHeader(0),
		SubscriptionID:     id,
		TimestampsToReturn: ua.TimestampsToReturnBoth,
		ItemsToCreate:      requests,
	})
	if err == nil && len(resp.Results) != len(requests) {
		err = fmt.Errorf("%w: %d results for %d items", ErrUnexpectedResponse, len(resp.Results), len(requests))
	}
	if err != nil {
		return fmt.Errorf("create monitored items: %w", err)
	}
	failed := 0
	for i, result := range resp.Results {
		item := items[i]
		item.mu.Lock()
		item.status = result.StatusCode
		if IsBad(result.StatusCode) {
			failed++
		} else {
			item.serverID = result.MonitoredItemID
			item.created = true
			item.changed = false
			item.mode = item.options.MonitoringMode
			item.revisedSamplingInterval = millisToDuration(result.RevisedSamplingInterval)
			item.revisedQueueSize = result.RevisedQueueSize
		}
		item.mu.Unlock()
	}
	if failed > 0 {
		s.logger.Warn("CreateMonitoredItems: some items failed",
			"failed", failed,
			"requested", len(requests))
	}
	return nil
}

// SetMonitoringMode changes the monitoring mode of created items and
// returns the per-item results.
func (s *Subscription) SetMonitoringMode(ctx context.Context, mode ua.MonitoringMode, items []*Item) ([]ua.StatusCode, error) {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	id := s.ID()
	if id == 0 {
		return nil, ErrNotCreated
	}
	if len(items) == 0 {
		return nil, nil
	}
	ids := make([]uint32, len(items))
	for i, item := range items {
		ids[i] = item.ServerID()
	}
	resp, err := s.session.SetMonitoringMode(ctx, &ua.SetMonitoringModeRequest{
		RequestHeader:    s.m.requestHeader(0),
		SubscriptionID:   id,
		MonitoringMode:   mode,
		MonitoredItemIDs: ids,
	})
	if err == nil && len(resp.Results) != len(ids) {
		err = fmt.Errorf("%w: %d results for %d items", ErrUnexpectedResponse, len(resp.Results), len(ids))
	}
	if err != nil {
		return nil, fmt.Errorf("set monitoring mode: %w", err)
	}
	for i, code := range resp.Results {
		if IsBad(code) {
			continue
		}
		items[i].mu.Lock()
		items[i].mode = mode
		items[i].options.MonitoringMode = mode
		items[i].mu.Unlock()
	}
	return resp.Results, nil
}

// syncItemHandlesLocked aligns local items with what the server reports
// after a transfer or recreate. Items the server knows by client handle get
// its server id; server items unknown locally are queued for deletion;
// local items missing on the server are reset so they are created again.
// With strict set a differing item count fails the sync.
func (s *Subscription) syncItemHandlesLocked(ctx context.Context, strict bool) bool {
	id := s.ID()
	serverHandles, clientHandles, err := s.session.GetMonitoredItems(ctx, id)
	if err == nil && len(serverHandles) != len(clientHandles) {
		err = fmt.Errorf("%w: %d server handles, %d client handles",
			ErrUnexpectedResponse, len(serverHandles), len(clientHandles))
	}
	if err == nil && strict {
		s.itemsMu.Lock()
		local := len(s.items)
		s.itemsMu.Unlock()
		if local != len(serverHandles) {
			s.logger.Error("GetMonitoredItems: item count mismatch",
				"local", local,
				"server", len(serverHandles))
			return false
		}
	}
	if err != nil {
		s.logger.Error("GetMonitoredItems: failed, resetting items",
			"error", err)
		for _, item := range s.Items() {
			item.reset()
		}
		return false
	}

	byClient := make(map[uint32]uint32, len(clientHandles))
	for i, ch := range clientHandles {
		byClient[ch] = serverHandles[i]
	}

	s.itemsMu.Lock()
	defer s.itemsMu.Unlock()

	var unmatched []*Item
	for handle, item := range s.items {
		serverID, ok := byClient[handle]
		if !ok {
			unmatched = append(unmatched, item)
			continue
		}
		delete(byClient, handle)
		item.mu.Lock()
		item.serverID = serverID
		item.created = true
		item.mu.Unlock()
	}

	// Items restored from earlier state may know their server id but carry
	// a different client handle on the server.
	byServer := make(map[uint32]uint32, len(byClient))
	for ch, sh := range byClient {
		byServer[sh] = ch
	}
	var missing []*Item
	for _, item := range unmatched {
		serverID := item.ServerID()
		if _, ok := byServer[serverID]; serverID != 0 && ok {
			delete(byServer, serverID)
			item.mu.Lock()
			item.created = true
			item.changed = true
			item.mu.Unlock()
			continue
		}
		missing = append(missing, item)
	}

	s.deletedItems = s.deletedItems[:0]
	for serverID := range byServer {
		s.deletedItems = append(s.deletedItems, serverID)
	}
	sort.Slice(s.deletedItems, func(a, b int) bool { return s.deletedItems[a] < s.deletedItems[b] })

	for _, item := range missing {
		if item.Created() {
			s.logger.Debug("GetMonitoredItems: item missing on server",
				"clientHandle", item.clientHandle)
		}
		item.reset()
	}
	return true
}

func durationToMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func millisToDuration(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}
