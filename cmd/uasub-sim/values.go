package main

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/gopcua/opcua/ua"

	"github.com/mash-protocol/uasub-go/pkg/sim"
	"github.com/mash-protocol/uasub-go/pkg/subscription"
)

// sample returns the value generated for node index i at step n. Even nodes
// count up, odd nodes follow a sine wave.
func sample(i int, n int64) float64 {
	if i%2 == 0 {
		return float64(n)
	}
	return math.Round(100*math.Sin(float64(n)/10)) / 100
}

// generateValues writes a new value for every node each interval until ctx
// is done.
func generateValues(ctx context.Context, srv *sim.Server, nodes []*ua.NodeID, interval time.Duration) {
	if len(nodes) == 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var n int64
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n++
			for i, node := range nodes {
				srv.Write(node, &ua.DataValue{
					EncodingMask:    ua.DataValueValue | ua.DataValueSourceTimestamp,
					Value:           ua.MustVariant(sample(i, n)),
					SourceTimestamp: now,
				})
			}
		}
	}
}

// newPrinter returns a handler that logs notifications. Values are logged at
// debug level, publish state changes at info.
func newPrinter(logger *slog.Logger) subscription.Handler {
	return subscription.HandlerFuncs{
		DataChange: func(sub *subscription.Subscription, seq uint32, _ time.Time,
			n *ua.DataChangeNotification, state subscription.PublishState, _ []string) {
			for _, mi := range n.MonitoredItems {
				node := "?"
				if it, ok := sub.ItemByClientHandle(mi.ClientHandle); ok {
					node = it.Options().NodeID.String()
				}
				var value any
				if mi.Value != nil && mi.Value.Value != nil {
					value = mi.Value.Value.Value()
				}
				logger.Debug("Value", "subscription", sub.ID(), "sequence", seq,
					"node", node, "value", value, "state", state)
			}
		},
		Event: func(sub *subscription.Subscription, seq uint32, _ time.Time,
			n *ua.EventNotificationList, state subscription.PublishState, _ []string) {
			logger.Debug("Events", "subscription", sub.ID(), "sequence", seq,
				"count", len(n.Events), "state", state)
		},
		StateChanged: func(sub *subscription.Subscription, state subscription.PublishState) {
			logger.Info("Publish state changed", "subscription", sub.ID(), "name", sub.Name(), "state", state)
		},
	}
}
