package subscription

import (
	"context"
	"time"

	"github.com/gopcua/opcua/ua"
)

// Session is the part of an OPC UA session the pipeline needs.
//
// Implementations return an error when the call fails or the response
// header carries a bad service result. Bad results should be returned as a
// ua.StatusCode (or wrap one) so they can be classified. Per-operation
// results inside a successful response are returned as-is.
type Session interface {
	CreateSubscription(ctx context.Context, req *ua.CreateSubscriptionRequest) (*ua.CreateSubscriptionResponse, error)
	ModifySubscription(ctx context.Context, req *ua.ModifySubscriptionRequest) (*ua.ModifySubscriptionResponse, error)
	DeleteSubscriptions(ctx context.Context, req *ua.DeleteSubscriptionsRequest) (*ua.DeleteSubscriptionsResponse, error)
	SetPublishingMode(ctx context.Context, req *ua.SetPublishingModeRequest) (*ua.SetPublishingModeResponse, error)
	TransferSubscriptions(ctx context.Context, req *ua.TransferSubscriptionsRequest) (*ua.TransferSubscriptionsResponse, error)

	Publish(ctx context.Context, req *ua.PublishRequest) (*ua.PublishResponse, error)
	Republish(ctx context.Context, req *ua.RepublishRequest) (*ua.RepublishResponse, error)

	CreateMonitoredItems(ctx context.Context, req *ua.CreateMonitoredItemsRequest) (*ua.CreateMonitoredItemsResponse, error)
	ModifyMonitoredItems(ctx context.Context, req *ua.ModifyMonitoredItemsRequest) (*ua.ModifyMonitoredItemsResponse, error)
	DeleteMonitoredItems(ctx context.Context, req *ua.DeleteMonitoredItemsRequest) (*ua.DeleteMonitoredItemsResponse, error)
	SetMonitoringMode(ctx context.Context, req *ua.SetMonitoringModeRequest) (*ua.SetMonitoringModeResponse, error)

	// GetMonitoredItems calls the server's GetMonitoredItems method and
	// returns the parallel server and client handle lists.
	GetMonitoredItems(ctx context.Context, subscriptionID uint32) (serverHandles, clientHandles []uint32, err error)

	// SessionTimeout is the revised session timeout.
	SessionTimeout() time.Duration
}
