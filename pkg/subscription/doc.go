// Package subscription implements the client side of the OPC UA subscription
// and publish pipeline.
//
// A Manager owns the subscriptions of one session. It runs a publish
// controller that sizes a pool of publish workers to the number of created
// subscriptions, bounded by MinPublishWorkerCount and MaxPublishWorkerCount.
// Each worker keeps a Publish call outstanding, attaches queued
// acknowledgements, and routes the returned notification message to the
// owning Subscription.
//
// # Ordering
//
// Every Subscription feeds received notification messages into a private
// queue ordered by sequence number and drains it from a single goroutine.
// Missing sequence numbers that the server still holds in its retransmission
// queue are fetched with Republish and dispatched before the message that
// revealed the gap. Stale and duplicate messages are dropped. Each dispatched
// message produces exactly one acknowledgement, which is sent with one of the
// next Publish calls.
//
// # Back-pressure
//
// When the server answers a Publish with BadTooManyPublishRequests the
// worker rolls back its acknowledgements, waits, and flags the condition. The
// controller then lowers MaxPublishWorkerCount by one (never below one), so
// the pool shrinks to what the server accepts.
//
// # Reconnect
//
// Pause stops workers from issuing new Publish calls without tearing them
// down. After a new session is active, RecreateSubscriptions transfers the
// subscriptions to it when possible and recreates the rest; Resume restarts
// publishing.
//
// # Keep-alive
//
// A created subscription expects a message at least every
// publishingInterval × (keepAliveCount+1). When that window plus a margin
// passes in silence, the Handler is told that publishing stopped, and told
// again when it recovers.
package subscription
