package subscription

import "errors"

var (
	// ErrNotCreated is returned when an operation needs a server-side
	// subscription that does not exist.
	ErrNotCreated = errors.New("subscription not created")

	// ErrAlreadyCreated is returned by Create on a created subscription.
	ErrAlreadyCreated = errors.New("subscription already created")

	// ErrClosed is returned by operations on a closed subscription.
	ErrClosed = errors.New("subscription closed")

	// ErrManagerClosed is returned by Add after Close.
	ErrManagerClosed = errors.New("subscription manager closed")

	// ErrUnexpectedResponse is returned when a server response does not
	// match its request, e.g. a result list of the wrong length.
	ErrUnexpectedResponse = errors.New("unexpected response")
)
