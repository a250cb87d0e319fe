package subscription

import (
	"context"
	"errors"

	"github.com/gopcua/opcua/ua"
)

// StatusBadServerTooBusy is not part of every status code table yet.
const StatusBadServerTooBusy ua.StatusCode = 0x80EE0000

// StatusOf extracts the OPC UA status code carried by err.
func StatusOf(err error) (ua.StatusCode, bool) {
	var code ua.StatusCode
	if errors.As(err, &code) {
		return code, true
	}
	return 0, false
}

// IsBad reports whether code has the bad severity bit set.
func IsBad(code ua.StatusCode) bool {
	return uint32(code)&0x80000000 != 0
}

// IsGood reports whether code has good severity.
func IsGood(code ua.StatusCode) bool {
	return uint32(code)&0xC0000000 == 0
}

// publishErrorClass decides how a worker reacts to a failed Publish.
type publishErrorClass int

const (
	publishErrorUnhandled publishErrorClass = iota
	publishErrorCanceled
	publishErrorTooManyRequests
	publishErrorSession
	publishErrorOverload
	publishErrorTimeout
)

func (c publishErrorClass) String() string {
	switch c {
	case publishErrorCanceled:
		return "canceled"
	case publishErrorTooManyRequests:
		return "too_many_publish_requests"
	case publishErrorSession:
		return "session"
	case publishErrorOverload:
		return "overload"
	case publishErrorTimeout:
		return "timeout"
	default:
		return "unhandled"
	}
}

func classifyPublishError(ctx context.Context, err error) publishErrorClass {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return publishErrorCanceled
	}
	code, ok := StatusOf(err)
	if !ok {
		if errors.Is(err, context.DeadlineExceeded) {
			return publishErrorTimeout
		}
		return publishErrorUnhandled
	}
	switch code {
	case ua.StatusBadTooManyPublishRequests:
		return publishErrorTooManyRequests
	case ua.StatusBadNoSubscription,
		ua.StatusBadSessionClosed,
		ua.StatusBadSecurityChecksFailed,
		ua.StatusBadCertificateInvalid,
		ua.StatusBadServerHalted,
		ua.StatusBadSessionIDInvalid,
		ua.StatusBadSecureChannelIDInvalid,
		ua.StatusBadSecureChannelClosed:
		return publishErrorSession
	case ua.StatusBadTooManyOperations,
		ua.StatusBadTCPServerTooBusy,
		StatusBadServerTooBusy:
		return publishErrorOverload
	case ua.StatusBadTimeout,
		ua.StatusBadRequestTimeout:
		return publishErrorTimeout
	default:
		return publishErrorUnhandled
	}
}
