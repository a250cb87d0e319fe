package log

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

type captureLogger struct {
	mu     sync.Mutex
	events []Event
}

func (c *captureLogger) Log(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func TestMultiLoggerFansOut(t *testing.T) {
	a, b := &captureLogger{}, &captureLogger{}
	m := NewMultiLogger(a, nil, b, NoopLogger{})

	m.Log(Event{SessionID: "x"})

	if len(a.events) != 1 || len(b.events) != 1 {
		t.Errorf("got %d and %d events, want 1 each", len(a.events), len(b.events))
	}
}

func TestSlogAdapter(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	adapter := NewSlogAdapter(logger)

	code := uint32(0x80780000)
	adapter.Log(Event{
		Timestamp:      time.Now(),
		SessionID:      "sess",
		Category:       CategoryError,
		SubscriptionID: 9,
		Error:          &ErrorEventData{Message: "publish failed", Code: &code, Context: "publish"},
	})
	adapter.Log(Event{
		Category:     CategoryNotification,
		Notification: &NotificationEvent{SequenceNumber: 5, Kind: NotificationDataChange, Count: 2, Republished: true},
	})

	out := buf.String()
	for _, want := range []string{"subscription_id=9", "error_msg=\"publish failed\"", "0x80780000", "seq=5", "kind=DATACHANGE", "republished=true"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestEnumStrings(t *testing.T) {
	if DirectionLocal.String() != "LOCAL" {
		t.Errorf("DirectionLocal = %q", DirectionLocal.String())
	}
	if Category(99).String() != "UNKNOWN" {
		t.Errorf("Category(99) = %q", Category(99).String())
	}
	if ServiceTransferSubscriptions.String() != "TransferSubscriptions" {
		t.Errorf("ServiceTransferSubscriptions = %q", ServiceTransferSubscriptions.String())
	}
	if NotificationStatusChange.String() != "STATUSCHANGE" {
		t.Errorf("NotificationStatusChange = %q", NotificationStatusChange.String())
	}
	if StateEntityWorker.String() != "WORKER" {
		t.Errorf("StateEntityWorker = %q", StateEntityWorker.String())
	}
}
