package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/mash-protocol/uasub-go/pkg/log"
)

// record is the flat form of an event shared by all export formats.
type record struct {
	Timestamp      string `json:"timestamp"`
	SessionID      string `json:"session_id"`
	Direction      string `json:"direction"`
	Category       string `json:"category"`
	SubscriptionID string `json:"subscription_id,omitempty"`
	Worker         string `json:"worker,omitempty"`
	Type           string `json:"type"`
	SequenceNumber string `json:"sequence_number,omitempty"`
	Status         string `json:"status,omitempty"`
	Detail         any    `json:"detail,omitempty"`
}

var csvHeader = []string{
	"timestamp", "session_id", "direction", "category", "subscription_id",
	"worker", "type", "sequence_number", "status",
}

func (r record) csv() []string {
	return []string{
		r.Timestamp, r.SessionID, r.Direction, r.Category, r.SubscriptionID,
		r.Worker, r.Type, r.SequenceNumber, r.Status,
	}
}

func toRecord(event log.Event) record {
	r := record{
		Timestamp: event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z"),
		SessionID: event.SessionID,
		Direction: event.Direction.String(),
		Category:  event.Category.String(),
		Type:      eventLabel(event),
	}
	if event.SubscriptionID != 0 {
		r.SubscriptionID = strconv.FormatUint(uint64(event.SubscriptionID), 10)
	}
	if event.Worker != nil {
		r.Worker = strconv.Itoa(*event.Worker)
	}
	switch {
	case event.Service != nil:
		r.Detail = event.Service
		if event.Service.Status != 0 {
			r.Status = fmt.Sprintf("0x%08X", event.Service.Status)
		}
	case event.Notification != nil:
		r.Detail = event.Notification
		r.SequenceNumber = strconv.FormatUint(uint64(event.Notification.SequenceNumber), 10)
	case event.StateChange != nil:
		r.Detail = event.StateChange
	case event.Error != nil:
		r.Detail = event.Error
		if event.Error.Code != nil {
			r.Status = fmt.Sprintf("0x%08X", *event.Error.Code)
		}
	}
	return r
}

// RunExport writes the events of the trace file matching filter to w as
// JSON lines ("jsonl") or CSV ("csv").
func RunExport(path string, filter log.Filter, format string, w io.Writer) error {
	var write func(record) error
	var flush func() error
	switch format {
	case "jsonl":
		enc := json.NewEncoder(w)
		write = func(r record) error { return enc.Encode(r) }
		flush = func() error { return nil }
	case "csv":
		cw := csv.NewWriter(w)
		if err := cw.Write(csvHeader); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		write = func(r record) error { return cw.Write(r.csv()) }
		flush = func() error { cw.Flush(); return cw.Error() }
	default:
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}

	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open trace file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := write(toRecord(event)); err != nil {
			return fmt.Errorf("failed to write event: %w", err)
		}
	}
	return flush()
}
