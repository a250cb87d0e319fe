// Package commands implements the uasub-trace CLI commands.
package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/mash-protocol/uasub-go/pkg/log"
)

var (
	inColor    = color.New(color.FgGreen)
	outColor   = color.New(color.FgBlue)
	localColor = color.New(color.FgMagenta)
	alertColor = color.New(color.FgRed, color.Bold)
)

// RunView prints the events of the trace file matching filter.
func RunView(path string, filter log.Filter, output io.Writer) error {
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
		formatEvent(output, event)
	}
	return nil
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [session] DIRECTION CATEGORY label
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	dir := directionColor(event.Direction).Sprintf("%-5s", event.Direction.String())
	label := eventLabel(event)
	if alerting(event) {
		label = alertColor.Sprint(label)
	}
	fmt.Fprintf(w, "%s [%s] %s %s %s", ts, shortenID(event.SessionID),
		dir, event.Category.String(), label)
	if event.SubscriptionID != 0 {
		fmt.Fprintf(w, " sub=%d", event.SubscriptionID)
	}
	if event.Worker != nil {
		fmt.Fprintf(w, " worker=%d", *event.Worker)
	}
	fmt.Fprintln(w)

	switch {
	case event.Service != nil:
		formatServiceDetails(w, event.Service)
	case event.Notification != nil:
		formatNotificationDetails(w, event.Notification)
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w)
}

func eventLabel(event log.Event) string {
	switch {
	case event.Service != nil:
		return event.Service.Service.String()
	case event.Notification != nil:
		return event.Notification.Kind.String()
	case event.StateChange != nil:
		return event.StateChange.Entity.String()
	case event.Error != nil:
		return "Error"
	default:
		return "Unknown"
	}
}

func directionColor(d log.Direction) *color.Color {
	switch d {
	case log.DirectionIn:
		return inColor
	case log.DirectionOut:
		return outColor
	default:
		return localColor
	}
}

// alerting reports whether the event shows a failure or a loss.
func alerting(event log.Event) bool {
	switch {
	case event.Error != nil:
		return true
	case event.Service != nil:
		return event.Service.Status != 0
	case event.Notification != nil:
		return event.Notification.Lost || event.Notification.Dropped
	}
	return false
}

// shortenID returns the first 8 characters of a session id.
func shortenID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func formatServiceDetails(w io.Writer, svc *log.ServiceEvent) {
	if svc.RequestHandle != 0 {
		fmt.Fprintf(w, "  RequestHandle: %d\n", svc.RequestHandle)
	}
	if svc.Status != 0 {
		fmt.Fprintf(w, "  Status: %s\n", log.StatusText(svc.Status))
	}
	if svc.TimeoutHint != 0 {
		fmt.Fprintf(w, "  TimeoutHint: %dms\n", svc.TimeoutHint)
	}
	if svc.Duration != nil {
		fmt.Fprintf(w, "  Duration: %s\n", formatDuration(*svc.Duration))
	}
	if len(svc.Acks) > 0 {
		parts := make([]string, len(svc.Acks))
		for i, a := range svc.Acks {
			parts[i] = fmt.Sprintf("%d/%d", a.SubscriptionID, a.SequenceNumber)
		}
		fmt.Fprintf(w, "  Acks: %s\n", strings.Join(parts, " "))
	}
	if svc.MoreNotifications {
		fmt.Fprintln(w, "  MoreNotifications")
	}
	if len(svc.Available) > 0 {
		fmt.Fprintf(w, "  Available: %v\n", svc.Available)
	}
}

func formatNotificationDetails(w io.Writer, n *log.NotificationEvent) {
	fmt.Fprintf(w, "  SequenceNumber: %d\n", n.SequenceNumber)
	if !n.PublishTime.IsZero() {
		fmt.Fprintf(w, "  PublishTime: %s\n", n.PublishTime.UTC().Format(time.RFC3339Nano))
	}
	if n.Count > 0 {
		fmt.Fprintf(w, "  Count: %d\n", n.Count)
	}
	switch {
	case n.Republished:
		fmt.Fprintln(w, "  Republished")
	case n.Dropped:
		fmt.Fprintln(w, "  Dropped")
	case n.Lost:
		fmt.Fprintln(w, "  Lost")
	}
}

func formatStateChangeDetails(w io.Writer, sc *log.StateChangeEvent) {
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

func formatErrorDetails(w io.Writer, err *log.ErrorEventData) {
	fmt.Fprintf(w, "  Message: %s\n", err.Message)
	if err.Code != nil {
		fmt.Fprintf(w, "  Code: %s\n", log.StatusText(*err.Code))
	}
	if err.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", err.Context)
	}
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%.3fus", float64(d.Nanoseconds())/1000)
	}
	if d < time.Second {
		return fmt.Sprintf("%.3fms", float64(d.Microseconds())/1000)
	}
	return fmt.Sprintf("%.3fs", d.Seconds())
}
