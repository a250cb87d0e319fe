package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/mash-protocol/uasub-go/pkg/log"
)

// Stats holds aggregate statistics about a trace file.
type Stats struct {
	TotalEvents       int
	EventsByCategory  map[log.Category]int
	EventsByDirection map[log.Direction]int
	Subscriptions     map[uint32]*SubscriptionStats
	Errors            int

	PublishRequests  int
	PublishFailures  map[uint32]int
	AcksSent         int
	AcksRolledBack   int
	MaxPublishWorker int

	TimeRange struct {
		Start time.Time
		End   time.Time
	}
}

// SubscriptionStats holds statistics for a single subscription.
type SubscriptionStats struct {
	Notifications map[log.NotificationKind]int
	Republished   int
	Dropped       int
	Lost          int
	LastSequence  uint32
}

// RunStats analyzes the trace file and prints statistics.
func RunStats(path string, w io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open trace file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByCategory:  make(map[log.Category]int),
		EventsByDirection: make(map[log.Direction]int),
		Subscriptions:     make(map[uint32]*SubscriptionStats),
		PublishFailures:   make(map[uint32]int),
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		stats.add(event)
	}

	printStats(w, stats)
	return nil
}

func (s *Stats) add(event log.Event) {
	s.TotalEvents++
	s.EventsByCategory[event.Category]++
	s.EventsByDirection[event.Direction]++

	if s.TimeRange.Start.IsZero() || event.Timestamp.Before(s.TimeRange.Start) {
		s.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(s.TimeRange.End) {
		s.TimeRange.End = event.Timestamp
	}
	if event.Worker != nil && *event.Worker+1 > s.MaxPublishWorker {
		s.MaxPublishWorker = *event.Worker + 1
	}

	if svc := event.Service; svc != nil && svc.Service == log.ServicePublish {
		switch event.Direction {
		case log.DirectionOut:
			s.PublishRequests++
			s.AcksSent += len(svc.Acks)
		case log.DirectionIn:
			if svc.Status != 0 {
				s.PublishFailures[svc.Status]++
			}
		case log.DirectionLocal:
			s.AcksRolledBack += len(svc.Acks)
		}
	}

	if n := event.Notification; n != nil {
		sub := s.subscription(event.SubscriptionID)
		switch {
		case n.Lost:
			sub.Lost += n.Count
		case n.Dropped:
			sub.Dropped++
		default:
			sub.Notifications[n.Kind]++
			if n.Republished {
				sub.Republished++
			}
			if n.SequenceNumber > sub.LastSequence {
				sub.LastSequence = n.SequenceNumber
			}
		}
	}

	if event.Error != nil {
		s.Errors++
	}
}

func (s *Stats) subscription(id uint32) *SubscriptionStats {
	sub, ok := s.Subscriptions[id]
	if !ok {
		sub = &SubscriptionStats{Notifications: make(map[log.NotificationKind]int)}
		s.Subscriptions[id] = sub
	}
	return sub
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Subscription Trace Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryService, log.CategoryNotification, log.CategoryState, log.CategoryError} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-14s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Direction:")
	for _, dir := range []log.Direction{log.DirectionIn, log.DirectionOut, log.DirectionLocal} {
		if count := stats.EventsByDirection[dir]; count > 0 {
			fmt.Fprintf(w, "  %-14s %d\n", dir.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Publish Requests: %d (workers seen: %d)\n", stats.PublishRequests, stats.MaxPublishWorker)
	fmt.Fprintf(w, "Acks Sent: %d, rolled back: %d\n", stats.AcksSent, stats.AcksRolledBack)
	if len(stats.PublishFailures) > 0 {
		codes := make([]uint32, 0, len(stats.PublishFailures))
		for code := range stats.PublishFailures {
			codes = append(codes, code)
		}
		sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
		fmt.Fprintln(w, "Publish Failures:")
		for _, code := range codes {
			fmt.Fprintf(w, "  %s: %d\n", log.StatusText(code), stats.PublishFailures[code])
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Subscriptions: %d\n", len(stats.Subscriptions))
	ids := make([]uint32, 0, len(stats.Subscriptions))
	for id := range stats.Subscriptions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		sub := stats.Subscriptions[id]
		fmt.Fprintf(w, "  [%d] last seq %d, data %d, events %d, keep-alive %d, status %d\n", id, sub.LastSequence,
			sub.Notifications[log.NotificationDataChange],
			sub.Notifications[log.NotificationEvents],
			sub.Notifications[log.NotificationKeepAlive],
			sub.Notifications[log.NotificationStatusChange])
		if sub.Republished > 0 || sub.Dropped > 0 || sub.Lost > 0 {
			fmt.Fprintf(w, "       republished %d, dropped %d, lost %d\n", sub.Republished, sub.Dropped, sub.Lost)
		}
	}

	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}
