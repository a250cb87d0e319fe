// Package interactive provides the interactive command-line interface
// for uasub-sim.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/gopcua/opcua/ua"

	"github.com/mash-protocol/uasub-go/pkg/sim"
	"github.com/mash-protocol/uasub-go/pkg/subscription"
)

// Shell handles interactive mode for uasub-sim.
type Shell struct {
	manager *subscription.Manager
	server  *sim.Server
	session *sim.Session

	rl  *readline.Instance
	out io.Writer
}

// New creates a shell reading from the terminal. Call Bind before Run.
func New() (*Shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "uasub> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Shell{rl: rl, out: rl.Stdout()}, nil
}

// Bind attaches the manager and the simulated server the commands act on.
func (s *Shell) Bind(m *subscription.Manager, srv *sim.Server, sess *sim.Session) {
	s.manager = m
	s.server = srv
	s.session = sess
}

// Stdout returns a writer that properly coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (s *Shell) Stdout() io.Writer {
	return s.rl.Stdout()
}

// Stderr returns a writer that properly coordinates with the readline input.
func (s *Shell) Stderr() io.Writer {
	return s.rl.Stderr()
}

// Run starts the interactive command loop.
func (s *Shell) Run(ctx context.Context, cancel context.CancelFunc) {
	defer s.rl.Close()

	s.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := s.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(s.out, "Exiting...")
			cancel()
			return
		}

		if s.Exec(ctx, line) {
			fmt.Fprintln(s.out, "Exiting...")
			cancel()
			return
		}
	}
}

// Exec runs one command line. It returns true when the shell should exit.
func (s *Shell) Exec(ctx context.Context, line string) bool {
	parts := strings.Fields(strings.TrimSpace(line))
	if len(parts) == 0 {
		return false
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	var err error
	switch cmd {
	case "help", "?":
		s.printHelp()
	case "status", "st":
		s.cmdStatus()
	case "subs", "ls":
		s.cmdSubs()
	case "items":
		err = s.cmdItems(args)
	case "write", "w":
		err = s.cmdWrite(args)
	case "pause":
		s.manager.Pause()
		fmt.Fprintln(s.out, "Publishing paused")
	case "resume":
		s.manager.Resume()
		fmt.Fprintln(s.out, "Publishing resumed")
	case "workers":
		err = s.cmdWorkers(args)
	case "transfer":
		err = s.cmdTransfer(args)
	case "drop":
		err = s.cmdDrop(args)
	case "failrepublish":
		err = s.cmdFailRepublish(args)
	case "timeout":
		err = s.cmdTimeout(args)
	case "reconnect":
		err = s.cmdReconnect(ctx)
	case "remove", "rm":
		err = s.cmdRemove(ctx, args)
	case "quit", "exit", "q":
		return true
	default:
		err = fmt.Errorf("unknown command %q (type 'help' for commands)", cmd)
	}
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
	}
	return false
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.out, `
Commands:
  status                    Show manager and server counters
  subs                      List subscriptions
  items <sub-id>            List monitored items of a subscription
  write <node-id> <value>   Write a value on the simulated server
  pause | resume            Stop or restart publishing
  workers <min> <max>       Set publish worker bounds
  transfer on|off           Transfer subscriptions when recreating
  drop <sub-id> [n]         Lose the next n publish responses
  failrepublish on|off      Make Republish fail on the server
  timeout <sub-id>          Expire a subscription on the server
  reconnect                 Open a new session and recreate subscriptions
  remove <sub-id>           Delete a subscription
  quit                      Exit`)
}

func (s *Shell) cmdStatus() {
	m := s.manager
	state := "running"
	if m.Paused() {
		state = "paused"
	}
	fmt.Fprintf(s.out, "Manager:       %s (trace %s)\n", state, m.TraceID())
	fmt.Fprintf(s.out, "Subscriptions: %d (%d created)\n", m.Count(), m.CreatedCount())
	fmt.Fprintf(s.out, "Workers:       %d [%d..%d]\n",
		m.PublishWorkerCount(), m.MinPublishWorkerCount(), m.MaxPublishWorkerCount())
	fmt.Fprintf(s.out, "Publish:       %d good, %d bad, %d control cycles\n",
		m.GoodPublishRequestCount(), m.BadPublishRequestCount(), m.PublishControlCycles())
	fmt.Fprintf(s.out, "Pending acks:  %d\n", m.PendingAcks())

	st := s.server.Stats()
	fmt.Fprintln(s.out, "Server:")
	fmt.Fprintf(s.out, "  publish %d (rejected %d), republish %d, acknowledged %d\n",
		st.Publish, st.PublishRejected, st.Republish, st.Acknowledged)
	fmt.Fprintf(s.out, "  data changes %d, keep-alives %d, status changes %d\n",
		st.DataChangeSent, st.KeepAlives, st.StatusChangesSent)
	fmt.Fprintf(s.out, "  dropped responses %d, transfers %d\n", st.DroppedResponses, st.TransferredOK)
}

func (s *Shell) cmdSubs() {
	subs := s.manager.Items()
	if len(subs) == 0 {
		fmt.Fprintln(s.out, "No subscriptions")
		return
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].ID() < subs[j].ID() })
	fmt.Fprintf(s.out, "%-6s %-16s %-8s %-10s %-6s %-8s %s\n",
		"ID", "NAME", "CREATED", "INTERVAL", "ITEMS", "LASTSEQ", "RETRANS")
	for _, sub := range subs {
		var retrans []uint32
		if sub.Created() {
			retrans = s.server.Retransmission(sub.ID())
		}
		fmt.Fprintf(s.out, "%-6d %-16s %-8t %-10s %-6d %-8d %v\n",
			sub.ID(), sub.Name(), sub.Created(), sub.CurrentPublishingInterval(),
			len(sub.Items()), sub.LastSequenceNumberProcessed(), retrans)
	}
}

func (s *Shell) cmdItems(args []string) error {
	sub, err := s.subscriptionArg(args)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%-8s %-8s %-32s %-10s %s\n", "HANDLE", "ID", "NODE", "SAMPLING", "STATUS")
	for _, it := range sub.Items() {
		fmt.Fprintf(s.out, "%-8d %-8d %-32s %-10s %s\n",
			it.ClientHandle(), it.ServerID(), it.Options().NodeID, it.RevisedSamplingInterval(), it.Status())
	}
	return nil
}

func (s *Shell) cmdWrite(args []string) error {
	if len(args) != 2 {
		return errors.New("usage: write <node-id> <value>")
	}
	node, err := ua.ParseNodeID(args[0])
	if err != nil {
		return fmt.Errorf("invalid node id: %w", err)
	}
	v, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid value: %w", err)
	}
	s.server.Write(node, &ua.DataValue{
		EncodingMask:    ua.DataValueValue | ua.DataValueSourceTimestamp,
		Value:           ua.MustVariant(v),
		SourceTimestamp: time.Now(),
	})
	fmt.Fprintf(s.out, "Wrote %v to %s\n", v, node)
	return nil
}

func (s *Shell) cmdWorkers(args []string) error {
	if len(args) != 2 {
		return errors.New("usage: workers <min> <max>")
	}
	lo, err := strconv.Atoi(args[0])
	if err != nil || lo < 0 {
		return fmt.Errorf("invalid min %q", args[0])
	}
	hi, err := strconv.Atoi(args[1])
	if err != nil || hi < 1 || hi < lo {
		return fmt.Errorf("invalid max %q", args[1])
	}
	s.manager.SetMaxPublishWorkerCount(hi)
	s.manager.SetMinPublishWorkerCount(lo)
	fmt.Fprintf(s.out, "Worker bounds set to [%d..%d]\n", lo, hi)
	return nil
}

func (s *Shell) cmdTransfer(args []string) error {
	on, err := onOffArg(args, "transfer")
	if err != nil {
		return err
	}
	s.manager.SetTransferSubscriptionsOnRecreate(on)
	fmt.Fprintf(s.out, "Transfer on recreate: %t\n", on)
	return nil
}

func (s *Shell) cmdDrop(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errors.New("usage: drop <sub-id> [n]")
	}
	sub, err := s.subscriptionArg(args[:1])
	if err != nil {
		return err
	}
	n := 1
	if len(args) == 2 {
		n, err = strconv.Atoi(args[1])
		if err != nil || n < 1 {
			return fmt.Errorf("invalid count %q", args[1])
		}
	}
	s.server.DropNext(sub.ID(), n)
	fmt.Fprintf(s.out, "Dropping next %d response(s) of subscription %d\n", n, sub.ID())
	return nil
}

func (s *Shell) cmdFailRepublish(args []string) error {
	on, err := onOffArg(args, "failrepublish")
	if err != nil {
		return err
	}
	s.server.FailRepublish(on)
	fmt.Fprintf(s.out, "Republish failures: %t\n", on)
	return nil
}

func (s *Shell) cmdTimeout(args []string) error {
	sub, err := s.subscriptionArg(args)
	if err != nil {
		return err
	}
	s.server.SetTimeout(sub.ID())
	fmt.Fprintf(s.out, "Subscription %d expires on the server\n", sub.ID())
	return nil
}

func (s *Shell) cmdReconnect(ctx context.Context) error {
	s.manager.Pause()
	defer s.manager.Resume()

	prev := s.session.Reconnect()
	fmt.Fprintf(s.out, "New session %s (previous %s)\n", s.session.ID(), prev)
	if err := s.manager.RecreateSubscriptions(ctx, prev); err != nil {
		return fmt.Errorf("recreate subscriptions: %w", err)
	}
	fmt.Fprintf(s.out, "%d subscription(s) recreated\n", s.manager.CreatedCount())
	return nil
}

func (s *Shell) cmdRemove(ctx context.Context, args []string) error {
	sub, err := s.subscriptionArg(args)
	if err != nil {
		return err
	}
	id := sub.ID()
	if err := s.manager.Remove(ctx, sub); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Subscription %d removed\n", id)
	return nil
}

func (s *Shell) subscriptionArg(args []string) (*subscription.Subscription, error) {
	if len(args) != 1 {
		return nil, errors.New("subscription id required")
	}
	id, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid subscription id %q", args[0])
	}
	sub := s.manager.ByID(uint32(id))
	if sub == nil {
		return nil, fmt.Errorf("subscription %d not found", id)
	}
	return sub, nil
}

func onOffArg(args []string, cmd string) (bool, error) {
	if len(args) == 1 {
		switch strings.ToLower(args[0]) {
		case "on", "true", "1":
			return true, nil
		case "off", "false", "0":
			return false, nil
		}
	}
	return false, fmt.Errorf("usage: %s on|off", cmd)
}
