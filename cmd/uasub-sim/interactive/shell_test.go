package interactive

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/gopcua/opcua/ua"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mash-protocol/uasub-go/pkg/sim"
	"github.com/mash-protocol/uasub-go/pkg/subscription"
)

var testNode = ua.NewStringNodeID(2, "Demo.Counter")

type testEnv struct {
	shell  *Shell
	out    *bytes.Buffer
	server *sim.Server
	sub    *subscription.Subscription
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := sim.DefaultConfig()
	cfg.MinPublishingInterval = 5 * time.Millisecond
	srv := sim.NewServer(cfg)
	sess := srv.NewSession()

	m := subscription.NewManager(sess, subscription.DefaultManagerConfig())
	t.Cleanup(func() { _ = m.Close() })

	subs, err := m.Add(subscription.Options{
		Name:               "demo",
		PublishingInterval: 20 * time.Millisecond,
		KeepAliveCount:     5,
		PublishingEnabled:  true,
	})
	require.NoError(t, err)
	subs[0].AddItem(subscription.ItemOptions{NodeID: testNode, QueueSize: 10})
	require.NoError(t, subs[0].Create(context.Background()))

	out := &bytes.Buffer{}
	sh := &Shell{out: out}
	sh.Bind(m, srv, sess)
	return &testEnv{shell: sh, out: out, server: srv, sub: subs[0]}
}

func (e *testEnv) exec(line string) string {
	e.out.Reset()
	e.shell.Exec(context.Background(), line)
	return e.out.String()
}

func TestShellStatusAndSubs(t *testing.T) {
	env := newTestEnv(t)

	out := env.exec("status")
	assert.Contains(t, out, "Manager:       running")
	assert.Contains(t, out, "Subscriptions: 1 (1 created)")

	out = env.exec("subs")
	assert.Contains(t, out, "demo")
	assert.Contains(t, out, fmt.Sprint(env.sub.ID()))

	out = env.exec(fmt.Sprintf("items %d", env.sub.ID()))
	assert.Contains(t, out, testNode.String())
}

func TestShellWriteDeliversValue(t *testing.T) {
	env := newTestEnv(t)

	out := env.exec("write ns=2;s=Demo.Counter 42.5")
	assert.Contains(t, out, "Wrote 42.5")
	require.Eventually(t, func() bool {
		return env.sub.LastSequenceNumberProcessed() > 0
	}, 5*time.Second, 5*time.Millisecond)
	assert.GreaterOrEqual(t, env.server.Stats().DataChangeSent, 1)
}

func TestShellPauseResume(t *testing.T) {
	env := newTestEnv(t)

	assert.Contains(t, env.exec("pause"), "paused")
	assert.True(t, env.shell.manager.Paused())
	assert.Contains(t, env.exec("resume"), "resumed")
	assert.False(t, env.shell.manager.Paused())
}

func TestShellWorkers(t *testing.T) {
	env := newTestEnv(t)

	assert.Contains(t, env.exec("workers 1 4"), "[1..4]")
	assert.Equal(t, 1, env.shell.manager.MinPublishWorkerCount())
	assert.Equal(t, 4, env.shell.manager.MaxPublishWorkerCount())

	assert.Contains(t, env.exec("workers 5 2"), "Error: invalid max")
	assert.Contains(t, env.exec("workers 1"), "usage: workers")
}

func TestShellReconnectTransfers(t *testing.T) {
	env := newTestEnv(t)
	id := env.sub.ID()

	out := env.exec("reconnect")
	assert.Contains(t, out, "1 subscription(s) recreated")
	assert.Equal(t, id, env.sub.ID())
	assert.Equal(t, 1, env.server.Stats().TransferredOK)
	assert.False(t, env.shell.manager.Paused())
}

func TestShellFaultInjection(t *testing.T) {
	env := newTestEnv(t)
	id := env.sub.ID()

	assert.Contains(t, env.exec(fmt.Sprintf("drop %d 2", id)), "Dropping next 2")
	assert.Contains(t, env.exec("failrepublish on"), "Republish failures: true")
	assert.Contains(t, env.exec("failrepublish maybe"), "usage: failrepublish on|off")
	assert.Contains(t, env.exec("transfer off"), "Transfer on recreate: false")
	assert.False(t, env.shell.manager.TransferSubscriptionsOnRecreate())
	assert.Contains(t, env.exec(fmt.Sprintf("timeout %d", id)), "expires on the server")
}

func TestShellRemove(t *testing.T) {
	env := newTestEnv(t)
	id := env.sub.ID()

	assert.Contains(t, env.exec(fmt.Sprintf("remove %d", id)), "removed")
	assert.Equal(t, 0, env.shell.manager.Count())
	assert.Contains(t, env.exec(fmt.Sprintf("remove %d", id)), "not found")
}

func TestShellErrors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		line string
		want string
	}{
		{"bogus", `unknown command "bogus"`},
		{"items", "subscription id required"},
		{"items x", `invalid subscription id "x"`},
		{"drop 999", "subscription 999 not found"},
		{"write ns=2;s=Demo.Counter abc", "invalid value"},
		{"write ns=x;i=1 1", "invalid node id"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Contains(t, env.exec(tt.line), tt.want)
		})
	}
}

func TestShellQuit(t *testing.T) {
	env := newTestEnv(t)

	assert.False(t, env.shell.Exec(context.Background(), ""))
	assert.False(t, env.shell.Exec(context.Background(), "help"))
	assert.True(t, env.shell.Exec(context.Background(), "quit"))
	assert.True(t, env.shell.Exec(context.Background(), "EXIT"))
}
