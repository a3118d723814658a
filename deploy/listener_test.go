package deploy

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

type fakeAcknowledger struct {
	mu    sync.Mutex
	acked []uint64
}

func (a *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acked = append(a.acked, tag)
	return nil
}

func (a *fakeAcknowledger) Nack(tag uint64, multiple bool, requeue bool) error {
	return errors.New("unexpected nack")
}

func (a *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return errors.New("unexpected reject")
}

type fakeRunner struct {
	runs int
	err  error
}

func (r *fakeRunner) Run(ctx context.Context) ([]byte, error) {
	r.runs++
	return []byte("ok"), r.err
}

type fakeNotifier struct {
	senders []string
}

func (n *fakeNotifier) Deployed(sender string) {
	n.senders = append(n.senders, sender)
}

func deliver(t *testing.T, l *Listener, bodies ...string) *fakeAcknowledger {
	t.Helper()
	ack := &fakeAcknowledger{}
	deliveries := make(chan amqp.Delivery, len(bodies))
	for i, body := range bodies {
		deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: uint64(i + 1), Body: []byte(body)}
	}
	close(deliveries)
	require.ErrorIs(t, l.Run(context.Background(), deliveries), ErrDeliveriesClosed)
	return ack
}

func TestParseMessage(t *testing.T) {
	msg, err := ParseMessage([]byte(`{"task":"Deploy","sender":"ci"}`))
	require.NoError(t, err)
	assert.Equal(t, Message{Task: TaskDeploy, Sender: "ci"}, msg)

	msg, err = ParseMessage([]byte(`{"task":"Restart","sender":"ops"}`))
	require.NoError(t, err)
	assert.Equal(t, TaskUnknown, msg.Task)
	assert.Equal(t, "ops", msg.Sender)

	_, err = ParseMessage([]byte(`not json`))
	require.Error(t, err)
}

func TestListenerDeploys(t *testing.T) {
	defer goleak.VerifyNone(t)

	runner := &fakeRunner{}
	notifier := &fakeNotifier{}
	l := NewListener(zap.NewNop(), runner, Options{Platform: runtime.GOOS, Notifier: notifier})

	ack := deliver(t, l, `{"task":"Deploy","sender":"ci"}`)
	assert.Equal(t, []uint64{1}, ack.acked)
	assert.Equal(t, 1, runner.runs)
	assert.Equal(t, []string{"ci"}, notifier.senders)
}

func TestListenerIgnoresOtherTasks(t *testing.T) {
	defer goleak.VerifyNone(t)

	runner := &fakeRunner{}
	notifier := &fakeNotifier{}
	l := NewListener(zap.NewNop(), runner, Options{Platform: runtime.GOOS, Notifier: notifier})

	ack := deliver(t, l,
		`{"task":"Restart","sender":"ops"}`,
		`{"sender":"ops"}`,
		`garbage`,
		`{"task":"deploy","sender":"ops"}`,
	)
	assert.Equal(t, []uint64{1, 2, 3, 4}, ack.acked)
	assert.Zero(t, runner.runs)
	assert.Empty(t, notifier.senders)
}

func TestListenerSkipsForeignPlatform(t *testing.T) {
	runner := &fakeRunner{}
	l := NewListener(zap.NewNop(), runner, Options{Platform: "plan9"})
	l.goos = "linux"

	ack := deliver(t, l, `{"task":"Deploy","sender":"ci"}`)
	assert.Equal(t, []uint64{1}, ack.acked)
	assert.Zero(t, runner.runs)
}

func TestListenerFailedDeployDoesNotNotify(t *testing.T) {
	runner := &fakeRunner{err: errors.New("exit status 1")}
	notifier := &fakeNotifier{}
	l := NewListener(zap.NewNop(), runner, Options{Platform: runtime.GOOS, Notifier: notifier})

	deliver(t, l, `{"task":"Deploy","sender":"ci"}`, `{"task":"Deploy","sender":"ci"}`)
	assert.Equal(t, 2, runner.runs)
	assert.Empty(t, notifier.senders)
}

func TestListenerStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := NewListener(nil, &fakeRunner{}, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	deliveries := make(chan amqp.Delivery)

	done := make(chan error, 1)
	go func() {
		done <- l.Run(ctx, deliveries)
	}()
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestListenerReportsClosedChannel(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := NewListener(nil, &fakeRunner{}, Options{})
	deliveries := make(chan amqp.Delivery)

	done := make(chan error, 1)
	go func() {
		done <- l.Run(context.Background(), deliveries)
	}()
	close(deliveries)
	assert.ErrorIs(t, <-done, ErrDeliveriesClosed)
}

func TestScriptRunner(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
	dir := t.TempDir()
	script := filepath.Join(dir, "deploy.sh")
	require.NoError(t, os.WriteFile(script, []byte("echo deployed\n"), 0o755))

	output, err := ScriptRunner{Shell: "sh", Script: script, Dir: dir}.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "deployed\n", string(output))

	_, err = ScriptRunner{Shell: "sh", Script: filepath.Join(dir, "missing.sh"), Dir: dir}.Run(context.Background())
	require.Error(t, err)
}
