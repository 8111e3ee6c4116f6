// ABOUTME: Tests for toast notifiers
// ABOUTME: Uses a fake AMQP publisher so no broker is required
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	mu       sync.Mutex
	exchange string
	msgs     []amqp.Publishing
	err      error
}

func (f *fakePublisher) PublishWithContext(_ context.Context, exchange, _ string, _, _ bool, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exchange = exchange
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msg)
	return nil
}

func (f *fakePublisher) published() []amqp.Publishing {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]amqp.Publishing(nil), f.msgs...)
}

// stalledPublisher blocks every publish until its context ends, like a broker
// that stopped acknowledging.
type stalledPublisher struct {
	started chan struct{}
}

func (s *stalledPublisher) PublishWithContext(ctx context.Context, _, _ string, _, _ bool, _ amqp.Publishing) error {
	select {
	case s.started <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return ctx.Err()
}

// lockedBuffer lets the publisher goroutine log while the test reads.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestAMQPPublishesJSON(t *testing.T) {
	pub := &fakePublisher{}
	n := NewAMQP(pub, DefaultExchange, log.New(io.Discard))
	defer n.Close()

	n.Notify("Moved Acme to Proposal", LevelSuccess)

	require.Eventually(t, func() bool { return len(pub.published()) == 1 }, time.Second, 5*time.Millisecond)
	msgs := pub.published()
	pub.mu.Lock()
	assert.Equal(t, DefaultExchange, pub.exchange)
	pub.mu.Unlock()
	assert.Equal(t, "application/json", msgs[0].ContentType)

	var m Message
	require.NoError(t, json.Unmarshal(msgs[0].Body, &m))
	assert.Equal(t, "Moved Acme to Proposal", m.Message)
	assert.Equal(t, LevelSuccess, m.Level)
	assert.False(t, m.At.IsZero())
}

func TestAMQPSwallowsPublishErrors(t *testing.T) {
	buf := &lockedBuffer{}
	n := NewAMQP(&fakePublisher{err: errors.New("channel closed")}, "ex", log.New(buf))

	assert.NotPanics(t, func() { n.Notify("hello", LevelInfo) })
	assert.Eventually(t, func() bool { return strings.Contains(buf.String(), "failed to publish toast") },
		time.Second, 5*time.Millisecond)
	assert.NoError(t, n.Close())
}

func TestAMQPNotifyDoesNotWaitOnBroker(t *testing.T) {
	pub := &stalledPublisher{started: make(chan struct{}, 1)}
	n := NewAMQP(pub, "ex", log.New(io.Discard))

	start := time.Now()
	for range 10 {
		n.Notify("slow broker", LevelInfo)
	}
	assert.Less(t, time.Since(start), 200*time.Millisecond)

	<-pub.started
	closed := make(chan struct{})
	go func() {
		_ = n.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close did not stop a stalled publish")
	}

	// toasts after Close are dropped without blocking
	n.Notify("late", LevelInfo)
}

func TestAMQPDropsWhenQueueFull(t *testing.T) {
	buf := &lockedBuffer{}
	pub := &stalledPublisher{started: make(chan struct{}, 1)}
	n := newAMQP(pub, "ex", log.New(buf), 1)
	defer n.Close()

	n.Notify("first", LevelInfo)
	<-pub.started
	n.Notify("second", LevelInfo)
	n.Notify("third", LevelInfo)

	assert.Contains(t, buf.String(), "toast queue full")
	assert.Contains(t, buf.String(), "third")
}

func TestMultiAndRecorder(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	Multi{a, nil, b, Discard{}}.Notify("done", LevelInfo)

	assert.Len(t, a.Messages(), 1)
	last, ok := b.Last()
	require.True(t, ok)
	assert.Equal(t, "done", last.Message)

	_, ok = (&Recorder{}).Last()
	assert.False(t, ok)
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	Log{Logger: log.New(&buf)}.Notify("could not save", LevelError)
	assert.Contains(t, buf.String(), "could not save")
}
