// ABOUTME: RabbitMQ notifier publishing toasts to a fanout exchange
// ABOUTME: Queues toasts for a background publisher so callers never wait on the broker
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	DefaultExchange = "ex.pipeboard.toasts"
	// DefaultQueueSize bounds toasts waiting for the publisher. Extra toasts are dropped.
	DefaultQueueSize = 64
)

// Publisher is the part of *amqp.Channel the notifier uses.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQP publishes each toast as JSON from a single background goroutine.
// Publish errors and overflow are logged and swallowed.
type AMQP struct {
	Exchange string
	Timeout  time.Duration
	Logger   *log.Logger

	pub  Publisher
	conn *amqp.Connection

	queue  chan []byte
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// DialAMQP connects, opens a channel and declares the fanout exchange.
func DialAMQP(url, exchange string, logger *log.Logger) (*AMQP, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "fanout", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	n := NewAMQP(ch, exchange, logger)
	n.conn = conn
	return n, nil
}

// NewAMQP wraps an existing publisher and starts the publishing goroutine.
func NewAMQP(pub Publisher, exchange string, logger *log.Logger) *AMQP {
	return newAMQP(pub, exchange, logger, DefaultQueueSize)
}

func newAMQP(pub Publisher, exchange string, logger *log.Logger, size int) *AMQP {
	if logger == nil {
		logger = log.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	a := &AMQP{
		Exchange: exchange,
		Timeout:  2 * time.Second,
		Logger:   logger,
		pub:      pub,
		queue:    make(chan []byte, size),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go a.run()
	return a
}

// Notify enqueues the toast and returns immediately.
func (a *AMQP) Notify(message string, level Level) {
	body, err := json.Marshal(Message{Message: message, Level: level, At: time.Now().UTC()})
	if err != nil {
		a.Logger.Error("failed to encode toast", "error", err)
		return
	}
	if a.ctx.Err() != nil {
		return
	}
	select {
	case a.queue <- body:
	default:
		a.Logger.Warn("toast queue full, dropping toast", "exchange", a.Exchange, "message", message)
	}
}

func (a *AMQP) run() {
	defer close(a.done)
	for {
		select {
		case <-a.ctx.Done():
			return
		case body := <-a.queue:
			a.publish(body)
		}
	}
}

func (a *AMQP) publish(body []byte) {
	ctx, cancel := context.WithTimeout(a.ctx, a.Timeout)
	defer cancel()

	err := a.pub.PublishWithContext(ctx, a.Exchange, "", false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Transient,
		Timestamp:    time.Now().UTC(),
	})
	if err != nil {
		a.Logger.Warn("failed to publish toast", "exchange", a.Exchange, "error", err)
	}
}

// Close stops the publisher, abandoning queued toasts, and closes the connection.
func (a *AMQP) Close() error {
	a.once.Do(func() {
		a.cancel()
		<-a.done
	})
	if a.conn == nil {
		return nil
	}
	return a.conn.Close()
}
