// ABOUTME: Notification collaborator for user-visible toasts
// ABOUTME: Fire-and-forget Notifier with log, fan-out and recording implementations
package notify

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notifier delivers a toast. Callers never wait on or branch on delivery.
type Notifier interface {
	Notify(message string, level Level)
}

// Message is the wire shape of a toast.
type Message struct {
	Message string    `json:"message"`
	Level   Level     `json:"level"`
	At      time.Time `json:"at"`
}

// Log writes toasts to a structured logger.
type Log struct {
	Logger *log.Logger
}

func (l Log) Notify(message string, level Level) {
	logger := l.Logger
	if logger == nil {
		logger = log.Default()
	}
	switch level {
	case LevelError:
		logger.Error(message, "toast", level)
	case LevelWarning:
		logger.Warn(message, "toast", level)
	default:
		logger.Info(message, "toast", level)
	}
}

// Multi fans a toast out to every notifier in order.
type Multi []Notifier

func (m Multi) Notify(message string, level Level) {
	for _, n := range m {
		if n != nil {
			n.Notify(message, level)
		}
	}
}

// Discard drops every toast.
type Discard struct{}

func (Discard) Notify(string, Level) {}

// Recorder keeps toasts in memory. Used by tests and the TUI status line.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

func (r *Recorder) Notify(message string, level Level) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Message{Message: message, Level: level, At: time.Now().UTC()})
}

func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

// Last returns the most recent toast, if any.
func (r *Recorder) Last() (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		return Message{}, false
	}
	return r.messages[len(r.messages)-1], true
}
