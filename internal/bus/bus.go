package bus

// #region imports
import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
)

// #endregion

// #region publisher

// Publisher is the narrow boundary to the inter-process signal bus. The
// transport itself (a pub/sub broker) lives outside this core; daemons
// receive an implementation at construction time.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}

// #endregion publisher

// #region log-publisher

// LogPublisher is the default implementation: it writes signals to the
// process log. Useful for single-host deployments and as the fallback
// when no broker is wired in.
type LogPublisher struct{}

// Publish logs the signal as one line of JSON.
func (LogPublisher) Publish(_ context.Context, topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal signal %s: %w", topic, err)
	}
	log.Printf("[BUS] %s %s", topic, data)
	return nil
}

// #endregion log-publisher

// #region capture

// Event is one captured signal.
type Event struct {
	Topic   string
	Payload any
}

// Capture records published signals in memory. Injected in tests the way
// the codec client accepts an injected service implementation.
type Capture struct {
	mu     sync.Mutex
	events []Event
}

// Publish records the signal.
func (c *Capture) Publish(_ context.Context, topic string, payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, Event{Topic: topic, Payload: payload})
	return nil
}

// Events returns a copy of everything captured so far.
func (c *Capture) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...)
}

// #endregion capture
