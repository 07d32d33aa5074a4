package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"campus/internal/queue"
)

// Dispatcher hands notifications to the worker through the queue.
type Dispatcher struct {
	q queue.Queue
}

func NewDispatcher(q queue.Queue) *Dispatcher {
	return &Dispatcher{q: q}
}

// Dispatch publishes n. Delivery happens in the worker.
func (d *Dispatcher) Dispatch(ctx context.Context, n Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	if err := d.q.Publish(ctx, queue.Message{Type: MessageType, Body: body}); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

// Decode parses a queued notification.
func Decode(msg queue.Message) (Notification, error) {
	if msg.Type != MessageType {
		return Notification{}, fmt.Errorf("unexpected message type %q", msg.Type)
	}
	var n Notification
	if err := json.Unmarshal(msg.Body, &n); err != nil {
		return Notification{}, fmt.Errorf("decode notification: %w", err)
	}
	return n, nil
}
