package notify

import (
	"context"
	"fmt"
	"log"

	"campus/internal/queue"
)

// NewGateway returns the FCM gateway when backend is "fcm" and the log gateway otherwise.
func NewGateway(ctx context.Context, backend, credentialsFile string) (Gateway, error) {
	if backend != "fcm" {
		return LogGateway{}, nil
	}
	return NewFCMGateway(ctx, credentialsFile)
}

// Handle delivers one queued message. Messages of other types are skipped.
func (f *Fanout) Handle(ctx context.Context, msg queue.Message) error {
	if msg.Type != MessageType {
		log.Printf("skipping message of type %q", msg.Type)
		return nil
	}
	n, err := Decode(msg)
	if err != nil {
		return err
	}
	log.Printf("processing notification %q", n.Title)
	_, err = f.Run(ctx, n)
	return err
}

// Serve consumes q until ctx is done. Failed messages are passed to onErr and dropped.
func (f *Fanout) Serve(ctx context.Context, q queue.Queue, onErr func(queue.Message, error)) error {
	messages, err := q.Consume(ctx)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	for msg := range messages {
		if err := f.Handle(ctx, msg); err != nil && onErr != nil {
			onErr(msg, err)
		}
	}
	return nil
}
