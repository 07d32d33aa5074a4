package notify

import (
	"context"
	"errors"
	"fmt"
	"log"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// ErrUnregistered marks a token the push service no longer accepts.
var ErrUnregistered = errors.New("device token unregistered")

// Gateway sends one message to one device token.
type Gateway interface {
	Send(ctx context.Context, token string, n Notification) error
}

// FCMGateway delivers through Firebase Cloud Messaging.
type FCMGateway struct {
	client *messaging.Client
}

// NewFCMGateway initialises the Firebase app from a service account file.
func NewFCMGateway(ctx context.Context, credentialsFile string) (*FCMGateway, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase messaging: %w", err)
	}
	return &FCMGateway{client: client}, nil
}

func (g *FCMGateway) Send(ctx context.Context, token string, n Notification) error {
	_, err := g.client.Send(ctx, &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: n.Title,
			Body:  n.Body,
		},
		Data: n.Data,
	})
	if err != nil && messaging.IsUnregistered(err) {
		return fmt.Errorf("%w: %v", ErrUnregistered, err)
	}
	return err
}

// LogGateway only logs what would be sent. Used in development.
type LogGateway struct{}

func (LogGateway) Send(_ context.Context, token string, n Notification) error {
	log.Printf("push to %s: %q %q %v", shorten(token), n.Title, n.Body, n.Data)
	return nil
}

func shorten(token string) string {
	if len(token) <= 12 {
		return token
	}
	return token[:12] + "..."
}
