package notify

import (
	"context"
	"strings"

	"campus/internal/validation"
)

// DeviceInput registers a push destination.
type DeviceInput struct {
	Token    string `json:"token" validate:"required,notblank"`
	Platform string `json:"platform" validate:"omitempty,oneof=android ios web"`
}

// Devices manages the caller's device tokens.
type Devices struct {
	store TokenStore
}

func NewDevices(store TokenStore) *Devices {
	return &Devices{store: store}
}

// Register upserts the token for userID. A token already held by another account moves to userID.
func (d *Devices) Register(ctx context.Context, userID int64, in DeviceInput) (*DeviceToken, error) {
	in.Token = strings.TrimSpace(in.Token)
	in.Platform = strings.ToLower(strings.TrimSpace(in.Platform))
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	return d.store.Upsert(ctx, userID, in.Token, in.Platform)
}

// Unregister removes the caller's token.
func (d *Devices) Unregister(ctx context.Context, userID int64, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return validation.NewError("token", "This field is required.")
	}
	return d.store.Delete(ctx, userID, token)
}
