package transcript

import (
	"context"
	"errors"
	"fmt"

	"github.com/IsaacCespedes/BriefingRoom/internal/daily"
)

// ProviderAdapter wraps *daily.Client to satisfy CaptionProvider, mapping
// the client's sentinel errors onto the transcript error taxonomy.
type ProviderAdapter struct {
	c *daily.Client
}

// NewProviderAdapter creates a ProviderAdapter from a *daily.Client.
func NewProviderAdapter(c *daily.Client) *ProviderAdapter {
	return &ProviderAdapter{c: c}
}

func (a *ProviderAdapter) Locate(ctx context.Context, roomName string) (*ProviderHandle, error) {
	entry, err := a.c.Locate(ctx, roomName)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, nil
	}
	return &ProviderHandle{ID: entry.ID, Ready: entry.Ready()}, nil
}

func (a *ProviderAdapter) FetchRaw(ctx context.Context, handle *ProviderHandle) (string, error) {
	raw, err := a.c.FetchVTT(ctx, handle.ID)
	if errors.Is(err, daily.ErrNotFound) {
		return "", fmt.Errorf("%w: %v", ErrNotAvailable, err)
	}
	return raw, err
}
