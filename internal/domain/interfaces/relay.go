package interfaces

import (
	"context"

	domaintypes "pinch/internal/domain/types"
	"pinch/internal/protocol/envelope"
)

// Transport hands envelopes to the relay.
type Transport interface {
	Send(ctx context.Context, env *envelope.Envelope) error
}

// RelayClient talks to the relay's HTTP administration surface.
type RelayClient interface {
	Claim(ctx context.Context, claimCode, adminSecret string) (domaintypes.Address, error)
}
