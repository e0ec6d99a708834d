package interfaces

import (
	"context"

	domaintypes "pinch/internal/domain/types"
	"pinch/internal/protocol/envelope"
)

// IdentityService creates, retrieves, and inspects your identity keys.
type IdentityService interface {
	GenerateIdentity(passphrase, relayHost string) (
		domaintypes.Identity,
		domaintypes.Fingerprint,
		error,
	)
	LoadIdentity(passphrase string) (domaintypes.Identity, error)
	FingerprintIdentity(passphrase string) (domaintypes.Fingerprint, error)
}

// ConnectionService drives the connection lifecycle with peers.
type ConnectionService interface {
	Request(ctx context.Context, passphrase string, to domaintypes.Address, message string) (domaintypes.Connection, error)
	Approve(ctx context.Context, passphrase string, peer domaintypes.Address) (domaintypes.Connection, error)
	Reject(ctx context.Context, peer domaintypes.Address) (domaintypes.Connection, error)
	Revoke(ctx context.Context, peer domaintypes.Address) (domaintypes.Connection, error)
	Get(peer domaintypes.Address) (domaintypes.Connection, error)
	List() ([]domaintypes.Connection, error)

	HandleRequest(ctx context.Context, passphrase string, env *envelope.Envelope) error
	HandleResponse(ctx context.Context, env *envelope.Envelope) error
	HandleHandshake(ctx context.Context, env *envelope.Envelope) error
}

// MessageService encrypts, sends and tracks delivery of messages.
type MessageService interface {
	Send(
		ctx context.Context,
		passphrase string,
		to domaintypes.Address,
		content []byte,
		contentType string,
	) (domaintypes.Message, error)
	Get(id domaintypes.MessageID) (domaintypes.Message, error)
	List() ([]domaintypes.Message, error)

	HandleMessage(ctx context.Context, passphrase string, env *envelope.Envelope) error
	HandleConfirm(ctx context.Context, env *envelope.Envelope) error
}
