package router

import (
	"context"
	"errors"
	"fmt"

	"gopkg.in/op/go-logging.v1"

	"pinch/internal/domain"
	"pinch/internal/protocol/envelope"
)

// ErrMisrouted is returned for envelopes addressed to another agent.
var ErrMisrouted = errors.New("router: envelope addressed to another agent")

// Router dispatches inbound envelopes.
type Router struct {
	self        domain.Address
	connections domain.ConnectionService
	messages    domain.MessageService
	log         *logging.Logger
}

// New returns a router for envelopes addressed to self.
func New(
	self domain.Address,
	connections domain.ConnectionService,
	messages domain.MessageService,
	log *logging.Logger,
) *Router {
	return &Router{self: self, connections: connections, messages: messages, log: log}
}

// Dispatch decodes raw and applies it. Envelope types that need no local
// action are logged and ignored.
func (r *Router) Dispatch(ctx context.Context, passphrase string, raw []byte) error {
	env, err := envelope.Unmarshal(raw)
	if err != nil {
		r.log.Warningf("dropping undecodable envelope: %v", err)
		return err
	}
	if env.ToAddress != "" && domain.Address(env.ToAddress) != r.self {
		r.log.Warningf("dropping %s envelope for %s", env.Type, env.ToAddress)
		return fmt.Errorf("%w: %s", ErrMisrouted, env.ToAddress)
	}

	switch env.Type {
	case envelope.TypeConnectionRequest:
		err = r.connections.HandleRequest(ctx, passphrase, env)
	case envelope.TypeConnectionResponse:
		err = r.connections.HandleResponse(ctx, env)
	case envelope.TypeHandshake:
		err = r.connections.HandleHandshake(ctx, env)
	case envelope.TypeMessage:
		err = r.messages.HandleMessage(ctx, passphrase, env)
	case envelope.TypeDeliveryConfirm:
		err = r.messages.HandleConfirm(ctx, env)
	case envelope.TypeHeartbeat:
		r.log.Debugf("heartbeat from %s", env.FromAddress)
	default:
		r.log.Infof("ignoring %s envelope from %s", env.Type, env.FromAddress)
	}
	if err != nil {
		r.log.Warningf("%s from %s: %v", env.Type, env.FromAddress, err)
		return fmt.Errorf("%s from %s: %w", env.Type, env.FromAddress, err)
	}
	return nil
}
