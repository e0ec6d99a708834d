package domain

import (
	interfaces "pinch/internal/domain/interfaces"
	types "pinch/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	Address         = types.Address
	Fingerprint     = types.Fingerprint
	MessageID       = types.MessageID
	Identity        = types.Identity
	Connection      = types.Connection
	ConnectionState = types.ConnectionState
	Message         = types.Message
	MessageState    = types.MessageState
	Direction       = types.Direction
	TransitionError = types.TransitionError
	X25519Public    = types.X25519Public
	X25519Private   = types.X25519Private
	Ed25519Public   = types.Ed25519Public
	Ed25519Private  = types.Ed25519Private
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	IdentityService   = interfaces.IdentityService
	ConnectionService = interfaces.ConnectionService
	MessageService    = interfaces.MessageService
	IdentityStore     = interfaces.IdentityStore
	ConnectionStore   = interfaces.ConnectionStore
	MessageStore      = interfaces.MessageStore
	KeyRegistry       = interfaces.KeyRegistry
	Transport         = interfaces.Transport
	RelayClient       = interfaces.RelayClient
)

const (
	ConnectionNone            = types.ConnectionNone
	ConnectionPendingInbound  = types.ConnectionPendingInbound
	ConnectionPendingOutbound = types.ConnectionPendingOutbound
	ConnectionActive          = types.ConnectionActive
	ConnectionRevoked         = types.ConnectionRevoked

	MessageNone      = types.MessageNone
	MessageQueued    = types.MessageQueued
	MessageSent      = types.MessageSent
	MessageDelivered = types.MessageDelivered
	MessageFailed    = types.MessageFailed

	Outbound = types.Outbound
	Inbound  = types.Inbound
)

var (
	ErrNotFound          = types.ErrNotFound
	ErrInvalidTransition = types.ErrInvalidTransition
)
