package interfaces

import (
	"time"

	domaintypes "pinch/internal/domain/types"
)

// IdentityStore persists your long-term identity keys.
type IdentityStore interface {
	SaveIdentity(passphrase string, id domaintypes.Identity) error
	LoadIdentity(passphrase string) (domaintypes.Identity, error)
}

// ConnectionStore persists connection records keyed by peer address.
//
// UpdateConnection runs fn with the current record (found reports whether
// one exists) and stores the record fn returns. Updates for the same key are
// serialized, and an error from fn leaves the stored record unchanged, so fn
// may perform the side effects of the transition it computes.
type ConnectionStore interface {
	GetConnection(peer domaintypes.Address) (domaintypes.Connection, error)
	ListConnections() ([]domaintypes.Connection, error)
	UpdateConnection(
		peer domaintypes.Address,
		fn func(cur domaintypes.Connection, found bool) (domaintypes.Connection, error),
	) (domaintypes.Connection, error)
}

// MessageStore persists message records keyed by message ID, with the same
// update discipline as ConnectionStore.
type MessageStore interface {
	GetMessage(id domaintypes.MessageID) (domaintypes.Message, error)
	ListMessages() ([]domaintypes.Message, error)
	UpdateMessage(
		id domaintypes.MessageID,
		fn func(cur domaintypes.Message, found bool) (domaintypes.Message, error),
	) (domaintypes.Message, error)
}

// KeyRegistry tracks which agent keys a relay will accept.
type KeyRegistry interface {
	RegisterPending(pubKey string, address domaintypes.Address) (claimCode string, err error)
	Claim(claimCode string) (domaintypes.Address, error)
	IsApproved(pubKey string) (bool, error)
	SweepPending(ttl time.Duration) (int, error)
}
