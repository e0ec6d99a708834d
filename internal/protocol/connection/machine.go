package connection

import (
	"time"

	"pinch/internal/domain"
)

// Event is the closed set of inputs to the connection lifecycle.
type Event interface {
	eventName() string
}

// RequestReceived: a CONNECTION_REQUEST arrived from the peer.
type RequestReceived struct {
	Message   string
	ExpiresAt int64
}

// RequestSent: the local agent asked the peer to connect.
type RequestSent struct {
	Message   string
	ExpiresAt int64
}

// Approve: the local operator accepted a pending inbound request.
type Approve struct{}

// Reject: the local operator declined a pending inbound request. The peer is
// not told.
type Reject struct{}

// ResponseReceived: the peer answered our request.
type ResponseReceived struct {
	Accepted bool
}

// Revoke ends an active connection.
type Revoke struct{}

func (RequestReceived) eventName() string  { return "request_received" }
func (RequestSent) eventName() string      { return "request_sent" }
func (Approve) eventName() string          { return "approve" }
func (Reject) eventName() string           { return "reject" }
func (ResponseReceived) eventName() string { return "response_received" }
func (Revoke) eventName() string           { return "revoke" }

// Effect is an action the caller must perform when committing a transition.
type Effect interface {
	isEffect()
}

// SendResponse tells the caller to send a CONNECTION_RESPONSE to the peer.
type SendResponse struct {
	Accepted bool
}

func (SendResponse) isEffect() {}

// Next computes the state that follows cur on ev.
func Next(cur domain.ConnectionState, ev Event) (domain.ConnectionState, []Effect, error) {
	switch ev := ev.(type) {
	case RequestReceived:
		switch cur {
		case domain.ConnectionNone, domain.ConnectionPendingInbound:
			// A repeated request leaves the pending request in place.
			return domain.ConnectionPendingInbound, nil, nil
		case domain.ConnectionPendingOutbound:
			// Both sides asked. The peer may never have seen our request,
			// so answer it.
			return domain.ConnectionActive, []Effect{SendResponse{Accepted: true}}, nil
		}
	case RequestSent:
		switch cur {
		case domain.ConnectionNone, domain.ConnectionPendingOutbound:
			return domain.ConnectionPendingOutbound, nil, nil
		}
	case Approve:
		if cur == domain.ConnectionPendingInbound {
			return domain.ConnectionActive, []Effect{SendResponse{Accepted: true}}, nil
		}
	case Reject:
		if cur == domain.ConnectionPendingInbound {
			return domain.ConnectionRevoked, nil, nil
		}
	case ResponseReceived:
		switch {
		case cur == domain.ConnectionPendingOutbound && ev.Accepted:
			return domain.ConnectionActive, nil, nil
		case cur == domain.ConnectionPendingOutbound:
			return domain.ConnectionRevoked, nil, nil
		case cur == domain.ConnectionActive && ev.Accepted:
			// The answer to a crossed request.
			return domain.ConnectionActive, nil, nil
		}
	case Revoke:
		// Revoking a pending outbound connection withdraws the request.
		if cur == domain.ConnectionActive || cur == domain.ConnectionPendingOutbound {
			return domain.ConnectionRevoked, nil, nil
		}
	}
	return cur, nil, invalid(cur, ev)
}

// Apply computes the record that follows cur on ev. found reports whether cur
// is a stored record; peer seeds a new record.
//
// Requests carry an expiry: an expired request is refused on arrival and a
// pending inbound request can no longer be approved once it expires.
func Apply(
	cur domain.Connection,
	found bool,
	peer domain.Address,
	ev Event,
	now time.Time,
) (domain.Connection, []Effect, error) {
	state := cur.State
	if !found {
		state = domain.ConnectionNone
	}
	next, effects, err := Next(state, ev)
	if err != nil {
		return cur, nil, err
	}
	switch ev := ev.(type) {
	case RequestReceived:
		if expired(ev.ExpiresAt, now) {
			return cur, nil, expiredError(state, ev)
		}
		if found && state == domain.ConnectionPendingInbound {
			return cur, nil, nil
		}
	case Approve:
		if expired(cur.ExpiresAt, now) {
			return cur, nil, expiredError(state, ev)
		}
	case ResponseReceived:
		if state == next {
			return cur, nil, nil
		}
	}

	rec := cur
	if !found {
		rec = domain.Connection{PeerAddress: peer, CreatedAt: now}
	}
	switch ev := ev.(type) {
	case RequestReceived:
		if next == domain.ConnectionPendingInbound {
			rec.Message, rec.ExpiresAt = ev.Message, ev.ExpiresAt
		}
	case RequestSent:
		rec.Message, rec.ExpiresAt = ev.Message, ev.ExpiresAt
	}
	rec.State = next
	rec.UpdatedAt = now
	return rec, effects, nil
}

func invalid(cur domain.ConnectionState, ev Event) error {
	return &domain.TransitionError{From: cur.String(), Event: ev.eventName()}
}

// expired reports whether a request expiring at expiresAt (Unix ms, zero for
// never) has lapsed at now.
func expired(expiresAt int64, now time.Time) bool {
	return expiresAt != 0 && expiresAt < now.UnixMilli()
}

func expiredError(cur domain.ConnectionState, ev Event) error {
	return &domain.TransitionError{From: cur.String(), Event: ev.eventName(), Reason: "request expired"}
}
