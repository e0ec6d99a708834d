// Package delivery holds the message delivery lifecycle as a pure
// transition function.
//
//	queued -> sent -> delivered
//	   |        \---> failed
//	   \--> delivered | failed
//
// delivered and failed are terminal. Inbound messages are recorded directly
// as delivered.
package delivery

import (
	"time"

	"pinch/internal/domain"
)

// Event is the closed set of inputs to the delivery lifecycle.
type Event interface {
	eventName() string
}

// Queue creates an outbound message record.
type Queue struct{}

// Receive records an inbound message, which is delivered on arrival.
type Receive struct{}

// HandedOff: the transport accepted the message.
type HandedOff struct{}

// Confirmed: the recipient acknowledged the message.
type Confirmed struct{}

// Failed: delivery will not happen.
type Failed struct {
	Reason string
}

func (Queue) eventName() string     { return "queue" }
func (Receive) eventName() string   { return "receive" }
func (HandedOff) eventName() string { return "handed_off" }
func (Confirmed) eventName() string { return "confirmed" }
func (Failed) eventName() string    { return "failed" }

// Next computes the state that follows cur on ev.
func Next(cur domain.MessageState, ev Event) (domain.MessageState, error) {
	switch ev.(type) {
	case Queue:
		if cur == domain.MessageNone {
			return domain.MessageQueued, nil
		}
	case Receive:
		if cur == domain.MessageNone {
			return domain.MessageDelivered, nil
		}
	case HandedOff:
		if cur == domain.MessageQueued {
			return domain.MessageSent, nil
		}
	case Confirmed:
		if cur == domain.MessageQueued || cur == domain.MessageSent {
			return domain.MessageDelivered, nil
		}
	case Failed:
		if cur == domain.MessageQueued || cur == domain.MessageSent {
			return domain.MessageFailed, nil
		}
	}
	return cur, &domain.TransitionError{From: cur.String(), Event: ev.eventName()}
}

// Apply computes the record that follows cur on ev. For a new record
// (found false) the caller fills the identifying fields of cur.
func Apply(cur domain.Message, found bool, ev Event, now time.Time) (domain.Message, error) {
	state := cur.State
	if !found {
		state = domain.MessageNone
	}
	next, err := Next(state, ev)
	if err != nil {
		return cur, err
	}
	rec := cur
	if !found {
		rec.CreatedAt = now
	}
	rec.State = next
	rec.FailureReason = ""
	if f, ok := ev.(Failed); ok {
		rec.FailureReason = f.Reason
	}
	rec.UpdatedAt = now
	return rec, nil
}
