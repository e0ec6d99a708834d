package delivery_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pinch/internal/domain"
	"pinch/internal/protocol/delivery"
)

func TestNext_Table(t *testing.T) {
	const (
		none      = domain.MessageNone
		queued    = domain.MessageQueued
		sent      = domain.MessageSent
		delivered = domain.MessageDelivered
		failed    = domain.MessageFailed
	)
	valid := []struct {
		from domain.MessageState
		ev   delivery.Event
		want domain.MessageState
	}{
		{none, delivery.Queue{}, queued},
		{none, delivery.Receive{}, delivered},
		{queued, delivery.HandedOff{}, sent},
		{queued, delivery.Confirmed{}, delivered},
		{sent, delivery.Confirmed{}, delivered},
		{queued, delivery.Failed{Reason: "x"}, failed},
		{sent, delivery.Failed{Reason: "x"}, failed},
	}
	for _, tc := range valid {
		got, err := delivery.Next(tc.from, tc.ev)
		require.NoError(t, err, "%s on %T", tc.from, tc.ev)
		assert.Equal(t, tc.want, got)
	}

	invalid := []struct {
		from domain.MessageState
		ev   delivery.Event
	}{
		{none, delivery.HandedOff{}},
		{none, delivery.Confirmed{}},
		{queued, delivery.Queue{}},
		{sent, delivery.HandedOff{}},
		{sent, delivery.Receive{}},
		{delivered, delivery.Confirmed{}},
		{delivered, delivery.Failed{}},
		{delivered, delivery.HandedOff{}},
		{failed, delivery.Confirmed{}},
		{failed, delivery.Failed{}},
		{failed, delivery.HandedOff{}},
	}
	for _, tc := range invalid {
		got, err := delivery.Next(tc.from, tc.ev)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition, "%s on %T", tc.from, tc.ev)
		assert.Equal(t, tc.from, got)
	}
}

func TestApply_Lifecycle(t *testing.T) {
	t0 := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	msg := domain.Message{ID: "m1", Direction: domain.Outbound, PeerAddress: "pinch:b@r"}

	msg, err := delivery.Apply(msg, false, delivery.Queue{}, t0)
	require.NoError(t, err)
	assert.Equal(t, domain.MessageQueued, msg.State)
	assert.Equal(t, t0, msg.CreatedAt)

	msg, err = delivery.Apply(msg, true, delivery.HandedOff{}, t0.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, domain.MessageSent, msg.State)

	msg, err = delivery.Apply(msg, true, delivery.Failed{Reason: "recipient offline"}, t0.Add(2*time.Second))
	require.NoError(t, err)
	assert.Equal(t, domain.MessageFailed, msg.State)
	assert.Equal(t, "recipient offline", msg.FailureReason)
	assert.Equal(t, t0.Add(2*time.Second), msg.UpdatedAt)
	assert.Equal(t, t0, msg.CreatedAt)

	after, err := delivery.Apply(msg, true, delivery.Confirmed{}, t0.Add(3*time.Second))
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Equal(t, msg, after)
}

func TestApply_ReasonOnlyWhenFailed(t *testing.T) {
	t0 := time.Unix(0, 0).UTC()
	msg, err := delivery.Apply(domain.Message{ID: "m2"}, false, delivery.Queue{}, t0)
	require.NoError(t, err)
	msg, err = delivery.Apply(msg, true, delivery.Confirmed{}, t0)
	require.NoError(t, err)
	assert.Equal(t, domain.MessageDelivered, msg.State)
	assert.Empty(t, msg.FailureReason)
}
