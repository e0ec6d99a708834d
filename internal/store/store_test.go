package store_test

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pinch/internal/domain"
	"pinch/internal/store"
)

const peer = domain.Address("pinch:peer@relay.example.com")

func openDB(t *testing.T) (*store.DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pinch.db")
	db, err := store.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, path
}

func TestConnection_NotFound(t *testing.T) {
	db, _ := openDB(t)
	_, err := db.GetConnection(peer)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConnection_UpdateAndReload(t *testing.T) {
	db, path := openDB(t)
	now := time.Date(2026, 5, 6, 7, 8, 9, 123456789, time.UTC)

	created, err := db.UpdateConnection(peer, func(cur domain.Connection, found bool) (domain.Connection, error) {
		assert.False(t, found)
		return domain.Connection{
			PeerAddress:    peer,
			State:          domain.ConnectionPendingInbound,
			PeerSigningKey: domain.Ed25519Public{1, 2, 3},
			Message:        "hello",
			CreatedAt:      now,
			UpdatedAt:      now,
		}, nil
	})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	reopened, err := store.OpenTransient(path)
	require.NoError(t, err)
	got, err := reopened.GetConnection(peer)
	require.NoError(t, err)
	assert.Equal(t, created.State, got.State)
	assert.Equal(t, created.PeerSigningKey, got.PeerSigningKey)
	assert.Equal(t, "hello", got.Message)
	assert.True(t, now.Equal(got.UpdatedAt))
	assert.Equal(t, time.UTC, got.UpdatedAt.Location())

	all, err := reopened.ListConnections()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestConnection_FailedUpdateRollsBack(t *testing.T) {
	db, _ := openDB(t)
	_, err := db.UpdateConnection(peer, func(domain.Connection, bool) (domain.Connection, error) {
		return domain.Connection{PeerAddress: peer, State: domain.ConnectionPendingInbound}, nil
	})
	require.NoError(t, err)

	sendErr := errors.New("relay unreachable")
	_, err = db.UpdateConnection(peer, func(cur domain.Connection, found bool) (domain.Connection, error) {
		require.True(t, found)
		cur.State = domain.ConnectionActive
		return cur, sendErr
	})
	assert.ErrorIs(t, err, sendErr)

	got, err := db.GetConnection(peer)
	require.NoError(t, err)
	assert.Equal(t, domain.ConnectionPendingInbound, got.State)
}

func TestConnection_UpdatesAreSerialized(t *testing.T) {
	db, _ := openDB(t)
	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := db.UpdateConnection(peer, func(cur domain.Connection, found bool) (domain.Connection, error) {
				cur.PeerAddress = peer
				cur.NextSequence++
				return cur, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := db.GetConnection(peer)
	require.NoError(t, err)
	assert.Equal(t, uint64(n), got.NextSequence)
}

func TestMessage_ListOldestFirst(t *testing.T) {
	db, _ := openDB(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []domain.MessageID{"c", "a", "b"} {
		_, err := db.UpdateMessage(id, func(domain.Message, bool) (domain.Message, error) {
			return domain.Message{ID: id, State: domain.MessageQueued, CreatedAt: base.Add(time.Duration(i) * time.Minute)}, nil
		})
		require.NoError(t, err)
	}

	ms, err := db.ListMessages()
	require.NoError(t, err)
	require.Len(t, ms, 3)
	assert.Equal(t, []domain.MessageID{"c", "a", "b"}, []domain.MessageID{ms[0].ID, ms[1].ID, ms[2].ID})

	_, err = db.GetMessage("missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdate_EmptyKey(t *testing.T) {
	db, _ := openDB(t)
	_, err := db.UpdateMessage("", func(m domain.Message, _ bool) (domain.Message, error) { return m, nil })
	assert.Error(t, err)
}

func TestKeyRegistry_ClaimFlow(t *testing.T) {
	db, _ := openDB(t)
	reg := store.NewKeyRegistry(db)

	code, err := reg.RegisterPending("cHVia2V5", peer)
	require.NoError(t, err)
	assert.Regexp(t, `^[0-9a-f]{8}$`, code)

	ok, err := reg.IsApproved("cHVia2V5")
	require.NoError(t, err)
	assert.False(t, ok)

	addr, err := reg.Claim(code)
	require.NoError(t, err)
	assert.Equal(t, peer, addr)

	ok, err = reg.IsApproved("cHVia2V5")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = reg.Claim(code)
	assert.ErrorIs(t, err, store.ErrClaimNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestKeyRegistry_Sweep(t *testing.T) {
	db, _ := openDB(t)
	reg := store.NewKeyRegistry(db)

	code, err := reg.RegisterPending("a2V5", peer)
	require.NoError(t, err)

	n, err := reg.SweepPending(time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = reg.SweepPending(-time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = reg.Claim(code)
	assert.ErrorIs(t, err, store.ErrClaimNotFound)
}
