package store

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"pinch/internal/domain"
)

// ErrClaimNotFound is returned by Claim for unknown or swept claim codes.
var ErrClaimNotFound = fmt.Errorf("claim code not found or expired: %w", domain.ErrNotFound)

type pendingEntry struct {
	PubKey       string         `cbor:"1,keyasint"`
	Address      domain.Address `cbor:"2,keyasint"`
	RegisteredAt time.Time      `cbor:"3,keyasint"`
}

// KeyRegistry records which agent keys a relay admits. Unknown keys are
// parked under a claim code until an operator claims them.
type KeyRegistry struct {
	db  *DB
	now func() time.Time
}

// NewKeyRegistry returns a registry backed by db.
func NewKeyRegistry(db *DB) *KeyRegistry {
	return &KeyRegistry{db: db, now: time.Now}
}

// RegisterPending parks pubKey (base64) under a fresh 8-hex-character claim
// code.
func (r *KeyRegistry) RegisterPending(pubKey string, addr domain.Address) (string, error) {
	var code [4]byte
	if _, err := rand.Read(code[:]); err != nil {
		return "", err
	}
	claimCode := hex.EncodeToString(code[:])

	data, err := encMode.Marshal(pendingEntry{PubKey: pubKey, Address: addr, RegisteredAt: r.now()})
	if err != nil {
		return "", err
	}
	err = r.db.update(func(tx *bolt.Tx) error {
		return tx.Bucket(pendingRegistryBucket).Put([]byte(claimCode), data)
	})
	if err != nil {
		return "", err
	}
	return claimCode, nil
}

// Claim approves the registration parked under claimCode and returns its
// address.
func (r *KeyRegistry) Claim(claimCode string) (domain.Address, error) {
	var addr domain.Address
	err := r.db.update(func(tx *bolt.Tx) error {
		pending := tx.Bucket(pendingRegistryBucket)
		raw := pending.Get([]byte(claimCode))
		if raw == nil {
			return ErrClaimNotFound
		}
		var entry pendingEntry
		if err := decMode.Unmarshal(raw, &entry); err != nil {
			return err
		}
		addr = entry.Address
		if err := tx.Bucket(keyRegistryBucket).Put([]byte(entry.PubKey), []byte(entry.Address)); err != nil {
			return err
		}
		return pending.Delete([]byte(claimCode))
	})
	if err != nil {
		return "", err
	}
	return addr, nil
}

// IsApproved reports whether pubKey (base64) has been claimed.
func (r *KeyRegistry) IsApproved(pubKey string) (bool, error) {
	var found bool
	err := r.db.view(func(tx *bolt.Tx) error {
		found = tx.Bucket(keyRegistryBucket).Get([]byte(pubKey)) != nil
		return nil
	})
	return found, err
}

// SweepPending drops pending registrations older than ttl, and any that no
// longer decode. It returns the number removed.
func (r *KeyRegistry) SweepPending(ttl time.Duration) (int, error) {
	cutoff := r.now().Add(-ttl)
	var removed int
	err := r.db.update(func(tx *bolt.Tx) error {
		b := tx.Bucket(pendingRegistryBucket)
		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var entry pendingEntry
			if err := decMode.Unmarshal(v, &entry); err != nil || !entry.RegisteredAt.After(cutoff) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})
	return removed, err
}

var _ domain.KeyRegistry = (*KeyRegistry)(nil)
