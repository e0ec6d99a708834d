package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"pinch/internal/domain"
	"pinch/internal/util/memzero"
)

const idFilename = "identity.cbor.enc"

// ErrNoIdentity is returned by LoadIdentity before an identity is created.
var ErrNoIdentity = errors.New("no identity; run init first")

// IdentityFileStore persists the local identity, sealed under a passphrase,
// in a single file.
type IdentityFileStore struct {
	dir string
	mu  sync.Mutex

	// scrypt cost parameters; tests lower them.
	n, r, p int
}

// NewIdentityFileStore returns an IdentityFileStore rooted at dir.
func NewIdentityFileStore(dir string) *IdentityFileStore {
	n, r, p := scryptParamsDefault()
	return &IdentityFileStore{dir: dir, n: n, r: r, p: p}
}

// Exists reports whether an identity file is present.
func (s *IdentityFileStore) Exists() bool {
	_, err := os.Stat(filepath.Join(s.dir, idFilename))
	return err == nil
}

// SaveIdentity seals and atomically writes the identity.
func (s *IdentityFileStore) SaveIdentity(passphrase string, id domain.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := encMode.Marshal(id)
	if err != nil {
		return err
	}
	defer memzero.Zero(raw)

	sealed, err := sealWithPassphrase(passphrase, raw, s.n, s.r, s.p)
	if err != nil {
		return err
	}
	return s.replace(sealed)
}

// LoadIdentity reads and unseals the identity.
func (s *IdentityFileStore) LoadIdentity(passphrase string) (domain.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(filepath.Join(s.dir, idFilename))
	if errors.Is(err, fs.ErrNotExist) {
		return domain.Identity{}, ErrNoIdentity
	}
	if err != nil {
		return domain.Identity{}, fmt.Errorf("store: read identity: %w", err)
	}
	pt, err := openWithPassphrase(passphrase, b)
	if err != nil {
		return domain.Identity{}, err
	}
	defer memzero.Zero(pt)

	var id domain.Identity
	if err := decMode.Unmarshal(pt, &id); err != nil {
		return domain.Identity{}, fmt.Errorf("store: decode identity: %w", err)
	}
	return id, nil
}

// replace swaps in a new identity file. The sealed bytes reach disk under a
// temporary name first, so a crash leaves either the old identity or the new
// one, never a torn file.
func (s *IdentityFileStore) replace(sealed []byte) (err error) {
	tmp, err := os.CreateTemp(s.dir, idFilename+".*")
	if err != nil {
		return fmt.Errorf("store: write identity: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
			err = fmt.Errorf("store: write identity: %w", err)
		}
	}()

	if err = tmp.Chmod(0o600); err != nil {
		return err
	}
	if _, err = tmp.Write(sealed); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Rename(tmp.Name(), filepath.Join(s.dir, idFilename)); err != nil {
		return err
	}
	return syncDir(s.dir)
}

// syncDir flushes the rename to disk.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	if err := d.Sync(); err != nil && !errors.Is(err, os.ErrInvalid) {
		return err
	}
	return nil
}

// Compile-time assertion that IdentityFileStore implements domain.IdentityStore.
var _ domain.IdentityStore = (*IdentityFileStore)(nil)
