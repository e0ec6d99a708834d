package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	bolt "go.etcd.io/bbolt"

	"pinch/internal/domain"
)

var (
	connectionsBucket     = []byte("connections")
	messagesBucket        = []byte("messages")
	pendingRegistryBucket = []byte("pending_registry")
	keyRegistryBucket     = []byte("key_registry")

	allBuckets = [][]byte{connectionsBucket, messagesBucket, pendingRegistryBucket, keyRegistryBucket}
)

const (
	dbFileMode = 0o600
	// lockTimeout bounds the wait for another process holding the file.
	lockTimeout = 5 * time.Second
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	var err error
	if encMode, err = opts.EncMode(); err != nil {
		panic(err)
	}
	if decMode, err = (cbor.DecOptions{}).DecMode(); err != nil {
		panic(err)
	}
}

// DB is the bbolt database holding connection, message and key registry
// records, encoded as CBOR.
//
// A DB from Open keeps the file open and locked until Close. A DB from
// OpenTransient opens the file for each operation, so short-lived commands
// can share it with a long-running listener.
type DB struct {
	path string
	db   *bolt.DB
}

// Open opens (creating if needed) the database at path and keeps it open.
func Open(path string) (*DB, error) {
	db, err := openBolt(path)
	if err != nil {
		return nil, err
	}
	return &DB{path: path, db: db}, nil
}

// OpenTransient returns a DB that opens path for the duration of each
// operation.
func OpenTransient(path string) (*DB, error) {
	db, err := openBolt(path)
	if err != nil {
		return nil, err
	}
	if err := db.Close(); err != nil {
		return nil, err
	}
	return &DB{path: path}, nil
}

// Close releases the database file.
func (d *DB) Close() error {
	if d.db == nil {
		return nil
	}
	err := d.db.Close()
	d.db = nil
	return err
}

func openBolt(path string) (*bolt.DB, error) {
	db, err := bolt.Open(path, dbFileMode, &bolt.Options{Timeout: lockTimeout})
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: create buckets: %w", err)
	}
	return db, nil
}

func (d *DB) with(fn func(db *bolt.DB) error) error {
	if d.db != nil {
		return fn(d.db)
	}
	db, err := openBolt(d.path)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db)
}

func (d *DB) view(fn func(tx *bolt.Tx) error) error {
	return d.with(func(db *bolt.DB) error { return db.View(fn) })
}

func (d *DB) update(fn func(tx *bolt.Tx) error) error {
	return d.with(func(db *bolt.DB) error { return db.Update(fn) })
}

var errEmptyKey = errors.New("store: empty key")

func getRecord[T any](d *DB, bucket []byte, key string) (T, error) {
	var out T
	err := d.view(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucket).Get([]byte(key))
		if raw == nil {
			return domain.ErrNotFound
		}
		return decMode.Unmarshal(raw, &out)
	})
	return out, err
}

func listRecords[T any](d *DB, bucket []byte) ([]T, error) {
	var out []T
	err := d.view(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).ForEach(func(k, v []byte) error {
			var rec T
			if err := decMode.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("store: decode %s/%s: %w", bucket, k, err)
			}
			out = append(out, rec)
			return nil
		})
	})
	return out, err
}

// updateRecord runs fn on the record at key inside a single write
// transaction. bbolt admits one writer at a time, which serializes updates.
// An error from fn aborts the transaction and is returned unwrapped.
func updateRecord[T any](
	d *DB,
	bucket []byte,
	key string,
	fn func(cur T, found bool) (T, error),
) (T, error) {
	var out T
	if key == "" {
		return out, errEmptyKey
	}
	err := d.update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		var cur T
		raw := b.Get([]byte(key))
		found := raw != nil
		if found {
			if err := decMode.Unmarshal(raw, &cur); err != nil {
				return fmt.Errorf("store: decode %s/%s: %w", bucket, key, err)
			}
		}
		next, err := fn(cur, found)
		if err != nil {
			return err
		}
		enc, err := encMode.Marshal(next)
		if err != nil {
			return fmt.Errorf("store: encode %s/%s: %w", bucket, key, err)
		}
		if err := b.Put([]byte(key), enc); err != nil {
			return err
		}
		// Hand back what a later read will see.
		return decMode.Unmarshal(enc, &out)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
