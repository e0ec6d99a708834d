package store

import "pinch/internal/domain"

// GetConnection returns the record for peer or domain.ErrNotFound.
func (d *DB) GetConnection(peer domain.Address) (domain.Connection, error) {
	c, err := getRecord[domain.Connection](d, connectionsBucket, string(peer))
	if err != nil {
		return domain.Connection{}, err
	}
	return normalizeConnection(c), nil
}

// ListConnections returns every connection record ordered by peer address.
func (d *DB) ListConnections() ([]domain.Connection, error) {
	cs, err := listRecords[domain.Connection](d, connectionsBucket)
	if err != nil {
		return nil, err
	}
	for i := range cs {
		cs[i] = normalizeConnection(cs[i])
	}
	return cs, nil
}

// UpdateConnection implements domain.ConnectionStore.
func (d *DB) UpdateConnection(
	peer domain.Address,
	fn func(cur domain.Connection, found bool) (domain.Connection, error),
) (domain.Connection, error) {
	rec, err := updateRecord(d, connectionsBucket, string(peer), func(cur domain.Connection, found bool) (domain.Connection, error) {
		return fn(normalizeConnection(cur), found)
	})
	if err != nil {
		return domain.Connection{}, err
	}
	return normalizeConnection(rec), nil
}

func normalizeConnection(c domain.Connection) domain.Connection {
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return c
}

var _ domain.ConnectionStore = (*DB)(nil)
