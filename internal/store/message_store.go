package store

import (
	"sort"

	"pinch/internal/domain"
)

// GetMessage returns the record for id or domain.ErrNotFound.
func (d *DB) GetMessage(id domain.MessageID) (domain.Message, error) {
	m, err := getRecord[domain.Message](d, messagesBucket, string(id))
	if err != nil {
		return domain.Message{}, err
	}
	return normalizeMessage(m), nil
}

// ListMessages returns every message record, oldest first.
func (d *DB) ListMessages() ([]domain.Message, error) {
	ms, err := listRecords[domain.Message](d, messagesBucket)
	if err != nil {
		return nil, err
	}
	for i := range ms {
		ms[i] = normalizeMessage(ms[i])
	}
	sort.SliceStable(ms, func(i, j int) bool { return ms[i].CreatedAt.Before(ms[j].CreatedAt) })
	return ms, nil
}

// UpdateMessage implements domain.MessageStore.
func (d *DB) UpdateMessage(
	id domain.MessageID,
	fn func(cur domain.Message, found bool) (domain.Message, error),
) (domain.Message, error) {
	rec, err := updateRecord(d, messagesBucket, string(id), func(cur domain.Message, found bool) (domain.Message, error) {
		return fn(normalizeMessage(cur), found)
	})
	if err != nil {
		return domain.Message{}, err
	}
	return normalizeMessage(rec), nil
}

func normalizeMessage(m domain.Message) domain.Message {
	m.CreatedAt = m.CreatedAt.UTC()
	m.UpdatedAt = m.UpdatedAt.UTC()
	return m
}

var _ domain.MessageStore = (*DB)(nil)
