package store

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/seili-tech/picostation/internal/telemetry"
)

// Store persists readings in a bbolt database, one bucket per station,
// keyed by fixed-width nanosecond timestamps so byte order is
// chronological order.
type Store struct {
	db *bolt.DB
}

// keyLayout pads fractional seconds to nine digits; RFC3339Nano trims
// trailing zeros, which would break lexicographic ordering.
const keyLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Open opens (or creates) the database at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func keyAt(t time.Time) []byte {
	return []byte(t.UTC().Format(keyLayout))
}

func keyFor(r telemetry.Reading) []byte {
	return keyAt(r.Time)
}

// Put appends one reading to its station's bucket.
func (s *Store) Put(r telemetry.Reading) error {
	if r.Station == "" {
		return fmt.Errorf("reading has no station id")
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal reading: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(r.Station))
		if err != nil {
			return fmt.Errorf("bucket %s: %w", r.Station, err)
		}
		return b.Put(keyFor(r), payload)
	})
}

// Since returns the station's readings at or after the cutoff, oldest-first.
func (s *Store) Since(station string, cutoff time.Time) ([]telemetry.Reading, error) {
	var out []telemetry.Reading
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(station))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.Seek(keyAt(cutoff)); k != nil; k, v = c.Next() {
			var r telemetry.Reading
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("decode reading %s: %w", k, err)
			}
			out = append(out, r)
		}
		return nil
	})
	return out, err
}

// Count returns how many readings the station bucket holds.
func (s *Store) Count(station string) (int, error) {
	n := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(station))
		if b == nil {
			return nil
		}
		n = b.Stats().KeyN
		return nil
	})
	return n, err
}

// Prune deletes readings older than the cutoff, returning how many went.
func (s *Store) Prune(station string, cutoff time.Time) (int, error) {
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(station))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		limit := keyAt(cutoff)
		for k, _ := c.First(); k != nil && string(k) < string(limit); k, _ = c.Next() {
			if err := c.Delete(); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	return removed, err
}
