// Package bolt persists the zone collection in a bbolt database, one key per zone.
package bolt

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bbolt "go.etcd.io/bbolt"
	bberrors "go.etcd.io/bbolt/errors"

	"github.com/haukened/rr-zoned/internal/dns/common/clock"
	"github.com/haukened/rr-zoned/internal/dns/domain"
)

var (
	bucketZones = []byte("zones")
	bucketMeta  = []byte("meta")

	keyVersion = []byte("version")
	keyUpdated = []byte("updated")
)

// Stats captures counts and metadata for the store.
type Stats struct {
	Zones       uint64
	Version     uint64 // number of completed SaveAll calls
	UpdatedUnix int64  // seconds since epoch of the last SaveAll
}

// Store persists zones using bbolt. Each zone (records included) is a JSON value keyed by
// the zone name.
type Store struct {
	db    *bbolt.DB
	clock clock.Clock
}

// New opens (or creates) a Bolt database at path and ensures buckets exist.
// A nil clock defaults to the real clock.
func New(path string, clk clock.Clock) (*Store, error) {
	if clk == nil {
		clk = &clock.RealClock{}
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketZones); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(bucketMeta); err != nil {
			return err
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, clock: clk}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// LoadAll returns every stored zone ordered by name.
func (s *Store) LoadAll() ([]domain.Zone, error) {
	var zones []domain.Zone
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketZones)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var z domain.Zone
			if err := json.Unmarshal(v, &z); err != nil {
				return fmt.Errorf("decode zone %q: %w", k, err)
			}
			zones = append(zones, z)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return zones, nil
}

// SaveAll replaces the stored collection with zones in a single transaction. A failure
// leaves the previous collection intact.
func (s *Store) SaveAll(zones []domain.Zone) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketZones); err != nil && !errors.Is(err, bberrors.ErrBucketNotFound) {
			return err
		}
		b, err := tx.CreateBucket(bucketZones)
		if err != nil {
			return err
		}
		for i := range zones {
			v, err := json.Marshal(&zones[i])
			if err != nil {
				return fmt.Errorf("encode zone %q: %w", zones[i].Name, err)
			}
			if err := b.Put([]byte(zones[i].Name), v); err != nil {
				return err
			}
		}

		meta := tx.Bucket(bucketMeta)
		version := uint64(0)
		if v := meta.Get(keyVersion); len(v) == 8 {
			version = binary.BigEndian.Uint64(v)
		}
		vbuf := make([]byte, 8)
		ubuf := make([]byte, 8)
		binary.BigEndian.PutUint64(vbuf, version+1)
		binary.BigEndian.PutUint64(ubuf, uint64(s.clock.Now().Unix()))
		if err := meta.Put(keyVersion, vbuf); err != nil {
			return err
		}
		return meta.Put(keyUpdated, ubuf)
	})
}

// Stats reports zone count and save metadata.
func (s *Store) Stats() Stats {
	st := Stats{}
	_ = s.db.View(func(tx *bbolt.Tx) error {
		if b := tx.Bucket(bucketZones); b != nil {
			st.Zones = uint64(b.Stats().KeyN)
		}
		if b := tx.Bucket(bucketMeta); b != nil {
			if v := b.Get(keyVersion); len(v) == 8 {
				st.Version = binary.BigEndian.Uint64(v)
			}
			if v := b.Get(keyUpdated); len(v) == 8 {
				st.UpdatedUnix = int64(binary.BigEndian.Uint64(v))
			}
		}
		return nil
	})
	return st
}
