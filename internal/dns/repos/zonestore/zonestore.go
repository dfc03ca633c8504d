// Package zonestore is the editable, in-memory zone collection. It is not safe for
// concurrent use; the manager serializes access.
package zonestore

import (
	"fmt"

	"github.com/haukened/rr-zoned/internal/dns/common/utils"
	"github.com/haukened/rr-zoned/internal/dns/domain"
)

// Store owns the zone collection and keeps a record id -> zone name index so records
// reach their zone without scanning.
type Store struct {
	zones      []*domain.Zone
	byName     map[string]*domain.Zone
	recordZone map[string]string
	//         recordID → zone name
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		byName:     make(map[string]*domain.Zone),
		recordZone: make(map[string]string),
	}
}

// Load builds a Store from a persisted collection. Zone names are canonicalized and record
// back-references repaired. Duplicate zone names, record ids or tokens are an error.
func Load(zones []domain.Zone) (*Store, error) {
	s := New()
	for _, z := range zones {
		records := z.Records
		z.Records = nil
		if err := s.AddZone(z); err != nil {
			return nil, err
		}
		name := utils.CanonicalDNSName(z.Name)
		for _, r := range records {
			if err := s.AddRecord(name, r); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

// Zones returns a deep copy of the collection in insertion order.
func (s *Store) Zones() []domain.Zone {
	out := make([]domain.Zone, len(s.zones))
	for i, z := range s.zones {
		out[i] = z.Clone()
	}
	return out
}

// Len returns the number of zones.
func (s *Store) Len() int {
	return len(s.zones)
}

// AddZone appends a zone. The stored name is canonical.
func (s *Store) AddZone(z domain.Zone) error {
	name := utils.CanonicalDNSName(z.Name)
	if _, exists := s.byName[name]; exists {
		return fmt.Errorf("zone %q already present", name)
	}
	c := z.Clone()
	c.Name = name
	c.Nameserver = utils.CanonicalDNSName(z.Nameserver)
	seen := make(map[string]struct{}, len(c.Records))
	tokens := make(map[string]struct{})
	for i := range c.Records {
		id := c.Records[i].ID
		if _, dup := s.recordZone[id]; dup {
			return fmt.Errorf("record %q already present", id)
		}
		if _, dup := seen[id]; dup || id == "" {
			return fmt.Errorf("record id %q is empty or repeated", id)
		}
		seen[id] = struct{}{}
		if token := c.Records[i].Token; token != "" {
			_, repeated := tokens[token]
			if repeated || s.tokenHeld(token) {
				return fmt.Errorf("record %q: token already held by another record", id)
			}
			tokens[token] = struct{}{}
		}
	}
	for i := range c.Records {
		c.Records[i].Zone = name
		s.recordZone[c.Records[i].ID] = name
	}
	s.zones = append(s.zones, &c)
	s.byName[name] = &c
	return nil
}

// RemoveZone deletes a zone and all of its records.
func (s *Store) RemoveZone(name string) (domain.Zone, error) {
	z, err := s.Zone(name)
	if err != nil {
		return domain.Zone{}, err
	}
	for _, r := range z.Records {
		delete(s.recordZone, r.ID)
	}
	delete(s.byName, z.Name)
	for i, candidate := range s.zones {
		if candidate == z {
			s.zones = append(s.zones[:i], s.zones[i+1:]...)
			break
		}
	}
	return *z, nil
}

// Zone finds a zone by name (case-insensitive). The returned pointer is owned by the Store
// and stays valid until the zone is removed.
func (s *Store) Zone(name string) (*domain.Zone, error) {
	z, ok := s.byName[utils.CanonicalDNSName(name)]
	if !ok {
		return nil, domain.ZoneNotFound(name)
	}
	return z, nil
}

// Record finds a record by id across all zones, returning it with its owning zone.
// The record pointer is invalidated by the next record add/remove in that zone.
func (s *Store) Record(id string) (*domain.Record, *domain.Zone, error) {
	zoneName, ok := s.recordZone[id]
	if !ok {
		return nil, nil, domain.RecordNotFound(id)
	}
	z := s.byName[zoneName]
	idx := z.RecordIndex(id)
	if idx < 0 {
		return nil, nil, domain.RecordNotFound(id)
	}
	return &z.Records[idx], z, nil
}

// RecordByToken finds the record holding token across all zones. An empty token never matches.
func (s *Store) RecordByToken(token string) (*domain.Record, *domain.Zone, error) {
	if token != "" {
		for _, z := range s.zones {
			for i := range z.Records {
				if z.Records[i].Token == token {
					return &z.Records[i], z, nil
				}
			}
		}
	}
	return nil, nil, domain.RecordNotFound("")
}

// tokenHeld reports whether any stored record holds token.
func (s *Store) tokenHeld(token string) bool {
	_, _, err := s.RecordByToken(token)
	return err == nil
}

// AddRecord appends r to the named zone and sets its back-reference.
func (s *Store) AddRecord(zoneName string, r domain.Record) error {
	z, err := s.Zone(zoneName)
	if err != nil {
		return err
	}
	if r.ID == "" {
		return fmt.Errorf("record id must not be empty")
	}
	if _, dup := s.recordZone[r.ID]; dup {
		return fmt.Errorf("record %q already present", r.ID)
	}
	if r.Token != "" && s.tokenHeld(r.Token) {
		return fmt.Errorf("record %q: token already held by another record", r.ID)
	}
	r.Zone = z.Name
	z.Records = append(z.Records, r)
	s.recordZone[r.ID] = z.Name
	return nil
}

// RemoveRecord deletes a record by id and returns it with its former zone.
func (s *Store) RemoveRecord(id string) (domain.Record, *domain.Zone, error) {
	rec, z, err := s.Record(id)
	if err != nil {
		return domain.Record{}, nil, err
	}
	removed := *rec
	idx := z.RecordIndex(id)
	z.Records = append(z.Records[:idx], z.Records[idx+1:]...)
	delete(s.recordZone, id)
	return removed, z, nil
}
