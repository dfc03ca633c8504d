// Package zonecache holds the compiled, resolution-ready view of all zones.
package zonecache

import (
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/miekg/dns"
)

// Snapshot is an immutable mapping from fully-qualified zone name to compiled Zone.
// A new Snapshot replaces the previous one wholesale after every mutation, so readers
// holding an old Snapshot keep a consistent view.
type Snapshot struct {
	zones map[string]*Zone
	//    zone fqdn → compiled zone
	suffix *lru.Cache[string, string]
	//     qname → zone fqdn ("" = no zone)
}

// New creates a Snapshot from compiled zones. lookupCacheSize bounds the FindZone memo;
// zero or less disables it.
func New(zones []*Zone, lookupCacheSize int) *Snapshot {
	s := &Snapshot{zones: make(map[string]*Zone, len(zones))}
	for _, z := range zones {
		s.zones[z.Origin()] = z
	}
	if lookupCacheSize > 0 {
		// lru.New only fails for a non-positive size
		s.suffix, _ = lru.New[string, string](lookupCacheSize)
	}
	return s
}

// Empty returns a Snapshot with no zones.
func Empty() *Snapshot {
	return New(nil, 0)
}

// Lookup returns the compiled zone whose origin is exactly name.
func (s *Snapshot) Lookup(name string) (*Zone, bool) {
	z, ok := s.zones[dns.Fqdn(strings.ToLower(strings.TrimSpace(name)))]
	return z, ok
}

// FindZone returns the most specific zone that contains qname.
func (s *Snapshot) FindZone(qname string) (*Zone, bool) {
	q := dns.Fqdn(strings.ToLower(strings.TrimSpace(qname)))
	if s.suffix != nil {
		if origin, hit := s.suffix.Get(q); hit {
			z, ok := s.zones[origin]
			return z, ok
		}
	}

	origin := ""
	for off, end := 0, false; !end; off, end = dns.NextLabel(q, off) {
		if _, ok := s.zones[q[off:]]; ok {
			origin = q[off:]
			break
		}
	}
	if s.suffix != nil {
		s.suffix.Add(q, origin)
	}
	z, ok := s.zones[origin]
	return z, ok
}

// Zones returns the origins of all compiled zones, sorted.
func (s *Snapshot) Zones() []string {
	zones := make([]string, 0, len(s.zones))
	for origin := range s.zones {
		zones = append(zones, origin)
	}
	sort.Strings(zones)
	return zones
}

// Len returns the number of compiled zones.
func (s *Snapshot) Len() int {
	return len(s.zones)
}

// Count returns the total number of user records across all zones.
func (s *Snapshot) Count() int {
	count := 0
	for _, z := range s.zones {
		count += z.Len()
	}
	return count
}
