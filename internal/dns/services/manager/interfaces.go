package manager

import (
	"github.com/haukened/rr-zoned/internal/dns/domain"
	"github.com/haukened/rr-zoned/internal/dns/repos/zonecache"
)

// Persistence durably loads and saves the whole zone collection.
type Persistence interface {
	LoadAll() ([]domain.Zone, error)
	SaveAll(zones []domain.Zone) error
}

// ResolverProvider is the read side handed to a DNS responder. Every call observes one
// complete published snapshot.
type ResolverProvider interface {
	// Lookup returns the compiled zone whose origin is exactly name.
	Lookup(name string) (*zonecache.Zone, bool)
	// FindZone returns the most specific compiled zone containing qname.
	FindZone(qname string) (*zonecache.Zone, bool)
}

var _ ResolverProvider = (*Manager)(nil)
