// Package compiler turns the editable zone collection into the resolution-ready snapshot.
package compiler

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/haukened/rr-zoned/internal/dns/common/rrdata"
	"github.com/haukened/rr-zoned/internal/dns/domain"
	"github.com/haukened/rr-zoned/internal/dns/repos/zonecache"
)

// Warning reports a zone or record left out of the compiled snapshot.
// Record is empty when the whole zone was skipped.
type Warning struct {
	Zone   string
	Record string
	Err    error
}

func (w *Warning) Error() string {
	if w.Record == "" {
		return fmt.Sprintf("zone %s skipped: %v", w.Zone, w.Err)
	}
	return fmt.Sprintf("record %s in zone %s skipped: %v", w.Record, w.Zone, w.Err)
}

func (w *Warning) Unwrap() error {
	return w.Err
}

// Compile builds a snapshot of every zone. Compilation never fails as a whole: a zone whose
// SOA or NS cannot be synthesized is omitted, as is any record that cannot be built, and each
// omission is returned as a *Warning combined with multierr. Use multierr.Errors to walk them.
func Compile(zones []domain.Zone, lookupCacheSize int) (*zonecache.Snapshot, error) {
	var (
		compiled []*zonecache.Zone
		warnings error
	)

	for i := range zones {
		z, err := compileZone(&zones[i])
		warnings = multierr.Append(warnings, err)
		if z != nil {
			compiled = append(compiled, z)
		}
	}

	return zonecache.New(compiled, lookupCacheSize), warnings
}

// compileZone returns nil when the zone itself is unusable.
func compileZone(zone *domain.Zone) (*zonecache.Zone, error) {
	soa, err := rrdata.SOA(zone.Name, zone.Nameserver, zone.Serial)
	if err != nil {
		return nil, &Warning{Zone: zone.Name, Err: err}
	}
	ns, err := rrdata.NS(zone.Name, zone.Nameserver)
	if err != nil {
		return nil, &Warning{Zone: zone.Name, Err: err}
	}

	z := zonecache.NewZone(soa, ns)
	var warnings error
	for _, r := range zone.Records {
		rr, err := rrdata.Build(r.Type, r.Name, zone.Name, r.Value)
		if err != nil {
			warnings = multierr.Append(warnings, &Warning{Zone: zone.Name, Record: r.ID, Err: err})
			continue
		}
		z.Add(rr)
	}
	return z, warnings
}
