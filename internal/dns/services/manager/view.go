package manager

import (
	"github.com/haukened/rr-zoned/internal/dns/domain"
	"github.com/haukened/rr-zoned/internal/dns/repos/tokenfilter"
	"github.com/haukened/rr-zoned/internal/dns/repos/zonecache"
)

// recordRef locates a record inside view.zones.
type recordRef struct {
	zone   int
	record int
}

// view is everything readers see, published as one unit. A view is never modified after
// it has been stored in Manager.current.
type view struct {
	zones    []domain.Zone
	byName   map[string]int
	records  map[string]recordRef
	snapshot *zonecache.Snapshot
	tokens   *tokenfilter.Filter
}

// newView indexes zones, which must be a private copy. snapshot and tokens are shared as-is.
func newView(zones []domain.Zone, snapshot *zonecache.Snapshot, tokens *tokenfilter.Filter) *view {
	v := &view{
		zones:    zones,
		byName:   make(map[string]int, len(zones)),
		records:  make(map[string]recordRef),
		snapshot: snapshot,
		tokens:   tokens,
	}
	for i := range zones {
		v.byName[zones[i].Name] = i
		for j := range zones[i].Records {
			v.records[zones[i].Records[j].ID] = recordRef{zone: i, record: j}
		}
	}
	return v
}

func (v *view) zone(name string) (domain.Zone, bool) {
	i, ok := v.byName[name]
	if !ok {
		return domain.Zone{}, false
	}
	return v.zones[i].Clone(), true
}

func (v *view) record(id string) (domain.Record, bool) {
	ref, ok := v.records[id]
	if !ok {
		return domain.Record{}, false
	}
	return v.zones[ref.zone].Records[ref.record], true
}

// tokenSet collects every non-empty token in zones.
func tokenSet(zones []domain.Zone) []string {
	var tokens []string
	for i := range zones {
		for _, r := range zones[i].Records {
			if r.HasToken() {
				tokens = append(tokens, r.Token)
			}
		}
	}
	return tokens
}
