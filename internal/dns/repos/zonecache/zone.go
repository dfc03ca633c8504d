package zonecache

import (
	"sort"
	"strings"

	"github.com/miekg/dns"
)

// Zone is the compiled, query-ready form of one zone: the synthesized SOA and NS plus the
// user records indexed by owner name. A Zone must not be modified once it is part of a
// Snapshot; readers receive copies of its records.
type Zone struct {
	origin  string
	soa     *dns.SOA
	ns      *dns.NS
	records map[string][]dns.RR
	//      owner fqdn → records
	count int
}

// NewZone starts a compiled zone for origin (fully-qualified, lowercase).
func NewZone(soa *dns.SOA, ns *dns.NS) *Zone {
	return &Zone{
		origin:  strings.ToLower(soa.Hdr.Name),
		soa:     soa,
		ns:      ns,
		records: make(map[string][]dns.RR),
	}
}

// Add indexes rr under its owner name. Only the compiler calls Add, before publishing.
func (z *Zone) Add(rr dns.RR) {
	owner := strings.ToLower(rr.Header().Name)
	z.records[owner] = append(z.records[owner], rr)
	z.count++
}

// Origin returns the fully-qualified zone name.
func (z *Zone) Origin() string { return z.origin }

// Serial returns the serial carried by the synthesized SOA.
func (z *Zone) Serial() uint32 { return z.soa.Serial }

// SOA returns a copy of the synthesized SOA record.
func (z *Zone) SOA() *dns.SOA { return dns.Copy(z.soa).(*dns.SOA) }

// NS returns a copy of the synthesized NS record.
func (z *Zone) NS() *dns.NS { return dns.Copy(z.ns).(*dns.NS) }

// Len returns the number of user records (SOA and NS excluded).
func (z *Zone) Len() int { return z.count }

// Lookup answers qname/qtype from this zone. A CNAME at the owner answers every other type;
// TypeANY returns everything at the owner. ok is false when the owner name does not exist.
func (z *Zone) Lookup(qname string, qtype uint16) (answers []dns.RR, ok bool) {
	owner := dns.Fqdn(strings.ToLower(qname))
	var candidates []dns.RR
	if owner == z.origin {
		candidates = append(candidates, z.soa, z.ns)
	}
	candidates = append(candidates, z.records[owner]...)
	if len(candidates) == 0 {
		return nil, false
	}

	for _, rr := range candidates {
		t := rr.Header().Rrtype
		if qtype == dns.TypeANY || t == qtype {
			answers = append(answers, dns.Copy(rr))
		}
	}
	if len(answers) == 0 && qtype != dns.TypeCNAME {
		for _, rr := range candidates {
			if rr.Header().Rrtype == dns.TypeCNAME {
				answers = append(answers, dns.Copy(rr))
			}
		}
	}
	return answers, true
}

// Records returns copies of every record in the zone, SOA and NS first, then user records
// sorted by owner name and type.
func (z *Zone) Records() []dns.RR {
	out := make([]dns.RR, 0, z.count+2)
	out = append(out, dns.Copy(z.soa), dns.Copy(z.ns))

	owners := make([]string, 0, len(z.records))
	for owner := range z.records {
		owners = append(owners, owner)
	}
	sort.Strings(owners)
	for _, owner := range owners {
		rrs := append([]dns.RR(nil), z.records[owner]...)
		sort.SliceStable(rrs, func(i, j int) bool {
			return rrs[i].Header().Rrtype < rrs[j].Header().Rrtype
		})
		for _, rr := range rrs {
			out = append(out, dns.Copy(rr))
		}
	}
	return out
}
