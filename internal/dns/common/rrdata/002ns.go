package rrdata

import (
	"fmt"

	"github.com/miekg/dns"

	"github.com/haukened/rr-zoned/internal/dns/common/utils"
)

// NSTTL is the TTL of the synthesized apex NS record.
const NSTTL uint32 = 300

// NS synthesizes the apex NS record pointing at nameserver.
func NS(origin, nameserver string) (*dns.NS, error) {
	if !utils.IsValidDomainName(origin) {
		return nil, fmt.Errorf("invalid zone name: %q", origin)
	}
	if !utils.IsValidDomainName(nameserver) {
		return nil, fmt.Errorf("invalid nameserver: %q", nameserver)
	}
	return &dns.NS{
		Hdr: dns.RR_Header{Name: utils.FQDN(origin), Rrtype: dns.TypeNS, Class: dns.ClassINET, Ttl: NSTTL},
		Ns:  utils.FQDN(nameserver),
	}, nil
}
