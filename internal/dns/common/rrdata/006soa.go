package rrdata

import (
	"fmt"

	"github.com/miekg/dns"

	"github.com/haukened/rr-zoned/internal/dns/common/utils"
)

// SOA timing policy, in seconds.
const (
	SOATTL     uint32 = 3600
	SOARefresh uint32 = 21600   // 6h
	SOARetry   uint32 = 7200    // 2h
	SOAExpire  uint32 = 2160000 // 25d
	SOAMinimum uint32 = 3600    // 1h
)

// HostmasterLabel is prepended to the origin to form the SOA rname.
const HostmasterLabel = "hostmaster"

// SOA synthesizes the apex SOA record for a zone.
func SOA(origin, nameserver string, serial uint32) (*dns.SOA, error) {
	if !utils.IsValidDomainName(origin) {
		return nil, fmt.Errorf("invalid zone name: %q", origin)
	}
	if !utils.IsValidDomainName(nameserver) {
		return nil, fmt.Errorf("invalid nameserver: %q", nameserver)
	}
	o := utils.FQDN(origin)
	return &dns.SOA{
		Hdr:     dns.RR_Header{Name: o, Rrtype: dns.TypeSOA, Class: dns.ClassINET, Ttl: SOATTL},
		Ns:      utils.FQDN(nameserver),
		Mbox:    HostmasterLabel + "." + o,
		Serial:  serial,
		Refresh: SOARefresh,
		Retry:   SOARetry,
		Expire:  SOAExpire,
		Minttl:  SOAMinimum,
	}, nil
}
