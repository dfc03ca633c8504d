package rrdata

import (
	"fmt"
	"net"

	"github.com/miekg/dns"

	"github.com/haukened/rr-zoned/internal/dns/domain"
)

var aaaaKind = Kind{
	Type:   domain.RecordTypeAAAA,
	RRType: dns.TypeAAAA,
	TTL:    DefaultTTL,
	Validate: func(value string) error {
		_, err := parseAAAAData(value)
		return err
	},
	Build: func(hdr dns.RR_Header, value string) (dns.RR, error) {
		ip, err := parseAAAAData(value)
		if err != nil {
			return nil, err
		}
		return &dns.AAAA{Hdr: hdr, AAAA: ip}, nil
	},
}

// parseAAAAData parses an IPv6 literal such as "2001:db8::ff00:42:8329".
func parseAAAAData(data string) (net.IP, error) {
	ip := net.ParseIP(data)
	if !isIPv6(ip) {
		return nil, fmt.Errorf("invalid AAAA record IP: %q", data)
	}
	return ip.To16(), nil
}
