package rrdata

import (
	"fmt"
	"net"

	"github.com/miekg/dns"

	"github.com/haukened/rr-zoned/internal/dns/domain"
)

var aKind = Kind{
	Type:   domain.RecordTypeA,
	RRType: dns.TypeA,
	TTL:    DefaultTTL,
	Validate: func(value string) error {
		_, err := parseAData(value)
		return err
	},
	Build: func(hdr dns.RR_Header, value string) (dns.RR, error) {
		ip, err := parseAData(value)
		if err != nil {
			return nil, err
		}
		return &dns.A{Hdr: hdr, A: ip}, nil
	},
}

// parseAData parses an IPv4 literal such as "192.168.0.1".
func parseAData(data string) (net.IP, error) {
	ip := net.ParseIP(data)
	if !isIPv4(ip) {
		return nil, fmt.Errorf("invalid A record IP: %q", data)
	}
	return ip.To4(), nil
}
