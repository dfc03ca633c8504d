// Package rrdata holds the per-type rules for the record kinds a zone may carry: how a
// value is validated and how it becomes a resolvable miekg/dns resource record.
package rrdata

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/miekg/dns"

	"github.com/haukened/rr-zoned/internal/dns/common/utils"
	"github.com/haukened/rr-zoned/internal/dns/domain"
)

// DefaultTTL is the TTL applied to user records.
const DefaultTTL uint32 = 300

// ApexLabel addresses the zone origin in a record name.
const ApexLabel = "@"

var (
	ErrUnsupportedType = errors.New("unsupported record type")
	ErrOutsideZone     = errors.New("name is outside the zone")
)

// Kind bundles the rules for a single RecordType.
type Kind struct {
	Type     domain.RecordType
	RRType   uint16
	TTL      uint32
	Validate func(value string) error
	Build    func(hdr dns.RR_Header, value string) (dns.RR, error)
}

var kinds = map[domain.RecordType]Kind{
	domain.RecordTypeA:     aKind,
	domain.RecordTypeAAAA:  aaaaKind,
	domain.RecordTypeCNAME: cnameKind,
}

// Lookup returns the rules for t.
func Lookup(t domain.RecordType) (Kind, bool) {
	k, ok := kinds[t]
	return k, ok
}

// ValidateValue checks that value is well-formed for t.
func ValidateValue(t domain.RecordType, value string) error {
	k, ok := Lookup(t)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedType, t)
	}
	return k.Validate(value)
}

// Build constructs the resolvable record for a record named name inside origin.
func Build(t domain.RecordType, name, origin, value string) (dns.RR, error) {
	k, ok := Lookup(t)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, t)
	}
	owner, err := OwnerName(name, origin)
	if err != nil {
		return nil, err
	}
	hdr := dns.RR_Header{Name: owner, Rrtype: k.RRType, Class: dns.ClassINET, Ttl: k.TTL}
	return k.Build(hdr, value)
}

// OwnerName expands a record name relative to origin and returns the fully-qualified owner.
// "@" is the apex; names ending in "." are absolute and must lie inside origin.
func OwnerName(name, origin string) (string, error) {
	originFQDN := utils.FQDN(origin)
	n := strings.TrimSpace(name)

	var owner string
	switch {
	case n == "":
		return "", fmt.Errorf("empty record name")
	case n == ApexLabel:
		owner = originFQDN
	case strings.HasSuffix(n, "."):
		owner = utils.FQDN(n)
		if !dns.IsSubDomain(originFQDN, owner) {
			return "", fmt.Errorf("%w: %s not in %s", ErrOutsideZone, owner, originFQDN)
		}
	default:
		owner = utils.FQDN(n + "." + strings.TrimSuffix(originFQDN, "."))
	}

	if !utils.IsValidDomainName(owner) {
		return "", fmt.Errorf("invalid record name: %q", name)
	}
	return owner, nil
}

// isIPv4 checks whether the provided net.IP address is an IPv4 address.
func isIPv4(ip net.IP) bool {
	return ip != nil && ip.To4() != nil
}

// isIPv6 reports a real IPv6 address; IPv4-mapped forms are rejected.
func isIPv6(ip net.IP) bool {
	return ip != nil && ip.To16() != nil && ip.To4() == nil
}
