package utils

import (
	"strings"

	"github.com/miekg/dns"
	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
)

// CanonicalDNSName returns a DNS name in canonical storage form:
// - Trimmed of surrounding whitespace
// - IDNA (punycode) ASCII form when the name contains Unicode labels
// - Lowercased
// - No trailing dot
func CanonicalDNSName(name string) string {
	name = strings.TrimSpace(name)
	if ascii, err := idna.Lookup.ToASCII(strings.TrimRight(name, ".")); err == nil && ascii != "" {
		name = ascii
	}
	name = strings.ToLower(name)
	// remove all trailing dots
	for strings.HasSuffix(name, ".") {
		name = strings.TrimSuffix(name, ".")
	}
	return name
}

// FQDN returns the canonical name with exactly one trailing dot, the form used by
// compiled zones. The root name "" maps to ".".
func FQDN(name string) string {
	return dns.Fqdn(CanonicalDNSName(name))
}

// IsValidDomainName reports whether name (after canonicalization) is a syntactically valid,
// non-root DNS host name that fits on the wire. Labels may hold letters, digits, '-' and '_';
// a single "*" label is allowed only as the leftmost label.
func IsValidDomainName(name string) bool {
	c := CanonicalDNSName(name)
	if c == "" {
		return false
	}
	if _, ok := dns.IsDomainName(c); !ok || len(dns.Fqdn(c)) > 255 {
		return false
	}
	for i, label := range strings.Split(c, ".") {
		if !validLabel(label, i == 0) {
			return false
		}
	}
	return true
}

func validLabel(label string, leftmost bool) bool {
	if label == "" || len(label) > 63 {
		return false
	}
	if label == "*" {
		return leftmost
	}
	if label[0] == '-' || label[len(label)-1] == '-' {
		return false
	}
	for _, r := range label {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// IsPublicSuffix reports whether name is itself an ICANN-managed public suffix such as
// "com" or "co.uk". Private suffixes and unknown TLDs report false.
func IsPublicSuffix(name string) bool {
	c := CanonicalDNSName(name)
	if c == "" {
		return false
	}
	suffix, icann := publicsuffix.PublicSuffix(c)
	return icann && suffix == c
}
