package rrdata

import (
	"fmt"
	"strings"

	"github.com/miekg/dns"

	"github.com/haukened/rr-zoned/internal/dns/common/utils"
	"github.com/haukened/rr-zoned/internal/dns/domain"
)

var cnameKind = Kind{
	Type:   domain.RecordTypeCNAME,
	RRType: dns.TypeCNAME,
	TTL:    DefaultTTL,
	Validate: func(value string) error {
		_, err := parseCNAMEData(value)
		return err
	},
	Build: func(hdr dns.RR_Header, value string) (dns.RR, error) {
		target, err := parseCNAMEData(value)
		if err != nil {
			return nil, err
		}
		return &dns.CNAME{Hdr: hdr, Target: target}, nil
	},
}

// parseCNAMEData validates a CNAME target and returns it fully-qualified.
// Targets are always absolute; a missing trailing dot is implied.
func parseCNAMEData(data string) (string, error) {
	if strings.TrimSpace(data) != data || !utils.IsValidDomainName(data) || strings.HasPrefix(data, "*") {
		return "", fmt.Errorf("invalid CNAME target: %q", data)
	}
	return utils.FQDN(data), nil
}
