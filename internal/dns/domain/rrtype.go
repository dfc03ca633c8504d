package domain

import (
	"fmt"
	"strings"
)

// RecordType is the closed set of record kinds a zone may hold.
type RecordType string

const (
	RecordTypeA     RecordType = "A"     // IPv4 address
	RecordTypeAAAA  RecordType = "AAAA"  // IPv6 address
	RecordTypeCNAME RecordType = "CNAME" // Canonical name
)

// RecordTypes lists every supported RecordType in a stable order.
var RecordTypes = []RecordType{RecordTypeA, RecordTypeAAAA, RecordTypeCNAME}

// IsValid returns true if the RecordType is one of the supported types.
func (t RecordType) IsValid() bool {
	switch t {
	case RecordTypeA, RecordTypeAAAA, RecordTypeCNAME:
		return true
	default:
		return false
	}
}

func (t RecordType) String() string {
	if t.IsValid() {
		return string(t)
	}
	return fmt.Sprintf("UNKNOWN(%s)", string(t))
}

// ParseRecordType converts a record type string (any case) to its RecordType.
func ParseRecordType(s string) (RecordType, bool) {
	t := RecordType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", false
	}
	return t, true
}
