// Package validator checks zone and record mutations against the current zone collection.
// All checks are pure: inputs are never modified and failures are *domain.ValidationError.
package validator

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	playground "github.com/go-playground/validator/v10"
	"github.com/miekg/dns"

	"github.com/haukened/rr-zoned/internal/dns/common/rrdata"
	"github.com/haukened/rr-zoned/internal/dns/common/utils"
	"github.com/haukened/rr-zoned/internal/dns/domain"
)

// structValidator is shared; *playground.Validate is safe for concurrent use.
var structValidator = sync.OnceValue(func() *playground.Validate {
	v := playground.New(playground.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	// registration only fails on an empty tag or nil func
	_ = v.RegisterValidation("dns_name", func(fl playground.FieldLevel) bool {
		return utils.IsValidDomainName(fl.Field().String())
	})
	return v
})

// checkStruct runs the struct tag rules and converts the first failure to a ValidationError.
func checkStruct(s any) error {
	err := structValidator().Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs playground.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return domain.NewValidationError(fe.Field(), "failed %q check", fe.Tag())
	}
	return &domain.ValidationError{Reason: err.Error()}
}

// ValidateZone fails if the draft's name or nameserver is empty or malformed, if the name is
// an ICANN public suffix, or if a zone with the same name (case-insensitive) already exists.
func ValidateZone(candidate domain.ZoneDraft, existing []domain.Zone) error {
	if err := checkStruct(candidate); err != nil {
		return err
	}
	name := utils.CanonicalDNSName(candidate.Name)
	if utils.IsPublicSuffix(name) {
		return domain.NewValidationError("name", "%q is a public suffix", name)
	}
	for _, z := range existing {
		if utils.CanonicalDNSName(z.Name) == name {
			return domain.NewValidationError("name", "zone %q already exists", name)
		}
	}
	return nil
}

// ValidateRecordCreate checks a new record against its owning zone and the whole collection.
func ValidateRecordCreate(candidate domain.RecordDraft, zone domain.Zone, all []domain.Zone) error {
	if err := checkStruct(candidate); err != nil {
		return err
	}
	rt, ok := domain.ParseRecordType(candidate.Type)
	if !ok {
		return domain.NewValidationError("type", "unsupported record type %q", candidate.Type)
	}
	if err := ValidateRecordValue(rt, candidate.Value); err != nil {
		return err
	}
	owner, err := rrdata.OwnerName(candidate.Name, zone.Name)
	if err != nil {
		return domain.NewValidationError("name", "%v", err)
	}
	if rt == domain.RecordTypeCNAME && owner == utils.FQDN(zone.Name) {
		return domain.NewValidationError("name", "CNAME not allowed at the zone apex")
	}
	if err := checkOwnerConflicts(rt, owner, candidate.Value, zone, ""); err != nil {
		return err
	}
	if candidate.Token != "" && tokenInUse(candidate.Token, "", all) {
		return domain.NewValidationError("token", "token already in use")
	}
	return nil
}

// ValidateRecordUpdate checks an update against the record's immutable type, the other
// records at its owner name and the tokens held by every other record.
func ValidateRecordUpdate(candidate domain.RecordUpdate, existing domain.Record, all []domain.Zone) error {
	if err := checkStruct(candidate); err != nil {
		return err
	}
	if err := ValidateRecordValue(existing.Type, candidate.Value); err != nil {
		return err
	}
	if err := ValidateValueChange(existing, candidate.Value, all); err != nil {
		return err
	}
	if candidate.Token != "" && tokenInUse(candidate.Token, existing.ID, all) {
		return domain.NewValidationError("token", "token already in use")
	}
	return nil
}

// ValidateValueChange fails if giving existing the new value would duplicate another record
// of the same type at the same owner. An unchanged value always passes.
func ValidateValueChange(existing domain.Record, value string, all []domain.Zone) error {
	if value == existing.Value {
		return nil
	}
	zone, ok := owningZone(existing.ID, all)
	if !ok {
		return nil
	}
	owner, err := rrdata.OwnerName(existing.Name, zone.Name)
	if err != nil {
		return domain.NewValidationError("name", "%v", err)
	}
	return checkOwnerConflicts(existing.Type, owner, value, zone, existing.ID)
}

// ValidateRecordValue fails if value is not well-formed for t.
func ValidateRecordValue(t domain.RecordType, value string) error {
	if !t.IsValid() {
		return domain.NewValidationError("type", "unsupported record type %q", string(t))
	}
	if err := rrdata.ValidateValue(t, value); err != nil {
		return domain.NewValidationError("value", "%v", err)
	}
	return nil
}

// checkOwnerConflicts enforces CNAME exclusivity at an owner name and rejects exact duplicates.
// The record with id exceptID is not compared against itself.
func checkOwnerConflicts(rt domain.RecordType, owner, value string, zone domain.Zone, exceptID string) error {
	var candidate dns.RR
	for _, r := range zone.Records {
		if exceptID != "" && r.ID == exceptID {
			continue
		}
		existingOwner, err := rrdata.OwnerName(r.Name, zone.Name)
		if err != nil || existingOwner != owner {
			continue
		}
		if rt == domain.RecordTypeCNAME || r.Type == domain.RecordTypeCNAME {
			return domain.NewValidationError("name", "CNAME at %s must be the only record at that name", owner)
		}
		if r.Type != rt {
			continue
		}
		if candidate == nil {
			rr, err := rrdata.Build(rt, owner, zone.Name, value)
			if err != nil {
				return domain.NewValidationError("value", "%v", err)
			}
			candidate = rr
		}
		existing, err := rrdata.Build(r.Type, owner, zone.Name, r.Value)
		if err == nil && dns.IsDuplicate(candidate, existing) {
			return domain.NewValidationError("value", "duplicate %s record at %s", rt, owner)
		}
	}
	return nil
}

// owningZone finds the zone holding the record with the given id.
func owningZone(id string, all []domain.Zone) (domain.Zone, bool) {
	for _, z := range all {
		if z.RecordIndex(id) >= 0 {
			return z, true
		}
	}
	return domain.Zone{}, false
}

// tokenInUse reports whether any record other than exceptID holds token.
func tokenInUse(token, exceptID string, all []domain.Zone) bool {
	for _, z := range all {
		for _, r := range z.Records {
			if r.Token == token && r.ID != exceptID {
				return true
			}
		}
	}
	return false
}
