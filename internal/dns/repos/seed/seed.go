// Package seed imports zone definitions from a directory of YAML, JSON or TOML files.
// A file names its zone and nameserver, then maps owner labels to record values:
//
//	zone_root: example.com
//	nameserver: ns1.example.com
//	www:
//	  A: ["192.0.2.1", "192.0.2.2"]
//	blog:
//	  CNAME: www.example.com
package seed

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"

	"github.com/haukened/rr-zoned/internal/dns/common/log"
	"github.com/haukened/rr-zoned/internal/dns/common/utils"
	"github.com/haukened/rr-zoned/internal/dns/domain"
)

const (
	keyZoneRoot   = "zone_root"
	keyNameserver = "nameserver"
)

// Zone is one parsed seed file.
type Zone struct {
	Source  string
	Draft   domain.ZoneDraft
	Records []domain.RecordDraft
}

// Target is the subset of the zone manager used to apply seeds.
type Target interface {
	GetZone(name string) (domain.Zone, error)
	CreateZone(actor string, draft domain.ZoneDraft) (domain.Zone, error)
	CreateRecord(actor, zoneName string, draft domain.RecordDraft) (domain.Record, error)
}

// Result counts what Apply did.
type Result struct {
	ZonesCreated   int
	ZonesSkipped   int
	RecordsCreated int
}

// LoadDirectory walks dir and parses every supported file, ordered by path. Files with other
// extensions are ignored. Any parse failure aborts the load.
func LoadDirectory(dir string) ([]Zone, error) {
	var zones []Zone
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		z, ok, err := loadFile(path)
		if err != nil {
			return fmt.Errorf("error parsing seed file %s: %w", path, err)
		}
		if ok {
			zones = append(zones, z)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return zones, nil
}

func parserFor(path string) koanf.Parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser()
	case ".json":
		return json.Parser()
	case ".toml":
		return toml.Parser()
	default:
		return nil
	}
}

// loadFile parses one seed file. ok is false for unsupported extensions.
func loadFile(path string) (Zone, bool, error) {
	parser := parserFor(path)
	if parser == nil {
		return Zone{}, false, nil
	}

	// owner names contain dots, so keys are split on a character DNS names cannot hold
	k := koanf.New("/")
	if err := k.Load(file.Provider(path), parser); err != nil {
		return Zone{}, false, fmt.Errorf("failed to load seed file %s: %w", path, err)
	}

	root := k.String(keyZoneRoot)
	if root == "" {
		return Zone{}, false, fmt.Errorf("seed file %s missing '%s'", path, keyZoneRoot)
	}
	ns := k.String(keyNameserver)
	if ns == "" {
		return Zone{}, false, fmt.Errorf("seed file %s missing '%s'", path, keyNameserver)
	}

	z := Zone{
		Source: path,
		Draft:  domain.ZoneDraft{Name: utils.CanonicalDNSName(root), Nameserver: utils.CanonicalDNSName(ns)},
	}

	raw := k.Raw()
	owners := make([]string, 0, len(raw))
	for name := range raw {
		if name != keyZoneRoot && name != keyNameserver {
			owners = append(owners, name)
		}
	}
	sort.Strings(owners)

	for _, owner := range owners {
		rawMap, ok := raw[owner].(map[string]any)
		if !ok {
			return Zone{}, false, fmt.Errorf("seed file %s: %q must map record types to values", path, owner)
		}
		types := make([]string, 0, len(rawMap))
		for t := range rawMap {
			types = append(types, t)
		}
		sort.Strings(types)
		for _, t := range types {
			for _, v := range toStringValues(rawMap[t]) {
				z.Records = append(z.Records, domain.RecordDraft{Name: owner, Type: strings.ToUpper(t), Value: v})
			}
		}
	}
	return z, true, nil
}

// toStringValues converts a raw koanf-parsed value (string or []any of strings) into a slice of
// non-empty strings, skipping empty or non-string elements.
func toStringValues(val any) []string {
	switch v := val.(type) {
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil
		}
		return []string{s}
	case []any:
		out := make([]string, 0, len(v))
		for _, elem := range v {
			s, ok := elem.(string)
			if !ok {
				continue
			}
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			out = append(out, s)
		}
		if len(out) == 0 {
			return nil
		}
		return out
	default:
		return nil
	}
}

// Apply creates every seeded zone that does not exist yet, then its records, through target so
// the usual validation applies. Zones that already exist are left untouched. The first
// creation error aborts; counts cover the work done until then.
func Apply(target Target, actor string, zones []Zone, logger log.Logger) (Result, error) {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	var res Result
	for _, z := range zones {
		_, err := target.GetZone(z.Draft.Name)
		if err == nil {
			res.ZonesSkipped++
			logger.Info(map[string]any{"zone": z.Draft.Name, "source": z.Source}, "Seed zone already exists, skipping")
			continue
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return res, err
		}

		if _, err := target.CreateZone(actor, z.Draft); err != nil {
			return res, fmt.Errorf("seed %s: %w", z.Source, err)
		}
		res.ZonesCreated++
		for _, r := range z.Records {
			if _, err := target.CreateRecord(actor, z.Draft.Name, r); err != nil {
				return res, fmt.Errorf("seed %s: record %s %s: %w", z.Source, r.Name, r.Type, err)
			}
			res.RecordsCreated++
		}
		logger.Info(map[string]any{
			"zone":    z.Draft.Name,
			"records": len(z.Records),
			"source":  z.Source,
		}, "Seed zone imported")
	}
	return res, nil
}
