// Package manager is the zone control plane facade. Every mutation runs validate, mutate,
// recompile, persist and publish under one writer lock; readers only ever see a complete
// published view.
package manager

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/haukened/rr-zoned/internal/dns/common/clock"
	"github.com/haukened/rr-zoned/internal/dns/common/log"
	"github.com/haukened/rr-zoned/internal/dns/common/utils"
	"github.com/haukened/rr-zoned/internal/dns/domain"
	"github.com/haukened/rr-zoned/internal/dns/repos/tokenfilter"
	"github.com/haukened/rr-zoned/internal/dns/repos/zonecache"
	"github.com/haukened/rr-zoned/internal/dns/repos/zonestore"
	"github.com/haukened/rr-zoned/internal/dns/services/compiler"
	"github.com/haukened/rr-zoned/internal/dns/services/validator"
)

type Manager struct {
	mu      sync.Mutex // serializes writers
	store   *zonestore.Store
	current atomic.Pointer[view]

	persistence     Persistence
	clock           clock.Clock
	logger          log.Logger
	newID           func() string
	lookupCacheSize int
	tokenFPRate     float64
}

type ManagerOptions struct {
	// Persistence is loaded once by New and saved after every mutation. Nil keeps state
	// in memory only.
	Persistence Persistence
	Clock       clock.Clock
	Logger      log.Logger
	// NewID generates record ids. Defaults to random UUIDs.
	NewID           func() string
	LookupCacheSize int
	TokenFPRate     float64
}

// New loads the persisted collection and publishes its first compiled view. A load failure
// or an inconsistent collection (duplicate zone names or record ids) is returned.
func New(opts ManagerOptions) (*Manager, error) {
	m := &Manager{
		persistence:     opts.Persistence,
		clock:           opts.Clock,
		logger:          opts.Logger,
		newID:           opts.NewID,
		lookupCacheSize: opts.LookupCacheSize,
		tokenFPRate:     opts.TokenFPRate,
	}
	if m.clock == nil {
		m.clock = clock.RealClock{}
	}
	if m.logger == nil {
		m.logger = log.NewNoopLogger()
	}
	if m.newID == nil {
		m.newID = uuid.NewString
	}

	var zones []domain.Zone
	if m.persistence != nil {
		loaded, err := m.persistence.LoadAll()
		if err != nil {
			return nil, fmt.Errorf("load zones: %w", err)
		}
		zones = loaded
	}
	store, err := zonestore.Load(zones)
	if err != nil {
		return nil, fmt.Errorf("load zones: %w", err)
	}
	m.store = store

	m.mu.Lock()
	m.current.Store(m.compile())
	m.mu.Unlock()

	m.logger.Info(map[string]any{
		"zones":   store.Len(),
		"records": m.current.Load().snapshot.Count(),
	}, "Zone collection loaded")
	return m, nil
}

// ListZones returns a copy of every zone, records included.
func (m *Manager) ListZones() []domain.Zone {
	return domain.CloneZones(m.current.Load().zones)
}

// GetZone returns the zone with the given name (case-insensitive).
func (m *Manager) GetZone(name string) (domain.Zone, error) {
	z, ok := m.current.Load().zone(utils.CanonicalDNSName(name))
	if !ok {
		return domain.Zone{}, domain.ZoneNotFound(name)
	}
	return z, nil
}

// GetRecord returns the record with the given id.
func (m *Manager) GetRecord(id string) (domain.Record, error) {
	r, ok := m.current.Load().record(id)
	if !ok {
		return domain.Record{}, domain.RecordNotFound(id)
	}
	return r, nil
}

// Lookup returns the compiled zone whose origin is exactly name. Absence is not an error.
func (m *Manager) Lookup(name string) (*zonecache.Zone, bool) {
	return m.current.Load().snapshot.Lookup(name)
}

// FindZone returns the most specific compiled zone containing qname.
func (m *Manager) FindZone(qname string) (*zonecache.Zone, bool) {
	return m.current.Load().snapshot.FindZone(qname)
}

// Snapshot returns the current compiled view.
func (m *Manager) Snapshot() *zonecache.Snapshot {
	return m.current.Load().snapshot
}

// CreateZone adds an empty zone with the initial serial.
func (m *Manager) CreateZone(actor string, draft domain.ZoneDraft) (domain.Zone, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := validator.ValidateZone(draft, m.current.Load().zones); err != nil {
		return domain.Zone{}, err
	}
	zone := domain.Zone{
		Name:       utils.CanonicalDNSName(draft.Name),
		Nameserver: utils.CanonicalDNSName(draft.Nameserver),
		Serial:     domain.InitialSerial,
	}
	if err := m.store.AddZone(zone); err != nil {
		return domain.Zone{}, err
	}
	m.commit()

	m.logger.Info(map[string]any{"actor": actor, "zone": zone.Name}, "Zone created")
	return zone, nil
}

// DeleteZone removes a zone and every record in it.
func (m *Manager) DeleteZone(actor, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed, err := m.store.RemoveZone(name)
	if err != nil {
		return err
	}
	m.commit()

	m.logger.Info(map[string]any{
		"actor":   actor,
		"zone":    removed.Name,
		"records": len(removed.Records),
	}, "Zone deleted")
	return nil
}

// CreateRecord adds a record to the named zone and bumps the zone serial.
func (m *Manager) CreateRecord(actor, zoneName string, draft domain.RecordDraft) (domain.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	zone, err := m.store.Zone(zoneName)
	if err != nil {
		return domain.Record{}, err
	}
	if err := validator.ValidateRecordCreate(draft, *zone, m.current.Load().zones); err != nil {
		return domain.Record{}, err
	}

	rt, _ := domain.ParseRecordType(draft.Type)
	now := m.clock.Now()
	record := domain.Record{
		ID:         m.newID(),
		Name:       strings.ToLower(strings.TrimSpace(draft.Name)),
		Type:       rt,
		Value:      draft.Value,
		Token:      draft.Token,
		LastChange: now,
		LastUpdate: now,
	}
	if err := m.store.AddRecord(zone.Name, record); err != nil {
		return domain.Record{}, err
	}
	record.Zone = zone.Name
	zone.IncrementSerial()
	m.commit()

	m.logger.Info(map[string]any{
		"actor":  actor,
		"zone":   zone.Name,
		"record": record.ID,
		"serial": zone.Serial,
	}, "Record created")
	return record, nil
}

// DeleteRecord removes a record and bumps its zone's serial.
func (m *Manager) DeleteRecord(actor, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, zone, err := m.store.RemoveRecord(id)
	if err != nil {
		return err
	}
	zone.IncrementSerial()
	m.commit()

	m.logger.Info(map[string]any{
		"actor":  actor,
		"zone":   zone.Name,
		"record": id,
		"serial": zone.Serial,
	}, "Record deleted")
	return nil
}

// UpdateRecord replaces a record's token and, when it differs, its value. The zone serial
// is bumped on every successful call.
func (m *Manager) UpdateRecord(actor, id string, update domain.RecordUpdate) (domain.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, zone, err := m.store.Record(id)
	if err != nil {
		return domain.Record{}, err
	}
	if err := validator.ValidateRecordUpdate(update, *record, m.current.Load().zones); err != nil {
		return domain.Record{}, err
	}

	changed := record.Value != update.Value
	if changed {
		record.Value = update.Value
		record.LastChange = m.clock.Now()
	}
	record.Token = update.Token
	zone.IncrementSerial()
	updated := *record
	m.commit()

	m.logger.Info(map[string]any{
		"actor":   actor,
		"zone":    zone.Name,
		"record":  id,
		"changed": changed,
		"serial":  zone.Serial,
	}, "Record updated")
	return updated, nil
}

// DynamicUpdate sets the value of the record holding token. lastUpdate is always refreshed;
// the value, lastChange and zone serial move only when the value differs, and an unchanged
// value is neither recompiled nor persisted.
func (m *Manager) DynamicUpdate(actor, token, value string) (domain.UpdateResult, error) {
	// tokens the filter has never seen are rejected without taking the writer lock
	if token == "" || !m.current.Load().tokens.MightContain(token) {
		return domain.UpdateResult{}, domain.RecordNotFound("")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	record, zone, err := m.store.RecordByToken(token)
	if err != nil {
		return domain.UpdateResult{}, err
	}
	if err := validator.ValidateRecordValue(record.Type, value); err != nil {
		return domain.UpdateResult{}, err
	}
	if err := validator.ValidateValueChange(*record, value, m.current.Load().zones); err != nil {
		return domain.UpdateResult{}, err
	}

	now := m.clock.Now()
	record.LastUpdate = now
	if record.Value == value {
		m.republish()
		m.logger.Debug(map[string]any{"actor": actor, "zone": zone.Name, "record": record.ID}, "Dynamic update unchanged")
		return domain.UpdateResult{Changed: false, Value: value}, nil
	}

	record.Value = value
	record.LastChange = now
	zone.IncrementSerial()
	id := record.ID
	m.commit()

	m.logger.Info(map[string]any{
		"actor":  actor,
		"zone":   zone.Name,
		"record": id,
		"serial": zone.Serial,
	}, "Dynamic update applied")
	return domain.UpdateResult{Changed: true, Value: value}, nil
}

// commit recompiles the store, persists it and publishes the result. Caller holds mu.
func (m *Manager) commit() {
	v := m.compile()
	m.persist(v.zones)
	m.current.Store(v)
}

// republish exposes store changes that do not affect resolution, reusing the current
// snapshot and token filter. Caller holds mu.
func (m *Manager) republish() {
	cur := m.current.Load()
	m.current.Store(newView(m.store.Zones(), cur.snapshot, cur.tokens))
}

// compile builds a complete view from the store, logging every skipped zone or record.
// Caller holds mu.
func (m *Manager) compile() *view {
	zones := m.store.Zones()
	snapshot, warnings := compiler.Compile(zones, m.lookupCacheSize)
	for _, err := range multierr.Errors(warnings) {
		fields := map[string]any{"error": err}
		var w *compiler.Warning
		if errors.As(err, &w) {
			fields["zone"] = w.Zone
			if w.Record != "" {
				fields["record"] = w.Record
			}
		}
		m.logger.Warn(fields, "Skipped during zone compilation")
	}
	return newView(zones, snapshot, tokenfilter.Build(tokenSet(zones), m.tokenFPRate))
}

// persist saves zones. A failure is logged and never returned: the in-memory state is
// already authoritative.
func (m *Manager) persist(zones []domain.Zone) {
	if m.persistence == nil {
		return
	}
	if err := m.persistence.SaveAll(domain.CloneZones(zones)); err != nil {
		m.logger.Error(map[string]any{"error": err, "zones": len(zones)}, "Failed to persist zone collection")
	}
}
