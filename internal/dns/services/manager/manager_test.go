package manager

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/haukened/rr-zoned/internal/dns/common/clock"
	"github.com/haukened/rr-zoned/internal/dns/common/log"
	"github.com/haukened/rr-zoned/internal/dns/domain"
)

type mockPersistence struct {
	mock.Mock
}

func (p *mockPersistence) LoadAll() ([]domain.Zone, error) {
	args := p.Called()
	zones, _ := args.Get(0).([]domain.Zone)
	return zones, args.Error(1)
}

func (p *mockPersistence) SaveAll(zones []domain.Zone) error {
	return p.Called(zones).Error(0)
}

var t0 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

type fixture struct {
	m     *Manager
	p     *mockPersistence
	clock *clock.MockClock
	logs  *observer.ObservedLogs
}

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("rec-%d", n)
	}
}

func newFixture(t *testing.T, loaded []domain.Zone) *fixture {
	t.Helper()
	p := &mockPersistence{}
	p.On("LoadAll").Return(loaded, nil)
	p.On("SaveAll", mock.Anything).Return(nil)

	core, logs := observer.New(zapcore.DebugLevel)
	clk := &clock.MockClock{CurrentTime: t0}
	m, err := New(ManagerOptions{
		Persistence:     p,
		Clock:           clk,
		Logger:          log.FromZap(zap.New(core)),
		NewID:           sequentialIDs(),
		LookupCacheSize: 16,
		TokenFPRate:     0.01,
	})
	require.NoError(t, err)
	return &fixture{m: m, p: p, clock: clk, logs: logs}
}

func (f *fixture) zone(t *testing.T, name string) domain.Zone {
	t.Helper()
	z, err := f.m.CreateZone("tester", domain.ZoneDraft{Name: name, Nameserver: "ns1." + name})
	require.NoError(t, err)
	return z
}

func (f *fixture) record(t *testing.T, zone, name, typ, value, token string) domain.Record {
	t.Helper()
	r, err := f.m.CreateRecord("tester", zone, domain.RecordDraft{Name: name, Type: typ, Value: value, Token: token})
	require.NoError(t, err)
	return r
}

func serial(t *testing.T, m *Manager, zone string) uint32 {
	t.Helper()
	z, err := m.GetZone(zone)
	require.NoError(t, err)
	return z.Serial
}

func resolveA(t *testing.T, m *Manager, qname string) []string {
	t.Helper()
	z, ok := m.FindZone(qname)
	if !ok {
		return nil
	}
	answers, _ := z.Lookup(qname, dns.TypeA)
	var out []string
	for _, rr := range answers {
		if a, ok := rr.(*dns.A); ok {
			out = append(out, a.A.String())
		}
	}
	return out
}

func TestManager_Scenario(t *testing.T) {
	f := newFixture(t, nil)
	m := f.m

	z := f.zone(t, "example.com")
	assert.Equal(t, domain.InitialSerial, z.Serial)
	assert.Empty(t, z.Records)

	rec := f.record(t, "example.com", "www", "A", "203.0.113.10", "tok-www")
	assert.Equal(t, uint32(2), serial(t, m, "example.com"))
	assert.Equal(t, []string{"203.0.113.10"}, resolveA(t, m, "www.example.com."))

	res, err := m.DynamicUpdate("anon", "tok-www", "203.0.113.10")
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Equal(t, uint32(2), serial(t, m, "example.com"))

	res, err = m.DynamicUpdate("anon", "tok-www", "203.0.113.11")
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, "203.0.113.11", res.Value)
	assert.Equal(t, uint32(3), serial(t, m, "example.com"))
	assert.Equal(t, []string{"203.0.113.11"}, resolveA(t, m, "www.example.com"))

	compiled, ok := m.Lookup("example.com.")
	require.True(t, ok)
	assert.Equal(t, uint32(3), compiled.Serial())

	require.NoError(t, m.DeleteZone("tester", "example.com"))
	assert.Empty(t, m.ListZones())
	_, err = m.GetRecord(rec.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, ok = m.Lookup("example.com.")
	assert.False(t, ok)
	assert.Nil(t, resolveA(t, m, "www.example.com"))
}

func TestManager_CreateZone(t *testing.T) {
	f := newFixture(t, nil)
	f.zone(t, "Example.COM.")

	z, err := f.m.GetZone("example.com")
	require.NoError(t, err)
	assert.Equal(t, "example.com", z.Name)
	assert.Equal(t, "ns1.example.com", z.Nameserver)

	tests := []struct {
		name  string
		draft domain.ZoneDraft
		field string
	}{
		{"duplicate case-insensitive", domain.ZoneDraft{Name: "EXAMPLE.com", Nameserver: "ns1.example.com"}, "name"},
		{"malformed name", domain.ZoneDraft{Name: "bad..name", Nameserver: "ns1.example.com"}, "name"},
		{"missing nameserver", domain.ZoneDraft{Name: "other.test"}, "nameserver"},
		{"public suffix", domain.ZoneDraft{Name: "co.uk", Nameserver: "ns1.example.com"}, "name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.m.CreateZone("tester", tt.draft)
			require.ErrorIs(t, err, domain.ErrValidation)
			var ve *domain.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)
		})
	}
	assert.Len(t, f.m.ListZones(), 1)
}

func TestManager_CreateRecord(t *testing.T) {
	f := newFixture(t, nil)
	f.zone(t, "example.com")

	r := f.record(t, "example.com", "WWW", "a", "192.0.2.1", "")
	assert.Equal(t, "rec-1", r.ID)
	assert.Equal(t, "www", r.Name)
	assert.Equal(t, domain.RecordTypeA, r.Type)
	assert.Equal(t, "example.com", r.Zone)
	assert.Equal(t, t0, r.LastChange)
	assert.Equal(t, t0, r.LastUpdate)

	got, err := f.m.GetRecord(r.ID)
	require.NoError(t, err)
	assert.Equal(t, r, got)

	_, err = f.m.CreateRecord("tester", "missing.test", domain.RecordDraft{Name: "www", Type: "A", Value: "192.0.2.1"})
	var nf *domain.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, domain.EntityZone, nf.Kind)

	invalid := []domain.RecordDraft{
		{Name: "mx", Type: "MX", Value: "10 mail.example.com"},
		{Name: "www", Type: "A", Value: "2001:db8::1"},
		{Name: "www", Type: "CNAME", Value: "other.example.net"},
		{Name: "www", Type: "A", Value: "192.0.2.1"},
	}
	before := serial(t, f.m, "example.com")
	for _, d := range invalid {
		_, err := f.m.CreateRecord("tester", "example.com", d)
		assert.ErrorIs(t, err, domain.ErrValidation, d)
	}
	assert.Equal(t, before, serial(t, f.m, "example.com"))
}

func TestManager_DeleteRecord(t *testing.T) {
	f := newFixture(t, nil)
	f.zone(t, "example.com")
	r := f.record(t, "example.com", "www", "A", "192.0.2.1", "tok")

	require.NoError(t, f.m.DeleteRecord("tester", r.ID))
	assert.Equal(t, uint32(3), serial(t, f.m, "example.com"))
	assert.Nil(t, resolveA(t, f.m, "www.example.com"))

	err := f.m.DeleteRecord("tester", r.ID)
	var nf *domain.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, domain.EntityRecord, nf.Kind)

	_, err = f.m.DynamicUpdate("anon", "tok", "192.0.2.2")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestManager_UpdateRecord(t *testing.T) {
	f := newFixture(t, nil)
	f.zone(t, "example.com")
	r := f.record(t, "example.com", "www", "A", "192.0.2.1", "old-token")

	f.clock.Advance(time.Minute)
	// token-only change keeps lastChange but still bumps the serial
	got, err := f.m.UpdateRecord("tester", r.ID, domain.RecordUpdate{Value: "192.0.2.1", Token: "new-token"})
	require.NoError(t, err)
	assert.Equal(t, "new-token", got.Token)
	assert.Equal(t, t0, got.LastChange)
	assert.Equal(t, uint32(3), serial(t, f.m, "example.com"))

	_, err = f.m.DynamicUpdate("anon", "old-token", "192.0.2.9")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got, err = f.m.UpdateRecord("tester", r.ID, domain.RecordUpdate{Value: "192.0.2.2"})
	require.NoError(t, err)
	assert.Equal(t, "192.0.2.2", got.Value)
	assert.Empty(t, got.Token)
	assert.Equal(t, t0.Add(time.Minute), got.LastChange)
	assert.Equal(t, uint32(4), serial(t, f.m, "example.com"))
	assert.Equal(t, []string{"192.0.2.2"}, resolveA(t, f.m, "www.example.com"))

	_, err = f.m.UpdateRecord("tester", r.ID, domain.RecordUpdate{Value: "not-an-ip"})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.m.UpdateRecord("tester", "nope", domain.RecordUpdate{Value: "192.0.2.3"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, uint32(4), serial(t, f.m, "example.com"))
}

func TestManager_TokenUniqueness(t *testing.T) {
	f := newFixture(t, nil)
	f.zone(t, "example.com")
	f.zone(t, "example.org")
	f.record(t, "example.com", "a", "A", "192.0.2.1", "shared")
	other := f.record(t, "example.org", "b", "A", "192.0.2.2", "")

	_, err := f.m.CreateRecord("tester", "example.org", domain.RecordDraft{Name: "c", Type: "A", Value: "192.0.2.3", Token: "shared"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.m.UpdateRecord("tester", other.ID, domain.RecordUpdate{Value: "192.0.2.2", Token: "shared"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestManager_UpdatesRejectSiblingDuplicates(t *testing.T) {
	f := newFixture(t, nil)
	f.zone(t, "example.com")
	f.record(t, "example.com", "www", "A", "192.0.2.1", "")
	second := f.record(t, "example.com", "www", "A", "192.0.2.2", "www-token")
	before := serial(t, f.m, "example.com")

	_, err := f.m.UpdateRecord("tester", second.ID, domain.RecordUpdate{Value: "192.0.2.1"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.m.DynamicUpdate("anon", "www-token", "192.0.2.1")
	assert.ErrorIs(t, err, domain.ErrValidation)

	assert.Equal(t, before, serial(t, f.m, "example.com"))
	assert.ElementsMatch(t, []string{"192.0.2.1", "192.0.2.2"}, resolveA(t, f.m, "www.example.com"))

	// the record's own value is not a conflict with itself
	res, err := f.m.DynamicUpdate("anon", "www-token", "192.0.2.2")
	require.NoError(t, err)
	assert.False(t, res.Changed)
}

func TestManager_DynamicUpdateIdempotent(t *testing.T) {
	f := newFixture(t, nil)
	f.zone(t, "example.com")
	r := f.record(t, "example.com", "home", "AAAA", "2001:db8::1", "home-token")
	saves := len(f.p.Calls)

	f.clock.Advance(time.Minute)
	first, err := f.m.DynamicUpdate("anon", "home-token", "2001:db8::2")
	require.NoError(t, err)
	assert.True(t, first.Changed)
	afterFirst, err := f.m.GetRecord(r.ID)
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	second, err := f.m.DynamicUpdate("anon", "home-token", "2001:db8::2")
	require.NoError(t, err)
	assert.False(t, second.Changed)
	afterSecond, err := f.m.GetRecord(r.ID)
	require.NoError(t, err)

	assert.Equal(t, afterFirst.LastChange, afterSecond.LastChange)
	assert.True(t, afterSecond.LastUpdate.After(afterFirst.LastUpdate))
	assert.Equal(t, uint32(3), serial(t, f.m, "example.com"))
	// only the changing update was persisted
	assert.Equal(t, saves+1, len(f.p.Calls))
}

func TestManager_DynamicUpdateErrors(t *testing.T) {
	f := newFixture(t, nil)
	f.zone(t, "example.com")
	f.record(t, "example.com", "home", "A", "192.0.2.1", "home-token")

	_, err := f.m.DynamicUpdate("anon", "", "192.0.2.2")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.m.DynamicUpdate("anon", "unknown", "192.0.2.2")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NotContains(t, err.Error(), "unknown")

	_, err = f.m.DynamicUpdate("anon", "home-token", "2001:db8::1")
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, uint32(2), serial(t, f.m, "example.com"))
}

func TestManager_PersistenceFailureIsLogged(t *testing.T) {
	p := &mockPersistence{}
	p.On("LoadAll").Return(nil, nil)
	p.On("SaveAll", mock.Anything).Return(errors.New("disk full"))

	core, logs := observer.New(zapcore.InfoLevel)
	m, err := New(ManagerOptions{Persistence: p, Logger: log.FromZap(zap.New(core))})
	require.NoError(t, err)

	z, err := m.CreateZone("tester", domain.ZoneDraft{Name: "example.com", Nameserver: "ns1.example.com"})
	require.NoError(t, err)
	assert.Equal(t, "example.com", z.Name)

	_, ok := m.Lookup("example.com")
	assert.True(t, ok)

	failures := logs.FilterMessage("Failed to persist zone collection")
	require.Equal(t, 1, failures.Len())
	entry := failures.All()[0]
	assert.Equal(t, zapcore.ErrorLevel, entry.Level)
	assert.Equal(t, "disk full", entry.ContextMap()["error"])
}

func TestManager_SavesFullCollection(t *testing.T) {
	f := newFixture(t, nil)
	f.zone(t, "example.com")
	r := f.record(t, "example.com", "www", "A", "192.0.2.1", "")

	last := f.p.Calls[len(f.p.Calls)-1]
	require.Equal(t, "SaveAll", last.Method)
	saved := last.Arguments.Get(0).([]domain.Zone)
	require.Len(t, saved, 1)
	require.Len(t, saved[0].Records, 1)
	assert.Equal(t, r, saved[0].Records[0])
	assert.Equal(t, uint32(2), saved[0].Serial)
}

func TestManager_LoadsPersistedState(t *testing.T) {
	loaded := []domain.Zone{
		{Name: "Example.com", Nameserver: "ns1.example.com", Serial: 41, Records: []domain.Record{
			{ID: "r1", Name: "www", Type: domain.RecordTypeA, Value: "192.0.2.1", Token: "tok", LastChange: t0},
			{ID: "r2", Name: "bad", Type: domain.RecordTypeA, Value: "999.0.0.1", LastChange: t0},
		}},
		{Name: "broken..zone", Nameserver: "ns1.example.com", Serial: 1},
	}
	f := newFixture(t, loaded)

	assert.Len(t, f.m.ListZones(), 2)
	r, err := f.m.GetRecord("r1")
	require.NoError(t, err)
	assert.Equal(t, "example.com", r.Zone)
	assert.Equal(t, []string{"192.0.2.1"}, resolveA(t, f.m, "www.example.com"))

	warnings := f.logs.FilterMessage("Skipped during zone compilation")
	assert.Equal(t, 2, warnings.Len())
	for _, e := range warnings.All() {
		assert.Equal(t, zapcore.WarnLevel, e.Level)
	}

	// the broken zone stays editable even though it never resolves
	_, err = f.m.GetZone("broken..zone")
	require.NoError(t, err)
	_, ok := f.m.Lookup("broken..zone")
	assert.False(t, ok)

	res, err := f.m.DynamicUpdate("anon", "tok", "192.0.2.5")
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, uint32(42), serial(t, f.m, "example.com"))
}

func TestNew_LoadFailures(t *testing.T) {
	p := &mockPersistence{}
	p.On("LoadAll").Return(nil, errors.New("corrupt"))
	_, err := New(ManagerOptions{Persistence: p})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt")

	dup := &mockPersistence{}
	dup.On("LoadAll").Return([]domain.Zone{
		{Name: "a.test", Nameserver: "ns.a.test", Serial: 1, Records: []domain.Record{{ID: "x", Name: "www", Type: domain.RecordTypeA, Value: "192.0.2.1"}}},
		{Name: "b.test", Nameserver: "ns.b.test", Serial: 1, Records: []domain.Record{{ID: "x", Name: "www", Type: domain.RecordTypeA, Value: "192.0.2.1"}}},
	}, nil)
	_, err = New(ManagerOptions{Persistence: dup})
	assert.Error(t, err)

	sharedToken := &mockPersistence{}
	sharedToken.On("LoadAll").Return([]domain.Zone{
		{Name: "a.test", Nameserver: "ns.a.test", Serial: 1, Records: []domain.Record{{ID: "a", Name: "www", Type: domain.RecordTypeA, Value: "192.0.2.1", Token: "dup"}}},
		{Name: "b.test", Nameserver: "ns.b.test", Serial: 1, Records: []domain.Record{{ID: "b", Name: "www", Type: domain.RecordTypeA, Value: "192.0.2.2", Token: "dup"}}},
	}, nil)
	_, err = New(ManagerOptions{Persistence: sharedToken})
	assert.Error(t, err)
}

func TestManager_InMemoryDefaults(t *testing.T) {
	m, err := New(ManagerOptions{})
	require.NoError(t, err)

	_, err = m.CreateZone("tester", domain.ZoneDraft{Name: "example.com", Nameserver: "ns1.example.com"})
	require.NoError(t, err)
	r, err := m.CreateRecord("tester", "example.com", domain.RecordDraft{Name: "@", Type: "A", Value: "192.0.2.1"})
	require.NoError(t, err)
	assert.Len(t, r.ID, 36)
	assert.Equal(t, 1, m.Snapshot().Count())
}

func TestManager_ReadsReturnCopies(t *testing.T) {
	f := newFixture(t, nil)
	f.zone(t, "example.com")
	f.record(t, "example.com", "www", "A", "192.0.2.1", "")

	zones := f.m.ListZones()
	zones[0].Serial = 999
	zones[0].Records[0].Value = "tampered"

	z, err := f.m.GetZone("example.com")
	require.NoError(t, err)
	assert.Equal(t, uint32(2), z.Serial)
	assert.Equal(t, "192.0.2.1", z.Records[0].Value)
}

func TestManager_ConcurrentMutationsAndReads(t *testing.T) {
	f := newFixture(t, nil)
	f.zone(t, "example.com")

	const writers = 8
	const perWriter = 10

	var wg sync.WaitGroup
	stop := make(chan struct{})
	var readers sync.WaitGroup
	for range 4 {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				z, err := f.m.GetZone("example.com")
				if assert.NoError(t, err) {
					// serial always reflects exactly the published record set
					assert.Equal(t, domain.InitialSerial+uint32(len(z.Records)), z.Serial)
				}
				if compiled, ok := f.m.Lookup("example.com"); ok {
					assert.GreaterOrEqual(t, compiled.Serial(), domain.InitialSerial)
				}
			}
		}()
	}

	for w := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perWriter {
				ip := net.IPv4(10, 0, byte(w), byte(i)).String()
				_, err := f.m.CreateRecord("tester", "example.com", domain.RecordDraft{
					Name: fmt.Sprintf("host-%d-%d", w, i), Type: "A", Value: ip,
				})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()
	close(stop)
	readers.Wait()

	z, err := f.m.GetZone("example.com")
	require.NoError(t, err)
	assert.Len(t, z.Records, writers*perWriter)
	assert.Equal(t, domain.InitialSerial+writers*perWriter, z.Serial)

	compiled, ok := f.m.Lookup("example.com")
	require.True(t, ok)
	assert.Equal(t, writers*perWriter, compiled.Len())
	assert.Equal(t, z.Serial, compiled.Serial())
}
