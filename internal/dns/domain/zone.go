package domain

import "math"

// InitialSerial is the serial assigned to a newly created zone.
const InitialSerial uint32 = 1

// Zone is the editable form of an authoritative zone. Zone owns its Records; the
// zone's canonical Name is also its identity.
type Zone struct {
	Name       string   `json:"name" yaml:"name"`
	Nameserver string   `json:"nameserver" yaml:"nameserver"`
	Serial     uint32   `json:"serial" yaml:"serial"`
	Records    []Record `json:"records" yaml:"records"`
}

// IncrementSerial advances the zone serial. The serial skips 0 when it wraps.
func (z *Zone) IncrementSerial() {
	if z.Serial == math.MaxUint32 {
		z.Serial = 1
		return
	}
	z.Serial++
}

// RecordIndex returns the position of the record with the given id, or -1.
func (z *Zone) RecordIndex(id string) int {
	for i := range z.Records {
		if z.Records[i].ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of the zone.
func (z Zone) Clone() Zone {
	c := z
	if z.Records != nil {
		c.Records = make([]Record, len(z.Records))
		copy(c.Records, z.Records)
	}
	return c
}

// CloneZones deep-copies a zone collection.
func CloneZones(zones []Zone) []Zone {
	out := make([]Zone, len(zones))
	for i := range zones {
		out[i] = zones[i].Clone()
	}
	return out
}
