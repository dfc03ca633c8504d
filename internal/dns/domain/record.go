package domain

import (
	"fmt"
	"time"
)

// Record is a single resource record owned by a zone.
type Record struct {
	ID   string `json:"id" yaml:"id"`
	Zone string `json:"zone" yaml:"zone"` // owning zone name (back-reference, not ownership)

	Name  string     `json:"name" yaml:"name"`
	Type  RecordType `json:"type" yaml:"type"`
	Value string     `json:"value" yaml:"value"`
	Token string     `json:"token,omitempty" yaml:"token,omitempty"`

	LastChange time.Time `json:"lastChange" yaml:"lastChange"`
	LastUpdate time.Time `json:"lastUpdate,omitempty" yaml:"lastUpdate,omitempty"`
}

// HasToken reports whether the record accepts dynamic updates.
func (r Record) HasToken() bool {
	return r.Token != ""
}

// String renders the record for logs. The token is never included.
func (r Record) String() string {
	return fmt.Sprintf("Record{id=%s name=%s type=%s value=%s dyn=%t}", r.ID, r.Name, r.Type, r.Value, r.HasToken())
}

// UpdateResult is returned by a dynamic update.
type UpdateResult struct {
	Changed bool   `json:"changed"`
	Value   string `json:"value"`
}
