package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRecordType(t *testing.T) {
	tests := []struct {
		input string
		want  RecordType
		ok    bool
	}{
		{"A", RecordTypeA, true},
		{"aaaa", RecordTypeAAAA, true},
		{" CName ", RecordTypeCNAME, true},
		{"MX", "", false},
		{"TXT", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseRecordType(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRecordType_String(t *testing.T) {
	assert.Equal(t, "A", RecordTypeA.String())
	assert.Equal(t, "CNAME", RecordTypeCNAME.String())
	assert.Equal(t, "UNKNOWN(SRV)", RecordType("SRV").String())
}

func TestRecordTypes_AllValid(t *testing.T) {
	for _, rt := range RecordTypes {
		assert.True(t, rt.IsValid(), rt)
	}
}
