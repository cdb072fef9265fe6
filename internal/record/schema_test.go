package record

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calebraw/sigil/internal/fault"
)

func validLine(t *testing.T, mutate func(*Record)) []byte {
	t.Helper()
	rec := dispatchFixture()
	if mutate != nil {
		mutate(&rec)
	}
	line, err := rec.CanonicalBytes()
	require.NoError(t, err)
	return line
}

func TestValidateShapeAcceptsWellFormedRecord(t *testing.T) {
	require.NoError(t, ValidateShape(validLine(t, nil)))
}

func TestValidateShapeAcceptsOptionalFields(t *testing.T) {
	ok := true
	line := validLine(t, func(r *Record) {
		r.Type = TypeRequest
		r.OK = &ok
		r.TargetCategory = "writing"
		r.RequestedWorkID = "WR-007"
		r.CorrelationID = "3e8c2f44-9f2b-4a6d-8a2e-bb6f3f1c9d10"
	})
	require.NoError(t, ValidateShape(line))
}

func TestValidateShapeRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Record)
	}{
		{"bad id shape", func(r *Record) { r.ID = "sha1:" + strings.Repeat("1", 40) }},
		{"uppercase digest", func(r *Record) { r.TamperDigest = "sha256:" + strings.Repeat("A", 64) }},
		{"type not dot-namespaced", func(r *Record) { r.Type = "dispatch" }},
		{"empty work id", func(r *Record) { r.WorkID = "" }},
		{"empty run marker", func(r *Record) { r.RunMarker = "" }},
		{"bad parent shape", func(r *Record) { r.Parents = []string{"parent-1"} }},
		{"non-utc timestamp", func(r *Record) { r.CreatedAt = "2026-08-31T12:00:00+02:00" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateShape(validLine(t, tt.mutate))
			require.Error(t, err)
			assert.Equal(t, fault.KindIntegrity, fault.KindOf(err))
		})
	}
}

func TestValidateShapeRejectsUnknownFields(t *testing.T) {
	line := []byte(strings.Replace(string(validLine(t, nil)),
		`"work_id":"RA-001"`, `"work_id":"RA-001","smuggled":true`, 1))

	err := ValidateShape(line)
	require.Error(t, err)
	assert.Equal(t, fault.KindIntegrity, fault.KindOf(err))
}

func TestValidateShapeRejectsNonJSON(t *testing.T) {
	err := ValidateShape([]byte("not json at all"))
	require.Error(t, err)
	assert.Equal(t, fault.KindIntegrity, fault.KindOf(err))
}
