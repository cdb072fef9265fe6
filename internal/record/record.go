// Package record defines the typed event record and its canonical bytes.
//
// A record is immutable once appended. Canonical serialization is RFC 8785
// (JCS): sorted keys, no insignificant whitespace, escaped control characters.
// Canonical bytes are therefore always a single line, which is what lets the
// ledger store one self-contained record per line.
package record

import (
	"bytes"
	"encoding/json"

	"github.com/gowebpki/jcs"

	"github.com/calebraw/sigil/internal/fault"
)

// FormatVersion is the current record format.
const FormatVersion = 1

// Record type tags, dot-namespaced. Dispatch records are produced by the
// external scheduler; receipts and requests are emitted here.
const (
	TypeDispatch = "work.dispatch"
	TypeReceipt  = "work.done.receipt"
	TypeRequest  = "work.request"
)

// Record is one event in the ledger.
//
// Required fields have no omitempty: they must appear in every serialized
// record. Parents preserves declaration order; identity derivation sorts its
// own copy, so the stored order is advisory documentation of what the emitter
// saw.
type Record struct {
	FormatVersion int      `json:"format_version"`
	ID            string   `json:"id"`
	Type          string   `json:"type"`
	WorkID        string   `json:"work_id"`
	Category      string   `json:"category"`
	Lane          string   `json:"lane"`
	Parents       []string `json:"parents"`
	RunMarker     string   `json:"run_marker"`
	OutputKey     string   `json:"output_key"`
	CreatedAt     string   `json:"created_at"` // UTC, RFC 3339
	TamperDigest  string   `json:"tamper_digest"`

	// Optional fields, present only for the record types that use them.
	IssueNumber     int    `json:"issue_number,omitempty"`
	OK              *bool  `json:"ok,omitempty"`
	TargetCategory  string `json:"target_category,omitempty"`
	RequestedWorkID string `json:"requested_work_id,omitempty"`
	CorrelationID   string `json:"correlation_id,omitempty"`
}

// Normalize makes required collection fields explicit. A nil parent set
// serializes as [], never null.
func (r *Record) Normalize() {
	if r.Parents == nil {
		r.Parents = []string{}
	}
}

// CanonicalBytes returns the RFC 8785 serialization of the record.
func (r Record) CanonicalBytes() ([]byte, error) {
	r.Normalize()
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, fault.Wrap(fault.KindIntegrity, "marshaling record", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return nil, fault.Wrap(fault.KindIntegrity, "canonicalizing record", err)
	}
	return canonical, nil
}

// CheckSelfContained rejects input that is not a single self-contained
// structured object: it must start and end with the object delimiters and
// carry no embedded line breaks. This is a structural sanity check, not a
// grammar parse.
func CheckSelfContained(line []byte) error {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		return fault.Usagef("record text is empty")
	}
	if trimmed[0] != '{' || trimmed[len(trimmed)-1] != '}' {
		return fault.Usagef("record text must be a single object (starts %q, ends %q)",
			string(trimmed[0]), string(trimmed[len(trimmed)-1]))
	}
	if bytes.ContainsAny(trimmed, "\n\r") {
		return fault.Usagef("record text must not contain embedded line breaks")
	}
	return nil
}

// Parse decodes one self-contained record line.
func Parse(line []byte) (Record, error) {
	var r Record
	if err := CheckSelfContained(line); err != nil {
		return r, err
	}
	if err := json.Unmarshal(bytes.TrimSpace(line), &r); err != nil {
		return r, fault.Wrap(fault.KindIntegrity, "malformed record", err)
	}
	r.Normalize()
	return r, nil
}
