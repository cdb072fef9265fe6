package ledger

import (
	"context"
	"fmt"

	"github.com/calebraw/sigil/internal/digest"
	"github.com/calebraw/sigil/internal/envelope"
	"github.com/calebraw/sigil/internal/fault"
	"github.com/calebraw/sigil/internal/lineage"
	"github.com/calebraw/sigil/internal/record"
)

// Query selects records by the parent-lookup triple.
// All three fields must match exactly.
type Query struct {
	Type        string
	IssueNumber int
	WorkID      string
}

// Log is the shared mutable resource. Read freely, append only, never rewrite
// an already-appended record.
type Log interface {
	// Append stamps the record's tamper digest and appends it. Returns the
	// stamped record. Not atomic against truly simultaneous writers; those
	// are serialized upstream.
	Append(ctx context.Context, rec record.Record) (record.Record, error)

	// Scan streams every stored line in append order, 1-based positions.
	// Lines are delivered raw so validation can report unparsable entries.
	Scan(ctx context.Context, fn func(pos int, raw []byte) error) error

	// Contains reports whether a record with the identifier exists in the
	// log. This is the read half of the idempotent-emission discipline.
	Contains(ctx context.Context, id string) (bool, error)

	// LatestMatch returns the most recently appended record matching q and
	// the total number of matches (for ambiguity diagnostics). Returns
	// (nil, 0, nil) when nothing matches.
	LatestMatch(ctx context.Context, q Query) (*record.Record, int, error)

	Close() error
}

// Failure categories reported by Validate.
const (
	FailTamper  = "tamper"
	FailShape   = "shape"
	FailLineage = "dangling_parent"
)

// Failure is one failing position in the log.
type Failure struct {
	Position int    `json:"position"`
	Category string `json:"category"`
	Message  string `json:"message"`
}

// Report is the outcome of a full-log validation pass.
type Report struct {
	Records  int       `json:"records"`
	Failures []Failure `json:"failures,omitempty"`
}

// OK reports whether the whole log validated clean.
func (r *Report) OK() bool {
	return len(r.Failures) == 0
}

// Err converts a failing report into an integrity error, nil otherwise.
func (r *Report) Err() error {
	if r.OK() {
		return nil
	}
	return fault.Integrityf("%d of %d record(s) failed validation", len(r.Failures), r.Records)
}

// Validate independently checks the tamper digest and shape of every
// non-empty record, then resolves every declared parent against the set of
// identifiers seen in the log. Every failing position is accumulated; overall
// pass requires zero failures.
//
// Dangling parents are a distinct failure category: the mechanism otherwise
// only ever checks each record's own digest.
func Validate(ctx context.Context, eng *digest.Engine, lg Log) (*Report, error) {
	report := &Report{}
	seen := map[string]bool{}

	type parentRef struct {
		pos    int
		parent string
	}
	var refs []parentRef

	err := lg.Scan(ctx, func(pos int, raw []byte) error {
		if len(raw) == 0 {
			return nil
		}
		report.Records++

		if err := envelope.ValidateText(eng, raw); err != nil {
			report.Failures = append(report.Failures, Failure{
				Position: pos, Category: FailTamper, Message: err.Error(),
			})
			return nil
		}
		if err := record.ValidateShape(raw); err != nil {
			report.Failures = append(report.Failures, Failure{
				Position: pos, Category: FailShape, Message: err.Error(),
			})
			return nil
		}

		rec, err := record.Parse(raw)
		if err != nil {
			return err
		}
		seen[rec.ID] = true
		for _, p := range rec.Parents {
			refs = append(refs, parentRef{pos: pos, parent: p})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, ref := range refs {
		if !seen[ref.parent] {
			report.Failures = append(report.Failures, Failure{
				Position: ref.pos,
				Category: FailLineage,
				Message:  fmt.Sprintf("parent %s is not present in the log", ref.parent),
			})
		}
	}
	return report, nil
}

// AppendText parses one record line and appends it. The text must be a single
// self-contained object; the parsed record then flows through the same
// stamping pipeline as a typed append.
func AppendText(ctx context.Context, lg Log, text []byte) (record.Record, error) {
	rec, err := record.Parse(text)
	if err != nil {
		return rec, err
	}
	return lg.Append(ctx, rec)
}

// stampForAppend is the shared append-side pipeline: normalize, stamp the
// tamper digest, serialize canonically, and verify the result satisfies the
// record shape contract before any bytes hit storage.
func stampForAppend(eng *digest.Engine, rec record.Record) (record.Record, []byte, error) {
	rec.Normalize()
	if !lineage.ValidID(rec.ID) {
		return rec, nil, fault.Usagef("record id %q is malformed", rec.ID)
	}
	if err := envelope.Update(eng, &rec); err != nil {
		return rec, nil, err
	}
	line, err := rec.CanonicalBytes()
	if err != nil {
		return rec, nil, err
	}
	if err := record.CheckSelfContained(line); err != nil {
		return rec, nil, err
	}
	if err := record.ValidateShape(line); err != nil {
		return rec, nil, err
	}
	return rec, line, nil
}

// matchesQuery applies the exact parent-lookup triple.
func matchesQuery(rec record.Record, q Query) bool {
	return rec.Type == q.Type && rec.IssueNumber == q.IssueNumber && rec.WorkID == q.WorkID
}
