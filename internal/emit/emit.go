package emit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/calebraw/sigil/internal/digest"
	"github.com/calebraw/sigil/internal/fault"
	"github.com/calebraw/sigil/internal/gate"
	"github.com/calebraw/sigil/internal/laneconf"
	"github.com/calebraw/sigil/internal/ledger"
	"github.com/calebraw/sigil/internal/lineage"
	"github.com/calebraw/sigil/internal/record"
)

// Options carries the collaborators every emitter needs.
type Options struct {
	Log    ledger.Log
	Engine *digest.Engine

	// LaneTablePath overrides the embedded category->lane table when set.
	LaneTablePath string

	// Now supplies creation timestamps; defaults to time.Now.
	Now func() time.Time

	// NewCorrelationID mints opaque correlation ids; defaults to uuid.NewString.
	NewCorrelationID func() string

	// Diag receives diagnostics (ambiguity counts, duplicate notes).
	// Defaults to a nop logger.
	Diag *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.NewCorrelationID == nil {
		o.NewCorrelationID = uuid.NewString
	}
	if o.Diag == nil {
		o.Diag = zap.NewNop()
	}
	return o
}

// Result reports what an emitter did.
type Result struct {
	Record record.Record `json:"record"`

	// Appended is false when the identifier was already present and the
	// emission became a no-op.
	Appended bool `json:"appended"`

	// AmbiguousMatches is the number of candidate parent records seen during
	// resolution; values above one mean last-match-wins tie-breaking fired.
	AmbiguousMatches int `json:"ambiguous_matches,omitempty"`
}

// ReceiptParams describes one completion receipt.
type ReceiptParams struct {
	IssueNumber int
	WorkID      string
	Category    string
	OK          bool
}

// Receipt emits a completion receipt for (issue, work item).
//
// A receipt may be created only if a matching dispatch record for that exact
// pair already exists in the log; its identifier becomes the receipt's sole
// parent. With no such record the emission fails fatally: a receipt cannot
// be fabricated out of causal order. When several dispatches match, the most
// recently appended one wins and the ambiguity count is surfaced.
func Receipt(ctx context.Context, opts Options, p ReceiptParams) (*Result, error) {
	opts = opts.withDefaults()

	if p.WorkID == "" {
		return nil, fault.Usagef("work id is required")
	}
	if p.Category == "" {
		return nil, fault.Usagef("category is required")
	}
	if p.IssueNumber <= 0 {
		return nil, fault.Usagef("issue number must be positive, got %d", p.IssueNumber)
	}

	lane, err := laneconf.ResolveLane(opts.LaneTablePath, p.Category)
	if err != nil {
		return nil, err
	}

	parent, matches, err := opts.Log.LatestMatch(ctx, ledger.Query{
		Type:        record.TypeDispatch,
		IssueNumber: p.IssueNumber,
		WorkID:      p.WorkID,
	})
	if err != nil {
		return nil, err
	}
	if parent == nil {
		return nil, fault.CausalOrderf("no matching parent: no %s record for issue %d, work item %s",
			record.TypeDispatch, p.IssueNumber, p.WorkID)
	}
	if matches > 1 {
		opts.Diag.Warn("multiple dispatch records match, using most recent",
			zap.Int("matches", matches),
			zap.Int("issue", p.IssueNumber),
			zap.String("work_id", p.WorkID),
			zap.String("parent", parent.ID),
		)
	}

	outputKey := fmt.Sprintf("done:receipt:%s:issue:%d", p.Category, p.IssueNumber)
	ok := p.OK
	rec := record.Record{
		FormatVersion: record.FormatVersion,
		Type:          record.TypeReceipt,
		WorkID:        p.WorkID,
		Category:      p.Category,
		Lane:          lane,
		Parents:       []string{parent.ID},
		RunMarker:     p.WorkID,
		OutputKey:     outputKey,
		IssueNumber:   p.IssueNumber,
		OK:            &ok,
	}

	res, err := finalize(ctx, opts, rec)
	if err != nil {
		return nil, err
	}
	res.AmbiguousMatches = matches
	return res, nil
}

// RequestParams describes one cross-category work request.
type RequestParams struct {
	SourceCategory  string
	TargetCategory  string
	WorkType        string
	WorkID          string
	RequestedWorkID string
	IssueNumber     int
	Parents         []string

	// ConfigDir holds the per-lane settings files.
	ConfigDir string
}

// Request emits a cross-category work request. The admission gate runs first:
// an unauthorized source->target pair fails before any log mutation occurs.
func Request(ctx context.Context, opts Options, p RequestParams) (*Result, error) {
	opts = opts.withDefaults()

	if p.SourceCategory == "" || p.TargetCategory == "" {
		return nil, fault.Usagef("source and target categories are required")
	}
	if p.WorkType == "" {
		return nil, fault.Usagef("work type is required")
	}
	if p.WorkID == "" {
		return nil, fault.Usagef("work id is required")
	}
	if p.IssueNumber < 0 {
		return nil, fault.Usagef("issue number must not be negative, got %d", p.IssueNumber)
	}

	lane, err := gate.AuthorizeRequest(p.ConfigDir, opts.LaneTablePath, p.SourceCategory, p.TargetCategory)
	if err != nil {
		return nil, err
	}

	outputKey := fmt.Sprintf("request:%s->%s:%s:requested:%s:issue:%d",
		p.SourceCategory, p.TargetCategory, p.WorkType, p.RequestedWorkID, p.IssueNumber)
	rec := record.Record{
		FormatVersion:   record.FormatVersion,
		Type:            record.TypeRequest,
		WorkID:          p.WorkID,
		Category:        p.SourceCategory,
		Lane:            lane,
		Parents:         p.Parents,
		RunMarker:       p.WorkID,
		OutputKey:       outputKey,
		IssueNumber:     p.IssueNumber,
		TargetCategory:  p.TargetCategory,
		RequestedWorkID: p.RequestedWorkID,
	}

	return finalize(ctx, opts, rec)
}

// finalize derives the identifier, applies the idempotency pre-check, and
// appends. The record arrives without id, timestamp, or correlation id; those
// are minted here so duplicate detection happens before any of them matter.
func finalize(ctx context.Context, opts Options, rec record.Record) (*Result, error) {
	id, err := lineage.RecordID(opts.Engine, rec.Parents, rec.RunMarker, rec.OutputKey)
	if err != nil {
		return nil, err
	}
	rec.ID = id

	present, err := opts.Log.Contains(ctx, id)
	if err != nil {
		return nil, err
	}
	if present {
		opts.Diag.Info("record already present, emission is a no-op",
			zap.String("id", id),
			zap.String("output_key", rec.OutputKey),
		)
		return &Result{Record: rec, Appended: false}, nil
	}

	rec.CreatedAt = opts.Now().UTC().Format(time.RFC3339)
	rec.CorrelationID = opts.NewCorrelationID()

	stamped, err := opts.Log.Append(ctx, rec)
	if err != nil {
		return nil, err
	}
	return &Result{Record: stamped, Appended: true}, nil
}
