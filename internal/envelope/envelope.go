// Package envelope binds a self-referential integrity digest to one record so
// post-hoc edits are detectable, without a secret key or an external
// signature store.
//
// The digest is computed over the record's canonical bytes with the
// tamper-digest field forced to a fixed all-zero placeholder. An absent field
// is synthesized at its canonical position. Because the ledger stores records
// in canonical form, validation also requires the stored bytes to round-trip
// byte-identically through canonical re-serialization: an edit that
// canonicalization would forgive (inserted whitespace, reordered keys) is
// itself an integrity failure.
package envelope

import (
	"bytes"
	"strings"

	"github.com/calebraw/sigil/internal/digest"
	"github.com/calebraw/sigil/internal/fault"
	"github.com/calebraw/sigil/internal/lineage"
	"github.com/calebraw/sigil/internal/record"
)

// Placeholder stands in for the tamper digest while computing it.
// Same shape as a real digest so the canonical position is stable.
var Placeholder = lineage.IDPrefix + strings.Repeat("0", digest.HexLen)

// Canonicalize returns the record's canonical bytes with the tamper digest
// replaced by the placeholder. An absent digest is synthesized.
func Canonicalize(rec record.Record) ([]byte, error) {
	rec.TamperDigest = Placeholder
	return rec.CanonicalBytes()
}

// Compute derives the tamper digest for a record.
func Compute(eng *digest.Engine, rec record.Record) (string, error) {
	canonical, err := Canonicalize(rec)
	if err != nil {
		return "", err
	}
	return lineage.IDPrefix + eng.Sum(canonical), nil
}

// Update stamps the freshly computed digest onto the record. Used once, at
// creation time, before the first append; never against appended history.
func Update(eng *digest.Engine, rec *record.Record) error {
	d, err := Compute(eng, *rec)
	if err != nil {
		return err
	}
	rec.TamperDigest = d
	return nil
}

// Validate recomputes the expected digest and compares it with the stored
// one. On mismatch both values are reported for diagnosis.
func Validate(eng *digest.Engine, rec record.Record) error {
	stored := rec.TamperDigest
	if stored == "" {
		return fault.Integrityf("record has no tamper digest")
	}
	if !lineage.ValidID(stored) {
		return fault.Integrityf("stored tamper digest %q is malformed", stored)
	}

	expected, err := Compute(eng, rec)
	if err != nil {
		return err
	}
	if expected != stored {
		return fault.Integrityf("tamper digest mismatch: expected %s, found %s", expected, stored)
	}
	return nil
}

// ComputeText derives the tamper digest for one record line.
func ComputeText(eng *digest.Engine, line []byte) (string, error) {
	rec, err := record.Parse(line)
	if err != nil {
		return "", err
	}
	return Compute(eng, rec)
}

// UpdateText stamps a record line and returns it in canonical form.
func UpdateText(eng *digest.Engine, line []byte) ([]byte, error) {
	rec, err := record.Parse(line)
	if err != nil {
		return nil, err
	}
	if err := Update(eng, &rec); err != nil {
		return nil, err
	}
	return rec.CanonicalBytes()
}

// ValidateText validates one stored record line exactly as appended
// (a single trailing line terminator is tolerated).
//
// Three checks, all integrity failures: the line must parse as one
// self-contained record, it must already be in canonical form with its stored
// digest, and the stored digest must match the recomputed one. The canonical
// round-trip check is what preserves byte-level tamper evidence now that
// hashing is structural rather than text substitution.
func ValidateText(eng *digest.Engine, line []byte) error {
	stored := bytes.TrimRight(line, "\n")

	rec, err := record.Parse(stored)
	if err != nil {
		return fault.Wrap(fault.KindIntegrity, "unreadable record", err)
	}

	canonical, err := rec.CanonicalBytes()
	if err != nil {
		return err
	}
	if !bytes.Equal(stored, canonical) {
		return fault.Integrityf("record bytes are not the canonical serialization of their content")
	}

	return Validate(eng, rec)
}
