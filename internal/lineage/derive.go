package lineage

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/calebraw/sigil/internal/digest"
	"github.com/calebraw/sigil/internal/fault"
)

// Versioned domain prefixes. The suffix enables future algorithm migration
// without colliding with v1 identifiers.
const (
	DomainParents = "sigil/parents/v1"
	DomainRecord  = "sigil/record/v1"
)

// IDPrefix tags every record identifier with its digest algorithm.
const IDPrefix = "sha256:"

var idPattern = regexp.MustCompile(`^sha256:[0-9a-f]{64}$`)

// ValidID reports whether s has the exact record-identifier shape.
func ValidID(s string) bool {
	return idPattern.MatchString(s)
}

// ParentsRoot digests a parent set independent of declaration order.
// An empty set still hashes the namespace header, producing a stable
// "no ancestry" root rather than a degenerate empty digest.
func ParentsRoot(eng *digest.Engine, parents []string) string {
	sorted := make([]string, len(parents))
	copy(sorted, parents)
	sort.Strings(sorted)
	return eng.SumString(DomainParents + "\n" + strings.Join(sorted, "\n"))
}

// RecordID derives the content-addressed identifier for a record.
// Missing run marker or output key is a usage error, rejected before any
// hashing occurs. String inputs are NFC-normalized at the hashing boundary.
func RecordID(eng *digest.Engine, parents []string, runMarker, outputKey string) (string, error) {
	runMarker = norm.NFC.String(runMarker)
	outputKey = norm.NFC.String(outputKey)

	if runMarker == "" {
		return "", fault.Usagef("run marker is required to derive a record id")
	}
	if outputKey == "" {
		return "", fault.Usagef("output key is required to derive a record id")
	}
	for _, p := range parents {
		if !ValidID(p) {
			return "", fault.Usagef("parent %q is not a record id (want %s<64 hex>)", p, IDPrefix)
		}
	}

	root := ParentsRoot(eng, parents)
	payload := DomainRecord + "\n" + root + "\n" + runMarker + "\n" + outputKey
	return IDPrefix + eng.SumString(payload), nil
}
