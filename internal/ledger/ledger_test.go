package ledger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calebraw/sigil/internal/digest"
	"github.com/calebraw/sigil/internal/fault"
	"github.com/calebraw/sigil/internal/lineage"
	"github.com/calebraw/sigil/internal/record"
)

func testEngine(t *testing.T) *digest.Engine {
	t.Helper()
	eng, err := digest.Select()
	require.NoError(t, err)
	return eng
}

func newDispatch(t *testing.T, eng *digest.Engine, issue int, workID string) record.Record {
	t.Helper()
	outputKey := fmt.Sprintf("dispatch:analysis:%s:issue:%d", workID, issue)
	id, err := lineage.RecordID(eng, nil, workID, outputKey)
	require.NoError(t, err)
	return record.Record{
		FormatVersion: record.FormatVersion,
		ID:            id,
		Type:          record.TypeDispatch,
		WorkID:        workID,
		Category:      "analysis",
		Lane:          "insight",
		Parents:       []string{},
		RunMarker:     workID,
		OutputKey:     outputKey,
		CreatedAt:     "2026-08-31T12:00:00Z",
		IssueNumber:   issue,
	}
}

// openBackends returns a fresh instance of each Log backend; the contract
// tests run identically against both.
func openBackends(t *testing.T, eng *digest.Engine) map[string]Log {
	t.Helper()
	fileLog, err := OpenFile(filepath.Join(t.TempDir(), "signals.log"), eng)
	require.NoError(t, err)
	sqliteLog, err := OpenSQLite(filepath.Join(t.TempDir(), "signals.db"), eng)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqliteLog.Close() })
	return map[string]Log{"file": fileLog, "sqlite": sqliteLog}
}

func TestAppendStampsAndStores(t *testing.T) {
	eng := testEngine(t)
	for name, lg := range openBackends(t, eng) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			stamped, err := lg.Append(ctx, newDispatch(t, eng, 42, "RA-001"))
			require.NoError(t, err)
			assert.True(t, lineage.ValidID(stamped.TamperDigest))

			var lines int
			require.NoError(t, lg.Scan(ctx, func(pos int, raw []byte) error {
				lines++
				assert.NotContains(t, string(raw), "\n")
				return nil
			}))
			assert.Equal(t, 1, lines)
		})
	}
}

func TestContainsVerbatimIDSearch(t *testing.T) {
	eng := testEngine(t)
	for name, lg := range openBackends(t, eng) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			rec := newDispatch(t, eng, 42, "RA-001")

			found, err := lg.Contains(ctx, rec.ID)
			require.NoError(t, err)
			assert.False(t, found, "empty log contains nothing")

			_, err = lg.Append(ctx, rec)
			require.NoError(t, err)

			found, err = lg.Contains(ctx, rec.ID)
			require.NoError(t, err)
			assert.True(t, found)

			found, err = lg.Contains(ctx, "sha256:"+strings.Repeat("f", 64))
			require.NoError(t, err)
			assert.False(t, found)
		})
	}
}

func TestLatestMatchLastWriteWins(t *testing.T) {
	eng := testEngine(t)
	for name, lg := range openBackends(t, eng) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			first := newDispatch(t, eng, 42, "RA-001")
			_, err := lg.Append(ctx, first)
			require.NoError(t, err)

			// Re-dispatch of the same work item under a new run marker.
			second := newDispatch(t, eng, 42, "RA-001")
			second.RunMarker = "RA-001-retry"
			second.OutputKey = "dispatch:analysis:RA-001:retry:issue:42"
			second.ID, err = lineage.RecordID(eng, nil, second.RunMarker, second.OutputKey)
			require.NoError(t, err)
			_, err = lg.Append(ctx, second)
			require.NoError(t, err)

			// Unrelated record must not match.
			_, err = lg.Append(ctx, newDispatch(t, eng, 7, "ZZ-900"))
			require.NoError(t, err)

			match, count, err := lg.LatestMatch(ctx, Query{
				Type: record.TypeDispatch, IssueNumber: 42, WorkID: "RA-001",
			})
			require.NoError(t, err)
			require.NotNil(t, match)
			assert.Equal(t, 2, count, "ambiguity count surfaces the re-dispatch")
			assert.Equal(t, second.ID, match.ID, "most recently appended match wins")
		})
	}
}

func TestLatestMatchNoMatch(t *testing.T) {
	eng := testEngine(t)
	for name, lg := range openBackends(t, eng) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := lg.Append(ctx, newDispatch(t, eng, 42, "RA-001"))
			require.NoError(t, err)

			match, count, err := lg.LatestMatch(ctx, Query{
				Type: record.TypeDispatch, IssueNumber: 42, WorkID: "RA-002",
			})
			require.NoError(t, err)
			assert.Nil(t, match)
			assert.Zero(t, count)
		})
	}
}

func TestValidateCleanLog(t *testing.T) {
	eng := testEngine(t)
	for name, lg := range openBackends(t, eng) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			dispatch, err := lg.Append(ctx, newDispatch(t, eng, 42, "RA-001"))
			require.NoError(t, err)

			child := newDispatch(t, eng, 42, "RA-002")
			child.Parents = []string{dispatch.ID}
			child.ID, err = lineage.RecordID(eng, child.Parents, child.RunMarker, child.OutputKey)
			require.NoError(t, err)
			_, err = lg.Append(ctx, child)
			require.NoError(t, err)

			report, err := Validate(ctx, eng, lg)
			require.NoError(t, err)
			assert.True(t, report.OK())
			assert.Equal(t, 2, report.Records)
			assert.NoError(t, report.Err())
		})
	}
}

func TestValidateReportsDanglingParent(t *testing.T) {
	eng := testEngine(t)
	for name, lg := range openBackends(t, eng) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			rec := newDispatch(t, eng, 42, "RA-001")
			rec.Parents = []string{"sha256:" + strings.Repeat("d", 64)}
			var err error
			rec.ID, err = lineage.RecordID(eng, rec.Parents, rec.RunMarker, rec.OutputKey)
			require.NoError(t, err)
			_, err = lg.Append(ctx, rec)
			require.NoError(t, err)

			report, err := Validate(ctx, eng, lg)
			require.NoError(t, err)
			require.Len(t, report.Failures, 1)
			assert.Equal(t, FailLineage, report.Failures[0].Category)
			assert.Equal(t, 1, report.Failures[0].Position)
			assert.Equal(t, fault.KindIntegrity, fault.KindOf(report.Err()))
		})
	}
}

func TestValidateAccumulatesEveryFailingPosition(t *testing.T) {
	eng := testEngine(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "signals.log")
	lg, err := OpenFile(path, eng)
	require.NoError(t, err)
	ctx := context.Background()

	for i, workID := range []string{"RA-001", "RA-002", "RA-003"} {
		_, err := lg.Append(ctx, newDispatch(t, eng, 40+i, workID))
		require.NoError(t, err)
	}

	// Corrupt lines 1 and 3 out-of-band; line 2 stays intact.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	edited := strings.Replace(string(data), "RA-001", "RA-00X", 1)
	edited = strings.Replace(edited, "RA-003", "RA-00Y", 1)
	require.NoError(t, os.WriteFile(path, []byte(edited), 0o644))

	report, err := Validate(ctx, eng, lg)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Records)
	require.Len(t, report.Failures, 2)
	assert.Equal(t, 1, report.Failures[0].Position)
	assert.Equal(t, FailTamper, report.Failures[0].Category)
	assert.Contains(t, report.Failures[0].Message, "expected sha256:")
	assert.Equal(t, 3, report.Failures[1].Position)
}

func TestValidateRejectsEdgeWhitespaceEdit(t *testing.T) {
	eng := testEngine(t)
	path := filepath.Join(t.TempDir(), "signals.log")
	lg, err := OpenFile(path, eng)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = lg.Append(ctx, newDispatch(t, eng, 42, "RA-001"))
	require.NoError(t, err)

	// Pad the stored line with a leading and a trailing space out-of-band.
	// The digest still matches the parsed content; only the canonical
	// round-trip check can catch this.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := strings.TrimRight(string(data), "\n")
	require.NoError(t, os.WriteFile(path, []byte(" "+line+" \n"), 0o644))

	report, err := Validate(ctx, eng, lg)
	require.NoError(t, err)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, FailTamper, report.Failures[0].Category)
	assert.Contains(t, report.Failures[0].Message, "canonical")
	assert.Equal(t, fault.KindIntegrity, fault.KindOf(report.Err()))
}

func TestContainsIgnoresParentReferences(t *testing.T) {
	eng := testEngine(t)
	dangling := "sha256:" + strings.Repeat("d", 64)
	for name, lg := range openBackends(t, eng) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			rec := newDispatch(t, eng, 42, "RA-001")
			rec.Parents = []string{dangling}
			var err error
			rec.ID, err = lineage.RecordID(eng, rec.Parents, rec.RunMarker, rec.OutputKey)
			require.NoError(t, err)
			_, err = lg.Append(ctx, rec)
			require.NoError(t, err)

			found, err := lg.Contains(ctx, rec.ID)
			require.NoError(t, err)
			assert.True(t, found)

			found, err = lg.Contains(ctx, dangling)
			require.NoError(t, err)
			assert.False(t, found, "a parent reference is not an appended record")
		})
	}
}

func TestValidateSkipsEmptyLines(t *testing.T) {
	eng := testEngine(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "signals.log")
	lg, err := OpenFile(path, eng)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = lg.Append(ctx, newDispatch(t, eng, 42, "RA-001"))
	require.NoError(t, err)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("\n\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	report, err := Validate(ctx, eng, lg)
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Equal(t, 1, report.Records)
}

func TestOpenFileRequiresContainingDirectory(t *testing.T) {
	eng := testEngine(t)
	_, err := OpenFile(filepath.Join(t.TempDir(), "deep", "nested", "signals.log"), eng)
	require.Error(t, err)
	assert.Equal(t, fault.KindEnvironment, fault.KindOf(err))
}

func TestValidateMissingLogIsEnvironmentError(t *testing.T) {
	eng := testEngine(t)
	lg, err := OpenFile(filepath.Join(t.TempDir(), "absent.log"), eng)
	require.NoError(t, err)

	_, err = Validate(context.Background(), eng, lg)
	require.Error(t, err)
	assert.Equal(t, fault.KindEnvironment, fault.KindOf(err))
}

func TestSQLiteDuplicateAppendKeepsOneRow(t *testing.T) {
	eng := testEngine(t)
	lg, err := OpenSQLite(filepath.Join(t.TempDir(), "signals.db"), eng)
	require.NoError(t, err)
	defer lg.Close()
	ctx := context.Background()

	rec := newDispatch(t, eng, 42, "RA-001")
	_, err = lg.Append(ctx, rec)
	require.NoError(t, err)
	_, err = lg.Append(ctx, rec)
	require.NoError(t, err)

	var rows int
	require.NoError(t, lg.Scan(ctx, func(pos int, raw []byte) error {
		rows++
		return nil
	}))
	assert.Equal(t, 1, rows, "UNIQUE(id) makes the duplicate a no-op")
}

func TestAppendTextParsesAndStamps(t *testing.T) {
	eng := testEngine(t)
	for name, lg := range openBackends(t, eng) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			line, err := newDispatch(t, eng, 42, "RA-001").CanonicalBytes()
			require.NoError(t, err)

			stamped, err := AppendText(ctx, lg, line)
			require.NoError(t, err)
			assert.True(t, lineage.ValidID(stamped.TamperDigest))

			_, err = AppendText(ctx, lg, []byte("[1,2]"))
			require.Error(t, err)
			assert.Equal(t, fault.KindUsage, fault.KindOf(err))
		})
	}
}

func TestAppendRejectsMalformedID(t *testing.T) {
	eng := testEngine(t)
	for name, lg := range openBackends(t, eng) {
		t.Run(name, func(t *testing.T) {
			rec := newDispatch(t, eng, 42, "RA-001")
			rec.ID = "not-an-id"
			_, err := lg.Append(context.Background(), rec)
			require.Error(t, err)
			assert.Equal(t, fault.KindUsage, fault.KindOf(err))
		})
	}
}
