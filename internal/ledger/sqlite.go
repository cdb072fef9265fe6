package ledger

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/calebraw/sigil/internal/digest"
	"github.com/calebraw/sigil/internal/fault"
	"github.com/calebraw/sigil/internal/record"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteLog is the alternative backend for deployments that want indexed
// scans instead of a review-merged text file. Same Log contract, same
// canonical record bytes; idempotency is additionally enforced by the
// UNIQUE(id) constraint.
type SQLiteLog struct {
	db  *sql.DB
	eng *digest.Engine
}

// OpenSQLite creates or opens the database. The containing directory must
// already exist, matching the file backend's refusal to create deep paths.
//
// SQLite supports one writer at a time, so the pool is pinned to a single
// connection with WAL mode for concurrent reads.
func OpenSQLite(path string, eng *digest.Engine) (*SQLiteLog, error) {
	dir := filepath.Dir(path)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil, fault.Environmentf("log directory %s does not exist", dir)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fault.Wrap(fault.KindEnvironment, "opening sqlite log", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fault.Wrap(fault.KindEnvironment, "connecting to sqlite log", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fault.Wrap(fault.KindEnvironment, fmt.Sprintf("executing %q", pragma), err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fault.Wrap(fault.KindEnvironment, "applying schema", err)
	}

	return &SQLiteLog{db: db, eng: eng}, nil
}

// Append stamps the record and inserts it. ON CONFLICT(id) DO NOTHING makes a
// duplicate append of the same identifier a no-op at the storage layer as
// well as at the caller's pre-check.
func (l *SQLiteLog) Append(ctx context.Context, rec record.Record) (record.Record, error) {
	stamped, line, err := stampForAppend(l.eng, rec)
	if err != nil {
		return rec, err
	}

	_, err = l.db.ExecContext(ctx, `
		INSERT INTO records (id, type, work_id, category, lane, issue_number, created_at, raw)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		stamped.ID,
		stamped.Type,
		stamped.WorkID,
		stamped.Category,
		stamped.Lane,
		stamped.IssueNumber,
		stamped.CreatedAt,
		string(line),
	)
	if err != nil {
		return rec, fault.Wrap(fault.KindEnvironment, "inserting record", err)
	}
	return stamped, nil
}

// Scan streams stored lines in append order.
func (l *SQLiteLog) Scan(ctx context.Context, fn func(pos int, raw []byte) error) error {
	rows, err := l.db.QueryContext(ctx, `SELECT raw FROM records ORDER BY seq ASC`)
	if err != nil {
		return fault.Wrap(fault.KindEnvironment, "querying records", err)
	}
	defer rows.Close()

	pos := 0
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return fault.Wrap(fault.KindEnvironment, "scanning record row", err)
		}
		pos++
		if err := fn(pos, []byte(raw)); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fault.Wrap(fault.KindEnvironment, "iterating records", err)
	}
	return nil
}

// Contains checks the indexed identifier column.
func (l *SQLiteLog) Contains(ctx context.Context, id string) (bool, error) {
	var one int
	err := l.db.QueryRowContext(ctx, `SELECT 1 FROM records WHERE id = ?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fault.Wrap(fault.KindEnvironment, "looking up record id", err)
	}
	return true, nil
}

// LatestMatch resolves the parent-lookup triple against the index,
// last-appended match wins.
func (l *SQLiteLog) LatestMatch(ctx context.Context, q Query) (*record.Record, int, error) {
	var count int
	err := l.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM records
		WHERE type = ? AND issue_number = ? AND work_id = ?
	`, q.Type, q.IssueNumber, q.WorkID).Scan(&count)
	if err != nil {
		return nil, 0, fault.Wrap(fault.KindEnvironment, "counting matches", err)
	}
	if count == 0 {
		return nil, 0, nil
	}

	var raw string
	err = l.db.QueryRowContext(ctx, `
		SELECT raw FROM records
		WHERE type = ? AND issue_number = ? AND work_id = ?
		ORDER BY seq DESC LIMIT 1
	`, q.Type, q.IssueNumber, q.WorkID).Scan(&raw)
	if err != nil {
		return nil, 0, fault.Wrap(fault.KindEnvironment, "reading latest match", err)
	}

	rec, err := record.Parse([]byte(raw))
	if err != nil {
		return nil, 0, err
	}
	return &rec, count, nil
}

// Close closes the database connection.
func (l *SQLiteLog) Close() error {
	if l.db == nil {
		return nil
	}
	return l.db.Close()
}
