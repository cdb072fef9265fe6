package ledger

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"path/filepath"

	"github.com/calebraw/sigil/internal/digest"
	"github.com/calebraw/sigil/internal/fault"
	"github.com/calebraw/sigil/internal/record"
)

// FileLog is the primary backend: one canonical record per line, UTF-8,
// newline terminated, in a shared text file.
//
// No locking is taken. Each record is self-contained and terminator
// delimited, so interleaved appends from two processes still yield a
// well-formed sequence; the only hazard is a torn write from a mid-append
// crash. Access is serialized upstream (review merge), not arbitrated here.
type FileLog struct {
	path string
	eng  *digest.Engine
}

// OpenFile binds a file-backed log. The containing directory must already
// exist; deep paths are never created implicitly.
func OpenFile(path string, eng *digest.Engine) (*FileLog, error) {
	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, fault.Environmentf("log directory %s does not exist", dir)
	}
	if err != nil {
		return nil, fault.Wrap(fault.KindEnvironment, "checking log directory", err)
	}
	if !info.IsDir() {
		return nil, fault.Environmentf("log location %s is not a directory", dir)
	}
	return &FileLog{path: path, eng: eng}, nil
}

// Path returns the ledger file path.
func (l *FileLog) Path() string {
	return l.path
}

// Append stamps and appends exactly one record plus a line terminator.
func (l *FileLog) Append(ctx context.Context, rec record.Record) (record.Record, error) {
	if err := ctx.Err(); err != nil {
		return rec, err
	}

	stamped, line, err := stampForAppend(l.eng, rec)
	if err != nil {
		return rec, err
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return rec, fault.Wrap(fault.KindEnvironment, "opening log for append", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return rec, fault.Wrap(fault.KindEnvironment, "appending record", err)
	}
	return stamped, nil
}

// Scan streams every line of the log. A missing log is an environment error.
func (l *FileLog) Scan(ctx context.Context, fn func(pos int, raw []byte) error) error {
	f, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return fault.Environmentf("log %s does not exist", l.path)
	}
	if err != nil {
		return fault.Wrap(fault.KindEnvironment, "opening log", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	pos := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		pos++
		// Stored bytes are delivered untouched (the scanner strips only the
		// line terminator) so validation sees exactly what is on disk.
		raw := append([]byte(nil), scanner.Bytes()...)
		if err := fn(pos, raw); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fault.Wrap(fault.KindEnvironment, "reading log", err)
	}
	return nil
}

// Contains reports whether a record carrying the identifier exists.
// An absent log simply contains nothing yet.
func (l *FileLog) Contains(ctx context.Context, id string) (bool, error) {
	if _, err := os.Stat(l.path); os.IsNotExist(err) {
		return false, nil
	}

	found := false
	// Anchored to the id field of the canonical line, so an identifier that
	// occurs only inside another record's parent list does not count. Keeps
	// duplicate detection in agreement with the sqlite backend's id column.
	needle := []byte(`"id":"` + id + `"`)
	err := l.Scan(ctx, func(pos int, raw []byte) error {
		if bytes.Contains(raw, needle) {
			found = true
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

// LatestMatch scans for the most recently appended record matching q.
// Unparsable lines are skipped here; Validate is the place they get reported.
func (l *FileLog) LatestMatch(ctx context.Context, q Query) (*record.Record, int, error) {
	var last *record.Record
	count := 0

	err := l.Scan(ctx, func(pos int, raw []byte) error {
		if len(raw) == 0 {
			return nil
		}
		rec, err := record.Parse(raw)
		if err != nil {
			return nil
		}
		if matchesQuery(rec, q) {
			count++
			last = &rec
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return last, count, nil
}

// Close is a no-op for the file backend; the file is opened per operation.
func (l *FileLog) Close() error {
	return nil
}
