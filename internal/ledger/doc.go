// Package ledger provides append-only storage for signal records behind a
// small injectable Log interface, so the backing store can be swapped without
// touching the hashing or envelope logic.
//
// Physical position in the log is advisory only. Causal order is carried
// explicitly through each record's parent set and must be checked logically;
// "does this id already exist" and "find the most recent matching parent" are
// explicit read operations on the interface for exactly that reason.
//
// Two backends implement the Log interface:
//   - FileLog: one canonical JSON record per line, opened per operation
//   - SQLiteLog: a records table with a UNIQUE id column, so a duplicate
//     append is absorbed by ON CONFLICT(id) DO NOTHING
//
// Every append goes through the same stamping pipeline: normalize, check
// the ID shape, stamp the tamper digest, canonicalize, and validate the
// record shape. Nothing reaches disk unstamped.
//
// # Validation
//
// Validate replays the whole log and checks every position independently:
// tamper digest, record shape, and parent resolution. All failing positions
// are accumulated and reported together; a log passes only with zero
// failures.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability and performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
package ledger
