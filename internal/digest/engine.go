// Package digest provides the single hashing choke point for sigil.
//
// Every identifier and tamper digest in the system is a lowercase 64-hex
// SHA-256, identical across platforms and independent of locale. The engine
// selects among registered backends at startup; if none is available it fails
// immediately rather than falling back to a weaker or ad hoc scheme.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
	"sync"

	"github.com/calebraw/sigil/internal/fault"
)

// HexLen is the length of a lowercase hex SHA-256 digest.
const HexLen = 64

// Backend is one SHA-256 implementation the engine can select.
type Backend struct {
	// Name identifies the backend in diagnostics.
	Name string

	// Available reports whether the backend can be used in this process.
	// nil means always available.
	Available func() bool

	// New returns a fresh hash state.
	New func() hash.Hash
}

var (
	registryMu sync.Mutex
	registry   []Backend
)

func init() {
	Register(Backend{
		Name: "go/crypto-sha256",
		New:  sha256.New,
	})
}

// Register adds a backend to the selection list. Backends are tried in
// registration order.
func Register(b Backend) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = append(registry, b)
}

// Engine computes digests using one selected backend.
type Engine struct {
	backend Backend
}

// Select returns an engine bound to the first available backend.
// Absence of any backend is a fatal environment error, not a runtime
// condition to recover from.
func Select() (*Engine, error) {
	registryMu.Lock()
	defer registryMu.Unlock()

	for _, b := range registry {
		if b.Available == nil || b.Available() {
			return &Engine{backend: b}, nil
		}
	}
	return nil, fault.Environmentf("no sha256 backend available (%d registered)", len(registry))
}

// NewEngine binds an engine to an explicit backend, bypassing selection.
// Used by tests to prove cross-backend determinism.
func NewEngine(b Backend) *Engine {
	return &Engine{backend: b}
}

// BackendName reports which backend the engine selected.
func (e *Engine) BackendName() string {
	return e.backend.Name
}

// Sum returns the lowercase hex SHA-256 of data.
func (e *Engine) Sum(data []byte) string {
	h := e.backend.New()
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SumString returns the lowercase hex SHA-256 of s.
func (e *Engine) SumString(s string) string {
	return e.Sum([]byte(s))
}

// SumReader returns the lowercase hex SHA-256 of everything read from r.
func (e *Engine) SumReader(r io.Reader) (string, error) {
	h := e.backend.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fault.Wrap(fault.KindEnvironment, "hashing input stream", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
