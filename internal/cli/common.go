package cli

import (
	"strings"

	"github.com/calebraw/sigil/internal/digest"
	"github.com/calebraw/sigil/internal/fault"
	"github.com/calebraw/sigil/internal/ledger"
)

// Backend names accepted by --backend.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// selectEngine picks the digest backend once per invocation.
func selectEngine() (*digest.Engine, error) {
	return digest.Select()
}

// openLog binds the requested ledger backend.
func openLog(path, backend string, eng *digest.Engine) (ledger.Log, error) {
	if path == "" {
		return nil, fault.Usagef("--log is required")
	}
	switch strings.TrimSpace(backend) {
	case "", BackendFile:
		return ledger.OpenFile(path, eng)
	case BackendSQLite:
		return ledger.OpenSQLite(path, eng)
	default:
		return nil, fault.Usagef("unknown backend %q (want %s or %s)", backend, BackendFile, BackendSQLite)
	}
}
