// Package gate is the admission control for cross-category work requests:
// one category may not fabricate requests addressed to a category it is not
// authorized to address.
package gate

import (
	"path/filepath"
	"strings"

	"github.com/calebraw/sigil/internal/fault"
	"github.com/calebraw/sigil/internal/laneconf"
)

// AllowlistKey is the settings key holding the lane's allow-list: a
// comma-separated list of source->target pairs.
const AllowlistKey = "request_allowlist"

// Pair renders the canonical source->target form.
func Pair(source, target string) string {
	return strings.TrimSpace(source) + "->" + strings.TrimSpace(target)
}

// Authorize requires the exact (trimmed) pair to appear in the allow-list.
// Any other pair fails before any log mutation occurs.
func Authorize(allowlist, source, target string) error {
	pair := Pair(source, target)
	for _, entry := range strings.Split(allowlist, ",") {
		if strings.TrimSpace(entry) == pair {
			return nil
		}
	}
	return fault.Usagef("request %s is not in the lane allow-list", pair)
}

// LoadAllowlist reads the allow-list from the lane's settings file,
// <configDir>/<lane>.conf.
func LoadAllowlist(configDir, lane string) (string, error) {
	return laneconf.Get(filepath.Join(configDir, lane+".conf"), AllowlistKey)
}

// AuthorizeRequest resolves the requesting category's lane, loads that lane's
// allow-list, and checks the pair. Returns the resolved lane on success.
func AuthorizeRequest(configDir, tablePath, source, target string) (string, error) {
	lane, err := laneconf.ResolveLane(tablePath, source)
	if err != nil {
		return "", err
	}
	allowlist, err := LoadAllowlist(configDir, lane)
	if err != nil {
		return "", err
	}
	if err := Authorize(allowlist, source, target); err != nil {
		return "", err
	}
	return lane, nil
}
