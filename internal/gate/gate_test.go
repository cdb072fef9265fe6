package gate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calebraw/sigil/internal/fault"
)

func TestAuthorizeExactPair(t *testing.T) {
	allowlist := "analysis->drafting, research->analysis"

	assert.NoError(t, Authorize(allowlist, "analysis", "drafting"))
	assert.NoError(t, Authorize(allowlist, "research", "analysis"))
	assert.NoError(t, Authorize(allowlist, " analysis ", "drafting"), "pair is trimmed")
}

func TestAuthorizeRejectsAnyOtherPair(t *testing.T) {
	allowlist := "analysis->drafting"

	tests := []struct{ source, target string }{
		{"drafting", "analysis"}, // reversed
		{"analysis", "release"},
		{"analysis", "draft"}, // prefix of an allowed target
		{"", ""},
	}
	for _, tt := range tests {
		err := Authorize(allowlist, tt.source, tt.target)
		require.Error(t, err, "%s->%s", tt.source, tt.target)
		assert.Equal(t, fault.KindUsage, fault.KindOf(err))
	}
}

func TestAuthorizeEmptyAllowlist(t *testing.T) {
	err := Authorize("", "analysis", "drafting")
	require.Error(t, err)
	assert.Equal(t, fault.KindUsage, fault.KindOf(err))
}

func writeLaneConf(t *testing.T, dir, lane, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, lane+".conf"), []byte(content), 0o644))
}

func TestAuthorizeRequestEndToEnd(t *testing.T) {
	dir := t.TempDir()
	writeLaneConf(t, dir, "insight", "request_allowlist: analysis->drafting\n")

	lane, err := AuthorizeRequest(dir, "", "analysis", "drafting")
	require.NoError(t, err)
	assert.Equal(t, "insight", lane)
}

func TestAuthorizeRequestDeniedPair(t *testing.T) {
	dir := t.TempDir()
	writeLaneConf(t, dir, "insight", "request_allowlist: analysis->drafting\n")

	_, err := AuthorizeRequest(dir, "", "analysis", "release")
	require.Error(t, err)
	assert.Equal(t, fault.KindUsage, fault.KindOf(err))
}

func TestAuthorizeRequestUnknownCategory(t *testing.T) {
	_, err := AuthorizeRequest(t.TempDir(), "", "cartography", "drafting")
	require.Error(t, err)
	assert.Equal(t, fault.KindUsage, fault.KindOf(err))
}

func TestAuthorizeRequestMissingLaneSettings(t *testing.T) {
	_, err := AuthorizeRequest(t.TempDir(), "", "analysis", "drafting")
	require.Error(t, err)
	assert.Equal(t, fault.KindEnvironment, fault.KindOf(err))
}

func TestAuthorizeRequestMissingAllowlistKey(t *testing.T) {
	dir := t.TempDir()
	writeLaneConf(t, dir, "insight", "other_key: x\n")

	_, err := AuthorizeRequest(dir, "", "analysis", "drafting")
	require.Error(t, err)
	assert.Equal(t, fault.KindUsage, fault.KindOf(err))
}
