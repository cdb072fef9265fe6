// Package laneconf reads the per-lane settings files and the static
// category-to-lane table.
//
// A settings file is flat, line-oriented `key: value` text: `#` starts a
// full-line comment, an unquoted value is cut at a trailing ` #` comment, and
// a value may be single- or double-quoted to carry `#` or leading and
// trailing spaces. The first matching key wins. A missing key with no
// supplied default is an error.
//
// The settings grammar is deliberately not YAML (first-match-wins and
// trailing-comment stripping are not YAML semantics), so it is parsed here;
// the lane table, which is plain data, ships as embedded YAML.
package laneconf

import (
	"bufio"
	"bytes"
	_ "embed"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/calebraw/sigil/internal/fault"
)

//go:embed lanes.yaml
var defaultLanesYAML []byte

type laneTable struct {
	Lanes map[string]string `yaml:"lanes"`
}

// Lookup finds the first matching key in settings-file content.
func Lookup(data []byte, key string) (string, bool) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, v, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		if strings.TrimSpace(k) != key {
			continue
		}
		return cleanValue(v), true
	}
	return "", false
}

// cleanValue strips surrounding whitespace, an optional trailing comment, and
// optional quoting from a raw settings value.
func cleanValue(v string) string {
	v = strings.TrimSpace(v)
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') {
		if end := strings.IndexByte(v[1:], v[0]); end >= 0 {
			return v[1 : end+1]
		}
	}
	if i := strings.Index(v, " #"); i >= 0 {
		v = v[:i]
	} else if i := strings.Index(v, "\t#"); i >= 0 {
		v = v[:i]
	}
	return strings.TrimSpace(v)
}

// Get reads one required key from a settings file.
func Get(path, key string) (string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", fault.Environmentf("settings file %s does not exist", path)
	}
	if err != nil {
		return "", fault.Wrap(fault.KindEnvironment, "reading settings file", err)
	}
	v, ok := Lookup(data, key)
	if !ok {
		return "", fault.Usagef("key %q not found in %s and no default supplied", key, path)
	}
	return v, nil
}

// GetDefault reads one key from a settings file, falling back to def when the
// key is absent. A missing file is still an environment error.
func GetDefault(path, key, def string) (string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", fault.Environmentf("settings file %s does not exist", path)
	}
	if err != nil {
		return "", fault.Wrap(fault.KindEnvironment, "reading settings file", err)
	}
	if v, ok := Lookup(data, key); ok {
		return v, nil
	}
	return def, nil
}

// LaneTable maps categories to their lane. With an empty path the embedded
// default table is used; otherwise the YAML file at path overrides it.
func LaneTable(path string) (map[string]string, error) {
	data := defaultLanesYAML
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fault.Wrap(fault.KindEnvironment, "reading lane table", err)
		}
	}

	var table laneTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fault.Wrap(fault.KindEnvironment, "parsing lane table", err)
	}
	if len(table.Lanes) == 0 {
		return nil, fault.Environmentf("lane table is empty")
	}
	return table.Lanes, nil
}

// ResolveLane finds the lane for a category via the static lookup table.
func ResolveLane(tablePath, category string) (string, error) {
	table, err := LaneTable(tablePath)
	if err != nil {
		return "", err
	}
	lane, ok := table[category]
	if !ok {
		return "", fault.Usagef("category %q has no lane in the lookup table", category)
	}
	return lane, nil
}
