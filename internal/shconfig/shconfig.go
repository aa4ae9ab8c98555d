// Package shconfig loads the shell's config file: a TOML document at
// <config_dir>/config.toml with a single `[aliases]` table mapping an
// alias name to the command line it expands to (spec.md §6). A missing
// file is treated as empty, matching h2's own config.Load contract.
//
// No TOML library exists anywhere in the retrieval pack (yaml.v3 is
// the only structured-config decoder present, and YAML/TOML are
// different grammars — it can't honestly decode a .toml file), so
// this hand-rolls the one table shape the spec actually needs rather
// than pulling in an unverified dependency. yaml.v3 itself lands in
// internal/histfile instead, decoding that package's sidecar metadata
// file.
package shconfig

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config is the decoded contents of config.toml.
type Config struct {
	Aliases map[string]string
}

// ConfigDir returns the shell's configuration directory (~/.gsh/),
// matching h2's own ConfigDir idiom (h2 uses ~/.h2).
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".gsh")
	}
	return filepath.Join(home, ".gsh")
}

// DataDir returns the shell's persistent-data directory, where
// internal/histfile keeps the cross-session history log. h2 keeps a
// single ~/.gsh-shaped directory for both config and data, so this is
// the same path as ConfigDir rather than a separate XDG data home.
func DataDir() string {
	return ConfigDir()
}

// Load reads config.toml from ConfigDir().
func Load() (*Config, error) {
	return LoadFrom(filepath.Join(ConfigDir(), "config.toml"))
}

// LoadFrom reads and parses the given config.toml path. A missing file
// returns an empty, non-nil Config and no error.
func LoadFrom(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}
	defer f.Close()
	return parse(f, path)
}

func parse(r *os.File, path string) (*Config, error) {
	cfg := &Config{}
	scanner := bufio.NewScanner(r)
	section := ""
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") {
			if !strings.HasSuffix(line, "]") {
				return nil, fmt.Errorf("%s:%d: unterminated table header", path, lineNo)
			}
			section = strings.TrimSpace(line[1 : len(line)-1])
			if section == "aliases" {
				cfg.Aliases = map[string]string{}
			}
			continue
		}

		key, value, err := parseKV(line)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}

		switch section {
		case "aliases":
			cfg.Aliases[key] = value
		default:
			return nil, fmt.Errorf("%s:%d: key %q outside a recognized table", path, lineNo, key)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseKV(line string) (key, value string, err error) {
	eq := strings.IndexByte(line, '=')
	if eq < 0 {
		return "", "", fmt.Errorf("expected key = value")
	}
	key = strings.TrimSpace(line[:eq])
	raw := strings.TrimSpace(line[eq+1:])
	if len(raw) < 2 || raw[0] != '"' || raw[len(raw)-1] != '"' {
		return "", "", fmt.Errorf("value for %q must be a double-quoted string", key)
	}
	value, err = unquoteTOMLBasicString(raw)
	if err != nil {
		return "", "", fmt.Errorf("value for %q: %w", key, err)
	}
	return key, value, nil
}

// unquoteTOMLBasicString processes the subset of TOML basic-string
// escapes this config format needs: \\, \", \n, \t.
func unquoteTOMLBasicString(raw string) (string, error) {
	inner := raw[1 : len(raw)-1]
	var b strings.Builder
	b.Grow(len(inner))
	for i := 0; i < len(inner); i++ {
		c := inner[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		if i+1 >= len(inner) {
			return "", fmt.Errorf("trailing backslash")
		}
		i++
		switch inner[i] {
		case '\\':
			b.WriteByte('\\')
		case '"':
			b.WriteByte('"')
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		default:
			return "", fmt.Errorf("unsupported escape \\%c", inner[i])
		}
	}
	return b.String(), nil
}
