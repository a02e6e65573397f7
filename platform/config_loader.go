// config_loader.go implements a minimal TOML-style parser for board
// configuration files. Only the subset needed by Config is supported:
// [section] headers, key = value pairs, quoted strings, integers with
// optional 0x prefix and underscores, and # comments.

package platform

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// LoadConfigFile reads a config file and applies it on top of base.
func LoadConfigFile(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read config: %w", err)
	}
	cfg, err := LoadConfig(data, base)
	if err != nil {
		return base, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadConfig parses a TOML-like configuration and applies every key it sets
// on top of base. The parser handles [section] headers and key = value
// pairs; integers may be written in decimal or with a 0x/0o/0b prefix and
// may contain underscores.
//
//	[memory]
//	ram_base   = 0x0100_0000
//	ram_size   = 65536
//	debug_base = 0x0300_0000
//
//	[loader]
//	load_offset = 0
//	format      = "elf"
//
//	[run]
//	max_steps = 1_000_000
//
//	[log]
//	level  = "debug"
//	format = "text"
func LoadConfig(data []byte, base Config) (Config, error) {
	cfg := base
	section := ""

	lines := strings.Split(string(data), "\n")
	for lineNum, raw := range lines {
		line := strings.TrimSpace(stripComment(raw))

		if line == "" {
			continue
		}

		// Section header.
		if line[0] == '[' {
			end := strings.Index(line, "]")
			if end < 0 {
				return base, fmt.Errorf("line %d: unclosed section header", lineNum+1)
			}
			section = strings.TrimSpace(line[1:end])
			continue
		}

		eqIdx := strings.Index(line, "=")
		if eqIdx < 0 {
			return base, fmt.Errorf("line %d: expected key = value", lineNum+1)
		}
		key := strings.TrimSpace(line[:eqIdx])
		val := strings.TrimSpace(line[eqIdx+1:])

		if err := applyConfigValue(&cfg, section, key, val, lineNum+1); err != nil {
			return base, err
		}
	}
	return cfg, nil
}

// stripComment drops everything from the first # that is not inside a
// quoted string.
func stripComment(s string) string {
	inQuote := false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			inQuote = !inQuote
		case '#':
			if !inQuote {
				return s[:i]
			}
		}
	}
	return s
}

func applyConfigValue(cfg *Config, section, key, val string, lineNum int) error {
	switch section {
	case "memory":
		return applyMemory(cfg, key, val, lineNum)
	case "loader":
		return applyLoader(cfg, key, val, lineNum)
	case "run":
		return applyRun(cfg, key, val, lineNum)
	case "log":
		return applyLog(cfg, key, val, lineNum)
	case "":
		return fmt.Errorf("line %d: key %q outside of a section", lineNum, key)
	default:
		return fmt.Errorf("line %d: unknown section [%s]", lineNum, section)
	}
}

func applyMemory(cfg *Config, key, val string, lineNum int) error {
	n, err := parseUint32(val)
	if err != nil {
		return fmt.Errorf("line %d: invalid %s: %w", lineNum, key, err)
	}
	switch key {
	case "ram_base":
		cfg.RAMBase = n
	case "ram_size":
		cfg.RAMSize = n
	case "debug_base":
		cfg.DebugBase = n
	default:
		return fmt.Errorf("line %d: unknown key %q in [memory]", lineNum, key)
	}
	return nil
}

func applyLoader(cfg *Config, key, val string, lineNum int) error {
	switch key {
	case "load_offset":
		n, err := parseUint32(val)
		if err != nil {
			return fmt.Errorf("line %d: invalid load_offset: %w", lineNum, err)
		}
		cfg.LoadOffset = n
	case "format":
		cfg.Format = unquote(val)
	default:
		return fmt.Errorf("line %d: unknown key %q in [loader]", lineNum, key)
	}
	return nil
}

func applyRun(cfg *Config, key, val string, lineNum int) error {
	switch key {
	case "max_steps":
		n, err := strconv.ParseUint(val, 0, 64)
		if err != nil {
			return fmt.Errorf("line %d: invalid max_steps: %w", lineNum, err)
		}
		cfg.MaxSteps = n
	default:
		return fmt.Errorf("line %d: unknown key %q in [run]", lineNum, key)
	}
	return nil
}

func applyLog(cfg *Config, key, val string, lineNum int) error {
	switch key {
	case "level":
		cfg.LogLevel = unquote(val)
	case "format":
		cfg.LogFormat = unquote(val)
	default:
		return fmt.Errorf("line %d: unknown key %q in [log]", lineNum, key)
	}
	return nil
}

func parseUint32(val string) (uint32, error) {
	n, err := strconv.ParseUint(val, 0, 32)
	if err != nil {
		return 0, err
	}
	return uint32(n), nil
}

// unquote strips surrounding double quotes from a string value.
func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
