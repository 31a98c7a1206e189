// config.go: Configuration parsing utilities for rotating file sinks
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0
package sink

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// sizeUnit is one entry in the suffix table ParseSize walks. No suffix in
// the table ends with another one, so the order of the entries does not
// change which one matches. A bare "B" suffix is not in the table.
type sizeUnit struct {
	suffix     string
	multiplier int64
}

var sizeUnits = []sizeUnit{
	{"TB", 1024 * 1024 * 1024 * 1024},
	{"GB", 1024 * 1024 * 1024},
	{"MB", 1024 * 1024},
	{"KB", 1024},
	{"T", 1024 * 1024 * 1024 * 1024},
	{"G", 1024 * 1024 * 1024},
	{"M", 1024 * 1024},
	{"K", 1024},
}

// ParseSize converts human size strings such as "100MB" or "1GB", as used
// for a sink's MaxSizeStr, to bytes. A bare number is read as bytes
// directly.
func ParseSize(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty size string")
	}
	if val, err := strconv.ParseInt(s, 10, 64); err == nil {
		return val, nil
	}

	upper := strings.ToUpper(s)
	for _, u := range sizeUnits {
		if !strings.HasSuffix(upper, u.suffix) {
			continue
		}
		numStr := upper[:len(upper)-len(u.suffix)]
		val, err := strconv.ParseInt(numStr, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid size number in %q: %v", s, err)
		}
		result := val * u.multiplier
		if result < val {
			return 0, fmt.Errorf("size %q too large", s)
		}
		return result, nil
	}
	return 0, fmt.Errorf("unknown size suffix in %q (supported: KB/K, MB/M, GB/G, TB/T)", s)
}

type durationUnit struct {
	suffix     string
	multiplier time.Duration
}

var durationUnits = []durationUnit{
	{"w", 7 * 24 * time.Hour},
	{"y", 365 * 24 * time.Hour},
	{"d", 24 * time.Hour},
}

// ParseDuration converts a sink's human retention windows (MaxAgeStr,
// MaxBackupAgeStr: "7d", "24h", "30d") to a time.Duration. Anything
// time.ParseDuration already accepts is tried first, so "1h30m" works
// unchanged alongside the day/week/year extensions.
func ParseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("empty duration string")
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}

	lower := strings.ToLower(s)
	for _, u := range durationUnits {
		if !strings.HasSuffix(lower, u.suffix) {
			continue
		}
		numStr := lower[:len(lower)-len(u.suffix)]
		val, err := strconv.ParseInt(numStr, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration number in %q: %v", s, err)
		}
		return time.Duration(val) * u.multiplier, nil
	}
	return 0, fmt.Errorf("unknown duration suffix in %q", s)
}

// resolveSinkPath sanitizes and length-checks the path a Sink will open,
// folding both checks into the one call initFile needs rather than exposing
// them as separately reusable steps: a sink only ever resolves its own
// output path once, at Open time.
func resolveSinkPath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("invalid path: %v", err)
	}

	limit := 4096
	if runtime.GOOS == "windows" {
		limit = 260
	}
	if n := len(absPath); n > limit {
		return "", fmt.Errorf("path too long: %d characters (limit: %d)", n, limit)
	}

	dir := filepath.Dir(path)
	base := sanitizeFilename(filepath.Base(path))
	return filepath.Join(dir, base), nil
}

// sanitizeFilename strips characters the target OS's filesystem rejects or
// mishandles: Windows-reserved punctuation and control characters on
// Windows, just the NUL byte elsewhere.
func sanitizeFilename(filename string) string {
	if runtime.GOOS != "windows" {
		return strings.ReplaceAll(filename, "\x00", "_")
	}

	var b strings.Builder
	b.Grow(len(filename))
	for _, r := range filename {
		switch {
		case r < 32:
			b.WriteRune('_')
		case strings.ContainsRune(`<>:"|?*`, r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
