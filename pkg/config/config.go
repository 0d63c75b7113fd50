// cachekit configures itself from flags and, optionally, a flat key=value file, following the
// layering the teacher's kiwi used (a config file that sets flags, rather than bypassing them).
// Dropping kiwi's protobuf-backed .txtpb format (SPEC_FULL.md §3: no generated proto bindings
// are available to this module) in favor of a plain newline-delimited key=value file, applied
// to already-defined flags via flag.Set the same way kiwi's setConfigFlags did per-field.
package config

import (
	"bufio"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var configFilePath = flag.String("config_file", "", "Path to an optional key=value configuration file.")

// InitFlags parses the command line and, if -config_file names an existing file, applies its
// key=value lines as flag.Set calls before returning. It should be called once at startup,
// after all flags are defined.
func InitFlags() {
	flag.Parse()

	if *configFilePath == "" {
		return
	}

	f, err := os.Open(*configFilePath)
	if os.IsNotExist(err) {
		slog.Warn("Config file does not exist, skipping.", "path", *configFilePath)
		return
	} else if err != nil {
		slog.Error("Failed to open config file.", "error", err)
		return
	}
	defer func() { _ = f.Close() }()

	if err := applyConfigFile(f); err != nil {
		slog.Error("Failed to apply config file.", "error", err)
	}
}

// applyConfigFile reads key=value lines from r and flag.Sets each one. Blank lines and lines
// starting with # are ignored. Unknown flag names are reported but do not abort the rest of
// the file, so one typo doesn't blank out every other setting.
func applyConfigFile(r *os.File) error {
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("config: line %d: expected key=value, got %q", lineNo, line)
		}
		name, value = strings.TrimSpace(name), strings.TrimSpace(value)
		if err := flag.Set(name, value); err != nil {
			slog.Error("Ignoring unknown config key.", "line", lineNo, "key", name, "error", err)
			continue
		}
	}
	return scanner.Err()
}

// SetTestFlag sets a flag to a specific value for the duration of the test, restoring the
// previous value on cleanup.
func SetTestFlag(t *testing.T, name, value string) {
	t.Helper()
	flagHolder := flag.Lookup(name)
	require.NotNil(t, flagHolder, "Flag %s not found", name)
	prevValue := flagHolder.Value.String()
	t.Cleanup(func() { require.NoError(t, flag.Set(name, prevValue)) })
	require.NoError(t, flag.Set(name, value))
}
