package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApplyConfigFile(t *testing.T) {
	flag.String("config_test_name", "default", "")
	SetTestFlag(t, "config_test_name", "default")

	dir := t.TempDir()
	path := filepath.Join(dir, "cachekit.conf")
	require.NoError(t, os.WriteFile(path, []byte("# comment\n\nconfig_test_name = from_file\n"), 0o644))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	require.NoError(t, applyConfigFile(f))
	require.Equal(t, "from_file", flag.Lookup("config_test_name").Value.String())
}

func TestApplyConfigFileMalformedLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.conf")
	require.NoError(t, os.WriteFile(path, []byte("not_a_key_value_pair\n"), 0o644))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	require.Error(t, applyConfigFile(f))
}
