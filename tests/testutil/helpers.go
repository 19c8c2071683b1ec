// Package testutil provides shared test helpers used across integration
// and e2e test packages.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// RepoRoot returns the absolute path to the repository root by walking
// up from the current working directory. It fails the test if the
// working directory cannot be determined.
func RepoRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	require.NoError(t, err)
	return filepath.Clean(filepath.Join(dir, "..", ".."))
}

// CopyFixture copies fixtures/<name> into a fresh temp dir so a run can
// write next to its inputs.
func CopyFixture(t *testing.T, name string) string {
	t.Helper()
	dst := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.CopyFS(dst, os.DirFS(filepath.Join(RepoRoot(t), "fixtures", name))))
	return dst
}

// ReadGolden compares actual with testdata/golden/<name>, writing the golden
// file on first run so it can be committed.
func ReadGolden(t *testing.T, goldenDir string, name string, actual []byte) []byte {
	t.Helper()
	goldenPath := filepath.Join(goldenDir, name)
	if _, err := os.Stat(goldenPath); os.IsNotExist(err) {
		require.NoError(t, os.MkdirAll(filepath.Dir(goldenPath), 0o755))
		require.NoError(t, os.WriteFile(goldenPath, actual, 0o644))
		t.Logf("golden file written: %s (commit it)", goldenPath)
		return actual
	}
	expected, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	return expected
}
