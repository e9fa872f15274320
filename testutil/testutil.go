// Package testutil holds helpers shared by the exports tests.
package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// Isolate runs the test in an empty working directory with no global
// configuration and quiet logging. It returns the directory.
func Isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv("EXPORTS_LOG_LEVEL", "error")
	t.Chdir(dir)
	return dir
}

// Descriptor builds a raw export descriptor. A non-empty groupID attaches an
// emailed export.
func Descriptor(id, name string, mine bool, groupID string) map[string]interface{} {
	d := map[string]interface{}{
		"id":       id,
		"name":     name,
		"myExport": mine,
	}
	if groupID != "" {
		d["emailedExport"] = map[string]interface{}{
			"groupId":               groupID,
			"isLocationSafeForUser": true,
		}
	}
	return d
}

// WriteDescriptorFile writes descriptors as JSON into dir and returns the path.
func WriteDescriptorFile(t *testing.T, dir string, descriptors []map[string]interface{}) string {
	t.Helper()
	data, err := json.Marshal(descriptors)
	require.NoError(t, err)

	f, err := os.CreateTemp(dir, "exports-*.json")
	require.NoError(t, err)
	defer f.Close()
	_, err = f.Write(data)
	require.NoError(t, err)
	return f.Name()
}
