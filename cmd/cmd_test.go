package cmd

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/grovetools/exports/errors"
	"github.com/grovetools/exports/internal/exportlist/store"
	"github.com/grovetools/exports/pkg/models"
	"github.com/grovetools/exports/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestConfigShowAppliesEnvironment(t *testing.T) {
	testutil.Isolate(t)
	t.Setenv("EXPORTS_POLL_INTERVAL", "5s")

	out, err := execute(t, "config", "show", "--json")
	require.NoError(t, err)

	var cfg map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, "5s", cfg["poll"].(map[string]interface{})["interval"])
}

func TestConfigSchemaIsJSON(t *testing.T) {
	testutil.Isolate(t)

	out, err := execute(t, "config", "schema")
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(out)))
	assert.Contains(t, out, "base_url")
}

func TestMissingServerNeedsDemo(t *testing.T) {
	testutil.Isolate(t)

	_, err := execute(t, "list")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidInput, errors.GetCode(err))
}

func TestListDemoJSON(t *testing.T) {
	testutil.Isolate(t)

	out, err := execute(t, "list", "--demo", "--json", "--match", "*cases*", "--match", "Facility*")
	require.NoError(t, err)

	var entries []store.Entry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "1002", entries[0].ID)
}

func TestListRendersGroups(t *testing.T) {
	testutil.Isolate(t)

	out, err := execute(t, "list", "--demo")
	require.NoError(t, err)
	assert.Contains(t, out, "Mine")
	assert.Contains(t, out, "Others")
	assert.Contains(t, out, "Registration form")
}

func TestListFromFile(t *testing.T) {
	dir := testutil.Isolate(t)
	path := testutil.WriteDescriptorFile(t, dir, []map[string]interface{}{
		testutil.Descriptor("a", "From file", true, ""),
	})

	out, err := execute(t, "list", "--demo", "--from", path, "--json")
	require.NoError(t, err)

	var entries []store.Entry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "From file", entries[0].Name)
}

func TestToggleDemo(t *testing.T) {
	testutil.Isolate(t)

	out, err := execute(t, "toggle", "1002", "--demo", "--json")
	require.NoError(t, err)

	var res map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, true, res["isAutoRebuildEnabled"])
}

func TestToggleUnknownRecord(t *testing.T) {
	testutil.Isolate(t)

	_, err := execute(t, "toggle", "nope", "--demo")
	assert.Equal(t, errors.ErrCodeRecordNotFound, errors.GetCode(err))
}

func TestRegenerateWaitsForCompletion(t *testing.T) {
	testutil.Isolate(t)

	out, err := execute(t, "regenerate", "1002", "--demo", "--interval", "1ms", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"success": true`)
}

func TestRegenerateWithoutTask(t *testing.T) {
	testutil.Isolate(t)

	_, err := execute(t, "regenerate", "1004", "--demo")
	assert.Equal(t, errors.ErrCodeNoTask, errors.GetCode(err))
}

func TestBulkPayload(t *testing.T) {
	testutil.Isolate(t)

	out, err := execute(t, "bulk", "1004", "1001", "--demo", "--payload")
	require.NoError(t, err)

	var records []models.ExportRecord
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 2)
	assert.Equal(t, "1001", records[0].ID, "payload follows list order")
	assert.Equal(t, "1004", records[1].ID)
}

func TestBulkRequiresSelection(t *testing.T) {
	testutil.Isolate(t)

	_, err := execute(t, "bulk", "--demo")
	assert.Equal(t, errors.ErrCodeInvalidInput, errors.GetCode(err))
}

func TestBulkDownloadAll(t *testing.T) {
	testutil.Isolate(t)

	out, err := execute(t, "bulk", "--all", "--demo", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"exports": 4`)
}

func TestFilterEntriesRejectsBadPattern(t *testing.T) {
	_, err := filterEntries([]store.Entry{{}}, []string{"["})
	assert.Equal(t, errors.ErrCodeInvalidInput, errors.GetCode(err))
}

func TestStatusText(t *testing.T) {
	e := store.Entry{}
	assert.Equal(t, "no task", statusText(e))

	e.EmailedExport = &models.TaskState{TaskStatus: &models.TaskStatus{PercentComplete: 40, InProgress: true}}
	assert.Equal(t, "polling 40%", statusText(e))

	e.EmailedExport.UpdatingData = true
	assert.Equal(t, "requesting", statusText(e))
}
