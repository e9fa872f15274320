package exportlist

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/grovetools/exports/errors"
	"github.com/grovetools/exports/internal/exportlist/engine"
	"github.com/grovetools/exports/internal/exportlist/poller"
	"github.com/grovetools/exports/internal/exportlist/store"
	"github.com/grovetools/exports/pkg/exportapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keyPress(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func setup(t *testing.T) (*Model, *exportapi.MemoryClient) {
	t.Helper()
	client := exportapi.NewMemoryClient([]map[string]interface{}{
		{"id": "o1", "name": "Shared cases"},
		{"id": "m1", "name": "My forms", "my_export": true,
			"emailed_export": map[string]interface{}{"group_id": "g1"}},
	})
	eng := engine.New(client, poller.Options{
		Interval:       time.Millisecond,
		BackoffInitial: time.Millisecond,
		BackoffMax:     time.Millisecond,
	}, nil)
	require.NoError(t, eng.Fetch(context.Background()))

	m := New(context.Background(), eng, DefaultKeyMap())
	t.Cleanup(func() {
		eng.Poller().StopAll()
		eng.Idle()
		m.Close()
	})
	return m, client
}

// run executes a command and feeds its message back into the model.
func run(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	require.NotNil(t, cmd)
	m.Update(cmd())
}

func TestRowsGroupMineFirst(t *testing.T) {
	m, _ := setup(t)

	require.Len(t, m.rows, 2)
	assert.Equal(t, 1, m.mineCount)
	assert.Equal(t, "m1", m.rows[0].ID)
	assert.Equal(t, "o1", m.rows[1].ID)

	view := m.View()
	assert.Contains(t, view, "Mine")
	assert.Contains(t, view, "Others")
	assert.Contains(t, view, "My forms")
}

func TestCursorStaysInRange(t *testing.T) {
	m, _ := setup(t)

	m.Update(keyPress("k"))
	assert.Equal(t, 0, m.cursor)
	m.Update(keyPress("j"))
	m.Update(keyPress("j"))
	assert.Equal(t, 1, m.cursor)
}

func TestSelectionUpdatesBulkView(t *testing.T) {
	m, _ := setup(t)

	m.Update(keyPress(" "))
	assert.Equal(t, 1, m.engine.Bulk().View().Count)
	assert.True(t, m.rows[0].AddedToBulk)
	assert.Contains(t, m.View(), "1 selected")

	m.Update(keyPress("a"))
	assert.Equal(t, 2, m.engine.Bulk().View().Count)
	assert.Contains(t, m.View(), "2 selected")

	m.Update(keyPress("n"))
	assert.False(t, m.engine.Bulk().Visible())
	assert.NotContains(t, m.View(), "selected")
}

func TestFooterFollowsSelectionFromOutside(t *testing.T) {
	m, _ := setup(t)

	// e.g. a selection made through the HTTP view server
	require.NoError(t, m.engine.Bulk().Set("o1", true))
	assert.Equal(t, 1, m.bulkView().Count)
	assert.Contains(t, m.View(), "1 selected")
}

func TestToggleConfirmAppliesServerValue(t *testing.T) {
	m, client := setup(t)

	m.Update(keyPress("t"))
	require.True(t, m.modalOpen())
	assert.Contains(t, m.View(), "Enable automatic rebuilds")

	_, cmd := m.Update(keyPress("y"))
	run(t, m, cmd)

	assert.Equal(t, 1, client.Calls(exportapi.OpToggle, "m1"))
	assert.True(t, m.rows[0].IsAutoRebuildEnabled)
	assert.False(t, m.modalOpen())
	assert.Contains(t, m.message, "auto-rebuild on")
}

func TestToggleFailureKeepsDialogOpen(t *testing.T) {
	m, client := setup(t)
	client.ToggleFunc = func(string, bool) (exportapi.ToggleResponse, error) {
		return exportapi.ToggleResponse{}, errors.New(errors.ErrCodeTransport, "connection refused")
	}

	m.Update(keyPress("t"))
	_, cmd := m.Update(keyPress("y"))
	run(t, m, cmd)

	assert.True(t, m.modalOpen())
	assert.False(t, m.rows[0].IsAutoRebuildEnabled)
	assert.False(t, m.rows[0].ToggleBusy)
	assert.NotEmpty(t, m.rows[0].LastError)
	assert.Contains(t, m.message, string(errors.ErrCodeTransport))
}

func TestCancelClosesDialog(t *testing.T) {
	m, client := setup(t)

	m.Update(keyPress("t"))
	require.True(t, m.modalOpen())
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})

	assert.False(t, m.modalOpen())
	assert.Zero(t, client.Calls(exportapi.OpToggle, "m1"))
}

func TestRegenerateStartsPolling(t *testing.T) {
	m, client := setup(t)

	m.Update(keyPress("r"))
	require.True(t, m.modalOpen())
	_, cmd := m.Update(keyPress("y"))
	run(t, m, cmd)
	m.engine.Idle()
	m.refresh()

	assert.Equal(t, 1, client.Calls(exportapi.OpRegenerate, "m1"))
	assert.True(t, m.rows[0].Status().Success)
	assert.Contains(t, m.View(), "just finished")
}

func TestRegenerateWithoutTaskShowsMessage(t *testing.T) {
	m, client := setup(t)

	m.Update(keyPress("j"))
	m.Update(keyPress("r"))

	assert.False(t, m.modalOpen())
	assert.Contains(t, m.message, "no emailed export")
	assert.Zero(t, client.Calls(exportapi.OpRegenerate, "o1"))
}

func TestDownloadRequiresSelection(t *testing.T) {
	m, client := setup(t)

	_, cmd := m.Update(keyPress("d"))
	assert.Nil(t, cmd)
	assert.Equal(t, "nothing selected", m.message)

	m.Update(keyPress("a"))
	_, cmd = m.Update(keyPress("d"))
	run(t, m, cmd)
	require.Len(t, client.BulkForms(), 1)
	assert.Contains(t, m.message, "downloaded 2 exports")
}

func TestStoreUpdatesRefreshRows(t *testing.T) {
	m, _ := setup(t)

	require.NoError(t, m.engine.Store().SetAutoRebuild("o1", true))
	u := <-m.updates
	m.Update(updateMsg(u))

	assert.True(t, m.rows[1].IsAutoRebuildEnabled)
}

func TestReplaceForgetsDialog(t *testing.T) {
	m, _ := setup(t)

	m.Update(keyPress("t"))
	require.True(t, m.modalOpen())

	require.NoError(t, m.engine.Fetch(context.Background()))
	m.Update(updateMsg(store.Update{Type: store.UpdateReplaced}))

	assert.False(t, m.modalOpen())
	assert.Empty(t, m.modalID)
}

func TestLoadKeyMapKeepsDefaultsWithoutConfig(t *testing.T) {
	km := LoadKeyMap(nil)
	assert.Equal(t, DefaultKeyMap().Toggle.Keys(), km.Toggle.Keys())
}

func TestUpdateBindingKeepsHelp(t *testing.T) {
	km := DefaultKeyMap()
	updateBinding(&km.Toggle, []string{"T"})

	assert.Equal(t, []string{"T"}, km.Toggle.Keys())
	assert.Equal(t, "toggle auto-rebuild", km.Toggle.Help().Desc)
}
