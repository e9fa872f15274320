// Package exportlist is the interactive terminal view of the export list.
package exportlist

import (
	"context"
	"sync"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/grovetools/exports/internal/exportlist/bulk"
	"github.com/grovetools/exports/internal/exportlist/engine"
	"github.com/grovetools/exports/internal/exportlist/store"
)

// Model represents the state of the export list TUI.
// Record state is always read from the engine's store; the model only keeps
// the cursor, the dialog it is showing and the last action result.
type Model struct {
	ctx     context.Context
	engine  *engine.Engine
	keys    KeyMap
	help    help.Model
	bar     progress.Model
	updates chan store.Update

	// Footer state pushed by the bulk aggregator.
	bulkMu   sync.Mutex
	bulk     bulk.View
	stopBulk func()

	rows      []store.Entry // Mine first, then Others
	mineCount int
	cursor    int

	// Dialog currently shown, if its store modal is open.
	modalKind store.ModalKind
	modalID   string

	message string
	width   int
	height  int
}

// New creates a model over eng. ctx bounds the requests the model issues.
func New(ctx context.Context, eng *engine.Engine, keys KeyMap) *Model {
	m := &Model{
		ctx:     ctx,
		engine:  eng,
		keys:    keys,
		help:    help.New(),
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(20), progress.WithoutPercentage()),
		updates: eng.Store().Subscribe(),
	}
	m.bulkMu.Lock()
	m.stopBulk = eng.Bulk().Subscribe(m.setBulk)
	m.bulk = eng.Bulk().View()
	m.bulkMu.Unlock()
	m.refresh()
	return m
}

// Init starts listening for store updates.
func (m *Model) Init() tea.Cmd {
	return m.waitForUpdate()
}

// Close releases the store and bulk view subscriptions.
func (m *Model) Close() {
	m.stopBulk()
	m.engine.Store().Unsubscribe(m.updates)
}

// setBulk runs on whichever goroutine changed the selection.
func (m *Model) setBulk(v bulk.View) {
	m.bulkMu.Lock()
	m.bulk = v
	m.bulkMu.Unlock()
}

func (m *Model) bulkView() bulk.View {
	m.bulkMu.Lock()
	defer m.bulkMu.Unlock()
	return m.bulk
}

type updateMsg store.Update

// actionMsg reports the outcome of a request issued from the list.
type actionMsg struct {
	op  string
	id  string
	err error
	out string
}

func (m *Model) waitForUpdate() tea.Cmd {
	ch := m.updates
	return func() tea.Msg {
		u, ok := <-ch
		if !ok {
			return nil
		}
		return updateMsg(u)
	}
}

// refresh reloads the rows from the store and keeps the cursor in range.
func (m *Model) refresh() {
	entries := m.engine.Store().Entries()
	rows := make([]store.Entry, 0, len(entries))
	for _, e := range entries {
		if e.MyExport {
			rows = append(rows, e)
		}
	}
	m.mineCount = len(rows)
	for _, e := range entries {
		if !e.MyExport {
			rows = append(rows, e)
		}
	}
	m.rows = rows

	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// current returns the entry under the cursor.
func (m *Model) current() (store.Entry, bool) {
	if len(m.rows) == 0 {
		return store.Entry{}, false
	}
	return m.rows[m.cursor], true
}

// modalKey returns the store key of the shown dialog, or "".
func (m *Model) modalKey() string {
	if m.modalID == "" {
		return ""
	}
	rec, err := m.engine.Store().Get(m.modalID)
	if err != nil {
		return ""
	}
	return store.ModalKey(m.modalKind, m.modalID, rec.GroupID())
}

// modalOpen reports whether a dialog is shown.
func (m *Model) modalOpen() bool {
	k := m.modalKey()
	return k != "" && m.engine.Store().IsModalOpen(k)
}
