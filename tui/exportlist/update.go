package exportlist

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/grovetools/exports/errors"
	"github.com/grovetools/exports/internal/exportlist/store"
)

const (
	opToggle     = "toggle"
	opRegenerate = "regenerate"
	opDownload   = "download"
)

// Update handles messages and updates the model accordingly.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case updateMsg:
		if store.Update(msg).Type == store.UpdateReplaced {
			m.modalID = ""
		}
		m.refresh()
		return m, m.waitForUpdate()

	case actionMsg:
		m.refresh()
		if msg.err != nil {
			m.message = fmt.Sprintf("%s failed [%s]: %v", msg.op, errors.GetCode(msg.err), msg.err)
		} else {
			m.message = msg.out
		}
		return m, nil

	case tea.KeyMsg:
		m.refresh()
		if m.help.ShowAll {
			m.help.ShowAll = false
			return m, nil
		}
		if m.modalOpen() {
			return m.updateModal(msg)
		}
		return m.updateList(msg)
	}

	return m, nil
}

func (m *Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = true

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.Select):
		if e, ok := m.current(); ok {
			if _, err := m.engine.Bulk().Flip(e.ID); err != nil {
				m.message = err.Error()
			}
			m.refresh()
		}

	case key.Matches(msg, m.keys.SelectAll):
		m.engine.Bulk().SelectAll()
		m.refresh()

	case key.Matches(msg, m.keys.SelectNone):
		m.engine.Bulk().SelectNone()
		m.refresh()

	case key.Matches(msg, m.keys.Toggle):
		if e, ok := m.current(); ok && !e.ToggleBusy {
			m.openModal(store.ModalAutoRefresh, e)
		}

	case key.Matches(msg, m.keys.Regenerate):
		e, ok := m.current()
		if !ok {
			break
		}
		if !e.HasTask() {
			m.message = fmt.Sprintf("%s has no emailed export", e.Name)
			break
		}
		if e.EmailedExport.UpdatingData {
			break
		}
		m.openModal(store.ModalRefreshConfirm, e)

	case key.Matches(msg, m.keys.Download):
		if !m.engine.Bulk().Visible() {
			m.message = "nothing selected"
			break
		}
		return m, m.download()
	}

	return m, nil
}

func (m *Model) updateModal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Cancel):
		m.engine.Store().CloseModal(m.modalKey())
		m.modalID = ""

	case key.Matches(msg, m.keys.Confirm):
		id := m.modalID
		switch m.modalKind {
		case store.ModalAutoRefresh:
			if e, err := m.engine.Store().Entry(id); err == nil && e.ToggleBusy {
				return m, nil
			}
			return m, m.toggle(id)
		case store.ModalRefreshConfirm:
			return m, m.regenerate(id)
		}
	}
	return m, nil
}

func (m *Model) openModal(kind store.ModalKind, e store.Entry) {
	m.modalKind = kind
	m.modalID = e.ID
	m.message = ""
	m.engine.Store().OpenModal(store.ModalKey(kind, e.ID, e.GroupID()))
}

func (m *Model) toggle(id string) tea.Cmd {
	ctx, toggles := m.ctx, m.engine.Toggles()
	return func() tea.Msg {
		enabled, err := toggles.Toggle(ctx, id)
		state := "off"
		if enabled {
			state = "on"
		}
		return actionMsg{op: opToggle, id: id, err: err, out: fmt.Sprintf("auto-rebuild %s for %s", state, id)}
	}
}

func (m *Model) regenerate(id string) tea.Cmd {
	ctx, toggles := m.ctx, m.engine.Toggles()
	return func() tea.Msg {
		err := toggles.RequestRegeneration(ctx, id)
		return actionMsg{op: opRegenerate, id: id, err: err, out: fmt.Sprintf("regenerating %s", id)}
	}
}

func (m *Model) download() tea.Cmd {
	ctx, agg, client := m.ctx, m.engine.Bulk(), m.engine.Client()
	return func() tea.Msg {
		res, err := agg.Download(ctx, client)
		return actionMsg{op: opDownload, err: err, out: fmt.Sprintf("downloaded %d exports to %s", res.Exports, res.Filename)}
	}
}
