package exportlist

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/grovetools/exports/config"
)

// KeyMap holds the bindings of the export list.
type KeyMap struct {
	Up         key.Binding
	Down       key.Binding
	Select     key.Binding
	SelectAll  key.Binding
	SelectNone key.Binding
	Toggle     key.Binding
	Regenerate key.Binding
	Download   key.Binding
	Confirm    key.Binding
	Cancel     key.Binding
	Help       key.Binding
	Quit       key.Binding
}

// DefaultKeyMap returns the stock vim-style bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "down"),
		),
		Select: key.NewBinding(
			key.WithKeys(" ", "space"),
			key.WithHelp("space", "select"),
		),
		SelectAll: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "select all"),
		),
		SelectNone: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "select none"),
		),
		Toggle: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "toggle auto-rebuild"),
		),
		Regenerate: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "regenerate"),
		),
		Download: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "bulk download"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("y", "enter"),
			key.WithHelp("y", "confirm"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc", "N"),
			key.WithHelp("esc", "cancel"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// LoadKeyMap applies overrides from the `tui.keybindings` section of the
// config, e.g. `toggle: ["T", "ctrl+t"]`. Unknown actions are ignored.
func LoadKeyMap(cfg *config.Config) KeyMap {
	km := DefaultKeyMap()
	if cfg == nil {
		return km
	}

	var tuiCfg struct {
		Keybindings map[string][]string `yaml:"keybindings"`
	}
	if err := cfg.UnmarshalExtension("tui", &tuiCfg); err != nil {
		return km
	}

	bindings := map[string]*key.Binding{
		"up":          &km.Up,
		"down":        &km.Down,
		"select":      &km.Select,
		"select_all":  &km.SelectAll,
		"select_none": &km.SelectNone,
		"toggle":      &km.Toggle,
		"regenerate":  &km.Regenerate,
		"download":    &km.Download,
		"confirm":     &km.Confirm,
		"cancel":      &km.Cancel,
		"help":        &km.Help,
		"quit":        &km.Quit,
	}
	for action, keys := range tuiCfg.Keybindings {
		if b, ok := bindings[strings.ToLower(action)]; ok {
			updateBinding(b, keys)
		}
	}
	return km
}

// updateBinding replaces the keys of a binding while preserving its help text.
func updateBinding(binding *key.Binding, keys []string) {
	if len(keys) == 0 {
		return
	}
	desc := binding.Help().Desc
	*binding = key.NewBinding(
		key.WithKeys(keys...),
		key.WithHelp(strings.Join(keys, "/"), desc),
	)
}

// ShortHelp returns the bindings shown in the footer.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Select, k.Toggle, k.Regenerate, k.Download, k.Help, k.Quit}
}

// FullHelp returns every binding, grouped by column.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down},
		{k.Select, k.SelectAll, k.SelectNone, k.Download},
		{k.Toggle, k.Regenerate, k.Confirm, k.Cancel},
		{k.Help, k.Quit},
	}
}
