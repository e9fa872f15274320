package theme

import (
	"os"

	"github.com/grovetools/exports/config"
)

// Nerd Font Icons (Private Constants)
const (
	nerdIconSuccess     = "󰄬" // md-check (U+F012C)
	nerdIconError       = ""  // cod-error (U+EA87)
	nerdIconWarning     = ""  // fa-warning (U+F071)
	nerdIconInfo        = "󰋼" // md-information (U+F02FC)
	nerdIconRunning     = ""  // fa-refresh (U+F021)
	nerdIconPending     = "󰦖" // md-progress_clock (U+F0996)
	nerdIconSelected    = "󰄲" // md-checkbox_marked (U+F0132)
	nerdIconUnselected  = "󰄱" // md-checkbox_blank_outline (U+F0131)
	nerdIconArrow       = "󰁔" // md-arrow_right (U+F0054)
	nerdIconBullet      = ""  // oct-dot_fill (U+F444)
	nerdIconDownload    = "󰇚" // md-download (U+F01DA)
	nerdIconAutoRebuild = "󰑓" // md-reload (U+F0453)
	nerdIconFilter      = "󱣬" // md-filter_check (U+F18EC)
)

// ASCII Fallback Icons (Private Constants)
const (
	asciiIconSuccess     = "✓"
	asciiIconError       = "x"
	asciiIconWarning     = "!"
	asciiIconInfo        = "i"
	asciiIconRunning     = "~"
	asciiIconPending     = "…"
	asciiIconSelected    = "[x]"
	asciiIconUnselected  = "[ ]"
	asciiIconArrow       = ">"
	asciiIconBullet      = "*"
	asciiIconDownload    = "v"
	asciiIconAutoRebuild = "@"
	asciiIconFilter      = "/"
)

// Public icons, set in init from EXPORTS_ICONS or the tui.icons config key.
var (
	IconSuccess     string
	IconError       string
	IconWarning     string
	IconInfo        string
	IconRunning     string
	IconPending     string
	IconSelected    string
	IconUnselected  string
	IconArrow       string
	IconBullet      string
	IconDownload    string
	IconAutoRebuild string
	IconFilter      string
)

func init() {
	useASCII := false

	// 1. Check environment variable first
	if os.Getenv("EXPORTS_ICONS") == "ascii" {
		useASCII = true
	} else {
		// 2. Check config file
		var tuiCfg struct {
			Icons string `yaml:"icons"`
		}
		cfg, err := config.LoadDefault()
		if err == nil && cfg.UnmarshalExtension("tui", &tuiCfg) == nil && tuiCfg.Icons == "ascii" {
			useASCII = true
		}
	}

	UseASCIIIcons(useASCII)
}

// UseASCIIIcons switches between the Nerd Font and ASCII icon sets.
func UseASCIIIcons(ascii bool) {
	if ascii {
		IconSuccess = asciiIconSuccess
		IconError = asciiIconError
		IconWarning = asciiIconWarning
		IconInfo = asciiIconInfo
		IconRunning = asciiIconRunning
		IconPending = asciiIconPending
		IconSelected = asciiIconSelected
		IconUnselected = asciiIconUnselected
		IconArrow = asciiIconArrow
		IconBullet = asciiIconBullet
		IconDownload = asciiIconDownload
		IconAutoRebuild = asciiIconAutoRebuild
		IconFilter = asciiIconFilter
		return
	}
	IconSuccess = nerdIconSuccess
	IconError = nerdIconError
	IconWarning = nerdIconWarning
	IconInfo = nerdIconInfo
	IconRunning = nerdIconRunning
	IconPending = nerdIconPending
	IconSelected = nerdIconSelected
	IconUnselected = nerdIconUnselected
	IconArrow = nerdIconArrow
	IconBullet = nerdIconBullet
	IconDownload = nerdIconDownload
	IconAutoRebuild = nerdIconAutoRebuild
	IconFilter = nerdIconFilter
}
