package ui

import (
	"fmt"
	"strings"
)

// Theme bundles palette + symbols + box borders.
// All UI helpers pull from `current`.
type Theme struct {
	Name                                          string
	Title, Muted, Accent, Success, Error, Pending string
	BoxUnchecked, BoxChecked                      string
	CornerTL, CornerTR, CornerBL, CornerBR        string
	H, V                                          string
	SymDone, SymPending                           string
}

var themes = map[string]Theme{
	"classic": {
		Name:  "classic",
		Title: bold, Muted: fgGray, Accent: fgBlue,
		Success: fgGreen, Error: fgRed, Pending: fgYellow,
		BoxUnchecked: "☐", BoxChecked: "☑",
		CornerTL: "┌", CornerTR: "┐", CornerBL: "└", CornerBR: "┘",
		H: "─", V: "│",
		SymDone: "✔", SymPending: "•",
	},
	"neon": {
		Name:  "neon",
		Title: "\033[95m", // bright magenta
		Muted: fgGray, Accent: "\033[96m",
		Success: fgGreen, Error: fgRed, Pending: "\033[93m",
		BoxUnchecked: "◻", BoxChecked: "◼",
		CornerTL: "╭", CornerTR: "╮", CornerBL: "╰", CornerBR: "╯",
		H: "─", V: "│",
		SymDone: "✔", SymPending: "•",
	},
	"mono": {
		Name:         "mono",
		BoxUnchecked: "[ ]", BoxChecked: "[x]",
		CornerTL: "+", CornerTR: "+", CornerBL: "+", CornerBR: "+",
		H: "-", V: "|",
		SymDone: "x", SymPending: "-",
	},
}

var current = themes["classic"]

// SetTheme selects classic, neon or mono. Unknown names keep the current
// theme and return an error.
func SetTheme(name string) error {
	t, ok := themes[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return fmt.Errorf("unknown theme %q (want classic, neon or mono)", name)
	}
	current = t
	if t.Name == "mono" {
		disableColor = true
	}
	return nil
}

// Current is the active theme.
func Current() Theme { return current }
