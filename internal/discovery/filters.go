package discovery

import (
	"strings"

	"tilewm/internal/platform"
)

// nonTileableSubroles rejects system dialogs and floating panels that are
// not part of the tileable window population (spec section 4.1).
var nonTileableSubroles = map[string]bool{
	"system-dialog":   true,
	"floating-window": true,
	"dialog":          true,
}

const minTileableDimension = 50

// passesTileabilityFilters applies the ordered filter chain from spec
// section 4.1 step 3; any failure rejects the window.
func passesTileabilityFilters(w platform.WindowInfo) bool {
	if w.Role != "window" {
		return false
	}
	if nonTileableSubroles[w.Subrole] {
		return false
	}
	if w.Minimized {
		return false
	}
	if strings.TrimSpace(w.Title) == "" {
		return false
	}
	if !w.SizeSettable {
		return false
	}
	if w.Frame.Width < minTileableDimension || w.Frame.Height < minTileableDimension {
		return false
	}
	return true
}
