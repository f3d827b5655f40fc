package layout

import "time"

// Bit-exact constants from spec section 6.3. These are not user-configurable:
// persistent user configuration and user-configurable layouts are explicit
// non-goals, so these live as Go constants rather than config fields.
const (
	// Gap is the spacing inset applied around and between tiled windows.
	Gap float64 = 12
	// ZombieTTL is how long a window missing from a discovery snapshot keeps
	// its slot before being permanently dropped.
	ZombieTTL = 2 * time.Second
	// StackMin is the minimum width reserved for the stack column.
	StackMin float64 = 400
	// DefaultMinMasterWidth is the master-slot minimum width for apps with
	// no entry in appMinWidths.
	DefaultMinMasterWidth float64 = 400
	// MovementDeadZone is the per-component threshold below which a newly
	// computed target rectangle is considered unchanged from the cached one.
	MovementDeadZone float64 = 1
	// NewWindowSettle is the deferral applied to applyLayout when a
	// discovery snapshot introduces a previously unseen window id.
	NewWindowSettle = 50 * time.Millisecond
	// ApplyLayoutDebounce coalesces rapid external applyLayout triggers
	// (e.g. move/resize observers).
	ApplyLayoutDebounce = 500 * time.Millisecond
)

// appMinWidths holds known per-application minimum master widths (spec
// section 4.2.3).
var appMinWidths = map[string]float64{
	"Xcode":            950,
	"Music":            600,
	"Spotify":          550,
	"Discord":          500,
	"System Settings":  600,
	"Brave Browser":    500,
	"Google Chrome":    500,
	"WhatsApp":         500,
	"Messages":         450,
}

// desiredMinWidth returns the minimum master width for an app, falling
// back to DefaultMinMasterWidth when the app has no entry.
func desiredMinWidth(appName string) float64 {
	if w, ok := appMinWidths[appName]; ok {
		return w
	}
	return DefaultMinMasterWidth
}
