package discovery

import "time"

// Bit-exact constants from spec section 6.3 governing scan cadence.
const (
	// Period is the interval between periodic background scans.
	Period = 1500 * time.Millisecond
	// BurstCount is the number of forced-visibility scans fired after a
	// disruptive transition (space switch, window throw).
	BurstCount = 7
	// BurstInterval is the spacing between burst scans.
	BurstInterval = 200 * time.Millisecond
)

// browserWhitelist lists applications whose web renderers mis-report their
// on-screen visibility during transitions; they are always trusted via
// geometry intersection instead of the compositor oracle (spec section 4.1).
var browserWhitelist = map[string]bool{
	"Brave Browser": true,
	"Google Chrome": true,
	"Arc":           true,
	"Safari":        true,
	"Firefox":       true,
	"Microsoft Edge": true,
}

func isBrowserWhitelisted(appName string) bool {
	return browserWhitelist[appName]
}
