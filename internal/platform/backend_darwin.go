//go:build darwin

package platform

import (
	"bytes"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// subscriptionPollInterval is the polling period Subscribe uses to detect
// out-of-band moves and resizes, since AppleScript exposes no push
// notification for window geometry. Coarser than the animator's own writes
// so a manually dragged window is still caught well within one
// ApplyLayoutDebounce window.
const subscriptionPollInterval = 500 * time.Millisecond

// DarwinBackend implements Backend against the real Accessibility API by
// shelling out to osascript. No cgo/AXUIElement bindings exist anywhere in
// this project's dependency set, and driving System Events through
// AppleScript is the only idiomatic-Go way to reach the accessibility tree
// without cgo (see the same technique for a narrower purpose in
// window_darwin.go among the reference material this project was built
// from). Every accessibility read or write here is one osascript process
// spawn; this is the "slow, unpredictable sink" the animator's backpressure
// design (spec section 4.3.2) exists to protect against.
type DarwinBackend struct{}

var _ Backend = (*DarwinBackend)(nil)

// NewDarwinBackend returns a Backend backed by System Events.
func NewDarwinBackend() *DarwinBackend {
	return &DarwinBackend{}
}

const (
	fieldSep  = "\x1f"
	recordSep = "\x1e"
)

func runOsascript(script string) (string, error) {
	cmd := exec.Command("osascript", "-e", script)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("osascript: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// Trusted probes accessibility trust by attempting a harmless System Events
// query; AppleScript raises an error when the calling process lacks
// accessibility permission.
func (b *DarwinBackend) Trusted() bool {
	_, err := runOsascript(`tell application "System Events" to return name of first process`)
	return err == nil
}

// darwinHandle addresses a window by owning process id, owning app name and
// title. Window number is carried when available for a tighter identity
// check but is not required for re-addressing, since AppleScript can select
// "the window whose name is X" within a named process.
type darwinHandle struct {
	pid          int
	appName      string
	title        string
	windowNumber WindowID
	hasNumber    bool
}

func (h darwinHandle) String() string {
	return fmt.Sprintf("darwin:%s[%d]:%q", h.appName, h.pid, h.title)
}

func (h darwinHandle) Equal(other Handle) bool {
	o, ok := other.(darwinHandle)
	if !ok {
		return false
	}
	if h.hasNumber && o.hasNumber {
		return h.pid == o.pid && h.windowNumber == o.windowNumber
	}
	return h.pid == o.pid && h.appName == o.appName && h.title == o.title
}

// Applications enumerates regular, non-hidden application processes.
func (b *DarwinBackend) Applications() ([]AppInfo, error) {
	script := `tell application "System Events"
set outText to ""
repeat with p in (every application process whose background only is false and visible is true)
	set outText to outText & (unix id of p as string) & "` + fieldSep + `" & (name of p) & "` + fieldSep + `" & (bundle identifier of p) & "` + recordSep + `"
end repeat
return outText
end tell`

	out, err := runOsascript(script)
	if err != nil {
		return nil, fmt.Errorf("enumerate applications: %w", err)
	}

	var apps []AppInfo
	for _, rec := range strings.Split(out, recordSep) {
		rec = strings.TrimSpace(rec)
		if rec == "" {
			continue
		}
		fields := strings.Split(rec, fieldSep)
		if len(fields) != 3 {
			continue
		}
		pid, err := strconv.Atoi(strings.TrimSpace(fields[0]))
		if err != nil {
			continue
		}
		apps = append(apps, AppInfo{
			PID:      pid,
			Name:     fields[1],
			BundleID: fields[2],
		})
	}
	return apps, nil
}

// AppWindows reads the accessibility window list for one application.
func (b *DarwinBackend) AppWindows(app AppInfo) ([]WindowInfo, error) {
	appName := escapeAppleScriptString(app.Name)
	script := `tell application "System Events"
set outText to ""
tell process "` + appName + `"
	repeat with w in windows
		set roleVal to role of w
		set subroleVal to ""
		try
			set subroleVal to subrole of w
		end try
		set minimizedVal to false
		try
			set minimizedVal to value of attribute "AXMinimized" of w
		end try
		set titleVal to ""
		try
			set titleVal to name of w
		end try
		set posVal to position of w
		set sizeVal to size of w
		set settableVal to true
		try
			set settableVal to settable of attribute "AXSize" of w
		end try
		set numberVal to ""
		try
			set numberVal to (id of w) as string
		end try
		set outText to outText & roleVal & "` + fieldSep + `" & subroleVal & "` + fieldSep + `" & (minimizedVal as string) & "` + fieldSep + `" & titleVal & "` + fieldSep + `" & (item 1 of posVal as string) & "` + fieldSep + `" & (item 2 of posVal as string) & "` + fieldSep + `" & (item 1 of sizeVal as string) & "` + fieldSep + `" & (item 2 of sizeVal as string) & "` + fieldSep + `" & (settableVal as string) & "` + fieldSep + `" & numberVal & "` + recordSep + `"
	end repeat
end tell
end tell
return outText`

	out, err := runOsascript(script)
	if err != nil {
		return nil, fmt.Errorf("read windows of %s: %w", app.Name, err)
	}

	var windows []WindowInfo
	for _, rec := range strings.Split(out, recordSep) {
		rec = strings.TrimSpace(rec)
		if rec == "" {
			continue
		}
		fields := strings.Split(rec, fieldSep)
		if len(fields) != 10 {
			continue
		}
		x, _ := strconv.ParseFloat(strings.TrimSpace(fields[4]), 64)
		y, _ := strconv.ParseFloat(strings.TrimSpace(fields[5]), 64)
		w, _ := strconv.ParseFloat(strings.TrimSpace(fields[6]), 64)
		h, _ := strconv.ParseFloat(strings.TrimSpace(fields[7]), 64)

		var windowNumber WindowID
		hasNumber := false
		if n, err := strconv.Atoi(strings.TrimSpace(fields[9])); err == nil && n != 0 {
			windowNumber = WindowID(n)
			hasNumber = true
		}

		info := WindowInfo{
			Handle: darwinHandle{
				pid:          app.PID,
				appName:      app.Name,
				title:        fields[3],
				windowNumber: windowNumber,
				hasNumber:    hasNumber,
			},
			OwnerPID:        app.PID,
			OwnerName:       app.Name,
			OwnerBundleID:   app.BundleID,
			Role:            fields[0],
			Subrole:         fields[1],
			Minimized:       strings.EqualFold(strings.TrimSpace(fields[2]), "true"),
			Title:           fields[3],
			Frame:           Rect{X: x, Y: y, Width: w, Height: h},
			SizeSettable:    !strings.EqualFold(strings.TrimSpace(fields[8]), "false"),
			WindowNumber:    windowNumber,
			HasWindowNumber: hasNumber,
		}
		windows = append(windows, info)
	}
	return windows, nil
}

// OnScreenWindowIDs approximates the compositor's on-screen set by
// collecting, through System Events, the id of every window of every
// non-background application process. It does not read the window server's
// own list and applies no layer filter.
func (b *DarwinBackend) OnScreenWindowIDs() (map[WindowID]struct{}, error) {
	script := `tell application "System Events"
set outText to ""
repeat with p in (every application process whose background only is false)
	repeat with w in windows of p
		try
			set outText to outText & ((id of w) as string) & "` + recordSep + `"
		end try
	end repeat
end repeat
return outText
end tell`

	out, err := runOsascript(script)
	if err != nil {
		return nil, fmt.Errorf("on-screen windows: %w", err)
	}

	ids := make(map[WindowID]struct{})
	for _, rec := range strings.Split(out, recordSep) {
		rec = strings.TrimSpace(rec)
		if rec == "" {
			continue
		}
		if n, err := strconv.Atoi(rec); err == nil {
			ids[WindowID(n)] = struct{}{}
		}
	}
	return ids, nil
}

// PrimaryScreenFrame returns the main screen's usable bounds.
func (b *DarwinBackend) PrimaryScreenFrame() (Rect, error) {
	script := `tell application "Finder" to get bounds of window of desktop`
	out, err := runOsascript(script)
	if err != nil {
		return Rect{}, fmt.Errorf("primary screen frame: %w", err)
	}
	return parseFinderBounds(out)
}

// Screens returns only the primary screen: multi-monitor cross-display
// support is an explicit non-goal (spec section 1).
func (b *DarwinBackend) Screens() ([]Screen, error) {
	frame, err := b.PrimaryScreenFrame()
	if err != nil {
		return nil, err
	}
	return []Screen{{ID: 0, Bounds: frame}}, nil
}

// FocusedWindow reads the frontmost process's focused window.
func (b *DarwinBackend) FocusedWindow() (WindowInfo, bool, error) {
	script := `tell application "System Events"
set frontApp to first application process whose frontmost is true
return (unix id of frontApp as string) & "` + fieldSep + `" & (name of frontApp) & "` + fieldSep + `" & (bundle identifier of frontApp)
end tell`
	out, err := runOsascript(script)
	if err != nil {
		return WindowInfo{}, false, fmt.Errorf("focused app: %w", err)
	}
	fields := strings.Split(strings.TrimSpace(out), fieldSep)
	if len(fields) != 3 {
		return WindowInfo{}, false, nil
	}
	pid, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil {
		return WindowInfo{}, false, nil
	}
	app := AppInfo{PID: pid, Name: fields[1], BundleID: fields[2]}

	windows, err := b.AppWindows(app)
	if err != nil || len(windows) == 0 {
		return WindowInfo{}, false, err
	}
	return windows[0], true, nil
}

// FrameOf re-reads a window's current position and size via its owning
// process and title.
func (b *DarwinBackend) FrameOf(h Handle) (Rect, error) {
	dh, err := asDarwinHandle(h)
	if err != nil {
		return Rect{}, err
	}
	script := `tell application "System Events"
tell process "` + escapeAppleScriptString(dh.appName) + `"
	set w to (first window whose name is "` + escapeAppleScriptString(dh.title) + `")
	set posVal to position of w
	set sizeVal to size of w
	return (item 1 of posVal as string) & "` + fieldSep + `" & (item 2 of posVal as string) & "` + fieldSep + `" & (item 1 of sizeVal as string) & "` + fieldSep + `" & (item 2 of sizeVal as string)
end tell
end tell`
	out, err := runOsascript(script)
	if err != nil {
		return Rect{}, fmt.Errorf("read frame of %s: %w", dh, err)
	}
	fields := strings.Split(strings.TrimSpace(out), fieldSep)
	if len(fields) != 4 {
		return Rect{}, fmt.Errorf("unexpected frame format for %s: %q", dh, out)
	}
	x, _ := strconv.ParseFloat(strings.TrimSpace(fields[0]), 64)
	y, _ := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
	w, _ := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
	h2, _ := strconv.ParseFloat(strings.TrimSpace(fields[3]), 64)
	return Rect{X: x, Y: y, Width: w, Height: h2}, nil
}

// SetPosition writes a window's position by re-addressing it via its owning
// process and title.
func (b *DarwinBackend) SetPosition(h Handle, x, y float64) error {
	dh, err := asDarwinHandle(h)
	if err != nil {
		return err
	}
	script := `tell application "System Events"
tell process "` + escapeAppleScriptString(dh.appName) + `"
	set position of (first window whose name is "` + escapeAppleScriptString(dh.title) + `") to {` + fmtFloat(x) + `, ` + fmtFloat(y) + `}
end tell
end tell`
	_, err = runOsascript(script)
	if err != nil {
		return fmt.Errorf("set position of %s: %w", dh, err)
	}
	return nil
}

// SetSize writes a window's size by re-addressing it via its owning process
// and title.
func (b *DarwinBackend) SetSize(h Handle, width, height float64) error {
	dh, err := asDarwinHandle(h)
	if err != nil {
		return err
	}
	script := `tell application "System Events"
tell process "` + escapeAppleScriptString(dh.appName) + `"
	set size of (first window whose name is "` + escapeAppleScriptString(dh.title) + `") to {` + fmtFloat(width) + `, ` + fmtFloat(height) + `}
end tell
end tell`
	_, err = runOsascript(script)
	if err != nil {
		return fmt.Errorf("set size of %s: %w", dh, err)
	}
	return nil
}

// Subscribe has no AppleScript-reachable equivalent of AXObserver
// notifications, so it polls FrameOf on subscriptionPollInterval and
// compares against the last-seen rectangle, firing onMoved/onResized on the
// components that changed (spec section 6.1).
func (b *DarwinBackend) Subscribe(h Handle, onMoved, onResized func()) (unsubscribe func()) {
	stop := make(chan struct{})

	go func() {
		ticker := time.NewTicker(subscriptionPollInterval)
		defer ticker.Stop()

		last, lastErr := b.FrameOf(h)
		haveLast := lastErr == nil
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				current, err := b.FrameOf(h)
				if err != nil {
					continue
				}
				if haveLast {
					if current.X != last.X || current.Y != last.Y {
						onMoved()
					}
					if current.Width != last.Width || current.Height != last.Height {
						onResized()
					}
				}
				last, haveLast = current, true
			}
		}
	}()

	return func() { close(stop) }
}

func asDarwinHandle(h Handle) (darwinHandle, error) {
	dh, ok := h.(darwinHandle)
	if !ok {
		return darwinHandle{}, fmt.Errorf("handle %v is not a darwin handle", h)
	}
	return dh, nil
}

func escapeAppleScriptString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}

func fmtFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 0, 64)
}

// parseFinderBounds parses AppleScript's "{x1, y1, x2, y2}" bounds list into
// a Rect.
func parseFinderBounds(s string) (Rect, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Rect{}, fmt.Errorf("unexpected bounds format: %q", s)
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Rect{}, fmt.Errorf("parse bounds component %q: %w", p, err)
		}
		vals[i] = v
	}
	return Rect{X: vals[0], Y: vals[1], Width: vals[2] - vals[0], Height: vals[3] - vals[1]}, nil
}
