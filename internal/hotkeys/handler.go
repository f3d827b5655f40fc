package hotkeys

import (
	"log/slog"
	"sync"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"

	"tilewm/internal/platform"
)

// x11Accessor is an optional interface for backends that expose X11
// internals needed to grab global key sequences. Only X11Backend
// implements it; on darwin there is no AppleScript-reachable equivalent to
// a system-wide hotkey grab, so Handler is simply never constructed there
// and no hotkey actions reach the daemon's dispatcher.
type x11Accessor interface {
	XUtil() *xgbutil.XUtil
	RootWindow() xproto.Window
}

// Handler is the X11 reference implementation of the hotkey dispatcher
// collaborator (spec.md section 6.2): it grabs global key sequences and
// turns key-press events into Action values delivered to a Dispatcher.
type Handler struct {
	xu         *xgbutil.XUtil
	root       xproto.Window
	dispatcher Dispatcher
	logger     *slog.Logger
}

var ignoreModsOnce sync.Once

// NewHandler constructs a Handler if backend exposes X11 internals; ok is
// false otherwise (e.g. running against the darwin backend).
func NewHandler(backend platform.Backend, dispatcher Dispatcher, logger *slog.Logger) (h *Handler, ok bool) {
	accessor, ok := backend.(x11Accessor)
	if !ok {
		return nil, false
	}
	xu, root := accessor.XUtil(), accessor.RootWindow()

	ignoreModsOnce.Do(func() {
		configureIgnoreMods(xu)
	})

	return &Handler{xu: xu, root: root, dispatcher: dispatcher, logger: logger}, true
}

// defaultBindings maps key sequences to actions. A real macOS deployment
// would source these from a system-level global hotkey registration
// instead; persistent user-configurable bindings are a spec Non-goal, so
// this table is fixed.
var defaultBindings = map[string]Action{
	"Mod4-h":      ActionMoveLeft,
	"Mod4-l":      ActionMoveRight,
	"Mod4-k":      ActionMoveUp,
	"Mod4-j":      ActionMoveDown,
	"Mod4-Return": ActionPromoteToMaster,
	"Mod4-r":      ActionReload,
	"Mod4-q":      ActionQuit,
}

// RegisterDefaults grabs every binding in defaultBindings.
func (h *Handler) RegisterDefaults() error {
	for seq, action := range defaultBindings {
		if err := h.register(seq, action); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) register(keySequence string, action Action) error {
	return keybind.KeyPressFun(func(xu *xgbutil.XUtil, ev xevent.KeyPressEvent) {
		h.logger.Debug("hotkey fired", "sequence", keySequence, "action", action)
		h.dispatcher.Dispatch(action)
	}).Connect(h.xu, h.root, keySequence, true)
}

func configureIgnoreMods(xu *xgbutil.XUtil) {
	// Always ignore CapsLock.
	caps := uint16(xproto.ModMaskLock)

	numLock := modMaskForKeysym(xu, "Num_Lock")
	scrollLock := modMaskForKeysym(xu, "Scroll_Lock")

	unique := make(map[uint16]struct{})
	add := func(mask uint16) {
		unique[mask] = struct{}{}
	}

	add(0)
	base := []uint16{caps}
	if numLock != 0 && numLock != caps {
		base = append(base, numLock)
	}
	if scrollLock != 0 && scrollLock != caps && scrollLock != numLock {
		base = append(base, scrollLock)
	}

	for subset := 1; subset < (1 << len(base)); subset++ {
		var mask uint16
		for bit := range base {
			if subset&(1<<bit) != 0 {
				mask |= base[bit]
			}
		}
		add(mask)
	}

	ignore := make([]uint16, 0, len(unique))
	for mask := range unique {
		ignore = append(ignore, mask)
	}

	xevent.IgnoreMods = ignore
}

func modMaskForKeysym(xu *xgbutil.XUtil, keysym string) uint16 {
	for _, keycode := range keybind.StrToKeycodes(xu, keysym) {
		if mask := keybind.ModGet(xu, keycode); mask != 0 {
			return mask
		}
	}
	return 0
}
