// Package injector synthesizes a paste-and-enter keystroke sequence
// for a decoded barcode, selecting the best available OS input
// mechanism at call time and preserving the clipboard around it.
package injector

import (
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/atotto/clipboard"
)

// Backend is one OS-specific keystroke synthesis mechanism.
type Backend interface {
	// Name identifies the backend for logging.
	Name() string
	// TypeBarcode pastes barcode into the focused field and submits it.
	TypeBarcode(barcode string) error
}

// Select probes the environment and returns the first working backend,
// per the runtime polymorphism described for the Injector: Wayland
// prefers ydotool, X11 prefers xdotool, anything else falls back to the
// native backend.
func Select() Backend {
	if isWayland() {
		if commandExists("ydotool") {
			return ydotoolBackend{}
		}
		return nativeBackend{}
	}
	if commandExists("xdotool") {
		return xdotoolBackend{}
	}
	return nativeBackend{}
}

func isWayland() bool {
	return os.Getenv("XDG_SESSION_TYPE") == "wayland"
}

func commandExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// saveClipboard snapshots the current clipboard text. A missing or
// unreadable clipboard means "no restore", not an error.
func saveClipboard() (value string, hadValue bool) {
	text, err := clipboard.ReadAll()
	if err != nil {
		return "", false
	}
	return text, true
}

// restoreClipboard writes back a previously saved value. Failure is
// best-effort and never surfaced to the caller.
func restoreClipboard(value string, hadValue bool) {
	if !hadValue {
		return
	}
	_ = clipboard.WriteAll(value)
}

func sleep(d time.Duration) { time.Sleep(d) }

func clipboardFallback(barcode string) error {
	return clipboard.WriteAll(barcode)
}

func wrapf(backend, verb string, err error) error {
	return fmt.Errorf("%s: %s: %w", backend, verb, err)
}
