package injector

import (
	"os/exec"
	"time"
)

// xdotoolBackend drives an X11 session through xdotool.
type xdotoolBackend struct{}

func (xdotoolBackend) Name() string { return "xdotool" }

func (b xdotoolBackend) TypeBarcode(barcode string) error {
	prev, hadPrev := saveClipboard()

	if err := clipboardFallback(barcode); err != nil {
		return wrapf(b.Name(), "set clipboard", err)
	}

	sleep(100 * time.Millisecond)

	if err := exec.Command("xdotool", "key", "ctrl+v").Run(); err != nil {
		return wrapf(b.Name(), "paste", err)
	}

	sleep(50 * time.Millisecond)

	if err := exec.Command("xdotool", "key", "Return").Run(); err != nil {
		return wrapf(b.Name(), "enter", err)
	}

	sleep(150 * time.Millisecond)
	restoreClipboard(prev, hadPrev)
	return nil
}
