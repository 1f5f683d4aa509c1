package injector

import (
	"os/exec"
	"time"
)

// ydotoolBackend drives a Wayland compositor through the ydotool
// daemon, preferring wl-copy for the clipboard step when present.
type ydotoolBackend struct{}

func (ydotoolBackend) Name() string { return "ydotool" }

func (b ydotoolBackend) TypeBarcode(barcode string) error {
	prev, hadPrev := saveClipboard()

	if err := b.setClipboard(barcode); err != nil {
		return wrapf(b.Name(), "set clipboard", err)
	}

	sleep(200 * time.Millisecond)

	if err := exec.Command("ydotool", "key", "ctrl+v").Run(); err != nil {
		return wrapf(b.Name(), "paste", err)
	}

	sleep(100 * time.Millisecond)

	if err := exec.Command("ydotool", "key", "enter").Run(); err != nil {
		return wrapf(b.Name(), "enter", err)
	}

	sleep(150 * time.Millisecond)
	restoreClipboard(prev, hadPrev)
	return nil
}

func (ydotoolBackend) setClipboard(barcode string) error {
	if commandExists("wl-copy") {
		return exec.Command("wl-copy", barcode).Run()
	}
	return clipboardFallback(barcode)
}
