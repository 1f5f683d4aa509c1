//go:build linux

package injector

import (
	"time"

	"github.com/bendahl/uinput"
)

// nativeBackend synthesizes Ctrl+V and Enter directly through a virtual
// uinput keyboard device. This is the cross-platform fallback path on
// Linux; macOS and Windows have no equivalent in this build (see
// unsupportedBackend in native_other.go — this file only compiles on
// linux, so there is no collision).
type nativeBackend struct{}

func (nativeBackend) Name() string { return "native" }

func (b nativeBackend) TypeBarcode(barcode string) error {
	prev, hadPrev := saveClipboard()

	if err := clipboardFallback(barcode); err != nil {
		return wrapf(b.Name(), "set clipboard", err)
	}

	sleep(150 * time.Millisecond)

	kb, err := uinput.CreateKeyboard("/dev/uinput", []byte("scanlinkd"))
	if err != nil {
		return wrapf(b.Name(), "open uinput keyboard", err)
	}
	defer kb.Close()

	if err := kb.KeyDown(uinput.KeyLeftctrl); err != nil {
		return wrapf(b.Name(), "press ctrl", err)
	}
	sleep(30 * time.Millisecond)
	if err := kb.KeyPress(uinput.KeyV); err != nil {
		return wrapf(b.Name(), "press v", err)
	}
	sleep(30 * time.Millisecond)
	if err := kb.KeyUp(uinput.KeyLeftctrl); err != nil {
		return wrapf(b.Name(), "release ctrl", err)
	}

	sleep(100 * time.Millisecond)

	if err := kb.KeyPress(uinput.KeyEnter); err != nil {
		return wrapf(b.Name(), "press enter", err)
	}

	sleep(150 * time.Millisecond)
	restoreClipboard(prev, hadPrev)
	return nil
}
