package delivery

import (
	"testing"
	"time"
)

func TestPushThenNextFIFOOrder(t *testing.T) {
	ch := NewChannel()
	ch.Push(BarcodeEvent{Barcode: "a"})
	ch.Push(BarcodeEvent{Barcode: "b"})

	first, ok := ch.Next()
	if !ok || first.Barcode != "a" {
		t.Fatalf("got %+v ok=%v", first, ok)
	}
	second, ok := ch.Next()
	if !ok || second.Barcode != "b" {
		t.Fatalf("got %+v ok=%v", second, ok)
	}
}

func TestNextBlocksUntilPush(t *testing.T) {
	ch := NewChannel()
	done := make(chan BarcodeEvent, 1)
	go func() {
		evt, _ := ch.Next()
		done <- evt
	}()

	time.Sleep(20 * time.Millisecond)
	ch.Push(BarcodeEvent{Barcode: "012345"})

	select {
	case evt := <-done:
		if evt.Barcode != "012345" {
			t.Errorf("got %q", evt.Barcode)
		}
	case <-time.After(time.Second):
		t.Fatal("Next did not unblock after Push")
	}
}

func TestCloseUnblocksConsumer(t *testing.T) {
	ch := NewChannel()
	done := make(chan bool, 1)
	go func() {
		_, ok := ch.Next()
		done <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	ch.Close()

	select {
	case ok := <-done:
		if ok {
			t.Error("expected ok=false after Close drains an empty queue")
		}
	case <-time.After(time.Second):
		t.Fatal("Next did not unblock after Close")
	}
}

func TestPushAfterCloseIsNoOp(t *testing.T) {
	ch := NewChannel()
	ch.Close()
	ch.Push(BarcodeEvent{Barcode: "ignored"})
	if ch.Len() != 0 {
		t.Errorf("expected push after close to be dropped, got len %d", ch.Len())
	}
}
