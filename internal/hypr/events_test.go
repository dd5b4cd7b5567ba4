package hypr

import (
	"context"
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

// fakeEventSocket streams the given lines to the first connection, then
// blocks until the test finishes.
func fakeEventSocket(t *testing.T, lines []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "evt.sock")
	ln, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		for _, line := range lines {
			conn.Write([]byte(line + "\n"))
		}
		// Keep the stream open; shutdown comes from the client side.
	}()
	return path
}

func collectEvents(t *testing.T, c *Client, want int) []Event {
	t.Helper()
	var mu sync.Mutex
	var got []Event
	done := make(chan struct{})

	c.RegisterObserver(func(ev Event) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, ev)
		if len(got) == want {
			close(done)
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.StartEventListener(ctx)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out after %d events", len(got))
	}
	c.Stop()

	mu.Lock()
	defer mu.Unlock()
	return got
}

func TestEventOrderPreserved(t *testing.T) {
	sock := fakeEventSocket(t, []string{
		"workspace>>3",
		"openwindow>>0xabc,3,kitty,shell",
		"activewindow>>kitty,shell",
	})
	c := newClient(zap.NewNop(), "", sock)

	got := collectEvents(t, c, 3)

	wantKinds := []EventKind{EventWorkspaceChanged, EventWindowOpened, EventWindowFocused}
	for i, ev := range got {
		if ev.Kind != wantKinds[i] {
			t.Errorf("event %d kind = %s, want %s", i, ev.Kind, wantKinds[i])
		}
	}
	if got[0].Payload != "3" {
		t.Errorf("payload = %q, want 3", got[0].Payload)
	}
}

func TestUnknownEventPassesThroughRawName(t *testing.T) {
	sock := fakeEventSocket(t, []string{"submap>>resize"})
	c := newClient(zap.NewNop(), "", sock)

	got := collectEvents(t, c, 1)
	if got[0].Kind != "submap" || got[0].Payload != "resize" {
		t.Errorf("event = %+v", got[0])
	}
}

func TestMalformedLinesSkipped(t *testing.T) {
	sock := fakeEventSocket(t, []string{
		"garbage without separator",
		"workspace>>5",
	})
	c := newClient(zap.NewNop(), "", sock)

	got := collectEvents(t, c, 1)
	if got[0].Kind != EventWorkspaceChanged {
		t.Errorf("kind = %s", got[0].Kind)
	}
}

func TestAllObserversSeeEveryEvent(t *testing.T) {
	sock := fakeEventSocket(t, []string{
		"workspace>>1",
		"workspace>>2",
	})
	c := newClient(zap.NewNop(), "", sock)

	var mu sync.Mutex
	counts := make([]int, 3)
	done := make(chan struct{})
	for i := 0; i < 3; i++ {
		i := i
		c.RegisterObserver(func(Event) {
			mu.Lock()
			defer mu.Unlock()
			counts[i]++
			if counts[0] == 2 && counts[1] == 2 && counts[2] == 2 {
				close(done)
			}
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.StartEventListener(ctx)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("counts = %v", counts)
	}
	c.Stop()
}

func TestPanickingObserverDoesNotStopDelivery(t *testing.T) {
	sock := fakeEventSocket(t, []string{"workspace>>9"})
	c := newClient(zap.NewNop(), "", sock)

	c.RegisterObserver(func(Event) { panic("boom") })
	survived := make(chan Event, 1)
	c.RegisterObserver(func(ev Event) { survived <- ev })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.StartEventListener(ctx)

	select {
	case ev := <-survived:
		if ev.Payload != "9" {
			t.Errorf("payload = %q", ev.Payload)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("second observer never notified")
	}
	c.Stop()
}

func TestUnregisterStopsDelivery(t *testing.T) {
	c := newClient(zap.NewNop(), "", "")

	var calls int
	token := c.RegisterObserver(func(Event) { calls++ })
	c.Unregister(token)
	c.deliver("workspace", "1")
	if calls != 0 {
		t.Errorf("unregistered observer called %d times", calls)
	}
}
