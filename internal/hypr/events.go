package hypr

import (
	"bufio"
	"context"
	"net"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// RegisterObserver adds an event observer and returns a token for
// Unregister. Observers see every event in arrival order.
func (c *Client) RegisterObserver(obs Observer) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	c.observers[c.nextID] = obs
	return c.nextID
}

// Unregister removes a previously registered observer.
func (c *Client) Unregister(token int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.observers, token)
}

// Stop signals the event listener to exit after its current read.
// Safe to call more than once.
func (c *Client) Stop() {
	c.stopOnce.Do(func() { close(c.stopped) })
}

// StartEventListener connects to the push socket and delivers parsed
// events to every observer until the context is cancelled or Stop is
// called. Connection loss is retried after a fixed delay, indefinitely.
func (c *Client) StartEventListener(ctx context.Context) {
	c.log.Info("starting hyprland event listener", zap.String("socket", c.eventSocket))

	for {
		if c.done(ctx) {
			return
		}

		conn, err := net.DialTimeout("unix", c.eventSocket, commandTimeout)
		if err != nil {
			c.log.Error("event socket connect failed", zap.Error(err))
			if !c.sleep(ctx, reconnectDelay) {
				return
			}
			continue
		}

		c.log.Info("connected to hyprland event socket")
		c.readEvents(ctx, conn)
		conn.Close()

		if c.done(ctx) {
			return
		}
		c.log.Warn("event socket closed, reconnecting", zap.Duration("delay", reconnectDelay))
		if !c.sleep(ctx, reconnectDelay) {
			return
		}
	}
}

// readEvents consumes newline-delimited EVENT>>DATA records until the
// connection drops or shutdown is requested.
func (c *Client) readEvents(ctx context.Context, conn net.Conn) {
	// Closing the connection is what unblocks the scanner on shutdown.
	watch := make(chan struct{})
	defer close(watch)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-c.stopped:
			conn.Close()
		case <-watch:
		}
	}()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := scanner.Text()
		name, payload, ok := strings.Cut(line, ">>")
		if !ok {
			continue
		}
		c.deliver(name, payload)
	}
	if err := scanner.Err(); err != nil && !c.done(ctx) {
		c.log.Error("event stream read error", zap.Error(err))
	}
}

// deliver maps the vendor event name and fans the event out. An observer
// panic or error must never stop delivery to the rest.
func (c *Client) deliver(name, payload string) {
	kind, ok := eventKinds[name]
	if !ok {
		kind = EventKind(name)
	}
	ev := Event{Kind: kind, Payload: payload}
	c.log.Debug("event", zap.String("kind", string(kind)), zap.String("payload", payload))

	c.mu.Lock()
	tokens := make([]int, 0, len(c.observers))
	for id := range c.observers {
		tokens = append(tokens, id)
	}
	sort.Ints(tokens)
	observers := make([]Observer, 0, len(tokens))
	for _, id := range tokens {
		observers = append(observers, c.observers[id])
	}
	c.mu.Unlock()

	for _, obs := range observers {
		c.safeNotify(obs, ev)
	}
}

func (c *Client) safeNotify(obs Observer, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("event observer panicked", zap.Any("panic", r), zap.String("kind", string(ev.Kind)))
		}
	}()
	obs(ev)
}

func (c *Client) done(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	case <-c.stopped:
		return true
	default:
		return false
	}
}

func (c *Client) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-c.stopped:
		return false
	case <-t.C:
		return true
	}
}
