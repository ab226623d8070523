// Package reliability guards against dispatching the same message twice
package reliability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/sirosfoundation/go-digipost/pkg/message"
)

// DefaultWindow is how long a completed send is remembered
const DefaultWindow = 24 * time.Hour

// SendFunc dispatches a message and returns the resulting state
type SendFunc func(ctx context.Context) (*message.DeliveryState, error)

// TrackedSend is a send observed by this process
type TrackedSend struct {
	Key        string
	State      *message.DeliveryState
	RecordedAt time.Time
}

// SendTracker remembers terminal delivery states by key. A key identifies one
// message of one sender. A message that has been sent once is never
// dispatched again while it is remembered, and concurrent sends of the same
// key share one dispatch.
type SendTracker struct {
	mu     sync.RWMutex
	sends  map[string]*TrackedSend
	window time.Duration
	now    func() time.Time

	group singleflight.Group

	cleanupInterval time.Duration
	stop            chan struct{}
	stopOnce        sync.Once
}

// TrackerOption configures a SendTracker
type TrackerOption func(*SendTracker)

// WithClock replaces the time source
func WithClock(now func() time.Time) TrackerOption {
	return func(t *SendTracker) {
		t.now = now
	}
}

// WithCleanupInterval starts a goroutine that drops expired sends at the given
// interval until Close is called
func WithCleanupInterval(d time.Duration) TrackerOption {
	return func(t *SendTracker) {
		t.cleanupInterval = d
	}
}

// NewSendTracker creates a tracker that remembers sends for window
func NewSendTracker(window time.Duration, opts ...TrackerOption) *SendTracker {
	if window <= 0 {
		window = DefaultWindow
	}
	tracker := &SendTracker{
		sends:  make(map[string]*TrackedSend),
		window: window,
		now:    time.Now,
		stop:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(tracker)
	}
	if tracker.cleanupInterval > 0 {
		go tracker.cleanupLoop(tracker.cleanupInterval)
	}
	return tracker
}

// Key returns the tracker key of a message
func Key(senderID, messageID string) string {
	return senderID + "/" + messageID
}

// Record remembers a terminal state under key
func (t *SendTracker) Record(key string, state *message.DeliveryState) error {
	if state == nil || !state.IsTerminal() {
		return fmt.Errorf("only terminal states can be recorded")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.sends[key] = &TrackedSend{
		Key:        key,
		State:      state,
		RecordedAt: t.now(),
	}
	return nil
}

// Lookup returns the remembered terminal state for key
func (t *SendTracker) Lookup(key string) (*message.DeliveryState, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	tracked, exists := t.sends[key]
	if !exists || t.now().Sub(tracked.RecordedAt) >= t.window {
		return nil, false
	}
	return tracked.State, true
}

// Forget removes a key from the tracker
func (t *SendTracker) Forget(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.sends, key)
}

// Len returns the number of remembered sends, expired or not
func (t *SendTracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sends)
}

// Dispatch calls send unless the message has already been sent by this
// process. It reports whether send was called by this invocation. A failed
// send is not remembered.
func (t *SendTracker) Dispatch(ctx context.Context, key string, send SendFunc) (*message.DeliveryState, bool, error) {
	if state, ok := t.Lookup(key); ok {
		return state, false, nil
	}

	dispatched := false
	ch := t.group.DoChan(key, func() (any, error) {
		if state, ok := t.Lookup(key); ok {
			return state, nil
		}

		dispatched = true
		state, err := send(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		if state.IsTerminal() {
			t.Record(key, state)
		}
		return state, nil
	})

	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, dispatched, res.Err
		}
		return res.Val.(*message.DeliveryState), dispatched, nil
	}
}

// Cleanup drops sends older than the window
func (t *SendTracker) Cleanup() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	removed := 0
	for id, tracked := range t.sends {
		if now.Sub(tracked.RecordedAt) >= t.window {
			delete(t.sends, id)
			removed++
		}
	}
	return removed
}

// Close stops the cleanup goroutine
func (t *SendTracker) Close() {
	t.stopOnce.Do(func() {
		close(t.stop)
	})
}

func (t *SendTracker) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.Cleanup()
		case <-t.stop:
			return
		}
	}
}
