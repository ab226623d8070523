package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func counter(calls *atomic.Int64) FetchFunc[int64] {
	return func(ctx context.Context) (int64, error) {
		return calls.Add(1), nil
	}
}

func TestCache_TTL(t *testing.T) {
	clock := newFakeClock()
	c := New[int64](Config{TTL: 5 * time.Minute, Now: clock.Now})
	ctx := context.Background()

	var calls atomic.Int64

	v, err := c.Get(ctx, "", counter(&calls))
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	clock.Advance(5*time.Minute - time.Nanosecond)
	v, err = c.Get(ctx, "", counter(&calls))
	require.NoError(t, err)
	assert.Equal(t, int64(1), v, "value is served until the window has passed")

	clock.Advance(5 * time.Minute)
	v, err = c.Get(ctx, "", counter(&calls))
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
	assert.Equal(t, int64(2), c.Fetches())
}

func TestCache_AccessExtendsLifetime(t *testing.T) {
	clock := newFakeClock()
	c := New[int64](Config{TTL: time.Minute, Now: clock.Now})
	ctx := context.Background()

	var calls atomic.Int64
	for i := 0; i < 5; i++ {
		v, err := c.Get(ctx, "k", counter(&calls))
		require.NoError(t, err)
		assert.Equal(t, int64(1), v)
		clock.Advance(50 * time.Second)
	}
	assert.Equal(t, int64(1), calls.Load())
}

func TestCache_KeysAreIndependent(t *testing.T) {
	c := New[string](Config{})
	ctx := context.Background()

	a, err := c.Get(ctx, "sender-a", func(ctx context.Context) (string, error) { return "a", nil })
	require.NoError(t, err)
	b, err := c.Get(ctx, "sender-b", func(ctx context.Context) (string, error) { return "b", nil })
	require.NoError(t, err)

	assert.Equal(t, "a", a)
	assert.Equal(t, "b", b)
}

func TestCache_SingleFlightUnderConcurrency(t *testing.T) {
	clock := newFakeClock()
	c := New[int64](Config{TTL: time.Minute, Now: clock.Now})

	var calls atomic.Int64
	release := make(chan struct{})
	fetch := func(ctx context.Context) (int64, error) {
		<-release
		return calls.Add(1), nil
	}

	for round := 1; round <= 2; round++ {
		const callers = 50
		var wg sync.WaitGroup
		results := make([]int64, callers)
		errs := make([]error, callers)

		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i], errs[i] = c.Get(context.Background(), "entrypoint", fetch)
			}(i)
		}

		// let the callers pile up behind the first fetch
		time.Sleep(50 * time.Millisecond)
		close(release)
		wg.Wait()

		for i := 0; i < callers; i++ {
			require.NoError(t, errs[i])
			assert.Equal(t, int64(round), results[i])
		}
		assert.Equal(t, int64(round), calls.Load(), "exactly one fetch per expiry")

		release = make(chan struct{})
		clock.Advance(2 * time.Minute)
	}
}

func TestCache_ErrorsAreSharedAndNotCached(t *testing.T) {
	c := New[string](Config{})
	fetchErr := errors.New("gateway unavailable")

	var calls atomic.Int64
	release := make(chan struct{})
	failing := func(ctx context.Context) (string, error) {
		calls.Add(1)
		<-release
		return "", fetchErr
	}

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.Get(context.Background(), "k", failing)
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, err := range errs {
		assert.ErrorIs(t, err, fetchErr)
	}
	assert.Equal(t, int64(1), calls.Load())

	v, err := c.Get(context.Background(), "k", func(ctx context.Context) (string, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestCache_CallerCancellationDoesNotFailOthers(t *testing.T) {
	c := New[string](Config{})

	release := make(chan struct{})
	var fetchCtxErr atomic.Value
	fetch := func(ctx context.Context) (string, error) {
		<-release
		if err := ctx.Err(); err != nil {
			fetchCtxErr.Store(err)
		}
		return "value", nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.Get(ctx, "k", fetch)
		firstErr <- err
	}()

	time.Sleep(20 * time.Millisecond)

	secondResult := make(chan string, 1)
	go func() {
		v, _ := c.Get(context.Background(), "k", fetch)
		secondResult <- v
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	assert.Equal(t, "value", <-secondResult)
	assert.Nil(t, fetchCtxErr.Load(), "shared fetch must not observe the first caller's cancellation")
}

func TestCache_Invalidate(t *testing.T) {
	c := New[int64](Config{})
	var calls atomic.Int64

	_, err := c.Get(context.Background(), "k", counter(&calls))
	require.NoError(t, err)
	c.Invalidate("k")
	v, err := c.Get(context.Background(), "k", counter(&calls))
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
}
