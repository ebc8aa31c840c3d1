package cache

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teilomillet/promptsmith/metrics"
	"github.com/teilomillet/promptsmith/types"
	"github.com/teilomillet/promptsmith/utils"
)

func request(user string) types.Request {
	return types.Request{
		Conversation: types.NewConversation("system", user),
		Temperature:  0.1,
		Model:        "gpt-4",
	}
}

// counter returns a ComputeFunc that counts its calls and replies with reply.
func counter(calls *atomic.Int32, reply string) ComputeFunc {
	return func(context.Context) (string, error) {
		calls.Add(1)
		return reply, nil
	}
}

func TestKey(t *testing.T) {
	base := request("hello")
	assert.Equal(t, Key(base), Key(request("hello")))
	assert.Len(t, Key(base), 64)

	otherTemp := base
	otherTemp.Temperature = 0.9
	assert.NotEqual(t, Key(base), Key(otherTemp), "temperature is part of the key")

	otherModel := base
	otherModel.Model = "gpt-3.5-turbo"
	assert.NotEqual(t, Key(base), Key(otherModel), "model is part of the key")

	assert.NotEqual(t, Key(base), Key(request("hello!")))
}

func TestGetOrComputeIdempotent(t *testing.T) {
	c := New(NewMemoryStore(), utils.NewNopLogger())
	var calls atomic.Int32

	first, err := c.GetOrCompute(context.Background(), request("hi"), counter(&calls, "reply"))
	require.NoError(t, err)
	second, err := c.GetOrCompute(context.Background(), request("hi"), counter(&calls, "other"))
	require.NoError(t, err)

	assert.Equal(t, "reply", first)
	assert.Equal(t, "reply", second)
	assert.EqualValues(t, 1, calls.Load())

	stats, err := c.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{Entries: 1, Hits: 1, Misses: 1}, stats)
}

func TestGetOrComputeDistinctRequests(t *testing.T) {
	store := NewMemoryStore()
	c := New(store, nil)
	var calls atomic.Int32

	_, err := c.GetOrCompute(context.Background(), request("one"), counter(&calls, "1"))
	require.NoError(t, err)
	_, err = c.GetOrCompute(context.Background(), request("two"), counter(&calls, "2"))
	require.NoError(t, err)

	assert.EqualValues(t, 2, calls.Load())
	n, err := store.Len(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	v, ok, err := store.Get(context.Background(), Key(request("two")))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2", v)
}

func TestGetOrComputeFailureLeavesStoreUnmodified(t *testing.T) {
	store := NewMemoryStore()
	logger := utils.NewMockLogger()
	c := New(store, logger)

	boom := errors.New("boom")
	_, err := c.GetOrCompute(context.Background(), request("x"), func(context.Context) (string, error) {
		return "", boom
	})
	require.ErrorIs(t, err, boom)

	n, err := store.Len(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	// the executor owns the error report for a failed call
	assert.Zero(t, logger.CountLevel("ERROR"))
	messages := logger.GetMessages()
	require.NotEmpty(t, messages)
	assert.Equal(t, "Compute failed, cache left unmodified", messages[len(messages)-1].Message)
}

func TestGetOrComputeSharesConcurrentMisses(t *testing.T) {
	c := New(NewMemoryStore(), nil)

	var calls atomic.Int32
	release := make(chan struct{})
	compute := func(context.Context) (string, error) {
		calls.Add(1)
		<-release
		return "shared", nil
	}

	const callers = 8
	var wg sync.WaitGroup
	results := make([]string, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = c.GetOrCompute(context.Background(), request("same"), compute)
		}()
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "shared", results[i])
	}
}

func TestGetOrComputeSurvivesSiblingCancellation(t *testing.T) {
	c := New(NewMemoryStore(), nil)
	req := request("same")

	cancelled, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	firstDone := make(chan error, 1)
	go func() {
		_, err := c.GetOrCompute(cancelled, req, func(ctx context.Context) (string, error) {
			close(started)
			<-ctx.Done()
			return "", ctx.Err()
		})
		firstDone <- err
	}()
	<-started

	var liveCalls atomic.Int32
	liveDone := make(chan struct{})
	var (
		live    string
		liveErr error
	)
	go func() {
		defer close(liveDone)
		live, liveErr = c.GetOrCompute(context.Background(), req, counter(&liveCalls, "reply"))
	}()

	// let the live caller join the in-flight call before cancelling its owner
	time.Sleep(20 * time.Millisecond)
	cancel()

	require.ErrorIs(t, <-firstDone, context.Canceled)
	select {
	case <-liveDone:
	case <-time.After(time.Second):
		t.Fatal("live caller did not return")
	}
	require.NoError(t, liveErr)
	assert.Equal(t, "reply", live)
	assert.EqualValues(t, 1, liveCalls.Load())
}

func TestGetOrComputeHonoursOwnCancellation(t *testing.T) {
	c := New(NewMemoryStore(), nil)
	release := make(chan struct{})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.GetOrCompute(ctx, request("slow"), func(context.Context) (string, error) {
		<-release
		return "late", nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGetOrComputeRecordsMetrics(t *testing.T) {
	m := metrics.NewMetrics()
	c := New(NewMemoryStore(), nil, WithMetrics(m))
	var calls atomic.Int32

	for i := 0; i < 3; i++ {
		_, err := c.GetOrCompute(context.Background(), request("same"), counter(&calls, "r"))
		require.NoError(t, err)
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheHitsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheMissesTotal))
}

func TestCacheOverFileStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.gob")
	var calls atomic.Int32

	first := New(NewFileStore(path), nil)
	_, err := first.GetOrCompute(context.Background(), request("persist"), counter(&calls, "kept"))
	require.NoError(t, err)

	second := New(NewFileStore(path), nil)
	v, err := second.GetOrCompute(context.Background(), request("persist"), counter(&calls, "recomputed"))
	require.NoError(t, err)

	assert.Equal(t, "kept", v)
	assert.EqualValues(t, 1, calls.Load())
}

func TestClear(t *testing.T) {
	c := New(NewMemoryStore(), nil)
	var calls atomic.Int32

	_, err := c.GetOrCompute(context.Background(), request("a"), counter(&calls, "a"))
	require.NoError(t, err)
	require.NoError(t, c.Clear(context.Background()))

	_, err = c.GetOrCompute(context.Background(), request("a"), counter(&calls, "a"))
	require.NoError(t, err)
	assert.EqualValues(t, 2, calls.Load())
	assert.NoError(t, c.Close())
}
