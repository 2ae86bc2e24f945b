package cache

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"resumelens/internal/config"
	appErrors "resumelens/internal/errors"
	"resumelens/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = appErrors.NewLogger(slog.LevelDebug)

func counting(record types.AnalysisRecord, calls *atomic.Int32) ComputeFunc {
	return func(context.Context) (types.AnalysisRecord, error) {
		calls.Add(1)
		return record, nil
	}
}

func TestGetOrComputeHitAndMiss(t *testing.T) {
	ctx := context.Background()
	c := New(NewMemoryStore(), false, testLogger)
	var calls atomic.Int32

	first, err := c.GetOrCompute(ctx, "k", counting(types.AnalysisRecord{"summary": "a"}, &calls))
	require.NoError(t, err)
	assert.Equal(t, "a", first["summary"])

	second, err := c.GetOrCompute(ctx, "k", counting(types.AnalysisRecord{"summary": "b"}, &calls))
	require.NoError(t, err)
	assert.Equal(t, "a", second["summary"], "hit must return the stored record")
	assert.Equal(t, int32(1), calls.Load())

	stats := c.Stats(ctx)
	assert.Equal(t, Stats{Backend: "memory", Hits: 1, Misses: 1, Stores: 1, Entries: 1}, stats)
}

func TestGetOrComputeReturnsCopies(t *testing.T) {
	ctx := context.Background()
	c := New(NewMemoryStore(), false, testLogger)
	var calls atomic.Int32

	first, err := c.GetOrCompute(ctx, "k", counting(types.AnalysisRecord{"skills": []string{"Go"}}, &calls))
	require.NoError(t, err)
	first["skills"] = "mutated"
	first["extra"] = true

	second, err := c.GetOrCompute(ctx, "k", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Go"}, second.Strings("skills"))
	assert.NotContains(t, second, "extra")
}

func TestGetOrComputeEmptyKeyBypasses(t *testing.T) {
	ctx := context.Background()
	c := New(NewMemoryStore(), false, testLogger)
	var calls atomic.Int32

	for range 3 {
		_, err := c.GetOrCompute(ctx, "", counting(types.AnalysisRecord{"summary": "x"}, &calls))
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 0, c.Stats(ctx).Entries)
}

func TestGetOrComputeNilCache(t *testing.T) {
	var c *AnalysisCache
	var calls atomic.Int32

	for range 2 {
		_, err := c.GetOrCompute(context.Background(), "k", counting(types.AnalysisRecord{}, &calls))
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, "disabled", c.Stats(context.Background()).Backend)
}

func TestGetOrComputeErrorRecords(t *testing.T) {
	failed := types.AnalysisRecord{"error": "Analyse konnte nicht durchgeführt werden"}

	tests := []struct {
		name          string
		cacheErrors   bool
		expectedCalls int32
	}{
		{"error records are recomputed by default", false, 2},
		{"error records are cached when enabled", true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			c := New(NewMemoryStore(), tt.cacheErrors, testLogger)
			var calls atomic.Int32

			for range 2 {
				record, err := c.GetOrCompute(ctx, "k", counting(failed, &calls))
				require.NoError(t, err)
				assert.True(t, record.HasError())
			}
			assert.Equal(t, tt.expectedCalls, calls.Load())
		})
	}
}

func TestGetOrComputeComputeError(t *testing.T) {
	ctx := context.Background()
	c := New(NewMemoryStore(), true, testLogger)
	boom := errors.New("model down")

	_, err := c.GetOrCompute(ctx, "k", func(context.Context) (types.AnalysisRecord, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Stats(ctx).Entries)
}

func TestGetOrComputeSingleFlight(t *testing.T) {
	ctx := context.Background()
	c := New(NewMemoryStore(), false, testLogger)

	var calls atomic.Int32
	release := make(chan struct{})
	fn := func(context.Context) (types.AnalysisRecord, error) {
		calls.Add(1)
		<-release
		return types.AnalysisRecord{"summary": "shared"}, nil
	}

	const workers = 16
	var started, done sync.WaitGroup
	results := make([]types.AnalysisRecord, workers)
	started.Add(workers)
	done.Add(workers)
	for i := range workers {
		go func() {
			defer done.Done()
			started.Done()
			record, err := c.GetOrCompute(ctx, "same", fn)
			assert.NoError(t, err)
			results[i] = record
		}()
	}

	started.Wait()
	time.Sleep(50 * time.Millisecond)
	close(release)
	done.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, record := range results {
		assert.Equal(t, "shared", record["summary"])
	}
}

func TestGetOrComputeLeaderCancellation(t *testing.T) {
	c := New(NewMemoryStore(), false, testLogger)

	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	fn := func(ctx context.Context) (types.AnalysisRecord, error) {
		calls.Add(1)
		close(started)
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return types.AnalysisRecord{"summary": "shared"}, nil
	}

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := c.GetOrCompute(leaderCtx, "same", fn)
		leaderErr <- err
	}()
	<-started

	waiterResult := make(chan types.AnalysisRecord, 1)
	go func() {
		record, err := c.GetOrCompute(context.Background(), "same", fn)
		assert.NoError(t, err)
		waiterResult <- record
	}()

	cancelLeader()
	require.ErrorIs(t, <-leaderErr, context.Canceled)

	time.Sleep(20 * time.Millisecond)
	close(release)

	record := <-waiterResult
	assert.Equal(t, "shared", record["summary"])
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, c.Stats(context.Background()).Entries, "the detached computation still stores its record")
}

func TestDeleteAndClear(t *testing.T) {
	ctx := context.Background()
	c := New(NewMemoryStore(), false, testLogger)
	var calls atomic.Int32

	for _, key := range []string{"a", "b", "c"} {
		_, err := c.GetOrCompute(ctx, key, counting(types.AnalysisRecord{"summary": key}, &calls))
		require.NoError(t, err)
	}
	assert.Equal(t, 3, c.Stats(ctx).Entries)

	require.NoError(t, c.Delete(ctx, "a"))
	_, err := c.GetOrCompute(ctx, "a", counting(types.AnalysisRecord{"summary": "a2"}, &calls))
	require.NoError(t, err)
	assert.Equal(t, int32(4), calls.Load())

	require.NoError(t, c.Clear(ctx))
	assert.Equal(t, 0, c.Stats(ctx).Entries)
}

type lookupRecorder struct {
	mu     sync.Mutex
	events []bool
}

func (r *lookupRecorder) RecordCacheLookup(_ context.Context, _ string, hit bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, hit)
}

func TestRecorder(t *testing.T) {
	ctx := context.Background()
	c := New(NewMemoryStore(), false, testLogger)
	rec := &lookupRecorder{}
	c.SetRecorder(rec)
	var calls atomic.Int32

	for range 2 {
		_, err := c.GetOrCompute(ctx, "k", counting(types.AnalysisRecord{"summary": "x"}, &calls))
		require.NoError(t, err)
	}
	assert.Equal(t, []bool{false, true}, rec.events)
}

func TestNewFromConfig(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		c, err := NewFromConfig(config.CacheConfig{Enabled: false}, testLogger)
		require.NoError(t, err)
		assert.Nil(t, c)
	})

	t.Run("memory", func(t *testing.T) {
		c, err := NewFromConfig(config.CacheConfig{Enabled: true, Backend: config.CacheBackendMemory}, testLogger)
		require.NoError(t, err)
		assert.Equal(t, "memory", c.Stats(context.Background()).Backend)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := NewFromConfig(config.CacheConfig{Enabled: true, Backend: "memcached"}, testLogger)
		require.Error(t, err)
		assert.True(t, appErrors.HasCode(err, appErrors.ErrCodeInvalidConfig))
	})

	t.Run("redis without address", func(t *testing.T) {
		_, err := NewFromConfig(config.CacheConfig{Enabled: true, Backend: config.CacheBackendRedis}, testLogger)
		require.Error(t, err)
	})
}
