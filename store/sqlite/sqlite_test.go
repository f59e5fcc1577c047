package sqlite_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/bizops-engine/generic"
	"github.com/warp/bizops-engine/store/sqlite"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// =============================================================================
// RUN LOG
// =============================================================================

func TestRunLifecycle(t *testing.T) {
	// GIVEN: A run started for the 2024 commission report
	// WHEN: It fails with an empty feed
	// THEN: The category and message are kept and the run cannot be finished again

	ctx := context.Background()
	s := newStore(t)
	started := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, s.StartRun(ctx, generic.Run{ID: "r1", Kind: generic.RunCommission, Year: 2024, StartedAt: started}))

	run, err := s.GetRun(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, generic.RunRunning, run.Status)
	assert.Nil(t, run.CompletedAt)

	require.NoError(t, s.FinishRun(ctx, "r1", generic.RunResult{
		Status:        generic.RunFailed,
		ErrorCategory: "empty",
		Error:         "Accounting returned no rows for 2024",
		CompletedAt:   started.Add(time.Second),
	}))

	run, err = s.GetRun(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, generic.RunFailed, run.Status)
	assert.Equal(t, "empty", run.ErrorCategory)
	require.NotNil(t, run.CompletedAt)
	assert.True(t, run.StartedAt.Equal(started))

	err = s.FinishRun(ctx, "r1", generic.RunResult{Status: generic.RunCompleted, CompletedAt: time.Now()})
	assert.ErrorIs(t, err, generic.ErrRunNotFound)
}

func TestGetRun_NotFound(t *testing.T) {
	_, err := newStore(t).GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, generic.ErrRunNotFound)
}

func TestListRuns_NewestFirst(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.StartRun(ctx, generic.Run{
			ID: id, Kind: generic.RunBonus, Year: 2024, StartedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	runs, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].ID)
	assert.Equal(t, "b", runs[1].ID)

	all, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

// =============================================================================
// TOKENS
// =============================================================================

func TestRotate_StoresAndReplaces(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	_, ok, err := s.LoadToken(ctx, "accounting")
	require.NoError(t, err)
	assert.False(t, ok)

	expires := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	_, err = s.Rotate(ctx, "accounting", func(cur generic.Token) (generic.Token, error) {
		assert.Empty(t, cur.RefreshToken)
		return generic.Token{AccessToken: "a1", RefreshToken: "r1", ExpiresAt: expires}, nil
	})
	require.NoError(t, err)

	_, err = s.Rotate(ctx, "accounting", func(cur generic.Token) (generic.Token, error) {
		assert.Equal(t, "r1", cur.RefreshToken)
		return generic.Token{AccessToken: "a2", RefreshToken: "r2", ExpiresAt: expires}, nil
	})
	require.NoError(t, err)

	got, ok, err := s.LoadToken(ctx, "accounting")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "r2", got.RefreshToken)
	assert.True(t, got.ExpiresAt.Equal(expires))
}

func TestRotate_ErrorWritesNothing(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	_, err := s.Rotate(ctx, "accounting", func(generic.Token) (generic.Token, error) {
		return generic.Token{}, errors.New("refresh rejected")
	})
	require.Error(t, err)

	_, ok, err := s.LoadToken(ctx, "accounting")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRotate_IsSingleWriter(t *testing.T) {
	// GIVEN: Ten concurrent rotations that each consume the current refresh token
	// WHEN: They all run
	// THEN: Every rotation sees the token written by the one before it

	ctx := context.Background()
	s := newStore(t)

	var mu sync.Mutex
	seen := make(map[string]bool)
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Rotate(ctx, "accounting", func(cur generic.Token) (generic.Token, error) {
				mu.Lock()
				defer mu.Unlock()
				if seen[cur.RefreshToken] {
					return generic.Token{}, errors.New("refresh token reused")
				}
				seen[cur.RefreshToken] = true
				counter++
				return generic.Token{AccessToken: "a", RefreshToken: string(rune('A' + counter))}, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, counter)
}
