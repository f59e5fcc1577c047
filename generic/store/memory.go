// Package store provides in-memory implementations of the generic store interfaces.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/bizops-engine/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu     sync.RWMutex
	runs   map[string]generic.Run
	order  []string
	tokens map[string]generic.Token

	// rotateMu serializes Rotate calls, held across fn.
	rotateMu sync.Mutex
}

func NewMemory() *Memory {
	return &Memory{
		runs:   make(map[string]generic.Run),
		tokens: make(map[string]generic.Token),
	}
}

// StartRun records a new run.
func (m *Memory) StartRun(_ context.Context, run generic.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	run.Status = generic.RunRunning
	m.runs[run.ID] = run
	m.order = append(m.order, run.ID)
	return nil
}

// FinishRun moves a running run to its final status. A run that is unknown
// or already finished reports ErrRunNotFound, like the SQLite store.
func (m *Memory) FinishRun(_ context.Context, id string, result generic.RunResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.runs[id]
	if !ok || run.Status != generic.RunRunning {
		return generic.ErrRunNotFound
	}
	completed := result.CompletedAt
	run.Status = result.Status
	run.Entries = result.Entries
	run.ErrorCategory = result.ErrorCategory
	run.Error = result.Error
	run.CompletedAt = &completed
	m.runs[id] = run
	return nil
}

func (m *Memory) GetRun(_ context.Context, id string) (*generic.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	run, ok := m.runs[id]
	if !ok {
		return nil, generic.ErrRunNotFound
	}
	return &run, nil
}

// ListRuns returns newest first; insertion order breaks ties on StartedAt.
func (m *Memory) ListRuns(_ context.Context, limit int) ([]generic.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]generic.Run, 0, len(m.order))
	for i := len(m.order) - 1; i >= 0; i-- {
		result = append(result, m.runs[m.order[i]])
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].StartedAt.After(result[j].StartedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// =============================================================================
// TOKENS
// =============================================================================

func (m *Memory) LoadToken(_ context.Context, provider string) (generic.Token, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tokens[provider]
	return t, ok, nil
}

// Rotate holds rotateMu for the whole read-modify-write.
func (m *Memory) Rotate(ctx context.Context, provider string, fn func(generic.Token) (generic.Token, error)) (generic.Token, error) {
	m.rotateMu.Lock()
	defer m.rotateMu.Unlock()

	current, _, _ := m.LoadToken(ctx, provider)
	next, err := fn(current)
	if err != nil {
		return generic.Token{}, err
	}
	next.Provider = provider

	m.mu.Lock()
	m.tokens[provider] = next
	m.mu.Unlock()
	return next, nil
}
