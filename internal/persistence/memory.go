package persistence

import (
	"context"
	"fmt"
	"sync"

	"github.com/promptcycle/promptcycle/internal/domain"
)

// MemoryStore is an in-process implementation of every app repo interface,
// used for offline operation and tests. Per-record writes are serialized
// by a single mutex.
type MemoryStore struct {
	mu            sync.Mutex
	suites        map[string]domain.TestSuite
	runs          map[string]domain.TestRun
	optimizations map[string]domain.Optimization
	cycles        map[string]domain.Cycle
	events        []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		suites:        map[string]domain.TestSuite{},
		runs:          map[string]domain.TestRun{},
		optimizations: map[string]domain.Optimization{},
		cycles:        map[string]domain.Cycle{},
	}
}

type memorySuiteRepo struct{ store *MemoryStore }

func (s *MemoryStore) Suites() *memorySuiteRepo { return &memorySuiteRepo{store: s} }

func (r *memorySuiteRepo) Insert(ctx context.Context, suite domain.TestSuite) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.suites[suite.Id] = suite
	return nil
}

func (r *memorySuiteRepo) Read(ctx context.Context, id string) (*domain.TestSuite, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	suite, ok := r.store.suites[id]
	if !ok {
		return nil, fmt.Errorf("record %s not found", id)
	}

	return &suite, nil
}

type memoryRunRepo struct{ store *MemoryStore }

func (s *MemoryStore) Runs() *memoryRunRepo { return &memoryRunRepo{store: s} }

func (r *memoryRunRepo) Insert(ctx context.Context, run domain.TestRun) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.runs[run.Id] = run
	return nil
}

func (r *memoryRunRepo) Read(ctx context.Context, id string) (*domain.TestRun, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	run, ok := r.store.runs[id]
	if !ok {
		return nil, fmt.Errorf("record %s not found", id)
	}

	return &run, nil
}

type memoryOptimizationRepo struct{ store *MemoryStore }

func (s *MemoryStore) Optimizations() *memoryOptimizationRepo { return &memoryOptimizationRepo{store: s} }

func (r *memoryOptimizationRepo) Insert(ctx context.Context, optimization domain.Optimization) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.optimizations[optimization.Id] = optimization
	return nil
}

func (r *memoryOptimizationRepo) UpdateStatus(ctx context.Context, id string, status domain.OptimizationStatus) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	optimization, ok := r.store.optimizations[id]
	if !ok {
		return fmt.Errorf("record %s not found", id)
	}

	optimization.Status = status
	r.store.optimizations[id] = optimization
	return nil
}

func (r *memoryOptimizationRepo) Read(ctx context.Context, id string) (*domain.Optimization, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	optimization, ok := r.store.optimizations[id]
	if !ok {
		return nil, fmt.Errorf("record %s not found", id)
	}

	return &optimization, nil
}

type memoryCycleRepo struct{ store *MemoryStore }

func (s *MemoryStore) Cycles() *memoryCycleRepo { return &memoryCycleRepo{store: s} }

func (r *memoryCycleRepo) Insert(ctx context.Context, cycle domain.Cycle) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.cycles[cycle.Id] = cycle
	return nil
}

func (r *memoryCycleRepo) Update(ctx context.Context, cycle domain.Cycle) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.cycles[cycle.Id]; !ok {
		return fmt.Errorf("record %s not found", cycle.Id)
	}

	r.store.cycles[cycle.Id] = cycle
	return nil
}

func (r *memoryCycleRepo) Read(ctx context.Context, id string) (*domain.Cycle, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	cycle, ok := r.store.cycles[id]
	if !ok {
		return nil, fmt.Errorf("record %s not found", id)
	}

	return &cycle, nil
}

type memoryEventRepo struct{ store *MemoryStore }

func (s *MemoryStore) Events() *memoryEventRepo { return &memoryEventRepo{store: s} }

func (r *memoryEventRepo) Capture(ctx context.Context, eventType string, cycleId string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.events = append(r.store.events, fmt.Sprintf("%s:%s", cycleId, eventType))
	return nil
}

// CapturedEvents returns the capture log in emission order.
func (s *MemoryStore) CapturedEvents() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	events := make([]string, len(s.events))
	copy(events, s.events)
	return events
}
