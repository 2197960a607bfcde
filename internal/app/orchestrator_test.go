package app

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptcycle/promptcycle/internal/domain"
)

// gatedAgent blocks its first Send until release is closed and closes
// started once that Send is in flight, so tests can order control requests
// against a provably mid-iteration loop.
func gatedAgent() (fakeAgent, chan struct{}, chan struct{}) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	agent := fakeAgent{send: func(_ context.Context, _ string, promptSnapshot string) (string, error) {
		once.Do(func() {
			close(started)
			<-release
		})
		return promptSnapshot, nil
	}}
	return agent, started, release
}

func newTestOrchestrator(agent Agent, client *fakeClient) (*Orchestrator, *memRepos) {
	m := newMemRepos()
	suite := suiteFixture()
	m.suites[suite.Id] = suite

	o := NewOrchestrator(agent, client,
		suiteRepoStub{m}, runRepoStub{m}, optimizationRepoStub{m}, cycleRepoStub{m}, eventRepoStub{m})
	return o, m
}

func cycleStatus(t *testing.T, o *Orchestrator, cycleId string) domain.CycleStatus {
	t.Helper()
	record, err := o.GetRecord(context.Background(), cycleId)
	require.NoError(t, err)
	return record.Status
}

func TestStartCycleValidatesInput(t *testing.T) {
	o, _ := newTestOrchestrator(echoAgent(), &fakeClient{})

	_, err := o.StartCycle(context.Background(), "prompt", "suite-1", 1.5, 3)
	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, ErrValidation, appErr.Kind)

	_, err = o.StartCycle(context.Background(), "prompt", "suite-1", 0.9, 0)
	require.ErrorAs(t, err, &appErr)

	_, err = o.StartCycle(context.Background(), "prompt", "missing", 0.9, 3)
	require.ErrorAs(t, err, &appErr)
}

func TestCycleStopsWhenThresholdReached(t *testing.T) {
	// The agent echoes the prompt snapshot, so the judge can observe the
	// revision taking effect on the second iteration.
	client := &fakeClient{evaluate: func(_ context.Context, responses []domain.AgentResponse, _ domain.SuccessCriterion) (*domain.CriterionResult, error) {
		passed := strings.Contains(responses[0].Text, "Be concise")
		return &domain.CriterionResult{Passed: passed, Explanation: "judged on brevity"}, nil
	}}
	o, _ := newTestOrchestrator(echoAgent(), client)

	cycleId, err := o.StartCycle(context.Background(), "Answer questions.", "suite-1", 1.0, 5)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return cycleStatus(t, o, cycleId) == domain.CycleCompleted
	}, 2*time.Second, 10*time.Millisecond)

	record, err := o.GetRecord(context.Background(), cycleId)
	require.NoError(t, err)
	assert.Equal(t, 2, record.CycleCount)
	assert.Equal(t, 0.0, record.StartingPassRate)
	assert.Equal(t, 1.0, record.EndingPassRate)
	assert.Len(t, record.TestRunIds, 2)
	assert.Len(t, record.OptimizationIds, 1)
	assert.Contains(t, record.Prompt, "Be concise")
	assert.Equal(t, 1, client.optimizeCalls())
}

func TestCycleStopsAtMaxCyclesWithoutReachingThreshold(t *testing.T) {
	client := &fakeClient{evaluate: func(_ context.Context, _ []domain.AgentResponse, _ domain.SuccessCriterion) (*domain.CriterionResult, error) {
		return &domain.CriterionResult{Passed: false, Explanation: "never satisfied"}, nil
	}}
	o, _ := newTestOrchestrator(echoAgent(), client)

	cycleId, err := o.StartCycle(context.Background(), "Answer questions.", "suite-1", 1.0, 3)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return cycleStatus(t, o, cycleId) == domain.CycleCompleted
	}, 2*time.Second, 10*time.Millisecond)

	record, err := o.GetRecord(context.Background(), cycleId)
	require.NoError(t, err)
	assert.Equal(t, 3, record.CycleCount)
	assert.Len(t, record.TestRunIds, 3)
	// The final iteration terminates on the cap before optimizing.
	assert.Equal(t, 2, client.optimizeCalls())
	assert.Len(t, record.OptimizationIds, 2)
}

func TestCycleSkipsOptimizationWhenNoCriteriaFailed(t *testing.T) {
	// Every case errors out, so the pass rate is below threshold while the
	// failure partition stays empty.
	agent := fakeAgent{send: func(_ context.Context, _ string, _ string) (string, error) {
		return "", errors.New("agent offline")
	}}
	client := &fakeClient{}
	o, _ := newTestOrchestrator(agent, client)

	cycleId, err := o.StartCycle(context.Background(), "Answer questions.", "suite-1", 1.0, 2)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return cycleStatus(t, o, cycleId) == domain.CycleCompleted
	}, 2*time.Second, 10*time.Millisecond)

	record, err := o.GetRecord(context.Background(), cycleId)
	require.NoError(t, err)
	assert.Equal(t, 2, record.CycleCount)
	assert.Equal(t, 0, client.optimizeCalls())
	assert.Empty(t, record.OptimizationIds)
}

func TestCancelLetsInFlightRunFinishFirst(t *testing.T) {
	agent, started, release := gatedAgent()
	client := &fakeClient{evaluate: func(_ context.Context, _ []domain.AgentResponse, _ domain.SuccessCriterion) (*domain.CriterionResult, error) {
		return &domain.CriterionResult{Passed: false, Explanation: "never satisfied"}, nil
	}}
	o, _ := newTestOrchestrator(agent, client)

	cycleId, err := o.StartCycle(context.Background(), "Answer questions.", "suite-1", 1.0, 5)
	require.NoError(t, err)

	// The first iteration is provably in flight before the cancel lands.
	<-started
	require.NoError(t, o.Cancel(context.Background(), cycleId))
	close(release)

	require.Eventually(t, func() bool {
		return cycleStatus(t, o, cycleId) == domain.CycleCancelled
	}, 2*time.Second, 10*time.Millisecond)

	record, err := o.GetRecord(context.Background(), cycleId)
	require.NoError(t, err)
	// The first iteration was already in flight, so it ran to completion
	// before the flag took effect at the loop boundary.
	assert.Equal(t, 1, record.CycleCount)
	assert.Len(t, record.TestRunIds, 1)
}

func TestPauseThenResumeContinuesCounters(t *testing.T) {
	agent, started, release := gatedAgent()
	client := &fakeClient{evaluate: func(_ context.Context, _ []domain.AgentResponse, _ domain.SuccessCriterion) (*domain.CriterionResult, error) {
		return &domain.CriterionResult{Passed: false, Explanation: "never satisfied"}, nil
	}}
	o, _ := newTestOrchestrator(agent, client)

	cycleId, err := o.StartCycle(context.Background(), "Answer questions.", "suite-1", 1.0, 2)
	require.NoError(t, err)

	<-started
	require.NoError(t, o.Pause(context.Background(), cycleId))
	close(release)

	require.Eventually(t, func() bool {
		return cycleStatus(t, o, cycleId) == domain.CyclePaused
	}, 2*time.Second, 10*time.Millisecond)

	record, err := o.GetRecord(context.Background(), cycleId)
	require.NoError(t, err)
	require.Equal(t, 1, record.CycleCount)

	require.NoError(t, o.Resume(context.Background(), cycleId))

	require.Eventually(t, func() bool {
		return cycleStatus(t, o, cycleId) == domain.CycleCompleted
	}, 2*time.Second, 10*time.Millisecond)

	record, err = o.GetRecord(context.Background(), cycleId)
	require.NoError(t, err)
	assert.Equal(t, 2, record.CycleCount)
	assert.Len(t, record.TestRunIds, 2)
}

func TestCancelWhilePausedTerminatesDirectly(t *testing.T) {
	agent, started, release := gatedAgent()
	client := &fakeClient{evaluate: func(_ context.Context, _ []domain.AgentResponse, _ domain.SuccessCriterion) (*domain.CriterionResult, error) {
		return &domain.CriterionResult{Passed: false, Explanation: "never satisfied"}, nil
	}}
	o, _ := newTestOrchestrator(agent, client)

	cycleId, err := o.StartCycle(context.Background(), "Answer questions.", "suite-1", 1.0, 5)
	require.NoError(t, err)

	<-started
	require.NoError(t, o.Pause(context.Background(), cycleId))
	close(release)

	require.Eventually(t, func() bool {
		return cycleStatus(t, o, cycleId) == domain.CyclePaused
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, o.Cancel(context.Background(), cycleId))
	assert.Equal(t, domain.CycleCancelled, cycleStatus(t, o, cycleId))

	// Cancelled is terminal.
	err = o.Resume(context.Background(), cycleId)
	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, ErrValidation, appErr.Kind)
}

func TestLateControlRequestLosesToCompletion(t *testing.T) {
	agent, started, release := gatedAgent()
	o, _ := newTestOrchestrator(agent, &fakeClient{})

	cycleId, err := o.StartCycle(context.Background(), "Answer questions.", "suite-1", 1.0, 5)
	require.NoError(t, err)

	// Pause lands while the threshold-meeting iteration is in flight; the
	// iteration completes the cycle and the stale request must not survive.
	<-started
	require.NoError(t, o.Pause(context.Background(), cycleId))
	close(release)

	require.Eventually(t, func() bool {
		return cycleStatus(t, o, cycleId) == domain.CycleCompleted
	}, 2*time.Second, 10*time.Millisecond)

	var appErr *AppError
	err = o.Cancel(context.Background(), cycleId)
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, ErrValidation, appErr.Kind)

	err = o.Resume(context.Background(), cycleId)
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, ErrValidation, appErr.Kind)

	assert.Equal(t, domain.CycleCompleted, cycleStatus(t, o, cycleId))
}

func TestRecordKeepsCountAndRunsInStep(t *testing.T) {
	agent, started, release := gatedAgent()
	o, _ := newTestOrchestrator(agent, &fakeClient{})

	cycleId, err := o.StartCycle(context.Background(), "Answer questions.", "suite-1", 1.0, 5)
	require.NoError(t, err)

	// Mid-iteration the counter has not advanced past the persisted runs.
	<-started
	record, err := o.GetRecord(context.Background(), cycleId)
	require.NoError(t, err)
	assert.Equal(t, 0, record.CycleCount)
	assert.Len(t, record.TestRunIds, record.CycleCount)

	close(release)

	require.Eventually(t, func() bool {
		return cycleStatus(t, o, cycleId) == domain.CycleCompleted
	}, 2*time.Second, 10*time.Millisecond)

	record, err = o.GetRecord(context.Background(), cycleId)
	require.NoError(t, err)
	assert.Equal(t, 1, record.CycleCount)
	assert.Len(t, record.TestRunIds, record.CycleCount)
}

func TestFailedIterationLeavesRecordAtLastPersistedState(t *testing.T) {
	client := &fakeClient{evaluate: func(_ context.Context, _ []domain.AgentResponse, _ domain.SuccessCriterion) (*domain.CriterionResult, error) {
		return nil, errors.New("judge unavailable")
	}}
	o, m := newTestOrchestrator(echoAgent(), client)

	cycleId, err := o.StartCycle(context.Background(), "Answer questions.", "suite-1", 1.0, 3)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		events := m.eventLog()
		return len(events) > 0 && events[len(events)-1] == cycleId+":error"
	}, 2*time.Second, 10*time.Millisecond)

	record, err := o.GetRecord(context.Background(), cycleId)
	require.NoError(t, err)
	assert.Equal(t, 0, record.CycleCount)
	assert.Empty(t, record.TestRunIds)
}

func TestEventPayloadKeepsZeroPassRate(t *testing.T) {
	data, err := json.Marshal(Event{Type: EventTestRunComplete, CycleId: "cycle-1", CycleCount: 1, PassRate: 0})

	require.NoError(t, err)
	assert.Contains(t, string(data), `"pass_rate":0`)
}

func TestEventStreamEndsWithFinished(t *testing.T) {
	o, m := newTestOrchestrator(echoAgent(), &fakeClient{})

	cycleId, err := o.StartCycle(context.Background(), "Answer questions.", "suite-1", 0.0, 3)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return cycleStatus(t, o, cycleId) == domain.CycleCompleted
	}, 2*time.Second, 10*time.Millisecond)

	events := m.eventLog()
	require.NotEmpty(t, events)
	assert.Equal(t, cycleId+":cycle_start", events[0])
	assert.Equal(t, cycleId+":finished", events[len(events)-1])
	assert.Contains(t, events, cycleId+":test_run_complete")
}

func TestListenersReceiveEventsAndCanBeRemoved(t *testing.T) {
	agent, _, release := gatedAgent()
	o, _ := newTestOrchestrator(agent, &fakeClient{})

	cycleId, err := o.StartCycle(context.Background(), "Answer questions.", "suite-1", 0.0, 3)
	require.NoError(t, err)

	var mu sync.Mutex
	var received []EventType
	token, err := o.AddEventListener(cycleId, func(event Event) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, event.Type)
	})
	require.NoError(t, err)
	close(release)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) > 0 && received[len(received)-1] == EventFinished
	}, 2*time.Second, 10*time.Millisecond)

	o.RemoveEventListener(cycleId, token)
}

func TestGetRecordFallsBackToRepo(t *testing.T) {
	o, m := newTestOrchestrator(echoAgent(), &fakeClient{})
	m.cycles["persisted"] = domain.Cycle{Id: "persisted", Status: domain.CycleCompleted}

	record, err := o.GetRecord(context.Background(), "persisted")

	require.NoError(t, err)
	assert.Equal(t, domain.CycleCompleted, record.Status)
}
