package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/promptcycle/promptcycle/internal/domain"
	"github.com/promptcycle/promptcycle/internal/genai"
)

type EventType string

const (
	EventCycleStart           EventType = "cycle_start"
	EventTestRunComplete      EventType = "test_run_complete"
	EventOptimizationComplete EventType = "optimization_complete"
	EventFinished             EventType = "finished"
	EventError                EventType = "error"
)

// Event is pushed to cycle listeners best-effort; finished and error are
// terminal signals, the producer emits nothing after them.
type Event struct {
	Type           EventType          `json:"type"`
	CycleId        string             `json:"cycle_id"`
	CycleCount     int                `json:"cycle_count"`
	PassRate       float64            `json:"pass_rate"`
	TestRunId      string             `json:"test_run_id,omitempty"`
	OptimizationId string             `json:"optimization_id,omitempty"`
	Status         domain.CycleStatus `json:"status,omitempty"`
	Message        string             `json:"message,omitempty"`
}

// cycleCtx holds everything one running cycle owns: its record, the suite
// snapshot, the cooperative control flag and the listener set. No ambient
// global state is shared between cycles.
type cycleCtx struct {
	mu        sync.Mutex
	record    domain.Cycle
	suite     domain.TestSuite
	requested domain.CycleStatus
	listeners map[int]func(Event)
	nextToken int
}

type Orchestrator struct {
	mu     sync.Mutex
	cycles map[string]*cycleCtx

	executor         Executor
	evaluator        Evaluator
	optimizer        Optimizer
	suiteRepo        SuiteRepo
	runRepo          RunRepo
	optimizationRepo OptimizationRepo
	cycleRepo        CycleRepo
	eventRepo        EventRepo
}

func NewOrchestrator(agent Agent, client genai.Client, suiteRepo SuiteRepo, runRepo RunRepo,
	optimizationRepo OptimizationRepo, cycleRepo CycleRepo, eventRepo EventRepo) *Orchestrator {
	return &Orchestrator{
		cycles:           map[string]*cycleCtx{},
		executor:         Executor{Agent: agent},
		evaluator:        Evaluator{Client: client},
		optimizer:        Optimizer{Client: client},
		suiteRepo:        suiteRepo,
		runRepo:          runRepo,
		optimizationRepo: optimizationRepo,
		cycleRepo:        cycleRepo,
		eventRepo:        eventRepo,
	}
}

// StartCycle creates a running cycle record and begins the loop in its own
// goroutine. It returns the cycle id immediately.
func (o *Orchestrator) StartCycle(ctx context.Context, prompt string, suiteId string, targetThreshold float64, maxCycles int) (string, error) {
	if targetThreshold < 0 || targetThreshold > 1 {
		return "", validationError("target threshold must be within [0,1], got %v", targetThreshold)
	}
	if maxCycles < 1 {
		return "", validationError("max cycles must be at least 1, got %d", maxCycles)
	}

	suite, err := o.suiteRepo.Read(ctx, suiteId)

	if err != nil {
		return "", validationError("unknown test suite %s: %w", suiteId, err)
	}

	record := domain.Cycle{
		Id:              uuid.New().String(),
		SuiteId:         suiteId,
		Prompt:          prompt,
		TargetThreshold: targetThreshold,
		MaxCycles:       maxCycles,
		Status:          domain.CycleRunning,
	}

	if err := o.cycleRepo.Insert(ctx, record); err != nil {
		return "", fmt.Errorf("persisting cycle record: %w", err)
	}

	cc := &cycleCtx{record: record, suite: *suite, listeners: map[int]func(Event){}}

	o.mu.Lock()
	o.cycles[record.Id] = cc
	o.mu.Unlock()

	go o.run(context.WithoutCancel(ctx), cc)

	return record.Id, nil
}

// Cancel validates the transition, then flags the loop. The flag is only
// checked between iterations; an in-flight test run always finishes first.
// A paused cycle has no parked loop, so it is cancelled directly.
func (o *Orchestrator) Cancel(ctx context.Context, cycleId string) error {
	cc, err := o.lookup(cycleId)

	if err != nil {
		return err
	}

	cc.mu.Lock()
	if _, err := domain.TransitionCycle(cc.effectiveStatus(), domain.CycleCancelled); err != nil {
		cc.mu.Unlock()
		return validationError("cancel cycle %s: %w", cycleId, err)
	}

	if cc.record.Status == domain.CyclePaused {
		cc.record.Status = domain.CycleCancelled
		record := cc.record
		cc.mu.Unlock()
		o.persist(ctx, record)
		o.emit(ctx, cc, finishedEvent(record))
		return nil
	}

	cc.requested = domain.CycleCancelled
	cc.mu.Unlock()
	return nil
}

// Pause flags the loop; the loop persists the paused status at its next
// iteration boundary and exits. Resume starts a fresh loop invocation.
func (o *Orchestrator) Pause(_ context.Context, cycleId string) error {
	cc, err := o.lookup(cycleId)

	if err != nil {
		return err
	}

	cc.mu.Lock()
	defer cc.mu.Unlock()

	if _, err := domain.TransitionCycle(cc.effectiveStatus(), domain.CyclePaused); err != nil {
		return validationError("pause cycle %s: %w", cycleId, err)
	}

	cc.requested = domain.CyclePaused
	return nil
}

// Resume continues a paused cycle from its persisted counters in a new
// goroutine; the cycle count carries over, it is never restarted.
func (o *Orchestrator) Resume(ctx context.Context, cycleId string) error {
	cc, err := o.lookup(cycleId)

	if err != nil {
		return err
	}

	cc.mu.Lock()
	if _, err := domain.TransitionCycle(cc.effectiveStatus(), domain.CycleRunning); err != nil {
		cc.mu.Unlock()
		return validationError("resume cycle %s: %w", cycleId, err)
	}

	if cc.record.Status != domain.CyclePaused {
		// The pause flag was set but the loop has not parked yet; just
		// withdraw the request.
		cc.requested = ""
		cc.mu.Unlock()
		return nil
	}

	cc.record.Status = domain.CycleRunning
	cc.requested = ""
	record := cc.record
	cc.mu.Unlock()

	o.persist(ctx, record)
	go o.run(context.WithoutCancel(ctx), cc)

	return nil
}

func (o *Orchestrator) GetRecord(ctx context.Context, cycleId string) (*domain.Cycle, error) {
	o.mu.Lock()
	cc, ok := o.cycles[cycleId]
	o.mu.Unlock()

	if !ok {
		return o.cycleRepo.Read(ctx, cycleId)
	}

	cc.mu.Lock()
	defer cc.mu.Unlock()
	record := cc.record
	return &record, nil
}

// AddEventListener subscribes fn to the cycle's progress stream and returns
// a token for removal. There is no replay: a listener registered after an
// event fired misses it.
func (o *Orchestrator) AddEventListener(cycleId string, fn func(Event)) (int, error) {
	cc, err := o.lookup(cycleId)

	if err != nil {
		return 0, err
	}

	cc.mu.Lock()
	defer cc.mu.Unlock()

	cc.nextToken++
	cc.listeners[cc.nextToken] = fn
	return cc.nextToken, nil
}

// RemoveEventListener drops a listener; removing the last one does not stop
// the loop.
func (o *Orchestrator) RemoveEventListener(cycleId string, token int) {
	cc, err := o.lookup(cycleId)

	if err != nil {
		return
	}

	cc.mu.Lock()
	defer cc.mu.Unlock()
	delete(cc.listeners, token)
}

func (o *Orchestrator) lookup(cycleId string) (*cycleCtx, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	cc, ok := o.cycles[cycleId]
	if !ok {
		return nil, validationError("unknown cycle %s", cycleId)
	}

	return cc, nil
}

// effectiveStatus is the status control requests validate against: a
// pending cooperative flag wins over the not-yet-updated record.
func (cc *cycleCtx) effectiveStatus() domain.CycleStatus {
	if cc.requested != "" {
		return cc.requested
	}

	return cc.record.Status
}

// run is one loop invocation. One iteration is one cycle: execute the
// suite, evaluate, check the threshold, optimize, repeat. The cooperative
// flag is checked only here at loop-top, never mid-iteration.
func (o *Orchestrator) run(ctx context.Context, cc *cycleCtx) {
	defer func() {
		if r := recover(); r != nil {
			err := fatalError(fmt.Errorf("cycle loop panic: %v", r))
			slog.Error(err.Error())
			cc.mu.Lock()
			record := cc.record
			cc.mu.Unlock()
			o.emit(ctx, cc, Event{Type: EventError, CycleId: record.Id, CycleCount: record.CycleCount, Message: err.Error()})
		}
	}()

	for {
		cc.mu.Lock()
		switch cc.requested {
		case domain.CycleCancelled, domain.CyclePaused:
			cc.record.Status = cc.requested
			cc.requested = ""
			record := cc.record
			cc.mu.Unlock()
			o.persist(ctx, record)
			o.emit(ctx, cc, finishedEvent(record))
			return
		}

		// The counter is committed together with the run id after the run
		// persists, so readers never observe them out of step.
		count := cc.record.CycleCount + 1
		prompt := cc.record.Prompt
		record := cc.record
		cc.mu.Unlock()

		o.emit(ctx, cc, Event{Type: EventCycleStart, CycleId: record.Id, CycleCount: count})

		run, err := o.executeRun(ctx, cc.suite, prompt, record.Id)

		if err != nil {
			o.fail(ctx, cc, count, err)
			return
		}

		cc.mu.Lock()
		cc.record.CycleCount = count
		cc.record.TestRunIds = append(cc.record.TestRunIds, run.Id)
		if count == 1 {
			cc.record.StartingPassRate = run.OverallPassRate
		}
		cc.record.EndingPassRate = run.OverallPassRate
		record = cc.record
		cc.mu.Unlock()
		o.persist(ctx, record)

		o.emit(ctx, cc, Event{
			Type:       EventTestRunComplete,
			CycleId:    record.Id,
			CycleCount: count,
			PassRate:   run.OverallPassRate,
			TestRunId:  run.Id,
		})

		// The threshold check precedes any optimization call, so a final
		// successful iteration never triggers one. Reaching the cap is a
		// normal termination.
		if run.OverallPassRate >= record.TargetThreshold || count >= record.MaxCycles {
			o.finish(ctx, cc)
			return
		}

		failures, passes := domain.PartitionCriterionResults(run.Results)
		if len(failures) == 0 {
			slog.Warn(fmt.Sprintf("cycle %s: below threshold with no failed criteria, skipping optimization", record.Id))
			continue
		}

		optimization, err := o.optimizer.Optimize(ctx, prompt, failures, passes)

		if err != nil {
			o.fail(ctx, cc, count, err)
			return
		}

		optimization.CycleId = record.Id
		if err := o.optimizationRepo.Insert(ctx, *optimization); err != nil {
			o.fail(ctx, cc, count, err)
			return
		}

		// The automated loop auto-accepts its own revisions; only the
		// manual flow leaves them pending review.
		accepted, err := domain.TransitionOptimization(optimization.Status, domain.OptimizationAccepted)

		if err != nil {
			o.fail(ctx, cc, count, err)
			return
		}

		if err := o.optimizationRepo.UpdateStatus(ctx, optimization.Id, accepted); err != nil {
			slog.Error(fmt.Sprintf("persisting optimization status: %s", err.Error()))
		}

		cc.mu.Lock()
		cc.record.Prompt = optimization.RevisedPrompt
		cc.record.OptimizationIds = append(cc.record.OptimizationIds, optimization.Id)
		record = cc.record
		cc.mu.Unlock()
		o.persist(ctx, record)

		o.emit(ctx, cc, Event{
			Type:           EventOptimizationComplete,
			CycleId:        record.Id,
			CycleCount:     count,
			OptimizationId: optimization.Id,
		})
	}
}

// executeRun runs every test case sequentially, evaluates completed cases
// and persists the resulting test run. Per-case agent failures are
// contained in the case result; evaluator failures abort the run.
func (o *Orchestrator) executeRun(ctx context.Context, suite domain.TestSuite, promptSnapshot string, cycleId string) (*domain.TestRun, error) {
	results := make([]domain.TestCaseResult, 0, len(suite.Cases))
	for _, tc := range suite.Cases {
		result := o.executor.ExecuteTestCase(ctx, tc, promptSnapshot)

		if result.Status == domain.ResultCompleted {
			criterionResults, err := o.evaluator.EvaluateAllCriteria(ctx, result.Responses, tc.Criteria)

			if err != nil {
				return nil, err
			}

			result.CriterionResults = criterionResults
		}

		results = append(results, result)
	}

	run := domain.TestRun{
		Id:              uuid.New().String(),
		SuiteId:         suite.Id,
		CycleId:         cycleId,
		PromptSnapshot:  promptSnapshot,
		Results:         results,
		OverallPassRate: domain.PassRate(results),
	}

	if err := o.runRepo.Insert(ctx, run); err != nil {
		return nil, err
	}

	return &run, nil
}

func (o *Orchestrator) finish(ctx context.Context, cc *cycleCtx) {
	cc.mu.Lock()
	// A pause or cancel that arrived mid-iteration loses to normal
	// termination; the flag must not outlive the loop, or control requests
	// on the completed cycle would validate against it.
	cc.requested = ""
	next, err := domain.TransitionCycle(cc.record.Status, domain.CycleCompleted)
	if err != nil {
		cc.mu.Unlock()
		slog.Error(fmt.Sprintf("completing cycle: %s", err.Error()))
		return
	}
	cc.record.Status = next
	record := cc.record
	cc.mu.Unlock()

	o.persist(ctx, record)
	o.emit(ctx, cc, finishedEvent(record))
}

// fail reports an orchestrator-fatal error; the cycle record stays in its
// last-persisted state.
func (o *Orchestrator) fail(ctx context.Context, cc *cycleCtx, count int, err error) {
	cc.mu.Lock()
	cc.requested = ""
	id := cc.record.Id
	cc.mu.Unlock()

	slog.Error(fmt.Sprintf("cycle %s failed: %s", id, err.Error()))
	o.emit(ctx, cc, Event{Type: EventError, CycleId: id, CycleCount: count, Message: err.Error()})
}

func (o *Orchestrator) persist(ctx context.Context, record domain.Cycle) {
	if err := o.cycleRepo.Update(ctx, record); err != nil {
		slog.Error(fmt.Sprintf("persisting cycle record: %s", err.Error()))
	}
}

func (o *Orchestrator) emit(ctx context.Context, cc *cycleCtx, event Event) {
	if err := o.eventRepo.Capture(ctx, string(event.Type), event.CycleId); err != nil {
		slog.Error(fmt.Sprintf("capturing event: %s", err.Error()))
	}

	cc.mu.Lock()
	listeners := make([]func(Event), 0, len(cc.listeners))
	for _, fn := range cc.listeners {
		listeners = append(listeners, fn)
	}
	cc.mu.Unlock()

	for _, fn := range listeners {
		fn(event)
	}
}

func finishedEvent(record domain.Cycle) Event {
	return Event{
		Type:       EventFinished,
		CycleId:    record.Id,
		CycleCount: record.CycleCount,
		PassRate:   record.EndingPassRate,
		Status:     record.Status,
	}
}
