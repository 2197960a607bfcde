package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/promptcycle/promptcycle/internal/diff"
	"github.com/promptcycle/promptcycle/internal/domain"
)

// The operations below form the manual, single-shot workflow. Unlike the
// automated loop, a manual optimization stays at generated until it is
// explicitly accepted or rejected.

func (a *App) AnalyzePrompt(ctx context.Context, prompt string) (*domain.Analysis, error) {
	if prompt == "" {
		return nil, validationError("prompt must not be empty")
	}

	analysis, err := a.Client.Analyze(ctx, prompt)

	if err != nil {
		return nil, providerError(err)
	}

	analysis.Id = uuid.New().String()
	return analysis, nil
}

// GenerateTestSuite drafts cases from an analysis, assigns ids, validates
// the suite invariants and persists the suite, its cases and their
// criteria as one atomic unit.
func (a *App) GenerateTestSuite(ctx context.Context, analysis domain.Analysis) (*domain.TestSuite, error) {
	cases, err := a.Client.GenerateTestCases(ctx, analysis)

	if err != nil {
		return nil, providerError(err)
	}

	suite := domain.TestSuite{Id: uuid.New().String(), AnalysisId: analysis.Id, Cases: cases}
	for i := range suite.Cases {
		suite.Cases[i].Id = uuid.New().String()
		suite.Cases[i].SuiteId = suite.Id
		for j := range suite.Cases[i].Criteria {
			suite.Cases[i].Criteria[j].Id = uuid.New().String()
		}
	}

	if err := domain.ValidateSuite(suite); err != nil {
		return nil, validationError("generated suite rejected: %w", err)
	}

	if err := a.SuiteRepo.Insert(ctx, suite); err != nil {
		return nil, fmt.Errorf("persisting test suite: %w", err)
	}

	return &suite, nil
}

// ExecuteTestRun plays the whole suite against a prompt snapshot outside
// of any cycle.
func (a *App) ExecuteTestRun(ctx context.Context, suiteId string, prompt string) (*domain.TestRun, error) {
	suite, err := a.SuiteRepo.Read(ctx, suiteId)

	if err != nil {
		return nil, validationError("unknown test suite %s: %w", suiteId, err)
	}

	return a.Orchestrator.executeRun(ctx, *suite, prompt, "")
}

// RetryTestCase re-executes a single case against the run's prompt
// snapshot. The original run is terminal and stays untouched; the retry is
// persisted as a new run with the replaced result and a recomputed pass
// rate.
func (a *App) RetryTestCase(ctx context.Context, runId string, testCaseId string) (*domain.TestRun, error) {
	run, err := a.RunRepo.Read(ctx, runId)

	if err != nil {
		return nil, validationError("unknown test run %s: %w", runId, err)
	}

	suite, err := a.SuiteRepo.Read(ctx, run.SuiteId)

	if err != nil {
		return nil, fmt.Errorf("reading suite for run %s: %w", runId, err)
	}

	var target *domain.TestCase
	for i := range suite.Cases {
		if suite.Cases[i].Id == testCaseId {
			target = &suite.Cases[i]
			break
		}
	}
	if target == nil {
		return nil, validationError("test case %s is not part of run %s", testCaseId, runId)
	}

	result := a.Orchestrator.executor.ExecuteTestCase(ctx, *target, run.PromptSnapshot)
	if result.Status == domain.ResultCompleted {
		criterionResults, evalErr := a.Orchestrator.evaluator.EvaluateAllCriteria(ctx, result.Responses, target.Criteria)

		if evalErr != nil {
			return nil, evalErr
		}

		result.CriterionResults = criterionResults
	}

	retried := *run
	retried.Id = uuid.New().String()
	retried.Results = make([]domain.TestCaseResult, len(run.Results))
	copy(retried.Results, run.Results)
	for i := range retried.Results {
		if retried.Results[i].TestCaseId == testCaseId {
			retried.Results[i] = result
		}
	}
	retried.OverallPassRate = domain.PassRate(retried.Results)

	if err := a.RunRepo.Insert(ctx, retried); err != nil {
		return nil, fmt.Errorf("persisting retried run: %w", err)
	}

	return &retried, nil
}

// CompareTestRuns reports per-criterion improvements and regressions
// between two persisted runs, earlier run first.
func (a *App) CompareTestRuns(ctx context.Context, prevRunId string, nextRunId string) (*domain.RunComparison, error) {
	prev, err := a.RunRepo.Read(ctx, prevRunId)

	if err != nil {
		return nil, validationError("unknown test run %s: %w", prevRunId, err)
	}

	next, err := a.RunRepo.Read(ctx, nextRunId)

	if err != nil {
		return nil, validationError("unknown test run %s: %w", nextRunId, err)
	}

	comparison := domain.CompareRuns(*prev, *next)
	return &comparison, nil
}

type OptimizationView struct {
	Optimization domain.Optimization `json:"optimization"`
	Diff         []diff.Line         `json:"diff"`
}

// OptimizePrompt produces a pending revision from a run's failures. The
// diff is computed here, at the request-response boundary; the optimizer
// itself is diff-agnostic.
func (a *App) OptimizePrompt(ctx context.Context, runId string) (*OptimizationView, error) {
	run, err := a.RunRepo.Read(ctx, runId)

	if err != nil {
		return nil, validationError("unknown test run %s: %w", runId, err)
	}

	failures, passes := domain.PartitionCriterionResults(run.Results)
	if len(failures) == 0 {
		return nil, validationError("run %s has no failed criteria to optimize against", runId)
	}

	optimization, err := a.Orchestrator.optimizer.Optimize(ctx, run.PromptSnapshot, failures, passes)

	if err != nil {
		return nil, err
	}

	if err := a.OptimizationRepo.Insert(ctx, *optimization); err != nil {
		return nil, fmt.Errorf("persisting optimization: %w", err)
	}

	return &OptimizationView{
		Optimization: *optimization,
		Diff:         diff.Compute(optimization.OriginalPrompt, optimization.RevisedPrompt),
	}, nil
}

func (a *App) ApplyOptimization(ctx context.Context, optimizationId string) (*domain.Optimization, error) {
	return a.resolveOptimization(ctx, optimizationId, domain.OptimizationAccepted)
}

func (a *App) RejectOptimization(ctx context.Context, optimizationId string) (*domain.Optimization, error) {
	return a.resolveOptimization(ctx, optimizationId, domain.OptimizationRejected)
}

func (a *App) resolveOptimization(ctx context.Context, optimizationId string, requested domain.OptimizationStatus) (*domain.Optimization, error) {
	optimization, err := a.OptimizationRepo.Read(ctx, optimizationId)

	if err != nil {
		return nil, validationError("unknown optimization %s: %w", optimizationId, err)
	}

	next, err := domain.TransitionOptimization(optimization.Status, requested)

	if err != nil {
		return nil, validationError("resolve optimization %s: %w", optimizationId, err)
	}

	if err := a.OptimizationRepo.UpdateStatus(ctx, optimizationId, next); err != nil {
		return nil, fmt.Errorf("persisting optimization status: %w", err)
	}

	optimization.Status = next
	return optimization, nil
}
