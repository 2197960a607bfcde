package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/promptcycle/promptcycle/internal/domain"
	"github.com/promptcycle/promptcycle/internal/genai"
)

type fakeAgent struct {
	send func(ctx context.Context, utterance string, promptSnapshot string) (string, error)
}

func (a fakeAgent) Send(ctx context.Context, utterance string, promptSnapshot string) (string, error) {
	return a.send(ctx, utterance, promptSnapshot)
}

// echoAgent answers every turn with the prompt snapshot, so evaluation fakes
// can judge based on the prompt in effect at execution time.
func echoAgent() fakeAgent {
	return fakeAgent{send: func(_ context.Context, _ string, promptSnapshot string) (string, error) {
		return promptSnapshot, nil
	}}
}

type fakeClient struct {
	analyze   func(ctx context.Context, prompt string) (*domain.Analysis, error)
	generate  func(ctx context.Context, analysis domain.Analysis) ([]domain.TestCase, error)
	evaluate  func(ctx context.Context, responses []domain.AgentResponse, criterion domain.SuccessCriterion) (*domain.CriterionResult, error)
	optimize  func(ctx context.Context, original string, failures []domain.CriterionResult, passes []domain.CriterionResult) (*genai.OptimizeResult, error)
	mu        sync.Mutex
	evalCalls int
	optCalls  int
}

func (c *fakeClient) Analyze(ctx context.Context, prompt string) (*domain.Analysis, error) {
	if c.analyze == nil {
		return &domain.Analysis{Prompt: prompt, Summary: "a support agent"}, nil
	}

	return c.analyze(ctx, prompt)
}

func (c *fakeClient) GenerateTestCases(ctx context.Context, analysis domain.Analysis) ([]domain.TestCase, error) {
	return c.generate(ctx, analysis)
}

func (c *fakeClient) EvaluateCriterion(ctx context.Context, responses []domain.AgentResponse, criterion domain.SuccessCriterion) (*domain.CriterionResult, error) {
	c.mu.Lock()
	c.evalCalls++
	c.mu.Unlock()

	if c.evaluate == nil {
		return &domain.CriterionResult{Passed: true, Explanation: "ok"}, nil
	}

	return c.evaluate(ctx, responses, criterion)
}

func (c *fakeClient) Optimize(ctx context.Context, original string, failures []domain.CriterionResult, passes []domain.CriterionResult) (*genai.OptimizeResult, error) {
	c.mu.Lock()
	c.optCalls++
	c.mu.Unlock()

	if c.optimize == nil {
		return &genai.OptimizeResult{
			RevisedPrompt: original + "\nBe concise.",
			Changes:       []domain.Change{{Description: "added a brevity instruction", Rationale: "responses ran long"}},
		}, nil
	}

	return c.optimize(ctx, original, failures, passes)
}

func (c *fakeClient) optimizeCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.optCalls
}

type memRepos struct {
	mu            sync.Mutex
	suites        map[string]domain.TestSuite
	runs          map[string]domain.TestRun
	optimizations map[string]domain.Optimization
	cycles        map[string]domain.Cycle
	events        []string
}

func newMemRepos() *memRepos {
	return &memRepos{
		suites:        map[string]domain.TestSuite{},
		runs:          map[string]domain.TestRun{},
		optimizations: map[string]domain.Optimization{},
		cycles:        map[string]domain.Cycle{},
	}
}

type suiteRepoStub struct{ m *memRepos }

func (r suiteRepoStub) Insert(_ context.Context, suite domain.TestSuite) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.suites[suite.Id] = suite
	return nil
}

func (r suiteRepoStub) Read(_ context.Context, id string) (*domain.TestSuite, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	suite, ok := r.m.suites[id]
	if !ok {
		return nil, fmt.Errorf("record %s not found", id)
	}

	return &suite, nil
}

type runRepoStub struct{ m *memRepos }

func (r runRepoStub) Insert(_ context.Context, run domain.TestRun) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.runs[run.Id] = run
	return nil
}

func (r runRepoStub) Read(_ context.Context, id string) (*domain.TestRun, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	run, ok := r.m.runs[id]
	if !ok {
		return nil, fmt.Errorf("record %s not found", id)
	}

	return &run, nil
}

type optimizationRepoStub struct{ m *memRepos }

func (r optimizationRepoStub) Insert(_ context.Context, optimization domain.Optimization) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.optimizations[optimization.Id] = optimization
	return nil
}

func (r optimizationRepoStub) UpdateStatus(_ context.Context, id string, status domain.OptimizationStatus) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	optimization, ok := r.m.optimizations[id]
	if !ok {
		return fmt.Errorf("record %s not found", id)
	}

	optimization.Status = status
	r.m.optimizations[id] = optimization
	return nil
}

func (r optimizationRepoStub) Read(_ context.Context, id string) (*domain.Optimization, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	optimization, ok := r.m.optimizations[id]
	if !ok {
		return nil, fmt.Errorf("record %s not found", id)
	}

	return &optimization, nil
}

type cycleRepoStub struct{ m *memRepos }

func (r cycleRepoStub) Insert(_ context.Context, cycle domain.Cycle) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.cycles[cycle.Id] = cycle
	return nil
}

func (r cycleRepoStub) Update(_ context.Context, cycle domain.Cycle) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.cycles[cycle.Id] = cycle
	return nil
}

func (r cycleRepoStub) Read(_ context.Context, id string) (*domain.Cycle, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	cycle, ok := r.m.cycles[id]
	if !ok {
		return nil, fmt.Errorf("record %s not found", id)
	}

	return &cycle, nil
}

type eventRepoStub struct{ m *memRepos }

func (r eventRepoStub) Capture(_ context.Context, eventType string, cycleId string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.events = append(r.m.events, fmt.Sprintf("%s:%s", cycleId, eventType))
	return nil
}

func (m *memRepos) eventLog() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	events := make([]string, len(m.events))
	copy(events, m.events)
	return events
}

func suiteFixture() domain.TestSuite {
	suite := domain.TestSuite{Id: "suite-1", AnalysisId: "analysis-1"}
	for i := 0; i < 5; i++ {
		caseType := domain.CaseTypeHappyPath
		if i == 4 {
			caseType = domain.CaseTypeAdversarial
		}

		suite.Cases = append(suite.Cases, domain.TestCase{
			Id:       fmt.Sprintf("case-%d", i+1),
			SuiteId:  suite.Id,
			Scenario: fmt.Sprintf("scenario %d", i+1),
			Type:     caseType,
			Turns:    []domain.InputTurn{{TurnNumber: 1, Utterance: fmt.Sprintf("question %d", i+1)}},
			Criteria: []domain.SuccessCriterion{{
				Id:              fmt.Sprintf("crit-%d", i+1),
				Description:     "answers politely",
				Category:        domain.CategoryBehavioral,
				EvalInstruction: "check tone",
			}},
		})
	}

	return suite
}
