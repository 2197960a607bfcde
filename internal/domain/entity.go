package domain

type CaseType string

const (
	CaseTypeHappyPath   CaseType = "happy_path"
	CaseTypeAdversarial CaseType = "adversarial"
)

type CriterionCategory string

const (
	CategoryBehavioral CriterionCategory = "behavioral"
	CategoryFunctional CriterionCategory = "functional"
	CategoryCompliance CriterionCategory = "compliance"
)

type InputTurn struct {
	TurnNumber int    `json:"turn_number"`
	Utterance  string `json:"utterance" validate:"required"`
	Context    string `json:"context,omitempty"`
}

type SuccessCriterion struct {
	Id              string            `json:"id"`
	Description     string            `json:"description" validate:"required"`
	Category        CriterionCategory `json:"category" validate:"oneof=behavioral functional compliance"`
	EvalInstruction string            `json:"eval_instruction" validate:"required"`
}

type TestCase struct {
	Id       string             `json:"id"`
	SuiteId  string             `json:"suite_id"`
	Scenario string             `json:"scenario" validate:"required"`
	Type     CaseType           `json:"type" validate:"oneof=happy_path adversarial"`
	Turns    []InputTurn        `json:"turns" validate:"min=1,dive"`
	Criteria []SuccessCriterion `json:"criteria" validate:"min=1,dive"`
}

type TestSuite struct {
	Id         string     `json:"id"`
	AnalysisId string     `json:"analysis_id"`
	Cases      []TestCase `json:"cases" validate:"min=5,dive"`
}

type Analysis struct {
	Id          string   `json:"id"`
	Prompt      string   `json:"prompt"`
	Summary     string   `json:"summary"`
	Intents     []string `json:"intents"`
	Constraints []string `json:"constraints"`
}

type AgentResponse struct {
	TurnNumber int    `json:"turn_number"`
	Text       string `json:"text"`
}

type ResultStatus string

const (
	ResultCompleted ResultStatus = "completed"
	ResultError     ResultStatus = "error"
)

type CriterionResult struct {
	CriterionId string `json:"criterion_id"`
	Passed      bool   `json:"passed"`
	Explanation string `json:"explanation"`
}

// TestCaseResult is either a complete success view (responses plus one
// criterion result per criterion) or a pure error view, never a mixture.
type TestCaseResult struct {
	TestCaseId       string            `json:"test_case_id"`
	Status           ResultStatus      `json:"status"`
	Responses        []AgentResponse   `json:"responses,omitempty"`
	CriterionResults []CriterionResult `json:"criterion_results,omitempty"`
	ErrorMessage     string            `json:"error_message,omitempty"`
}

type TestRun struct {
	Id              string           `json:"id"`
	SuiteId         string           `json:"suite_id"`
	CycleId         string           `json:"cycle_id,omitempty"`
	PromptSnapshot  string           `json:"prompt_snapshot"`
	Results         []TestCaseResult `json:"results"`
	OverallPassRate float64          `json:"overall_pass_rate"`
}

type Change struct {
	Description string `json:"description"`
	Rationale   string `json:"rationale"`
}

type Optimization struct {
	Id                   string             `json:"id"`
	CycleId              string             `json:"cycle_id,omitempty"`
	OriginalPrompt       string             `json:"original_prompt"`
	RevisedPrompt        string             `json:"revised_prompt"`
	Changes              []Change           `json:"changes"`
	TargetedCriterionIds []string           `json:"targeted_criterion_ids"`
	Status               OptimizationStatus `json:"status"`
}

// Cycle is the orchestration unit. It is owned exclusively by the
// orchestrator goroutine that runs it; persisted snapshots are read-only
// to everyone else.
type Cycle struct {
	Id               string      `json:"id"`
	SuiteId          string      `json:"suite_id"`
	Prompt           string      `json:"prompt"`
	CycleCount       int         `json:"cycle_count"`
	StartingPassRate float64     `json:"starting_pass_rate"`
	EndingPassRate   float64     `json:"ending_pass_rate"`
	TargetThreshold  float64     `json:"target_threshold"`
	MaxCycles        int         `json:"max_cycles"`
	Status           CycleStatus `json:"status"`
	TestRunIds       []string    `json:"test_run_ids"`
	OptimizationIds  []string    `json:"optimization_ids"`
}
