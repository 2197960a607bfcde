// Package genai wraps the remote generative-model provider behind a small
// typed contract shared by the analysis, generation, evaluation and
// optimization stages.
package genai

import (
	"context"

	"github.com/promptcycle/promptcycle/internal/domain"
)

type OptimizeResult struct {
	RevisedPrompt        string          `json:"revised_prompt"`
	Changes              []domain.Change `json:"changes"`
	TargetedCriterionIds []string        `json:"targeted_criterion_ids"`
}

// Client is the generative-model contract. Implementations issue one remote
// call per operation under a configurable timeout and retry transport or
// parse failures with exponential backoff. Fallback satisfies the same
// contract with fixed outputs for offline operation.
type Client interface {
	Analyze(ctx context.Context, prompt string) (*domain.Analysis, error)
	GenerateTestCases(ctx context.Context, analysis domain.Analysis) ([]domain.TestCase, error)
	EvaluateCriterion(ctx context.Context, responses []domain.AgentResponse, criterion domain.SuccessCriterion) (*domain.CriterionResult, error)
	Optimize(ctx context.Context, original string, failures []domain.CriterionResult, passes []domain.CriterionResult) (*OptimizeResult, error)
}
