package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/promptcycle/promptcycle/internal/domain"
	"github.com/promptcycle/promptcycle/internal/genai"
)

// Evaluator judges captured agent responses against success criteria via
// the generative-model client.
type Evaluator struct {
	Client genai.Client
}

// EvaluateAllCriteria returns one result per criterion, in the order of
// the input list. Evaluation is sequential so result sets stay
// reproducible.
func (e Evaluator) EvaluateAllCriteria(ctx context.Context, responses []domain.AgentResponse, criteria []domain.SuccessCriterion) ([]domain.CriterionResult, error) {
	results := make([]domain.CriterionResult, 0, len(criteria))
	for _, criterion := range criteria {
		result, err := e.EvaluateCriterion(ctx, responses, criterion)

		if err != nil {
			return nil, err
		}

		results = append(results, *result)
	}

	return results, nil
}

// EvaluateCriterion guarantees a non-empty explanation on every failed
// result, regardless of what the client returned.
func (e Evaluator) EvaluateCriterion(ctx context.Context, responses []domain.AgentResponse, criterion domain.SuccessCriterion) (*domain.CriterionResult, error) {
	result, err := e.Client.EvaluateCriterion(ctx, responses, criterion)

	if err != nil {
		return nil, providerError(err)
	}

	judged := *result
	judged.CriterionId = criterion.Id
	if !judged.Passed && strings.TrimSpace(judged.Explanation) == "" {
		judged.Explanation = fmt.Sprintf("criterion %q was not satisfied by the captured responses", criterion.Description)
	}

	return &judged, nil
}
