package app

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/promptcycle/promptcycle/internal/domain"
	"github.com/promptcycle/promptcycle/internal/genai"
)

// Optimizer asks the generative-model client to revise a prompt given
// pass/fail evidence. Diffing the revision is the caller's concern.
type Optimizer struct {
	Client genai.Client
}

// Optimize requires at least one failure; callers short-circuit before
// invoking it with none. A revision identical to the original is a client
// contract violation and surfaces as an error, never as a silent no-op.
func (o Optimizer) Optimize(ctx context.Context, originalPrompt string, failures []domain.CriterionResult, passes []domain.CriterionResult) (*domain.Optimization, error) {
	if len(failures) == 0 {
		return nil, validationError("optimize requires at least one failed criterion")
	}

	result, err := o.Client.Optimize(ctx, originalPrompt, failures, passes)

	if err != nil {
		return nil, providerError(err)
	}

	if result.RevisedPrompt == originalPrompt {
		return nil, providerError(errors.New("model returned an unchanged prompt"))
	}

	return &domain.Optimization{
		Id:                   uuid.New().String(),
		OriginalPrompt:       originalPrompt,
		RevisedPrompt:        result.RevisedPrompt,
		Changes:              result.Changes,
		TargetedCriterionIds: result.TargetedCriterionIds,
		Status:               domain.OptimizationGenerated,
	}, nil
}
