package genai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptcycle/promptcycle/internal/domain"
)

func TestFallbackGeneratesValidSuiteShape(t *testing.T) {
	cases, err := Fallback{}.GenerateTestCases(context.Background(), domain.Analysis{})

	require.NoError(t, err)
	require.GreaterOrEqual(t, len(cases), 5)

	var happy, adversarial bool
	for _, tc := range cases {
		assert.NotEmpty(t, tc.Turns)
		assert.NotEmpty(t, tc.Criteria)
		switch tc.Type {
		case domain.CaseTypeHappyPath:
			happy = true
		case domain.CaseTypeAdversarial:
			adversarial = true
		}
	}
	assert.True(t, happy)
	assert.True(t, adversarial)
}

func TestFallbackOptimizeRevisesPrompt(t *testing.T) {
	failures := []domain.CriterionResult{{CriterionId: "crit-1", Explanation: "missed"}}

	result, err := Fallback{}.Optimize(context.Background(), "original", failures, nil)

	require.NoError(t, err)
	assert.NotEqual(t, "original", result.RevisedPrompt)
	assert.Equal(t, []string{"crit-1"}, result.TargetedCriterionIds)
	assert.NotEmpty(t, result.Changes)
}

func TestFallbackEvaluateIsDeterministic(t *testing.T) {
	responses := []domain.AgentResponse{{TurnNumber: 1, Text: "Sure, here you go."}}
	criterion := domain.SuccessCriterion{Id: "crit-1", Description: "answers directly"}

	first, err := Fallback{}.EvaluateCriterion(context.Background(), responses, criterion)
	require.NoError(t, err)
	second, err := Fallback{}.EvaluateCriterion(context.Background(), responses, criterion)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.True(t, first.Passed)
}

func TestFallbackEvaluateFailsWithExplanation(t *testing.T) {
	result, err := Fallback{}.EvaluateCriterion(context.Background(), nil, domain.SuccessCriterion{Description: "d"})

	require.NoError(t, err)
	assert.False(t, result.Passed)
	assert.NotEmpty(t, result.Explanation)
}
