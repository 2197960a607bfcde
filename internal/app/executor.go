package app

import (
	"context"
	"fmt"

	"github.com/promptcycle/promptcycle/internal/domain"
)

// Executor plays a test case's scripted input turns against the agent
// collaborator, one turn at a time.
type Executor struct {
	Agent Agent
}

// ExecuteTestCase collects one response per input turn. On any failure the
// result is a pure error view: already-collected responses are discarded
// and criterion results stay empty.
func (e Executor) ExecuteTestCase(ctx context.Context, tc domain.TestCase, promptSnapshot string) domain.TestCaseResult {
	responses := make([]domain.AgentResponse, 0, len(tc.Turns))
	for _, turn := range tc.Turns {
		text, err := e.Agent.Send(ctx, composeUtterance(turn), promptSnapshot)

		if err != nil {
			return domain.TestCaseResult{
				TestCaseId:   tc.Id,
				Status:       domain.ResultError,
				ErrorMessage: err.Error(),
			}
		}

		responses = append(responses, domain.AgentResponse{TurnNumber: turn.TurnNumber, Text: text})
	}

	return domain.TestCaseResult{
		TestCaseId: tc.Id,
		Status:     domain.ResultCompleted,
		Responses:  responses,
	}
}

func composeUtterance(turn domain.InputTurn) string {
	if turn.Context == "" {
		return turn.Utterance
	}

	return fmt.Sprintf("%s\n\n(context: %s)", turn.Utterance, turn.Context)
}
