package genai

import (
	"fmt"
	"strings"

	"github.com/promptcycle/promptcycle/internal/domain"
)

const analyzeTemplate = `Analyze the following conversational agent prompt.

Prompt:

%s

Respond with a JSON object of the shape
{"summary": string, "intents": [string], "constraints": [string]}
describing what the prompt is for, the user intents it must handle and the
constraints it imposes. Respond with JSON only.`

const generateTemplate = `Design a test suite for a conversational agent based on this analysis.

Summary: %s
Intents: %s
Constraints: %s

Produce at least five test cases. Include at least one happy-path and one
adversarial case. Every case needs at least one success criterion with an
evaluation instruction. Respond with a JSON object of the shape
{"cases": [{"scenario": string, "type": "happy_path"|"adversarial",
"turns": [{"turn_number": int, "utterance": string, "context": string}],
"criteria": [{"description": string,
"category": "behavioral"|"functional"|"compliance",
"eval_instruction": string}]}]}. Respond with JSON only.`

const evaluateTemplate = `Judge whether the agent responses below satisfy a success criterion.

Criterion: %s
Evaluation instruction: %s

Agent responses, in turn order:

%s

Respond with a JSON object of the shape
{"passed": bool, "explanation": string}. When passed is false the
explanation must say what was missing. Respond with JSON only.`

const optimizeTemplate = `Revise the following conversational agent prompt so that the failed
criteria below would pass, without breaking the criteria that passed.

Current prompt:

%s

Failed criteria:

%s

Passed criteria:

%s

The revised prompt must differ from the current prompt. Respond with a JSON
object of the shape {"revised_prompt": string,
"changes": [{"description": string, "rationale": string}],
"targeted_criterion_ids": [string]}. Respond with JSON only.`

func renderAnalyze(prompt string) string {
	return fmt.Sprintf(analyzeTemplate, prompt)
}

func renderGenerate(analysis domain.Analysis) string {
	return fmt.Sprintf(generateTemplate,
		analysis.Summary,
		strings.Join(analysis.Intents, "; "),
		strings.Join(analysis.Constraints, "; "))
}

func renderEvaluate(responses []domain.AgentResponse, criterion domain.SuccessCriterion) string {
	return fmt.Sprintf(evaluateTemplate,
		criterion.Description,
		criterion.EvalInstruction,
		renderTranscript(responses))
}

func renderOptimize(original string, failures []domain.CriterionResult, passes []domain.CriterionResult) string {
	return fmt.Sprintf(optimizeTemplate, original, renderCriterionResults(failures), renderCriterionResults(passes))
}

func renderTranscript(responses []domain.AgentResponse) string {
	lines := make([]string, len(responses))
	for i, r := range responses {
		lines[i] = fmt.Sprintf("Turn %d: %s", r.TurnNumber, r.Text)
	}
	return strings.Join(lines, "\n")
}

func renderCriterionResults(results []domain.CriterionResult) string {
	if len(results) == 0 {
		return "(none)"
	}

	lines := make([]string, len(results))
	for i, r := range results {
		lines[i] = fmt.Sprintf("- [%s] %s", r.CriterionId, r.Explanation)
	}
	return strings.Join(lines, "\n")
}
