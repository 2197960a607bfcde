package genai

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/promptcycle/promptcycle/internal/domain"
)

type RetryConfig struct {
	MaxRetries   int
	InitialDelay time.Duration
	Timeout      time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxRetries: 3, InitialDelay: 500 * time.Millisecond, Timeout: 60 * time.Second}
}

// OpenAIClient implements Client over the OpenAI chat-completion API.
type OpenAIClient struct {
	model   string
	retry   RetryConfig
	limiter *rate.Limiter
	send    func(ctx context.Context, instruction string) (string, error)
}

func NewOpenAIClient(apiKey string, model string, retry RetryConfig) *OpenAIClient {
	client := openai.NewClient(apiKey)

	c := &OpenAIClient{
		model:   model,
		retry:   retry,
		limiter: rate.NewLimiter(rate.Limit(2), 4),
	}
	c.send = func(ctx context.Context, instruction string) (string, error) {
		return c.complete(ctx, client, instruction)
	}

	return c
}

func (c *OpenAIClient) complete(ctx context.Context, client *openai.Client, instruction string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	callCtx, cancel := context.WithTimeout(ctx, c.retry.Timeout)
	defer cancel()

	resp, err := client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: instruction},
		},
	})

	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("model returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}

// call issues the instruction and decodes the structured payload, retrying
// transport and parse failures alike with delay = initialDelay * 2^attempt.
// The last error is re-raised once retries are exhausted.
func call[T any](ctx context.Context, c *OpenAIClient, instruction string) (*T, error) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		raw, err := c.send(ctx, instruction)
		if err == nil {
			parsed := Parse[T](raw)
			if parsed.OK {
				return parsed.Value, nil
			}
			err = parsed.Err
		}
		lastErr = err

		if attempt >= c.retry.MaxRetries {
			break
		}

		delay := c.retry.InitialDelay << attempt
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("model call failed after %d attempts: %w", c.retry.MaxRetries+1, lastErr)
}

func (c *OpenAIClient) Analyze(ctx context.Context, prompt string) (*domain.Analysis, error) {
	analysis, err := call[domain.Analysis](ctx, c, renderAnalyze(prompt))

	if err != nil {
		return nil, err
	}

	analysis.Prompt = prompt
	return analysis, nil
}

type caseListing struct {
	Cases []domain.TestCase `json:"cases"`
}

func (c *OpenAIClient) GenerateTestCases(ctx context.Context, analysis domain.Analysis) ([]domain.TestCase, error) {
	listing, err := call[caseListing](ctx, c, renderGenerate(analysis))

	if err != nil {
		return nil, err
	}

	return listing.Cases, nil
}

func (c *OpenAIClient) EvaluateCriterion(ctx context.Context, responses []domain.AgentResponse, criterion domain.SuccessCriterion) (*domain.CriterionResult, error) {
	result, err := call[domain.CriterionResult](ctx, c, renderEvaluate(responses, criterion))

	if err != nil {
		return nil, err
	}

	result.CriterionId = criterion.Id
	return result, nil
}

func (c *OpenAIClient) Optimize(ctx context.Context, original string, failures []domain.CriterionResult, passes []domain.CriterionResult) (*OptimizeResult, error) {
	return call[OptimizeResult](ctx, c, renderOptimize(original, failures, passes))
}
