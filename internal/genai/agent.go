package genai

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"
)

// ChatAgent plays test-input turns against a chat-completion model acting
// as the target agent, with the prompt snapshot as its system message.
type ChatAgent struct {
	client *openai.Client
	model  string
}

func NewChatAgent(apiKey string, model string) *ChatAgent {
	return &ChatAgent{client: openai.NewClient(apiKey), model: model}
}

func (a *ChatAgent) Send(ctx context.Context, utterance string, promptSnapshot string) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: promptSnapshot},
			{Role: openai.ChatMessageRoleUser, Content: utterance},
		},
	})

	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("agent returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}
