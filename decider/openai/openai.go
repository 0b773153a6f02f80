// Package openai provides a core.Decider backed by the OpenAI Chat
// Completions API. It renders the agent state into a JSON-answer prompt and
// parses the completion back into a structured decision.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/openagora/agora/core"
	"github.com/openagora/agora/decider"
)

// Options configure the OpenAI decider adapter. Fields mirror a minimal
// subset of Chat Completion parameters; extend via functional options
// without breaking callers.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// Decider wraps the OpenAI Chat Completions API behind core.Decider.
type Decider struct {
	client *openai.Client
	opts   Options
}

// NewDecider creates a new OpenAI decider using the official client.
func NewDecider(optFns ...func(o *Options)) *Decider {
	client := openai.NewClient()
	return NewDeciderFromClient(&client, optFns...)
}

// NewDeciderFromClient creates a new OpenAI decider from an existing client.
func NewDeciderFromClient(client *openai.Client, optFns ...func(o *Options)) *Decider {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 1024,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Decider{client: client, opts: opts}
}

// Decide implements core.Decider.
func (d *Decider) Decide(ctx context.Context, state core.AgentState) (core.Decision, error) {
	system, user, err := decider.BuildPrompt(state)
	if err != nil {
		return core.Decision{}, err
	}

	resp, err := d.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Model:               d.opts.Model,
		Temperature:         openai.Float(d.opts.Temperature),
		MaxCompletionTokens: openai.Int(d.opts.MaxCompletionTokens),
	})
	if err != nil {
		return core.Decision{}, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return core.Decision{}, fmt.Errorf("no choices returned")
	}
	return decider.ParseDecision(resp.Choices[0].Message.Content)
}
