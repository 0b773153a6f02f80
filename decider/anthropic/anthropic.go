// Package anthropic provides a core.Decider backed by the Anthropic Claude
// Messages API.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/openagora/agora/core"
	"github.com/openagora/agora/decider"
)

// Options configure the Anthropic decider adapter (model id, temperature,
// max tokens, API key).
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Decider wraps the Anthropic Messages API behind core.Decider.
type Decider struct {
	client *anthropic.Client
	opts   Options
}

// NewDecider creates a new Anthropic decider using the official client.
func NewDecider(optFns ...func(o *Options)) *Decider {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   1024,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)

	return &Decider{client: &client, opts: opts}
}

// NewDeciderFromClient creates a new Anthropic decider from an existing client.
func NewDeciderFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Decider {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   1024,
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

	resp, err := d.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       d.opts.Model,
		MaxTokens:   d.opts.MaxTokens,
		Temperature: anthropic.Float(d.opts.Temperature),
		System:      []anthropic.TextBlockParam{{Text: system}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		return core.Decision{}, fmt.Errorf("anthropic api error: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.AsText().Text)
		}
	}
	if text.Len() == 0 {
		return core.Decision{}, fmt.Errorf("empty completion")
	}
	return decider.ParseDecision(text.String())
}
