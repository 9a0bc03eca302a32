// Package policy contains the decision-making side of the control
// loop: the contract a policy satisfies, the single-shot base policy,
// and the receding-horizon rollout-search policy.
package policy

import (
	"context"
	"fmt"

	"github.com/kalambet/lmpc/internal/llm"
	"github.com/kalambet/lmpc/internal/transcript"
)

// Completer abstracts the model query interface: role-tagged messages
// plus generation parameters in, generated text out.
type Completer interface {
	Chat(ctx context.Context, req llm.ChatRequest) (string, error)
}

// Policy turns the dialogue so far into the next code snippet.
type Policy interface {
	Act(ctx context.Context, t transcript.Transcript) (string, error)
}

// Base is the single-shot policy: one completion request conditioned
// on the preamble plus the transcript, raw text returned as the next
// snippet. No retries, no validation; errors propagate to the caller.
type Base struct {
	Client      Completer
	Model       string
	Temperature float64
}

// Act implements Policy.
func (b *Base) Act(ctx context.Context, t transcript.Transcript) (string, error) {
	msgs := transcript.Preamble().Clone()
	msgs = append(msgs, t...)

	text, err := b.Client.Chat(ctx, llm.ChatRequest{
		Model:       b.Model,
		Messages:    msgs,
		Temperature: b.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("querying model: %w", err)
	}
	return text, nil
}
