package policy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/kalambet/lmpc/internal/llm"
	"github.com/kalambet/lmpc/internal/particle"
	"github.com/kalambet/lmpc/internal/transcript"
)

const (
	// DefaultRollouts is the number of simulated futures per decision.
	DefaultRollouts = 4

	// rolloutConcurrency bounds in-flight model requests. Rollouts
	// share no mutable state, so the only limit is service capacity.
	rolloutConcurrency = 4
)

// LMPC is the receding-horizon search policy. At every real decision
// point it samples several simulated continuations of the dialogue
// from a fine-tuned model that role-plays both participants, having
// been trained on single-role transcripts, then executes only the
// first action of the best continuation and re-searches next step.
type LMPC struct {
	Client      Completer
	Model       string
	Temperature float64

	// Rollouts overrides DefaultRollouts when > 0.
	Rollouts int

	// FeedbackBudget overrides particle.FeedbackBudget when > 0. The
	// turn budget is FeedbackBudget+1: the opening instruction turn
	// plus one turn per corrective input.
	FeedbackBudget int

	// Concurrency bounds in-flight rollouts; defaults to
	// rolloutConcurrency. 1 forces strictly sequential simulation.
	Concurrency int

	Logger *slog.Logger
}

// rollout is one simulated continuation: the messages appended beyond
// the real transcript and whether a success marker was generated.
// Rollouts own their transcript copies outright; nothing is shared.
type rollout struct {
	messages []transcript.Message
	success  bool
}

// Act implements Policy: simulate Rollouts independent futures,
// select the shortest successful one (stable launch-index tie-break),
// and return the content of its first message only.
func (p *LMPC) Act(ctx context.Context, real transcript.Transcript) (string, error) {
	maxPredictions := p.predictionBudget(len(real))
	n := p.rollouts()

	results := make([]rollout, n)
	limit := p.Concurrency
	if limit <= 0 {
		limit = rolloutConcurrency
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := range results {
		g.Go(func() error {
			ro, err := p.simulate(gctx, real, maxPredictions)
			if err != nil {
				return fmt.Errorf("rollout %d: %w", i, err)
			}
			results[i] = ro
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	best := selectRollout(results)
	if best == nil {
		return "", errors.New("no rollout produced any messages")
	}
	if p.Logger != nil {
		p.Logger.Debug("rollout selected",
			"success", best.success,
			"length", len(best.messages),
			"budget", maxPredictions,
		)
	}
	return best.messages[0].Content, nil
}

// predictionBudget is the number of forward messages still simulatable
// before the transcript-length ceiling: 2 messages per turn over
// maxTurns turns, minus what the real transcript already used, plus
// one for the terminal marker.
func (p *LMPC) predictionBudget(realLen int) int {
	budget := p.FeedbackBudget
	if budget <= 0 {
		budget = particle.FeedbackBudget
	}
	maxTurns := budget + 1
	maxPredictions := 2*maxTurns - realLen + 1
	if maxPredictions < 1 {
		// The transcript already hit the ceiling; still imagine one
		// message so a real action can be extracted.
		maxPredictions = 1
	}
	return maxPredictions
}

func (p *LMPC) rollouts() int {
	if p.Rollouts > 0 {
		return p.Rollouts
	}
	return DefaultRollouts
}

// simulate extends a fresh copy of (preamble + real) one completion at
// a time, stopping the moment a completion carries the success marker
// or after maxPredictions steps without one (failed rollout).
func (p *LMPC) simulate(ctx context.Context, real transcript.Transcript, maxPredictions int) (rollout, error) {
	sim := transcript.Preamble().Clone()
	sim = append(sim, real...)

	var ro rollout
	for range maxPredictions {
		text, err := p.Client.Chat(ctx, llm.ChatRequest{
			Model:       p.Model,
			Messages:    sim,
			Temperature: p.Temperature,
		})
		if err != nil {
			return rollout{}, err
		}

		msg := transcript.Message{Role: transcript.RoleAssistant, Content: text}
		sim = append(sim, msg)
		ro.messages = append(ro.messages, msg)

		if transcript.ContainsSuccess(text) {
			ro.success = true
			break
		}
	}
	return ro, nil
}

// selectRollout picks the successful rollout with the fewest appended
// messages. Strict less-than keeps the lowest-index rollout on ties.
// If none succeeded, the last rollout by index that produced any
// messages is the fallback, successful or not.
func selectRollout(results []rollout) *rollout {
	var best *rollout
	for i := range results {
		r := &results[i]
		if !r.success || len(r.messages) == 0 {
			continue
		}
		if best == nil || len(r.messages) < len(best.messages) {
			best = r
		}
	}
	if best != nil {
		return best
	}

	for i := len(results) - 1; i >= 0; i-- {
		if len(results[i].messages) > 0 {
			return &results[i]
		}
	}
	return nil
}
