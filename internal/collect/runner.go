// Package collect drives repeated episodes of the particle task
// against a policy and tabulates the resulting transcripts.
package collect

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/lmpc/internal/action"
	"github.com/kalambet/lmpc/internal/particle"
	"github.com/kalambet/lmpc/internal/policy"
	"github.com/kalambet/lmpc/internal/transcript"
)

// Environment abstracts the particle world for the collection loop.
type Environment interface {
	Reset(noise float64) (description, instruction string)
	Step(d particle.Point) (feedback string, outcome particle.Outcome)
	Outcome() particle.Outcome
	GoalName() string
}

// Episode is one collected episode record. Read-only once built.
type Episode struct {
	ID         string
	RunID      string
	Speaker    string
	Goal       string
	Noise      float64
	Messages   []transcript.Message
	ChatLength int
	Success    bool
	CreatedAt  time.Time
}

// Run groups the episodes of one collection invocation.
type Run struct {
	ID        string
	Speaker   string
	Policy    string
	Noise     float64
	Episodes  int
	StartedAt time.Time
}

// Runner collects episodes from one environment/policy pairing.
// Episodes run strictly sequentially; the policy may parallelize
// internally but the outer loop never overlaps episodes.
type Runner struct {
	env     Environment
	pol     policy.Policy
	speaker string
	logger  *slog.Logger
}

// NewRunner creates a Runner. The speaker label tags collected
// records with the feedback source's identity.
func NewRunner(env Environment, pol policy.Policy, speaker string) *Runner {
	return &Runner{
		env:     env,
		pol:     pol,
		speaker: speaker,
		logger:  slog.Default(),
	}
}

// Episode runs a single episode to its terminal outcome and returns
// the record. A malformed action snippet is logged and treated as a
// no-op displacement (the episode continues); a policy/model error
// aborts the episode and is returned.
func (r *Runner) Episode(ctx context.Context, runID string, noise float64) (Episode, error) {
	desc, instr := r.env.Reset(noise)

	t := transcript.Transcript{}.User(desc + " " + instr)

	for {
		snippet, err := r.pol.Act(ctx, t)
		if err != nil {
			return Episode{}, fmt.Errorf("querying policy: %w", err)
		}
		t = t.Assistant(snippet)

		d, perr := action.Interpret(snippet)
		if perr != nil {
			r.logger.Warn("unparseable action snippet", "error", perr, "snippet", snippet)
		}

		feedback, outcome := r.env.Step(d)
		if outcome != particle.Undecided {
			success := outcome == particle.Success
			t = append(t, transcript.Marker(success))
			return Episode{
				ID:         uuid.New().String(),
				RunID:      runID,
				Speaker:    r.speaker,
				Goal:       r.env.GoalName(),
				Noise:      noise,
				Messages:   t,
				ChatLength: len(t),
				Success:    success,
				CreatedAt:  time.Now().UTC(),
			}, nil
		}

		t = t.User(feedback)
	}
}

// Collect runs n sequential episodes at the given noise level. The
// first policy/model error aborts the remainder of the run; episodes
// collected up to that point are returned alongside the error.
func (r *Runner) Collect(ctx context.Context, n int, noise float64, policyName string) (Run, []Episode, error) {
	run := Run{
		ID:        uuid.New().String(),
		Speaker:   r.speaker,
		Policy:    policyName,
		Noise:     noise,
		StartedAt: time.Now().UTC(),
	}

	episodes := make([]Episode, 0, n)
	for i := 0; i < n; i++ {
		ep, err := r.Episode(ctx, run.ID, noise)
		if err != nil {
			run.Episodes = len(episodes)
			return run, episodes, fmt.Errorf("episode %d: %w", i, err)
		}
		episodes = append(episodes, ep)
		r.logger.Info("episode collected",
			"episode", i,
			"goal", ep.Goal,
			"success", ep.Success,
			"chat_length", ep.ChatLength,
		)
	}

	run.Episodes = len(episodes)
	return run, episodes, nil
}
