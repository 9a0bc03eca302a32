package particle

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"math/rand"
	"strings"
)

// Outcome is the tri-state episode verdict. Undecided keeps the
// episode loop going; Success and Failure are terminal.
type Outcome int

const (
	Undecided Outcome = iota
	Success
	Failure
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Failure:
		return "failure"
	default:
		return "undecided"
	}
}

// FeedbackBudget is the number of corrective inputs allowed before an
// episode is declared failed.
const FeedbackBudget = 5

// tolerance for position/goal axis comparison. Positions move in 0.5
// increments so this only needs to absorb float drift.
const tolerance = 1e-4

// The five feedback strings. Feedback compares one axis at a time,
// vertical before horizontal, so an agent offset on both axes gets two
// sequential single-axis corrections rather than one diagonal one.
const (
	FeedbackNorth = "go north"
	FeedbackSouth = "go south"
	FeedbackEast  = "go east"
	FeedbackWest  = "go west"
	FeedbackStay  = "do not move"
)

// Env is a deterministic 2D point-mass world. A single Env instance
// owns the state of its current episode; Reset discards it and starts
// a new one. Not safe for concurrent use.
type Env struct {
	rng *rand.Rand

	pos      Point
	goalPos  Point
	goalName string
	steps    int
	noise    float64
	path     []Point

	// Real-user mode: feedback is typed by a human instead of
	// synthesized, and the path is rendered before each prompt.
	input  *bufio.Reader
	output io.Writer
}

// New creates an Env with synthesized feedback. The rng drives start,
// goal, and decoy sampling; pass a seeded source for reproducibility.
func New(rng *rand.Rand) *Env {
	return &Env{rng: rng}
}

// NewInteractive creates an Env in real-user mode: Feedback renders
// the current path to out and blocks reading one line from in.
func NewInteractive(rng *rand.Rand, in io.Reader, out io.Writer) *Env {
	return &Env{rng: rng, input: bufio.NewReader(in), output: out}
}

// Reset starts a new episode at the given noise level. Start and goal
// are sampled from the goal table, re-sampling until the pair is not
// already a success (no zero-step episodes). Returns a description of
// the start location and the instruction naming the goal.
func (e *Env) Reset(noise float64) (description, instruction string) {
	for {
		start := goals[e.rng.Intn(len(goals))]
		target := goals[e.rng.Intn(len(goals))]
		if withinTolerance(start.Pos, target.Pos) {
			continue
		}
		e.pos = start.Pos
		e.goalPos = target.Pos
		e.goalName = target.Name
		e.steps = 0
		e.noise = noise
		e.path = []Point{start.Pos}
		return fmt.Sprintf("You are at the %s.", start.Name),
			fmt.Sprintf("Go to the %s.", target.Name)
	}
}

// Step applies a displacement, clamping each axis to [-1,1]. Clamping
// silently absorbs overshoot at the world boundary; it is not an
// error. Returns the next feedback string and the episode outcome.
func (e *Env) Step(d Point) (string, Outcome) {
	e.pos = clamp(e.pos.Add(d))
	e.path = append(e.path, e.pos)
	e.steps++
	outcome := e.Outcome()
	if outcome != Undecided && e.input != nil {
		// The episode is over; don't prompt the real user for
		// feedback nobody will consume.
		return "", outcome
	}
	return e.Feedback(), outcome
}

// Feedback returns the next corrective input. In real-user mode it
// renders the path and blocks for a typed line. Otherwise it
// synthesizes feedback relative to the true goal, or, with
// probability equal to the noise level, relative to a uniformly
// resampled decoy goal (an inattentive or mistaken user).
func (e *Env) Feedback() string {
	if e.input != nil {
		return e.readFeedback()
	}
	target := e.goalPos
	if e.rng.Float64() < e.noise {
		target = goals[e.rng.Intn(len(goals))].Pos
	}
	return directionTo(e.pos, target)
}

// Outcome reports the episode verdict: Success when the agent matches
// the goal on both axes, Failure once the step count has exceeded the
// feedback budget without a match, Undecided otherwise. Repeated
// calls without an intervening Step return the same verdict.
func (e *Env) Outcome() Outcome {
	if withinTolerance(e.pos, e.goalPos) {
		return Success
	}
	if e.steps > FeedbackBudget {
		return Failure
	}
	return Undecided
}

// Position returns the agent's current position.
func (e *Env) Position() Point { return e.pos }

// Goal returns the current goal position.
func (e *Env) Goal() Point { return e.goalPos }

// GoalName returns the name of the current goal.
func (e *Env) GoalName() string { return e.goalName }

// Steps returns the number of Step calls since the last Reset.
func (e *Env) Steps() int { return e.steps }

// Path returns the positions visited this episode, start included.
func (e *Env) Path() []Point { return e.path }

func (e *Env) readFeedback() string {
	fmt.Fprint(e.output, e.Render())
	fmt.Fprint(e.output, "feedback> ")
	line, err := e.input.ReadString('\n')
	if err != nil && line == "" {
		return FeedbackStay
	}
	return strings.TrimSpace(line)
}

// directionTo picks the single-axis correction from pos toward target.
// Vertical mismatch takes priority over horizontal.
func directionTo(pos, target Point) string {
	switch {
	case target.Y-pos.Y > tolerance:
		return FeedbackNorth
	case pos.Y-target.Y > tolerance:
		return FeedbackSouth
	case target.X-pos.X > tolerance:
		return FeedbackEast
	case pos.X-target.X > tolerance:
		return FeedbackWest
	default:
		return FeedbackStay
	}
}

func withinTolerance(a, b Point) bool {
	return math.Abs(a.X-b.X) <= tolerance && math.Abs(a.Y-b.Y) <= tolerance
}

func clamp(p Point) Point {
	return Point{X: clampAxis(p.X), Y: clampAxis(p.Y)}
}

func clampAxis(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
