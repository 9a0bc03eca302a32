// Package action maps agent-authored code snippets onto grid
// displacements. The vocabulary is closed (five verbs, nothing is
// ever executed) and interpretation fails open: a malformed snippet
// reports an error but still yields whatever partial displacement the
// recognized calls accumulated, so one bad model completion degrades
// to a weak step instead of halting data collection.
package action

import (
	"fmt"
	"strings"

	"github.com/kalambet/lmpc/internal/particle"
)

// StepSize is the per-call displacement on one axis.
const StepSize = 0.5

// Verb is one entry of the closed action vocabulary.
type Verb int

const (
	Wait Verb = iota
	MoveUp
	MoveDown
	MoveLeft
	MoveRight
)

func (v Verb) String() string {
	switch v {
	case MoveUp:
		return "move_up()"
	case MoveDown:
		return "move_down()"
	case MoveLeft:
		return "move_left()"
	case MoveRight:
		return "move_right()"
	default:
		return "wait()"
	}
}

// displacement of each verb. Calls are additive within one snippet.
func (v Verb) displacement() particle.Point {
	switch v {
	case MoveUp:
		return particle.Point{X: 0, Y: StepSize}
	case MoveDown:
		return particle.Point{X: 0, Y: -StepSize}
	case MoveLeft:
		return particle.Point{X: -StepSize, Y: 0}
	case MoveRight:
		return particle.Point{X: StepSize, Y: 0}
	default:
		return particle.Point{}
	}
}

var verbs = map[string]Verb{
	"move_up()":    MoveUp,
	"move_down()":  MoveDown,
	"move_left()":  MoveLeft,
	"move_right()": MoveRight,
	"wait()":       Wait,
}

// Interpret parses a snippet of calls and returns the accumulated
// displacement. The snippet may contain any number of calls separated
// by newlines or semicolons. Unrecognized statements are collected
// into the returned error; the displacement from statements that did
// parse is returned regardless, zero if nothing parsed. Callers must
// treat a non-nil error as advisory, never as a reason to abort the
// episode.
func Interpret(snippet string) (particle.Point, error) {
	var d particle.Point
	var bad []string

	for _, stmt := range strings.FieldsFunc(snippet, isSeparator) {
		stmt = normalize(stmt)
		if stmt == "" {
			continue
		}
		v, ok := verbs[stmt]
		if !ok {
			bad = append(bad, stmt)
			continue
		}
		d = d.Add(v.displacement())
	}

	if len(bad) > 0 {
		return d, fmt.Errorf("unrecognized calls: %s", strings.Join(bad, ", "))
	}
	return d, nil
}

func isSeparator(r rune) bool {
	return r == '\n' || r == ';'
}

// normalize strips whitespace inside and around a statement so that
// "move_up ()" and " move_up()" both match the vocabulary.
func normalize(stmt string) string {
	var sb strings.Builder
	for _, r := range stmt {
		if r == ' ' || r == '\t' || r == '\r' {
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
