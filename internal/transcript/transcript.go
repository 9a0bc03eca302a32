// Package transcript holds the dialogue shapes shared by policies,
// the collection loop, and the export pipeline: role-tagged messages,
// append-only episode transcripts, and the fixed few-shot preamble
// every model query is conditioned on.
package transcript

import "strings"

// Roles used in dialogue messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is one role-tagged dialogue message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Transcript is an ordered message sequence. It grows append-only
// within an episode; rollouts operate on independent clones.
type Transcript []Message

// Clone returns an independent copy with no shared backing array, so
// a rollout can extend it without touching the original.
func (t Transcript) Clone() Transcript {
	c := make(Transcript, len(t), len(t)+8)
	copy(c, t)
	return c
}

// User appends a user (feedback-source) message.
func (t Transcript) User(content string) Transcript {
	return append(t, Message{Role: RoleUser, Content: content})
}

// Assistant appends an assistant (policy) message.
func (t Transcript) Assistant(content string) Transcript {
	return append(t, Message{Role: RoleAssistant, Content: content})
}

// SuccessMarker is the literal that terminates a successful episode
// and the token rollout simulation scans completions for.
const SuccessMarker = "success: True"

// FailureMarker terminates a failed episode in training data.
const FailureMarker = "success: False"

// Marker returns the terminal success-marker message for an episode.
func Marker(success bool) Message {
	if success {
		return Message{Role: RoleUser, Content: SuccessMarker}
	}
	return Message{Role: RoleUser, Content: FailureMarker}
}

// ContainsSuccess reports whether the text carries the success marker.
func ContainsSuccess(text string) bool {
	return strings.Contains(text, SuccessMarker)
}

// Preamble is the fixed few-shot prefix prepended to every model
// query. It is shared and read-only; callers must not mutate the
// returned slice in place (query builders clone before appending).
func Preamble() Transcript {
	return preamble
}

var preamble = Transcript{
	{Role: RoleSystem, Content: "You control a particle on a 5x5 grid by writing short " +
		"code snippets. The available calls are move_up(), move_down(), " +
		"move_left(), move_right(), and wait(). Each move shifts the " +
		"particle half a grid cell. Follow the user's directions: " +
		"\"go north\" means move_up(), \"go south\" means move_down(), " +
		"\"go east\" means move_right(), \"go west\" means move_left(), " +
		"and \"do not move\" means wait()."},
	{Role: RoleUser, Content: "You are at the bottom left. Go to the top."},
	{Role: RoleAssistant, Content: "move_up()"},
	{Role: RoleUser, Content: "go north"},
	{Role: RoleAssistant, Content: "move_up()"},
	{Role: RoleUser, Content: "go east"},
	{Role: RoleAssistant, Content: "move_right()"},
	{Role: RoleUser, Content: "success: True"},
}
