package transcript

import (
	"encoding/json"
	"fmt"
	"io"
)

// ExportRecord is one training example: a full episode transcript with
// the success marker as its final message. The line-delimited JSON
// shape ({"messages": [...]}) is consumed by the fine-tuning pipeline
// and must stay bit-exact.
type ExportRecord struct {
	Messages []Message `json:"messages"`
}

// WriteJSONL writes one JSON object per episode to w.
func WriteJSONL(w io.Writer, episodes [][]Message) error {
	enc := json.NewEncoder(w)
	for i, msgs := range episodes {
		if err := enc.Encode(ExportRecord{Messages: msgs}); err != nil {
			return fmt.Errorf("encoding episode %d: %w", i, err)
		}
	}
	return nil
}

// Relabel returns a copy of msgs with every role replaced. Training
// data is relabeled to a single speaker role so one fine-tuned model
// can role-play both dialogue participants during rollout simulation.
func Relabel(msgs []Message, role string) []Message {
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = Message{Role: role, Content: m.Content}
	}
	return out
}
