package transcript

import (
	"strings"
	"testing"
)

func TestCloneIsIndependent(t *testing.T) {
	base := Transcript{}.User("go north").Assistant("move_up()")
	c := base.Clone()
	c = c.User("go east")

	if len(base) != 2 {
		t.Fatalf("base grew to %d messages after clone append", len(base))
	}
	if len(c) != 3 {
		t.Fatalf("clone has %d messages, want 3", len(c))
	}
	if base[1].Content != "move_up()" {
		t.Errorf("base mutated: %+v", base)
	}
}

func TestMarker(t *testing.T) {
	if m := Marker(true); m.Content != SuccessMarker || m.Role != RoleUser {
		t.Errorf("Marker(true) = %+v", m)
	}
	if m := Marker(false); m.Content != FailureMarker {
		t.Errorf("Marker(false) = %+v", m)
	}
}

func TestContainsSuccess(t *testing.T) {
	if !ContainsSuccess("move_up()\nsuccess: True") {
		t.Error("marker not detected inside larger completion")
	}
	if ContainsSuccess("success: False") {
		t.Error("failure marker misread as success")
	}
}

func TestPreambleShape(t *testing.T) {
	p := Preamble()
	if len(p) == 0 {
		t.Fatal("empty preamble")
	}
	if p[0].Role != RoleSystem {
		t.Errorf("preamble[0].Role = %q, want system", p[0].Role)
	}
	if p[len(p)-1].Content != SuccessMarker {
		t.Errorf("preamble example does not end in success marker: %q", p[len(p)-1].Content)
	}
}

func TestWriteJSONL(t *testing.T) {
	episodes := [][]Message{
		{
			{Role: RoleUser, Content: "You are at the center. Go to the top."},
			{Role: RoleAssistant, Content: "move_up()"},
			{Role: RoleUser, Content: SuccessMarker},
		},
	}

	var sb strings.Builder
	if err := WriteJSONL(&sb, episodes); err != nil {
		t.Fatalf("WriteJSONL: %v", err)
	}

	got := sb.String()
	want := `{"messages":[{"role":"user","content":"You are at the center. Go to the top."},{"role":"assistant","content":"move_up()"},{"role":"user","content":"success: True"}]}` + "\n"
	if got != want {
		t.Errorf("jsonl mismatch:\ngot  %s\nwant %s", got, want)
	}
}

func TestRelabel(t *testing.T) {
	msgs := []Message{
		{Role: RoleUser, Content: "go north"},
		{Role: RoleAssistant, Content: "move_up()"},
	}
	out := Relabel(msgs, RoleAssistant)
	for i, m := range out {
		if m.Role != RoleAssistant {
			t.Errorf("out[%d].Role = %q, want assistant", i, m.Role)
		}
	}
	if msgs[0].Role != RoleUser {
		t.Error("Relabel mutated its input")
	}
}
