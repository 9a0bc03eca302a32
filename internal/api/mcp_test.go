package api

import (
	"context"
	"encoding/json"
	"math/rand"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kalambet/lmpc/internal/particle"
)

func newTestPlayground() *playground {
	return &playground{env: particle.New(rand.New(rand.NewSource(7)))}
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func makeReadResourceRequest(uri string) mcp.ReadResourceRequest {
	return mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestMCPTool_ParticleReset(t *testing.T) {
	pg := newTestPlayground()
	handler := mcpParticleReset(pg)

	req := makeCallToolRequest("particle_reset", map[string]interface{}{
		"noise": 0.0,
	})

	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error: %s", toolText(t, result))
	}

	text := toolText(t, result)
	if !strings.HasPrefix(text, "You are at the ") {
		t.Errorf("missing position description: %s", text)
	}
	if !strings.Contains(text, "Go to the ") {
		t.Errorf("missing goal instruction: %s", text)
	}
	if !pg.active {
		t.Error("playground not marked active after reset")
	}
}

func TestMCPTool_ParticleReset_BadNoise(t *testing.T) {
	pg := newTestPlayground()
	handler := mcpParticleReset(pg)

	req := makeCallToolRequest("particle_reset", map[string]interface{}{
		"noise": 1.5,
	})

	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error for noise > 1")
	}
}

func TestMCPTool_ParticleStep(t *testing.T) {
	pg := newTestPlayground()

	reset := mcpParticleReset(pg)
	if _, err := reset(context.Background(), makeCallToolRequest("particle_reset", nil)); err != nil {
		t.Fatalf("reset failed: %v", err)
	}

	handler := mcpParticleStep(pg)
	req := makeCallToolRequest("particle_step", map[string]interface{}{
		"code": "wait()",
	})

	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error: %s", toolText(t, result))
	}

	text := toolText(t, result)
	if !strings.Contains(text, "A") {
		t.Errorf("expected grid rendering with agent marker, got: %s", text)
	}
	if pg.env.Steps() != 1 {
		t.Errorf("Steps() = %d, want 1", pg.env.Steps())
	}
}

func TestMCPTool_ParticleStep_RequiresReset(t *testing.T) {
	pg := newTestPlayground()
	handler := mcpParticleStep(pg)

	req := makeCallToolRequest("particle_step", map[string]interface{}{
		"code": "move_up()",
	})

	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error without an active episode")
	}
}

func TestMCPTool_ParticleStep_ReportsParseErrors(t *testing.T) {
	pg := newTestPlayground()

	reset := mcpParticleReset(pg)
	if _, err := reset(context.Background(), makeCallToolRequest("particle_reset", nil)); err != nil {
		t.Fatalf("reset failed: %v", err)
	}

	handler := mcpParticleStep(pg)
	req := makeCallToolRequest("particle_step", map[string]interface{}{
		"code": "teleport(); wait()",
	})

	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("parse problems should not fail the tool: %s", toolText(t, result))
	}
	if !strings.Contains(toolText(t, result), "teleport()") {
		t.Errorf("expected note about unrecognized call, got: %s", toolText(t, result))
	}
}

func TestMCPTool_ParticleStep_EndsEpisode(t *testing.T) {
	pg := newTestPlayground()

	reset := mcpParticleReset(pg)
	if _, err := reset(context.Background(), makeCallToolRequest("particle_reset", nil)); err != nil {
		t.Fatalf("reset failed: %v", err)
	}

	handler := mcpParticleStep(pg)

	// Walk straight to the goal. The goal position is visible on the
	// playground struct, so compute the exact displacement.
	d := particle.Point{
		X: pg.env.Goal().X - pg.env.Position().X,
		Y: pg.env.Goal().Y - pg.env.Position().Y,
	}
	var calls []string
	for x := d.X; x > 0.1; x -= 0.5 {
		calls = append(calls, "move_right()")
	}
	for x := d.X; x < -0.1; x += 0.5 {
		calls = append(calls, "move_left()")
	}
	for y := d.Y; y > 0.1; y -= 0.5 {
		calls = append(calls, "move_up()")
	}
	for y := d.Y; y < -0.1; y += 0.5 {
		calls = append(calls, "move_down()")
	}
	if len(calls) == 0 {
		t.Fatal("reset placed particle on the goal")
	}

	req := makeCallToolRequest("particle_step", map[string]interface{}{
		"code": strings.Join(calls, "; "),
	})
	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	text := toolText(t, result)
	if !strings.Contains(text, "outcome: success") {
		t.Fatalf("expected success outcome, got: %s", text)
	}
	if pg.active {
		t.Error("episode still active after terminal outcome")
	}
}

func TestMCPTool_ParticleFeedback(t *testing.T) {
	pg := newTestPlayground()

	reset := mcpParticleReset(pg)
	if _, err := reset(context.Background(), makeCallToolRequest("particle_reset", nil)); err != nil {
		t.Fatalf("reset failed: %v", err)
	}

	handler := mcpParticleFeedback(pg)
	result, err := handler(context.Background(), makeCallToolRequest("particle_feedback", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error: %s", toolText(t, result))
	}

	text := toolText(t, result)
	if !strings.Contains(text, "outcome: undecided") {
		t.Errorf("expected undecided outcome, got: %s", text)
	}
	if pg.env.Steps() != 0 {
		t.Errorf("feedback moved the step counter to %d", pg.env.Steps())
	}
}

func TestMCPResource_Goals(t *testing.T) {
	handler := mcpResourceGoals()
	req := makeReadResourceRequest("particle://goals")

	contents, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("expected 1 content, got %d", len(contents))
	}

	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("expected TextResourceContents, got %T", contents[0])
	}

	var entries []struct {
		Name string  `json:"name"`
		X    float64 `json:"x"`
		Y    float64 `json:"y"`
	}
	if err := json.Unmarshal([]byte(tc.Text), &entries); err != nil {
		t.Fatalf("failed to parse goals JSON: %v", err)
	}
	if len(entries) != 9 {
		t.Fatalf("expected 9 goals, got %d", len(entries))
	}
}
