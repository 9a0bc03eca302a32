package api

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/lmpc/internal/action"
	"github.com/kalambet/lmpc/internal/particle"
)

// MCPDeps holds dependencies for the playground MCP server.
type MCPDeps struct {
	Rng *rand.Rand
}

// playground wraps one particle environment behind a mutex so
// concurrent tool calls see a consistent episode.
type playground struct {
	mu     sync.Mutex
	env    *particle.Env
	active bool
}

// NewMCPServer creates an MCP server exposing the particle grid as an
// interactive playground. A client resets an episode, issues movement
// snippets, and reads feedback like the model does during collection.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"lmpc",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("lmpc playground: drive a particle to a hidden goal on a 2D grid using movement commands and directional feedback."),
		server.WithRecovery(),
	)

	pg := &playground{env: particle.New(deps.Rng)}

	s.AddTool(
		mcp.NewTool("particle_reset",
			mcp.WithDescription("Start a new episode: place the particle and pick a hidden goal. Returns the position description and goal instruction."),
			mcp.WithNumber("noise", mcp.Description("Probability in [0,1] that each feedback points at a decoy goal (default 0)")),
		),
		mcpParticleReset(pg),
	)

	s.AddTool(
		mcp.NewTool("particle_step",
			mcp.WithDescription("Execute a snippet of movement calls (move_up(), move_down(), move_left(), move_right(), wait()) and return feedback, outcome, and a grid rendering."),
			mcp.WithString("code", mcp.Description("Movement calls separated by newlines or semicolons"), mcp.Required()),
		),
		mcpParticleStep(pg),
	)

	s.AddTool(
		mcp.NewTool("particle_feedback",
			mcp.WithDescription("Return the current directional feedback and outcome without moving."),
		),
		mcpParticleFeedback(pg),
	)

	s.AddResource(
		mcp.NewResource(
			"particle://goals",
			"Goal Positions",
			mcp.WithResourceDescription("The nine named goal positions on the grid as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceGoals(),
	)

	return s
}

func mcpParticleReset(pg *playground) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		noise := req.GetFloat("noise", 0)
		if noise < 0 || noise > 1 {
			return mcpError("noise must be in [0,1]"), nil
		}

		pg.mu.Lock()
		defer pg.mu.Unlock()

		description, instruction := pg.env.Reset(noise)
		pg.active = true

		return mcpText(description + " " + instruction), nil
	}
}

func mcpParticleStep(pg *playground) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		code, err := req.RequireString("code")
		if err != nil {
			return mcpError("code is required"), nil
		}

		pg.mu.Lock()
		defer pg.mu.Unlock()

		if !pg.active {
			return mcpError("no active episode; call particle_reset first"), nil
		}

		d, interpErr := action.Interpret(code)
		feedback, outcome := pg.env.Step(d)

		text := feedback
		if interpErr != nil {
			text = fmt.Sprintf("%s (note: %v)", feedback, interpErr)
		}
		text += "\n" + pg.env.Render()
		if outcome != particle.Undecided {
			text += "\noutcome: " + outcome.String()
			pg.active = false
		}

		return mcpText(text), nil
	}
}

func mcpParticleFeedback(pg *playground) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		pg.mu.Lock()
		defer pg.mu.Unlock()

		if !pg.active {
			return mcpError("no active episode; call particle_reset first"), nil
		}

		text := pg.env.Feedback() + "\noutcome: " + pg.env.Outcome().String()
		return mcpText(text), nil
	}
}

func mcpResourceGoals() server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		type goalEntry struct {
			Name string  `json:"name"`
			X    float64 `json:"x"`
			Y    float64 `json:"y"`
		}

		var entries []goalEntry
		for _, name := range particle.GoalNames() {
			pos, _ := particle.GoalPosition(name)
			entries = append(entries, goalEntry{Name: name, X: pos.X, Y: pos.Y})
		}

		b, err := json.Marshal(entries)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal goals: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
