// Command test-tools drives a flipview-mcp binary through a reading
// scenario and checks the render window after each step.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"flipview/internal/mcpserver"
	"flipview/internal/pdftest"
	"flipview/internal/viewer"
)

func main() {
	serverFlag := flag.String("server", "", "path to the flipview-mcp binary")
	flag.Parse()

	fmt.Println("🧪 Testing flipview MCP Server and Tool Calling")
	fmt.Println("===============================================")
	fmt.Println()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	serverPath := *serverFlag
	if serverPath == "" {
		serverPath = findServerBinary()
	}
	if serverPath == "" {
		log.Fatal("❌ MCP server binary not found. Run: go build -o flipview-mcp ./cmd/flipview-mcp")
	}
	fmt.Println("✅ Test 1: MCP server binary found")

	// A generated 20-page document keeps the scenario deterministic.
	dir, err := os.MkdirTemp("", "flipview-smoke")
	if err != nil {
		log.Fatalf("❌ temp dir: %v", err)
	}
	defer os.RemoveAll(dir)
	docPath := filepath.Join(dir, "smoke.pdf")
	if err := os.WriteFile(docPath, pdftest.Simple(20, 800, 1000, 0), 0o644); err != nil {
		log.Fatalf("❌ write sample document: %v", err)
	}

	cmd := exec.Command(serverPath)
	cmd.Stderr = os.Stderr
	transport := &mcp.CommandTransport{Command: cmd}

	client := mcp.NewClient(&mcp.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}, nil)

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		log.Fatalf("❌ Failed to connect to MCP server: %v", err)
	}
	defer session.Close()
	fmt.Println("✅ Test 2: Connected to MCP server")

	fmt.Println("\n✓ Test 3: Listing available tools")
	listResult, err := session.ListTools(ctx, nil)
	if err != nil {
		log.Fatalf("❌ Failed to list tools: %v", err)
	}
	fmt.Printf("  Found %d tools:\n", len(listResult.Tools))
	for _, tool := range listResult.Tools {
		fmt.Printf("  - %s: %s\n", tool.Name, tool.Description)
	}

	steps := []struct {
		name string
		tool string
		args map[string]any
		want viewer.Window
	}{
		{"open document", "open_document", map[string]any{"source": docPath}, viewer.Window{Low: 0, High: 4}},
		{"turn to page 10", "turn_to", map[string]any{"page": 10}, viewer.Window{Low: 0, High: 14}},
		{"turn back to page 2", "turn_to", map[string]any{"page": 2}, viewer.Window{Low: 0, High: 14}},
		{"turn to page 18", "turn_to", map[string]any{"page": 18}, viewer.Window{Low: 0, High: 19}},
		{"zoom in", "set_zoom", map[string]any{"zoom": 2.5}, viewer.Window{Low: 0, High: 19}},
		{"enter fullscreen", "toggle_fullscreen", map[string]any{}, viewer.Window{Low: 16, High: 19}},
	}

	failures := 0
	for i, step := range steps {
		fmt.Printf("\n✓ Test %d: %s\n", i+4, step.name)
		res, err := callState(ctx, session, step.tool, step.args)
		if err != nil {
			fmt.Printf("  ❌ %s failed: %v\n", step.tool, err)
			failures++
			continue
		}
		got := res.Snapshot.Window
		if got != step.want {
			fmt.Printf("  ❌ window [%d,%d], want [%d,%d]\n", got.Low, got.High, step.want.Low, step.want.High)
			failures++
			continue
		}
		fmt.Printf("  ✅ page %d, window [%d,%d], %d surfaces rendered\n",
			res.Snapshot.State.CurrentPageIndex, got.Low, got.High, res.Rendered)
	}

	fmt.Printf("\n✓ Test %d: reading_history\n", len(steps)+4)
	history, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "reading_history",
		Arguments: map[string]any{"limit": 5},
	})
	if err != nil || history.IsError {
		fmt.Printf("  ⚠️  History tool failed (events flush on an interval): %v\n", err)
	} else {
		fmt.Println("  ✅ History tool called successfully")
	}

	fmt.Println("\n===============================================")
	if failures > 0 {
		fmt.Printf("❌ %d step(s) failed\n", failures)
		os.Exit(1)
	}
	fmt.Println("✅ All MCP tool calling tests complete!")
	fmt.Println("\n💡 To test interactively, run: go run ./cmd/mcp-client ./flipview-mcp")
}

func callState(ctx context.Context, session *mcp.ClientSession, tool string, args map[string]any) (*mcpserver.StateResult, error) {
	result, err := session.CallTool(ctx, &mcp.CallToolParams{Name: tool, Arguments: args})
	if err != nil {
		return nil, err
	}
	if result.IsError {
		for _, c := range result.Content {
			if t, ok := c.(*mcp.TextContent); ok {
				return nil, fmt.Errorf("%s", t.Text)
			}
		}
		return nil, fmt.Errorf("tool reported an error")
	}

	// Structured output arrives as generic JSON; round-trip it into the
	// server's result type.
	raw, err := json.Marshal(result.StructuredContent)
	if err != nil {
		return nil, err
	}
	var state mcpserver.StateResult
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("decode %s result: %w", tool, err)
	}
	return &state, nil
}

func findServerBinary() string {
	candidates := []string{
		"./flipview-mcp",
		"../../flipview-mcp",
		"../../../flipview-mcp",
	}
	for _, p := range candidates {
		if abs, err := filepath.Abs(p); err == nil {
			if _, err := os.Stat(abs); err == nil {
				return abs
			}
		}
	}
	return ""
}
