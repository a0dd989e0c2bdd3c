package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func main() {
	flag.Parse()
	args := flag.Args()

	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: mcp-client <server-command> [<args>]")
		fmt.Fprintln(os.Stderr, "Example: mcp-client ./flipview-mcp paper.pdf")
		os.Exit(2)
	}

	ctx := context.Background()

	// Start the server as a subprocess
	cmd := exec.Command(args[0], args[1:]...)
	transport := &mcp.CommandTransport{Command: cmd}

	// Create MCP client
	client := mcp.NewClient(&mcp.Implementation{
		Name:    "flipview-client",
		Version: "1.0.0",
	}, nil)

	// Connect to the server
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer session.Close()

	fmt.Println("Connected to flipview MCP Server!")
	fmt.Println("Available commands:")
	fmt.Println("  /tools               - List available tools")
	fmt.Println("  /open <path|url>     - Open a PDF")
	fmt.Println("  /state               - Show viewer state")
	fmt.Println("  /goto <page>         - Turn to a zero-based page")
	fmt.Println("  /next, /prev         - Turn by one spread")
	fmt.Println("  /zoom <level>        - Set zoom")
	fmt.Println("  /fullscreen          - Toggle fullscreen")
	fmt.Println("  /resize <w> <h>      - Set viewport size in pixels")
	fmt.Println("  /page <page>         - Show render status of a page")
	fmt.Println("  /history [limit]     - Show the reading log")
	fmt.Println("  /exit                - Exit the client")
	fmt.Println()

	// Interactive REPL
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		switch parts[0] {
		case "/exit":
			fmt.Println("Goodbye!")
			return

		case "/tools":
			listTools(ctx, session)

		case "/open":
			if len(parts) < 2 {
				fmt.Println("usage: /open <path|url>")
				continue
			}
			callTool(ctx, session, "open_document", map[string]any{"source": parts[1]})

		case "/state":
			callTool(ctx, session, "viewer_state", map[string]any{})

		case "/goto", "/page":
			n, ok := intArg(parts, 1)
			if !ok {
				fmt.Printf("usage: %s <page>\n", parts[0])
				continue
			}
			tool := "turn_to"
			if parts[0] == "/page" {
				tool = "page_status"
			}
			callTool(ctx, session, tool, map[string]any{"page": n})

		case "/next":
			callTool(ctx, session, "next_spread", map[string]any{})

		case "/prev":
			callTool(ctx, session, "previous_spread", map[string]any{})

		case "/zoom":
			z, err := strconv.ParseFloat(strings.Join(parts[1:], ""), 64)
			if err != nil {
				fmt.Println("usage: /zoom <level>")
				continue
			}
			callTool(ctx, session, "set_zoom", map[string]any{"zoom": z})

		case "/fullscreen":
			callTool(ctx, session, "toggle_fullscreen", map[string]any{})

		case "/resize":
			w, okW := intArg(parts, 1)
			h, okH := intArg(parts, 2)
			if !okW || !okH {
				fmt.Println("usage: /resize <w> <h>")
				continue
			}
			callTool(ctx, session, "resize", map[string]any{"width": w, "height": h})

		case "/history":
			args := map[string]any{}
			if n, ok := intArg(parts, 1); ok {
				args["limit"] = n
			}
			callTool(ctx, session, "reading_history", args)

		default:
			fmt.Println("unknown command; /tools lists what the server offers")
		}
	}

	if err := scanner.Err(); err != nil {
		log.Printf("Scanner error: %v", err)
	}
}

func listTools(ctx context.Context, session *mcp.ClientSession) {
	fmt.Println("Available Tools:")
	for tool, err := range session.Tools(ctx, nil) {
		if err != nil {
			log.Printf("Error listing tools: %v", err)
			return
		}
		fmt.Printf("  - %s: %s\n", tool.Name, tool.Description)
	}
	fmt.Println()
}

func callTool(ctx context.Context, session *mcp.ClientSession, toolName string, args map[string]any) {
	result, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      toolName,
		Arguments: args,
	})
	if err != nil {
		log.Printf("Error calling tool: %v", err)
		return
	}

	printResult(result)
}

func printResult(result *mcp.CallToolResult) {
	if result.IsError {
		fmt.Printf("❌ Error: ")
	} else {
		fmt.Printf("✅ Result: ")
	}

	// Try to pretty-print the content
	for _, content := range result.Content {
		switch v := content.(type) {
		case *mcp.TextContent:
			fmt.Println(v.Text)
		default:
			// Try JSON marshaling for other types
			jsonData, err := json.MarshalIndent(content, "", "  ")
			if err != nil {
				fmt.Printf("%+v\n", content)
			} else {
				fmt.Println(string(jsonData))
			}
		}
	}
	fmt.Println()
}

func intArg(parts []string, i int) (int, bool) {
	if len(parts) <= i {
		return 0, false
	}
	n, err := strconv.Atoi(parts[i])
	return n, err == nil
}
