package channel

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MrAhmed42/todo-evolution/internal/mcp"
	"github.com/MrAhmed42/todo-evolution/internal/tools"
)

// StdioDialer returns a Dialer that spawns the tool server command
// over stdio, runs the initialize handshake, and verifies the server
// actually offers the task tools the orchestrator will call.
func StdioDialer(cfg mcp.StdioConfig, logger *slog.Logger) Dialer {
	return func(ctx context.Context) (Conn, error) {
		transport := mcp.NewStdioTransport(cfg)
		client := mcp.NewClient(transport, logger)

		if err := client.Initialize(ctx); err != nil {
			client.Close()
			return nil, fmt.Errorf("initialize tool server: %w", err)
		}

		defs, err := client.ListTools(ctx)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("list tools: %w", err)
		}
		offered := make(map[string]bool, len(defs))
		for _, d := range defs {
			offered[d.Name] = true
		}
		for _, spec := range tools.All() {
			if !offered[spec.Name] {
				client.Close()
				return nil, fmt.Errorf("tool server does not offer %q", spec.Name)
			}
		}

		return client, nil
	}
}
