// Package toolserver wires the task tools into an MCP server served
// over stdio. This is the composition root for the todo-mcp binary:
// no business logic lives here, only registration.
package toolserver

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/MrAhmed42/todo-evolution/internal/buildinfo"
	"github.com/MrAhmed42/todo-evolution/internal/store"
)

const serverName = "todo-mcp"

// New creates the MCP server with every task tool registered against
// the given store.
func New(st *store.Store) *server.MCPServer {
	s := server.NewMCPServer(
		serverName,
		buildinfo.Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(
			"Task management tools for the todo assistant. "+
				"Every tool requires the user_id of the task owner; "+
				"tasks are never visible across users.",
		),
	)

	addTool := NewAddTaskTool(st)
	s.AddTool(addTool.Definition(), addTool.Handle)

	listTool := NewListTasksTool(st)
	s.AddTool(listTool.Definition(), listTool.Handle)

	completeTool := NewCompleteTaskTool(st)
	s.AddTool(completeTool.Definition(), completeTool.Handle)

	deleteTool := NewDeleteTaskTool(st)
	s.AddTool(deleteTool.Definition(), deleteTool.Handle)

	updateTool := NewUpdateTitleTool(st)
	s.AddTool(updateTool.Definition(), updateTool.Handle)

	return s
}

// Serve runs the server on stdin/stdout until the client disconnects.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}
