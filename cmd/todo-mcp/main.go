// Todo-mcp is the task tool server.
//
// It speaks the Model Context Protocol over stdio and exposes the
// task operations (add, list, complete, delete, update title) against
// the shared SQLite database. It is normally spawned as a subprocess
// by todod's tool channel, but any MCP client can drive it.
//
// Usage:
//
//	todo-mcp serve              Serve MCP over stdio
//	todo-mcp -db tasks.db serve Use an explicit database path
//	todo-mcp version            Print version information
//
// The database path is resolved from the -db flag, then the
// TODOD_DB_PATH environment variable, then "todod.db".
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/MrAhmed42/todo-evolution/internal/buildinfo"
	"github.com/MrAhmed42/todo-evolution/internal/store"
	"github.com/MrAhmed42/todo-evolution/internal/toolserver"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var dbPath string
	var command string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-db" && i+1 < len(args):
			dbPath = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-db="):
			dbPath = strings.TrimPrefix(args[i], "-db=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			printUsage(os.Stdout)
			return nil
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		default:
			return fmt.Errorf("unknown flag: %s", args[i])
		}
	}

	switch command {
	case "serve":
		return serve(dbPath)
	case "version":
		fmt.Println(buildinfo.String())
		return nil
	case "":
		printUsage(os.Stdout)
		return nil
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

func serve(dbPath string) error {
	if dbPath == "" {
		dbPath = os.Getenv("TODOD_DB_PATH")
	}
	if dbPath == "" {
		dbPath = "todod.db"
	}

	// Stdout carries the MCP framing, so diagnostics go to stderr.
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database %s: %w", dbPath, err)
	}
	defer st.Close()

	logger.Info("tool server starting", "version", buildinfo.Version, "db", dbPath)

	return toolserver.Serve(toolserver.New(st))
}

func printUsage(w *os.File) {
	fmt.Fprintln(w, "Todo-mcp - Task Tool Server (MCP over stdio)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: todo-mcp [flags] <command>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve        Serve MCP over stdio")
	fmt.Fprintln(w, "  version      Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -db <path>   SQLite database path (default: $TODOD_DB_PATH or todod.db)")
}
