// Todod is the task-manager API daemon.
//
// It exposes a JSON HTTP API for accounts, tasks, and conversational
// task management. Chat turns are orchestrated against an
// OpenAI-compatible model provider, with task operations executed
// through a persistent tool-server subprocess (see cmd/todo-mcp).
// Configuration is loaded from a single YAML file discovered
// automatically (see [config.DefaultSearchPaths]).
//
// Usage:
//
//	todod serve              Start the API server
//	todod init [dir]         Write an example config file
//	todod version            Print version and build information
//	todod -o json version    Output version information as JSON
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/MrAhmed42/todo-evolution/examples"
	"github.com/MrAhmed42/todo-evolution/internal/agent"
	"github.com/MrAhmed42/todo-evolution/internal/api"
	"github.com/MrAhmed42/todo-evolution/internal/auth"
	"github.com/MrAhmed42/todo-evolution/internal/buildinfo"
	"github.com/MrAhmed42/todo-evolution/internal/channel"
	"github.com/MrAhmed42/todo-evolution/internal/config"
	"github.com/MrAhmed42/todo-evolution/internal/llm"
	"github.com/MrAhmed42/todo-evolution/internal/mcp"
	"github.com/MrAhmed42/todo-evolution/internal/store"
)

// main constructs the OS-level environment (context, stdio, argv) and
// delegates immediately to [run]. This keeps os.Exit, os.Stdout, and
// os.Args out of the application logic so the full startup-to-shutdown
// lifecycle can be driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run is the real entry point for the todod command. All OS-level
// dependencies are injected as parameters: ctx controls the process
// lifetime, stdout and stderr receive all output, and args is
// os.Args[1:]. Arguments are parsed by hand because the flag package
// relies on package-level globals that interfere with parallel tests,
// and our argument surface is small.
func run(ctx context.Context, stdout io.Writer, stderr io.Writer, args []string) error {
	var configPath string
	var outputFmt string // "text" (default) or "json"
	var command string
	var cmdArgs []string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++ // skip the value
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case (args[i] == "-o" || args[i] == "--output") && i+1 < len(args):
			outputFmt = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-o="):
			outputFmt = strings.TrimPrefix(args[i], "-o=")
		case strings.HasPrefix(args[i], "--output="):
			outputFmt = strings.TrimPrefix(args[i], "--output=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		default:
			if command != "" {
				// Collect remaining args as subcommand arguments.
				cmdArgs = append(cmdArgs, args[i])
			} else {
				return fmt.Errorf("unknown flag: %s", args[i])
			}
		}
	}

	if outputFmt == "" {
		outputFmt = "text"
	}
	if outputFmt != "text" && outputFmt != "json" {
		return fmt.Errorf("unknown output format: %q (expected text or json)", outputFmt)
	}

	switch command {
	case "serve":
		return runServe(ctx, stdout, stderr, configPath)
	case "init":
		dir := "."
		if len(cmdArgs) > 0 {
			dir = cmdArgs[0]
		}
		return runInit(stdout, dir)
	case "version":
		return runVersion(stdout, outputFmt)
	case "":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// runVersion prints build metadata in the requested output format.
func runVersion(w io.Writer, outputFmt string) error {
	info := buildinfo.Info()
	if outputFmt == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	fmt.Fprintln(w, buildinfo.String())
	// Print fields in a stable order for human readability.
	for _, k := range []string{"version", "git_commit", "build_time", "go_version", "os", "arch"} {
		if v, ok := info[k]; ok {
			fmt.Fprintf(w, "  %-12s %s\n", k+":", v)
		}
	}
	return nil
}

// runInit handles the "todod init [dir]" subcommand. It writes the
// example config into dir as todod.yaml, refusing to overwrite an
// existing file.
func runInit(stdout io.Writer, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	target := filepath.Join(dir, "todod.yaml")
	if _, err := os.Stat(target); err == nil {
		return fmt.Errorf("%s already exists, not overwriting", target)
	}

	if err := os.WriteFile(target, examples.ConfigYAML, 0644); err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}

	fmt.Fprintf(stdout, "Wrote %s\n", target)
	fmt.Fprintln(stdout, "Edit it (at minimum auth.jwt_secret and llm.api_key), then run: todod serve")
	return nil
}

// printUsage writes the top-level help text to w. It is called when
// todod is invoked with no arguments, or with -h / --help.
func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "Todod - Conversational Task Manager API")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: todod [flags] <command>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve        Start the API server")
	fmt.Fprintln(w, "  init [dir]   Write an example config file (default: .)")
	fmt.Fprintln(w, "  version      Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -config <path>    Path to config file (default: auto-discover)")
	fmt.Fprintln(w, "  -o, --output fmt  Output format: text (default) or json")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Config search order:")
	fmt.Fprintln(w, "  ./todod.yaml, ~/.config/todod/config.yaml, /etc/todod/config.yaml")
	return nil
}

// runServe handles the "todod serve" subcommand. It is the primary
// operating mode: loads config, opens the database, wires the model
// provider and the tool channel into the turn executor, starts the
// HTTP server, and blocks until a shutdown signal arrives.
//
// The tool-server subprocess is NOT spawned here. The channel connects
// lazily on the first chat turn that needs a tool, and re-spawns on
// its own when a connection degrades.
func runServe(ctx context.Context, stdout io.Writer, stderr io.Writer, configPath string) error {
	logger := newLogger(stdout, slog.LevelInfo)
	logger.Info("starting todod", "version", buildinfo.Version, "commit", buildinfo.GitCommit, "built", buildinfo.BuildTime)

	cfg, cfgPath, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	// Reconfigure the logger now that the desired level is known. The
	// initial Info-level logger covers only the startup banner.
	if cfg.LogLevel != "" {
		level, err := config.ParseLogLevel(cfg.LogLevel)
		if err != nil {
			return err
		}
		logger = newLogger(stdout, level)
	}

	logger.Info("config loaded",
		"path", cfgPath,
		"port", cfg.Listen.Port,
		"model", cfg.LLM.Model,
		"tool_command", cfg.ToolServer.Command,
	)

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open database %s: %w", cfg.Database.Path, err)
	}
	defer st.Close()
	logger.Info("database opened", "path", cfg.Database.Path)

	verifier := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL())

	llmClient := llm.NewOpenAIClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model, cfg.LLM.Timeout(), logger)

	ch := channel.New(channel.Options{
		Dial: channel.StdioDialer(mcp.StdioConfig{
			Command: cfg.ToolServer.Command,
			Args:    cfg.ToolServer.Args,
			Env:     []string{"TODOD_DB_PATH=" + cfg.Database.Path},
			Logger:  logger,
		}, logger),
		ConnectTimeout: cfg.ToolServer.ConnectTimeout(),
		CallTimeout:    cfg.ToolServer.CallTimeout(),
		Backoff:        cfg.ToolServer.DegradedBackoff(),
		Logger:         logger,
	})
	defer ch.Close()

	executor := agent.NewExecutor(llmClient, ch, cfg.ToolServer.MaxToolRounds, logger)

	server := api.NewServer(cfg.Listen.Address, cfg.Listen.Port, st, verifier, executor, ch, logger)

	// SIGINT/SIGTERM cancellation flows through the same ctx used by
	// all components.
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		<-ctx.Done()
		logger.Info("shutdown signal received")
		_ = server.Shutdown(context.Background())
	}()

	if err := server.Start(ctx); err != nil {
		if ctx.Err() == nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	logger.Info("todod stopped")
	return nil
}

// newLogger creates a structured text logger that writes to w at the
// given level. All log output in todod goes through slog.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// loadConfig locates and parses the YAML configuration file. If
// explicit is non-empty, that exact path is used (and must exist).
// Otherwise, [config.FindConfig] searches the default locations.
// Returns the parsed config, the path that was loaded, and any error.
func loadConfig(explicit string) (*config.Config, string, error) {
	cfgPath, err := config.FindConfig(explicit)
	if err != nil {
		return nil, "", err
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, cfgPath, fmt.Errorf("load config %s: %w", cfgPath, err)
	}

	return cfg, cfgPath, nil
}
