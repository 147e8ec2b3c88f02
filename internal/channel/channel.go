// Package channel manages the lifetime of the connection to the todo
// tool server and exposes tool execution as a single Call operation.
//
// The whole process shares one channel and therefore at most one tool
// server subprocess. The channel is lazy: nothing is spawned until the
// first Call. Connection state follows a small machine:
//
//	Uninitialized → Connecting → Ready
//	                    ↘            ↘
//	                     Degraded ← (I/O failure, timeout)
//
// Degraded is not terminal: after a short backoff the next Call starts
// a fresh Connecting attempt. The mutex guards the state transitions
// only; callers never hold it across I/O. While an attempt is in
// flight every caller, including the one that triggered it, waits on
// the same resolve signal, so exactly one spawn/handshake happens no
// matter how many requests arrive at once.
package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MrAhmed42/todo-evolution/internal/mcp"
	"github.com/MrAhmed42/todo-evolution/internal/tools"
)

// State is the connection state of the channel.
type State int

const (
	StateUninitialized State = iota
	StateConnecting
	StateReady
	StateDegraded
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateDegraded:
		return "degraded"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ResultKind classifies the outcome of a Call.
type ResultKind int

const (
	// KindOK: the tool ran and returned output.
	KindOK ResultKind = iota

	// KindFailed: the tool ran and reported a definite failure (for
	// example "task not found"). The channel stays Ready.
	KindFailed

	// KindTimedOut: no response arrived within the call's deadline.
	// The mutation may still have been applied by the tool server;
	// callers must not treat this as a no-op.
	KindTimedOut

	// KindUnavailable: the channel could not reach the tool server at
	// all (not yet connected, spawn failed, or the connection broke).
	KindUnavailable
)

// String returns the lowercase kind name.
func (k ResultKind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindFailed:
		return "failed"
	case KindTimedOut:
		return "timed_out"
	case KindUnavailable:
		return "unavailable"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ToolResult is the outcome of one tool invocation. Call never returns
// an error: every failure mode is a result kind, so callers are forced
// to handle the ambiguous-timeout case distinctly from definite
// failure.
type ToolResult struct {
	Tool   string
	Kind   ResultKind
	Output string
	Err    string
}

// Degraded reports whether the result reflects channel trouble rather
// than a definite tool outcome.
func (r ToolResult) Degraded() bool {
	return r.Kind == KindTimedOut || r.Kind == KindUnavailable
}

// Conn is an established, handshaken connection to the tool server.
// The production implementation is *mcp.Client over a stdio transport.
type Conn interface {
	CallTool(ctx context.Context, name string, args map[string]any) (string, error)
	Close() error
}

// Dialer spawns the tool server and completes the handshake, returning
// a live connection. The context carries the connect timeout.
type Dialer func(ctx context.Context) (Conn, error)

// Options configures a Channel.
type Options struct {
	// Dial establishes connections. Required.
	Dial Dialer

	// ConnectTimeout bounds one spawn+handshake attempt (default 60s).
	ConnectTimeout time.Duration

	// CallTimeout bounds one tool call, including any time spent
	// waiting for the channel to connect (default 30s).
	CallTimeout time.Duration

	// Backoff is how long after a failed attempt the channel reports
	// unavailable without retrying (default 5s).
	Backoff time.Duration

	Logger *slog.Logger
}

// Channel is the process-wide managed connection to the tool server.
type Channel struct {
	dial           Dialer
	connectTimeout time.Duration
	callTimeout    time.Duration
	backoff        time.Duration
	logger         *slog.Logger

	mu          sync.Mutex
	state       State
	conn        Conn
	resolved    chan struct{} // non-nil iff state == StateConnecting
	lastFailure time.Time
}

// New creates a Channel. It does not connect; the first Call does.
func New(opts Options) *Channel {
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 60 * time.Second
	}
	if opts.CallTimeout == 0 {
		opts.CallTimeout = 30 * time.Second
	}
	if opts.Backoff == 0 {
		opts.Backoff = 5 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Channel{
		dial:           opts.Dial,
		connectTimeout: opts.ConnectTimeout,
		callTimeout:    opts.CallTimeout,
		backoff:        opts.Backoff,
		logger:         logger,
		state:          StateUninitialized,
	}
}

// State returns the current connection state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Call validates the arguments, waits for the channel to be usable,
// and executes the named tool. The result kind encodes every failure
// mode; Call itself never panics or returns an error.
func (c *Channel) Call(ctx context.Context, name string, args map[string]any) ToolResult {
	if err := tools.Validate(name, args); err != nil {
		return ToolResult{Tool: name, Kind: KindFailed, Err: err.Error()}
	}

	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	conn, err := c.ensureReady(ctx)
	if err != nil {
		return ToolResult{Tool: name, Kind: KindUnavailable, Err: err.Error()}
	}

	output, err := conn.CallTool(ctx, name, args)
	if err == nil {
		return ToolResult{Tool: name, Kind: KindOK, Output: output}
	}

	// The tool ran and said no: the channel is healthy.
	var toolErr *mcp.ToolError
	if errors.As(err, &toolErr) {
		return ToolResult{Tool: name, Kind: KindFailed, Err: toolErr.Text}
	}

	// Protocol-level rejection (bad params, unknown method): the
	// server responded, so the connection is still good.
	var rpcErr *mcp.RPCError
	if errors.As(err, &rpcErr) {
		return ToolResult{Tool: name, Kind: KindFailed, Err: rpcErr.Message}
	}

	// Timeout: outcome unknown, and the transport killed the
	// subprocess to unblock its read. Degrade so the next call
	// respawns.
	if errors.Is(err, context.DeadlineExceeded) {
		c.markDegraded(conn, err)
		return ToolResult{Tool: name, Kind: KindTimedOut, Err: err.Error()}
	}

	// Caller cancellation. The transport killed the subprocess all
	// the same, so the connection is gone, but the server did nothing
	// wrong: skip the backoff so the next caller reconnects at once.
	if errors.Is(err, context.Canceled) {
		c.degrade(conn, err, false)
		return ToolResult{Tool: name, Kind: KindUnavailable, Err: err.Error()}
	}

	// Anything else is an I/O failure on the connection.
	c.markDegraded(conn, err)
	return ToolResult{Tool: name, Kind: KindUnavailable, Err: err.Error()}
}

// Close tears down the connection if one exists.
func (c *Channel) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.state = StateUninitialized
	c.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

// ensureReady returns a live connection, starting or waiting on a
// connect attempt as needed. It blocks until the channel resolves to
// Ready or Degraded, or ctx expires.
func (c *Channel) ensureReady(ctx context.Context) (Conn, error) {
	for {
		c.mu.Lock()
		switch c.state {
		case StateReady:
			conn := c.conn
			c.mu.Unlock()
			return conn, nil

		case StateConnecting:
			wait := c.resolved
			c.mu.Unlock()
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("tool channel still connecting: %w", ctx.Err())
			case <-wait:
				// Re-check the resolved state.
			}

		case StateDegraded:
			if since := time.Since(c.lastFailure); since < c.backoff {
				c.mu.Unlock()
				return nil, fmt.Errorf("tool channel degraded, retry in %s", (c.backoff - since).Round(time.Millisecond))
			}
			c.startConnectLocked()
			c.mu.Unlock()

		case StateUninitialized:
			c.startConnectLocked()
			c.mu.Unlock()
		}
	}
}

// startConnectLocked transitions to Connecting and launches the single
// connect attempt in the background. Caller must hold c.mu.
func (c *Channel) startConnectLocked() {
	c.state = StateConnecting
	c.resolved = make(chan struct{})
	go c.connect(c.resolved)
}

// connect runs one spawn+handshake attempt and resolves the state to
// Ready or Degraded. It uses its own deadline, not any caller's: the
// attempt is shared, so one impatient caller must not abort it for
// everyone else.
func (c *Channel) connect(resolved chan struct{}) {
	ctx, cancel := context.WithTimeout(context.Background(), c.connectTimeout)
	defer cancel()

	conn, err := c.dial(ctx)

	c.mu.Lock()
	if err != nil {
		c.state = StateDegraded
		c.conn = nil
		c.lastFailure = time.Now()
		c.logger.Warn("tool channel connect failed", "error", err)
	} else {
		c.state = StateReady
		c.conn = conn
		c.logger.Info("tool channel ready")
	}
	close(resolved)
	c.resolved = nil
	c.mu.Unlock()
}

// markDegraded records a connection failure and charges the backoff.
func (c *Channel) markDegraded(conn Conn, err error) {
	c.degrade(conn, err, true)
}

// degrade drops the connection. The identity check keeps a stale
// failure from clobbering a connection established after it. With
// chargeBackoff false the next call may reconnect immediately.
func (c *Channel) degrade(conn Conn, err error, chargeBackoff bool) {
	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.state = StateDegraded
	c.conn = nil
	if chargeBackoff {
		c.lastFailure = time.Now()
	} else {
		c.lastFailure = time.Time{}
	}
	c.mu.Unlock()

	c.logger.Warn("tool channel degraded", "error", err)
	go conn.Close()
}
