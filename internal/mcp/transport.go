package mcp

import "context"

// Transport delivers JSON-RPC messages to the tool server and reads
// the replies. The only production implementation is the stdio
// subprocess transport; tests substitute in-memory fakes.
type Transport interface {
	// Send sends a request and returns the correlated response.
	Send(ctx context.Context, req *Request) (*Response, error)

	// Notify sends a notification (no response expected).
	Notify(ctx context.Context, notif *Notification) error

	// Close shuts down the transport. For the stdio transport this
	// terminates the subprocess.
	Close() error
}
