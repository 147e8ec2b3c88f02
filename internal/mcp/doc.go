// Package mcp implements the MCP (Model Context Protocol) client used
// to talk to the todo tool server.
//
// MCP is JSON-RPC 2.0; here it runs over newline-delimited stdio to a
// subprocess. The client performs the initialize handshake, discovers
// tools via tools/list, and invokes them via tools/call. Lifecycle and
// failure policy (when to spawn, when to give up, what a timeout
// means) belong to the channel package; this package only moves
// correctly-framed messages and kills the subprocess when told to.
package mcp
