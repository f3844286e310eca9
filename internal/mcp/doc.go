// Package mcp exposes the fan bridge as a Model Context Protocol server.
//
// Every catalog command that targets a connected fan becomes a fan_<cmd>
// tool; scanning, pairing and phone id generation get their own tools since
// they run without a connected fan. The server keeps its own tool registry
// so tools can also be listed and invoked in-process, and builds an SDK
// server from it to serve over stdio.
package mcp
