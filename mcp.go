package quietcool

import (
	"github.com/wagiedev/quietcool-bridge-go/internal/mcp"
	"github.com/wagiedev/quietcool-bridge-go/internal/oneshot"
)

// MCPServer exposes the fan as Model Context Protocol tools.
type MCPServer = mcp.ToolServer

// NewMCPServer creates a tool server sending fan commands through b on behalf
// of c. The caller registers c with b before serving. Scan and pairing tools
// run their own short-lived workers configured by opts.
//
// Example:
//
//	c := quietcool.NewNamedConsumer("mcp", nil)
//	server := quietcool.NewMCPServer("quietcool", "1.0.0", b, c)
//	if err := b.Register(c); err != nil {
//	    return err
//	}
//	return server.RunStdio(ctx)
func NewMCPServer(name, version string, b *Bridge, c *Consumer, opts ...Option) *MCPServer {
	options := applyOptions(opts)

	deps := mcp.ToolDeps{
		Logger:   options.Logger,
		Consumer: c,
		OneShot:  oneshot.New(options.Logger, options),
	}

	if b != nil {
		deps.Bridge = b
	}

	return mcp.NewBridgeServer(name, version, deps)
}
