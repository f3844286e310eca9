package mcp

import (
	"context"
	"errors"
	"testing"

	mcpgo "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

func echoServer() *ToolServer {
	server := NewToolServer("demo", "1.0.0")
	server.AddTool(
		NewTool("echo", "echoes text", nil),
		func(_ context.Context, req *mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
			args, err := ParseArguments(req)
			if err != nil {
				return nil, err
			}

			text, _ := args["text"].(string)

			return TextResult("echo: " + text), nil
		},
	)

	return server
}

func TestToolServerMetadata(t *testing.T) {
	server := NewToolServer("demo", "1.2.3")

	require.Equal(t, "demo", server.Name())
	require.Equal(t, "1.2.3", server.Version())
	require.Empty(t, server.ToolNames())
}

func TestToolServerListToolsAndCallTool(t *testing.T) {
	server := echoServer()

	tools := server.ListTools()
	require.Len(t, tools, 1)
	require.Equal(t, "echo", tools[0]["name"])
	require.Equal(t, "echoes text", tools[0]["description"])

	inputSchema, ok := tools[0]["inputSchema"].(map[string]any)
	require.True(t, ok, "expected inputSchema to be serialized as a map")
	require.Equal(t, "object", inputSchema["type"])

	result := server.CallTool(context.Background(), "echo", map[string]any{"text": "hello"})
	require.False(t, result.IsError)
	require.Equal(t, "echo: hello", ResultText(result))

	missing := server.CallTool(context.Background(), "unknown", map[string]any{})
	require.True(t, missing.IsError)
	require.Equal(t, "Tool not found: unknown", ResultText(missing))
}

func TestToolServerCallTool_HandlerError(t *testing.T) {
	server := NewToolServer("demo", "1.0.0")
	server.AddTool(
		NewTool("fails", "always fails", nil),
		func(_ context.Context, _ *mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
			return nil, errors.New("boom")
		},
	)

	result := server.CallTool(context.Background(), "fails", map[string]any{})
	require.True(t, result.IsError)
	require.Equal(t, "Tool execution failed: boom", ResultText(result))
}

func TestToolServer_ServesOverTransport(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverTransport, clientTransport := mcpgo.NewInMemoryTransports()

	serverSession, err := echoServer().Server().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)

	defer serverSession.Close()

	client := mcpgo.NewClient(&mcpgo.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)

	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	defer session.Close()

	listed, err := session.ListTools(ctx, &mcpgo.ListToolsParams{})
	require.NoError(t, err)
	require.Len(t, listed.Tools, 1)
	require.Equal(t, "echo", listed.Tools[0].Name)

	result, err := session.CallTool(ctx, &mcpgo.CallToolParams{
		Name:      "echo",
		Arguments: map[string]any{"text": "over the wire"},
	})
	require.NoError(t, err)
	require.Equal(t, "echo: over the wire", ResultText(result))
}

func TestResultHelpersAndNewTool(t *testing.T) {
	textResult := TextResult("ok")
	require.False(t, textResult.IsError)
	require.Len(t, textResult.Content, 1)

	errorResult := ErrorResult("failed")
	require.True(t, errorResult.IsError)

	jsonResult := JSONResult(map[string]int{"rssi": -61})
	require.JSONEq(t, `{"rssi": -61}`, ResultText(jsonResult))

	tool := NewTool("ping", "checks the worker", nil)
	require.Equal(t, "ping", tool.Name)
	require.NotNil(t, tool.InputSchema)
}

func TestParseArguments(t *testing.T) {
	t.Run("nil request and empty args return empty map", func(t *testing.T) {
		args, err := ParseArguments(nil)
		require.NoError(t, err)
		require.Empty(t, args)

		args, err = ParseArguments(&mcpgo.CallToolRequest{Params: &mcpgo.CallToolParamsRaw{}})
		require.NoError(t, err)
		require.Empty(t, args)

		args, err = ParseArguments(&mcpgo.CallToolRequest{Params: &mcpgo.CallToolParamsRaw{Arguments: []byte(`null`)}})
		require.NoError(t, err)
		require.NotNil(t, args)
	})

	t.Run("valid arguments are parsed", func(t *testing.T) {
		req := &mcpgo.CallToolRequest{
			Params: &mcpgo.CallToolParamsRaw{
				Arguments: []byte(`{"speed":"HIGH","hours":3}`),
			},
		}

		args, err := ParseArguments(req)
		require.NoError(t, err)
		require.Equal(t, "HIGH", args["speed"])
		require.Equal(t, float64(3), args["hours"])
	})

	t.Run("invalid json returns wrapped error", func(t *testing.T) {
		req := &mcpgo.CallToolRequest{
			Params: &mcpgo.CallToolParamsRaw{
				Arguments: []byte(`{"speed":`),
			},
		}

		args, err := ParseArguments(req)
		require.Error(t, err)
		require.Nil(t, args)
		require.Contains(t, err.Error(), "failed to unmarshal arguments")
	})
}
