package mcp

import (
	"context"
	stderrors "errors"
	"log/slog"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/quietcool-bridge-go/internal/bridge"
	"github.com/wagiedev/quietcool-bridge-go/internal/catalog"
	"github.com/wagiedev/quietcool-bridge-go/internal/errors"
	"github.com/wagiedev/quietcool-bridge-go/internal/oneshot"
)

// Tool name prefix for commands sent to the connected fan.
const fanToolPrefix = "fan_"

// Sender sends commands through a shared bridge.
type Sender interface {
	Send(ctx context.Context, c *bridge.Consumer, cmd string, args map[string]any) (map[string]any, error)
	Status() bridge.Snapshot
}

// OneShot runs scans and pairings against a throwaway worker.
type OneShot interface {
	Scan(ctx context.Context) (*oneshot.ScanResult, error)
	Pair(ctx context.Context, address, phoneID string) (*oneshot.PairResult, error)
}

// ToolDeps are the services behind the bridge tools. Bridge and OneShot
// may each be nil; the tools that need them are then not registered.
type ToolDeps struct {
	Logger   *slog.Logger
	Bridge   Sender
	Consumer *bridge.Consumer
	OneShot  OneShot
	Catalog  *catalog.Catalog
}

// NewBridgeServer creates a tool server exposing the fan bridge.
func NewBridgeServer(name, version string, deps ToolDeps) *ToolServer {
	s := NewToolServer(name, version)
	RegisterBridgeTools(s, deps)

	return s
}

// RegisterBridgeTools adds the fan, scan, pair and status tools to s.
func RegisterBridgeTools(s *ToolServer, deps ToolDeps) {
	log := deps.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	log = log.With("component", "mcp")

	cat := deps.Catalog
	if cat == nil {
		cat = catalog.Default()
	}

	s.AddTool(
		NewTool("generate_phone_id", "Generate a new random phone id for pairing", nil),
		func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			id, err := oneshot.GenerateID()
			if err != nil {
				return ErrorResult(err.Error()), nil
			}

			return JSONResult(map[string]string{"phone_id": id}), nil
		},
	)

	if deps.OneShot != nil {
		registerOneShotTools(s, log, deps.OneShot)
	}

	if deps.Bridge == nil {
		return
	}

	s.AddTool(
		NewTool("bridge_status", "Report the bridge worker state and fan connectivity", nil),
		func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return JSONResult(deps.Bridge.Status()), nil
		},
	)

	for _, cmd := range cat.Commands() {
		if cmd.OneShot {
			continue
		}

		s.AddTool(NewTool(fanToolPrefix+cmd.Name, cmd.Description, cmd.Schema), fanHandler(log, deps, cat, cmd.Name))
	}
}

func fanHandler(log *slog.Logger, deps ToolDeps, cat *catalog.Catalog, name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := ParseArguments(req)
		if err != nil {
			return ErrorResult(err.Error()), nil
		}

		if err := cat.Validate(name, args); err != nil {
			return ErrorResult(err.Error()), nil
		}

		data, err := deps.Bridge.Send(ctx, deps.Consumer, name, args)
		if err != nil {
			log.Info("Fan tool failed", "cmd", name, "error", err)

			return ErrorResult(describe(err)), nil
		}

		return JSONResult(data), nil
	}
}

func registerOneShotTools(s *ToolServer, log *slog.Logger, one OneShot) {
	s.AddTool(
		NewTool("scan_fans", "Scan for QuietCool fans over Bluetooth LE", nil),
		func(ctx context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			result, err := one.Scan(ctx)
			if err != nil {
				log.Info("Scan failed", "error", err)

				return ErrorResult(describe(err)), nil
			}

			return JSONResult(result), nil
		},
	)

	pairSchema := &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"address":  {Type: "string", Description: "BLE address of the fan"},
			"phone_id": {Type: "string", Description: "Phone id to register; generated when empty"},
		},
		Required: []string{"address"},
	}

	s.AddTool(
		NewTool("pair_fan", "Pair with a fan; hold the controller's Pair button until its LED blinks first", pairSchema),
		func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, err := ParseArguments(req)
			if err != nil {
				return ErrorResult(err.Error()), nil
			}

			address, _ := args["address"].(string)
			phoneID, _ := args["phone_id"].(string)

			result, err := one.Pair(ctx, address, phoneID)
			if err != nil {
				log.Info("Pair failed", "address", address, "error", err)

				return ErrorResult(describe(err)), nil
			}

			return JSONResult(result), nil
		},
	)
}

// describe renders err for a tool caller, adding a hint where one helps.
func describe(err error) string {
	switch {
	case stderrors.Is(err, errors.ErrNotReady):
		return err.Error() + ": the bridge worker is still starting, retry shortly"
	case stderrors.Is(err, errors.ErrRequestTimeout):
		return err.Error() + ": the fan did not answer, check it is in range"
	}

	if cmdErr, ok := stderrors.AsType[*errors.CommandError](err); ok {
		return "fan reported: " + cmdErr.Message
	}

	return err.Error()
}
