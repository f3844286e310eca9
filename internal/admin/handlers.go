package admin

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/wagiedev/quietcool-bridge-go/internal/errors"
	"github.com/wagiedev/quietcool-bridge-go/internal/oneshot"
)

var errBadRequest = stderrors.New("bad request")

// PairRequest is the body of POST /quietcool/pair.
type PairRequest struct {
	Address string `json:"address"`
	PhoneID string `json:"phone_id"`
}

// CommandRequest is the body of POST /quietcool/command.
type CommandRequest struct {
	Cmd  string         `json:"cmd"`
	Args map[string]any `json:"args"`
}

// CommandInfo describes one entry of GET /quietcool/commands.
type CommandInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	OneShot     bool   `json:"one_shot,omitempty"`
	Schema      any    `json:"schema"`
}

// HandleScan discovers nearby fans.
func (s *Server) HandleScan(w http.ResponseWriter, r *http.Request) {
	if s.oneshot == nil {
		s.sendError(w, http.StatusServiceUnavailable, "scanning not available")

		return
	}

	result, err := s.oneshot.Scan(r.Context())
	if err != nil {
		s.sendFailure(w, err)

		return
	}

	s.writeJSON(w, result)
}

// HandlePair pairs with the fan named in the request body.
func (s *Server) HandlePair(w http.ResponseWriter, r *http.Request) {
	if s.oneshot == nil {
		s.sendError(w, http.StatusServiceUnavailable, "pairing not available")

		return
	}

	var req PairRequest
	if err := s.decode(w, r, &req); err != nil {
		s.sendFailure(w, err)

		return
	}

	result, err := s.oneshot.Pair(r.Context(), req.Address, req.PhoneID)
	if err != nil {
		s.sendFailure(w, err)

		return
	}

	s.writeJSON(w, result)
}

// HandleGenerateID returns a fresh phone id.
func (s *Server) HandleGenerateID(w http.ResponseWriter, _ *http.Request) {
	id, err := oneshot.GenerateID()
	if err != nil {
		s.sendFailure(w, err)

		return
	}

	s.writeJSON(w, map[string]string{"phone_id": id})
}

// HandleStatus reports the bridge snapshot.
func (s *Server) HandleStatus(w http.ResponseWriter, _ *http.Request) {
	if s.bridge == nil {
		s.sendError(w, http.StatusServiceUnavailable, "bridge not configured")

		return
	}

	s.writeJSON(w, s.bridge.Status())
}

// HandleCommand validates a command against the catalog and sends it
// through the admin consumer.
func (s *Server) HandleCommand(w http.ResponseWriter, r *http.Request) {
	if s.bridge == nil {
		s.sendError(w, http.StatusServiceUnavailable, "bridge not configured")

		return
	}

	var req CommandRequest
	if err := s.decode(w, r, &req); err != nil {
		s.sendFailure(w, err)

		return
	}

	if err := s.catalog.Validate(req.Cmd, req.Args); err != nil {
		s.sendFailure(w, err)

		return
	}

	if cmd, _ := s.catalog.Lookup(req.Cmd); cmd.OneShot {
		s.sendError(w, http.StatusBadRequest, "%s runs without a connected fan, use its own endpoint", req.Cmd)

		return
	}

	data, err := s.bridge.Send(r.Context(), s.consumer, req.Cmd, req.Args)
	if err != nil {
		if cmdErr, ok := stderrors.AsType[*errors.CommandError](err); ok {
			s.log.Info("Fan command failed", "cmd", req.Cmd, "error", cmdErr.Message)
		}

		s.sendFailure(w, err)

		return
	}

	s.writeJSON(w, data)
}

// HandleCommands lists the command catalog.
func (s *Server) HandleCommands(w http.ResponseWriter, _ *http.Request) {
	commands := s.catalog.Commands()
	infos := make([]CommandInfo, 0, len(commands))

	for _, cmd := range commands {
		infos = append(infos, CommandInfo{
			Name:        cmd.Name,
			Description: cmd.Description,
			OneShot:     cmd.OneShot,
			Schema:      cmd.Schema,
		})
	}

	s.writeJSON(w, infos)
}

// HandleAdapter reports the Bluetooth adapter state.
func (s *Server) HandleAdapter(w http.ResponseWriter, r *http.Request) {
	if s.checker == nil {
		s.sendError(w, http.StatusServiceUnavailable, "adapter check not available")

		return
	}

	report, err := s.checker.Check(r.Context(), s.fanAddress)
	if err != nil {
		s.sendFailure(w, err)

		return
	}

	s.writeJSON(w, report)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request: %v", errBadRequest, err)
	}

	return nil
}
