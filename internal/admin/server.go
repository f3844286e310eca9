package admin

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/wagiedev/quietcool-bridge-go/internal/bluez"
	"github.com/wagiedev/quietcool-bridge-go/internal/bridge"
	"github.com/wagiedev/quietcool-bridge-go/internal/catalog"
	"github.com/wagiedev/quietcool-bridge-go/internal/errors"
	"github.com/wagiedev/quietcool-bridge-go/internal/oneshot"
)

const maxRequestBodySize = 64 << 10

// Bridge is the part of *bridge.Bridge the admin surface uses.
type Bridge interface {
	Register(c *bridge.Consumer) error
	Deregister(c *bridge.Consumer)
	Send(ctx context.Context, c *bridge.Consumer, cmd string, args map[string]any) (map[string]any, error)
	Status() bridge.Snapshot
}

// OneShot runs scans and pairings against a throwaway worker.
type OneShot interface {
	Scan(ctx context.Context) (*oneshot.ScanResult, error)
	Pair(ctx context.Context, address, phoneID string) (*oneshot.PairResult, error)
}

// AdapterChecker inspects the host Bluetooth adapter.
type AdapterChecker interface {
	Check(ctx context.Context, fanAddress string) (*bluez.Report, error)
}

// Config holds the dependencies of a Server.
type Config struct {
	Logger  *slog.Logger
	Bridge  Bridge
	OneShot OneShot
	Checker AdapterChecker
	Catalog *catalog.Catalog
	// FanAddress is reported by the adapter check.
	FanAddress string
}

// Server handles /quietcool/* requests.
type Server struct {
	log        *slog.Logger
	bridge     Bridge
	oneshot    OneShot
	checker    AdapterChecker
	catalog    *catalog.Catalog
	fanAddress string
	consumer   *bridge.Consumer
	mux        *http.ServeMux
}

// NewServer creates an admin server. Bridge and Checker may be nil, in which
// case the endpoints that need them answer 503.
func NewServer(config Config) *Server {
	log := config.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	cat := config.Catalog
	if cat == nil {
		cat = catalog.Default()
	}

	s := &Server{
		log:        log.With("component", "admin"),
		bridge:     config.Bridge,
		oneshot:    config.OneShot,
		checker:    config.Checker,
		catalog:    cat,
		fanAddress: config.FanAddress,
		consumer:   bridge.NewNamedConsumer("admin", nil),
		mux:        http.NewServeMux(),
	}

	s.mux.HandleFunc("GET /quietcool/scan", s.HandleScan)
	s.mux.HandleFunc("POST /quietcool/pair", s.HandlePair)
	s.mux.HandleFunc("GET /quietcool/generate-id", s.HandleGenerateID)
	s.mux.HandleFunc("GET /quietcool/status", s.HandleStatus)
	s.mux.HandleFunc("POST /quietcool/command", s.HandleCommand)
	s.mux.HandleFunc("GET /quietcool/commands", s.HandleCommands)
	s.mux.HandleFunc("GET /quietcool/adapter", s.HandleAdapter)

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Open registers the admin consumer with the bridge, keeping the worker
// alive while the admin surface is up.
func (s *Server) Open() error {
	if s.bridge == nil {
		return nil
	}

	return s.bridge.Register(s.consumer)
}

// Close deregisters the admin consumer.
func (s *Server) Close() {
	if s.bridge != nil {
		s.bridge.Deregister(s.consumer)
	}
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	httpServer := &http.Server{
		Handler:      s,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
	}

	s.log.Info("Admin server started", "address", listener.Addr().String())

	errCh := make(chan error, 1)

	go func() {
		errCh <- httpServer.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown admin server: %w", err)
	}

	return nil
}

// writeJSON encodes value as JSON into w, setting the Content-Type header.
func (s *Server) writeJSON(w http.ResponseWriter, value any) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(value); err != nil {
		s.log.Warn("writing JSON response", "error", err)
	}
}

func (s *Server) sendError(w http.ResponseWriter, status int, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(map[string]string{
		"error": fmt.Sprintf(format, args...),
	}); err != nil {
		s.log.Warn("writing JSON error response", "error", err, "status", status)
	}
}

// sendFailure maps a bridge error onto an HTTP status.
func (s *Server) sendFailure(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Warn("Request failed", "status", status, "error", err)
	}

	s.sendError(w, status, "%s", err.Error())
}

// StatusFor returns the HTTP status code that reports err.
func StatusFor(err error) int {
	switch {
	case isBadRequest(err):
		return http.StatusBadRequest
	case stderrors.Is(err, errors.ErrRequestTimeout), stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case stderrors.Is(err, errors.ErrNotReady),
		stderrors.Is(err, errors.ErrBridgeClosed),
		stderrors.Is(err, errors.ErrBridgeStopped),
		stderrors.Is(err, errors.ErrConsumerNotRegistered),
		stderrors.Is(err, bluez.ErrBlueZNotRunning),
		stderrors.Is(err, bluez.ErrAdapterNotFound),
		stderrors.Is(err, bluez.ErrAdapterPoweredOff):
		return http.StatusServiceUnavailable
	}

	if _, ok := stderrors.AsType[*errors.CommandError](err); ok {
		return http.StatusBadGateway
	}

	if _, ok := stderrors.AsType[*errors.ExitedError](err); ok {
		return http.StatusServiceUnavailable
	}

	if _, ok := stderrors.AsType[*errors.SpawnError](err); ok {
		return http.StatusServiceUnavailable
	}

	return http.StatusInternalServerError
}

func isBadRequest(err error) bool {
	if _, ok := stderrors.AsType[*errors.ValidationError](err); ok {
		return true
	}

	return stderrors.Is(err, errBadRequest) ||
		stderrors.Is(err, errors.ErrUnknownCommand) ||
		stderrors.Is(err, oneshot.ErrAddressRequired)
}
