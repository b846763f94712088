// Package server hosts the ledger HTTP/WebSocket process: a host bridge
// streams actor mutations in, the service records permissioned entries,
// serves them per viewer with redaction, and executes arbitrated undo/redo.
package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/websocket"

	"github.com/avendale/damagelog/internal/ledger"
	"github.com/avendale/damagelog/internal/platform/errors"
	"github.com/avendale/damagelog/internal/platform/i18n/catalog"
	"github.com/avendale/damagelog/internal/platform/timeouts"
	"github.com/avendale/damagelog/internal/registry"
	"github.com/avendale/damagelog/internal/services/ledger/storage"
	"github.com/avendale/damagelog/internal/services/ledger/storage/sqlite"
)

const (
	maxFramePayloadBytes   = 16 * 1024
	maxFramesPerSecond     = 40
	maxDecodeErrorsPerConn = 3

	joinReplayLimit     = 50
	historyDefaultLimit = 50
	historyMaxLimit     = 200
)

// Config defines the inputs for the ledger transport boundary.
type Config struct {
	HTTPAddr     string
	SystemID     string
	Locale       string
	DatabasePath string
	SystemsFile  string
	Settings     ledger.Settings

	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
}

// Server hosts the ledger HTTP/WebSocket process.
type Server struct {
	httpAddr        string
	shutdownTimeout time.Duration
	httpServer      *http.Server
	store           storage.EntryStore
}

// service is the state shared by all connections.
type service struct {
	registry *registry.Registry
	systemID string
	// systemErr is set when the configured system has no table; joins
	// receive it until the configuration is fixed.
	systemErr error
	locale    string
	settings  ledger.Settings
	world     *worldState
	hub       *viewerHub
	store     storage.EntryStore
	recorder  *ledger.Recorder
	reverter  *ledger.Reverter
}

func newService(config Config, store storage.EntryStore) (*service, error) {
	systemID := strings.TrimSpace(config.SystemID)
	if systemID == "" {
		return nil, stderrors.New("system id is required")
	}
	locale := strings.TrimSpace(config.Locale)
	if locale == "" {
		locale = catalog.BaseLocale
	}

	reg := registry.NewRegistry()
	if err := registry.LoadCustomSystems(reg, config.SystemsFile); err != nil {
		return nil, fmt.Errorf("load custom systems: %w", err)
	}

	var systemErr error
	if _, err := reg.Require(systemID); err != nil {
		log.Printf("ledger: configured system is not supported: %v", err)
		systemErr = err
	}

	world := newWorldState()
	hub := newViewerHub()

	return &service{
		registry:  reg,
		systemID:  systemID,
		systemErr: systemErr,
		locale:    locale,
		settings:  config.Settings,
		world:     world,
		hub:       hub,
		store:     store,
		recorder: &ledger.Recorder{
			Registry:    reg,
			Settings:    config.Settings,
			Permissions: world,
			Roster:      world,
			Locale:      locale,
		},
		reverter: &ledger.Reverter{
			Registry:    reg,
			Settings:    config.Settings,
			World:       world,
			Permissions: world,
			Presence:    hub,
			Flags:       store,
		},
	}, nil
}

type wsFrame struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

type wsErrorEnvelope struct {
	Error wsError `json:"error"`
}

type wsError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Retryable bool              `json:"retryable"`
	Details   map[string]string `json:"details,omitempty"`
}

// NewHandler creates ledger routes around an already-built service. Tests
// use it to serve an in-process instance.
func NewHandler(svc *service) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	wsHandler := websocket.Handler(func(conn *websocket.Conn) {
		handleWSConn(conn, svc)
	})

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		wsHandler.ServeHTTP(w, r)
	})

	return mux
}

func handleWSConn(conn *websocket.Conn, svc *service) {
	defer func() {
		_ = conn.Close()
	}()

	decoder := json.NewDecoder(conn)
	peer := newWSPeer(json.NewEncoder(conn))
	session := newWSSession(peer)
	defer svc.hub.leave(session)

	ctx := context.Background()
	if request := conn.Request(); request != nil {
		ctx = request.Context()
	}

	windowStart := time.Now()
	framesInWindow := 0
	decodeErrors := 0

	for {
		var frame wsFrame
		if err := decoder.Decode(&frame); err != nil {
			if stderrors.Is(err, io.EOF) {
				return
			}
			decodeErrors++
			_ = writeWSError(session.peer, "", "INVALID_ARGUMENT", "invalid frame payload")
			if decodeErrors >= maxDecodeErrorsPerConn {
				return
			}
			continue
		}
		decodeErrors = 0

		if len(frame.Payload) > maxFramePayloadBytes {
			_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "payload too large")
			continue
		}

		now := time.Now()
		if now.Sub(windowStart) >= time.Second {
			windowStart = now
			framesInWindow = 0
		}
		framesInWindow++
		if framesInWindow > maxFramesPerSecond {
			_ = writeWSError(session.peer, frame.RequestID, "RESOURCE_EXHAUSTED", "rate limit exceeded")
			return
		}

		switch frame.Type {
		case "ledger.join":
			svc.handleJoinFrame(ctx, session, frame)
		case "world.actor":
			svc.handleActorFrame(session, frame)
		case "actor.update":
			svc.handleUpdateFrame(ctx, session, frame)
		case "ledger.revert":
			svc.handleRevertFrame(ctx, session, frame)
		case "ledger.visibility.set":
			svc.handleVisibilitySetFrame(ctx, session, frame)
		case "ledger.visibility.reset":
			svc.handleVisibilityResetFrame(ctx, session, frame)
		case "ledger.history.before":
			svc.handleHistoryBeforeFrame(ctx, session, frame)
		default:
			_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "unsupported frame type")
		}
	}
}

func writeWSError(peer *wsPeer, requestID string, code string, message string) error {
	return peer.writeFrame(wsFrame{
		Type:      "ledger.error",
		RequestID: requestID,
		Payload: mustJSON(wsErrorEnvelope{
			Error: wsError{
				Code:      code,
				Message:   message,
				Retryable: false,
			},
		}),
	})
}

// writeDomainError maps a domain error to the wire vocabulary, carrying its
// metadata as details.
func writeDomainError(peer *wsPeer, requestID string, err error) error {
	code := errors.CodeOf(err)
	return peer.writeFrame(wsFrame{
		Type:      "ledger.error",
		RequestID: requestID,
		Payload: mustJSON(wsErrorEnvelope{
			Error: wsError{
				Code:      code.WireCode(),
				Message:   err.Error(),
				Retryable: false,
				Details:   errors.MetadataOf(err),
			},
		}),
	})
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		log.Printf("failed to marshal websocket frame payload: %v", err)
		return nil
	}
	return b
}

// NewServer builds a configured ledger server.
func NewServer(config Config) (*Server, error) {
	httpAddr := strings.TrimSpace(config.HTTPAddr)
	if httpAddr == "" {
		return nil, stderrors.New("http address is required")
	}
	if strings.TrimSpace(config.DatabasePath) == "" {
		return nil, stderrors.New("database path is required")
	}
	if config.ReadHeaderTimeout <= 0 {
		config.ReadHeaderTimeout = timeouts.ReadHeader
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = timeouts.Shutdown
	}

	store, err := sqlite.Open(strings.TrimSpace(config.DatabasePath))
	if err != nil {
		return nil, fmt.Errorf("open entry store: %w", err)
	}

	svc, err := newService(config, store)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           NewHandler(svc),
		ReadHeaderTimeout: config.ReadHeaderTimeout,
	}

	return &Server{
		httpAddr:        httpAddr,
		shutdownTimeout: config.ShutdownTimeout,
		httpServer:      httpServer,
		store:           store,
	}, nil
}

// Run creates and serves a ledger server until the context ends.
func Run(ctx context.Context, config Config) error {
	server, err := NewServer(config)
	if err != nil {
		return fmt.Errorf("init ledger server: %w", err)
	}
	defer server.Close()

	if err := server.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("serve ledger: %w", err)
	}
	return nil
}

// ListenAndServe runs the HTTP server until the context ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return stderrors.New("ledger server is nil")
	}
	if ctx == nil {
		return stderrors.New("context is required")
	}

	serveErr := make(chan error, 1)
	log.Printf("ledger server listening on %s", s.httpAddr)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

// Close releases server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("close entry store: %v", err)
		}
	}
}
