package ipc

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"tilewm/internal/config"
)

// StatusProvider is the subset of daemon state the IPC server reports
// through GET_STATUS, satisfied by the daemon's wiring layer, which reads
// the layout Engine and Animator so this package imports neither directly.
type StatusProvider interface {
	ManagedWindowCount() int
	ZombieWindowCount() int
	ActiveAnimationCount() int
	AccessibilityTrusted() bool
}

// Server handles IPC requests from clients over a Unix domain socket,
// mirroring the "Status/menu collaborator" hook in spec.md section 6.2.
type Server struct {
	socketPath   string
	listener     net.Listener
	cfg          *config.Config
	cfgMu        sync.RWMutex
	status       StatusProvider
	forceScan    func()
	startTime    time.Time
	reloadChan   chan struct{}
	logger       *slog.Logger
	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer creates a new IPC server. forceScan is invoked (non-blocking,
// from the caller's perspective) when a client issues FORCE_SCAN; it should
// wrap Discovery.ForceImmediateScan.
func NewServer(cfg *config.Config, status StatusProvider, forceScan func(), reloadChan chan struct{}, logger *slog.Logger) (*Server, error) {
	socketPath, err := cfg.ResolveSocketPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
	}

	os.Remove(socketPath)

	return &Server{
		socketPath: socketPath,
		cfg:        cfg,
		status:     status,
		forceScan:  forceScan,
		startTime:  time.Now(),
		reloadChan: reloadChan,
		logger:     logger,
	}, nil
}

// Start begins listening for IPC connections.
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	if err := os.Chmod(s.socketPath, 0600); err != nil {
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.logger.Info("ipc server listening", "socket", s.socketPath)

	go s.acceptLoop()

	return nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			if s.shuttingDown {
				s.shutdownMu.Unlock()
				return
			}
			s.shutdownMu.Unlock()
			s.logger.Warn("ipc accept error", "error", err)
			continue
		}

		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)

	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		s.logger.Warn("ipc read error", "error", err)
		return
	}

	req, err := ParseRequest(data)
	if err != nil {
		s.sendError(conn, fmt.Sprintf("invalid request: %v", err))
		return
	}

	resp := s.handleCommand(req)

	respData, err := resp.Marshal()
	if err != nil {
		s.logger.Warn("failed to marshal ipc response", "error", err)
		return
	}

	respData = append(respData, '\n')
	if _, err := conn.Write(respData); err != nil {
		s.logger.Warn("failed to send ipc response", "error", err)
	}
}

func (s *Server) handleCommand(req *Request) *Response {
	switch req.Command {
	case CommandReload:
		return s.handleReload()
	case CommandGetStatus:
		return s.handleGetStatus()
	case CommandForceScan:
		return s.handleForceScan()
	default:
		return NewErrorResponse(fmt.Sprintf("unknown command: %s", req.Command))
	}
}

// handleReload reloads the configuration file and notifies the daemon
// (spec.md section 9's reload equivalent for the "space changed" signal).
func (s *Server) handleReload() *Response {
	newCfg, err := config.Load()
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("failed to reload config: %v", err))
	}

	s.cfgMu.Lock()
	s.cfg = newCfg
	s.cfgMu.Unlock()

	select {
	case s.reloadChan <- struct{}{}:
	default:
	}

	s.logger.Info("config reloaded via ipc")

	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) handleGetStatus() *Response {
	status := StatusData{
		ManagedWindowCount: s.status.ManagedWindowCount(),
		ZombieWindowCount:  s.status.ZombieWindowCount(),
		ActiveAnimations:   s.status.ActiveAnimationCount(),
		AccessibilityTrust: s.status.AccessibilityTrusted(),
		UptimeSeconds:      int64(time.Since(s.startTime).Seconds()),
		CorrelationID:      uuid.NewString(),
	}

	resp, _ := NewOKResponse(status)
	return resp
}

// handleForceScan requests an immediate discovery pass (spec.md section
// 4.1's forced-scan trigger).
func (s *Server) handleForceScan() *Response {
	if s.forceScan != nil {
		s.forceScan()
	}
	resp, _ := NewOKResponse(ForceScanData{Accepted: s.forceScan != nil})
	return resp
}

func (s *Server) sendError(conn net.Conn, errMsg string) {
	resp := NewErrorResponse(errMsg)
	data, _ := resp.Marshal()
	data = append(data, '\n')
	conn.Write(data)
}

// Stop gracefully shuts down the IPC server.
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	os.Remove(s.socketPath)
}

// GetConfig returns the current config (thread-safe).
func (s *Server) GetConfig() *config.Config {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg
}

// UpdateConfig updates the config (thread-safe).
func (s *Server) UpdateConfig(cfg *config.Config) {
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()
	s.cfg = cfg
}
