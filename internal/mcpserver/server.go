// Package mcpserver exposes the daemon's status/menu collaborator (spec.md
// section 6.2) as MCP tools, mirroring the teacher's internal/mcp server
// shape but narrowed to the two operations that collaborator actually
// performs: reading status and forcing an immediate rescan.
package mcpserver

import (
	"context"

	"github.com/google/uuid"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"tilewm/internal/ipc"
)

const (
	ServerName    = "tilewm"
	ServerVersion = "0.1.0"
)

// StatusSource is the daemon state the "status" tool reads.
type StatusSource interface {
	ManagedWindowCount() int
	ZombieWindowCount() int
	ActiveAnimationCount() int
	AccessibilityTrusted() bool
}

// Server is the MCP server for daemon status and control.
type Server struct {
	mcpServer *mcpsdk.Server
	status    StatusSource
	forceScan func()
}

// NewServer constructs a Server backed by status and forceScan, the same
// collaborator hooks the IPC server uses (internal/ipc.Server).
func NewServer(status StatusSource, forceScan func()) *Server {
	s := &Server{status: status, forceScan: forceScan}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{Name: ServerName, Version: ServerVersion},
		nil,
	)
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "status",
		Description: "Report the daemon's managed window count, zombie count, active animation count and accessibility trust state.",
	}, s.handleStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "force_rescan",
		Description: "Trigger an immediate discovery scan instead of waiting for the periodic timer.",
	}, s.handleForceRescan)
}

// StatusInput is the (empty) input schema for the "status" tool.
type StatusInput struct{}

// StatusOutput mirrors ipc.StatusData without the uptime and correlation id
// fields; the MCP transport already scopes each call.
type StatusOutput struct {
	ManagedWindowCount int  `json:"managed_window_count"`
	ZombieWindowCount  int  `json:"zombie_window_count"`
	ActiveAnimations   int  `json:"active_animations"`
	AccessibilityTrust bool `json:"accessibility_trust"`
}

func (s *Server) handleStatus(_ context.Context, _ *mcpsdk.CallToolRequest, _ StatusInput) (*mcpsdk.CallToolResult, StatusOutput, error) {
	return nil, StatusOutput{
		ManagedWindowCount: s.status.ManagedWindowCount(),
		ZombieWindowCount:  s.status.ZombieWindowCount(),
		ActiveAnimations:   s.status.ActiveAnimationCount(),
		AccessibilityTrust: s.status.AccessibilityTrusted(),
	}, nil
}

// ForceRescanInput is the (empty) input schema for the "force_rescan" tool.
type ForceRescanInput struct{}

// ForceRescanOutput reuses ipc's wire shape plus a correlation id for log
// tracing across the MCP and IPC surfaces.
type ForceRescanOutput struct {
	ipc.ForceScanData
	CorrelationID string `json:"correlation_id"`
}

func (s *Server) handleForceRescan(_ context.Context, _ *mcpsdk.CallToolRequest, _ ForceRescanInput) (*mcpsdk.CallToolResult, ForceRescanOutput, error) {
	accepted := s.forceScan != nil
	if accepted {
		s.forceScan()
	}
	return nil, ForceRescanOutput{
		ForceScanData: ipc.ForceScanData{Accepted: accepted},
		CorrelationID: uuid.NewString(),
	}, nil
}
