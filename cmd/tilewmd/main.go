package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/phsym/console-slog"
	"golang.org/x/term"

	"tilewm/internal/animator"
	"tilewm/internal/config"
	"tilewm/internal/daemon"
	"tilewm/internal/discovery"
	"tilewm/internal/hotkeys"
	"tilewm/internal/ipc"
	"tilewm/internal/layout"
	"tilewm/internal/mcpserver"
	"tilewm/internal/metrics"
	"tilewm/internal/platform"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "daemon":
		runDaemon()
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "reload":
		os.Exit(runReload(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: tilewmd <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  daemon        Start the daemon (foreground)")
	fmt.Fprintln(w, "  status        Show daemon status via IPC")
	fmt.Fprintln(w, "  reload        Ask the running daemon to reload its config")
	fmt.Fprintln(w, "  mcp serve     Start the MCP server (stdio transport)")
}

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	client := ipc.NewClient()
	status, err := client.GetStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if term.IsTerminal(int(os.Stdout.Fd())) {
		printStatusTable(status)
	} else {
		printStatusPlain(status)
	}
	return 0
}

// printStatusTable renders status as an aligned table for an interactive
// terminal; printStatusPlain emits one key: value per line for scripts and
// piped output.
func printStatusTable(status *ipc.StatusData) {
	rows := [][2]string{
		{"Managed windows", fmt.Sprint(status.ManagedWindowCount)},
		{"Zombie windows", fmt.Sprint(status.ZombieWindowCount)},
		{"Active animations", fmt.Sprint(status.ActiveAnimations)},
		{"Accessibility trust", fmt.Sprint(status.AccessibilityTrust)},
		{"Uptime (s)", fmt.Sprint(status.UptimeSeconds)},
	}
	width := 0
	for _, r := range rows {
		if len(r[0]) > width {
			width = len(r[0])
		}
	}
	for _, r := range rows {
		fmt.Printf("%-*s  %s\n", width, r[0], r[1])
	}
}

func printStatusPlain(status *ipc.StatusData) {
	fmt.Printf("managed_window_count: %d\n", status.ManagedWindowCount)
	fmt.Printf("zombie_window_count:  %d\n", status.ZombieWindowCount)
	fmt.Printf("active_animations:    %d\n", status.ActiveAnimations)
	fmt.Printf("accessibility_trust:  %v\n", status.AccessibilityTrust)
	fmt.Printf("uptime_seconds:       %d\n", status.UptimeSeconds)
}

func runReload(args []string) int {
	fs := flag.NewFlagSet("reload", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if err := ipc.NewClient().Reload(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runMCP(args []string) int {
	if len(args) == 0 || args[0] != "serve" {
		fmt.Fprintln(os.Stderr, "Usage: tilewmd mcp serve")
		return 2
	}

	client := ipc.NewClient()
	status := ipcStatusAdapter{client: client}
	server := mcpserver.NewServer(status, func() { _ = client.ForceScan() })
	if err := server.Run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

// ipcStatusAdapter satisfies mcpserver.StatusSource by proxying to the
// running daemon over the IPC socket, since a standalone "mcp serve"
// process has no direct handle on the daemon's collaborators.
type ipcStatusAdapter struct {
	client *ipc.Client
}

func (a ipcStatusAdapter) fetch() *ipc.StatusData {
	status, err := a.client.GetStatus()
	if err != nil {
		return &ipc.StatusData{}
	}
	return status
}

func (a ipcStatusAdapter) ManagedWindowCount() int    { return a.fetch().ManagedWindowCount }
func (a ipcStatusAdapter) ZombieWindowCount() int     { return a.fetch().ZombieWindowCount }
func (a ipcStatusAdapter) ActiveAnimationCount() int  { return a.fetch().ActiveAnimations }
func (a ipcStatusAdapter) AccessibilityTrusted() bool { return a.fetch().AccessibilityTrust }

func newLogger(level slog.Level) *slog.Logger {
	return slog.New(console.NewHandler(os.Stderr, &console.HandlerOptions{Level: level}))
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// daemonCollaborators bundles every long-lived component the daemon wires
// together, so status/dispatch adapters can close over one value instead of
// a long argument list.
type daemonCollaborators struct {
	engine   *layout.Engine
	anim     *animator.Animator
	backend  platform.Backend
	discover *discovery.Discovery
	cancel   context.CancelFunc
}

func (d *daemonCollaborators) ManagedWindowCount() int { return len(d.engine.Records()) }
func (d *daemonCollaborators) ZombieWindowCount() int  { return d.engine.ZombieCount() }
func (d *daemonCollaborators) ActiveAnimationCount() int {
	return d.anim.ActiveJobCount(context.Background())
}
func (d *daemonCollaborators) AccessibilityTrusted() bool { return d.backend.Trusted() }

// Dispatch implements hotkeys.Dispatcher, routing hotkey-produced actions to
// the Layout Engine or the process lifecycle (spec.md section 6.2).
func (d *daemonCollaborators) Dispatch(action hotkeys.Action) {
	switch action {
	case hotkeys.ActionQuit:
		d.cancel()
		return
	case hotkeys.ActionReload:
		d.discover.ForceImmediateScan()
		return
	}

	focused, ok, err := d.discover.FocusedWindow()
	if err != nil || !ok {
		return
	}

	screens, err := d.backend.Screens()
	if err != nil {
		return
	}

	switch action {
	case hotkeys.ActionMoveLeft:
		d.engine.MoveFocused(focused.WindowID, layout.DirLeft, screens)
	case hotkeys.ActionMoveRight:
		d.engine.MoveFocused(focused.WindowID, layout.DirRight, screens)
	case hotkeys.ActionMoveUp:
		d.engine.MoveFocused(focused.WindowID, layout.DirUp, screens)
	case hotkeys.ActionMoveDown:
		d.engine.MoveFocused(focused.WindowID, layout.DirDown, screens)
	case hotkeys.ActionPromoteToMaster:
		d.engine.PromoteToMaster(focused.WindowID, screens)
	}
}

func runDaemon() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(parseLevel(cfg.LogLevel))
	slog.SetDefault(logger)

	backend, err := platform.NewBackend()
	if err != nil {
		logger.Error("failed to open platform backend", "error", err)
		os.Exit(1)
	}
	if closer, ok := backend.(interface{ Close() }); ok {
		defer closer.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduleCh := make(chan layout.ScheduleRequest, 32)
	anim := animator.New(backend, scheduleCh, logger)
	engine := layout.NewEngine(scheduleCh, nil, logger)
	disc := discovery.New(backend, logger, 1, cfg.Discovery.DebugInterval)
	disc.NotifyOnChange(func() {
		screens, err := backend.Screens()
		if err != nil {
			return
		}
		engine.RequestApplyLayout(screens)
	})

	collab := &daemonCollaborators{engine: engine, anim: anim, backend: backend, discover: disc, cancel: cancel}

	reloadChan := make(chan struct{}, 1)
	ipcServer, err := ipc.NewServer(cfg, collab, disc.ForceImmediateScan, reloadChan, logger)
	if err != nil {
		logger.Error("failed to create ipc server", "error", err)
		os.Exit(1)
	}
	if err := ipcServer.Start(); err != nil {
		logger.Error("failed to start ipc server", "error", err)
		os.Exit(1)
	}
	defer ipcServer.Stop()

	super := daemon.NewSupervisor(logger)

	super.Add(daemon.NewServiceFunc("discovery", disc.Run))
	super.Add(daemon.NewServiceFunc("animator-logic", anim.Run))
	super.Add(daemon.NewServiceFunc("animator-writer", anim.RunWriteWorker))
	super.Add(daemon.NewHealthCheck(daemon.HealthCheckInterval, engine, logger))

	if cfg.Metrics.Enabled {
		super.Add(metrics.NewServer(cfg.Metrics.Listen, logger))
	}

	super.Add(daemon.NewServiceFunc("snapshot-consumer", func(ctx context.Context) error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case snapshot := <-disc.SnapshotCh:
				metrics.ScansTotal.Inc()
				screens, err := backend.Screens()
				if err != nil {
					continue
				}
				engine.UpdateAndSchedule(snapshot, time.Now(), screens)
				metrics.ManagedWindows.Set(float64(len(engine.Records())))
				metrics.ZombieWindows.Set(float64(engine.ZombieCount()))
				metrics.ActiveAnimationJobs.Set(float64(anim.ActiveJobCount(ctx)))
			}
		}
	}))

	if hotkeyHandler, ok := hotkeys.NewHandler(backend, collab, logger); ok {
		if err := hotkeyHandler.RegisterDefaults(); err != nil {
			logger.Warn("failed to register hotkeys", "error", err)
		} else {
			logger.Info("hotkeys registered")
		}
	} else {
		logger.Info("backend has no global-hotkey capability; skipping hotkey registration")
	}

	if eventLooper, ok := backend.(interface{ EventLoop() }); ok {
		go eventLooper.EventLoop()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-sigCh:
				switch sig {
				case syscall.SIGHUP:
					logger.Info("received SIGHUP, forcing a discovery scan")
					disc.ForceImmediateScan()
				case os.Interrupt, syscall.SIGTERM:
					logger.Info("shutting down")
					cancel()
				}
			case <-reloadChan:
				disc.ForceImmediateScan()
			}
		}
	}()

	if err := super.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("supervisor exited", "error", err)
		os.Exit(1)
	}
}
