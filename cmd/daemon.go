package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hearthdesk/hearth/config"
	"github.com/hearthdesk/hearth/internal/approval"
	"github.com/hearthdesk/hearth/internal/bridge"
	"github.com/hearthdesk/hearth/internal/cliexec"
	"github.com/hearthdesk/hearth/internal/daemon"
	"github.com/hearthdesk/hearth/internal/pidfile"
	"github.com/hearthdesk/hearth/internal/project"
	"github.com/hearthdesk/hearth/internal/ratelimit"
	"github.com/hearthdesk/hearth/internal/watch"
	"github.com/hearthdesk/hearth/logging"
	"github.com/hearthdesk/hearth/pkg/models"
	"github.com/hearthdesk/hearth/pkg/paths"
	"github.com/spf13/cobra"
)

// NewRootCmd returns the hearthd command tree.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hearthd",
		Short: "Hearth host daemon",
		Long:  "The privileged host process serving the UI bridge: command execution, file watching, and event push.",
	}

	cmd.AddCommand(newDaemonStartCmd())
	cmd.AddCommand(newDaemonStopCmd())
	cmd.AddCommand(newDaemonStatusCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

func newDaemonStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the host daemon",
		Long:  "Start the hearth host daemon in foreground mode.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.NewLogger("hearthd")
			pidPath := paths.PidFilePath()

			cfg, err := config.LoadDefault()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			// 1. Acquire Lock
			if err := pidfile.Acquire(pidPath); err != nil {
				return fmt.Errorf("failed to start: %w", err)
			}
			defer func() {
				if err := pidfile.Release(pidPath); err != nil {
					logger.Errorf("Failed to release pidfile: %v", err)
				}
			}()

			// 2. Build the host components
			hub := bridge.NewHub()

			watches, err := watch.NewManager(cfg.Watch.Exclude)
			if err != nil {
				return err
			}

			engine := cliexec.NewEngine(
				func(ev models.CliOutputEvent) { hub.Publish(models.ChannelCliOutput, ev) },
				cliexec.WithShell(cfg.Exec.Shell),
				cliexec.WithKillGrace(cfg.Exec.KillGrace()),
			)

			limiter := ratelimit.New(policyOverrides(cfg))

			// Pick up rate-limit changes from hearth.yml without a restart.
			cfgWatcher, err := daemon.NewWatcher(500*time.Millisecond, func(cfg *config.Config) {
				limiter.SetPolicies(policyOverrides(cfg))
			})
			if err != nil {
				logger.WithError(err).Warn("Config watching disabled")
			} else {
				defer cfgWatcher.Close()
			}

			dispatcher := bridge.NewDispatcher(limiter)
			bridge.RegisterCoreChannels(dispatcher, bridge.CoreServices{
				Projects:  project.NewRegistry(),
				Watches:   watches,
				Engine:    engine,
				Approvals: approval.NewRegistry(),
				Hub:       hub,
			})

			srv := bridge.NewServer(dispatcher, hub)

			// 3. Handle Signals
			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

			go func() {
				<-stop
				logger.Info("Received stop signal")

				watches.StopAll()

				// Signal running children so Shutdown does not wait on them
				// past the kill grace period.
				for _, ex := range engine.List() {
					if !ex.Status.Terminal() {
						_ = engine.Cancel(ex.ID)
					}
				}
				engine.Shutdown()
				limiter.ResetAll()

				// Create shutdown context with timeout
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()

				if err := srv.Shutdown(shutdownCtx); err != nil {
					logger.Errorf("Server shutdown error: %v", err)
				}

				// Explicitly release pidfile before exit in signal handler
				_ = pidfile.Release(pidPath)
				os.Exit(0)
			}()

			// 4. Start Server (Blocking)
			logger.WithField("pid", os.Getpid()).Info("Starting host daemon")
			if err := srv.ListenAndServe(cfg.Bridge.Listen); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		},
	}
}

// policyOverrides converts configured rate limits into limiter policies.
func policyOverrides(cfg *config.Config) map[string]ratelimit.Policy {
	overrides := make(map[string]ratelimit.Policy, len(cfg.RateLimits))
	for ch, rl := range cfg.RateLimits {
		overrides[ch] = ratelimit.Policy{
			Window:      time.Duration(rl.WindowMs) * time.Millisecond,
			MaxRequests: rl.MaxRequests,
		}
	}
	return overrides
}

func newDaemonStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			pidPath := paths.PidFilePath()

			running, pid, err := pidfile.IsRunning(pidPath)
			if err != nil {
				return fmt.Errorf("error checking status: %w", err)
			}

			if !running {
				fmt.Println("Daemon is not running")
				return nil
			}

			// Send SIGTERM
			process, err := os.FindProcess(pid)
			if err != nil {
				return fmt.Errorf("failed to find process %d: %w", pid, err)
			}

			if err := process.Signal(syscall.SIGTERM); err != nil {
				return fmt.Errorf("failed to send stop signal: %w", err)
			}

			fmt.Printf("Sent SIGTERM to process %d\n", pid)
			return nil
		},
	}
}

func newDaemonStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			pidPath := paths.PidFilePath()
			running, pid, err := pidfile.IsRunning(pidPath)

			if err != nil {
				return fmt.Errorf("error: %w", err)
			}

			if running {
				fmt.Printf("Running (PID: %d)\n", pid)
			} else {
				fmt.Println("Stopped")
				os.Exit(1) // Return non-zero for stopped state (useful for scripts)
			}
			return nil
		},
	}
}
