package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"study_timer/internal"
	"study_timer/internal/apperrors"
	"study_timer/internal/clock"
	"study_timer/internal/config"
	"study_timer/internal/session"
	"study_timer/internal/storage"
	"study_timer/internal/timer"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	configPath string
	debug      bool
}

// app is everything a command needs once config and storage are open.
type app struct {
	cfg      *config.Config
	slot     storage.Slot
	sessions *session.Manager
	logger   *slog.Logger
	logFile  io.Closer
}

func openApp(ctx context.Context, opts *options, logToFile bool) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	level := cfg.Log.SlogLevel()
	if opts.debug {
		level = slog.LevelDebug
	}

	var out io.Writer = os.Stderr
	var logFile io.Closer
	if logToFile {
		if err := os.MkdirAll(filepath.Dir(cfg.Log.File), 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		out, logFile = f, f
	} else if !opts.debug && level < slog.LevelWarn {
		level = slog.LevelWarn
	}
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slot, err := storage.Open(cfg.Storage.Backend, cfg.Storage.Dir, cfg.Storage.Key)
	if err != nil {
		if logFile != nil {
			logFile.Close()
		}
		return nil, err
	}

	sessions := session.NewManager(slot, clock.SystemClock{}, logger)
	sessions.Load(ctx)

	logger.Debug("storage opened",
		"backend", cfg.Storage.Backend,
		"dir", cfg.Storage.Dir,
		"key", cfg.Storage.Key)

	return &app{
		cfg:      cfg,
		slot:     slot,
		sessions: sessions,
		logger:   logger,
		logFile:  logFile,
	}, nil
}

func (a *app) Close() {
	if err := a.slot.Close(); err != nil {
		a.logger.Error("failed to close storage", "error", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "study-timer",
		Short:         "Focus timer for a single study session",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), opts)
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", config.DefaultPath(), "config file path")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	root.AddCommand(newTUICmd(opts))
	root.AddCommand(newStatusCmd(opts))
	root.AddCommand(newStartCmd(opts))
	root.AddCommand(newToggleCmd(opts))
	root.AddCommand(newResetCmd(opts))
	root.AddCommand(newConfigCmd(opts))
	return root
}

func newTUICmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Run the full-screen timer",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), opts)
		},
	}
}

func runTUI(ctx context.Context, opts *options) error {
	a, err := openApp(ctx, opts, true)
	if err != nil {
		return err
	}
	defer a.Close()

	redraw := timer.New(clock.SystemClock{}, a.cfg.Timer.RedrawInterval, nil)
	m := internal.NewModel(a.sessions, redraw, a.logger)
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	redraw.SetOnTick(func(at time.Time) {
		p.Send(internal.MsgTick{At: at})
	})

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run program: %w", err)
	}
	return nil
}

func newStatusCmd(opts *options) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), opts, false)
			if err != nil {
				return err
			}
			defer a.Close()

			snap := a.sessions.Snapshot()
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(snap)
			}
			printSnapshot(cmd.OutOrStdout(), snap)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the session as JSON")
	return cmd
}

func printSnapshot(w io.Writer, snap session.Snapshot) {
	if !snap.HasActiveSession {
		_, _ = fmt.Fprintln(w, "no active session")
		return
	}
	state := "paused"
	if snap.IsRunning {
		state = "running"
	}
	_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d%%\t%s\n",
		snap.Subject,
		internal.FormatClock(snap.ElapsedSeconds),
		internal.FormatHours(snap.TargetHours),
		int64(snap.ProgressPercentage),
		state,
	)
}

func newStartCmd(opts *options) *cobra.Command {
	var hours float64

	cmd := &cobra.Command{
		Use:   "start <subject>",
		Short: "Start a new session, replacing the current one",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			subject, err := internal.ParseSubject(strings.Join(args, " "))
			if err != nil {
				return err
			}
			if err := internal.ValidateHours(hours); err != nil {
				return err
			}

			a, err := openApp(cmd.Context(), opts, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.sessions.Start(cmd.Context(), subject, hours); err != nil {
				return err
			}
			printSnapshot(cmd.OutOrStdout(), a.sessions.Snapshot())
			return nil
		},
	}
	cmd.Flags().Float64Var(&hours, "hours", 1, "target hours (0.5 or more, in steps of 0.5)")
	return cmd
}

func newToggleCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle",
		Short: "Pause or resume the current session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), opts, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.sessions.Toggle(cmd.Context()); err != nil {
				if errors.Is(err, apperrors.ErrNoActiveSession) {
					return fmt.Errorf("nothing to toggle: %w", err)
				}
				return err
			}
			printSnapshot(cmd.OutOrStdout(), a.sessions.Snapshot())
			return nil
		},
	}
}

func newResetCmd(opts *options) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "End the current session and discard its progress",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), opts, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if !a.sessions.Session().HasActiveSession() {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no active session")
				return nil
			}

			confirmed := yes || confirm(cmd.InOrStdin(), cmd.OutOrStdout(), internal.ResetPrompt)
			if a.sessions.Reset(cmd.Context(), confirmed) {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "session reset")
			} else {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "session kept")
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

// confirm asks a yes/no question; anything but an explicit yes declines.
func confirm(in io.Reader, out io.Writer, prompt string) bool {
	_, _ = fmt.Fprintf(out, "%s [y/N]: ", prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func newConfigCmd(opts *options) *cobra.Command {
	cfgCmd := &cobra.Command{Use: "config", Short: "Inspect or create the config file"}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			_, _ = cmd.OutOrStdout().Write(out)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the default configuration if none exists",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := os.Stat(opts.configPath); err == nil {
				return fmt.Errorf("config already exists at %s", opts.configPath)
			}
			if err := config.Save(opts.configPath, config.DefaultConfig()); err != nil {
				return fmt.Errorf("write config: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", opts.configPath)
			return nil
		},
	})

	return cfgCmd
}
