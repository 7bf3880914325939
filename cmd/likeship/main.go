package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/likelabs/likeship"
	"github.com/likelabs/likeship/internal/cliconfig"
	"github.com/likelabs/likeship/pkg/log"
)

const helpDescription = `
Capture records locally and sync them to the likelabs service.

Highlights:
  - Records are never lost: anything that cannot be delivered is queued
    on disk and retried on a schedule.
  - Sessions refresh themselves; log in once and forget about it.
  - Configure via file, environment (LIKESHIP_*), or flags.
`

var exampleUsage = strings.TrimSpace(`
  likeship login --email you@example.com --password <password>
  likeship --once
  likeship capture record.json
  likeship status --remote
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:     "likeship",
		Short:   "Capture records locally and sync them to the likelabs service",
		Long:    strings.TrimSpace(helpDescription),
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		RunE: func(cmd *cobra.Command, args []string) error {
			changed, cfgFile, err := resolveConfig(cmd, &cfg, cfgPath)
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			s, err := likeship.New(cfg, likeship.WithLogger(logger))
			if err != nil {
				return fmt.Errorf("create likeship: %w", err)
			}
			defer s.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				w := cliconfig.NewWatcher(cfgFile, cfg, changed, logger)
				w.OnReload = func(c cliconfig.Config) {
					s.SetDrainInterval(c.DrainInterval)
				}
				go w.Run(ctx)
			}

			if err := s.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.likeship/config.toml)")
	pf.StringVar(&cfg.ServiceURL, "service-url", cfg.ServiceURL, "base service URL")
	pf.StringVar(&cfg.StateDir, "state-dir", cfg.StateDir, "state directory (default: $HOME/.likeship)")
	pf.StringVar(&cfg.StateBackend, "state-backend", cfg.StateBackend, "state backend: file or sqlite")
	pf.DurationVar(&cfg.HTTPTimeout, "timeout", cfg.HTTPTimeout, "HTTP timeout")
	pf.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (trace, debug, info, warn, error)")

	root.Flags().DurationVar(&cfg.DrainInterval, "drain-interval", cfg.DrainInterval, "interval between queue drains")
	root.Flags().IntVar(&cfg.QueueCap, "queue-cap", cfg.QueueCap, "maximum queued records before oldest are evicted")
	root.Flags().IntVar(&cfg.MaxAttempts, "max-attempts", cfg.MaxAttempts, "delivery attempts before a queued record is parked")
	root.Flags().BoolVar(&cfg.Once, "once", cfg.Once, "drain the queue once and exit")

	root.AddCommand(
		newLoginCmd(&cfg, &cfgPath),
		newRegisterCmd(&cfg, &cfgPath),
		newLogoutCmd(&cfg, &cfgPath),
		newStatusCmd(&cfg, &cfgPath),
		newRetryCmd(&cfg, &cfgPath),
		newCaptureCmd(&cfg, &cfgPath),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "likeship: %v\n", err)
		os.Exit(1)
	}
}

// resolveConfig merges file and environment configuration under the flags
// that were explicitly set, then validates. Returns the changed-flag map and
// the config file path actually used.
func resolveConfig(cmd *cobra.Command, cfg *cliconfig.Config, cfgPath string) (map[string]bool, string, error) {
	cfgFile := cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return nil, "", fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(cfg, fc, changed); err != nil {
			return nil, "", err
		}
	}

	if err := cliconfig.ApplyEnvConfig(cfg, changed); err != nil {
		return nil, "", err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return changed, cfgFile, nil
}

func newLogger(cfg cliconfig.Config) log.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	return log.NewZerologAdapter(level)
}

// openShipper resolves configuration and wires a Shipper for one-shot
// subcommands.
func openShipper(cmd *cobra.Command, cfg *cliconfig.Config, cfgPath string) (*likeship.Shipper, error) {
	if _, _, err := resolveConfig(cmd, cfg, cfgPath); err != nil {
		return nil, err
	}
	return likeship.New(*cfg, likeship.WithLogger(newLogger(*cfg)))
}

func newLoginCmd(cfg *cliconfig.Config, cfgPath *string) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate against the capture service",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openShipper(cmd, cfg, *cfgPath)
			if err != nil {
				return err
			}
			defer s.Close()

			cred, err := s.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			fmt.Printf("logged in as %s\n", cred.SubjectID)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newRegisterCmd(cfg *cliconfig.Config, cfgPath *string) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account on the capture service",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openShipper(cmd, cfg, *cfgPath)
			if err != nil {
				return err
			}
			defer s.Close()

			cred, err := s.Register(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			fmt.Printf("registered as %s\n", cred.SubjectID)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newLogoutCmd(cfg *cliconfig.Config, cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Discard the stored credential",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openShipper(cmd, cfg, *cfgPath)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("logged out")
			return nil
		},
	}
}

func newStatusCmd(cfg *cliconfig.Config, cfgPath *string) *cobra.Command {
	var remote bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show sync status",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openShipper(cmd, cfg, *cfgPath)
			if err != nil {
				return err
			}
			defer s.Close()

			status, err := s.Status(cmd.Context())
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendRow(table.Row{"Authenticated", status.Authenticated})
			if status.Authenticated {
				t.AppendRow(table.Row{"User", status.SubjectID})
			}
			t.AppendRow(table.Row{"Captured", status.Captured})
			t.AppendRow(table.Row{"Sent", status.Sent})
			t.AppendRow(table.Row{"Queued", status.QueueSize})
			t.AppendRow(table.Row{"Last capture", formatTime(status.LastCapturedAt)})
			t.AppendRow(table.Row{"Last sync", formatTime(status.LastSyncedAt)})

			if remote {
				reachable := "yes"
				if err := s.Ping(cmd.Context()); err != nil {
					reachable = fmt.Sprintf("no (%v)", err)
				}
				t.AppendRow(table.Row{"Service reachable", reachable})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().BoolVar(&remote, "remote", false, "also probe the capture service")
	return cmd
}

func newRetryCmd(cfg *cliconfig.Config, cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "retry",
		Short: "Drain the delivery queue now",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openShipper(cmd, cfg, *cfgPath)
			if err != nil {
				return err
			}
			defer s.Close()

			summary, err := s.Retry(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("processed %d, succeeded %d, remaining %d\n",
				summary.Processed, summary.Succeeded, summary.Remaining)
			return nil
		},
	}
}

func newCaptureCmd(cfg *cliconfig.Config, cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "capture [file]",
		Short: "Submit one record from a JSON file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := readPayload(args)
			if err != nil {
				return err
			}
			record, err := likeship.ParseRecord(payload)
			if err != nil {
				return err
			}

			s, err := openShipper(cmd, cfg, *cfgPath)
			if err != nil {
				return err
			}
			defer s.Close()

			res, err := s.Capture(cmd.Context(), record)
			if err != nil {
				return err
			}
			fmt.Printf("%s: %s\n", res.RecordID, res.Disposition)
			return nil
		},
	}
}

func readPayload(args []string) ([]byte, error) {
	if len(args) == 1 && args[0] != "-" {
		return os.ReadFile(args[0])
	}
	return io.ReadAll(os.Stdin)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.RFC3339)
}
