package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"lingobot/internal/bootstrap"
	"lingobot/internal/platform/config"
	"lingobot/internal/platform/timefmt"

	trackingdto "lingobot/internal/modules/tracking/dto"
	workflowdto "lingobot/internal/modules/workflow/dto"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootFlags struct {
	configPath string
	dataDir    string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "lingobot",
		Short:         "Language practice automation and hours tracking",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (YAML)")
	root.PersistentFlags().StringVar(&flags.dataDir, "data", "", "data directory (overrides config)")

	root.AddCommand(newRunCmd(flags))
	root.AddCommand(newStatusCmd(flags))
	root.AddCommand(newReportCmd(flags))
	root.AddCommand(newReindexCmd(flags))
	root.AddCommand(newDashboardCmd(flags))
	root.AddCommand(newDriverCmd(flags))
	return root
}

func loadApp(flags *rootFlags) (*bootstrap.App, error) {
	cfg, err := config.Load(flags.configPath, flags.dataDir)
	if err != nil {
		return nil, err
	}
	return bootstrap.New(cfg)
}

func newRunCmd(flags *rootFlags) *cobra.Command {
	var user, mode, lesson string
	var stories []string
	var maxRetries int
	var retryDelay time.Duration

	cmd := &cobra.Command{
		Use:   "run [user]",
		Short: "Run practice sessions until the hour target is reached",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flags.configPath, flags.dataDir)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				cfg.User = args[0]
			}
			if user != "" {
				cfg.User = user
			}
			if mode != "" {
				cfg.Mode = config.Mode(mode)
			}
			if lesson != "" {
				cfg.Lesson = lesson
			}
			if len(stories) > 0 {
				cfg.Stories = stories
			}
			if maxRetries > 0 {
				cfg.MaxRetries = maxRetries
			}
			if retryDelay > 0 {
				cfg.RetryDelay = retryDelay
			}
			if err := cfg.ValidateRun(); err != nil {
				return err
			}

			app, err := bootstrap.New(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			out, err := app.WorkflowCLI.Run(ctx, workflowdto.RunInput{
				UserID:     cfg.User,
				Mode:       string(cfg.Mode),
				Lesson:     cfg.Lesson,
				Stories:    cfg.Stories,
				MaxRetries: cfg.MaxRetries,
				RetryDelay: cfg.RetryDelay,
			})
			printRunResult(cmd, out)
			return err
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user the hours are tracked for")
	cmd.Flags().StringVar(&mode, "mode", "", "workflow mode: lesson|stories")
	cmd.Flags().StringVar(&lesson, "lesson", "", "lesson name (lesson mode)")
	cmd.Flags().StringSliceVar(&stories, "stories", nil, "story rotation (stories mode)")
	cmd.Flags().IntVar(&maxRetries, "max-retries", 0, "retries per unit before giving up")
	cmd.Flags().DurationVar(&retryDelay, "retry-delay", 0, "pause between retries")
	return cmd
}

func printRunResult(cmd *cobra.Command, out workflowdto.RunOutput) {
	w := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(w, "sessions=%d iterations=%d reason=%s\n", out.Sessions, out.Iterations, out.Reason)
	if out.Completed {
		_, _ = fmt.Fprintf(w, "target reached, report written to %s\n", out.ReportPath)
	}
}

func newStatusCmd(flags *rootFlags) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "status [user]",
		Short: "Show tracked hours",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(flags)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			if all || len(args) == 0 && app.Config.User == "" {
				rows, err := app.TrackingCLI.StatusAll(context.Background())
				if err != nil {
					return err
				}
				if len(rows) == 0 {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no tracked users")
					return nil
				}
				var totalSeconds float64
				for _, row := range rows {
					printStatus(cmd, row)
					totalSeconds += row.TotalSeconds
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d users, %s tracked in total\n", len(rows), timefmt.Clock(totalSeconds))
				return nil
			}

			user := app.Config.User
			if len(args) == 1 {
				user = args[0]
			}
			row, err := app.TrackingCLI.Status(context.Background(), user)
			if err != nil {
				return err
			}
			printStatus(cmd, row)
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "show every tracked user")
	return cmd
}

func printStatus(cmd *cobra.Command, row trackingdto.StatusOutput) {
	marker := " "
	if row.Completed {
		marker = "*"
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %-32s %8s  %5.1f%%  %d sessions  %.1fh remaining\n",
		marker, row.UserID, timefmt.Clock(row.TotalSeconds), row.PercentComplete, row.SessionCount, row.HoursRemaining)
}

func newReportCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "report <user>",
		Short: "Write an hours report for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(flags)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			out, err := app.TrackingCLI.Report(context.Background(), args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "report written to %s\n", out.Path)
			return nil
		},
	}
}

func newReindexCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the status index from the tracking file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(flags)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			if err := app.TrackingCLI.Reindex(context.Background()); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "status index rebuilt")
			return nil
		},
	}
}

func newDashboardCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Live hours board for every tracked user",
		RunE: func(_ *cobra.Command, _ []string) error {
			app, err := loadApp(flags)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()
			return bootstrap.RunDashboard(app)
		},
	}
}

func newDriverCmd(flags *rootFlags) *cobra.Command {
	driver := &cobra.Command{Use: "driver", Short: "Automation driver commands"}

	driver.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Probe installed driver binaries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(flags)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			drivers, err := app.WorkflowCLI.CheckDrivers(context.Background())
			if err != nil {
				return err
			}
			if len(drivers) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no drivers installed")
				return nil
			}
			for _, d := range drivers {
				switch {
				case d.Err != "":
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%-16s ERROR  %s\n", d.Name, d.Err)
				case !d.Enabled:
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%-16s disabled\n", d.Name)
				default:
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%-16s %-8s modes=%s\n", d.Name, d.Version, strings.Join(d.Modes, ","))
				}
			}
			return nil
		},
	})
	return driver
}
