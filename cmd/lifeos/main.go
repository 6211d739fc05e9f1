package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"life-os/internal/bot"
	"life-os/internal/config"
	"life-os/internal/logging"
	"life-os/internal/model"
	"life-os/internal/repository"
	"life-os/internal/server"
	"life-os/internal/service"
)

var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		a          *app
	)

	root := &cobra.Command{
		Use:           "lifeos",
		Short:         "Capture pipeline that files notes into tasks, events, ideas and references",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
			if err != nil {
				return err
			}
			a, err = newApp(cmd.Context(), cfg, logger)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a != nil {
				a.close()
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")

	getApp := func() *app { return a }
	root.AddCommand(
		processCmd(getApp),
		briefCmd(getApp),
		captureCmd(getApp),
		statusCmd(getApp),
		setupCmd(getApp),
		serveCmd(getApp),
	)
	return root
}

func processCmd(getApp func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "process",
		Short: "Classify every unprocessed capture in the inbox",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := getApp().processor()
			if err != nil {
				return err
			}
			stats, err := p.ProcessInbox(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		},
	}
}

func briefCmd(getApp func() *app) *cobra.Command {
	var send bool
	cmd := &cobra.Command{
		Use:       "brief [morning|night]",
		Short:     "Print the morning or night brief",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{string(service.BriefMorning), string(service.BriefNight)},
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			kind := service.BriefMorning
			if len(args) == 1 {
				parsed, err := service.ParseBriefKind(args[0])
				if err != nil {
					return err
				}
				kind = parsed
			}
			if send {
				tg, err := a.telegram(bot.Deps{Briefs: a.briefs()})
				if err != nil {
					return err
				}
				if tg == nil {
					return errors.New("telegram.token is not configured")
				}
				return tg.SendBrief(cmd.Context(), kind)
			}
			text, err := a.briefs().Generate(cmd.Context(), kind, a.today())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
	cmd.Flags().BoolVar(&send, "send", false, "deliver to the allowed Telegram chats instead of printing")
	return cmd
}

func captureCmd(getApp func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "capture <text>",
		Short: "Save a capture to the inbox and classify it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			p, err := a.processor()
			if err != nil {
				return err
			}
			res, err := service.NewCaptureService(a.store, p, a.logger).Capture(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n(capture %s)\n", res.Summary, res.ID)
			return nil
		},
	}
}

func statusCmd(getApp func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status <task-id> <pending|in_progress|completed|cancelled>",
		Short: "Change the status of a task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			task, err := getApp().tasks().SetStatus(cmd.Context(), args[0], model.Status(args[1]))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", task.Description, task.Status)
			return nil
		},
	}
}

func setupCmd(getApp func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Write the header row of every collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := repository.EnsureHeaders(cmd.Context(), getApp().workbook); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "headers are in place")
			return nil
		},
	}
}

func serveCmd(getApp func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP endpoint, Telegram bot and scheduled jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), getApp())
		},
	}
}

func runServe(ctx context.Context, a *app) error {
	p, err := a.processor()
	if err != nil {
		return err
	}
	captures := service.NewCaptureService(a.store, p, a.logger)
	briefs := a.briefs()

	tg, err := a.telegram(bot.Deps{Capture: captures, Briefs: briefs, Processor: p, Tasks: a.tasks()})
	if err != nil {
		return err
	}

	srv := server.New(server.Config{Addr: a.cfg.Server.Addr, APIKey: a.cfg.Server.APIKey}, captures, a.metrics, a.registry, a.logger)
	if a.cfg.Server.APIKey == "" {
		a.logger.Warn("server.api_key is empty, /capture will reject every request")
	}

	scheduler := service.NewSchedulerService(a.location, a.logger)
	if _, err := scheduler.ScheduleInterval("process-inbox", a.cfg.Schedule.ProcessInterval, func() {
		if _, err := p.ProcessInbox(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("scheduled cycle failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}
	for kind, at := range map[service.BriefKind]string{
		service.BriefMorning: a.cfg.Schedule.MorningBrief,
		service.BriefNight:   a.cfg.Schedule.NightBrief,
	} {
		if _, err := scheduler.ScheduleDaily(string(kind)+"-brief", at, func() {
			deliverBrief(ctx, a, tg, briefs, kind)
		}); err != nil {
			return err
		}
	}
	scheduler.Start()
	defer scheduler.Stop()

	errCh := make(chan error, 2)
	go func() { errCh <- srv.Start() }()
	if tg != nil {
		go func() { errCh <- tg.Start(ctx) }()
	}

	a.logger.Info("life os started", zap.String("addr", a.cfg.Server.Addr), zap.Bool("telegram", tg != nil))

	select {
	case <-ctx.Done():
	case err = <-errCh:
		if err != nil {
			a.logger.Error("component stopped", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		a.logger.Warn("http shutdown", zap.Error(serr))
	}
	a.logger.Info("shutdown complete")
	return err
}

func deliverBrief(ctx context.Context, a *app, tg *bot.Bot, briefs *service.BriefService, kind service.BriefKind) {
	jobCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	if tg != nil {
		if err := tg.SendBrief(jobCtx, kind); err != nil {
			a.logger.Error("brief delivery failed", zap.String("kind", string(kind)), zap.Error(err))
		}
		return
	}
	text, err := briefs.Generate(jobCtx, kind, a.today())
	if err != nil {
		a.logger.Error("brief failed", zap.String("kind", string(kind)), zap.Error(err))
		return
	}
	a.logger.Info("brief", zap.String("kind", string(kind)), zap.String("text", text))
}
