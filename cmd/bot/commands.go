package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"intent-chatter/internal/analytics"
	"intent-chatter/internal/auth"
	"intent-chatter/internal/chat"
	"intent-chatter/internal/scheduler"
	"intent-chatter/internal/storage"
	"intent-chatter/internal/telegram"
	"intent-chatter/internal/tui"
)

func newChatCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:         "chat",
		Short:       "Start the terminal chat interface",
		Annotations: map[string]string{annotationTUI: "true"},
		Args:        cobra.NoArgs,
		RunE:        c.runChat,
	}
}

func (c *cli) runChat(cmd *cobra.Command, args []string) error {
	a, err := c.bootstrap(false)
	if err != nil {
		return err
	}
	defer a.Close()
	return tui.Run(a.engine)
}

func newAskCmd(c *cli) *cobra.Command {
	var showTag bool
	cmd := &cobra.Command{
		Use:   "ask [message]",
		Short: "Answer a single message and log the turn",
		Example: `  bot ask "hello there"
  bot ask --tag what can you do`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.bootstrap(false)
			if err != nil {
				return err
			}
			defer a.Close()

			reply, err := chat.NewSession(a.engine).Submit(strings.Join(args, " "))
			if errors.Is(err, chat.ErrEmptyInput) {
				return fmt.Errorf("nothing to ask: %w", err)
			}
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if showTag {
				fmt.Fprintf(out, "[%s %.2f] ", reply.Tag, reply.Probability)
			}
			fmt.Fprintf(out, "Chatbot: %s\n", reply.Response)
			if reply.LogErr != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: turn not saved: %v\n", reply.LogErr)
			}
			if reply.Ended {
				fmt.Fprintln(out, chat.Farewell)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showTag, "tag", false, "print the predicted intent and its probability")
	return cmd
}

func newTrainCmd(c *cli) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the classifier if its artifacts are missing or stale",
		Long: `Loads the intent corpus and makes sure the persisted vectorizer and classifier
match it. Artifacts trained on a different corpus are replaced. Use --force
to retrain unconditionally.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.bootstrap(force)
			if err != nil {
				return err
			}
			defer a.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "model ready: %d intents, %d features, %d training patterns\n",
				len(a.model.Classifier.Classes), a.model.Vectorizer.Features(), len(a.corpus.Examples()))
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "retrain even when artifacts are up to date")
	return cmd
}

func newHistoryCmd(c *cli) *cobra.Command {
	var last int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the conversation log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := newRecorder(c.cfg)
			if err != nil {
				return err
			}
			defer rec.Close()

			turns, err := storage.Last(rec, last)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(turns) == 0 {
				fmt.Fprintln(out, "No conversation history available.")
				return nil
			}
			for _, t := range turns {
				fmt.Fprintf(out, "User: %s\nChatbot: %s\nTimestamp: %s\n---\n", t.UserInput, t.Response, t.FormattedTimestamp())
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&last, "last", "n", 0, "only print the n most recent turns")
	return cmd
}

func newStatsCmd(c *cli) *cobra.Command {
	var (
		date   string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarise one day of the conversation log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			day := time.Now()
			if date != "" {
				d, err := time.ParseInLocation("2006-01-02", date, time.Local)
				if err != nil {
					return fmt.Errorf("invalid --date: %w", err)
				}
				day = d
			}
			a, err := c.bootstrap(false)
			if err != nil {
				return err
			}
			defer a.Close()

			stats, err := analytics.FromEngine(a.engine, day)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				s, err := stats.ToJSON()
				if err != nil {
					return err
				}
				fmt.Fprintln(out, s)
				return nil
			}
			fmt.Fprint(out, stats.GenerateReportSummary())
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day to analyse (YYYY-MM-DD), defaults to today")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the statistics as JSON")
	return cmd
}

func newTelegramCmd(c *cli) *cobra.Command {
	var reportNow bool
	cmd := &cobra.Command{
		Use:   "telegram",
		Short: "Serve the chatbot over the Telegram Bot API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.cfg.TelegramBotToken == "" {
				return errors.New("TELEGRAM_BOT_TOKEN is required")
			}
			a, err := c.bootstrap(false)
			if err != nil {
				return err
			}
			defer a.Close()

			authSvc := auth.New(c.cfg.AdminUserID, c.cfg.AllowedUsers)
			bot, err := telegram.New(c.cfg.TelegramBotToken, authSvc, a.engine, c.cfg.HistoryLimit, c.logger)
			if err != nil {
				return fmt.Errorf("failed to create bot: %w", err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var sched *scheduler.Scheduler
			if c.cfg.AdminUserID != 0 && c.cfg.ReportSchedule != "" {
				sched = scheduler.New(c.cfg.ReportSchedule, c.logger)
				sched.SetReportFunction(bot.SendDailyReport)
				if err := sched.Start(); err != nil {
					return fmt.Errorf("start scheduler: %w", err)
				}
				defer sched.Stop()
				if reportNow {
					if err := sched.RunNow(); err != nil {
						c.logger.Warn("initial report failed", zap.Error(err))
					}
				}
			}

			c.logger.Info("telegram bot started",
				zap.Int64s("allowlist", authSvc.List()),
				zap.Bool("daily_report", sched != nil && sched.IsRunning()))
			bot.Start(ctx)
			return nil
		},
	}
	cmd.Flags().BoolVar(&reportNow, "report-now", false, "send today's report to the admin on startup")
	return cmd
}
