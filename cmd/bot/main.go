package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"intent-chatter/internal/chat"
	"intent-chatter/internal/classifier"
	"intent-chatter/internal/config"
	"intent-chatter/internal/intents"
	"intent-chatter/internal/responder"
	"intent-chatter/internal/storage"
)

const annotationTUI = "tui"

// cli holds state shared by the subcommands of one invocation.
type cli struct {
	verbose bool
	envFile string

	cfg    *config.Config
	logger *zap.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "bot",
		Short: "Intent-classifying chatbot",
		Long: `An interactive chatbot that classifies what you type into one of the intents
of its corpus (TF-IDF + logistic regression) and answers with one of that
intent's canned responses. Every exchange is appended to a conversation log.

Run without arguments to start the terminal chat interface.`,
		Annotations:       map[string]string{annotationTUI: "true"},
		SilenceUsage:      true,
		PersistentPreRunE: c.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
		RunE: c.runChat,
	}
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	root.AddCommand(
		newChatCmd(c),
		newAskCmd(c),
		newTrainCmd(c),
		newHistoryCmd(c),
		newStatsCmd(c),
		newTelegramCmd(c),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command, args []string) error {
	if c.envFile != "" {
		if err := godotenv.Load(c.envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", c.envFile, err)
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	c.cfg = cfg

	logger, err := buildLogger(c.verbose, cmd.Annotations[annotationTUI] == "true", cfg.AppLogPath)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	c.logger = logger
	return nil
}

// buildLogger writes to stderr, or to a file while the terminal UI owns the
// screen.
func buildLogger(verbose, tui bool, appLogPath string) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	if tui {
		if err := os.MkdirAll(filepath.Dir(appLogPath), 0o755); err != nil {
			return nil, err
		}
		zc.OutputPaths = []string{appLogPath}
		zc.ErrorOutputPaths = []string{appLogPath}
	}
	return zc.Build()
}

// app is the wired pipeline: corpus, model, log and engine.
type app struct {
	corpus   *intents.Corpus
	model    *classifier.Model
	recorder storage.Recorder
	engine   *chat.Engine
}

func (c *cli) bootstrap(force bool) (*app, error) {
	corpus, err := intents.Load(c.cfg.CorpusPath)
	if err != nil {
		return nil, err
	}
	c.logger.Info("loaded intents", zap.String("path", c.cfg.CorpusPath), zap.Int("intents", corpus.Len()))

	opts := c.cfg.TrainOptions()
	opts.Force = force
	model, err := classifier.EnsureModel(corpus, c.cfg.ModelPaths(), opts, c.logger)
	if err != nil {
		return nil, fmt.Errorf("prepare model: %w", err)
	}

	rec, err := newRecorder(c.cfg)
	if err != nil {
		return nil, err
	}
	selector := responder.New(corpus, responder.NewSource(c.cfg.ResponseSeed))
	engine := chat.NewEngine(model, selector, rec, chat.WithLogger(c.logger))
	return &app{corpus: corpus, model: model, recorder: rec, engine: engine}, nil
}

func (a *app) Close() {
	if a.recorder != nil {
		_ = a.recorder.Close()
	}
}

func newRecorder(cfg *config.Config) (storage.Recorder, error) {
	switch cfg.LogBackend {
	case config.BackendSQLite:
		return storage.NewSQLiteRecorder(cfg.SQLitePath)
	default:
		rec, err := storage.NewCSVRecorder(cfg.LogFilePath)
		if err != nil {
			return nil, err
		}
		if err := rec.EnsureHeader(); err != nil {
			return nil, err
		}
		return rec, nil
	}
}
