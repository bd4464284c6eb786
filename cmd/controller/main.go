package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/app"
	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/config"
	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/dialogue"
	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/logging"
	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/session"
)

var (
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *zap.Logger
)

// #region commands
var rootCmd = &cobra.Command{
	Use:   "controller",
	Short: "Intake call controller for pre-settlement funding",
	Long: `controller runs the intake dialogue engine. Each caller turn is applied
to a persisted session and the next prompt is returned for the voice agent.

Configuration is read from --config (YAML), then environment variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		logger, err = logging.New(cfg.Logging.Level, cfg.Logging.JSON)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the turn, reset, transcript and record endpoints over HTTP",
	RunE:  runServe,
}

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Talk to the engine from the terminal",
	Long: `console runs one conversation against the configured stores. Type the
caller's side; 'quit' exits. The session can be resumed later with --session.`,
	RunE: runConsole,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("INTAKE_CONFIG"), "path to YAML config")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")

	consoleCmd.Flags().String("session", "", "session id (default: new uuid)")
	consoleCmd.Flags().String("caller", "", "caller phone number")

	rootCmd.AddCommand(serveCmd, consoleCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
// #endregion commands

// #region serve
func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", srv.Addr), zap.Bool("auth", cfg.Server.APIKey != ""))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
// #endregion serve

// #region console
func runConsole(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	sessionID, _ := cmd.Flags().GetString("session")
	caller, _ := cmd.Flags().GetString("caller")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	a, err := app.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Println("Intake console ready.")
	fmt.Printf("  Session: %s | DB: %s | Extractor: %s\n", sessionID, cfg.Storage.Path, cfg.Extractor.Backend)
	fmt.Println("Speak as the caller (or 'quit' to exit).")

	say := func(utterance string) (dialogue.Response, error) {
		resp, err := a.Engine.Handle(ctx, dialogue.TurnRequest{
			SessionID:    sessionID,
			CallerNumber: caller,
			Utterance:    utterance,
		})
		if err != nil {
			return resp, err
		}
		fmt.Printf("\n%s\n", resp.NextPrompt)
		fmt.Printf("[%s] listen=%ds completed=%v handoff=%v\n\n", resp.Stage, resp.ListenTimeoutSec, resp.Completed, resp.Handoff)
		return resp, nil
	}

	resp, err := say("")
	if err != nil {
		return err
	}
	scanner := bufio.NewScanner(os.Stdin)
	for resp.Stage != session.Done && !resp.Handoff {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "quit" || line == "exit" {
			break
		}
		if resp, err = say(line); err != nil {
			return err
		}
	}
	return scanner.Err()
}
// #endregion console
