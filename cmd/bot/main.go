package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/remindbot/remindbot/internal/bot"
	"github.com/remindbot/remindbot/internal/config"
	"github.com/remindbot/remindbot/internal/core"
	"github.com/remindbot/remindbot/internal/logger"
	"github.com/remindbot/remindbot/internal/services/ai"
	"github.com/remindbot/remindbot/internal/telemetry"
	"github.com/remindbot/remindbot/internal/transport/console"
)

func main() {
	var (
		debugFlag bool
		devFlag   bool
	)

	rootCmd := &cobra.Command{
		Use:   "remindbot",
		Short: "Conversational reminder assistant",
		Long:  "remindbot schedules one-shot reminders from natural-language messages, inferring the user's timezone from a city name.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(debugFlag, devFlag)
		},
	}

	rootCmd.Flags().BoolVar(&debugFlag, "debug", false, "Enable debug mode for LLM API logging")
	rootCmd.Flags().BoolVar(&devFlag, "dev", false, "Use console-encoded development logging")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(debugFlag, devFlag bool) error {
	// A missing .env file is fine; the environment may be set directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.BotDebugMode || debugFlag

	var zapLogger *zap.Logger
	if devFlag {
		zapLogger, err = logger.NewDevelopmentLogger(debugMode)
	} else {
		zapLogger, err = logger.NewProductionLogger(debugMode)
	}
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = logger.Sync(zapLogger)
	}()

	zapLogger.Info("Starting remindbot",
		zap.Bool("debug_mode", debugMode),
		zap.String("ai_model", cfg.AIModel),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.OTELEnabled {
		tp, err := telemetry.InitTracer(ctx, "remindbot", cfg.OTELEndpoint)
		if err != nil {
			zapLogger.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(),
				time.Duration(cfg.ShutdownTimeoutMS)*time.Millisecond)
			defer shutdownCancel()
			if err := telemetry.Shutdown(shutdownCtx, tp); err != nil {
				zapLogger.Warn("Failed to shut down tracing", zap.Error(err))
			}
		}()
		zapLogger.Info("Tracing enabled", zap.String("endpoint", cfg.OTELEndpoint))
	}

	limiter := rate.NewLimiter(rate.Limit(cfg.OracleRateLimit), cfg.OracleRateBurst)
	oracle := ai.NewOpenAIOracle(cfg.OpenAIKey, cfg.AIBaseURL, cfg.AIModel, limiter, zapLogger, debugMode)

	transport := console.New(os.Stdin, os.Stdout, zapLogger)

	service := core.NewService(oracle, transport, zapLogger)
	defer service.Stop()

	b := bot.New(service, transport, zapLogger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		zapLogger.Info("Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	zapLogger.Info("remindbot ready")
	if err := transport.Run(ctx, b); err != nil && ctx.Err() == nil {
		zapLogger.Error("transport stopped", zap.Error(err))
		return err
	}

	zapLogger.Info("remindbot stopped")
	return nil
}
