package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/user/movie-bot-go/internal/access"
	"github.com/user/movie-bot-go/internal/bot"
	"github.com/user/movie-bot-go/internal/catalog"
	"github.com/user/movie-bot-go/internal/config"
	"github.com/user/movie-bot-go/internal/i18n"
	"github.com/user/movie-bot-go/internal/render"
	"github.com/user/movie-bot-go/internal/scheduler"
	"github.com/user/movie-bot-go/internal/server"
	"github.com/user/movie-bot-go/internal/session"
	"github.com/user/movie-bot-go/internal/store"
)

const (
	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout = 30 * time.Second
)

// options holds command-line flags
type options struct {
	envFile   string
	logLevel  string
	logPretty bool
}

func parseFlags() options {
	var opts options

	flagSet := pflag.NewFlagSet("movie-bot", pflag.ExitOnError)
	flagSet.StringVar(&opts.envFile, "env-file", ".env", "optional dotenv file loaded before the environment")
	flagSet.StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flagSet.BoolVar(&opts.logPretty, "log-pretty", false, "human-readable console logs instead of JSON")
	flagSet.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: movie-bot [flags]\n\nConfiguration is read from the environment (BOT_TOKEN, CHANNEL_ID, ADMIN_IDS, DB_*, ...).\n\nFlags:\n")
		flagSet.PrintDefaults()
	}
	_ = flagSet.Parse(os.Args[1:])

	return opts
}

func setupLogging(opts options) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if opts.logPretty {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Caller().Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()
	}

	level, err := zerolog.ParseLevel(opts.logLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Code running without an event logger in its context still logs
	zerolog.DefaultContextLogger = &log.Logger
}

func main() {
	opts := parseFlags()
	setupLogging(opts)

	cfg, err := config.Load(opts.envFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	log.Info().
		Str("dbDriver", cfg.DB.Driver).
		Int("admins", len(cfg.Admin.IDs)).
		Msg("Configuration loaded successfully")

	texts, err := i18n.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load localization table")
	}
	resolver, err := session.NewResolver(texts)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build menu label tables")
	}

	// Create root context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dataStore, err := store.New(&cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	log.Info().Str("driver", cfg.DB.Driver).Msg("Database connection established")

	telegramClient, err := bot.NewClient(cfg.Bot.Token, cfg.Bot.SendRate, cfg.Bot.PollTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Telegram client")
	}
	log.Info().Str("username", telegramClient.Username()).Msg("Telegram client initialized")

	policy := access.PolicyFromConfig(cfg)
	renderer := render.New(texts)
	oracle := bot.NewMembershipOracle(telegramClient.GetAPI(), cfg.Channel.ID)
	gate := access.NewGate(oracle, dataStore, policy, renderer)
	catalogService := catalog.NewService(dataStore, policy)
	sessions := session.NewStore(cfg.Session.TTL)

	botHandler := bot.NewHandler(dataStore, catalogService, gate, sessions, resolver, renderer, telegramClient)
	log.Info().Msg("Bot handler initialized")

	sched := scheduler.NewScheduler(sessions, dataStore, &cfg.Session)
	httpServer := server.NewServer(dataStore)

	// Setup signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := httpServer.Start(cfg.Server.Port); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server error")
		}
	}()

	sched.Start(ctx)
	log.Info().Msg("Scheduler started")

	pollCtx, stopPolling := context.WithCancel(ctx)
	defer stopPolling()
	pollDone := make(chan struct{})
	go func() {
		defer close(pollDone)
		log.Info().Msg("Starting Telegram bot polling")
		botHandler.Run(pollCtx, telegramClient.GetUpdates(cfg.Bot.PollTimeout))
	}()

	log.Info().Msg("Movie Bot started successfully")

	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer shutdownCancel()

	log.Info().Msg("Starting graceful shutdown...")

	// 1. Stop scheduler from triggering new sweeps
	sched.Stop()

	// 2. Stop Telegram bot polling and let in-flight updates finish
	telegramClient.StopReceivingUpdates()
	stopPolling()
	<-pollDone
	handlersDone := make(chan struct{})
	go func() {
		botHandler.Wait()
		close(handlersDone)
	}()
	select {
	case <-handlersDone:
		log.Info().Msg("In-flight updates finished")
	case <-shutdownCtx.Done():
		log.Warn().Msg("Timed out waiting for in-flight updates")
	}

	// 3. Stop HTTP server
	if err := httpServer.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping HTTP server")
	} else {
		log.Info().Msg("HTTP server stopped")
	}

	// 4. Close database connection pool
	if err := dataStore.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing database connection")
	} else {
		log.Info().Msg("Database connection closed")
	}

	cancel()

	select {
	case <-shutdownCtx.Done():
		if shutdownCtx.Err() == context.DeadlineExceeded {
			log.Warn().Msg("Shutdown timeout exceeded, forcing exit")
		}
	default:
		log.Info().Msg("Graceful shutdown completed")
	}
}
