package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/mama165/sdk-go/logs"

	"style-relay/domain"
	"style-relay/moderation"
	"style-relay/observability"
	"style-relay/runtime"
	"style-relay/runtime/workers"
	"style-relay/transform"
	"style-relay/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting so every defer executes before the process
// exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load(".env.local")
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Transformation gateway
	tracker := transform.NewTracker()
	var client *transform.Client
	if config.LLMAPIKey == "" {
		log.Warn("LLM_API_KEY not set, transformations will return original text")
	} else {
		client = transform.NewClient(config.LLMBaseURL, config.LLMAPIKey, config.LLMModel, config.LLMTimeout)
	}
	defaultStyle := domain.ParseStyle(config.DefaultStyle, domain.StyleUwu)
	gateway := transform.NewGateway(log, client, tracker, transform.GatewayConfig{
		DefaultStyle:      defaultStyle,
		NicknameMaxLength: config.NicknameMaxLength,
		MessageMaxLength:  config.MessageMaxLength,
	})

	// 3. Room state: registry + bounded history
	registry := runtime.NewRegistry()
	history, err := runtime.NewHistory(log, config.HistoryCapacity)
	if err != nil {
		return fmt.Errorf("history setup failed: %w", err)
	}
	defer func() {
		log.Info("Closing history store...")
		_ = history.Close()
	}()

	// 4. Optional moderation of display text
	var censor func(string) string
	if config.ModerationEnabled {
		words, err := moderation.LoadDefaultWords()
		if err != nil {
			return fmt.Errorf("moderation word list failed: %w", err)
		}
		moderator, err := moderation.NewModerator(words, firstRune(config.ModerationCharReplacement, '*'))
		if err != nil {
			return fmt.Errorf("moderation setup failed: %w", err)
		}
		log.Info(fmt.Sprintf("%d censored words loaded", len(words)))
		censor = moderator.Censor
	}

	coordinator := runtime.NewCoordinator(log, registry, history, gateway, censor, defaultStyle)

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 6. Supervised background workers
	supervisor := workers.NewSupervisor(log, config.RestartInterval)
	supervisor.Add(
		workers.NewQuotaWatcher(log, coordinator, gateway, config.QuotaPushInterval),
		observability.NewTelemetry(log, config.TelemetryInterval),
	)
	go supervisor.Run(ctx)

	// 7. WebSocket endpoint
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	wsServer := ws.NewServer(log, coordinator, ws.ServerConfig{
		ConnectionBufferSize: config.ConnectionBufferSize,
		MaxFrameSize:         config.MaxFrameSize,
		ReadTimeout:          config.ReadTimeout,
		WriteTimeout:         config.WriteTimeout,
		PingInterval:         config.PingInterval,
	})
	wsServer.Register(e)

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting relay server", "address", address, "at", time.Now().UTC())
		if err := e.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	// 8. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 9. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = e.Shutdown(shutdownCtx)
	supervisor.Stop()
	log.Info("Program stopped cleanly")

	return nil
}

func firstRune(s string, fallback rune) rune {
	for _, r := range s {
		return r
	}
	return fallback
}
