package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"tradier-streamer/src/config"
	"tradier-streamer/src/logger"
	"tradier-streamer/src/models"
	"tradier-streamer/src/session"
	"tradier-streamer/src/transports"
)

var errEnough = errors.New("event limit reached")

// Opens one market session from environment config, subscribes with the
// recommended payload and prints events until -count is reached or Ctrl+C.
func main() {
	envPath := flag.String("env", ".env", "path to dotenv file")
	symbols := flag.String("symbols", "AAPL,MSFT", "comma separated symbols")
	count := flag.Int("count", 10, "events to print before exiting, 0 for unlimited")
	flag.Parse()

	if err := config.LoadEnvFile(*envPath); err != nil {
		fmt.Printf("Error loading env file: %v\n", err)
		os.Exit(1)
	}
	model := config.DefaultModel()
	model.Streaming.Kind = models.SessionKindMarket
	model.Streaming.Market.Symbols = strings.Split(*symbols, ",")
	cfg, err := config.NewConfigFromModel(model)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	appLogger := logger.NewLogger(cfg.MConfig, "stream-probe")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	manager := session.NewManager(session.NewGuard(), cfg, appLogger, "stream-probe",
		session.WithHTTPClient(&http.Client{Timeout: cfg.RestTimeout()}),
		session.WithDialer(transports.NewWebSocketDialer(cfg.HandshakeTimeout(), appLogger, "stream-probe")),
		session.WithStreamURL(models.SessionKindMarket, cfg.StreamURLOverride()),
	)

	ms, err := manager.NewMarketSession(ctx)
	if err != nil {
		appLogger.Critical("failed to create market session: %v", err)
	}
	defer ms.Close()
	appLogger.Info("stream-probe : session %s, dialing %s", ms.ID(), ms.StreamURL())

	payload, err := ms.RecommendedPayload(cfg.Streaming.Market.Symbols)
	if err != nil {
		appLogger.Critical("failed to build payload: %v", err)
	}

	received := 0
	err = ms.Stream(ctx, payload, func(event *models.MStreamEvent) error {
		received++
		if event.Text != "" {
			fmt.Println(event.Text)
		} else {
			fmt.Printf("binary frame, %d bytes\n", event.Size)
		}
		if *count > 0 && received >= *count {
			return errEnough
		}
		return nil
	})
	switch {
	case err == nil:
		appLogger.Info("stream-probe : server closed the stream after %d events", received)
	case errors.Is(err, errEnough), errors.Is(err, context.Canceled):
		appLogger.Info("stream-probe : stopped after %d events", received)
	default:
		appLogger.Error("stream-probe : stream failed after %d events: %v", received, err)
		ms.Close()
		os.Exit(1)
	}
}
