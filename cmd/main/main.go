package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tradier-streamer/src/config"
	"tradier-streamer/src/grpc_control"
	"tradier-streamer/src/interfaces"
	"tradier-streamer/src/logger"
	"tradier-streamer/src/publishers"
	"tradier-streamer/src/serializers"
	"tradier-streamer/src/server"
	"tradier-streamer/src/session"
	"tradier-streamer/src/storage"
	"tradier-streamer/src/streamer"
	"tradier-streamer/src/transports"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "path to config file (environment only when empty)")
	envPath := flag.String("env", ".env", "path to dotenv file")
	flag.Parse()

	if err := config.LoadEnvFile(*envPath); err != nil {
		fmt.Printf("Error loading env file: %v\n", err)
		os.Exit(1)
	}

	// Load config from YAML file or environment
	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.NewConfig(*configPath)
	} else {
		cfg, err = config.NewConfigFromEnv()
	}
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	appLogger := logger.NewLogger(cfg.MConfig, cfg.Name)
	for _, warning := range cfg.Warnings {
		appLogger.Warning("%s : %s", cfg.Name, warning)
	}
	appLogger.Info("%s : loaded config %s", cfg.Name, cfg)

	// Session history store
	store, err := storage.NewSessionStore(&cfg.Storage, appLogger)
	if err != nil {
		appLogger.Critical("failed to create session store: %v", err)
	}
	if store != nil {
		if err := store.Initialize(); err != nil {
			appLogger.Critical("failed to initialize session store: %v", err)
		}
		defer store.Close()
	}

	// Event publisher
	serializer, err := serializers.NewSerializer(cfg.Publisher.Encoding)
	if err != nil {
		appLogger.Critical("failed to create serializer: %v", err)
	}
	publisher, err := publishers.NewPublisher(&cfg.Publisher, appLogger, serializer)
	if err != nil {
		appLogger.Critical("failed to create publisher: %v", err)
	}

	// Session manager
	opts := []session.ManagerOption{
		session.WithHTTPClient(&http.Client{Timeout: cfg.RestTimeout()}),
		session.WithDialer(transports.NewWebSocketDialer(cfg.HandshakeTimeout(), appLogger, cfg.Name)),
		session.WithTTL(cfg.Streaming.SessionTTL),
		session.WithStreamURL(cfg.Streaming.Kind, cfg.StreamURLOverride()),
	}
	if store != nil {
		opts = append(opts, session.WithStore(store))
	}
	manager := session.NewManager(session.NewGuard(), cfg, appLogger, cfg.Name, opts...)

	// gRPC health service
	var listeners []interfaces.ISessionStateListener
	var controlService *grpc_control.GRPCService
	if cfg.GRPC_Port > 0 {
		controlService, err = grpc_control.NewGRPCService(cfg.MConfig, appLogger)
		if err != nil {
			appLogger.Critical("failed to create control service: %v", err)
		}
		if err := controlService.Start(); err != nil {
			appLogger.Critical("control server error: %v", err)
		}
		controlService.SetDaemonServing(true)
		listeners = append(listeners, controlService)
	}

	// Start streamer
	streamerService := streamer.NewStreamer(cfg, appLogger, manager, publisher, listeners...)
	if err := streamerService.Start(); err != nil {
		appLogger.Critical("failed to start streamer: %v", err)
	}

	// Start status API
	var statusServer *server.StatusServer
	if cfg.Port > 0 {
		statusServer = server.NewStatusServer(cfg.MConfig, appLogger, streamerService, store)
		go func() {
			if err := statusServer.Start(); err != nil {
				appLogger.Error("status server error: %v", err)
			}
		}()
	}

	appLogger.Info("tradier streamer running. status API: %s:%d, gRPC: %s:%d",
		cfg.Host, cfg.Port, cfg.GRPC_Host, cfg.GRPC_Port)
	appLogger.Info("Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	appLogger.Info("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := streamerService.Stop(); err != nil {
		appLogger.Error("failed to stop streamer: %v", err)
	}
	if statusServer != nil {
		if err := statusServer.Stop(ctx); err != nil {
			appLogger.Error("failed to stop status server: %v", err)
		}
	}
	if controlService != nil {
		controlService.SetDaemonServing(false)
		if err := controlService.Stop(ctx); err != nil {
			appLogger.Error("failed to stop control service: %v", err)
		}
	}
}
