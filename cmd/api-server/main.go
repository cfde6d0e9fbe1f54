package main

import (
    "context"
    "flag"
    "fmt"
    "net/http"
    "os"
    "os/signal"
    "sync"
    "syscall"

    "github.com/nats-io/nats.go"
    "github.com/rs/zerolog"
    "github.com/rs/zerolog/log"

    "github.com/vclink/vclink-bridge/internal/api"
    "github.com/vclink/vclink-bridge/internal/config"
    "github.com/vclink/vclink-bridge/internal/server"
    "github.com/vclink/vclink-bridge/internal/storage"
)

func main() {
    // Command line flags
    var configFile string
    flag.StringVar(&configFile, "config", "config/api-server.yml", "Configuration file path")
    flag.Parse()

    // Setup logging
    log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
    zerolog.SetGlobalLevel(zerolog.InfoLevel)

    // Load configuration
    cfg, err := config.Load(configFile)
    if err != nil {
        log.Fatal().Err(err).Msg("Failed to load configuration")
    }

    // Set log level
    level, err := zerolog.ParseLevel(cfg.Log.Level)
    if err != nil {
        level = zerolog.InfoLevel
    }
    zerolog.SetGlobalLevel(level)

    // Connect to database
    store, err := storage.NewPostgresStore(cfg.Database.DSN)
    if err != nil {
        log.Fatal().Err(err).Msg("Failed to connect to database")
    }
    defer store.Close()

    store.ConfigurePool(cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime)

    log.Info().Msg("Connected to database")

    // Create context
    ctx, cancel := context.WithCancel(context.Background())
    defer cancel()

    // Ensure schema
    if err := store.InitSchema(ctx); err != nil {
        log.Fatal().Err(err).Msg("Failed to initialize database schema")
    }

    // Seed the initial admin account when configured
    adminEmail := os.Getenv("VCLINK_ADMIN_EMAIL")
    adminPassword := os.Getenv("VCLINK_ADMIN_PASSWORD")
    if adminEmail != "" && adminPassword != "" {
        if err := store.SeedAdmin(ctx, adminEmail, adminPassword); err != nil {
            log.Fatal().Err(err).Msg("Failed to seed admin account")
        }
    }

    // Connect to NATS. The API publishes command requests and the
    // subscriber ingests bridge output, so the message plane is required.
    log.Info().Str("url", cfg.NATS.URL).Msg("Connecting to NATS...")

    nc, err := nats.Connect(cfg.NATS.URL,
        nats.Name("vclink-api-server"),
        nats.UserInfo(cfg.NATS.Username, cfg.NATS.Password),
        nats.ReconnectWait(cfg.NATS.ReconnectInterval),
        nats.MaxReconnects(cfg.NATS.MaxReconnects),
        nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
            log.Warn().Err(err).Msg("Disconnected from NATS")
        }),
        nats.ReconnectHandler(func(nc *nats.Conn) {
            log.Info().Msg("Reconnected to NATS")
        }),
        nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
            log.Error().
                Err(err).
                Str("subject", sub.Subject).
                Msg("NATS error")
        }),
    )
    if err != nil {
        log.Fatal().Err(err).Msg("Failed to connect to NATS")
    }
    defer nc.Close()

    log.Info().Msg("Connected to NATS")

    // Start REST API server
    apiServer := api.NewRESTServer(cfg, store, nc)

    // WaitGroup for services
    var wg sync.WaitGroup

    // Start API server
    wg.Add(1)
    go func() {
        defer wg.Done()
        addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
        if err := apiServer.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
            log.Fatal().Err(err).Msg("REST API server failed")
        }
    }()

    // Start NATS subscriber
    subscriber := server.NewNATSSubscriber(nc, store)

    wg.Add(1)
    go func() {
        defer wg.Done()
        if err := subscriber.Start(ctx); err != nil && err != context.Canceled {
            log.Error().Err(err).Msg("NATS subscriber stopped")
        }
    }()

    // Wait for signal
    sigChan := make(chan os.Signal, 1)
    signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

    sig := <-sigChan
    log.Info().Str("signal", sig.String()).Msg("Received signal, shutting down")

    // Cancel context
    cancel()

    // Shutdown API server
    if err := apiServer.Shutdown(context.Background()); err != nil {
        log.Error().Err(err).Msg("Failed to shutdown API server gracefully")
    }

    // Wait for all services
    wg.Wait()

    log.Info().Msg("API server stopped")
}
