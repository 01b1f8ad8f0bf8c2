package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	auth "github.com/anusha24-git/UserService"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		log.Fatal(err)
	}
}

func run(configPath string) error {
	cfg, err := auth.LoadConfig(configPath)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer sqldb.Close()

	db := bun.NewDB(sqldb, sqlitedialect.New())

	if err := auth.BootstrapSchema(ctx, db); err != nil {
		return err
	}

	repo := auth.NewRepositoryManager(db)
	repo.MustValidate()

	sessions := auth.NewSessionManager(repo, cfg).
		WithWelcomeTopic(cfg.Kafka.WelcomeTopic).
		WithWelcomeSender(cfg.Kafka.WelcomeFrom)

	if len(cfg.Kafka.Brokers) > 0 {
		publisher := auth.NewKafkaPublisher(cfg.Kafka.Brokers...)
		defer publisher.Close()
		sessions.WithPublisher(publisher)
	}

	// Expired ledger entries are dead weight once the codec rejects the
	// token on its own; sweep them in the background.
	repo.RevokedTokens().StartPruner(ctx, cfg.GetPruneInterval())

	app := fiber.New(fiber.Config{
		AppName:               "user-service",
		DisableStartupMessage: false,
	})

	auth.RegisterAPIRoutes(app, auth.WithSessionManager(sessions))

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(cfg.Server.Address)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Println("shutting down")
		return app.Shutdown()
	}
}
