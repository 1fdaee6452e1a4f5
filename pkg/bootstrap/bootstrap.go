package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"

	"github.com/abgdnv/fleximart/pkg/config"
	"github.com/abgdnv/fleximart/pkg/logger"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mongodb"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
)

// NewLogger creates a JSON slog.Logger that enriches records with request and trace ids.
func NewLogger(level string) *slog.Logger {
	logLevel := logger.ParseLevel(level)
	loggerOpts := &slog.HandlerOptions{
		AddSource: logLevel == slog.LevelDebug,
		Level:     logLevel,
	}
	logHandler := logger.NewContextHandler(slog.NewJSONHandler(os.Stdout, loggerOpts))
	return slog.New(logHandler)
}

// NewMongoClient connects to MongoDB and pings the primary so the service fails early
// when the store is unreachable. Driver-level retries are disabled: a failed
// operation is reported to the caller once.
func NewMongoClient(ctx context.Context, cfg config.DatabaseConfig, tracing bool) (*mongo.Client, error) {
	connectCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetRetryReads(false).
		SetRetryWrites(false)
	if tracing {
		opts.SetMonitor(otelmongo.NewMonitor())
	}

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create mongo client: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	return client, nil
}

// RunMigrations applies all pending golang-migrate migrations found in sourceDir
// against database dbName. An up-to-date database is not an error.
// The service never changes the schema itself; this provisions test databases.
func RunMigrations(sourceDir, uri, dbName string) error {
	dsn, err := MigrationDSN(uri, dbName)
	if err != nil {
		return err
	}
	m, err := migrate.New("file://"+sourceDir, dsn)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// MigrationDSN returns uri with its path replaced by dbName, which is how the
// golang-migrate mongodb driver selects the target database.
func MigrationDSN(uri, dbName string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("invalid mongo URI: %w", err)
	}
	u.Path = "/" + dbName
	return u.String(), nil
}
