package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	uuid "github.com/vgarvardt/pgx-google-uuid/v5"

	"github.com/FACorreiaa/go-pokedex-api/config"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

const (
	pingAttempts   = 5
	pingBackoff    = 200 * time.Millisecond
	defaultTimeout = 10 * time.Second
)

// DatabaseConfig is the resolved connection target plus pool tuning.
type DatabaseConfig struct {
	ConnectionURL  string
	ConnectTimeout time.Duration
	MaxConns       int32
}

// Pinger is the part of a pool WaitForDB needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// WaitForDB pings until the database answers, backing off linearly between
// attempts. It gives up after pingAttempts or when ctx is done.
func WaitForDB(ctx context.Context, pool Pinger, logger *slog.Logger) bool {
	for attempt := 1; attempt <= pingAttempts; attempt++ {
		err := pool.Ping(ctx)
		if err == nil {
			logger.InfoContext(ctx, "Database is reachable", slog.Int("attempt", attempt))
			return true
		}
		if attempt == pingAttempts {
			logger.ErrorContext(ctx, "Database unreachable, giving up", slog.Any("error", err))
			break
		}

		wait := time.Duration(attempt) * pingBackoff
		logger.WarnContext(ctx, "Database ping failed",
			slog.Int("attempt", attempt),
			slog.Duration("retry_in", wait),
			slog.Any("error", err))
		select {
		case <-ctx.Done():
			return false
		case <-time.After(wait):
		}
	}
	return false
}

// RunMigrations brings the schema, including the seeded type catalog, up to
// the latest embedded version.
func RunMigrations(databaseURL string, logger *slog.Logger) error {
	source, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return fmt.Errorf("init migrate: %w", err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			logger.Warn("Closing migrator failed", slog.Any("source_error", srcErr), slog.Any("db_error", dbErr))
		}
	}()

	upErr := m.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}

	version, dirty, err := m.Version()
	switch {
	case err != nil:
		logger.Warn("Could not read schema version", slog.Any("error", err))
	case dirty:
		return fmt.Errorf("schema version %d is dirty", version)
	default:
		logger.Info("Schema up to date",
			slog.Uint64("version", uint64(version)),
			slog.Bool("changed", upErr == nil))
	}
	return nil
}

// ConnectionURL renders a postgresql:// URL for pg. Credentials are escaped.
func ConnectionURL(pg config.PostgresConfig) (string, error) {
	if pg.Host == "" || pg.DB == "" {
		return "", errors.New("postgres host and db are required")
	}
	sslMode := pg.SSLMODE
	if sslMode == "" {
		sslMode = "disable"
	}
	host := pg.Host
	if pg.Port != "" {
		host += ":" + pg.Port
	}

	query := url.Values{}
	query.Set("sslmode", sslMode)
	query.Set("timezone", "utc")
	u := url.URL{
		Scheme:   "postgresql",
		User:     url.UserPassword(pg.Username, pg.Password),
		Host:     host,
		Path:     pg.DB,
		RawQuery: query.Encode(),
	}
	return u.String(), nil
}

func NewDatabaseConfig(cfg *config.Config, logger *slog.Logger) (*DatabaseConfig, error) {
	if cfg == nil {
		return nil, errors.New("missing configuration")
	}
	pg := cfg.Repositories.Postgres
	connURL, err := ConnectionURL(pg)
	if err != nil {
		return nil, err
	}

	timeout := time.Duration(pg.MAXCONWAITINGTIME) * time.Second
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logger.Info("Database target resolved", slog.String("host", pg.Host), slog.String("database", pg.DB))
	return &DatabaseConfig{
		ConnectionURL:  connURL,
		ConnectTimeout: timeout,
		MaxConns:       pg.MaxConns,
	}, nil
}

// Init opens the pool. Every connection gets the google/uuid codec so
// account ids scan straight into uuid.UUID.
func Init(dbCfg *DatabaseConfig, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(dbCfg.ConnectionURL)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}
	poolCfg.ConnConfig.ConnectTimeout = dbCfg.ConnectTimeout
	if dbCfg.MaxConns > 0 {
		poolCfg.MaxConns = dbCfg.MaxConns
	}
	poolCfg.AfterConnect = func(_ context.Context, conn *pgx.Conn) error {
		uuid.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	logger.Info("Database pool ready", slog.Int("max_conns", int(poolCfg.MaxConns)))
	return pool, nil
}
