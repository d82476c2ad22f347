package test_utils

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/bookslot/bookslot/internal/config"
	"github.com/bookslot/bookslot/internal/database"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

const (
	dbName     = "bookslot"
	dbUser     = "test_bookslot"
	dbPassword = "test_bookslot"
)

// Postgres is a migrated database running in a container, shared by the tests of one package.
type Postgres struct {
	container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
}

func preparePostgresContainer(ctx context.Context) (*postgres.PostgresContainer, error) {
	projectRoot, err := findProjectRoot()
	if err != nil {
		return nil, fmt.Errorf("failed to find project root: %v", err)
	}

	return postgres.Run(
		ctx, "postgres:18.1-alpine",
		postgres.WithInitScripts(filepath.Join(projectRoot, "dev", "init.sql")),
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPassword),
		postgres.BasicWaitStrategies(),
	)
}

// StartPostgres starts a container and applies all migrations. It returns an error
// instead of exiting so that packages can skip database tests without Docker.
func StartPostgres() (*Postgres, error) {
	ctx := context.Background()

	if err := dockerAvailable(); err != nil {
		return nil, err
	}

	container, err := preparePostgresContainer(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = testcontainers.TerminateContainer(container)
		return nil, err
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		_ = testcontainers.TerminateContainer(container)
		return nil, err
	}
	log.Infof("Postgres container started at %s:%d", host, port.Int())

	cfg := config.Database{
		Host:   host,
		Port:   port.Int(),
		User:   dbUser,
		Pass:   dbPassword,
		Name:   dbName,
		Schema: dbName,
	}
	if err := database.Migrate(cfg); err != nil {
		_ = testcontainers.TerminateContainer(container)
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	pool, err := database.Open(ctx, cfg)
	if err != nil {
		_ = testcontainers.TerminateContainer(container)
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	return &Postgres{container: container, Pool: pool}, nil
}

func (p *Postgres) Close() {
	if p == nil {
		return
	}
	p.Pool.Close()
	if err := testcontainers.TerminateContainer(p.container); err != nil {
		log.Errorf("failed to terminate postgres container: %v", err)
	}
}

// Reset empties every table, keeping the schema.
func (p *Postgres) Reset(t *testing.T) {
	t.Helper()
	_, err := p.Pool.Exec(context.Background(),
		`TRUNCATE google_auth, schedules, slots, appointments, calendars, subscribers RESTART IDENTITY CASCADE`)
	if err != nil {
		t.Fatalf("failed to reset database: %v", err)
	}
}

// Require skips the test when no database could be started.
func Require(t *testing.T, p *Postgres) *pgxpool.Pool {
	t.Helper()
	if p == nil {
		t.Skip("postgres container not available")
	}
	p.Reset(t)
	return p.Pool
}

func dockerAvailable() (err error) {
	if os.Getenv("BOOKSLOT_SKIP_DB_TESTS") != "" {
		return fmt.Errorf("database tests disabled by BOOKSLOT_SKIP_DB_TESTS")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("docker not available: %v", r)
		}
	}()
	provider, err := testcontainers.NewDockerProvider()
	if err != nil {
		return fmt.Errorf("docker not available: %w", err)
	}
	defer provider.Close()
	return provider.Health(context.Background())
}

// findProjectRoot walks up from the working directory to the directory holding go.mod.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if fileExists(filepath.Join(dir, "go.mod")) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("could not find project root")
		}
		dir = parent
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
