package testdb

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/sethvargo/go-retry"
)

const (
	// https://hub.docker.com/_/postgres
	POSTGRES_IMAGE   = "postgres"
	POSTGRES_VERSION = "16-alpine"

	POSTGRES_DB       = "testdb"
	POSTGRES_USER     = "postgres"
	POSTGRES_PASSWORD = "password1"
)

func newPostgres(opts ...OptionsFunc) (*sql.DB, func(), error) {
	option := &options{timeout: 30 * time.Second}
	for _, f := range opts {
		f(option)
	}
	// Uses a sensible default on windows (tcp/http) and linux/osx (socket).
	pool, err := dockertest.NewPool("")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to docker: %w", err)
	}
	runOptions := &dockertest.RunOptions{
		Repository: POSTGRES_IMAGE,
		Tag:        POSTGRES_VERSION,
		Env: []string{
			"POSTGRES_USER=" + POSTGRES_USER,
			"POSTGRES_PASSWORD=" + POSTGRES_PASSWORD,
			"POSTGRES_DB=" + POSTGRES_DB,
		},
		Labels:       map[string]string{"dbmigration_test": "1"},
		PortBindings: make(map[docker.Port][]docker.PortBinding),
	}
	if option.bindPort > 0 {
		runOptions.PortBindings[docker.Port("5432/tcp")] = []docker.PortBinding{
			{HostPort: strconv.Itoa(option.bindPort)},
		}
	}
	container, err := pool.RunWithOptions(
		runOptions,
		func(config *docker.HostConfig) {
			// Set AutoRemove to true so that stopped container goes away by itself.
			config.AutoRemove = true
			config.RestartPolicy = docker.RestartPolicy{Name: "no"}
		},
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create docker container: %w", err)
	}
	cleanup := func() {
		if option.debug {
			// User must manually delete the Docker container.
			return
		}
		if err := pool.Purge(container); err != nil {
			log.Printf("failed to purge resource: %v", err)
		}
	}
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		"localhost",
		container.GetPort("5432/tcp"), // Fetch port dynamically assigned to container
		POSTGRES_USER,
		POSTGRES_PASSWORD,
		POSTGRES_DB,
	)
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, cleanup, fmt.Errorf("failed to open postgres: %w", err)
	}
	// The server in the container might not accept connections yet.
	ctx, cancel := context.WithTimeout(context.Background(), option.timeout)
	defer cancel()
	backoff := retry.WithMaxDuration(option.timeout, retry.NewConstant(500*time.Millisecond))
	if err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, cleanup, fmt.Errorf("could not connect to docker database: %w", err)
	}
	return db, cleanup, nil
}
