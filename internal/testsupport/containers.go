// Package testsupport starts throwaway infrastructure for integration tests.
// Tests using it are skipped under -short or when no Docker daemon answers.
package testsupport

import (
	"context"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

type Postgres struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

func (p Postgres) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable", p.User, p.Password, p.Host, p.Port, p.Database)
}

type Redis struct {
	Host string
	Port int
}

// StartPostgres runs postgres:15-alpine for the duration of t.
func StartPostgres(t *testing.T) Postgres {
	t.Helper()
	pg := Postgres{User: "tulip", Password: "tulip", Database: "tulip"}

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     pg.User,
			"POSTGRES_PASSWORD": pg.Password,
			"POSTGRES_DB":       pg.Database,
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	pg.Host, pg.Port = start(t, req, "5432")
	return pg
}

// StartRedis runs redis:7-alpine for the duration of t.
func StartRedis(t *testing.T) Redis {
	t.Helper()
	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor: wait.ForLog("Ready to accept connections").
			WithStartupTimeout(30 * time.Second),
	}

	host, port := start(t, req, "6379")
	return Redis{Host: host, Port: port}
}

func start(t *testing.T, req testcontainers.ContainerRequest, port string) (string, int) {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in short mode")
	}

	ctx := context.Background()
	container, err := run(ctx, req)
	if err != nil {
		t.Skipf("cannot start %s: %v", req.Image, err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate %s: %v", req.Image, err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	mapped, err := container.MappedPort(ctx, nat.Port(port))
	if err != nil {
		t.Fatalf("container port: %v", err)
	}
	n, err := strconv.Atoi(mapped.Port())
	if err != nil {
		t.Fatalf("container port %q: %v", mapped.Port(), err)
	}
	return host, n
}

// run starts the container. Docker host discovery panics when no daemon is
// configured, which is reported as an error here.
func run(ctx context.Context, req testcontainers.ContainerRequest) (c testcontainers.Container, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("docker unavailable: %v", r)
		}
	}()
	return testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
}
