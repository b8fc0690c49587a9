package testsupport

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/tulip/pkg/database"
)

// Logger discards everything.
func Logger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(ectologger.EctoLogMessage) {})
}

// MigrationsDir is the absolute path of db/pg in this module.
func MigrationsDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "db", "pg")
}

// StartDatabase starts Postgres, applies every migration and returns a pool
// closed when t ends.
func StartDatabase(t *testing.T) database.DB {
	t.Helper()
	pg := StartPostgres(t)
	logger := Logger()

	db, err := database.Connect(context.Background(), pg.DSN(), database.PoolConfig{MaxOpenConns: 5}, logger)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	migrations := database.NewMigrationService(logger, &database.MigrationConfig{MigrationFolderPath: MigrationsDir()})
	if err := migrations.MigratePostgres(db.SQL(), pg.Database); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
