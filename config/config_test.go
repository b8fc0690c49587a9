package config

import (
	"testing"
	"time"

	"github.com/Ramsey-B/tulip/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, 500, cfg.ImportBatchSize)
	assert.Equal(t, 200, cfg.ImportBytesPerRow)
	assert.Equal(t, "iso-8859-1", cfg.ImportEncoding)
	assert.Equal(t, 15*time.Minute, cfg.ImportLockTTL)
	assert.Equal(t, 2*time.Hour, cfg.SweeperStaleAfter)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.AuthEnabled, "token authentication is on unless turned off")
}

func TestCheckAuth(t *testing.T) {
	cfg := &Config{AuthEnabled: true}
	err := cfg.CheckAuth()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTH_ISSUER_URL and AUTH_CLIENT_ID")

	cfg.AuthIssuerURL = "https://login.example.nl"
	cfg.AuthClientID = "tulip"
	assert.NoError(t, cfg.CheckAuth())

	assert.NoError(t, (&Config{}).CheckAuth(), "header authentication needs no settings")
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("IMPORT_LOCK_TTL", "5m")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_USER_NAME", "tulip")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 5*time.Minute, cfg.ImportLockTTL)
	assert.Contains(t, cfg.DatabaseDSN(), "host=db port=5432 user=tulip")
}

func TestImportStrategies(t *testing.T) {
	cfg := &Config{
		ImportStrategyParticulier: "replace_all",
		ImportStrategyZakelijk:    "reconcile_and_log",
		ImportStrategyPolissen:    "RECONCILE_AND_LOG",
	}
	strategies, err := cfg.ImportStrategies()
	require.NoError(t, err)
	assert.Equal(t, models.ReplaceAll, strategies.For(models.EntityParticulier))
	assert.Equal(t, models.ReconcileAndLog, strategies.For(models.EntityZakelijk))
	assert.Equal(t, models.ReconcileAndLog, strategies.For(models.EntityPolissen))

	cfg.ImportStrategyPolissen = "append"
	_, err = cfg.ImportStrategies()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "IMPORT_STRATEGY_POLISSEN")
}

func TestImporterConfig(t *testing.T) {
	cfg := &Config{ImportBatchSize: 250, ImportBytesPerRow: 180, ImportEncoding: "windows-1252"}
	ic, err := cfg.ImporterConfig()
	require.NoError(t, err)
	assert.Equal(t, 250, ic.BatchSize)
	assert.Equal(t, 180, ic.BytesPerRow)
	assert.Equal(t, "windows-1252", ic.Encoding)
	assert.Equal(t, models.ReconcileAndLog, ic.Strategies.For(models.EntityZakelijk))
}
