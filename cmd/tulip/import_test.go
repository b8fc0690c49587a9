package main

import (
	"bytes"
	"testing"

	"github.com/Ramsey-B/tulip/config"
	"github.com/Ramsey-B/tulip/pkg/importer"
	"github.com/Ramsey-B/tulip/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientActor(t *testing.T) {
	assert.Equal(t, importer.Actor{ID: "u-1", Role: models.RoleAdmin}, clientActor("u-1", "admin", ""))
	assert.Equal(t, importer.Actor{ID: "token", Role: models.RoleUploader}, clientActor("", "user", "tok"))
	assert.Equal(t, importer.Actor{Role: models.RoleUploader}, clientActor("", "uploader", ""))
}

func TestProgressPrinter(t *testing.T) {
	var out bytes.Buffer
	emit := progressPrinter(&out, false)

	emit(importer.Progress{Phase: importer.PhaseUploading, Percent: 35, Message: "Uploaden batch 1/2..."})
	emit(importer.Progress{Phase: importer.PhaseUploading, Percent: 62, Message: "Uploaden batch 1/2..."})
	emit(importer.Progress{Phase: importer.PhaseUploading, Percent: 62, Message: "Uploaden batch 2/2..."})
	emit(importer.Progress{Phase: importer.PhaseDone, Percent: 100, Message: "Import voltooid!"})

	assert.Equal(t, "[ 35%] Uploaden batch 1/2...\n[ 62%] Uploaden batch 2/2...\n[100%] Import voltooid!\n", out.String())
	assert.Nil(t, progressPrinter(&out, true))
}

func TestNewLogger(t *testing.T) {
	_, _, err := newLogger(&config.Config{LogLevel: "loud"})
	require.Error(t, err)

	logger, sync, err := newLogger(&config.Config{LogLevel: "debug", AppName: "tulip"})
	require.NoError(t, err)
	assert.NotNil(t, logger)
	sync()
}
