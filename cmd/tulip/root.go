package main

import (
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/Ramsey-B/tulip/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app is shared by every command once the root pre-run has loaded it.
type app struct {
	cfg    *config.Config
	logger ectologger.Logger
	sync   func()
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "tulip",
		Short:         "Import and reconcile the legacy insurance exports",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger, sync, err := newLogger(cfg)
			if err != nil {
				return err
			}
			a.cfg, a.logger, a.sync = cfg, logger, sync
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.sync != nil {
				a.sync()
			}
		},
	}

	root.AddCommand(newServeCmd(a), newImportCmd(a), newMigrateCmd(a))
	return root
}

func newLogger(cfg *config.Config) (ectologger.Logger, func(), error) {
	var (
		zl  *zap.Logger
		err error
	)
	if cfg.PrettyLogs {
		zl, err = zap.NewDevelopment()
	} else {
		zcfg := zap.NewProductionConfig()
		level, perr := zap.ParseAtomicLevel(cfg.LogLevel)
		if perr != nil {
			return nil, nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, perr)
		}
		zcfg.Level = level
		zl, err = zcfg.Build()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}

	zl = zl.With(zap.String("app", cfg.AppName), zap.String("version", cfg.Version))
	return zapadapter.NewZapEctoLogger(zl, nil), func() { _ = zl.Sync() }, nil
}
