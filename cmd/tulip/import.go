package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Ramsey-B/tulip/pkg/importclient"
	"github.com/Ramsey-B/tulip/pkg/importer"
	"github.com/Ramsey-B/tulip/pkg/models"
	"github.com/spf13/cobra"
)

type importOptions struct {
	server    string
	strategy  string
	batchSize int
	encoding  string
	quiet     bool
}

func newImportCmd(a *app) *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import <relaties-particulier|relaties-zakelijk|polissen> <file.csv>",
		Short: "Import an export file into a tulip server",
		Long: "Replace-all imports are parsed locally and sent to the server batch by batch. " +
			"Reconciling imports upload the file so the server can diff it against the stored records.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			entity, err := models.ParseEntityType(args[0])
			if err != nil {
				return err
			}
			return runImport(cmd.Context(), a, opts, entity, args[1], cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&opts.server, "server", "", "Server URL (overrides TULIP_SERVER_URL)")
	cmd.Flags().StringVar(&opts.strategy, "strategy", "", "replace_all or reconcile_and_log (default per IMPORT_STRATEGY_*)")
	cmd.Flags().IntVar(&opts.batchSize, "batch-size", 0, "Records per batch (overrides IMPORT_BATCH_SIZE)")
	cmd.Flags().StringVar(&opts.encoding, "encoding", "", "File encoding (overrides IMPORT_ENCODING)")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Do not print progress")
	return cmd
}

func runImport(ctx context.Context, a *app, opts importOptions, entity models.EntityType, path string, stdout, stderr io.Writer) error {
	cfg := a.cfg
	if opts.server != "" {
		cfg.ClientServerURL = opts.server
	}
	if opts.batchSize > 0 {
		cfg.ImportBatchSize = opts.batchSize
	}
	if opts.encoding != "" {
		cfg.ImportEncoding = opts.encoding
	}

	importerCfg, err := cfg.ImporterConfig()
	if err != nil {
		return err
	}
	strategy := importerCfg.Strategies.For(entity)
	if opts.strategy != "" {
		if strategy, err = models.ParseImportStrategy(opts.strategy); err != nil {
			return err
		}
	}

	client, err := importclient.New(importclient.Config{
		BaseURL:         cfg.ClientServerURL,
		UserID:          cfg.ClientUserID,
		Role:            cfg.ClientUserRole,
		BearerToken:     cfg.ClientBearerToken,
		Timeout:         cfg.ClientTimeout,
		MaxResponseSize: int64(cfg.ClientMaxResponseMiB) << 20,
	}, a.logger)
	if err != nil {
		return err
	}

	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return err
	}
	fileName := filepath.Base(path)

	var res *importer.Result
	if strategy == models.ReconcileAndLog {
		if !opts.quiet {
			fmt.Fprintf(stderr, "Uploaden %s naar %s...\n", fileName, cfg.ClientServerURL)
		}
		res, err = client.Upload(ctx, entity, fileName, file, strategy)
	} else {
		pipeline := importer.NewPipeline(client, importerCfg, a.logger)
		res, err = pipeline.Run(ctx, importer.Request{
			Entity:   entity,
			Actor:    clientActor(cfg.ClientUserID, cfg.ClientUserRole, cfg.ClientBearerToken),
			FileName: fileName,
			File:     file,
			Size:     info.Size(),
			Strategy: strategy,
		}, progressPrinter(stderr, opts.quiet))
	}

	if res != nil {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if eerr := enc.Encode(res); eerr != nil && err == nil {
			err = eerr
		}
	}
	return err
}

// clientActor is the actor the local pipeline authorizes. With a bearer
// token the server takes identity and role from the token.
func clientActor(userID, role, token string) importer.Actor {
	if userID == "" && token != "" {
		return importer.Actor{ID: "token", Role: models.RoleUploader}
	}
	return importer.Actor{ID: userID, Role: models.Role(role)}
}

func progressPrinter(w io.Writer, quiet bool) importer.ProgressFunc {
	if quiet {
		return nil
	}
	var last string
	return func(p importer.Progress) {
		if p.Message == last {
			return
		}
		last = p.Message
		fmt.Fprintf(w, "[%3.0f%%] %s\n", p.Percent, p.Message)
	}
}
