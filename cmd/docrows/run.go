package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docrows/internal/common"
	"github.com/joseph-ayodele/docrows/internal/entity"
	"github.com/joseph-ayodele/docrows/internal/eventlog"
	"github.com/joseph-ayodele/docrows/internal/ingest"
	"github.com/joseph-ayodele/docrows/internal/mapping"
	"github.com/joseph-ayodele/docrows/internal/metrics"
	"github.com/joseph-ayodele/docrows/internal/projector"
	"github.com/joseph-ayodele/docrows/internal/rowbuilder"
	"github.com/joseph-ayodele/docrows/internal/schemasource"
	"github.com/joseph-ayodele/docrows/internal/workflow"
)

var runCmd = &cobra.Command{
	Use:   "run [document or directory]...",
	Short: "Extract rows from documents into a copy of the schema workbook",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runWorkflow,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("schema", "s", "", "workbook whose header row is the target schema (required)")
	runCmd.Flags().String("sheet", "", "sheet to read the schema from (default first sheet)")
	runCmd.Flags().StringSliceP("columns", "c", nil, "columns to keep, in source order (default all)")
	runCmd.Flags().StringP("out", "o", "", "output workbook path (default <schema>_processed.xlsx next to the schema)")
	runCmd.Flags().String("rules", "", "YAML rule table overriding the built-in mapping rules")
	runCmd.Flags().Bool("reject-empty", false, "refuse to commit rows without any extracted value")
	runCmd.Flags().Bool("include-hidden", false, "include hidden files when scanning directories")
	_ = runCmd.MarkFlagRequired("schema")
}

func runWorkflow(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	schemaPath, _ := cmd.Flags().GetString("schema")
	sheet, _ := cmd.Flags().GetString("sheet")
	columns, _ := cmd.Flags().GetStringSlice("columns")
	out, _ := cmd.Flags().GetString("out")
	rulesPath, _ := cmd.Flags().GetString("rules")
	if rulesPath == "" {
		rulesPath = cfg.Mapping.RulesPath
	}
	rejectEmpty := cfg.Workflow.RejectEmptyRows
	if cmd.Flags().Changed("reject-empty") {
		rejectEmpty, _ = cmd.Flags().GetBool("reject-empty")
	}
	includeHidden, _ := cmd.Flags().GetBool("include-hidden")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rules, err := loadRules(rulesPath)
	if err != nil {
		return err
	}

	rec := metrics.NewRecorder()
	events := eventlog.New(eventlog.WithLogger(logger), eventlog.WithObserver(rec))
	if cfg.Metrics.Addr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr, metrics.NewHandler(rec, events), logger); err != nil {
				logger.Error("metrics.server.failed", "addr", cfg.Metrics.Addr, "error", err)
			}
		}()
	}

	service, err := newExtractionService(cfg, rec, logger)
	if err != nil {
		return err
	}
	ctrl := workflow.NewController(service,
		workflow.WithLogger(logger),
		workflow.WithEventLog(events),
		workflow.WithExtractionTimeout(cfg.Extraction.Timeout),
		workflow.WithRejectEmptyRows(rejectEmpty),
		workflow.WithExtractionObserver(rec),
		workflow.WithBuilder(rowbuilder.NewBuilder(mapping.NewMapper(rules), rowbuilder.WithLogger(logger))),
		workflow.WithProjector(projector.New(nil, logger)),
	)
	session := workflow.NewSession(ctrl)
	logger.Info("workflow.session.start", "session_id", session.ID())

	src, err := schemasource.NewReader(logger).ReadFile(ctx, schemaPath, sheet)
	if err != nil {
		return err
	}
	if err := session.LoadSchema(src, columns); err != nil {
		return err
	}

	docs, err := collectDocuments(ctx, args, !includeHidden)
	if err != nil {
		return err
	}
	if err := session.LoadDocuments(docs); err != nil {
		return err
	}
	if err := session.Extract(ctx); err != nil {
		return err
	}
	if err := session.Commit(); err != nil {
		return err
	}

	art, err := session.Export(ctx)
	if err != nil {
		return err
	}
	if out == "" {
		out = filepath.Join(filepath.Dir(schemaPath), art.Filename)
	}
	if err := os.WriteFile(out, art.Bytes, 0o644); err != nil {
		return common.WrapError(err, "write output")
	}

	snap := session.Snapshot()
	found, missing := 0, 0
	for _, c := range snap.Candidates {
		found += c.Found
		missing += c.Missing
	}
	logger.Info("workflow.session.done",
		"session_id", session.ID(),
		"documents", len(snap.Documents),
		"rows", snap.Dataset.Len(),
		"output", out)

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Processed %d document(s)\n", len(snap.Documents))
	fmt.Fprintf(w, "- Cells filled: %d\n", found)
	fmt.Fprintf(w, "- Cells not found: %d\n", missing)
	fmt.Fprintf(w, "- Rows in sheet: %d\n", snap.Dataset.Len())
	fmt.Fprintf(w, "- Output: %s\n", out)
	return nil
}

// collectDocuments reads every path argument; directories are walked, duplicates by
// content are dropped.
func collectDocuments(ctx context.Context, paths []string, skipHidden bool) ([]entity.Document, error) {
	ing := ingest.NewFSIngestor(ingest.WithLogger(logger))
	seen := map[string]bool{}
	var docs []entity.Document
	add := func(d entity.Document) {
		if seen[d.HashHex] {
			logger.Warn("ingest.document.duplicate", "name", d.Name)
			return
		}
		seen[d.HashHex] = true
		docs = append(docs, d)
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, common.UploadError("%v", err)
		}
		if !info.IsDir() {
			d, err := ing.FromFile(ctx, p)
			if err != nil {
				return nil, err
			}
			add(d)
			continue
		}
		results, stats, err := ing.IngestDirectory(ctx, p, skipHidden)
		if err != nil {
			return nil, err
		}
		for _, r := range results {
			if r.Err != "" {
				logger.Warn("ingest.file.skipped", "path", r.Path, "reason", r.Err)
				continue
			}
			add(r.Document)
		}
		logger.Info("ingest.directory.done", "dir", p,
			"scanned", stats.Scanned,
			"matched", stats.Matched,
			"succeeded", stats.Succeeded,
			"duplicate", stats.Duplicate,
			"failed", stats.Failed)
	}
	if len(docs) == 0 {
		return nil, common.UploadError("no supported documents in %v", paths)
	}
	return docs, nil
}
