package main

import (
	"flag"
	"os"
	"path/filepath"

	"github.com/gridforge/ssot2scada/internal/config"
	"github.com/gridforge/ssot2scada/internal/snapshot"

	"go.uber.org/zap"
)

func runReport(cfg *config.Config, args []string, logger *zap.Logger) error {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	dbPath := fs.String("db", filepath.Join(cfg.Generate.OutputDir, snapshot.FileName), "snapshot database path")
	outPath := fs.String("out", filepath.Join(cfg.Generate.OutputDir, snapshot.ReportFileName), "report output path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	data, err := snapshot.RenderReport(*dbPath)
	if err != nil {
		return err
	}
	if err := os.WriteFile(*outPath, data, 0o644); err != nil {
		return err
	}
	logger.Info("report written", zap.String("path", *outPath))
	return nil
}
