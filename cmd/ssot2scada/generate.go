package main

import (
	"flag"
	"path/filepath"
	"time"

	"github.com/gridforge/ssot2scada/internal/compiler"
	"github.com/gridforge/ssot2scada/internal/config"
	"github.com/gridforge/ssot2scada/internal/snapshot"
	"github.com/gridforge/ssot2scada/internal/ssot"

	"github.com/carlmjohnson/versioninfo"
	"go.uber.org/zap"
)

func runGenerate(cfg *config.Config, args []string, logger *zap.Logger) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	ssotPath := fs.String("ssot", cfg.Generate.SSOTPath, "SSOT document path (.json or .yaml)")
	outputDir := fs.String("output-dir", cfg.Generate.OutputDir, "artifact output directory")
	strict := fs.Bool("strict", cfg.Generate.Strict, "abort on validation violations")
	warn := fs.Bool("warn", false, "log validation violations and continue")
	skipSnapshot := fs.Bool("skip-snapshot", cfg.Generate.SkipSnapshot, "skip the relational snapshot")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// --warn relaxes the default unless --strict was given explicitly
	strictSet := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "strict" {
			strictSet = true
		}
	})
	if *warn && !strictSet {
		*strict = false
	}

	doc, err := ssot.Load(*ssotPath)
	if err != nil {
		return err
	}
	logger.Info("SSOT document loaded", zap.String("path", *ssotPath),
		zap.Int("sites", len(doc.Sites)), zap.Int("assets", len(doc.Assets)))

	opts := compiler.Options{
		Strict:      *strict,
		GeneratedBy: "ssot2scada " + versioninfo.Short(),
	}
	result, err := compiler.Compile(doc, ssot.NewSchemaDeriver(), opts, logger)
	if err != nil {
		return err
	}

	artifacts, err := result.WriteArtifacts(*outputDir)
	if err != nil {
		return err
	}
	logger.Info("artifacts written", zap.String("dir", *outputDir),
		zap.Int("maps", len(artifacts.MapPaths)), zap.Int("site_errors", len(result.SiteErrors)))

	if !*skipSnapshot {
		if snapshot.Available() {
			rows, err := result.TagTree.Flatten()
			if err != nil {
				return err
			}
			snapPath := filepath.Join(*outputDir, snapshot.FileName)
			snap := &snapshot.Snapshot{
				Sites:   result.Sites,
				Assets:  result.Assets,
				Maps:    result.Maps,
				TagRows: rows,
			}
			if err := snapshot.Write(snapPath, snap); err != nil {
				return err
			}
			artifacts.SnapshotPath = snapPath
			logger.Info("snapshot written", zap.String("path", snapPath))
		} else {
			logger.Warn("snapshot skipped", zap.Error(snapshot.ErrUnavailable))
		}
	}

	bundlePath, err := compiler.Bundle(*outputDir, artifacts.Paths(), time.Now())
	if err != nil {
		return err
	}
	artifacts.BundlePath = bundlePath
	logger.Info("bundle written", zap.String("path", bundlePath))
	return nil
}
