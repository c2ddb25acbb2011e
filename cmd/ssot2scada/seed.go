package main

import (
	"flag"

	"github.com/gridforge/ssot2scada/internal/config"
	"github.com/gridforge/ssot2scada/internal/seed"

	"go.uber.org/zap"
)

func runSeed(cfg *config.Config, args []string, logger *zap.Logger) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	count := fs.Int("count", int(cfg.Seed.AssetCount), "number of assets to generate")
	out := fs.String("out", cfg.Seed.OutputPath, "output document path (.json or .yaml)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	doc := seed.Fleet(*count)
	if err := seed.Write(doc, *out); err != nil {
		return err
	}
	logger.Info("seed document written", zap.String("path", *out),
		zap.Int("sites", len(doc.Sites)), zap.Int("assets", len(doc.Assets)))
	return nil
}
