package compiler

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gridforge/ssot2scada/internal/inventory"
	"github.com/gridforge/ssot2scada/internal/opcuamap"
	"github.com/gridforge/ssot2scada/internal/ssot"
	"github.com/gridforge/ssot2scada/internal/tagtree"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const TagTreeFileName = "ignition_tags.json"

type Options struct {
	// Strict aborts the run on validation violations; otherwise they
	// are logged and compilation proceeds against the document as-is.
	Strict bool
	// GeneratedBy identifies the generator in the tag tree meta block.
	GeneratedBy string
}

// SiteError is an isolated per-site address map failure. It never
// aborts other sites or the non-map artifacts.
type SiteError struct {
	SiteID string
	Err    error
}

func (e SiteError) Error() string {
	return fmt.Sprintf("site %s: %s", e.SiteID, e.Err)
}

func (e SiteError) Unwrap() error { return e.Err }

// Result holds everything one compiler run derived from the SSOT
// document. All fields are rebuilt from scratch on every run.
type Result struct {
	Sites      []ssot.Site
	Assets     []ssot.Asset
	Schema     []ssot.TelemetryField
	Violations []string
	TagTree    *tagtree.Document
	Maps       []*opcuamap.Map
	SiteErrors []SiteError
}

// Compile runs the full derivation: validate, derive the schema, build
// the tag tree and resolve one address map per protocol-configured
// site. Address maps are fanned out per site; results are slotted by
// input index so output order never depends on scheduling.
func Compile(doc *ssot.Document, deriver *ssot.SchemaDeriver, opts Options, logger *zap.Logger) (*Result, error) {
	violations := ssot.Validate(doc)
	if len(violations) > 0 {
		if opts.Strict {
			return nil, ssot.ViolationsError(violations)
		}
		for _, v := range violations {
			logger.Warn("validation violation", zap.String("violation", v))
		}
	}

	schema, err := deriver.Derive(doc)
	if err != nil {
		return nil, fmt.Errorf("derive schema: %w", err)
	}

	result := &Result{
		Sites:      doc.Sites,
		Assets:     doc.Assets,
		Schema:     schema,
		Violations: violations,
		TagTree:    tagtree.Build(doc.Assets, schema, opts.GeneratedBy),
	}

	maps := make([]*opcuamap.Map, len(doc.Sites))
	siteErrs := make([]*SiteError, len(doc.Sites))
	var group errgroup.Group
	group.SetLimit(4)
	for i, site := range doc.Sites {
		if site.OpcUa == nil {
			continue
		}
		group.Go(func() error {
			m, err := opcuamap.Build(site, doc.Assets, schema)
			if err != nil {
				siteErrs[i] = &SiteError{SiteID: site.ID, Err: err}
				return nil
			}
			maps[i] = m
			return nil
		})
	}
	// group fns never return errors: per-site failures are isolated
	_ = group.Wait()

	for i := range doc.Sites {
		if maps[i] != nil {
			result.Maps = append(result.Maps, maps[i])
		}
		if siteErrs[i] != nil {
			logger.Warn("address map generation failed",
				zap.String("site_id", siteErrs[i].SiteID), zap.Error(siteErrs[i].Err))
			result.SiteErrors = append(result.SiteErrors, *siteErrs[i])
		}
	}

	return result, nil
}

// Artifacts records where one run's outputs were written.
type Artifacts struct {
	TagTreePath   string
	InventoryPath string
	MapPaths      []string
	SnapshotPath  string
	BundlePath    string
}

// Paths lists every written artifact in bundle order.
func (a *Artifacts) Paths() []string {
	paths := []string{a.TagTreePath, a.InventoryPath}
	paths = append(paths, a.MapPaths...)
	if a.SnapshotPath != "" {
		paths = append(paths, a.SnapshotPath)
	}
	return paths
}

// WriteArtifacts writes the tag tree, the inventory and every address
// map into outputDir, overwriting wholesale.
func (r *Result) WriteArtifacts(outputDir string) (*Artifacts, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	artifacts := &Artifacts{
		TagTreePath:   filepath.Join(outputDir, TagTreeFileName),
		InventoryPath: filepath.Join(outputDir, inventory.FileName),
	}

	treeData, err := r.TagTree.Render()
	if err != nil {
		return nil, fmt.Errorf("render tag tree: %w", err)
	}
	if err := os.WriteFile(artifacts.TagTreePath, treeData, 0o644); err != nil {
		return nil, fmt.Errorf("write tag tree: %w", err)
	}

	invData := inventory.Render(r.Sites, r.Assets)
	if err := os.WriteFile(artifacts.InventoryPath, invData, 0o644); err != nil {
		return nil, fmt.Errorf("write inventory: %w", err)
	}

	for _, m := range r.Maps {
		path := filepath.Join(outputDir, m.FileName())
		if err := os.WriteFile(path, m.Render(), 0o644); err != nil {
			return nil, fmt.Errorf("write opcua map %s: %w", m.Slug, err)
		}
		artifacts.MapPaths = append(artifacts.MapPaths, path)
	}

	return artifacts, nil
}
