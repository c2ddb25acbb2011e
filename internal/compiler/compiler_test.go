package compiler

import (
	"archive/tar"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gridforge/ssot2scada/internal/inventory"
	"github.com/gridforge/ssot2scada/internal/ssot"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testLogger = zap.Must(zap.NewDevelopment())

func strPtr(s string) *string { return &s }
func i64Ptr(i int64) *int64   { return &i }
func boolPtr(b bool) *bool    { return &b }

func opcuaConfig() *ssot.OpcUaConfig {
	return &ssot.OpcUaConfig{
		Endpoint:                strPtr("opc.tcp://localhost:62541"),
		TagRoot:                 "Assets",
		DefaultSetpointProvider: strPtr("default"),
		SetpointProvider:        strPtr("default"),
		TelemetryProvider:       strPtr("default"),
		TelemetryIntervalS:      i64Ptr(4),
		TelemetryWriteSim:       boolPtr(true),
	}
}

func fleetDocument() *ssot.Document {
	return &ssot.Document{
		Sites: []ssot.Site{
			{ID: "s1", Name: "Jersey", Location: "Region-A", OpcUa: opcuaConfig()},
			{ID: "s2", Name: "Site-2", Location: "Region-B"},
		},
		Assets: []ssot.Asset{
			{ID: "b", Name: "BESS-2", SiteID: "s1", CapacityMwhr: 90, MaxMw: 45, MinMw: -45, Efficiency: 0.91, RampRateMwPerMin: 1000},
			{ID: "a", Name: "BESS-1", SiteID: "s1", CapacityMwhr: 120, MaxMw: 60, MinMw: -60, Efficiency: 0.92, RampRateMwPerMin: 1000},
			{ID: "c", Name: "BESS-3", SiteID: "s2", CapacityMwhr: 80, MaxMw: 40, MinMw: -40, Efficiency: 0.9, RampRateMwPerMin: 1000},
		},
	}
}

func compile(t *testing.T, doc *ssot.Document, strict bool) *Result {
	t.Helper()
	result, err := Compile(doc, ssot.NewSchemaDeriver(), Options{Strict: strict, GeneratedBy: "test"}, testLogger)
	require.NoError(t, err)
	return result
}

func TestCompileValidDocument(t *testing.T) {
	result := compile(t, fleetDocument(), true)

	assert.Empty(t, result.Violations)
	assert.Empty(t, result.SiteErrors)
	assert.Len(t, result.Schema, 18)
	require.Len(t, result.Maps, 1)
	assert.Equal(t, "s1", result.Maps[0].SiteID)
	assert.Equal(t, "a", result.Maps[0].DefaultAsset().ID)
}

func TestCompileStrictAbortsOnViolations(t *testing.T) {
	doc := fleetDocument()
	doc.Assets[2].SiteID = "ghost"

	_, err := Compile(doc, ssot.NewSchemaDeriver(), Options{Strict: true}, testLogger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
	assert.Contains(t, err.Error(), "asset c references unknown site_id ghost")
}

// A site with broken protocol config fails in isolation: the tag tree
// and the other artifacts are still produced.
func TestCompileWarnModeIsolatesSiteFailure(t *testing.T) {
	doc := fleetDocument()
	doc.Sites[0].OpcUa.TelemetryProvider = nil
	doc.Sites[1].OpcUa = opcuaConfig()

	result := compile(t, doc, false)

	require.Len(t, result.Violations, 1)
	require.Len(t, result.SiteErrors, 1)
	assert.Equal(t, "s1", result.SiteErrors[0].SiteID)
	assert.Contains(t, result.SiteErrors[0].Error(), "telemetry_provider")

	require.Len(t, result.Maps, 1)
	assert.Equal(t, "s2", result.Maps[0].SiteID)

	// tag tree still covers every asset, including the failed site's
	rows, err := result.TagTree.Flatten()
	require.NoError(t, err)
	paths := make(map[string]bool, len(rows))
	for _, row := range rows {
		paths[row.Path] = true
	}
	assert.True(t, paths["Assets/BESS-1/telemetry/soc_pct"])
	assert.True(t, paths["Assets/BESS-3/telemetry/soc_pct"])
}

func TestCompileSiteWithoutAssetsFailsInIsolation(t *testing.T) {
	doc := fleetDocument()
	doc.Sites[1].OpcUa = opcuaConfig()
	doc.Assets = doc.Assets[:2] // drop the only s2 asset

	result := compile(t, doc, true)

	require.Len(t, result.SiteErrors, 1)
	assert.Equal(t, "s2", result.SiteErrors[0].SiteID)
	require.Len(t, result.Maps, 1)
	assert.Equal(t, "s1", result.Maps[0].SiteID)
}

func TestCompileSkipsSitesWithoutProtocolConfig(t *testing.T) {
	doc := fleetDocument()
	doc.Sites[0].OpcUa = nil

	result := compile(t, doc, true)
	assert.Empty(t, result.Maps)
	assert.Empty(t, result.SiteErrors)
}

// Content must not depend on document order, only output order may.
func TestCompileMapContentOrderIndependent(t *testing.T) {
	doc := fleetDocument()
	first := compile(t, doc, true)

	doc2 := fleetDocument()
	doc2.Assets[0], doc2.Assets[1] = doc2.Assets[1], doc2.Assets[0]
	second := compile(t, doc2, true)

	require.Len(t, first.Maps, 1)
	require.Len(t, second.Maps, 1)
	assert.Equal(t, first.Maps[0].Render(), second.Maps[0].Render())
}

func TestWriteArtifactsAndBundle(t *testing.T) {
	dir := t.TempDir()
	result := compile(t, fleetDocument(), true)

	artifacts, err := result.WriteArtifacts(dir)
	require.NoError(t, err)
	assert.FileExists(t, artifacts.TagTreePath)
	assert.FileExists(t, artifacts.InventoryPath)
	require.Len(t, artifacts.MapPaths, 1)
	assert.Equal(t, filepath.Join(dir, "opcua_map_jersey.yaml"), artifacts.MapPaths[0])

	// round-trip referential integrity of the written inventory
	data, err := os.ReadFile(artifacts.InventoryPath)
	require.NoError(t, err)
	inv, err := inventory.Parse(data)
	require.NoError(t, err)
	siteIDs := make(map[string]bool)
	for _, site := range inv.Sites {
		siteIDs[site.ID] = true
	}
	for _, asset := range inv.Assets {
		assert.True(t, siteIDs[asset.SiteID], asset.ID)
	}

	bundlePath, err := Bundle(dir, artifacts.Paths(), time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "ignition_outputs_20250301_120000.tar.gz"), bundlePath)

	names := bundleEntries(t, bundlePath)
	assert.ElementsMatch(t, []string{"ignition_tags.json", "assets.yaml", "opcua_map_jersey.yaml"}, names)
}

// Two runs over the same document produce byte-identical artifacts,
// archive name aside.
func TestWriteArtifactsIdempotent(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()

	artifactsA, err := compile(t, fleetDocument(), true).WriteArtifacts(dirA)
	require.NoError(t, err)
	artifactsB, err := compile(t, fleetDocument(), true).WriteArtifacts(dirB)
	require.NoError(t, err)

	for i, pathA := range artifactsA.Paths() {
		a, err := os.ReadFile(pathA)
		require.NoError(t, err)
		b, err := os.ReadFile(artifactsB.Paths()[i])
		require.NoError(t, err)
		assert.Equal(t, a, b, pathA)
	}
}

func bundleEntries(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	gzr, err := gzip.NewReader(f)
	require.NoError(t, err)
	tr := tar.NewReader(gzr)

	var names []string
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		names = append(names, header.Name)
	}
	return names
}
