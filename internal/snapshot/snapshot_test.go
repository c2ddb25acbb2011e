package snapshot

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/gridforge/ssot2scada/internal/opcuamap"
	"github.com/gridforge/ssot2scada/internal/ssot"
	"github.com/gridforge/ssot2scada/internal/tagtree"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func strPtr(s string) *string { return &s }
func i64Ptr(i int64) *int64   { return &i }
func boolPtr(b bool) *bool    { return &b }

func testSnapshot(t *testing.T) *Snapshot {
	t.Helper()
	sites := []ssot.Site{
		{ID: "s1", Name: "Jersey", Location: "Region-A", OpcUa: &ssot.OpcUaConfig{
			Endpoint:                strPtr("opc.tcp://localhost:62541"),
			TagRoot:                 "Assets",
			DefaultSetpointProvider: strPtr("default"),
			SetpointProvider:        strPtr("default"),
			TelemetryProvider:       strPtr("default"),
			TelemetryIntervalS:      i64Ptr(4),
			TelemetryWriteSim:       boolPtr(true),
		}},
		{ID: "s2", Name: "Empty", Location: "Region-B"},
	}
	assets := []ssot.Asset{
		{ID: "a", Name: "BESS-1", SiteID: "s1", CapacityMwhr: 120, MaxMw: 60, MinMw: -60, Efficiency: 0.92, RampRateMwPerMin: 1000},
		{ID: "b", Name: "BESS-2", SiteID: "s1", CapacityMwhr: 80, MaxMw: 40, MinMw: -40, Efficiency: 0.9, RampRateMwPerMin: 1000},
	}
	schema := []ssot.TelemetryField{
		{Name: "soc_pct", Type: "float64", Source: ssot.SourceDevice},
		{Name: "setpoint_mw", Type: "float64", Source: ssot.SourceComputed},
	}

	m, err := opcuamap.Build(sites[0], assets, schema)
	require.NoError(t, err)

	rows, err := tagtree.Build(assets, schema, "test").Flatten()
	require.NoError(t, err)

	return &Snapshot{Sites: sites, Assets: assets, Maps: []*opcuamap.Map{m}, TagRows: rows}
}

func writeTestSnapshot(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Write(path, testSnapshot(t)))
	return path
}

func TestAvailable(t *testing.T) {
	// the test binary links the driver
	assert.True(t, Available())
}

func TestWriteAndQueryTables(t *testing.T) {
	path := writeTestSnapshot(t)

	db, err := sql.Open(DriverName, path)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sites`).Scan(&count))
	assert.Equal(t, 2, count)
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM assets`).Scan(&count))
	assert.Equal(t, 2, count)
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM opcua_setpoints`).Scan(&count))
	assert.Equal(t, 2, count)
	// one device field per asset; computed fields are excluded
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM opcua_telemetry_nodes`).Scan(&count))
	assert.Equal(t, 2, count)

	var defaultAssetID, defaultNode string
	require.NoError(t, db.QueryRow(
		`SELECT default_setpoint_asset_id, default_setpoint_node FROM opcua_maps`).
		Scan(&defaultAssetID, &defaultNode))
	assert.Equal(t, "a", defaultAssetID)
	assert.Equal(t, "ns=2;s=[default]/Assets/BESS-1/control/setpoint_mw", defaultNode)
}

func TestSummaryView(t *testing.T) {
	path := writeTestSnapshot(t)

	db, err := sql.Open(DriverName, path)
	require.NoError(t, err)
	defer db.Close()

	var assetCount int
	var capacityTotal, maxTotal, minTotal sql.NullFloat64
	require.NoError(t, db.QueryRow(
		`SELECT asset_count, capacity_mwhr_total, max_mw_total, min_mw_total
		 FROM site_asset_summary WHERE site_id = 's1'`).
		Scan(&assetCount, &capacityTotal, &maxTotal, &minTotal))
	assert.Equal(t, 2, assetCount)
	assert.Equal(t, 200.0, capacityTotal.Float64)
	assert.Equal(t, 100.0, maxTotal.Float64)
	assert.Equal(t, -100.0, minTotal.Float64)

	// a site without assets rolls up to zero count and NULL sums
	require.NoError(t, db.QueryRow(
		`SELECT asset_count, capacity_mwhr_total FROM site_asset_summary WHERE site_id = 's2'`).
		Scan(&assetCount, &capacityTotal))
	assert.Equal(t, 0, assetCount)
	assert.False(t, capacityTotal.Valid)
}

func TestResolvedMapViews(t *testing.T) {
	path := writeTestSnapshot(t)

	db, err := sql.Open(DriverName, path)
	require.NoError(t, err)
	defer db.Close()

	var assetName, nodeID string
	require.NoError(t, db.QueryRow(
		`SELECT asset_name, node_id FROM opcua_setpoint_map WHERE asset_id = 'b'`).
		Scan(&assetName, &nodeID))
	assert.Equal(t, "BESS-2", assetName)
	assert.Equal(t, "ns=2;s=[default]/Assets/BESS-2/control/setpoint_mw", nodeID)

	require.NoError(t, db.QueryRow(
		`SELECT node_id FROM opcua_telemetry_map WHERE asset_id = 'a' AND field = 'soc_pct'`).
		Scan(&nodeID))
	assert.Equal(t, "ns=2;s=[default]/Assets/BESS-1/telemetry/soc_pct", nodeID)
}

func TestWriteReplacesPreviousSnapshot(t *testing.T) {
	path := writeTestSnapshot(t)

	snap := testSnapshot(t)
	snap.Assets = snap.Assets[:1]
	snap.Maps = nil
	snap.TagRows = nil
	require.NoError(t, Write(path, snap))

	db, err := sql.Open(DriverName, path)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM assets`).Scan(&count))
	assert.Equal(t, 1, count)
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM opcua_maps`).Scan(&count))
	assert.Equal(t, 0, count)
}

func TestRenderReport(t *testing.T) {
	path := writeTestSnapshot(t)

	report, err := RenderReport(path)
	require.NoError(t, err)
	text := string(report)

	assert.Contains(t, text, "# SSOT Configuration Report")
	assert.Contains(t, text, "## Sites Summary")
	assert.Contains(t, text, "| s1 | Jersey | 2 | 200 | 100 | -100 |")
	assert.Contains(t, text, "## Ignition Tags by Asset")
	// per asset: 1 asset folder + 3 group folders + 2 schema tags + 3 control + 1 event
	assert.Contains(t, text, "| BESS-1 | 10 | 6 | 4 |")
	assert.Contains(t, text, "ns=2;s=[default]/Assets/BESS-1/telemetry/soc_pct")
}
