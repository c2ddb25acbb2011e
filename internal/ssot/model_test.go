package ssot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jsonFixture = `{
  "sites": [
    {"id": "s1", "name": "Jersey", "location": "Region-A",
     "opcua": {"endpoint": "opc.tcp://localhost:62541", "tag_root": "Assets",
               "default_setpoint_provider": "default", "setpoint_provider": "sim",
               "telemetry_provider": "default", "telemetry_interval_s": 4,
               "telemetry_write_sim": true}}
  ],
  "assets": [
    {"id": "a", "name": "BESS-1", "site_id": "s1", "capacity_mwhr": 120,
     "max_mw": 60, "min_mw": -60, "efficiency": 0.92, "ramp_rate_mw_per_min": 1000}
  ]
}`

const yamlFixture = `sites:
  - id: "s1"
    name: "Jersey"
    location: "Region-A"
assets:
  - id: "a"
    name: "BESS-1"
    site_id: "s1"
    capacity_mwhr: 120
    max_mw: 60
    min_mw: -60
    min_soc_pct: 10
    max_soc_pct: 95
    efficiency: 0.92
    ramp_rate_mw_per_min: 1000
`

func TestLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ssot.json")
	require.NoError(t, os.WriteFile(path, []byte(jsonFixture), 0o644))

	doc, err := Load(path)
	require.NoError(t, err)
	require.Len(t, doc.Sites, 1)
	require.Len(t, doc.Assets, 1)

	opcua := doc.Sites[0].OpcUa
	require.NotNil(t, opcua)
	assert.Empty(t, opcua.MissingKeys())
	assert.Equal(t, "sim", *opcua.SetpointProvider)
	assert.Equal(t, int64(4), *opcua.TelemetryIntervalS)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ssot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlFixture), 0o644))

	doc, err := Load(path)
	require.NoError(t, err)
	require.Len(t, doc.Assets, 1)
	assert.Equal(t, 10.0, doc.Assets[0].MinSoc())
	assert.Equal(t, 95.0, doc.Assets[0].MaxSoc())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load ssot")
}

func TestSocDefaults(t *testing.T) {
	a := Asset{}
	assert.Equal(t, 0.0, a.MinSoc())
	assert.Equal(t, 100.0, a.MaxSoc())
}

func TestSiteAssetsKeepsDocumentOrder(t *testing.T) {
	doc := testDocument()
	assets := doc.SiteAssets("s1")
	require.Len(t, assets, 2)
	assert.Equal(t, "a", assets[0].ID)
	assert.Equal(t, "b", assets[1].ID)
}
