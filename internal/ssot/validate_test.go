package ssot

import (
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }
func i64Ptr(i int64) *int64   { return &i }
func boolPtr(b bool) *bool    { return &b }

func validOpcUa() *OpcUaConfig {
	return &OpcUaConfig{
		Endpoint:                strPtr("opc.tcp://localhost:62541"),
		TagRoot:                 "Assets",
		DefaultSetpointProvider: strPtr("default"),
		SetpointProvider:        strPtr("default"),
		TelemetryProvider:       strPtr("default"),
		TelemetryIntervalS:      i64Ptr(4),
		TelemetryWriteSim:       boolPtr(true),
	}
}

func testDocument() *Document {
	return &Document{
		Sites: []Site{
			{ID: "s1", Name: "Jersey", Location: "Region-A", OpcUa: validOpcUa()},
			{ID: "s2", Name: "Site-2", Location: "Region-B"},
		},
		Assets: []Asset{
			{ID: "a", Name: "BESS-1", SiteID: "s1", CapacityMwhr: 120, MaxMw: 60, MinMw: -60, Efficiency: 0.92, RampRateMwPerMin: 1000},
			{ID: "b", Name: "BESS-2", SiteID: "s1", CapacityMwhr: 90, MaxMw: 45, MinMw: -45, Efficiency: 0.91, RampRateMwPerMin: 1000},
			{ID: "c", Name: "BESS-3", SiteID: "s2", CapacityMwhr: 80, MaxMw: 40, MinMw: -40, Efficiency: 0.9, RampRateMwPerMin: 1000},
		},
	}
}

func TestValidateCleanDocument(t *testing.T) {
	assert.Empty(t, Validate(testDocument()))
}

func TestValidateDuplicateSiteID(t *testing.T) {
	doc := testDocument()
	doc.Sites = append(doc.Sites, Site{ID: "s1", Name: "Clone", Location: "Region-Z"})

	violations := Validate(doc)
	require.Len(t, violations, 1)
	assert.Equal(t, "duplicate site id s1", violations[0])
}

func TestValidateUnknownSiteReference(t *testing.T) {
	doc := testDocument()
	doc.Assets[2].SiteID = "nope"

	violations := Validate(doc)
	require.Len(t, violations, 1)
	assert.Equal(t, "asset c references unknown site_id nope", violations[0])
}

func TestValidateMissingOpcUaKeys(t *testing.T) {
	doc := testDocument()
	doc.Sites[0].OpcUa.TelemetryProvider = nil
	doc.Sites[0].OpcUa.TelemetryWriteSim = nil

	violations := Validate(doc)
	require.Len(t, violations, 1)
	assert.Equal(t, "site s1 opcua config missing keys: telemetry_provider, telemetry_write_sim", violations[0])
}

func TestValidateTelemetrySchema(t *testing.T) {
	doc := testDocument()
	doc.TelemetrySchema = []TelemetryField{
		{Name: "soc_pct", Type: "float64"},
		{Name: "", Type: "float64"},
		{Name: "soc_pct", Type: "float64"},
		{Name: "status", Type: "string", Source: "magic"},
	}

	violations := Validate(doc)
	require.Len(t, violations, 3)
	assert.Contains(t, violations, "telemetry_schema entries require name and type")
	assert.Contains(t, violations, "telemetry_schema has duplicate field soc_pct")
	assert.Contains(t, violations, "telemetry_schema field status has invalid source magic")
}

// Permuting input order must not change the multiset of violations.
func TestValidateOrderIndependent(t *testing.T) {
	doc := testDocument()
	doc.Sites = append(doc.Sites, Site{ID: "s2", Name: "Clone", Location: "Region-Z"})
	doc.Assets[0].SiteID = "ghost"
	doc.Sites[0].OpcUa.Endpoint = nil

	want := Validate(doc)
	sort.Strings(want)

	for i := 0; i < 10; i++ {
		shuffled := *doc
		shuffled.Sites = append([]Site(nil), doc.Sites...)
		shuffled.Assets = append([]Asset(nil), doc.Assets...)
		rand.Shuffle(len(shuffled.Sites), func(i, j int) {
			shuffled.Sites[i], shuffled.Sites[j] = shuffled.Sites[j], shuffled.Sites[i]
		})
		rand.Shuffle(len(shuffled.Assets), func(i, j int) {
			shuffled.Assets[i], shuffled.Assets[j] = shuffled.Assets[j], shuffled.Assets[i]
		})

		got := Validate(&shuffled)
		sort.Strings(got)
		require.Equal(t, want, got)
	}
}

func TestViolationsError(t *testing.T) {
	err := ViolationsError([]string{"first", "second"})
	assert.Equal(t, "validation failed:\n- first\n- second", err.Error())
}
