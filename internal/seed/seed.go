package seed

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gridforge/ssot2scada/internal/ssot"

	"github.com/goccy/go-yaml"
	"github.com/google/uuid"
)

// namespace for deterministic asset ids: the same fleet size always
// yields the same document.
var namespace = uuid.MustParse("12345678-1234-5678-1234-567812345678")

func strPtr(s string) *string { return &s }
func i64Ptr(i int64) *int64   { return &i }
func boolPtr(b bool) *bool    { return &b }

func baseSites() []ssot.Site {
	return []ssot.Site{
		{ID: "6ba7b810-9dad-11d1-80b4-00c04fd430c8", Name: "Jersey", Location: "Region-A",
			OpcUa: &ssot.OpcUaConfig{
				Endpoint:                strPtr("opc.tcp://localhost:62541"),
				TagRoot:                 "Assets",
				DefaultSetpointProvider: strPtr("default"),
				SetpointProvider:        strPtr("default"),
				TelemetryProvider:       strPtr("default"),
				TelemetryIntervalS:      i64Ptr(4),
				TelemetryWriteSim:       boolPtr(true),
			}},
		{ID: "6ba7b811-9dad-11d1-80b4-00c04fd430c8", Name: "Site-2", Location: "Region-B"},
		{ID: "6ba7b812-9dad-11d1-80b4-00c04fd430c8", Name: "Site-3", Location: "Region-C"},
		{ID: "6ba7b813-9dad-11d1-80b4-00c04fd430c8", Name: "Site-4", Location: "Region-D"},
		{ID: "6ba7b814-9dad-11d1-80b4-00c04fd430c8", Name: "Site-5", Location: "Region-E"},
	}
}

func baseAssets(sites []ssot.Site) []ssot.Asset {
	return []ssot.Asset{
		{ID: "7ba7b810-9dad-11d1-80b4-00c04fd430c8", Name: "BESS-1", SiteID: sites[0].ID, CapacityMwhr: 120, MaxMw: 60, MinMw: -60, Efficiency: 0.92, RampRateMwPerMin: 1000},
		{ID: "8ba7b810-9dad-11d1-80b4-00c04fd430c8", Name: "BESS-1B", SiteID: sites[0].ID, CapacityMwhr: 90, MaxMw: 45, MinMw: -45, Efficiency: 0.91, RampRateMwPerMin: 1000},
		{ID: "7ba7b811-9dad-11d1-80b4-00c04fd430c8", Name: "BESS-2", SiteID: sites[1].ID, CapacityMwhr: 80, MaxMw: 40, MinMw: -40, Efficiency: 0.9, RampRateMwPerMin: 1000},
		{ID: "7ba7b812-9dad-11d1-80b4-00c04fd430c8", Name: "BESS-3", SiteID: sites[1].ID, CapacityMwhr: 150, MaxMw: 75, MinMw: -75, Efficiency: 0.93, RampRateMwPerMin: 1000},
		{ID: "7ba7b813-9dad-11d1-80b4-00c04fd430c8", Name: "BESS-4", SiteID: sites[2].ID, CapacityMwhr: 110, MaxMw: 55, MinMw: -55, Efficiency: 0.91, RampRateMwPerMin: 1000},
		{ID: "7ba7b814-9dad-11d1-80b4-00c04fd430c8", Name: "BESS-5", SiteID: sites[2].ID, CapacityMwhr: 51, MaxMw: 45, MinMw: -45, Efficiency: 0.9, RampRateMwPerMin: 1000},
	}
}

// Fleet expands the base fleet into an SSOT document with count assets.
// Generated assets are named BESS-%03d with name-derived UUIDv5 ids,
// assigned to sites round-robin and parameterized from their index, so
// the expansion is fully deterministic. A count at or below the base
// fleet size returns the base fleet unchanged.
func Fleet(count int) *ssot.Document {
	sites := baseSites()
	assets := baseAssets(sites)

	for idx := len(assets) + 1; idx <= count; idx++ {
		name := fmt.Sprintf("BESS-%03d", idx)
		maxMw := float64(40 + (idx%10)*2)
		assets = append(assets, ssot.Asset{
			ID:               uuid.NewSHA1(namespace, []byte(name)).String(),
			Name:             name,
			SiteID:           sites[(idx-1)%len(sites)].ID,
			CapacityMwhr:     float64(80 + (idx%10)*5),
			MaxMw:            maxMw,
			MinMw:            -maxMw,
			Efficiency:       0.9 + float64(idx%5)*0.01,
			RampRateMwPerMin: 1000,
		})
	}

	return &ssot.Document{Sites: sites, Assets: assets}
}

// Write emits the document to path, JSON or YAML by extension.
func Write(doc *ssot.Document, path string) error {
	var data []byte
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(doc)
	default:
		data, err = json.MarshalIndent(doc, "", "  ")
		if err == nil {
			data = append(data, '\n')
		}
	}
	if err != nil {
		return fmt.Errorf("encode fleet: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write fleet: %w", err)
	}
	return nil
}
