package inventory

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gridforge/ssot2scada/internal/ssot"
)

// FileName is the inventory artifact name.
const FileName = "assets.yaml"

// Render re-emits the validated site and asset inventory in a fixed
// field order, purely representational. The SoC bounds are filled from
// their defaults so consumers never have to apply them again. Field
// order must not change between runs: downstream reviews diff this
// file.
func Render(sites []ssot.Site, assets []ssot.Asset) []byte {
	var lines []string
	lines = append(lines,
		"# Generated by ssot2scada",
		"# Static asset/site configuration (non-telemetry).",
		"sites:")
	for _, site := range sites {
		lines = append(lines,
			fmt.Sprintf("  - id: %q", site.ID),
			fmt.Sprintf("    name: %q", site.Name),
			fmt.Sprintf("    location: %q", site.Location))
	}
	lines = append(lines, "", "assets:")
	for _, asset := range assets {
		lines = append(lines,
			fmt.Sprintf("  - id: %q", asset.ID),
			fmt.Sprintf("    name: %q", asset.Name),
			fmt.Sprintf("    site_id: %q", asset.SiteID),
			"    capacity_mwhr: "+formatNumber(asset.CapacityMwhr),
			"    max_mw: "+formatNumber(asset.MaxMw),
			"    min_mw: "+formatNumber(asset.MinMw),
			"    min_soc_pct: "+formatNumber(asset.MinSoc()),
			"    max_soc_pct: "+formatNumber(asset.MaxSoc()),
			"    efficiency: "+formatNumber(asset.Efficiency),
			"    ramp_rate_mw_per_min: "+formatNumber(asset.RampRateMwPerMin),
			"")
	}
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return []byte(strings.Join(lines, "\n") + "\n")
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Parse reads an inventory file back into document form. The inventory
// mirrors the SSOT input schema, so the SSOT decoder applies.
func Parse(data []byte) (*ssot.Document, error) {
	return ssot.Decode(data, ".yaml")
}
