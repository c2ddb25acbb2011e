package opcuamap

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/gridforge/ssot2scada/internal/ssot"
)

const (
	setpointSuffix  = "control/setpoint_mw"
	telemetryPrefix = "telemetry/"
)

// Map binds logical tag paths to wire-level node identifiers for one
// protocol-configured site. Assets is sorted ascending by asset id;
// index 0 is the default setpoint target.
type Map struct {
	Name               string
	Slug               string
	SiteID             string
	Endpoint           string
	TagRoot            string
	DefaultProvider    string
	SetpointProvider   string
	TelemetryProvider  string
	TelemetryIntervalS int64
	TelemetryWriteSim  bool
	Assets             []ssot.Asset
	TelemetryFields    []string
}

// NodeID renders an OPC-UA node identifier. The tag root segment is
// omitted when empty.
func NodeID(provider, tagRoot, assetName, suffix string) string {
	base := fmt.Sprintf("[%s]", provider)
	if tagRoot != "" {
		base = fmt.Sprintf("%s/%s/%s", base, tagRoot, assetName)
	} else {
		base = fmt.Sprintf("%s/%s", base, assetName)
	}
	return fmt.Sprintf("ns=2;s=%s/%s", base, suffix)
}

// Slugify derives a filesystem-safe name: lower-cased, alphanumerics,
// dash and underscore kept, whitespace collapsed to underscore. An
// empty result falls back to "site".
func Slugify(value string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(value) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		case r == '-' || r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "site"
	}
	return b.String()
}

// Build resolves the address map for one site. Sites without protocol
// configuration are the caller's concern; an incomplete configuration
// or a site with no assets is a per-site hard error that must not abort
// other sites.
func Build(site ssot.Site, assets []ssot.Asset, schema []ssot.TelemetryField) (*Map, error) {
	cfg := site.OpcUa
	if cfg == nil {
		return nil, fmt.Errorf("site %s has no opcua config", site.ID)
	}
	if missing := cfg.MissingKeys(); len(missing) > 0 {
		return nil, fmt.Errorf("site %s opcua config missing keys: %s", site.ID, strings.Join(missing, ", "))
	}

	mapName := cfg.MapName
	if mapName == "" {
		mapName = site.Name
	}

	var siteAssets []ssot.Asset
	for _, asset := range assets {
		if asset.SiteID == site.ID {
			siteAssets = append(siteAssets, asset)
		}
	}
	if len(siteAssets) == 0 {
		return nil, fmt.Errorf("no assets found for site %s", site.ID)
	}
	// the lowest id is the default setpoint target, independent of
	// document order
	sort.Slice(siteAssets, func(i, j int) bool { return siteAssets[i].ID < siteAssets[j].ID })

	var fields []string
	for _, field := range schema {
		if field.Source == ssot.SourceDevice {
			fields = append(fields, field.Name)
		}
	}

	return &Map{
		Name:               mapName,
		Slug:               Slugify(mapName),
		SiteID:             site.ID,
		Endpoint:           *cfg.Endpoint,
		TagRoot:            cfg.TagRoot,
		DefaultProvider:    *cfg.DefaultSetpointProvider,
		SetpointProvider:   *cfg.SetpointProvider,
		TelemetryProvider:  *cfg.TelemetryProvider,
		TelemetryIntervalS: *cfg.TelemetryIntervalS,
		TelemetryWriteSim:  *cfg.TelemetryWriteSim,
		Assets:             siteAssets,
		TelemetryFields:    fields,
	}, nil
}

// DefaultAsset is the lowest-id asset of the site.
func (m *Map) DefaultAsset() ssot.Asset {
	return m.Assets[0]
}

// DefaultSetpointNode targets the default asset's setpoint through the
// default provider.
func (m *Map) DefaultSetpointNode() string {
	return NodeID(m.DefaultProvider, m.TagRoot, m.DefaultAsset().Name, setpointSuffix)
}

// SetpointNode resolves an asset's setpoint write address. The setpoint
// provider may differ from the default provider to support a staged or
// simulated addressing split.
func (m *Map) SetpointNode(asset ssot.Asset) string {
	return NodeID(m.SetpointProvider, m.TagRoot, asset.Name, setpointSuffix)
}

// TelemetryNode resolves an asset's telemetry read address for a
// device-sourced field.
func (m *Map) TelemetryNode(asset ssot.Asset, field string) string {
	return NodeID(m.TelemetryProvider, m.TagRoot, asset.Name, telemetryPrefix+field)
}

// FileName is the per-site artifact name.
func (m *Map) FileName() string {
	return fmt.Sprintf("opcua_map_%s.yaml", m.Slug)
}

// Render emits the map as YAML with a fixed key order so reruns diff
// cleanly. The file is built line by line to keep the explanatory
// comments the consumers rely on.
func (m *Map) Render() []byte {
	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}
	line("# Generated by ssot2scada")
	line("# OPC UA node mapping for telemetry reads and setpoint writes.")
	line("endpoint: %s", m.Endpoint)
	line("# Note: tag provider is usually [default]; if namespace index changes, use nsu=urn:inductiveautomation:ignition:opcua:tags.")
	line("# Default fallback if an asset_id is not explicitly mapped")
	line("default_setpoint: %s", m.DefaultSetpointNode())
	line("setpoints:")
	for _, asset := range m.Assets {
		line("  %q: %s", asset.ID, m.SetpointNode(asset))
	}
	line("telemetry_interval_s: %d", m.TelemetryIntervalS)
	line("telemetry_write_sim: %s", strconv.FormatBool(m.TelemetryWriteSim))
	line("telemetry_assets:")
	for _, asset := range m.Assets {
		line("  %q:", asset.ID)
		for _, field := range m.TelemetryFields {
			line("    %s: %s", field, m.TelemetryNode(asset, field))
		}
	}
	return []byte(b.String())
}
