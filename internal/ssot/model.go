package ssot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
)

// Document is the single source of truth for the fleet: static site and
// asset inventory plus an optional telemetry field schema.
type Document struct {
	Sites           []Site           `json:"sites" yaml:"sites"`
	Assets          []Asset          `json:"assets" yaml:"assets"`
	TelemetrySchema []TelemetryField `json:"telemetry_schema,omitempty" yaml:"telemetry_schema,omitempty"`
}

type Site struct {
	ID       string       `json:"id" yaml:"id"`
	Name     string       `json:"name" yaml:"name"`
	Location string       `json:"location" yaml:"location"`
	OpcUa    *OpcUaConfig `json:"opcua,omitempty" yaml:"opcua,omitempty"`
}

// OpcUaConfig carries the per-site protocol settings. The six mandatory
// keys are pointers so the validator can tell "absent" from "zero value".
type OpcUaConfig struct {
	Endpoint                *string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	TagRoot                 string  `json:"tag_root,omitempty" yaml:"tag_root,omitempty"`
	DefaultSetpointProvider *string `json:"default_setpoint_provider,omitempty" yaml:"default_setpoint_provider,omitempty"`
	SetpointProvider        *string `json:"setpoint_provider,omitempty" yaml:"setpoint_provider,omitempty"`
	TelemetryProvider       *string `json:"telemetry_provider,omitempty" yaml:"telemetry_provider,omitempty"`
	TelemetryIntervalS      *int64  `json:"telemetry_interval_s,omitempty" yaml:"telemetry_interval_s,omitempty"`
	TelemetryWriteSim       *bool   `json:"telemetry_write_sim,omitempty" yaml:"telemetry_write_sim,omitempty"`
	MapName                 string  `json:"map_name,omitempty" yaml:"map_name,omitempty"`
}

// MissingKeys returns the mandatory keys this config does not declare,
// in the documented key order.
func (c *OpcUaConfig) MissingKeys() []string {
	var missing []string
	if c.Endpoint == nil {
		missing = append(missing, "endpoint")
	}
	if c.DefaultSetpointProvider == nil {
		missing = append(missing, "default_setpoint_provider")
	}
	if c.SetpointProvider == nil {
		missing = append(missing, "setpoint_provider")
	}
	if c.TelemetryProvider == nil {
		missing = append(missing, "telemetry_provider")
	}
	if c.TelemetryIntervalS == nil {
		missing = append(missing, "telemetry_interval_s")
	}
	if c.TelemetryWriteSim == nil {
		missing = append(missing, "telemetry_write_sim")
	}
	return missing
}

type Asset struct {
	ID               string   `json:"id" yaml:"id"`
	Name             string   `json:"name" yaml:"name"`
	SiteID           string   `json:"site_id" yaml:"site_id"`
	CapacityMwhr     float64  `json:"capacity_mwhr" yaml:"capacity_mwhr"`
	MaxMw            float64  `json:"max_mw" yaml:"max_mw"`
	MinMw            float64  `json:"min_mw" yaml:"min_mw"`
	MinSocPct        *float64 `json:"min_soc_pct,omitempty" yaml:"min_soc_pct,omitempty"`
	MaxSocPct        *float64 `json:"max_soc_pct,omitempty" yaml:"max_soc_pct,omitempty"`
	Efficiency       float64  `json:"efficiency" yaml:"efficiency"`
	RampRateMwPerMin float64  `json:"ramp_rate_mw_per_min" yaml:"ramp_rate_mw_per_min"`
}

// MinSoc returns the declared minimum state of charge, defaulting to 0
// when the document omits it.
func (a Asset) MinSoc() float64 {
	if a.MinSocPct == nil {
		return 0
	}
	return *a.MinSocPct
}

// MaxSoc returns the declared maximum state of charge, defaulting to 100
// when the document omits it.
func (a Asset) MaxSoc() float64 {
	if a.MaxSocPct == nil {
		return 100
	}
	return *a.MaxSocPct
}

type Source string

const (
	SourceDevice   Source = "device"
	SourceComputed Source = "computed"
)

type TelemetryField struct {
	Name   string `json:"name" yaml:"name"`
	Type   string `json:"type" yaml:"type"`
	Source Source `json:"source,omitempty" yaml:"source,omitempty"`
}

// SiteAssets selects the assets belonging to a site, preserving document
// order.
func (d *Document) SiteAssets(siteID string) []Asset {
	var out []Asset
	for _, a := range d.Assets {
		if a.SiteID == siteID {
			out = append(out, a)
		}
	}
	return out
}

// Load reads and decodes an SSOT document. The format is chosen by file
// extension: .yaml/.yml decodes as YAML, anything else as JSON.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load ssot: %w", err)
	}
	doc, err := Decode(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("load ssot %s: %w", path, err)
	}
	return doc, nil
}

func Decode(data []byte, ext string) (*Document, error) {
	var doc Document
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
	}
	return &doc, nil
}
