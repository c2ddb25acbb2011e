package server

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gridforge/ssot2scada/internal/config"
	"github.com/gridforge/ssot2scada/internal/inventory"
	"github.com/gridforge/ssot2scada/internal/ssot"

	_ "github.com/joho/godotenv/autoload"
	"go.uber.org/zap"
)

// Server previews generated artifacts and serves per-asset telemetry
// views shaped like the downstream polling contract.
type Server struct {
	port        uint
	httpLog     bool
	artifactDir string
	assets      []map[string]any
	assetsByID  map[string]map[string]any
	logger      *zap.Logger
}

func NewServer(cfg config.Config, logger *zap.Logger) (*http.Server, error) {
	data, err := os.ReadFile(filepath.Join(cfg.Server.ArtifactDir, inventory.FileName))
	if err != nil {
		return nil, fmt.Errorf("load inventory: %w", err)
	}
	doc, err := inventory.Parse(data)
	if err != nil {
		return nil, err
	}
	schema, err := ssot.NewSchemaDeriver().Derive(doc)
	if err != nil {
		return nil, err
	}

	s := &Server{
		port:        cfg.Server.Port,
		httpLog:     cfg.Server.HttpLog,
		artifactDir: cfg.Server.ArtifactDir,
		assetsByID:  make(map[string]map[string]any),
		logger:      logger.With(zap.String("component", "server")),
	}
	for _, asset := range doc.Assets {
		view := assetView(doc, asset, schema)
		s.assets = append(s.assets, view)
		s.assetsByID[asset.ID] = view
	}

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}, nil
}

// assetView merges the telemetry schema's default values with the
// asset's static limits, so a poll against the preview returns every
// recognized field.
func assetView(doc *ssot.Document, asset ssot.Asset, schema []ssot.TelemetryField) map[string]any {
	view := make(map[string]any, len(schema)+12)
	for _, field := range schema {
		view[field.Name] = defaultFieldValue(field.Type)
	}
	view["id"] = asset.ID
	view["name"] = asset.Name
	view["site_id"] = asset.SiteID
	view["capacity_mwhr"] = asset.CapacityMwhr
	view["max_mw"] = asset.MaxMw
	view["min_mw"] = asset.MinMw
	view["min_soc_pct"] = asset.MinSoc()
	view["max_soc_pct"] = asset.MaxSoc()
	view["efficiency"] = asset.Efficiency
	view["ramp_rate_mw_per_min"] = asset.RampRateMwPerMin
	for _, site := range doc.Sites {
		if site.ID == asset.SiteID {
			view["site_name"] = site.Name
			view["location"] = site.Location
			break
		}
	}
	return view
}

func defaultFieldValue(fieldType string) any {
	switch fieldType {
	case "string", "str":
		return ""
	case "bool", "boolean":
		return false
	default:
		return 0.0
	}
}
