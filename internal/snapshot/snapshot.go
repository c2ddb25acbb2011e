package snapshot

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/gridforge/ssot2scada/internal/opcuamap"
	"github.com/gridforge/ssot2scada/internal/ssot"
	"github.com/gridforge/ssot2scada/internal/tagtree"
)

// FileName is the relational snapshot artifact name.
const FileName = "ssot.db"

// DriverName is the sql driver the snapshot expects. The driver is
// linked by the binary, not by this package, so builds without it
// degrade to skipping the snapshot.
const DriverName = "sqlite"

// ErrUnavailable reports that the relational sink's backing engine is
// not linked into this build. Never fatal to the overall run.
var ErrUnavailable = errors.New("sqlite driver not available")

// Available reports whether the sqlite driver is registered.
func Available() bool {
	return slices.Contains(sql.Drivers(), DriverName)
}

// Snapshot is the in-memory input of the relational projection: the
// validated inventory, the resolved address maps and the flattened tag
// tree.
type Snapshot struct {
	Sites   []ssot.Site
	Assets  []ssot.Asset
	Maps    []*opcuamap.Map
	TagRows []tagtree.Row
}

var tables = []string{
	`CREATE TABLE sites (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		location TEXT NOT NULL,
		map_name TEXT,
		endpoint TEXT,
		tag_root TEXT,
		default_setpoint_provider TEXT,
		setpoint_provider TEXT,
		telemetry_provider TEXT,
		telemetry_interval_s INTEGER,
		telemetry_write_sim BOOLEAN
	)`,
	`CREATE TABLE assets (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		site_id TEXT NOT NULL,
		capacity_mwhr REAL,
		max_mw REAL,
		min_mw REAL,
		min_soc_pct REAL,
		max_soc_pct REAL,
		efficiency REAL,
		ramp_rate_mw_per_min REAL
	)`,
	`CREATE TABLE opcua_maps (
		map_name TEXT PRIMARY KEY,
		site_id TEXT NOT NULL,
		endpoint TEXT NOT NULL,
		tag_root TEXT,
		default_setpoint_provider TEXT,
		setpoint_provider TEXT,
		telemetry_provider TEXT,
		telemetry_interval_s INTEGER,
		telemetry_write_sim BOOLEAN,
		default_setpoint_asset_id TEXT,
		default_setpoint_node TEXT,
		file_path TEXT
	)`,
	`CREATE TABLE opcua_setpoints (
		map_name TEXT NOT NULL,
		asset_id TEXT NOT NULL,
		node_id TEXT NOT NULL
	)`,
	`CREATE TABLE opcua_telemetry_nodes (
		map_name TEXT NOT NULL,
		asset_id TEXT NOT NULL,
		field TEXT NOT NULL,
		node_id TEXT NOT NULL
	)`,
	`CREATE TABLE ignition_tags (
		tag_path TEXT PRIMARY KEY,
		tag_type TEXT NOT NULL,
		data_type TEXT,
		value_source TEXT,
		read_only BOOLEAN,
		value_json TEXT
	)`,
}

var views = []string{
	`CREATE VIEW site_assets AS
	SELECT
		s.id AS site_id,
		s.name AS site_name,
		s.location,
		a.id AS asset_id,
		a.name AS asset_name,
		a.capacity_mwhr,
		a.max_mw,
		a.min_mw,
		a.min_soc_pct,
		a.max_soc_pct,
		a.efficiency,
		a.ramp_rate_mw_per_min
	FROM sites s
	JOIN assets a ON a.site_id = s.id`,
	`CREATE VIEW site_asset_summary AS
	SELECT
		s.id AS site_id,
		s.name AS site_name,
		COUNT(a.id) AS asset_count,
		SUM(a.capacity_mwhr) AS capacity_mwhr_total,
		SUM(a.max_mw) AS max_mw_total,
		SUM(a.min_mw) AS min_mw_total,
		AVG(a.min_soc_pct) AS min_soc_pct_avg,
		AVG(a.max_soc_pct) AS max_soc_pct_avg,
		AVG(a.efficiency) AS efficiency_avg,
		AVG(a.ramp_rate_mw_per_min) AS ramp_rate_mw_per_min_avg
	FROM sites s
	LEFT JOIN assets a ON a.site_id = s.id
	GROUP BY s.id, s.name`,
	`CREATE VIEW opcua_setpoint_map AS
	SELECT
		m.map_name,
		m.site_id,
		s.name AS site_name,
		sp.asset_id,
		a.name AS asset_name,
		sp.node_id
	FROM opcua_setpoints sp
	JOIN opcua_maps m ON m.map_name = sp.map_name
	LEFT JOIN sites s ON s.id = m.site_id
	LEFT JOIN assets a ON a.id = sp.asset_id`,
	`CREATE VIEW opcua_telemetry_map AS
	SELECT
		m.map_name,
		m.site_id,
		s.name AS site_name,
		tn.asset_id,
		a.name AS asset_name,
		tn.field,
		tn.node_id
	FROM opcua_telemetry_nodes tn
	JOIN opcua_maps m ON m.map_name = tn.map_name
	LEFT JOIN sites s ON s.id = m.site_id
	LEFT JOIN assets a ON a.id = tn.asset_id`,
}

// Write projects the snapshot into a fresh database file, replacing any
// previous snapshot wholesale. Returns ErrUnavailable when the driver
// is not linked.
func Write(path string, snap *Snapshot) error {
	if !Available() {
		return ErrUnavailable
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("replace snapshot: %w", err)
	}

	db, err := sql.Open(DriverName, path)
	if err != nil {
		return fmt.Errorf("open snapshot: %w", err)
	}
	defer db.Close()

	for _, stmt := range append(append([]string{}, tables...), views...) {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("create snapshot schema: %w", err)
		}
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("snapshot transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertSites(tx, snap.Sites); err != nil {
		return err
	}
	if err := insertAssets(tx, snap.Assets); err != nil {
		return err
	}
	if err := insertMaps(tx, snap.Maps); err != nil {
		return err
	}
	if err := insertTagRows(tx, snap.TagRows); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

func insertSites(tx *sql.Tx, sites []ssot.Site) error {
	stmt, err := tx.Prepare(`INSERT INTO sites VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, site := range sites {
		var mapName, endpoint, tagRoot, defaultProv, setpointProv, telemetryProv any
		var intervalS, writeSim any
		if cfg := site.OpcUa; cfg != nil {
			if cfg.MapName != "" {
				mapName = cfg.MapName
			}
			tagRoot = cfg.TagRoot
			if cfg.Endpoint != nil {
				endpoint = *cfg.Endpoint
			}
			if cfg.DefaultSetpointProvider != nil {
				defaultProv = *cfg.DefaultSetpointProvider
			}
			if cfg.SetpointProvider != nil {
				setpointProv = *cfg.SetpointProvider
			}
			if cfg.TelemetryProvider != nil {
				telemetryProv = *cfg.TelemetryProvider
			}
			if cfg.TelemetryIntervalS != nil {
				intervalS = *cfg.TelemetryIntervalS
			}
			if cfg.TelemetryWriteSim != nil {
				writeSim = *cfg.TelemetryWriteSim
			}
		}
		if _, err := stmt.Exec(site.ID, site.Name, site.Location, mapName, endpoint, tagRoot,
			defaultProv, setpointProv, telemetryProv, intervalS, writeSim); err != nil {
			return fmt.Errorf("insert site %s: %w", site.ID, err)
		}
	}
	return nil
}

func insertAssets(tx *sql.Tx, assets []ssot.Asset) error {
	stmt, err := tx.Prepare(`INSERT INTO assets VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, asset := range assets {
		if _, err := stmt.Exec(asset.ID, asset.Name, asset.SiteID, asset.CapacityMwhr,
			asset.MaxMw, asset.MinMw, asset.MinSoc(), asset.MaxSoc(),
			asset.Efficiency, asset.RampRateMwPerMin); err != nil {
			return fmt.Errorf("insert asset %s: %w", asset.ID, err)
		}
	}
	return nil
}

func insertMaps(tx *sql.Tx, maps []*opcuamap.Map) error {
	mapStmt, err := tx.Prepare(`INSERT INTO opcua_maps VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer mapStmt.Close()
	setpointStmt, err := tx.Prepare(`INSERT INTO opcua_setpoints VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer setpointStmt.Close()
	telemetryStmt, err := tx.Prepare(`INSERT INTO opcua_telemetry_nodes VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer telemetryStmt.Close()

	for _, m := range maps {
		if _, err := mapStmt.Exec(m.Name, m.SiteID, m.Endpoint, m.TagRoot,
			m.DefaultProvider, m.SetpointProvider, m.TelemetryProvider,
			m.TelemetryIntervalS, m.TelemetryWriteSim,
			m.DefaultAsset().ID, m.DefaultSetpointNode(), m.FileName()); err != nil {
			return fmt.Errorf("insert opcua map %s: %w", m.Name, err)
		}
		for _, asset := range m.Assets {
			if _, err := setpointStmt.Exec(m.Name, asset.ID, m.SetpointNode(asset)); err != nil {
				return fmt.Errorf("insert setpoint node for %s: %w", asset.ID, err)
			}
			for _, field := range m.TelemetryFields {
				if _, err := telemetryStmt.Exec(m.Name, asset.ID, field, m.TelemetryNode(asset, field)); err != nil {
					return fmt.Errorf("insert telemetry node for %s/%s: %w", asset.ID, field, err)
				}
			}
		}
	}
	return nil
}

func insertTagRows(tx *sql.Tx, rows []tagtree.Row) error {
	stmt, err := tx.Prepare(`INSERT INTO ignition_tags VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, row := range rows {
		var dataType, valueSource, readOnly, valueJSON any
		if !row.IsFolder() {
			dataType = string(row.DataType)
			valueSource = row.ValueSource
			readOnly = row.ReadOnly
			valueJSON = row.ValueJSON
		}
		if _, err := stmt.Exec(row.Path, row.TagType, dataType, valueSource, readOnly, valueJSON); err != nil {
			return fmt.Errorf("insert tag row %s: %w", row.Path, err)
		}
	}
	return nil
}
