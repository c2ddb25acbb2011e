package snapshot

import (
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ReportFileName is the rendered report artifact name.
const ReportFileName = "ssot_report.md"

// RenderReport reads a snapshot database and renders it as a Markdown
// report for review.
func RenderReport(dbPath string) ([]byte, error) {
	if !Available() {
		return nil, ErrUnavailable
	}
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer db.Close()

	var sections []string
	sections = append(sections, "# SSOT Configuration Report\n")
	sections = append(sections,
		"This report summarizes the single source of truth (SSOT) configuration and its generated outputs. "+
			"It is derived from the normalized snapshot database produced by the generator.\n")
	sections = append(sections, "## How To Update\n")
	sections = append(sections,
		"1. Edit the SSOT document to add sites, assets, or OPC UA settings.\n"+
			"2. Run `ssot2scada generate` to produce `assets.yaml`, `opcua_map_*.yaml`, `ignition_tags.json`, and `ssot.db`.\n"+
			"3. Deploy the generated files to the runtime environment (edge agents, headend, and tag imports).\n"+
			"4. Restart or reload services to pick up changes.\n"+
			"5. Regenerate this report to verify the results.\n")

	type section struct {
		title, intro, query string
	}
	for _, s := range []section{
		{
			"## Sites Summary\n",
			"Each row represents a site with rollups of the assets assigned to it. " +
				"Use this to confirm asset counts and capacity/limits per site.\n",
			`SELECT site_id, site_name, asset_count, capacity_mwhr_total, max_mw_total, min_mw_total
			FROM site_asset_summary ORDER BY site_name`,
		},
		{
			"## Assets by Site\n",
			"Static asset inventory grouped by site. This data feeds the headend and edge agent configuration.\n",
			`SELECT site_name, asset_name, asset_id, capacity_mwhr, max_mw, min_mw,
				min_soc_pct, max_soc_pct, efficiency, ramp_rate_mw_per_min
			FROM site_assets ORDER BY site_name, asset_name`,
		},
		{
			"## OPC UA Maps\n",
			"Per-site OPC UA connection and mapping configuration used by edge agents to read telemetry " +
				"and write setpoints.\n",
			`SELECT map_name, site_id, endpoint, tag_root, setpoint_provider, telemetry_provider,
				telemetry_interval_s, telemetry_write_sim
			FROM opcua_maps ORDER BY map_name`,
		},
		{
			"## OPC UA Setpoints\n",
			"Resolved setpoint node IDs per asset and map. These nodes are written when dispatching.\n",
			`SELECT map_name, site_name, asset_name, asset_id, node_id
			FROM opcua_setpoint_map ORDER BY map_name, asset_name`,
		},
		{
			"## OPC UA Telemetry\n",
			"Resolved telemetry node IDs per asset and field. These nodes are read to ingest telemetry.\n",
			`SELECT map_name, site_name, asset_name, asset_id, field, node_id
			FROM opcua_telemetry_map ORDER BY map_name, asset_name, field`,
		},
		{
			"## Ignition Tags Summary\n",
			"Summary counts of tags generated for the default Assets hierarchy. " +
				"These tags represent live telemetry/control values, not static configuration.\n",
			`SELECT tag_type, COUNT(*) AS count FROM ignition_tags GROUP BY tag_type ORDER BY tag_type`,
		},
	} {
		table, err := queryTable(db, s.query)
		if err != nil {
			return nil, err
		}
		sections = append(sections, s.title, s.intro, table)
	}

	byAsset, err := tagsByAsset(db)
	if err != nil {
		return nil, err
	}
	sections = append(sections, "## Ignition Tags by Asset\n",
		"Breakdown of tag counts per asset derived from the generated tag tree.\n", byAsset)

	return []byte(strings.Join(sections, "\n")), nil
}

func queryTable(db *sql.DB, query string) (string, error) {
	rows, err := db.Query(query)
	if err != nil {
		return "", fmt.Errorf("report query: %w", err)
	}
	defer rows.Close()

	headers, err := rows.Columns()
	if err != nil {
		return "", err
	}

	var table [][]string
	for rows.Next() {
		values := make([]any, len(headers))
		for i := range values {
			values[i] = new(any)
		}
		if err := rows.Scan(values...); err != nil {
			return "", err
		}
		cells := make([]string, len(headers))
		for i, v := range values {
			cells[i] = formatCell(*v.(*any))
		}
		table = append(table, cells)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	return mdTable(headers, table), nil
}

func formatCell(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(value)
	case float64:
		return strconv.FormatFloat(value, 'g', -1, 64)
	case int64:
		return strconv.FormatInt(value, 10)
	case bool:
		return strconv.FormatBool(value)
	default:
		return fmt.Sprintf("%v", value)
	}
}

func mdTable(headers []string, rows [][]string) string {
	if len(rows) == 0 {
		return "(no rows)\n"
	}
	var lines []string
	lines = append(lines, "| "+strings.Join(headers, " | ")+" |")
	seps := make([]string, len(headers))
	for i := range seps {
		seps[i] = " --- "
	}
	lines = append(lines, "|"+strings.Join(seps, "|")+"|")
	for _, row := range rows {
		lines = append(lines, "| "+strings.Join(row, " | ")+" |")
	}
	return strings.Join(lines, "\n") + "\n"
}

// tagsByAsset groups tag counts per asset. The asset name is the second
// path segment; extraction happens here rather than in SQL.
func tagsByAsset(db *sql.DB) (string, error) {
	rows, err := db.Query(`SELECT tag_path, tag_type FROM ignition_tags
		WHERE tag_path LIKE 'Assets/%' AND tag_path <> 'Assets'`)
	if err != nil {
		return "", fmt.Errorf("report query: %w", err)
	}
	defer rows.Close()

	type counts struct{ total, atomic, folder int }
	byAsset := make(map[string]*counts)
	for rows.Next() {
		var tagPath, tagType string
		if err := rows.Scan(&tagPath, &tagType); err != nil {
			return "", err
		}
		assetName := strings.SplitN(tagPath, "/", 3)[1]
		c := byAsset[assetName]
		if c == nil {
			c = &counts{}
			byAsset[assetName] = c
		}
		c.total++
		if tagType == "AtomicTag" {
			c.atomic++
		} else {
			c.folder++
		}
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	names := make([]string, 0, len(byAsset))
	for name := range byAsset {
		names = append(names, name)
	}
	sort.Strings(names)

	table := make([][]string, 0, len(names))
	for _, name := range names {
		c := byAsset[name]
		table = append(table, []string{
			name,
			strconv.Itoa(c.total),
			strconv.Itoa(c.atomic),
			strconv.Itoa(c.folder),
		})
	}
	return mdTable([]string{"asset_name", "tag_count", "atomic_count", "folder_count"}, table), nil
}
