package ssot

import (
	"fmt"
	"strings"
)

// Validate checks referential and structural integrity of the document.
// Every violation is accumulated; the function never stops at the first
// defect so a document can be fixed in one pass. An empty result means
// the document is valid.
func Validate(doc *Document) []string {
	var violations []string

	seenSites := make(map[string]bool, len(doc.Sites))
	for _, site := range doc.Sites {
		if seenSites[site.ID] {
			violations = append(violations, fmt.Sprintf("duplicate site id %s", site.ID))
		}
		seenSites[site.ID] = true
	}

	for _, asset := range doc.Assets {
		if !seenSites[asset.SiteID] {
			violations = append(violations,
				fmt.Sprintf("asset %s references unknown site_id %s", asset.ID, asset.SiteID))
		}
	}

	for _, site := range doc.Sites {
		if site.OpcUa == nil {
			continue
		}
		if missing := site.OpcUa.MissingKeys(); len(missing) > 0 {
			violations = append(violations,
				fmt.Sprintf("site %s opcua config missing keys: %s", site.ID, strings.Join(missing, ", ")))
		}
	}

	seenFields := make(map[string]bool, len(doc.TelemetrySchema))
	for _, field := range doc.TelemetrySchema {
		if field.Name == "" || field.Type == "" {
			violations = append(violations, "telemetry_schema entries require name and type")
			continue
		}
		if seenFields[field.Name] {
			violations = append(violations,
				fmt.Sprintf("telemetry_schema has duplicate field %s", field.Name))
		}
		seenFields[field.Name] = true
		source := field.Source
		if source == "" {
			source = SourceDevice
		}
		if source != SourceDevice && source != SourceComputed {
			violations = append(violations,
				fmt.Sprintf("telemetry_schema field %s has invalid source %s", field.Name, source))
		}
	}

	return violations
}

// ViolationsError aggregates accumulated violations into a single error,
// one violation per line. Used by strict mode callers.
func ViolationsError(violations []string) error {
	return fmt.Errorf("validation failed:\n- %s", strings.Join(violations, "\n- "))
}
