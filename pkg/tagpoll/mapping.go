package tagpoll

import "sort"

// Mapping resolves a polled JSON payload into tag paths and values
// relative to one asset's tag folder. Unresolvable payload fields are
// reported back, never an error: a schema/tree mismatch should degrade
// the poll, not fail it.
type Mapping interface {
	Resolve(assetPath string, payload map[string]any) (paths []string, values []any, missing []string)
}

// StaticMapping is an explicit payload-field to relative-tag-path
// table. Payload fields without a table entry are reported missing.
type StaticMapping map[string]string

var _ Mapping = StaticMapping{}

func (m StaticMapping) Resolve(assetPath string, payload map[string]any) ([]string, []any, []string) {
	var paths []string
	var values []any
	var missing []string
	for _, field := range sortedKeys(payload) {
		rel, ok := m[field]
		if !ok {
			missing = append(missing, field)
			continue
		}
		paths = append(paths, assetPath+"/"+rel)
		values = append(values, payload[field])
	}
	return paths, values, missing
}

// StaticMappingForFields builds the conventional table mapping each
// telemetry field to telemetry/<field>.
func StaticMappingForFields(fields []string) StaticMapping {
	m := make(StaticMapping, len(fields))
	for _, field := range fields {
		m[field] = "telemetry/" + field
	}
	return m
}

// DiscoveryMapping resolves fields by browsing the tag hierarchy
// instead of trusting a declared table: a field maps to
// telemetry/<field> only when that tag exists. Fields without a live
// tag are skipped and reported, not failed.
type DiscoveryMapping struct {
	Index TagIndex
}

var _ Mapping = DiscoveryMapping{}

func (m DiscoveryMapping) Resolve(assetPath string, payload map[string]any) ([]string, []any, []string) {
	var paths []string
	var values []any
	var missing []string
	for _, field := range sortedKeys(payload) {
		path := assetPath + "/telemetry/" + field
		if !m.Index.HasTag(path) {
			missing = append(missing, field)
			continue
		}
		paths = append(paths, path)
		values = append(values, payload[field])
	}
	return paths, values, missing
}

// map iteration order is random; resolve in sorted field order so
// writes are reproducible
func sortedKeys(payload map[string]any) []string {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
