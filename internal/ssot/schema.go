package ssot

import "errors"

// defaultTelemetrySchema is the schema applied when a document declares
// none. Order is significant: it drives tag-tree child ordering and must
// stay byte-identical across runs. setpoint_mw is the only field not read
// from the device.
var defaultTelemetrySchema = []TelemetryField{
	{Name: "soc_pct", Type: "float64", Source: SourceDevice},
	{Name: "soc_mwhr", Type: "float64", Source: SourceDevice},
	{Name: "current_mw", Type: "float64", Source: SourceDevice},
	{Name: "setpoint_mw", Type: "float64", Source: SourceComputed},
	{Name: "status", Type: "string", Source: SourceDevice},
	{Name: "voltage_v", Type: "float64", Source: SourceDevice},
	{Name: "current_a", Type: "float64", Source: SourceDevice},
	{Name: "dc_bus_v", Type: "float64", Source: SourceDevice},
	{Name: "dc_bus_a", Type: "float64", Source: SourceDevice},
	{Name: "temperature_cell_f", Type: "float64", Source: SourceDevice},
	{Name: "temperature_module_f", Type: "float64", Source: SourceDevice},
	{Name: "temperature_ambient_f", Type: "float64", Source: SourceDevice},
	{Name: "soh_pct", Type: "float64", Source: SourceDevice},
	{Name: "cycle_count", Type: "uint64", Source: SourceDevice},
	{Name: "energy_in_mwh", Type: "float64", Source: SourceDevice},
	{Name: "energy_out_mwh", Type: "float64", Source: SourceDevice},
	{Name: "available_charge_kw", Type: "float64", Source: SourceDevice},
	{Name: "available_discharge_kw", Type: "float64", Source: SourceDevice},
}

// SchemaDeriver resolves a document's telemetry schema against a fixed
// set of defaults. The defaults are injected at construction and never
// mutated afterwards.
type SchemaDeriver struct {
	defaults []TelemetryField
}

func NewSchemaDeriver() *SchemaDeriver {
	return &SchemaDeriver{defaults: defaultTelemetrySchema}
}

func NewSchemaDeriverWithDefaults(defaults []TelemetryField) *SchemaDeriver {
	return &SchemaDeriver{defaults: defaults}
}

// Derive returns the fully-populated ordered field list for a document.
// An absent or empty declared schema yields a copy of the defaults;
// a declared schema is returned in declaration order with `source`
// defaulted to device.
func (d *SchemaDeriver) Derive(doc *Document) ([]TelemetryField, error) {
	if len(doc.TelemetrySchema) == 0 {
		out := make([]TelemetryField, len(d.defaults))
		copy(out, d.defaults)
		return out, nil
	}
	out := make([]TelemetryField, 0, len(doc.TelemetrySchema))
	for _, field := range doc.TelemetrySchema {
		if field.Name == "" || field.Type == "" {
			return nil, errors.New("telemetry_schema entries require name and type")
		}
		source := field.Source
		if source == "" {
			source = SourceDevice
		}
		out = append(out, TelemetryField{Name: field.Name, Type: field.Type, Source: source})
	}
	return out, nil
}
