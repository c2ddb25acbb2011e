package tagtree

import (
	"encoding/json"
	"fmt"

	"github.com/gridforge/ssot2scada/internal/ssot"
)

const (
	tagTypeFolder = "Folder"
	tagTypeAtomic = "AtomicTag"

	valueSourceMemory = "memory"
)

// Node is one entry of the recursive tag hierarchy: either a Folder or
// an AtomicTag.
type Node interface {
	NodeName() string
}

type Folder struct {
	Name string
	Tags []Node
}

func (f Folder) NodeName() string { return f.Name }

func (f Folder) MarshalJSON() ([]byte, error) {
	tags := f.Tags
	if tags == nil {
		tags = []Node{}
	}
	return json.Marshal(struct {
		Name    string `json:"name"`
		TagType string `json:"tagType"`
		Tags    []Node `json:"tags"`
	}{f.Name, tagTypeFolder, tags})
}

type AtomicTag struct {
	Name     string
	DataType DataType
	Value    any
	ReadOnly bool
}

func (t AtomicTag) NodeName() string { return t.Name }

func (t AtomicTag) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name        string   `json:"name"`
		TagType     string   `json:"tagType"`
		ValueSource string   `json:"valueSource"`
		DataType    DataType `json:"dataType"`
		Value       any      `json:"value"`
		ReadOnly    bool     `json:"readOnly"`
	}{t.Name, tagTypeAtomic, valueSourceMemory, t.DataType, t.Value, t.ReadOnly})
}

type Meta struct {
	GeneratedBy string `json:"generated_by"`
	Purpose     string `json:"purpose"`
	Notes       string `json:"notes"`
}

// Document is the tag import file: a meta block plus the tag hierarchy
// rooted at the Assets folder.
type Document struct {
	Meta Meta   `json:"meta"`
	Tags []Node `json:"tags"`
}

// Build assembles the full tag hierarchy for the fleet. Every asset owns
// one folder with exactly three children: telemetry (one tag per schema
// field), control (setpoint/duration/dispatch id) and events
// (last event). Asset order follows the validated document, not any
// sort, so reruns diff cleanly.
func Build(assets []ssot.Asset, schema []ssot.TelemetryField, generatedBy string) *Document {
	assetFolders := make([]Node, 0, len(assets))
	for _, asset := range assets {
		assetFolders = append(assetFolders, assetFolder(asset.Name, schema))
	}
	return &Document{
		Meta: Meta{
			GeneratedBy: generatedBy,
			Purpose:     "Tag definitions for telemetry/control values under [default]/Assets",
			Notes:       "These tags are runtime values updated by simulators or real assets.",
		},
		Tags: []Node{Folder{Name: "Assets", Tags: assetFolders}},
	}
}

func assetFolder(assetName string, schema []ssot.TelemetryField) Folder {
	telemetryTags := make([]Node, 0, len(schema))
	for _, field := range schema {
		dataType, defaultValue := DataTypeFor(field.Type)
		telemetryTags = append(telemetryTags, AtomicTag{
			Name:     field.Name,
			DataType: dataType,
			Value:    defaultValue,
		})
	}
	controlTags := []Node{
		AtomicTag{Name: "setpoint_mw", DataType: DataTypeFloat4, Value: 0},
		AtomicTag{Name: "duration_s", DataType: DataTypeInt4, Value: 0},
		AtomicTag{Name: "dispatch_id", DataType: DataTypeString, Value: ""},
	}
	eventTags := []Node{
		AtomicTag{Name: "last_event", DataType: DataTypeString, Value: ""},
	}
	return Folder{
		Name: assetName,
		Tags: []Node{
			Folder{Name: "telemetry", Tags: telemetryTags},
			Folder{Name: "control", Tags: controlTags},
			Folder{Name: "events", Tags: eventTags},
		},
	}
}

// Render serializes the document with a trailing newline, stable across
// runs for identical input.
func (d *Document) Render() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Parse decodes a rendered tag tree document, rebuilding the node
// hierarchy from the tagType discriminator.
func Parse(data []byte) (*Document, error) {
	var raw struct {
		Meta Meta              `json:"meta"`
		Tags []json.RawMessage `json:"tags"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse tag tree: %w", err)
	}
	tags, err := decodeNodes(raw.Tags)
	if err != nil {
		return nil, fmt.Errorf("parse tag tree: %w", err)
	}
	return &Document{Meta: raw.Meta, Tags: tags}, nil
}

func decodeNodes(raw []json.RawMessage) ([]Node, error) {
	nodes := make([]Node, 0, len(raw))
	for _, msg := range raw {
		node, err := decodeNode(msg)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func decodeNode(msg json.RawMessage) (Node, error) {
	var probe struct {
		Name     string            `json:"name"`
		TagType  string            `json:"tagType"`
		Tags     []json.RawMessage `json:"tags"`
		DataType DataType          `json:"dataType"`
		Value    any               `json:"value"`
		ReadOnly bool              `json:"readOnly"`
	}
	if err := json.Unmarshal(msg, &probe); err != nil {
		return nil, err
	}
	switch probe.TagType {
	case tagTypeFolder:
		children, err := decodeNodes(probe.Tags)
		if err != nil {
			return nil, err
		}
		return Folder{Name: probe.Name, Tags: children}, nil
	case tagTypeAtomic:
		return AtomicTag{
			Name:     probe.Name,
			DataType: probe.DataType,
			Value:    probe.Value,
			ReadOnly: probe.ReadOnly,
		}, nil
	default:
		return nil, fmt.Errorf("unknown tagType %q", probe.TagType)
	}
}

// Row is one flattened tag entry for the relational projection. Folder
// rows carry only path and type.
type Row struct {
	Path        string
	TagType     string
	DataType    DataType
	ValueSource string
	ReadOnly    bool
	ValueJSON   string
}

func (r Row) IsFolder() bool { return r.TagType == tagTypeFolder }

// Flatten walks the document depth-first and emits one row per node
// with slash-joined paths rooted at the top folders.
func (d *Document) Flatten() ([]Row, error) {
	var rows []Row
	for _, node := range d.Tags {
		if err := flattenNode(node, "", &rows); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

func flattenNode(node Node, prefix string, rows *[]Row) error {
	path := node.NodeName()
	if prefix != "" {
		path = prefix + "/" + path
	}
	switch n := node.(type) {
	case Folder:
		*rows = append(*rows, Row{Path: path, TagType: tagTypeFolder})
		for _, child := range n.Tags {
			if err := flattenNode(child, path, rows); err != nil {
				return err
			}
		}
	case AtomicTag:
		valueJSON, err := json.Marshal(n.Value)
		if err != nil {
			return err
		}
		*rows = append(*rows, Row{
			Path:        path,
			TagType:     tagTypeAtomic,
			DataType:    n.DataType,
			ValueSource: valueSourceMemory,
			ReadOnly:    n.ReadOnly,
			ValueJSON:   string(valueJSON),
		})
	default:
		return fmt.Errorf("unknown node type %T", node)
	}
	return nil
}
