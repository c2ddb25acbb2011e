package tagtree

import "strings"

// DataType is a supervisory tag data type as understood by the tag
// provider import format.
type DataType string

const (
	DataTypeFloat4  DataType = "Float4"
	DataTypeInt8    DataType = "Int8"
	DataTypeInt4    DataType = "Int4"
	DataTypeBoolean DataType = "Boolean"
	DataTypeString  DataType = "String"
)

// DataTypeFor maps an abstract telemetry field type name to a concrete
// tag data type and its default value. Matching is case-insensitive and
// merges the native type aliases. An unrecognized name falls back to
// (Float4, 0): a malformed schema entry should still yield a usable tag
// rather than abort generation.
func DataTypeFor(fieldType string) (DataType, any) {
	switch strings.ToLower(fieldType) {
	case "f64", "float64", "float", "double", "number":
		return DataTypeFloat4, 0
	case "i64", "int64", "integer", "int":
		return DataTypeInt8, 0
	case "u64", "uint64", "uint":
		return DataTypeInt8, 0
	case "bool", "boolean":
		return DataTypeBoolean, false
	case "string", "str":
		return DataTypeString, ""
	default:
		return DataTypeFloat4, 0
	}
}
