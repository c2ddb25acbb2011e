package opcuamap

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// File is the consumer-side shape of a rendered address map, as the
// edge agents read it back.
type File struct {
	Endpoint           string                       `yaml:"endpoint"`
	DefaultSetpoint    string                       `yaml:"default_setpoint"`
	Setpoints          map[string]string            `yaml:"setpoints"`
	TelemetryIntervalS int64                        `yaml:"telemetry_interval_s"`
	TelemetryWriteSim  bool                         `yaml:"telemetry_write_sim"`
	TelemetryAssets    map[string]map[string]string `yaml:"telemetry_assets"`
}

func ParseFile(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse opcua map: %w", err)
	}
	return &f, nil
}

func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load opcua map: %w", err)
	}
	return ParseFile(data)
}
