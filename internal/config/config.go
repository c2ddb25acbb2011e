package config

import (
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap/zapcore"
)

type Config struct {
	LogLevel zapcore.Level
	Generate GenerateConfig `mapstructure:"generate"`
	Seed     SeedConfig     `mapstructure:"seed"`
	Server   ServerConfig   `mapstructure:"server"`
	Poll     PollConfig     `mapstructure:"poll"`
	MQTT     MQTTConfig     `mapstructure:"mqtt"`
}

type GenerateConfig struct {
	SSOTPath     string `mapstructure:"ssot_path"`
	OutputDir    string `mapstructure:"output_dir"`
	Strict       bool   `mapstructure:"strict"`
	SkipSnapshot bool   `mapstructure:"skip_snapshot"`
}

type SeedConfig struct {
	AssetCount uint   `mapstructure:"asset_count"`
	OutputPath string `mapstructure:"output_path"`
}

type ServerConfig struct {
	Port        uint   `mapstructure:"port"`
	HttpLog     bool   `mapstructure:"http_log"`
	ArtifactDir string `mapstructure:"artifact_dir"`
}

type PollConfig struct {
	EndpointBase   string `mapstructure:"endpoint_base"`
	TagTreePath    string `mapstructure:"tag_tree_path"`
	InventoryPath  string `mapstructure:"inventory_path"`
	MapPath        string `mapstructure:"map_path"`
	Strategy       string `mapstructure:"strategy"`
	IntervalSecs   uint32 `mapstructure:"interval_secs"`
	TimeoutMillis  uint32 `mapstructure:"timeout_millis"`
	MirrorToMQTT   bool   `mapstructure:"mirror_to_mqtt"`
	InstancePrefix string `mapstructure:"instance_prefix"`
}

type MQTTConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	BaseTopic string `mapstructure:"base_topic"`
}

const (
	StrategyStatic    = "static"
	StrategyDiscovery = "discovery"
)

// CheckPollStrategy validates the mapping strategy selector.
func CheckPollStrategy(strategy string) (string, error) {
	s := strings.ToLower(strategy)
	if s != StrategyStatic && s != StrategyDiscovery {
		return "", errors.New("invalid poll strategy. must be static or discovery")
	}
	return s, nil
}

// CheckMQTTTopic checks and normalizes an MQTT base topic.
func CheckMQTTTopic(baseTopic string) (string, error) {
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}
