package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/gridforge/ssot2scada/internal/config"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

func main() {

	cmd := "generate"
	args := os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd = args[0]
		args = args[1:]
	}

	if cmd == "version" {
		fmt.Printf("ssot2scada %s\n", versioninfo.Short())
		return
	}

	cfg, err := initConfig()
	if err != nil {
		slog.Error("config errors", "error", err)
		os.Exit(1)
	}

	// zap logger
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)

	logger := zap.Must(zapCfg.Build())
	defer logger.Sync()

	var runErr error
	switch cmd {
	case "generate":
		runErr = runGenerate(cfg, args, logger)
	case "report":
		runErr = runReport(cfg, args, logger)
	case "seed":
		runErr = runSeed(cfg, args, logger)
	case "serve":
		runErr = runServe(cfg, logger)
	case "poll":
		runErr = runPoll(cfg, args, logger)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", cmd)
		fmt.Fprintln(os.Stderr, "usage: ssot2scada [generate|report|seed|serve|poll|version] [flags]")
		os.Exit(2)
	}
	if runErr != nil {
		logger.Error("command failed", zap.String("command", cmd), zap.Error(runErr))
		os.Exit(1)
	}
}

func initConfig() (*config.Config, error) {

	setConfigDefaults()

	viper.SetEnvPrefix("ssot2scada")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// if defined, try to load config from yaml file
	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			slog.Info("Using config", "file", cfgFile)
			viper.SetConfigFile(cfgFile)

			err = viper.ReadInConfig()
			if err != nil {
				slog.Error("Error reading config file", "error", err)
			}
		}
	}

	var cfg config.Config

	err := viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	// parse log level
	switch viper.GetString("log_level") {
	case "trace":
		cfg.LogLevel = zap.DebugLevel
	case "debug":
		cfg.LogLevel = zap.DebugLevel
	case "info":
		cfg.LogLevel = zap.InfoLevel
	case "error":
		cfg.LogLevel = zap.ErrorLevel
	case "warn":
		cfg.LogLevel = zap.WarnLevel
	case "fatal":
		cfg.LogLevel = zap.FatalLevel
	default:
		cfg.LogLevel = zap.InfoLevel
	}

	// check and fix poll strategy
	strategy, err := config.CheckPollStrategy(cfg.Poll.Strategy)
	if err != nil {
		return nil, err
	}
	cfg.Poll.Strategy = strategy

	// check and fix mirror base topic
	if cfg.Poll.MirrorToMQTT {
		baseTopic, err := config.CheckMQTTTopic(cfg.MQTT.BaseTopic)
		if err != nil {
			return nil, err
		}
		cfg.MQTT.BaseTopic = baseTopic
	}

	// check bounds
	if cfg.Poll.IntervalSecs < 1 {
		return nil, fmt.Errorf("config param poll.interval_secs should be >= 1")
	}
	if cfg.Poll.TimeoutMillis < 100 {
		return nil, fmt.Errorf("config param poll.timeout_millis should be >= 100")
	}

	return &cfg, nil
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "info")
	viper.SetDefault("generate.ssot_path", "ignition_ssot.json")
	viper.SetDefault("generate.output_dir", ".")
	viper.SetDefault("generate.strict", true)
	viper.SetDefault("generate.skip_snapshot", false)
	viper.SetDefault("seed.asset_count", 100)
	viper.SetDefault("seed.output_path", "ignition_ssot.json")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.http_log", false)
	viper.SetDefault("server.artifact_dir", ".")
	viper.SetDefault("poll.endpoint_base", "http://localhost:8080/assets")
	viper.SetDefault("poll.tag_tree_path", "ignition_tags.json")
	viper.SetDefault("poll.inventory_path", "assets.yaml")
	viper.SetDefault("poll.strategy", config.StrategyDiscovery)
	viper.SetDefault("poll.interval_secs", 4)
	viper.SetDefault("poll.timeout_millis", 5000)
	viper.SetDefault("poll.mirror_to_mqtt", false)
	viper.SetDefault("poll.instance_prefix", "Assets")
	viper.SetDefault("mqtt.host", "localhost")
	viper.SetDefault("mqtt.port", 1883)
	viper.SetDefault("mqtt.base_topic", "ssot2scada")
}
