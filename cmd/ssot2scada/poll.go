package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gridforge/ssot2scada/internal/config"
	"github.com/gridforge/ssot2scada/internal/inventory"
	"github.com/gridforge/ssot2scada/internal/opcuamap"
	"github.com/gridforge/ssot2scada/internal/ssot"
	"github.com/gridforge/ssot2scada/internal/tagtree"
	"github.com/gridforge/ssot2scada/pkg/tagpoll"

	"go.uber.org/zap"
)

func runPoll(cfg *config.Config, args []string, logger *zap.Logger) error {
	fs := flag.NewFlagSet("poll", flag.ContinueOnError)
	once := fs.Bool("once", false, "poll each asset a single time and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := storeFromTagTree(cfg.Poll.TagTreePath)
	if err != nil {
		return err
	}

	invData, err := os.ReadFile(cfg.Poll.InventoryPath)
	if err != nil {
		return fmt.Errorf("load inventory: %w", err)
	}
	doc, err := inventory.Parse(invData)
	if err != nil {
		return err
	}
	bindings := make([]tagpoll.AssetBinding, 0, len(doc.Assets))
	for _, asset := range doc.Assets {
		bindings = append(bindings, tagpoll.AssetBinding{
			AssetID: asset.ID,
			TagPath: cfg.Poll.InstancePrefix + "/" + asset.Name,
		})
	}

	// the address map's telemetry interval wins over the configured one
	interval := time.Duration(cfg.Poll.IntervalSecs) * time.Second
	if cfg.Poll.MapPath != "" {
		mapFile, err := opcuamap.LoadFile(cfg.Poll.MapPath)
		if err != nil {
			return err
		}
		if mapFile.TelemetryIntervalS > 0 {
			interval = time.Duration(mapFile.TelemetryIntervalS) * time.Second
		}
	}

	var mapping tagpoll.Mapping
	if cfg.Poll.Strategy == config.StrategyStatic {
		schema, err := ssot.NewSchemaDeriver().Derive(doc)
		if err != nil {
			return err
		}
		fields := make([]string, 0, len(schema))
		for _, field := range schema {
			fields = append(fields, field.Name)
		}
		mapping = tagpoll.StaticMappingForFields(fields)
	} else {
		mapping = tagpoll.DiscoveryMapping{Index: store}
	}

	var writer tagpoll.TagWriter = store
	if cfg.Poll.MirrorToMQTT {
		mirror := tagpoll.NewMQTTMirror(tagpoll.MQTTMirrorConfig{
			Host:      cfg.MQTT.Host,
			Port:      cfg.MQTT.Port,
			Username:  cfg.MQTT.Username,
			Password:  cfg.MQTT.Password,
			BaseTopic: cfg.MQTT.BaseTopic,
		}, 5*time.Second)
		if err := mirror.Connect(); err != nil {
			return fmt.Errorf("connect MQTT mirror: %w", err)
		}
		defer mirror.Disconnect(time.Second)
		writer = tagpoll.TeeWriter{store, mirror}
	}

	timeout := time.Duration(cfg.Poll.TimeoutMillis) * time.Millisecond
	poller := tagpoll.NewPoller(cfg.Poll.EndpointBase, mapping, writer, timeout, logger)

	if *once {
		for _, binding := range bindings {
			result := poller.PollOnce(binding.AssetID, binding.TagPath)
			logger.Info("poll", zap.String("asset_id", result.AssetID),
				zap.Bool("comms_ok", result.CommsOk), zap.Int("written", len(result.Written)))
		}
		return nil
	}

	runner := tagpoll.NewRunner(poller, bindings, interval, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := runner.Start(ctx); err != nil {
		return err
	}
	logger.Info("polling started", zap.Int("assets", len(bindings)),
		zap.Duration("interval", interval), zap.String("strategy", cfg.Poll.Strategy))

	<-ctx.Done()
	runner.Stop()
	waitCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	runner.Wait(waitCtx)
	return nil
}

// storeFromTagTree seeds an in-memory tag store with every atomic tag of
// a rendered tag tree, at its default value.
func storeFromTagTree(path string) (*tagpoll.MemoryStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load tag tree: %w", err)
	}
	tree, err := tagtree.Parse(data)
	if err != nil {
		return nil, err
	}
	rows, err := tree.Flatten()
	if err != nil {
		return nil, err
	}
	store := tagpoll.NewMemoryStore()
	for _, row := range rows {
		if row.IsFolder() {
			continue
		}
		var value any
		if err := json.Unmarshal([]byte(row.ValueJSON), &value); err != nil {
			return nil, fmt.Errorf("tag %s: decode value: %w", row.Path, err)
		}
		store.Seed(row.Path, value)
	}
	return store, nil
}
