package tagpoll

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStaticMappingResolve(t *testing.T) {
	mapping := StaticMappingForFields([]string{"soc_pct", "current_mw"})
	payload := map[string]any{"soc_pct": 55.0, "current_mw": -1.2, "unknown": 1}

	paths, values, missing := mapping.Resolve("Assets/BESS-1", payload)

	assert.Equal(t, []string{"Assets/BESS-1/telemetry/current_mw", "Assets/BESS-1/telemetry/soc_pct"}, paths)
	assert.Equal(t, []any{-1.2, 55.0}, values)
	assert.Equal(t, []string{"unknown"}, missing)
}

func TestStaticMappingCustomTable(t *testing.T) {
	mapping := StaticMapping{"soc_pct": "SOC_percent"}

	paths, values, missing := mapping.Resolve("Assets/BESS-1", map[string]any{"soc_pct": 42.0})
	assert.Equal(t, []string{"Assets/BESS-1/SOC_percent"}, paths)
	assert.Equal(t, []any{42.0}, values)
	assert.Empty(t, missing)
}

func TestDiscoveryMappingSkipsAbsentTags(t *testing.T) {
	store := NewMemoryStore()
	store.Seed("Assets/BESS-1/telemetry/soc_pct", 0)

	mapping := DiscoveryMapping{Index: store}
	payload := map[string]any{"soc_pct": 55.0, "ghost_field": 1.0}

	paths, values, missing := mapping.Resolve("Assets/BESS-1", payload)
	assert.Equal(t, []string{"Assets/BESS-1/telemetry/soc_pct"}, paths)
	assert.Equal(t, []any{55.0}, values)
	assert.Equal(t, []string{"ghost_field"}, missing)
}
