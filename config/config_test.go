package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{"kusto":{"cluster_uri":"https://trd.kusto.fabric.microsoft.com/","database":"spark"}}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":10001", cfg.Server.Address)
	assert.Equal(t, "https://trd.kusto.fabric.microsoft.com", cfg.Kusto.ClusterURI)
	assert.Equal(t, "sparklens_recommedations", cfg.Kusto.Tables.Recommendations)
	assert.Equal(t, "fabric_recommedations", cfg.Kusto.Tables.FabricRecommendations)
	assert.Equal(t, 0.3, cfg.LLM.Judge.Temperature)
	assert.Equal(t, 4000, cfg.LLM.Judge.MaxTokens)
	assert.Equal(t, 0.7, cfg.LLM.Recommend.Temperature)
	assert.Equal(t, 2*time.Hour, cfg.Advisor.SessionTTL)
	assert.Equal(t, time.Hour, cfg.Advisor.SchemaCacheTTL)
	assert.Equal(t, 2, cfg.Advisor.RAGTopK)
	assert.Equal(t, 3, cfg.Advisor.RAGMaxCategories)
	assert.Equal(t, SearchBackendBleve, cfg.Search.Backend)
	assert.Equal(t, SessionStoreMemory, cfg.Advisor.SessionStore)
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, `{"kusto":{"database":"spark"}}`)
	t.Setenv("SPARKADVISOR_KUSTO_DATABASE", "spark_prod")
	t.Setenv("SPARKADVISOR_SERVER_ADDRESS", ":9999")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "spark_prod", cfg.Kusto.Database)
	assert.Equal(t, ":9999", cfg.Server.Address)
}

func TestLoadRejectsRedisSessionsWithoutHost(t *testing.T) {
	path := writeConfig(t, `{"advisor":{"session_store":"redis"}}`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage.redis.host")
}

func TestServiceValidation(t *testing.T) {
	k := KustoConfig{ClusterURI: "kusto.local", Database: "db", Token: "t"}.Normalize()
	assert.Error(t, k.Validate())

	l := LLMConfig{Type: "azure", Endpoint: "https://x.openai.azure.com", APIKey: "k", Deployment: "gpt-4o", APIVersion: "v"}.Normalize()
	assert.NoError(t, l.Validate())
	l.Judge.Temperature = 3
	assert.Error(t, l.Validate())

	s := SearchConfig{Backend: "azure"}.Normalize()
	assert.Error(t, s.Validate())
}
