package config

import (
	"fmt"
	"strings"
	"time"
)

// KustoConfig points at the Eventhouse database holding Sparklens telemetry.
type KustoConfig struct {
	ClusterURI string        `mapstructure:"cluster_uri"`
	Database   string        `mapstructure:"database"`
	Token      string        `mapstructure:"token"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
	Tables     KustoTables   `mapstructure:"tables"`
}

// KustoTables names the telemetry tables. The recommendation table names carry
// the spelling used by the Sparklens ingestion pipeline.
type KustoTables struct {
	Recommendations       string `mapstructure:"recommendations"`
	FabricRecommendations string `mapstructure:"fabric_recommendations"`
	Metrics               string `mapstructure:"metrics"`
	Metadata              string `mapstructure:"metadata"`
	Summary               string `mapstructure:"summary"`
	Predictions           string `mapstructure:"predictions"`
}

// Normalize fills default table names.
func (c KustoConfig) Normalize() KustoConfig {
	c.ClusterURI = strings.TrimRight(strings.TrimSpace(c.ClusterURI), "/")
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	t := &c.Tables
	if t.Recommendations == "" {
		t.Recommendations = "sparklens_recommedations"
	}
	if t.FabricRecommendations == "" {
		t.FabricRecommendations = "fabric_recommedations"
	}
	if t.Metrics == "" {
		t.Metrics = "sparklens_metrics"
	}
	if t.Metadata == "" {
		t.Metadata = "sparklens_metadata"
	}
	if t.Summary == "" {
		t.Summary = "sparklens_summary"
	}
	if t.Predictions == "" {
		t.Predictions = "sparklens_predictions"
	}
	return c
}

func (c KustoConfig) Validate() error {
	if c.ClusterURI == "" {
		return fmt.Errorf("kusto.cluster_uri required")
	}
	if !strings.HasPrefix(c.ClusterURI, "https://") && !strings.HasPrefix(c.ClusterURI, "http://") {
		return fmt.Errorf("kusto.cluster_uri must be an http(s) URL")
	}
	if strings.TrimSpace(c.Database) == "" {
		return fmt.Errorf("kusto.database required")
	}
	if strings.TrimSpace(c.Token) == "" {
		return fmt.Errorf("kusto.token required")
	}
	return nil
}

const (
	SearchBackendAzure = "azure"
	SearchBackendBleve = "bleve"
)

// SearchConfig selects the documentation index used for retrieval.
type SearchConfig struct {
	Backend    string `mapstructure:"backend"` // azure or bleve
	Endpoint   string `mapstructure:"endpoint"`
	APIKey     string `mapstructure:"api_key"`
	Index      string `mapstructure:"index"`
	APIVersion string `mapstructure:"api_version"`
	IndexPath  string `mapstructure:"index_path"` // bleve index directory; empty = in-memory
	DocsDir    string `mapstructure:"docs_dir"`   // markdown corpus for the indexer
}

func (c SearchConfig) Normalize() SearchConfig {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	if c.Backend == "" {
		c.Backend = SearchBackendBleve
	}
	c.Endpoint = strings.TrimRight(strings.TrimSpace(c.Endpoint), "/")
	if c.APIVersion == "" {
		c.APIVersion = "2023-11-01"
	}
	if c.Index == "" {
		c.Index = "spark-docs"
	}
	return c
}

func (c SearchConfig) Validate() error {
	switch c.Backend {
	case SearchBackendBleve:
		return nil
	case SearchBackendAzure:
		if c.Endpoint == "" {
			return fmt.Errorf("search.endpoint required for azure backend")
		}
		if strings.TrimSpace(c.APIKey) == "" {
			return fmt.Errorf("search.api_key required for azure backend")
		}
		return nil
	default:
		return fmt.Errorf("search.backend must be %q or %q, got %q", SearchBackendAzure, SearchBackendBleve, c.Backend)
	}
}

const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

// AdvisorConfig tunes the analysis pipeline.
type AdvisorConfig struct {
	SessionStore     string        `mapstructure:"session_store"` // memory or redis
	SessionTTL       time.Duration `mapstructure:"session_ttl"`
	CleanupInterval  time.Duration `mapstructure:"cleanup_interval"`
	SchemaCacheTTL   time.Duration `mapstructure:"schema_cache_ttl"`
	ReportCacheSize  int           `mapstructure:"report_cache_size"`
	RAGTopK          int           `mapstructure:"rag_top_k"`
	RAGMaxCategories int           `mapstructure:"rag_max_categories"`
	LLMFallbackBelow int           `mapstructure:"llm_fallback_below"` // rag result count under which the llm is asked
	QueryMaxRows     int           `mapstructure:"query_max_rows"`
	MaxFeedbackChars int           `mapstructure:"max_feedback_chars"`
}

func (c AdvisorConfig) Normalize() AdvisorConfig {
	c.SessionStore = strings.ToLower(strings.TrimSpace(c.SessionStore))
	if c.SessionStore == "" {
		c.SessionStore = SessionStoreMemory
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = 2 * time.Hour
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = 10 * time.Minute
	}
	if c.SchemaCacheTTL <= 0 {
		c.SchemaCacheTTL = time.Hour
	}
	if c.ReportCacheSize <= 0 {
		c.ReportCacheSize = 256
	}
	if c.RAGTopK <= 0 {
		c.RAGTopK = 2
	}
	if c.RAGMaxCategories <= 0 {
		c.RAGMaxCategories = 3
	}
	if c.LLMFallbackBelow <= 0 {
		c.LLMFallbackBelow = 3
	}
	if c.QueryMaxRows <= 0 {
		c.QueryMaxRows = 100
	}
	if c.MaxFeedbackChars <= 0 {
		c.MaxFeedbackChars = 10000
	}
	return c
}

func (c AdvisorConfig) Validate() error {
	if c.SessionStore != SessionStoreMemory && c.SessionStore != SessionStoreRedis {
		return fmt.Errorf("advisor.session_store must be %q or %q", SessionStoreMemory, SessionStoreRedis)
	}
	if c.RAGTopK > 20 {
		return fmt.Errorf("advisor.rag_top_k cannot exceed 20")
	}
	return nil
}
