// Package mcp exposes the advisor as Model Context Protocol tools.
package mcp

import (
	"context"
	"errors"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/sparkadvisor/internal/advisor"
	"github.com/mohammad-safakhou/sparkadvisor/internal/docs"
	"github.com/mohammad-safakhou/sparkadvisor/internal/kusto"
	"github.com/mohammad-safakhou/sparkadvisor/internal/recommend"
)

var errAppIDRequired = errors.New("application_id is required")

// Server wraps the MCP SDK server around one Advisor.
type Server struct {
	MCPServer *sdkmcp.Server

	advisor *advisor.Advisor
	logger  *zap.Logger
}

func NewServer(adv *advisor.Advisor, version string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if version == "" {
		version = "dev"
	}
	s := &Server{advisor: adv, logger: logger}
	s.MCPServer = sdkmcp.NewServer(&sdkmcp.Implementation{Name: "sparkadvisor", Version: version}, nil)
	s.registerTools()
	return s
}

// Run serves over stdio until ctx is done or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.MCPServer.Run(ctx, &sdkmcp.StdioTransport{})
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "get_spark_recommendations",
		Description: "Get the Sparklens and Fabric recommendations recorded in telemetry for one Spark application.",
	}, s.handleRecommendations)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "get_worst_applications",
		Description: "List the applications with the most telemetry recommendations.",
	}, s.handleWorst)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "get_full_application_report",
		Description: "Get every telemetry record for an application: recommendations, stage summary and scaling predictions.",
	}, s.handleReport)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "get_common_bad_patterns",
		Description: "List the recommendations shared by the most applications.",
	}, s.handlePatterns)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name: "search_recommendations_by_category",
		Description: "Find telemetry recommendations across all applications that match a category (" +
			strings.Join(kusto.Categories(), ", ") + "). Other words are searched for as is.",
	}, s.handleCategory)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "search_spark_docs",
		Description: "Search the Spark and Fabric documentation index.",
	}, s.handleSearchDocs)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "execute_kql_query",
		Description: "Run a read-only KQL query over the telemetry tables. Write and control commands are rejected and results are capped.",
	}, s.handleQuery)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "validate_recommendations",
		Description: "Reconcile recommendations from kusto, rag and llm sources into one prioritized list. Telemetry items are kept verbatim.",
	}, s.handleValidate)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "analyze_application",
		Description: "Run the full analysis of an application: telemetry, documentation, LLM fallback and judge validation.",
	}, s.handleAnalyze)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "analyze_skew",
		Description: "Find stages with task or shuffle skew and explain how to fix them.",
	}, s.handleSkew)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "analyze_scaling",
		Description: "Decide whether adding or removing executors would help, using Sparklens scaling predictions.",
	}, s.handleScaling)
}

// --- Tool input/output types ---

type appInput struct {
	ApplicationID string `json:"application_id" jsonschema:"Spark application id, e.g. application_1700000000000_0001"`
}

type recommendationsOutput struct {
	ApplicationID         string                 `json:"application_id"`
	Recommendations       []kusto.Recommendation `json:"recommendations"`
	FabricRecommendations []kusto.Recommendation `json:"fabric_recommendations"`
	Count                 int                    `json:"count"`
}

type worstInput struct {
	TopN int `json:"top_n,omitempty" jsonschema:"number of applications to return (default 10)"`
}

type worstOutput struct {
	Applications []kusto.WorstApp `json:"applications"`
}

type emptyInput struct{}

type patternsOutput struct {
	Patterns []kusto.Pattern `json:"patterns"`
}

type categoryInput struct {
	Category string `json:"category" jsonschema:"category name such as memory, shuffle or gc"`
}

type categoryOutput struct {
	Category        string                `json:"category"`
	Recommendations []kusto.CategoryMatch `json:"recommendations"`
	Count           int                   `json:"count"`
}

type searchInput struct {
	Query    string `json:"query" jsonschema:"search text"`
	TopK     int    `json:"top_k,omitempty" jsonschema:"number of results, 1-20 (default 5)"`
	Category string `json:"category,omitempty" jsonschema:"restrict to one documentation category"`
}

type searchOutput struct {
	Results []docs.Document `json:"results"`
	Count   int             `json:"count"`
}

type queryInput struct {
	Query string `json:"query" jsonschema:"KQL query over sparklens_* or fabric_* tables, or a .show command"`
}

type queryOutput struct {
	Rows     []kusto.Row `json:"rows"`
	RowCount int         `json:"row_count"`
}

type validateInput struct {
	ApplicationID   string                     `json:"application_id" jsonschema:"application the recommendations belong to"`
	Recommendations []recommend.Recommendation `json:"recommendations" jsonschema:"items with text, source (kusto, rag or llm) and optional metadata"`
	Context         map[string]any             `json:"context,omitempty" jsonschema:"application metrics shown to the judge"`
}

type analyzeInput struct {
	ApplicationID string `json:"application_id" jsonschema:"Spark application id"`
	SessionID     string `json:"session_id,omitempty" jsonschema:"conversation session to update; a new one is created when empty"`
}

type analyzeOutput struct {
	SessionID    string           `json:"session_id"`
	Result       recommend.Result `json:"result"`
	SourceCounts map[string]int   `json:"source_counts"`
	Report       string           `json:"report"`
}

// --- Tool handlers ---

func requireApp(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errAppIDRequired
	}
	return id, nil
}

func (s *Server) handleRecommendations(ctx context.Context, _ *sdkmcp.CallToolRequest, input appInput) (*sdkmcp.CallToolResult, recommendationsOutput, error) {
	appID, err := requireApp(input.ApplicationID)
	if err != nil {
		return nil, recommendationsOutput{}, err
	}
	rep, err := s.advisor.Report(ctx, appID)
	if err != nil {
		return nil, recommendationsOutput{}, err
	}
	out := recommendationsOutput{
		ApplicationID:         appID,
		Recommendations:       orEmpty(rep.Recommendations),
		FabricRecommendations: orEmpty(rep.FabricRecommendations),
	}
	out.Count = len(out.Recommendations) + len(out.FabricRecommendations)
	return nil, out, nil
}

func (s *Server) handleWorst(ctx context.Context, _ *sdkmcp.CallToolRequest, input worstInput) (*sdkmcp.CallToolResult, worstOutput, error) {
	n := input.TopN
	if n <= 0 {
		n = 10
	}
	apps, err := s.advisor.WorstApplications(ctx, n)
	if err != nil {
		return nil, worstOutput{}, err
	}
	return nil, worstOutput{Applications: orEmpty(apps)}, nil
}

func (s *Server) handleReport(ctx context.Context, _ *sdkmcp.CallToolRequest, input appInput) (*sdkmcp.CallToolResult, kusto.Report, error) {
	appID, err := requireApp(input.ApplicationID)
	if err != nil {
		return nil, kusto.Report{}, err
	}
	rep, err := s.advisor.Report(ctx, appID)
	if err != nil {
		return nil, kusto.Report{}, err
	}
	rep.Recommendations = orEmpty(rep.Recommendations)
	rep.FabricRecommendations = orEmpty(rep.FabricRecommendations)
	rep.Stages = orEmpty(rep.Stages)
	rep.Predictions = orEmpty(rep.Predictions)
	return nil, rep, nil
}

func (s *Server) handlePatterns(ctx context.Context, _ *sdkmcp.CallToolRequest, _ emptyInput) (*sdkmcp.CallToolResult, patternsOutput, error) {
	patterns, err := s.advisor.CommonBadPatterns(ctx)
	if err != nil {
		return nil, patternsOutput{}, err
	}
	return nil, patternsOutput{Patterns: orEmpty(patterns)}, nil
}

func (s *Server) handleCategory(ctx context.Context, _ *sdkmcp.CallToolRequest, input categoryInput) (*sdkmcp.CallToolResult, categoryOutput, error) {
	matches, err := s.advisor.RecommendationsByCategory(ctx, input.Category)
	if err != nil {
		return nil, categoryOutput{}, err
	}
	return nil, categoryOutput{
		Category:        strings.TrimSpace(input.Category),
		Recommendations: orEmpty(matches),
		Count:           len(matches),
	}, nil
}

func (s *Server) handleSearchDocs(ctx context.Context, _ *sdkmcp.CallToolRequest, input searchInput) (*sdkmcp.CallToolResult, searchOutput, error) {
	found, err := s.advisor.SearchDocs(ctx, docs.Query{Text: input.Query, TopK: input.TopK, Category: input.Category})
	if err != nil {
		return nil, searchOutput{}, err
	}
	return nil, searchOutput{Results: orEmpty(found), Count: len(found)}, nil
}

func (s *Server) handleQuery(ctx context.Context, _ *sdkmcp.CallToolRequest, input queryInput) (*sdkmcp.CallToolResult, queryOutput, error) {
	rows, err := s.advisor.Query(ctx, input.Query)
	if err != nil {
		s.logger.Warn("query rejected", zap.Error(err))
		return nil, queryOutput{}, err
	}
	return nil, queryOutput{Rows: orEmpty(rows), RowCount: len(rows)}, nil
}

// handleValidate answers with the fallback result when the judge fails; only
// malformed input is a tool error.
func (s *Server) handleValidate(ctx context.Context, _ *sdkmcp.CallToolRequest, input validateInput) (*sdkmcp.CallToolResult, recommend.Result, error) {
	appID := strings.TrimSpace(input.ApplicationID)
	if appID == "" {
		appID = "unknown"
	}
	res, err := s.advisor.ValidateRecommendations(ctx, appID, input.Recommendations, input.Context)
	if res == nil {
		return nil, recommend.Result{}, err
	}
	return nil, *res, nil
}

func (s *Server) handleAnalyze(ctx context.Context, _ *sdkmcp.CallToolRequest, input analyzeInput) (*sdkmcp.CallToolResult, analyzeOutput, error) {
	appID, err := requireApp(input.ApplicationID)
	if err != nil {
		return nil, analyzeOutput{}, err
	}
	res, err := s.advisor.Analyze(ctx, appID, input.SessionID)
	if err != nil {
		return nil, analyzeOutput{}, err
	}
	counts := make(map[string]int, len(res.SourceCounts))
	for src, n := range res.SourceCounts {
		counts[string(src)] = n
	}
	return nil, analyzeOutput{
		SessionID:    res.SessionID,
		Result:       res.Result,
		SourceCounts: counts,
		Report:       advisor.FormatAnalysis(res),
	}, nil
}

func (s *Server) handleSkew(ctx context.Context, _ *sdkmcp.CallToolRequest, input appInput) (*sdkmcp.CallToolResult, advisor.SkewAnalysis, error) {
	appID, err := requireApp(input.ApplicationID)
	if err != nil {
		return nil, advisor.SkewAnalysis{}, err
	}
	return nil, *s.advisor.AnalyzeSkew(ctx, appID), nil
}

func (s *Server) handleScaling(ctx context.Context, _ *sdkmcp.CallToolRequest, input appInput) (*sdkmcp.CallToolResult, advisor.ScalingAnalysis, error) {
	appID, err := requireApp(input.ApplicationID)
	if err != nil {
		return nil, advisor.ScalingAnalysis{}, err
	}
	return nil, *s.advisor.AnalyzeScaling(ctx, appID), nil
}

// orEmpty keeps empty lists encoded as [] rather than null.
func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
