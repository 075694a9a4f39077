package advisor

import (
	"context"
	"fmt"

	"github.com/mohammad-safakhou/sparkadvisor/internal/kusto"
)

const schemaKey = "schema"

// Schema returns the telemetry database schema, cached for the configured TTL.
func (a *Advisor) Schema(ctx context.Context) (kusto.Schema, error) {
	if s, ok := a.schemaCache.Get(schemaKey); ok {
		return s, nil
	}
	s, err := a.kusto.DatabaseSchema(ctx)
	if err != nil {
		return nil, fmt.Errorf("database schema: %w", err)
	}
	a.schemaCache.Add(schemaKey, s)
	return s, nil
}

// Query runs a caller-written read query behind the safety guard.
func (a *Advisor) Query(ctx context.Context, kql string) ([]kusto.Row, error) {
	ctx, span := a.tracer.Start(ctx, "advisor.query")
	defer span.End()
	return a.kusto.ExecuteQuery(ctx, kql, a.cfg.QueryMaxRows)
}

// Report returns the raw telemetry report of appID, cached briefly.
func (a *Advisor) Report(ctx context.Context, appID string) (kusto.Report, error) {
	if rep, ok := a.reportCache.Get(appID); ok {
		return rep, nil
	}
	rep, err := a.kusto.FullReport(ctx, appID)
	if err != nil {
		return rep, fmt.Errorf("full report: %w", err)
	}
	a.reportCache.Add(appID, rep)
	return rep, nil
}
