package budget

import "context"

type monitorKey struct{}

// WithMonitor attaches m to ctx so every LLM call of one analysis shares it.
func WithMonitor(ctx context.Context, m *Monitor) context.Context {
	return context.WithValue(ctx, monitorKey{}, m)
}

// MonitorFrom returns the monitor attached to ctx, or nil.
func MonitorFrom(ctx context.Context) *Monitor {
	m, _ := ctx.Value(monitorKey{}).(*Monitor)
	return m
}
