package advisor

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mohammad-safakhou/sparkadvisor/internal/kusto"
	"github.com/mohammad-safakhou/sparkadvisor/internal/recommend"
)

var healthBadges = map[string]string{
	"CRITICAL":  "🔴",
	"WARNING":   "🟡",
	"HEALTHY":   "🟢",
	"EXCELLENT": "🌟",
}

func badge(health string) string {
	if b, ok := healthBadges[strings.ToUpper(health)]; ok {
		return b
	}
	return "⚪"
}

// tiers splits validated items for display. An item counts as telemetry when
// either its source or its metadata says so, since the judge may relabel.
func tiers(vs []recommend.Validated) (kustoItems, ragItems, llmItems []recommend.Validated) {
	for _, v := range vs {
		switch {
		case v.FromKusto():
			kustoItems = append(kustoItems, v)
		case v.Source == recommend.SourceRAG:
			ragItems = append(ragItems, v)
		default:
			llmItems = append(llmItems, v)
		}
	}
	return
}

// FormatAnalysis renders the full Markdown report of an analysis.
func FormatAnalysis(a *Analysis) string {
	var b strings.Builder
	health := strings.ToUpper(string(a.OverallHealth))
	if health == "" {
		health = "UNKNOWN"
	}
	critical, warning, info := recommend.Counts(a.ValidatedRecommendations)

	fmt.Fprintf(&b, "# %s Application Analysis: `%s`\n\n", badge(health), a.ApplicationID)
	fmt.Fprintf(&b, "**Overall Health:** %s\n\n", health)
	if a.Summary != "" {
		fmt.Fprintf(&b, "**Summary:** %s\n\n", a.Summary)
	}
	fmt.Fprintf(&b, "**Total Recommendations:** %d (🔴 %d Critical | 🟡 %d Warning | 🟢 %d Info)\n\n",
		len(a.ValidatedRecommendations), critical, warning, info)
	if s := a.ApplicationSummary; s != nil {
		fmt.Fprintf(&b, "| Metric | Value |\n|---|---|\n")
		fmt.Fprintf(&b, "| Name | %s |\n| Grade | %s |\n| Duration | %.1f min |\n| Executors | %.0f |\n",
			s.AppName, s.PerformanceGrade, s.DurationSec/60, s.ExecutorCount)
		fmt.Fprintf(&b, "| Executor Efficiency | %.1f%% |\n| GC Overhead | %.1f%% |\n| Task Skew | %.2fx |\n\n",
			s.ExecutorEfficiency*100, s.GCOverheadPct, s.TaskSkewRatio)
	}

	kustoItems, ragItems, llmItems := tiers(a.ValidatedRecommendations)

	b.WriteString("## 📊 Tier 1: Kusto Telemetry\n\n")
	if len(kustoItems) == 0 {
		b.WriteString("_No Spark Advisor or Fabric recommendations found in Kusto for this application._\n\n")
	}
	for _, v := range kustoItems {
		fmt.Fprintf(&b, "- %s\n", indent(v.Recommendation))
	}
	if len(kustoItems) > 0 {
		b.WriteString("\n")
	}

	if len(ragItems) > 0 {
		b.WriteString("## 📚 Tier 2: Documentation\n\n")
		for i, v := range ragItems {
			title, _ := v.Metadata["title"].(string)
			if title == "" {
				title = fmt.Sprintf("Documentation #%d", i+1)
			}
			fmt.Fprintf(&b, "### %s\n\n%s\n\n", title, truncate(v.Recommendation, 600))
			if url, _ := v.Metadata["source_url"].(string); url != "" {
				fmt.Fprintf(&b, "Source: %s\n\n", url)
			}
		}
	}

	if len(llmItems) > 0 {
		b.WriteString("## 🤖 Tier 3: AI Generated\n\n")
		fmt.Fprintf(&b, aiWarningOpen+"\n\n", "MEDIUM")
		for _, v := range llmItems {
			fmt.Fprintf(&b, "%s\n\n", v.Recommendation)
		}
		b.WriteString(aiWarningClose + "\n\n")
	}

	if len(a.DetectedContradictions) > 0 {
		b.WriteString("## ⚠️ Contradictions\n\n")
		for _, c := range a.DetectedContradictions {
			fmt.Fprintf(&b, "- %s\n", c.Explanation)
		}
		b.WriteString("\n")
	}
	if a.Error != "" {
		fmt.Fprintf(&b, "_Judge error: %s_\n", a.Error)
	}
	return b.String()
}

// FormatChatSummary renders the short answer: health, summary and the three
// most urgent items.
func FormatChatSummary(a *Analysis) string {
	top := append([]recommend.Validated(nil), a.ValidatedRecommendations...)
	sort.SliceStable(top, func(i, j int) bool { return top[i].Priority < top[j].Priority })
	if len(top) > 3 {
		top = top[:3]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📊 **Analysis Complete for %s**\n\n", a.ApplicationID)
	fmt.Fprintf(&b, "**Overall Health:** %s\n\n", strings.ToUpper(string(a.OverallHealth)))
	fmt.Fprintf(&b, "**Summary:** %s\n\n**Top 3 Recommendations:**\n", a.Summary)
	for i, v := range top {
		fmt.Fprintf(&b, "\n%d. [%s] [%s] %s...\n", i+1, v.Confidence, strings.ToUpper(string(v.Source)), truncate(v.Recommendation, 150))
	}
	fmt.Fprintf(&b, "\n**Total Recommendations:** %d", len(a.ValidatedRecommendations))
	fmt.Fprintf(&b, "\n**Sources:** Kusto: %d, RAG: %d, LLM: %d",
		a.SourceCounts[recommend.SourceKusto], a.SourceCounts[recommend.SourceRAG], a.SourceCounts[recommend.SourceLLM])
	return b.String()
}

// FormatBadApps renders the first ten bad applications.
func FormatBadApps(apps []BadApp) string {
	if len(apps) == 0 {
		return "✅ No applications found with significant bad practices."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🔍 **Found %d applications with bad practices:**\n\n", len(apps))
	b.WriteString("| # | Application | Name | Violations | Issues |\n|---|---|---|---|---|\n")
	for i, app := range apps {
		if i == 10 {
			break
		}
		fmt.Fprintf(&b, "| %d | `%s` | %s | %s %d | %s |\n", i+1, app.AppID, app.ApplicationName,
			app.SeverityLabel, app.ViolationCount, strings.Join(app.Issues, ", "))
	}
	if len(apps) > 10 {
		fmt.Fprintf(&b, "\n... and %d more applications.\n", len(apps)-10)
	}
	return b.String()
}

func timeDescription(hours int) string {
	if hours == 24 {
		return "today"
	}
	return fmt.Sprintf("in the last %d hours", hours)
}

// FormatRecentApps groups recent applications by health.
func FormatRecentApps(apps []kusto.RecentApp, hours int) string {
	if len(apps) == 0 {
		return fmt.Sprintf("ℹ️ No applications found that ran %s.", timeDescription(hours))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📊 **Found %d applications that ran %s:**\n", len(apps), timeDescription(hours))
	groups := map[string][]kusto.RecentApp{}
	for _, app := range apps {
		groups[app.HealthStatus] = append(groups[app.HealthStatus], app)
	}
	for _, sec := range []struct {
		status string
		limit  int
	}{{kusto.HealthCritical, 5}, {kusto.HealthWarning, 5}, {kusto.HealthHealthy, 3}, {kusto.HealthUnknown, 2}} {
		list := groups[sec.status]
		if len(list) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%s **%s (%d):**\n", badge(sec.status), sec.status, len(list))
		for i, app := range list {
			if i == sec.limit {
				fmt.Fprintf(&b, "   ... and %d more\n", len(list)-sec.limit)
				break
			}
			fmt.Fprintf(&b, "   • **%s** (%s) - %.1f min | Executor Eff: %.1f%% | GC: %.1f%%\n",
				app.AppID, app.AppName, app.DurationMin, app.ExecutorEfficiency*100, app.GCOverheadPct)
		}
	}
	b.WriteString("\n💡 Use `analyze <app_id>` for detailed recommendations.\n")
	return b.String()
}

// FormatHealthyApps renders the healthy application table.
func FormatHealthyApps(apps []HealthyApp) string {
	if len(apps) == 0 {
		return "No healthy applications found."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🌟 **Found %d healthy applications:**\n\n", len(apps))
	b.WriteString("| Application | Name | Score | Grade | Executor Eff | GC |\n|---|---|---|---|---|---|\n")
	for _, app := range apps {
		fmt.Fprintf(&b, "| `%s` | %s | %.1f | %s | %.1f%% | %.1f%% |\n",
			app.AppID, app.AppName, app.HealthScore, app.Grade, app.ExecutorEfficiency*100, app.GCOverheadPct)
	}
	return b.String()
}

// FormatPatternApps renders the applications matching a pattern.
func FormatPatternApps(pattern string, apps []PatternApp) string {
	if len(apps) == 0 {
		return fmt.Sprintf("No applications found for pattern %s.", pattern)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🔍 **%d applications match %s:**\n\n", len(apps), pattern)
	b.WriteString("| Application | Name | Signal | Duration |\n|---|---|---|---|\n")
	for _, app := range apps {
		fmt.Fprintf(&b, "| `%s` | %s | %s | %.1f min |\n", app.AppID, app.AppName, app.Detail, app.DurationSec/60)
	}
	return b.String()
}

var skewBadges = map[string]string{"CRITICAL": "🔴", "HIGH": "🔴", "MEDIUM": "🟡", "LOW": "⚫"}

// FormatSkew renders a skew analysis.
func FormatSkew(s *SkewAnalysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Skew Analysis: `%s`\n\n", s.ApplicationID)
	switch s.Status {
	case StatusError:
		fmt.Fprintf(&b, "❌ Skew analysis failed: %s\n", s.Error)
		return b.String()
	case StatusNoData:
		b.WriteString("ℹ️ " + s.Message + "\n")
		return b.String()
	}
	fmt.Fprintf(&b, "**Stages analyzed:** %d | **Stages with skew:** %d\n\n", s.StagesAnalyzed, s.StagesWithSkew)
	if len(s.ProblematicStages) == 0 {
		b.WriteString("✅ No significant skew detected.\n\n")
	} else {
		b.WriteString("| Stage | Severity | Task Imbalance | Shuffle Imbalance | Duration |\n|---|---|---|---|---|\n")
		for _, st := range s.ProblematicStages {
			fmt.Fprintf(&b, "| %d | %s %s | %.2fx | %.2fx | %.1fs |\n", st.StageID, skewBadges[st.Severity], st.Severity,
				st.TaskImbalance, st.ShuffleImbalance, st.StageDurationSec)
		}
		b.WriteString("\n")
	}
	if s.LLMAnalysis != "" {
		b.WriteString("## Remediation\n\n" + s.LLMAnalysis + "\n")
	}
	return b.String()
}

// FormatScaling renders a scaling analysis.
func FormatScaling(s *ScalingAnalysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Scaling Analysis: `%s`\n\n", s.ApplicationID)
	if s.Status == StatusError {
		fmt.Fprintf(&b, "❌ Scaling analysis failed: %s\n", s.Error)
		return b.String()
	}
	fmt.Fprintf(&b, "🎯 **Recommendation:** %s\n\n", s.Recommendation)
	m := s.CurrentMetrics
	fmt.Fprintf(&b, "| Current | Value |\n|---|---|\n| Duration | %.0fs (%.1f min) |\n| Executors | %.0f |\n| Driver Time | %.1f%% |\n| Executor Efficiency | %.1f%% |\n\n",
		m.DurationSec, m.DurationSec/60, m.ExecutorCount, m.DriverTimePct, m.ExecutorEfficiencyPct)
	if len(s.Predictions) > 0 {
		b.WriteString("| Multiplier | Executors | Estimated Duration |\n|---|---|---|\n")
		for _, p := range s.Predictions {
			fmt.Fprintf(&b, "| %s | %.0f | %s |\n", p.ExecutorMultiplier, p.ExecutorCount, p.EstimatedDuration)
		}
		b.WriteString("\n")
	}
	if s.LLMAnalysis != "" {
		b.WriteString(s.LLMAnalysis + "\n")
	}
	return b.String()
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

func indent(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "\n", "\n  ")
}
