package recommend

import (
	"regexp"
	"strings"
)

// Severity is the analyzer's severity marker parsed from telemetry text.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityCritical:
		return "CRITICAL"
	case SeverityHigh:
		return "HIGH"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityLow:
		return "LOW"
	}
	return "NONE"
}

var severityWord = regexp.MustCompile(`\b(CRITICAL|HIGH|MEDIUM|LOW)\b`)

// labelCutset is what may precede an item's own severity label.
const labelCutset = " \t\r\n*_#>[](){}:-–—|.0123456789🔴🟠🟡⚫🟢"

// ParseSeverity returns the severity an item declares for itself: the marker
// word or badge that leads the text. Without a leading label the highest
// upper-case marker in the text counts. Only upper-case words are markers so
// prose such as "low memory" is ignored.
func ParseSeverity(text string) Severity {
	matches := severityWord.FindAllStringIndex(text, -1)
	if len(matches) > 0 && strings.Trim(text[:matches[0][0]], labelCutset) == "" {
		return severityOf(text[matches[0][0]:matches[0][1]])
	}
	if sev := badgeOf(strings.TrimLeft(text, " \t\r\n*_#>")); sev != SeverityNone {
		return sev
	}
	best := SeverityNone
	for _, m := range matches {
		if s := severityOf(text[m[0]:m[1]]); s > best {
			best = s
		}
	}
	if best != SeverityNone {
		return best
	}
	switch {
	case strings.Contains(text, "🔴"):
		return SeverityHigh
	case strings.Contains(text, "🟡"):
		return SeverityMedium
	case strings.Contains(text, "⚫"):
		return SeverityLow
	}
	return SeverityNone
}

// badgeOf reads the badge text starts with.
func badgeOf(text string) Severity {
	switch {
	case strings.HasPrefix(text, "🔴"):
		return SeverityHigh
	case strings.HasPrefix(text, "🟡"):
		return SeverityMedium
	case strings.HasPrefix(text, "⚫"):
		return SeverityLow
	}
	return SeverityNone
}

func severityOf(word string) Severity {
	switch word {
	case "CRITICAL":
		return SeverityCritical
	case "HIGH":
		return SeverityHigh
	case "MEDIUM":
		return SeverityMedium
	case "LOW":
		return SeverityLow
	}
	return SeverityNone
}

// PriorityRange is the inclusive priority band of a severity. SeverityNone
// spans the whole scale.
func (s Severity) PriorityRange() (lo, hi int) {
	switch s {
	case SeverityCritical:
		return 1, 9
	case SeverityHigh:
		return 10, 19
	case SeverityMedium:
		return 20, 29
	case SeverityLow:
		return 30, 39
	}
	return 1, 39
}

// Contains reports whether p falls inside the severity's band.
func (s Severity) Contains(p int) bool {
	lo, hi := s.PriorityRange()
	return p >= lo && p <= hi
}

// PriorityFor picks the ordinal-th slot of the severity band, clamped to the
// band's upper bound.
func PriorityFor(s Severity, ordinal int) int {
	lo, hi := s.PriorityRange()
	if ordinal < 0 {
		ordinal = 0
	}
	if p := lo + ordinal; p <= hi {
		return p
	}
	return hi
}

// Bucket is the report bucket a priority falls into.
type Bucket string

const (
	BucketCritical Bucket = "critical"
	BucketWarning  Bucket = "warning"
	BucketInfo     Bucket = "info"
)

// BucketOf maps a priority to its report bucket.
func BucketOf(priority int) Bucket {
	switch {
	case priority <= 9:
		return BucketCritical
	case priority <= 29:
		return BucketWarning
	default:
		return BucketInfo
	}
}
