package ingest

import (
	"strings"

	"github.com/sentrystack/audit-sentry/internal/models"
)

// defaultKeywords marks the operation families worth analysing. Audit logs
// are dominated by read-only traffic; anything not matching here is dropped
// before the expensive stages, accepting false negatives to keep the gate
// cheap and precise.
var defaultKeywords = []string{
	"firewall", "iam", "setiampolicy", "insert", "create",
	"update", "delete", "patch", "security", "ssl",
}

// RelevanceFilter decides whether a change event warrants risk analysis.
type RelevanceFilter struct {
	keywords []string
}

// NewRelevanceFilter constructs a filter from the built-in keyword set plus
// any configured extras.
func NewRelevanceFilter(extra ...string) *RelevanceFilter {
	keywords := append([]string(nil), defaultKeywords...)
	for _, kw := range extra {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			keywords = append(keywords, kw)
		}
	}
	return &RelevanceFilter{keywords: keywords}
}

// Relevant reports whether the event's method matches any keyword.
func (f *RelevanceFilter) Relevant(event models.ChangeEvent) bool {
	method := strings.ToLower(event.Resource.Method)
	for _, kw := range f.keywords {
		if strings.Contains(method, kw) {
			return true
		}
	}
	return false
}
