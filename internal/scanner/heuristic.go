package scanner

import (
	"encoding/json"
	"strings"

	"github.com/sentrystack/audit-sentry/internal/models"
)

// QuickVerdict is the partial result of the offline pattern scan: a risk
// level plus a single note describing the matched pattern.
type QuickVerdict struct {
	RiskLevel models.RiskLevel
	Note      string
}

type pattern struct {
	needle string
	level  models.RiskLevel
	note   string
}

// The table is scanned in declaration order and the first hit wins. Network
// exposure patterns come before privilege patterns on purpose: declaration
// order, not severity, is the tie-break.
var patterns = []pattern{
	{"0.0.0.0/0", models.RiskCritical, "open rule to the internet"},
	{"allUsers", models.RiskCritical, "public access"},
	{"allAuthenticatedUsers", models.RiskHigh, "access for any authenticated principal"},
	{"roles/owner", models.RiskHigh, "Owner role granted"},
}

// HeuristicScanner is the stateless pattern-based pre-check. It makes no
// external calls and exists to provide a usable signal when the semantic
// classifier is slow or down.
type HeuristicScanner struct{}

// NewHeuristicScanner constructs the pattern scanner.
func NewHeuristicScanner() *HeuristicScanner {
	return &HeuristicScanner{}
}

// Scan serializes the request payload and tests it against the pattern table.
// It returns nil when nothing matches.
func (s *HeuristicScanner) Scan(method string, request map[string]any) *QuickVerdict {
	serialized, err := json.Marshal(request)
	if err != nil {
		return nil
	}
	haystack := string(serialized)

	for _, p := range patterns {
		if strings.Contains(haystack, p.needle) {
			return &QuickVerdict{RiskLevel: p.level, Note: p.note}
		}
	}
	return nil
}
