package engine

import (
	"fmt"
	"testing"

	"github.com/sentrystack/audit-sentry/internal/classifier"
	"github.com/sentrystack/audit-sentry/internal/models"
	"github.com/sentrystack/audit-sentry/internal/scanner"
)

func semanticVerdict(level models.RiskLevel) models.RiskVerdict {
	return models.RiskVerdict{
		RiskLevel:       level,
		Category:        models.CategoryNetwork,
		Vulnerabilities: []string{"from semantic"},
		Action:          models.ActionRevert,
		Explanation:     "semantic explanation",
		Remediation:     "semantic remediation",
	}
}

func TestDecideMatrix(t *testing.T) {
	engine := NewDecisionEngine()

	quick := &scanner.QuickVerdict{RiskLevel: models.RiskCritical, Note: "open rule to the internet"}
	transportErr := &classifier.ClassificationError{Reason: classifier.ReasonTransport, Err: fmt.Errorf("timeout")}
	malformedErr := &classifier.ClassificationError{Reason: classifier.ReasonMalformed, RawText: "not json"}

	cases := []struct {
		name       string
		quick      *scanner.QuickVerdict
		semantic   models.RiskVerdict
		err        error
		wantLevel  models.RiskLevel
		wantAction models.RecommendedAction
		wantSource models.AnalysisSource
	}{
		{
			name:       "no heuristic, transport failure",
			quick:      nil,
			err:        transportErr,
			wantLevel:  models.RiskMedium,
			wantAction: models.ActionReview,
			wantSource: models.SourceDegradedDefault,
		},
		{
			name:       "no heuristic, malformed failure",
			quick:      nil,
			err:        malformedErr,
			wantLevel:  models.RiskMedium,
			wantAction: models.ActionReview,
			wantSource: models.SourceDegradedDefault,
		},
		{
			name:       "heuristic present, transport failure",
			quick:      quick,
			err:        transportErr,
			wantLevel:  models.RiskCritical,
			wantAction: models.ActionReview,
			wantSource: models.SourceHeuristicFallback,
		},
		{
			name:       "heuristic present, malformed failure",
			quick:      quick,
			err:        malformedErr,
			wantLevel:  models.RiskCritical,
			wantAction: models.ActionReview,
			wantSource: models.SourceHeuristicFallback,
		},
		{
			name:       "heuristic absent, semantic success",
			quick:      nil,
			semantic:   semanticVerdict(models.RiskHigh),
			wantLevel:  models.RiskHigh,
			wantAction: models.ActionRevert,
			wantSource: models.SourceSemantic,
		},
		{
			name:       "heuristic present, semantic success wins",
			quick:      quick,
			semantic:   semanticVerdict(models.RiskHigh),
			wantLevel:  models.RiskHigh,
			wantAction: models.ActionRevert,
			wantSource: models.SourceSemantic,
		},
		{
			name:       "semantic success below heuristic still wins",
			quick:      quick,
			semantic:   semanticVerdict(models.RiskLow),
			wantLevel:  models.RiskLow,
			wantAction: models.ActionRevert,
			wantSource: models.SourceSemantic,
		},
	}

	for _, tc := range cases {
		analysis := engine.Decide(tc.quick, tc.semantic, tc.err)
		if analysis.RiskLevel != tc.wantLevel {
			t.Fatalf("%s: level = %s, want %s", tc.name, analysis.RiskLevel, tc.wantLevel)
		}
		if analysis.Action != tc.wantAction {
			t.Fatalf("%s: action = %s, want %s", tc.name, analysis.Action, tc.wantAction)
		}
		if analysis.Source != tc.wantSource {
			t.Fatalf("%s: source = %s, want %s", tc.name, analysis.Source, tc.wantSource)
		}
	}
}

func TestDecideFallbackShape(t *testing.T) {
	engine := NewDecisionEngine()
	transportErr := &classifier.ClassificationError{Reason: classifier.ReasonTransport, Err: fmt.Errorf("down")}

	degraded := engine.Decide(nil, models.RiskVerdict{}, transportErr)
	if degraded.Explanation != "automatic analysis failed" {
		t.Fatalf("explanation = %q", degraded.Explanation)
	}
	if degraded.Vulnerabilities == nil || len(degraded.Vulnerabilities) != 0 {
		t.Fatalf("degraded default should carry an empty vulnerability list, got %v", degraded.Vulnerabilities)
	}

	quick := &scanner.QuickVerdict{RiskLevel: models.RiskHigh, Note: "Owner role granted"}
	fallback := engine.Decide(quick, models.RiskVerdict{}, transportErr)
	if len(fallback.Vulnerabilities) != 1 || fallback.Vulnerabilities[0] != quick.Note {
		t.Fatalf("fallback vulnerabilities = %v", fallback.Vulnerabilities)
	}
	if fallback.Explanation != "automatic analysis failed" {
		t.Fatalf("explanation = %q", fallback.Explanation)
	}
}
