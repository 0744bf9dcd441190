package engine

import (
	"github.com/sentrystack/audit-sentry/internal/models"
	"github.com/sentrystack/audit-sentry/internal/scanner"
)

// fallbackExplanation is recorded whenever the semantic stage produced
// nothing usable and the pipeline degrades.
const fallbackExplanation = "automatic analysis failed"

// DecisionEngine merges the heuristic and semantic signals into the final
// risk analysis. It is the single point deciding what the system believes
// the risk to be.
type DecisionEngine struct{}

// NewDecisionEngine constructs the merge step.
func NewDecisionEngine() *DecisionEngine {
	return &DecisionEngine{}
}

// Decide applies the precedence rules: a successful semantic verdict is
// authoritative; otherwise the heuristic level carries the analysis; with
// neither, a neutral MEDIUM/REVIEW default. Fallback paths never approve or
// revert on their own.
func (e *DecisionEngine) Decide(quick *scanner.QuickVerdict, semantic models.RiskVerdict, classifyErr error) models.RiskAnalysis {
	if classifyErr == nil {
		return models.RiskAnalysis{RiskVerdict: semantic, Source: models.SourceSemantic}
	}

	if quick != nil {
		return models.RiskAnalysis{
			RiskVerdict: models.RiskVerdict{
				RiskLevel:       quick.RiskLevel,
				Category:        models.CategoryOther,
				Vulnerabilities: []string{quick.Note},
				Action:          models.ActionReview,
				Explanation:     fallbackExplanation,
			},
			Source: models.SourceHeuristicFallback,
		}
	}

	return models.RiskAnalysis{
		RiskVerdict: models.RiskVerdict{
			RiskLevel:       models.RiskMedium,
			Category:        models.CategoryOther,
			Vulnerabilities: []string{},
			Action:          models.ActionReview,
			Explanation:     fallbackExplanation,
		},
		Source: models.SourceDegradedDefault,
	}
}
