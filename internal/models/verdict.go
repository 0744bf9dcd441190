package models

import "strings"

// RiskLevel grades the severity of a detected change.
type RiskLevel string

const (
	RiskNone     RiskLevel = "NONE"
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// RiskCategory buckets the affected surface.
type RiskCategory string

const (
	CategoryNetwork RiskCategory = "network"
	CategoryIAM     RiskCategory = "iam"
	CategoryStorage RiskCategory = "storage"
	CategoryCompute RiskCategory = "compute"
	CategoryOther   RiskCategory = "other"
)

// RecommendedAction is the operator guidance attached to a verdict.
type RecommendedAction string

const (
	ActionApprove RecommendedAction = "APPROVE"
	ActionReview  RecommendedAction = "REVIEW"
	ActionRevert  RecommendedAction = "REVERT"
)

// RiskVerdict is a single scanner's assessment of one change.
type RiskVerdict struct {
	RiskLevel       RiskLevel
	Category        RiskCategory
	Vulnerabilities []string
	Action          RecommendedAction
	Explanation     string
	Remediation     string
}

// AnalysisSource records which signal produced the final verdict.
type AnalysisSource string

const (
	SourceSemantic          AnalysisSource = "semantic"
	SourceHeuristicFallback AnalysisSource = "heuristic-fallback"
	SourceDegradedDefault   AnalysisSource = "degraded-default"
)

// RiskAnalysis is the merged, final verdict for one change event.
type RiskAnalysis struct {
	RiskVerdict
	Source AnalysisSource
}

// NotificationDecision captures whether an analysis warrants an alert.
type NotificationDecision struct {
	ShouldNotify bool
	SubjectLine  string
}

// The classification capability answers with a Portuguese vocabulary; the
// parse helpers below map it 1:1 onto the domain enums and clamp anything
// out of vocabulary to the defined fallback, so an unconstrained string
// never crosses into the pipeline.

// ParseRiskLevel maps a wire risk value onto a RiskLevel, defaulting to MEDIUM.
func ParseRiskLevel(raw string) RiskLevel {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "CRITICO", "CRÍTICO", "CRITICAL":
		return RiskCritical
	case "ALTO", "HIGH":
		return RiskHigh
	case "MEDIO", "MÉDIO", "MEDIUM":
		return RiskMedium
	case "BAIXO", "LOW":
		return RiskLow
	case "NENHUM", "NONE":
		return RiskNone
	default:
		return RiskMedium
	}
}

// ParseCategory maps a wire category onto a RiskCategory, defaulting to other.
func ParseCategory(raw string) RiskCategory {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "rede", "network":
		return CategoryNetwork
	case "iam":
		return CategoryIAM
	case "storage":
		return CategoryStorage
	case "compute":
		return CategoryCompute
	default:
		return CategoryOther
	}
}

// ParseAction maps a wire action onto a RecommendedAction, defaulting to REVIEW.
func ParseAction(raw string) RecommendedAction {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "APROVAR", "APPROVE":
		return ActionApprove
	case "REVERTER", "REVERT":
		return ActionRevert
	case "REVISAR", "REVIEW":
		return ActionReview
	default:
		return ActionReview
	}
}
