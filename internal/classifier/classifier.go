package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sentrystack/audit-sentry/internal/models"
)

// FailureReason distinguishes why a classification attempt produced no verdict.
type FailureReason string

const (
	// ReasonTransport covers network, auth, quota and timeout failures of the
	// external call.
	ReasonTransport FailureReason = "transport"
	// ReasonMalformed covers responses that did not contain the expected
	// structure.
	ReasonMalformed FailureReason = "malformed"
)

// ClassificationError reports a failed classification attempt. It is always
// recoverable: the decision engine turns it into a fallback verdict.
type ClassificationError struct {
	Reason  FailureReason
	RawText string
	Err     error
}

func (e *ClassificationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("classification failed (%s)", e.Reason)
	}
	return fmt.Sprintf("classification failed (%s): %v", e.Reason, e.Err)
}

func (e *ClassificationError) Unwrap() error {
	return e.Err
}

// TextGenerator is the external classification capability: prompt in, free
// text out. The production implementation is GeminiClient; tests substitute
// a stub.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// SemanticClassifier delegates risk assessment of a change event to a text
// generation capability and decodes its answer into a structured verdict.
type SemanticClassifier struct {
	generator TextGenerator
}

// NewSemanticClassifier constructs a classifier over the given capability.
func NewSemanticClassifier(generator TextGenerator) *SemanticClassifier {
	return &SemanticClassifier{generator: generator}
}

// maxPayloadChars bounds the serialized request payload embedded in the
// prompt so oversized audit records cannot blow the model's context.
const maxPayloadChars = 3000

// Classify asks the capability for a verdict on the event. It never retries;
// any failure comes back as a *ClassificationError for the caller to absorb.
func (c *SemanticClassifier) Classify(ctx context.Context, event models.ChangeEvent) (models.RiskVerdict, error) {
	prompt := BuildPrompt(event)

	text, err := c.generator.GenerateText(ctx, prompt)
	if err != nil {
		return models.RiskVerdict{}, &ClassificationError{Reason: ReasonTransport, Err: err}
	}

	return parseVerdict(text)
}

// BuildPrompt renders the analysis request for one change event. The response
// contract (keys and vocabulary) is spelled out verbatim so the answer can be
// decoded mechanically.
func BuildPrompt(event models.ChangeEvent) string {
	details, err := json.MarshalIndent(event.Request, "", "  ")
	if err != nil {
		details = []byte("{}")
	}
	payload := string(details)
	if len(payload) > maxPayloadChars {
		payload = payload[:maxPayloadChars]
	}

	var b strings.Builder
	b.WriteString("You are a Google Cloud security expert. Analyse this infrastructure change and answer ONLY with valid JSON.\n\n")
	b.WriteString("CLASSIFICATION RULES:\n")
	b.WriteString("- CRITICO: sourceRanges contains 0.0.0.0/0 with sensitive ports (22, 3389, 3306, 5432, 27017)\n")
	b.WriteString("- ALTO: sourceRanges contains 0.0.0.0/0 with any port\n")
	b.WriteString("- MEDIO: IAM changes or broad permissions\n")
	b.WriteString("- BAIXO: rules limited to specific IPs or internal networks\n")
	b.WriteString("- NENHUM: cosmetic or low-impact changes\n\n")
	b.WriteString("IMPORTANT: internal networks (10.0.0.0/8, 172.16.0.0/12, 192.168.0.0/16) are SAFE and must be classified BAIXO or NENHUM.\n\n")
	b.WriteString("Answer with JSON:\n")
	b.WriteString(`{
    "risco": "CRITICO|ALTO|MEDIO|BAIXO|NENHUM",
    "categoria": "rede|iam|storage|compute|outro",
    "vulnerabilidades": ["problems found"],
    "acao_recomendada": "APROVAR|REVISAR|REVERTER",
    "explicacao": "impact explanation",
    "remediacao": "steps to fix"
}`)
	b.WriteString("\n\nCHANGE:\n")
	fmt.Fprintf(&b, "- User: %s\n", event.Actor.Email)
	fmt.Fprintf(&b, "- IP: %s\n", event.Actor.SourceIP)
	fmt.Fprintf(&b, "- Resource: %s\n", event.Resource.Name)
	fmt.Fprintf(&b, "- Operation: %s\n", event.Resource.Method)
	fmt.Fprintf(&b, "- Timestamp: %s\n", event.Timestamp)
	b.WriteString("\nDETAILS:\n")
	b.WriteString(payload)
	b.WriteString("\n\nAnswer only the JSON, no markdown.")

	return b.String()
}

// wireVerdict mirrors the capability's response contract.
type wireVerdict struct {
	Risco            string   `json:"risco"`
	Categoria        string   `json:"categoria"`
	Vulnerabilidades []string `json:"vulnerabilidades"`
	AcaoRecomendada  string   `json:"acao_recomendada"`
	Explicacao       string   `json:"explicacao"`
	Remediacao       string   `json:"remediacao"`
}

func parseVerdict(text string) (models.RiskVerdict, error) {
	body := stripCodeFence(strings.TrimSpace(text))

	var wire wireVerdict
	if err := json.Unmarshal([]byte(body), &wire); err != nil {
		return models.RiskVerdict{}, &ClassificationError{Reason: ReasonMalformed, RawText: text, Err: err}
	}
	if wire.Risco == "" {
		return models.RiskVerdict{}, &ClassificationError{
			Reason:  ReasonMalformed,
			RawText: text,
			Err:     fmt.Errorf("response carries no risk level"),
		}
	}

	return models.RiskVerdict{
		RiskLevel:       models.ParseRiskLevel(wire.Risco),
		Category:        models.ParseCategory(wire.Categoria),
		Vulnerabilities: wire.Vulnerabilidades,
		Action:          models.ParseAction(wire.AcaoRecomendada),
		Explanation:     wire.Explicacao,
		Remediation:     wire.Remediacao,
	}, nil
}

// stripCodeFence removes an optional ```/```json wrapper around the response.
func stripCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	if idx := strings.Index(text, "\n"); idx >= 0 {
		text = text[idx+1:]
	}
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}
