package notify

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/sentrystack/audit-sentry/internal/models"
)

const (
	noVulnerabilities = "none found"
	noRemediation     = "not provided"
)

var riskColors = map[models.RiskLevel]string{
	models.RiskCritical: "#dc3545",
	models.RiskHigh:     "#fd7e14",
	models.RiskMedium:   "#ffc107",
	models.RiskLow:      "#17a2b8",
	models.RiskNone:     "#28a745",
}

// buildTextBody renders the plain-text alert with every field an operator
// needs to act without opening a console.
func buildTextBody(event models.ChangeEvent, analysis models.RiskAnalysis) string {
	vulns := noVulnerabilities
	if len(analysis.Vulnerabilities) > 0 {
		items := make([]string, 0, len(analysis.Vulnerabilities))
		for _, v := range analysis.Vulnerabilities {
			items = append(items, "  - "+v)
		}
		vulns = "\n" + strings.Join(items, "\n")
	}

	remediation := analysis.Remediation
	if remediation == "" {
		remediation = noRemediation
	}
	explanation := analysis.Explanation
	if explanation == "" {
		explanation = "n/a"
	}

	var b strings.Builder
	rule := strings.Repeat("=", 60)
	fmt.Fprintf(&b, "%s\nGCP SECURITY ALERT - risk %s (%s)\n%s\n\n", rule, analysis.RiskLevel, analysis.Source, rule)
	fmt.Fprintf(&b, "WHO\n  Email: %s\n  IP: %s\n\n", event.Actor.Email, event.Actor.SourceIP)
	fmt.Fprintf(&b, "WHAT\n  Resource: %s\n  Operation: %s\n  Project: %s\n  Time: %s\n\n",
		event.Resource.Name, event.Resource.Method, event.ProjectID, event.Timestamp)
	fmt.Fprintf(&b, "VULNERABILITIES\n  %s\n\n", vulns)
	fmt.Fprintf(&b, "ANALYSIS\n  %s\n\n", explanation)
	fmt.Fprintf(&b, "RECOMMENDED ACTION: %s\n\n", analysis.Action)
	fmt.Fprintf(&b, "REMEDIATION\n  %s\n\n", remediation)
	fmt.Fprintf(&b, "%s\naudit-sentry | %s UTC\n", rule, time.Now().UTC().Format("2006-01-02 15:04:05"))
	return b.String()
}

// buildHTMLBody renders the rich alternative body with risk-level colour
// coding. All event-derived strings are escaped.
func buildHTMLBody(event models.ChangeEvent, analysis models.RiskAnalysis) string {
	color, ok := riskColors[analysis.RiskLevel]
	if !ok {
		color = "#6c757d"
	}

	vulns := fmt.Sprintf("<p>%s</p>", noVulnerabilities)
	if len(analysis.Vulnerabilities) > 0 {
		var items strings.Builder
		for _, v := range analysis.Vulnerabilities {
			fmt.Fprintf(&items, "<li>%s</li>", html.EscapeString(v))
		}
		vulns = fmt.Sprintf("<ul>%s</ul>", items.String())
	}

	remediation := analysis.Remediation
	if remediation == "" {
		remediation = noRemediation
	}
	explanation := analysis.Explanation
	if explanation == "" {
		explanation = "n/a"
	}

	var b strings.Builder
	b.WriteString("<!DOCTYPE html><html><body style=\"font-family: sans-serif; margin: 0; padding: 20px;\">")
	fmt.Fprintf(&b, "<div style=\"background: %s; color: white; padding: 20px; text-align: center;\">", color)
	fmt.Fprintf(&b, "<h1 style=\"margin: 0;\">GCP Security Alert</h1><p style=\"margin: 8px 0 0 0;\">Risk: %s</p></div>", analysis.RiskLevel)

	b.WriteString("<h3>Who made the change</h3><table>")
	fmt.Fprintf(&b, "<tr><td>Email:</td><td><b>%s</b></td></tr>", html.EscapeString(event.Actor.Email))
	fmt.Fprintf(&b, "<tr><td>IP:</td><td><code>%s</code></td></tr></table>", html.EscapeString(event.Actor.SourceIP))

	b.WriteString("<h3>What changed</h3><table>")
	fmt.Fprintf(&b, "<tr><td>Resource:</td><td><code>%s</code></td></tr>", html.EscapeString(event.Resource.Name))
	fmt.Fprintf(&b, "<tr><td>Operation:</td><td>%s</td></tr>", html.EscapeString(event.Resource.Method))
	fmt.Fprintf(&b, "<tr><td>Project:</td><td>%s</td></tr>", html.EscapeString(event.ProjectID))
	fmt.Fprintf(&b, "<tr><td>Time:</td><td>%s</td></tr></table>", html.EscapeString(event.Timestamp))

	fmt.Fprintf(&b, "<h3>Vulnerabilities</h3>%s", vulns)
	fmt.Fprintf(&b, "<h3>Analysis</h3><p>%s</p>", html.EscapeString(explanation))
	fmt.Fprintf(&b, "<p style=\"text-align: center;\"><span style=\"display: inline-block; padding: 10px 20px; background: %s; color: white; font-weight: bold;\">Action: %s</span></p>",
		color, analysis.Action)
	fmt.Fprintf(&b, "<h3>Remediation</h3><p>%s</p>", html.EscapeString(remediation))

	fmt.Fprintf(&b, "<p style=\"color: #666; font-size: 12px; text-align: center;\">audit-sentry | %s UTC</p>",
		time.Now().UTC().Format("2006-01-02 15:04:05"))
	b.WriteString("</body></html>")
	return b.String()
}
