package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sentrystack/audit-sentry/internal/metrics"
	"github.com/sentrystack/audit-sentry/internal/models"
)

// AlertSink is the delivery channel for formatted alerts. The production
// implementation is SMTPSink; tests substitute a recorder.
type AlertSink interface {
	Send(ctx context.Context, subject, textBody, htmlBody string) error
}

// Dispatcher maps a risk analysis to a notify/suppress decision and hands
// formatted alerts to the sink. Delivery failures are logged, never escalated.
type Dispatcher struct {
	logger *slog.Logger
	sink   AlertSink
}

// NewDispatcher constructs a dispatcher over the given sink.
func NewDispatcher(logger *slog.Logger, sink AlertSink) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{logger: logger, sink: sink}
}

// Decide derives the notification decision from the analysis risk level:
// MEDIUM and above notify, LOW and NONE are suppressed.
func (d *Dispatcher) Decide(event models.ChangeEvent, analysis models.RiskAnalysis) models.NotificationDecision {
	notify := false
	switch analysis.RiskLevel {
	case models.RiskCritical, models.RiskHigh, models.RiskMedium:
		notify = true
	}

	resource := lastPathSegment(event.Resource.Name)
	return models.NotificationDecision{
		ShouldNotify: notify,
		SubjectLine:  fmt.Sprintf("[%s] GCP change alert - %s", analysis.RiskLevel, resource),
	}
}

// Dispatch applies Decide and, when notifying, formats and delivers the
// alert. The returned decision is the same either way.
func (d *Dispatcher) Dispatch(ctx context.Context, event models.ChangeEvent, analysis models.RiskAnalysis) models.NotificationDecision {
	decision := d.Decide(event, analysis)
	if !decision.ShouldNotify {
		return decision
	}

	textBody := buildTextBody(event, analysis)
	htmlBody := buildHTMLBody(event, analysis)

	if err := d.sink.Send(ctx, decision.SubjectLine, textBody, htmlBody); err != nil {
		metrics.NotificationResult("failed")
		d.logger.Warn("alert delivery failed",
			slog.String("subject", decision.SubjectLine),
			slog.Any("error", err))
		return decision
	}

	metrics.NotificationResult("delivered")
	d.logger.Info("alert delivered", slog.String("subject", decision.SubjectLine))
	return decision
}

func lastPathSegment(name string) string {
	parts := strings.Split(name, "/")
	return parts[len(parts)-1]
}
