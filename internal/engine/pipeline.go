package engine

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sentrystack/audit-sentry/internal/classifier"
	"github.com/sentrystack/audit-sentry/internal/ingest"
	"github.com/sentrystack/audit-sentry/internal/metrics"
	"github.com/sentrystack/audit-sentry/internal/models"
	"github.com/sentrystack/audit-sentry/internal/scanner"
)

// RunStatus is the terminal outcome of one pipeline run.
type RunStatus string

const (
	// StatusIgnored marks events dropped by the relevance filter.
	StatusIgnored RunStatus = "ignored"
	// StatusOK marks fully processed events, degraded or not.
	StatusOK RunStatus = "ok"
	// StatusError marks undecodable payloads; nothing past decode ran.
	StatusError RunStatus = "error"
)

// RunResult summarises one pipeline run.
type RunResult struct {
	Status    RunStatus
	RiskLevel models.RiskLevel
}

// Classifier is the semantic risk stage as the pipeline consumes it.
type Classifier interface {
	Classify(ctx context.Context, event models.ChangeEvent) (models.RiskVerdict, error)
}

// Dispatcher turns an analysis into a notify/suppress decision and delivers
// the alert. Delivery failures are absorbed inside.
type Dispatcher interface {
	Dispatch(ctx context.Context, event models.ChangeEvent, analysis models.RiskAnalysis) models.NotificationDecision
}

// Pipeline wires the per-event flow: decode, normalize, filter, scan,
// classify, decide, dispatch. One instance serves any number of concurrent
// runs; it holds no mutable state.
type Pipeline struct {
	logger          *slog.Logger
	filter          *ingest.RelevanceFilter
	scanner         *scanner.HeuristicScanner
	classifier      Classifier
	decision        *DecisionEngine
	dispatcher      Dispatcher
	classifyTimeout time.Duration
}

// NewPipeline constructs the orchestrator.
func NewPipeline(
	logger *slog.Logger,
	filter *ingest.RelevanceFilter,
	heuristic *scanner.HeuristicScanner,
	semantic Classifier,
	dispatcher Dispatcher,
	classifyTimeout time.Duration,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if filter == nil {
		filter = ingest.NewRelevanceFilter()
	}
	if heuristic == nil {
		heuristic = scanner.NewHeuristicScanner()
	}
	if classifyTimeout <= 0 {
		classifyTimeout = 30 * time.Second
	}
	return &Pipeline{
		logger:          logger,
		filter:          filter,
		scanner:         heuristic,
		classifier:      semantic,
		decision:        NewDecisionEngine(),
		dispatcher:      dispatcher,
		classifyTimeout: classifyTimeout,
	}
}

// Process runs one base64-encoded audit record through the pipeline. Only an
// undecodable payload returns an error; every later uncertainty degrades to
// an explicit result.
func (p *Pipeline) Process(ctx context.Context, encoded string) (RunResult, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return RunResult{Status: StatusError}, fmt.Errorf("decode payload: %w", err)
	}

	var record map[string]any
	if err := json.Unmarshal(raw, &record); err != nil {
		return RunResult{Status: StatusError}, fmt.Errorf("parse audit record: %w", err)
	}

	event := ingest.ParseAuditRecord(record)
	p.logger.Info("audit event received", slog.String("change", ingest.Summary(event)))

	if !p.filter.Relevant(event) {
		p.logger.Debug("event not security relevant", slog.String("method", event.Resource.Method))
		return RunResult{Status: StatusIgnored}, nil
	}

	quick := p.scanner.Scan(event.Resource.Method, event.Request)
	if quick != nil {
		p.logger.Warn("heuristic pattern matched",
			slog.String("risk", string(quick.RiskLevel)),
			slog.String("note", quick.Note))
	}

	classifyCtx, cancel := context.WithTimeout(ctx, p.classifyTimeout)
	verdict, classifyErr := p.classifier.Classify(classifyCtx, event)
	cancel()

	// An abandoned invocation must not produce a partial notification; the
	// trigger transport redelivers on its own schedule.
	if ctx.Err() != nil {
		return RunResult{Status: StatusError}, fmt.Errorf("run abandoned: %w", ctx.Err())
	}

	if classifyErr != nil {
		var cerr *classifier.ClassificationError
		reason := string(classifier.ReasonTransport)
		if errors.As(classifyErr, &cerr) {
			reason = string(cerr.Reason)
		}
		metrics.ClassifierFailure(reason)
		p.logger.Warn("semantic classification failed",
			slog.String("reason", reason),
			slog.Any("error", classifyErr))
	}

	analysis := p.decision.Decide(quick, verdict, classifyErr)
	p.logger.Info("risk decided",
		slog.String("risk", string(analysis.RiskLevel)),
		slog.String("source", string(analysis.Source)))

	decision := p.dispatcher.Dispatch(ctx, event, analysis)
	if !decision.ShouldNotify {
		p.logger.Info("notification suppressed", slog.String("risk", string(analysis.RiskLevel)))
	}

	return RunResult{Status: StatusOK, RiskLevel: analysis.RiskLevel}, nil
}
