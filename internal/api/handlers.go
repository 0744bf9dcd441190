package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/sentrystack/audit-sentry/internal/engine"
	"github.com/sentrystack/audit-sentry/internal/metrics"
)

// EventProcessor is the pipeline as the ingress consumes it.
type EventProcessor interface {
	Process(ctx context.Context, encoded string) (engine.RunResult, error)
}

// Handler serves the trigger transport's push requests.
type Handler struct {
	logger   *slog.Logger
	pipeline EventProcessor
}

// NewHandler constructs the ingress handler.
func NewHandler(logger *slog.Logger, pipeline EventProcessor) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, pipeline: pipeline}
}

// pushEnvelope is the Pub/Sub push subscription wire format: the audit
// record travels base64-encoded in message.data.
type pushEnvelope struct {
	Message struct {
		Data      string `json:"data"`
		MessageID string `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

type runResponse struct {
	Status    string `json:"status"`
	RiskLevel string `json:"riskLevel,omitempty"`
	Error     string `json:"error,omitempty"`
}

// HandlePush runs one pushed audit event through the pipeline. Every
// decodable envelope is acknowledged with 200, including degraded and
// poison-payload runs; redelivery would not change their outcome. Only an
// abandoned run answers 5xx so the transport retries it.
func (h *Handler) HandlePush(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var envelope pushEnvelope
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		h.logger.Warn("malformed push envelope", slog.Any("error", err))
		metrics.ObserveEvent(time.Since(start), string(engine.StatusError))
		writeJSON(w, http.StatusBadRequest, runResponse{Status: string(engine.StatusError), Error: "malformed envelope"})
		return
	}

	result, err := h.pipeline.Process(r.Context(), envelope.Message.Data)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			h.logger.Warn("run abandoned",
				slog.String("messageId", envelope.Message.MessageID),
				slog.Any("error", err))
			writeJSON(w, http.StatusServiceUnavailable, runResponse{Status: string(engine.StatusError), Error: "run abandoned"})
			return
		}
		h.logger.Warn("undecodable audit payload",
			slog.String("messageId", envelope.Message.MessageID),
			slog.Any("error", err))
		metrics.ObserveEvent(time.Since(start), string(engine.StatusError))
		writeJSON(w, http.StatusOK, runResponse{Status: string(engine.StatusError), Error: err.Error()})
		return
	}

	metrics.ObserveEvent(time.Since(start), string(result.Status))
	writeJSON(w, http.StatusOK, runResponse{
		Status:    string(result.Status),
		RiskLevel: string(result.RiskLevel),
	})
}

// HandleHealth answers liveness probes.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "serving"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
