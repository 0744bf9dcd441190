package engine

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/sentrystack/audit-sentry/internal/models"
)

type fakeClassifier struct {
	verdict models.RiskVerdict
	err     error
	calls   int
}

func (f *fakeClassifier) Classify(ctx context.Context, event models.ChangeEvent) (models.RiskVerdict, error) {
	f.calls++
	if f.err != nil {
		return models.RiskVerdict{}, f.err
	}
	return f.verdict, nil
}

type fakeDispatcher struct {
	calls    int
	analyses []models.RiskAnalysis
	notified bool
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, event models.ChangeEvent, analysis models.RiskAnalysis) models.NotificationDecision {
	f.calls++
	f.analyses = append(f.analyses, analysis)
	notify := analysis.RiskLevel == models.RiskCritical ||
		analysis.RiskLevel == models.RiskHigh ||
		analysis.RiskLevel == models.RiskMedium
	if notify {
		f.notified = true
	}
	return models.NotificationDecision{ShouldNotify: notify}
}

func encodeRecord(t *testing.T, record map[string]any) string {
	t.Helper()
	raw, err := json.Marshal(record)
	if err != nil {
		t.Fatal(err)
	}
	return base64.StdEncoding.EncodeToString(raw)
}

func firewallRecord() map[string]any {
	return map[string]any{
		"protoPayload": map[string]any{
			"authenticationInfo": map[string]any{"principalEmail": "dev@example.com"},
			"requestMetadata":    map[string]any{"callerIp": "203.0.113.50"},
			"methodName":         "compute.firewalls.insert",
			"resourceName":       "projects/acme-prod/global/firewalls/allow-ssh-public",
			"request": map[string]any{
				"name":         "allow-ssh-public",
				"sourceRanges": []any{"0.0.0.0/0"},
				"allowed":      []any{map[string]any{"IPProtocol": "tcp", "ports": []any{"22", "3389"}}},
				"direction":    "INGRESS",
			},
		},
		"resource": map[string]any{
			"type":   "gce_firewall_rule",
			"labels": map[string]any{"project_id": "acme-prod"},
		},
		"timestamp": "2026-03-01T10:15:00Z",
	}
}

func newTestPipeline(c Classifier, d Dispatcher) *Pipeline {
	return NewPipeline(nil, nil, nil, c, d, time.Second)
}

func TestProcessClassifierDownFallsBackToHeuristic(t *testing.T) {
	cls := &fakeClassifier{err: fmt.Errorf("service unavailable")}
	disp := &fakeDispatcher{}
	p := newTestPipeline(cls, disp)

	result, err := p.Process(context.Background(), encodeRecord(t, firewallRecord()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != StatusOK {
		t.Fatalf("status = %s, want ok", result.Status)
	}
	if result.RiskLevel != models.RiskCritical {
		t.Fatalf("risk = %s, want CRITICAL from the heuristic fallback", result.RiskLevel)
	}
	if !disp.notified {
		t.Fatal("notification should have been attempted")
	}
	if disp.analyses[0].Source != models.SourceHeuristicFallback {
		t.Fatalf("source = %s", disp.analyses[0].Source)
	}
}

func TestProcessIrrelevantEventIgnored(t *testing.T) {
	cls := &fakeClassifier{}
	disp := &fakeDispatcher{}
	p := newTestPipeline(cls, disp)

	record := firewallRecord()
	record["protoPayload"].(map[string]any)["methodName"] = "compute.instances.list"

	result, err := p.Process(context.Background(), encodeRecord(t, record))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != StatusIgnored {
		t.Fatalf("status = %s, want ignored", result.Status)
	}
	if cls.calls != 0 {
		t.Fatal("classifier should not run for ignored events")
	}
	if disp.calls != 0 {
		t.Fatal("dispatcher should not run for ignored events")
	}
}

func TestProcessSemanticVerdictWins(t *testing.T) {
	cls := &fakeClassifier{verdict: models.RiskVerdict{
		RiskLevel:   models.RiskHigh,
		Category:    models.CategoryNetwork,
		Action:      models.ActionRevert,
		Explanation: "open firewall",
	}}
	disp := &fakeDispatcher{}
	p := newTestPipeline(cls, disp)

	result, err := p.Process(context.Background(), encodeRecord(t, firewallRecord()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RiskLevel != models.RiskHigh {
		t.Fatalf("risk = %s, want HIGH from semantic", result.RiskLevel)
	}
	if disp.analyses[0].Source != models.SourceSemantic {
		t.Fatalf("source = %s", disp.analyses[0].Source)
	}
}

func TestProcessUndecodablePayload(t *testing.T) {
	p := newTestPipeline(&fakeClassifier{}, &fakeDispatcher{})

	if result, err := p.Process(context.Background(), "%%% not base64"); err == nil || result.Status != StatusError {
		t.Fatalf("expected error status for bad base64, got %+v / %v", result, err)
	}

	notJSON := base64.StdEncoding.EncodeToString([]byte("not json"))
	if result, err := p.Process(context.Background(), notJSON); err == nil || result.Status != StatusError {
		t.Fatalf("expected error status for bad JSON, got %+v / %v", result, err)
	}
}

func TestProcessCancelledRunIsAbandoned(t *testing.T) {
	disp := &fakeDispatcher{}
	blocking := &blockingClassifier{}
	p := newTestPipeline(blocking, disp)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Process(ctx, encodeRecord(t, firewallRecord()))
	if err == nil {
		t.Fatal("expected error for an abandoned run")
	}
	if disp.calls != 0 {
		t.Fatal("no notification may be sent from an abandoned run")
	}
}

type blockingClassifier struct{}

func (b *blockingClassifier) Classify(ctx context.Context, event models.ChangeEvent) (models.RiskVerdict, error) {
	<-ctx.Done()
	return models.RiskVerdict{}, ctx.Err()
}

func TestProcessIsIdempotent(t *testing.T) {
	cls := &fakeClassifier{verdict: models.RiskVerdict{
		RiskLevel:       models.RiskHigh,
		Category:        models.CategoryNetwork,
		Vulnerabilities: []string{"open firewall"},
		Action:          models.ActionRevert,
		Explanation:     "deterministic",
		Remediation:     "close it",
	}}
	disp := &fakeDispatcher{}
	p := newTestPipeline(cls, disp)

	encoded := encodeRecord(t, firewallRecord())
	for i := 0; i < 2; i++ {
		if _, err := p.Process(context.Background(), encoded); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}

	if len(disp.analyses) != 2 {
		t.Fatalf("expected 2 analyses, got %d", len(disp.analyses))
	}
	if !reflect.DeepEqual(disp.analyses[0], disp.analyses[1]) {
		t.Fatalf("analyses differ between runs:\n%+v\n%+v", disp.analyses[0], disp.analyses[1])
	}
}
