package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/flowline-ai/flowline/internal/workflow"
)

type recordingEmail struct {
	sent []EmailMessage
}

func (r *recordingEmail) Send(_ context.Context, msg EmailMessage) error {
	r.sent = append(r.sent, msg)
	return nil
}

type recordingWebhook struct {
	hooks []workflow.AlertWebhook
	texts []string
}

func (r *recordingWebhook) Post(_ context.Context, hook workflow.AlertWebhook, text string) error {
	r.hooks = append(r.hooks, hook)
	r.texts = append(r.texts, text)
	return nil
}

func monitoringConfig() workflow.MonitoringConfig {
	return workflow.MonitoringConfig{
		ResponseTimeMs:    5000,
		ErrorRatePercent:  5,
		DailyVolume:       1000,
		TrackResponseTime: true,
		TrackErrorRate:    true,
		TrackVolume:       true,
	}
}

func TestBreachesRespectTrackingFlags(t *testing.T) {
	cfg := monitoringConfig()
	cfg.TrackErrorRate = false

	stats := Stats{AvgResponseTimeMs: 9000, ErrorRatePercent: 50, DailyVolume: 10}
	breaches := Breaches(cfg, stats)
	if len(breaches) != 1 {
		t.Fatalf("breaches = %v, want only response time", breaches)
	}
	if !strings.Contains(breaches[0], "response time") {
		t.Errorf("unexpected breach %q", breaches[0])
	}
}

func TestBreachesNoneWithinThresholds(t *testing.T) {
	stats := Stats{AvgResponseTimeMs: 100, ErrorRatePercent: 0.5, DailyVolume: 10}
	if got := Breaches(monitoringConfig(), stats); len(got) != 0 {
		t.Errorf("breaches = %v, want none", got)
	}
}

func TestCheckThresholdsFansOut(t *testing.T) {
	email := &recordingEmail{}
	hook := &recordingWebhook{}
	svc := NewService(email, hook, nil)

	cfg := monitoringConfig()
	cfg.AlertWebhook = workflow.AlertWebhook{URL: "https://hooks.local/x", Channel: "#alerts", MentionTarget: "@oncall"}

	stats := Stats{WorkflowID: "wf-1", WorkflowName: "Lead Follow-up", ErrorRatePercent: 12}
	breaches := svc.CheckThresholds(context.Background(), "owner@example.com", cfg, stats)
	if len(breaches) != 1 {
		t.Fatalf("breaches = %v", breaches)
	}

	if len(hook.texts) != 1 || !strings.Contains(hook.texts[0], "error rate") {
		t.Errorf("webhook texts = %v", hook.texts)
	}
	if hook.hooks[0].Channel != "#alerts" {
		t.Errorf("hook = %+v", hook.hooks[0])
	}
	if len(email.sent) != 1 || !strings.Contains(email.sent[0].Subject, "Lead Follow-up") {
		t.Errorf("emails = %+v", email.sent)
	}
}

func TestCheckThresholdsQuietWhenHealthy(t *testing.T) {
	email := &recordingEmail{}
	hook := &recordingWebhook{}
	svc := NewService(email, hook, nil)

	if got := svc.CheckThresholds(context.Background(), "owner@example.com", monitoringConfig(), Stats{}); got != nil {
		t.Fatalf("breaches = %v, want nil", got)
	}
	if len(email.sent) != 0 || len(hook.texts) != 0 {
		t.Error("healthy stats must not alert")
	}
}

func TestNotifySubmittedDistinguishesFallback(t *testing.T) {
	email := &recordingEmail{}
	svc := NewService(email, nil, nil)

	if err := svc.NotifySubmitted(context.Background(), "owner@example.com", "Lead Follow-up", false); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(email.sent) != 1 || !strings.Contains(email.sent[0].Subject, "needs attention") {
		t.Errorf("emails = %+v", email.sent)
	}
}

func TestWebhookSinkPostsMentionAndChannel(t *testing.T) {
	var got WebhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink := NewWebhookSink(nil)
	hook := workflow.AlertWebhook{URL: srv.URL, Channel: "#alerts", MentionTarget: "@oncall"}
	if err := sink.Post(context.Background(), hook, "threshold breached"); err != nil {
		t.Fatalf("post: %v", err)
	}

	if got.Channel != "#alerts" || got.Mention != "@oncall" {
		t.Errorf("payload = %+v", got)
	}
	if !strings.HasPrefix(got.Text, "<@oncall> ") {
		t.Errorf("text = %q, want mention prefix", got.Text)
	}
}

func TestWebhookSinkSkipsEmptyURL(t *testing.T) {
	sink := NewWebhookSink(nil)
	if err := sink.Post(context.Background(), workflow.AlertWebhook{}, "x"); err != nil {
		t.Fatalf("empty url should no-op, got %v", err)
	}
}
