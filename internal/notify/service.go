package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/flowline-ai/flowline/internal/workflow"
	"github.com/flowline-ai/flowline/pkg/logging"
)

// WebhookPoster posts alert text to a workflow's alert webhook.
type WebhookPoster interface {
	Post(ctx context.Context, hook workflow.AlertWebhook, text string) error
}

// Stats is an observed monitoring window for one workflow.
type Stats struct {
	WorkflowID        string
	WorkflowName      string
	AvgResponseTimeMs int
	ErrorRatePercent  float64
	DailyVolume       int
}

// Service evaluates monitoring thresholds and fans alerts out to email and
// the alert webhook.
type Service struct {
	email   EmailSender
	webhook WebhookPoster
	logger  *logging.Logger
}

func NewService(email EmailSender, webhook WebhookPoster, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{email: email, webhook: webhook, logger: logger}
}

// Breaches returns a human-readable line per threshold the stats exceed.
// Only metrics the config tracks are evaluated.
func Breaches(cfg workflow.MonitoringConfig, stats Stats) []string {
	var out []string
	if cfg.TrackResponseTime && cfg.ResponseTimeMs > 0 && stats.AvgResponseTimeMs > cfg.ResponseTimeMs {
		out = append(out, fmt.Sprintf("average response time %dms exceeds threshold %dms",
			stats.AvgResponseTimeMs, cfg.ResponseTimeMs))
	}
	if cfg.TrackErrorRate && cfg.ErrorRatePercent > 0 && stats.ErrorRatePercent > cfg.ErrorRatePercent {
		out = append(out, fmt.Sprintf("error rate %.1f%% exceeds threshold %.1f%%",
			stats.ErrorRatePercent, cfg.ErrorRatePercent))
	}
	if cfg.TrackVolume && cfg.DailyVolume > 0 && stats.DailyVolume > cfg.DailyVolume {
		out = append(out, fmt.Sprintf("daily volume %d exceeds threshold %d",
			stats.DailyVolume, cfg.DailyVolume))
	}
	return out
}

// CheckThresholds evaluates the stats against the workflow's monitoring
// config and sends one combined alert when anything is breached. Returns
// the breach lines so callers can record them.
func (s *Service) CheckThresholds(ctx context.Context, ownerEmail string, cfg workflow.MonitoringConfig, stats Stats) []string {
	breaches := Breaches(cfg, stats)
	if len(breaches) == 0 {
		return nil
	}

	name := stats.WorkflowName
	if name == "" {
		name = stats.WorkflowID
	}
	text := fmt.Sprintf("Workflow %q alert:\n- %s", name, strings.Join(breaches, "\n- "))

	if s.webhook != nil {
		if err := s.webhook.Post(ctx, cfg.AlertWebhook, text); err != nil {
			s.logger.Error("failed to post threshold alert webhook", "error", err, "workflow_id", stats.WorkflowID)
		}
	}

	if s.email != nil && ownerEmail != "" {
		err := s.email.Send(ctx, EmailMessage{
			To:      ownerEmail,
			Subject: fmt.Sprintf("Alert: workflow %q crossed monitoring thresholds", name),
			Body:    text,
		})
		if err != nil {
			s.logger.Error("failed to send threshold alert email", "error", err, "workflow_id", stats.WorkflowID)
		}
	}

	s.logger.Info("monitoring thresholds breached", "workflow_id", stats.WorkflowID, "breaches", len(breaches))
	return breaches
}

// NotifySubmitted tells the owner their workflow went live (or completed
// via the fallback path and still needs attention).
func (s *Service) NotifySubmitted(ctx context.Context, ownerEmail, workflowName string, persisted bool) error {
	if s.email == nil || ownerEmail == "" {
		return nil
	}

	var subject, body string
	if persisted {
		subject = fmt.Sprintf("Workflow %q is live", workflowName)
		body = fmt.Sprintf("Your workflow %q was saved and is now active.", workflowName)
	} else {
		subject = fmt.Sprintf("Workflow %q needs attention", workflowName)
		body = fmt.Sprintf("Your workflow %q was completed but could not be saved to the engine. "+
			"Your configuration is preserved; please retry from the dashboard.", workflowName)
	}

	if err := s.email.Send(ctx, EmailMessage{To: ownerEmail, Subject: subject, Body: body}); err != nil {
		return fmt.Errorf("notify: submission notice: %w", err)
	}
	return nil
}
