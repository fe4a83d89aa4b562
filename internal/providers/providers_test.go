package providers

import (
	"testing"

	"github.com/flowline-ai/flowline/internal/workflow"
)

func TestWebhookURL(t *testing.T) {
	tests := []struct {
		base     string
		provider string
		want     string
	}{
		{"https://api.flowline.dev", "sms", "https://api.flowline.dev/webhooks/sms/webhook"},
		{"https://api.flowline.dev/", "email", "https://api.flowline.dev/webhooks/email/webhook"},
		{"http://localhost:8080", "ticketing", "http://localhost:8080/webhooks/ticketing/webhook"},
	}
	for _, tt := range tests {
		if got := WebhookURL(tt.base, tt.provider); got != tt.want {
			t.Errorf("WebhookURL(%q, %q) = %q, want %q", tt.base, tt.provider, got, tt.want)
		}
	}
}

func TestCatalogGatesOnIntegrations(t *testing.T) {
	agg := workflow.DefaultAggregate()
	agg.SystemIntegration.Ticketing.Enabled = true
	agg.AITraining.APIKey = "sk-test"

	byName := map[string]Provider{}
	for _, p := range Catalog("https://api.flowline.dev", agg) {
		byName[p.Name] = p
	}

	if !byName[ProviderSMS].Enabled || !byName[ProviderEmail].Enabled {
		t.Error("sms and email should always be enabled")
	}
	if !byName[ProviderTicketing].Enabled {
		t.Error("ticketing should follow the aggregate flag")
	}
	if byName[ProviderScheduling].Enabled {
		t.Error("scheduling should be disabled by default")
	}
	if !byName[ProviderLLM].Enabled {
		t.Error("llm should follow the training api key")
	}
	if byName[ProviderSMS].WebhookURL != "https://api.flowline.dev/webhooks/sms/webhook" {
		t.Errorf("unexpected webhook url %q", byName[ProviderSMS].WebhookURL)
	}
}

func TestEnabledFilters(t *testing.T) {
	enabled := Enabled("https://api.flowline.dev", workflow.DefaultAggregate())
	if len(enabled) != 2 {
		t.Fatalf("enabled = %d providers, want 2", len(enabled))
	}
	for _, p := range enabled {
		if p.Name == ProviderTicketing || p.Name == ProviderScheduling || p.Name == ProviderLLM {
			t.Errorf("disabled provider %s in enabled list", p.Name)
		}
	}
}
