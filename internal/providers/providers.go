// Package providers describes the external services a workflow can connect
// to and derives their inbound webhook endpoints.
package providers

import (
	"fmt"
	"strings"

	"github.com/flowline-ai/flowline/internal/workflow"
)

// Known provider names.
const (
	ProviderSMS        = "sms"
	ProviderEmail      = "email"
	ProviderTicketing  = "ticketing"
	ProviderScheduling = "scheduling"
	ProviderLLM        = "llm"
)

// Provider is one connectable external service.
type Provider struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	WebhookURL  string `json:"webhookUrl"`
	// Enabled reflects whether the aggregate has this integration switched
	// on; the SMS channel is always on since it carries the workflow itself.
	Enabled bool `json:"enabled"`
}

// WebhookURL derives the inbound callback endpoint a provider must be
// configured with: {base}/webhooks/{provider}/webhook.
func WebhookURL(baseURL, provider string) string {
	return fmt.Sprintf("%s/webhooks/%s/webhook", strings.TrimRight(baseURL, "/"), provider)
}

// Catalog lists every provider with its webhook endpoint and whether the
// aggregate currently enables it.
func Catalog(baseURL string, agg *workflow.Aggregate) []Provider {
	list := []Provider{
		{Name: ProviderSMS, DisplayName: "SMS / Voice", Enabled: true},
		{Name: ProviderEmail, DisplayName: "Email", Enabled: true},
		{Name: ProviderTicketing, DisplayName: "Ticketing"},
		{Name: ProviderScheduling, DisplayName: "Scheduling"},
		{Name: ProviderLLM, DisplayName: "AI Model"},
	}
	if agg != nil {
		for i := range list {
			switch list[i].Name {
			case ProviderTicketing:
				list[i].Enabled = agg.SystemIntegration.Ticketing.Enabled
			case ProviderScheduling:
				list[i].Enabled = agg.SystemIntegration.Scheduling.Enabled
			case ProviderLLM:
				list[i].Enabled = agg.AITraining.APIKey != ""
			}
		}
	}
	for i := range list {
		list[i].WebhookURL = WebhookURL(baseURL, list[i].Name)
	}
	return list
}

// Enabled filters the catalog down to providers the aggregate switches on.
func Enabled(baseURL string, agg *workflow.Aggregate) []Provider {
	all := Catalog(baseURL, agg)
	out := make([]Provider, 0, len(all))
	for _, p := range all {
		if p.Enabled {
			out = append(out, p)
		}
	}
	return out
}
