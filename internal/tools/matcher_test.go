package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		name      string
		catalog   Catalog
		extracted string
		want      string
	}{
		{"exact name ignores case", Triggers(), "cron trigger", "Cron Trigger"},
		{"keyword", Triggers(), "when google form submitted by user for survey", "Google Forms Trigger"},
		{"keyword slack", Actions(), "send urgent notification to slack general channel", "Slack (Send Message)"},
		{"base name before parenthesis", Actions(), "add an email send step", "Email Send (SMTP)"},
		{"fallback to first", Processes(), "filter for priority items only", "Code (Function)"},
		{"empty text", Actions(), "", "HTTP Request"},
		{"whitespace text", Triggers(), "   ", "Webhook Trigger"},
		{"non latin keyword", Triggers(), "毎日定期的に実行", "Cron Trigger"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.catalog.Match(tt.extracted))
		})
	}
}

func TestMatch_SubsetOfCandidates(t *testing.T) {
	got := Match([]string{"Webhook Trigger", "Cron Trigger"}, triggerKeywords, "trigger on a schedule")
	assert.Equal(t, "Cron Trigger", got)
}

func TestMatch_IsTotal(t *testing.T) {
	assert.Equal(t, "", Match(nil, nil, "anything"))

	inputs := []string{"", "???", "webhook", "IF Node", "random words here"}
	for _, c := range []Catalog{Triggers(), Processes(), Actions()} {
		for _, in := range inputs {
			got := c.Match(in)
			assert.True(t, c.Contains(got), "%s: %q -> %q", c.Category, in, got)
		}
	}
}

func TestOptions(t *testing.T) {
	opts := Options(nil)
	assert.Equal(t, DefaultModels, opts.LLMModels)
	assert.Len(t, opts.TriggerTools, 5)
	assert.Len(t, opts.ProcessLogicTools, 6)
	assert.Len(t, opts.ActionTools, 6)

	opts = Options([]string{"x/y"})
	assert.Equal(t, []string{"x/y"}, opts.LLMModels)

	// callers cannot mutate the catalogs
	opts.TriggerTools[0] = "changed"
	assert.Equal(t, "Webhook Trigger", Triggers().Tools[0])
}
