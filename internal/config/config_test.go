package config

import (
	"strings"
	"testing"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg, err := FromYAML([]byte(GenerateDefault("acme")))
	if err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Workspace.Name != "acme" {
		t.Fatalf("workspace name = %q", cfg.Workspace.Name)
	}
	if len(cfg.Readiness.Schedule) != 5 {
		t.Fatalf("schedule has %d tasks", len(cfg.Readiness.Schedule))
	}
	if cfg.Counters.Employee != 1000 || cfg.Counters.Project != 5000 || cfg.Counters.ProjectEmployee != 7000 {
		t.Fatalf("unexpected counter starts: %+v", cfg.Counters)
	}
}

func TestValidateRejectsBadWeights(t *testing.T) {
	yml := `workspace:
  name: acme
readiness:
  schedule:
    - id: a
      title: A
      weight: 60
    - id: b
      title: B
      weight: 60
counters:
  employee: 1000
  project: 5000
  project_employee: 7000
`
	_, err := FromYAML([]byte(yml))
	if err == nil || !strings.Contains(err.Error(), "sum to 120") {
		t.Fatalf("expected weight sum error, got %v", err)
	}
}

func TestValidateRejectsDuplicateTaskIDs(t *testing.T) {
	yml := `workspace:
  name: acme
readiness:
  schedule:
    - id: a
      title: A
      weight: 50
    - id: a
      title: A again
      weight: 50
counters:
  employee: 1000
  project: 5000
  project_employee: 7000
`
	_, err := FromYAML([]byte(yml))
	if err == nil || !strings.Contains(err.Error(), "duplicate task id") {
		t.Fatalf("expected duplicate id error, got %v", err)
	}
}

func TestValidateRejectsMissingWorkspaceName(t *testing.T) {
	_, err := FromYAML([]byte(GenerateDefault("")))
	if err == nil {
		t.Fatal("expected error for empty workspace name")
	}
}

func TestValidateRejectsWebhookWithoutURL(t *testing.T) {
	yml := GenerateDefault("acme") + `
`
	cfg, err := FromYAML([]byte(yml))
	if err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	cfg.Notifications.Webhooks = append(cfg.Notifications.Webhooks, WebhookConfig{URL: ""})
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for webhook without url")
	}
}
