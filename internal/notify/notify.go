package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"staffdesk/internal/config"
	"staffdesk/internal/domain"
)

const defaultTimeout = 5 * time.Second

// Dispatcher posts approval transitions to the configured webhooks.
// Deliveries run on their own goroutines after the transaction has
// committed; failures are logged and never surface to the caller.
type Dispatcher struct {
	Webhooks []config.WebhookConfig
	Client   *http.Client
}

func NewDispatcher(webhooks []config.WebhookConfig) *Dispatcher {
	return &Dispatcher{
		Webhooks: webhooks,
		Client:   &http.Client{Timeout: defaultTimeout},
	}
}

type transitionEvent struct {
	ProjectID      int    `json:"project_id"`
	ProjectName    string `json:"project_name"`
	Action         string `json:"action"`
	ApprovalStatus string `json:"approval_status"`
	Reason         string `json:"reason,omitempty"`
	OccurredAt     string `json:"occurred_at"`
}

// ProjectTransitioned fans the transition out to every webhook whose
// action filter matches.
func (d *Dispatcher) ProjectTransitioned(p domain.Project, action string) {
	if d == nil || len(d.Webhooks) == 0 {
		return
	}
	evt := transitionEvent{
		ProjectID:      p.ProjectID,
		ProjectName:    p.ProjectName,
		Action:         action,
		ApprovalStatus: p.ApprovalStatus,
		Reason:         p.ApprovalReason,
		OccurredAt:     time.Now().UTC().Format(time.RFC3339),
	}
	for _, hook := range d.Webhooks {
		if strings.TrimSpace(hook.URL) == "" {
			continue
		}
		if !matchAction(hook.Actions, action) {
			continue
		}
		hook := hook
		go func() {
			if err := d.post(hook, evt); err != nil {
				log.Printf("notify: deliver to %s failed: %v", hook.URL, err)
			}
		}()
	}
}

func matchAction(filter []string, action string) bool {
	if len(filter) == 0 {
		return true
	}
	for _, a := range filter {
		if strings.TrimSpace(a) == action {
			return true
		}
	}
	return false
}

func (d *Dispatcher) post(hook config.WebhookConfig, evt transitionEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, hook.URL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Staffdesk-Action", evt.Action)
	req.Header.Set("X-Staffdesk-Project", fmt.Sprintf("%d", evt.ProjectID))
	client := d.Client
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	res, err := client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fmt.Errorf("status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
