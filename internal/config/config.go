package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"staffdesk/internal/readiness"
)

// Config models staffdesk.yml.
type Config struct {
	Workspace struct {
		Name string `yaml:"name" json:"name"`
	} `yaml:"workspace" json:"workspace"`
	Readiness struct {
		Schedule []readiness.Task `yaml:"schedule" json:"schedule"`
	} `yaml:"readiness" json:"readiness"`
	Counters struct {
		Employee        int `yaml:"employee" json:"employee"`
		Project         int `yaml:"project" json:"project"`
		ProjectEmployee int `yaml:"project_employee" json:"project_employee"`
	} `yaml:"counters" json:"counters"`
	Notifications struct {
		Webhooks []WebhookConfig `yaml:"webhooks" json:"webhooks"`
	} `yaml:"notifications" json:"notifications"`
}

// WebhookConfig is one notification target invoked after approval
// transitions. Delivery is fire-and-forget.
type WebhookConfig struct {
	URL     string   `yaml:"url" json:"url"`
	Actions []string `yaml:"actions,omitempty" json:"actions,omitempty"`
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Workspace.Name == "" {
		return fmt.Errorf("config.workspace.name is required")
	}
	if len(c.Readiness.Schedule) == 0 {
		return fmt.Errorf("config.readiness.schedule is required")
	}
	seen := map[string]bool{}
	total := 0
	for _, task := range c.Readiness.Schedule {
		if task.ID == "" {
			return fmt.Errorf("readiness schedule contains task with empty id")
		}
		if seen[task.ID] {
			return fmt.Errorf("readiness schedule has duplicate task id %s", task.ID)
		}
		seen[task.ID] = true
		if task.Weight <= 0 {
			return fmt.Errorf("readiness task %s has non-positive weight %d", task.ID, task.Weight)
		}
		total += task.Weight
	}
	if total != 100 {
		return fmt.Errorf("readiness schedule weights sum to %d, must sum to 100", total)
	}
	if c.Counters.Employee <= 0 || c.Counters.Project <= 0 || c.Counters.ProjectEmployee <= 0 {
		return fmt.Errorf("config.counters start values must be positive")
	}
	for i, wh := range c.Notifications.Webhooks {
		if wh.URL == "" {
			return fmt.Errorf("notifications.webhooks[%d].url is required", i)
		}
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "staffdesk.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault(name string) string {
	return fmt.Sprintf(defaultTemplate, name)
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the default Config struct for a workspace. The
// template is compiled in; a decode failure is a build defect, so it
// panics rather than limping on with an empty schedule.
func Default(name string) *Config {
	var cfg Config
	cfg.Workspace.Name = name
	if err := yaml.NewDecoder(bytes.NewBufferString(fmt.Sprintf(defaultTemplate, name))).Decode(&cfg); err != nil {
		panic(fmt.Sprintf("config: default template: %v", err))
	}
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

const defaultTemplate = `workspace:
  name: %s

readiness:
  schedule:
    - id: scope
      title: Scope agreed
      category: planning
      weight: 25
    - id: staffing
      title: Team staffed
      category: team
      weight: 20
    - id: budget
      title: Budget signed off
      category: planning
      weight: 20
    - id: risk
      title: Risk review held
      category: governance
      weight: 15
    - id: kickoff
      title: Kickoff scheduled
      category: delivery
      weight: 20

counters:
  employee: 1000
  project: 5000
  project_employee: 7000

notifications:
  webhooks: []
`
