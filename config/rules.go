package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ip-san/devsync/metrics"
	"github.com/ip-san/devsync/trace"
)

// Defaults applied when the rules file leaves a field unset.
var (
	DefaultProductionBranches = []string{"production", "prod", "main", "master"}
	DefaultDeployNamePatterns = []string{"deploy", "release", "production", "cd"}
	DefaultIncidentLabels     = []string{"incident", "outage"}
)

const (
	DefaultPeriodDays                = 30
	defaultMergeDeployThresholdHours = 24
)

// Rules is the measurement configuration, normally read from devsync.yaml.
type Rules struct {
	// Repositories to measure, as owner/name. When empty, Organization
	// must be set and repositories are discovered from it.
	Repositories []string `yaml:"repositories"`
	Organization string   `yaml:"organization"`

	ProductionBranches []string `yaml:"production_branches"`
	DeployNamePatterns []string `yaml:"deploy_name_patterns"`
	IncidentLabels     []string `yaml:"incident_labels"`

	MergeDeployThresholdHours int `yaml:"merge_deploy_threshold_hours"`
	MaxChainDepth             int `yaml:"max_chain_depth"`
	PeriodDays                int `yaml:"period_days"`
}

// LoadRules reads, defaults and validates the rules file.
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse rules file %s: %w", path, err)
	}

	r.applyDefaults()
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("rules file %s: %w", path, err)
	}
	return &r, nil
}

func (r *Rules) applyDefaults() {
	if len(r.ProductionBranches) == 0 {
		r.ProductionBranches = slices.Clone(DefaultProductionBranches)
	}
	if len(r.DeployNamePatterns) == 0 {
		r.DeployNamePatterns = slices.Clone(DefaultDeployNamePatterns)
	}
	if len(r.IncidentLabels) == 0 {
		r.IncidentLabels = slices.Clone(DefaultIncidentLabels)
	}
	if r.MergeDeployThresholdHours == 0 {
		r.MergeDeployThresholdHours = defaultMergeDeployThresholdHours
	}
	if r.MaxChainDepth == 0 {
		r.MaxChainDepth = trace.DefaultMaxDepth
	}
	if r.PeriodDays == 0 {
		r.PeriodDays = DefaultPeriodDays
	}
}

// Validate rejects configurations the calculators cannot work with.
func (r *Rules) Validate() error {
	if len(r.Repositories) == 0 && r.Organization == "" {
		return errors.New("no repositories configured and no organization to discover them from")
	}
	for _, repo := range r.Repositories {
		if strings.Count(repo, "/") != 1 {
			return fmt.Errorf("repository %q is not in owner/name form", repo)
		}
	}
	if r.MergeDeployThresholdHours < 1 {
		return errors.New("merge_deploy_threshold_hours must be at least 1")
	}
	if r.MaxChainDepth < 1 {
		return errors.New("max_chain_depth must be at least 1")
	}
	if r.PeriodDays < 1 {
		return errors.New("period_days must be at least 1")
	}
	return nil
}

// IsProductionBranch reports whether a branch counts as production:
// an exact, case-insensitive match against the configured names.
func (r *Rules) IsProductionBranch(name string) bool {
	for _, b := range r.ProductionBranches {
		if strings.EqualFold(name, b) {
			return true
		}
	}
	return false
}

// MergeDeployThreshold is the configured attribution window as a duration.
func (r *Rules) MergeDeployThreshold() time.Duration {
	return time.Duration(r.MergeDeployThresholdHours) * time.Hour
}

// CalculatorOptions hands the metric tunables to the calculator.
func (r *Rules) CalculatorOptions() metrics.Options {
	return metrics.Options{
		MergeDeployThreshold: r.MergeDeployThreshold(),
		DeployNamePatterns:   r.DeployNamePatterns,
	}
}
