package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	workflowerrors "github.com/aidanmoss/forgeflow/pkg/errors"
)

// ParseConfig loads a workflow document from disk, validates its schema,
// and returns the resulting model. CLI-supplied variables, if any,
// override GENERAL's context (CLI overrides file, §4.7).
func ParseConfig(path string, cliOverrides map[string]interface{}) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, workflowerrors.NewConfigError("", fmt.Sprintf("read config %q", path), err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, workflowerrors.NewConfigError("", fmt.Sprintf("parse config %q", path), err)
	}

	if cfg.General.Context == nil {
		cfg.General.Context = NewParams()
	}
	if cfg.General.RuleParameters == nil {
		cfg.General.RuleParameters = make(map[string]*Params)
	}
	for key, value := range cliOverrides {
		cfg.General.Context.Set(key, value)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
