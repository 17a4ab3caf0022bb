package sqfls

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jward/sqfls/internal/sqf"
)

// ConfigFileName is the optional per-workspace configuration file.
const ConfigFileName = ".sqfls.yaml"

// Config selects optional diagnostics and extra addon locations. The zero
// value is the most permissive setting: optional diagnostics are dropped.
type Config struct {
	// UndefinedVariableAsError reports uses of undeclared variables as errors.
	UndefinedVariableAsError bool `yaml:"undefined_variable_as_error" json:"undefined_variable_as_error"`
	// UnusedVariable reports locals that are never read.
	UnusedVariable bool `yaml:"unused_variable" json:"unused_variable"`
	// PrivateVariableExported reports globals a file leaks into the project.
	PrivateVariableExported bool `yaml:"private_variable_exported" json:"private_variable_exported"`
	// Addons maps a game path prefix such as x\tag\addons\main to a directory.
	Addons map[string]string `yaml:"addons" json:"addons"`
	// Workers bounds the project load worker pool; 0 means one per CPU.
	Workers int `yaml:"workers" json:"workers"`
}

// LoadConfig reads a YAML configuration file. A missing file yields the
// default configuration.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("sqfls: load config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("sqfls: parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Filter drops the optional diagnostics the configuration does not ask for.
// Everything else passes through unchanged.
func (c Config) Filter(diags []Diagnostic) []Diagnostic {
	out := make([]Diagnostic, 0, len(diags))
	for _, d := range diags {
		switch d.Code {
		case sqf.CodeUndefinedVariable:
			if !c.UndefinedVariableAsError {
				continue
			}
			d.Severity = sqf.SeverityError
		case sqf.CodeUnusedVariable:
			if !c.UnusedVariable {
				continue
			}
		case sqf.CodeGlobalExported:
			if !c.PrivateVariableExported {
				continue
			}
		}
		out = append(out, d)
	}
	return out
}
