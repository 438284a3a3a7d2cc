package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ConfigFileName is the explicit project config file.
const ConfigFileName = "gatewright.yaml"

// pyprojectFile carries only the section this tool owns; everything else
// in pyproject.toml is ignored.
type pyprojectFile struct {
	Tool struct {
		Gatewright *fileConfig `toml:"gatewright"`
	} `toml:"tool"`
}

// Load resolves configuration for the project rooted at dir. Precedence:
// gatewright.yaml, then the [tool.gatewright] table in pyproject.toml,
// then built-in defaults. The first layer that sets any option wins
// outright; layers are not stacked on each other.
func Load(dir string) (*Config, error) {
	yamlPath := filepath.Join(dir, ConfigFileName)
	if _, err := os.Stat(yamlPath); err == nil {
		data, err := os.ReadFile(yamlPath)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		var fc fileConfig
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", ConfigFileName, err)
		}
		return merge(&fc, yamlPath), nil
	}

	tomlPath := filepath.Join(dir, "pyproject.toml")
	if _, err := os.Stat(tomlPath); err == nil {
		var pf pyprojectFile
		if _, err := toml.DecodeFile(tomlPath, &pf); err != nil {
			return nil, fmt.Errorf("parsing pyproject.toml: %w", err)
		}
		if pf.Tool.Gatewright != nil && !pf.Tool.Gatewright.empty() {
			return merge(pf.Tool.Gatewright, tomlPath), nil
		}
	}

	return Default(), nil
}

// LoadValidated loads the config for dir and rejects it when any
// validation rule fails, reporting every violation in one error.
func LoadValidated(dir string) (*Config, error) {
	cfg, err := Load(dir)
	if err != nil {
		return nil, err
	}
	if errs := Validate(cfg); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return nil, fmt.Errorf("invalid config (%s): %s", cfg.Source, strings.Join(msgs, "; "))
	}
	return cfg, nil
}

// merge lays the user's file over the defaults. Only fields the user set
// override; an explicit zero counts as set.
func merge(fc *fileConfig, source string) *Config {
	cfg := Default()
	cfg.Source = source

	if fc.Policy.MaxAttempts != nil {
		cfg.Policy.MaxAttempts = *fc.Policy.MaxAttempts
	}
	if fc.Policy.MaxPatchLines != nil {
		cfg.Policy.MaxPatchLines = *fc.Policy.MaxPatchLines
	}
	if fc.Policy.AbortOnNoImprovement != nil {
		cfg.Policy.AbortOnNoImprovement = *fc.Policy.AbortOnNoImprovement
	}
	if fc.Policy.TimeCapSeconds != nil {
		cfg.Policy.TimeCapSeconds = *fc.Policy.TimeCapSeconds
	}
	for gate, command := range fc.Commands {
		cfg.Commands[gate] = command
	}
	if fc.Gates.TestInReduced != nil {
		cfg.Gates.TestInReduced = *fc.Gates.TestInReduced
	}
	return cfg
}
