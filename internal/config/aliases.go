package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/finops-claw-gang/eventcheck-go/internal/domain"
)

// aliasFile is the on-disk shape of an alias rule file:
//
//	aliases:
//	  - a: user_id
//	    b: userId
//	    label: user
type aliasFile struct {
	Aliases []domain.AliasRule `yaml:"aliases"`
}

// LoadAliases returns the alias rules from path, or the built-in rules when
// path is empty. An empty list in the file disables aliasing.
func LoadAliases(path string) ([]domain.AliasRule, error) {
	if path == "" {
		return domain.DefaultAliasRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read alias file: %w", err)
	}
	return ParseAliases(data)
}

// ParseAliases decodes and validates an alias rule document.
func ParseAliases(data []byte) ([]domain.AliasRule, error) {
	var f aliasFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("config: parse alias file: %w", err)
	}
	if err := domain.ValidateAliasRules(f.Aliases); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if f.Aliases == nil {
		return []domain.AliasRule{}, nil
	}
	return f.Aliases, nil
}
