// Package manifest loads the YAML files that describe batch comparisons and
// consistency audits.
//
// A batch manifest names event files, resolved relative to the manifest:
//
//	aliases:            # optional; omit for the built-in rules, [] for none
//	  - {a: user_id, b: userId}
//	pairs:
//	  - {id: login, a: ../events/example-a.json, b: ../events/example-b.json}
//
// An audit manifest names stored event ids and is decoded into
// workflows.AuditInput.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/finops-claw-gang/eventcheck-go/internal/batch"
	"github.com/finops-claw-gang/eventcheck-go/internal/domain"
	"github.com/finops-claw-gang/eventcheck-go/internal/temporal/querier"
	"github.com/finops-claw-gang/eventcheck-go/internal/temporal/workflows"
)

type batchFile struct {
	Name    string                `yaml:"name"`
	Aliases []domain.AliasRule    `yaml:"aliases"`
	Pairs   []workflows.AuditPair `yaml:"pairs"`
}

// Batch is a loaded batch manifest with the event files read into memory.
// A nil Aliases list selects the built-in rules.
type Batch struct {
	Name    string
	Aliases []domain.AliasRule
	Pairs   []batch.Pair
}

// LoadBatch reads a batch manifest and every event file it names. Unreadable
// files are an error; unparseable event text is left for the comparison to
// report per pair.
func LoadBatch(path string) (Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Batch{}, fmt.Errorf("manifest: %w", err)
	}
	var f batchFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Batch{}, fmt.Errorf("manifest: parse %s: %w", path, err)
	}
	if len(f.Pairs) == 0 {
		return Batch{}, fmt.Errorf("manifest: %s lists no pairs", path)
	}
	if f.Aliases != nil {
		if err := domain.ValidateAliasRules(f.Aliases); err != nil {
			return Batch{}, fmt.Errorf("manifest: %w", err)
		}
	}

	dir := filepath.Dir(path)
	out := Batch{Name: nameOr(f.Name, path), Aliases: f.Aliases, Pairs: make([]batch.Pair, len(f.Pairs))}
	for i, p := range f.Pairs {
		if p.A == "" || p.B == "" {
			return Batch{}, fmt.Errorf("manifest: pair %d: a and b are required", i)
		}
		a, err := readRelative(dir, p.A)
		if err != nil {
			return Batch{}, fmt.Errorf("manifest: pair %d: %w", i, err)
		}
		b, err := readRelative(dir, p.B)
		if err != nil {
			return Batch{}, fmt.Errorf("manifest: pair %d: %w", i, err)
		}
		id := p.ID
		if id == "" {
			id = "pair-" + strconv.Itoa(i+1)
		}
		out.Pairs[i] = batch.Pair{ID: id, A: a, B: b}
	}
	return out, nil
}

// LoadAudit reads an audit manifest. The audit name defaults to the file name.
func LoadAudit(path string) (workflows.AuditInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return workflows.AuditInput{}, fmt.Errorf("manifest: %w", err)
	}
	var input workflows.AuditInput
	if err := yaml.Unmarshal(data, &input); err != nil {
		return workflows.AuditInput{}, fmt.Errorf("manifest: parse %s: %w", path, err)
	}
	input.Name = nameOr(input.Name, path)
	if err := querier.ValidateAuditInput(input); err != nil {
		return workflows.AuditInput{}, fmt.Errorf("manifest: %w", err)
	}
	return input, nil
}

func readRelative(dir, name string) ([]byte, error) {
	if !filepath.IsAbs(name) {
		name = filepath.Join(dir, name)
	}
	return os.ReadFile(name)
}

func nameOr(name, path string) string {
	if name != "" {
		return name
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
