package quality

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/recipeflow/internal/core"
)

//go:embed default_rules.yaml
var defaultRules []byte

// Rule types accepted in a plan.
const (
	TypeCompleteness = "completeness"
	TypeMembership   = "membership"
	TypeRange        = "range"
	TypeUnique       = "unique"
	TypeReferences   = "references"
)

// Plan is the serialized form of a set of pipelines.
type Plan struct {
	Tables []TablePlan `yaml:"tables"`
}

// TablePlan lists the rules for one table, in execution order.
type TablePlan struct {
	Table string     `yaml:"table"`
	Rules []RuleSpec `yaml:"rules"`
}

// RuleSpec describes one rule. Which fields apply depends on Type.
type RuleSpec struct {
	Type    string   `yaml:"type"`
	Columns []string `yaml:"columns,omitempty"`
	Column  string   `yaml:"column,omitempty"`
	Allowed []string `yaml:"allowed,omitempty"`
	Min     *float64 `yaml:"min,omitempty"`
	Max     *float64 `yaml:"max,omitempty"`
	// References is "table.column" for the references rule.
	References string `yaml:"references,omitempty"`
}

// DefaultPlan returns the built-in plan.
func DefaultPlan() Plan {
	p, err := LoadPlan(bytes.NewReader(defaultRules))
	if err != nil {
		panic(fmt.Sprintf("quality: embedded rule plan is invalid: %v", err))
	}
	return p
}

// LoadPlan reads a YAML plan. Unknown fields are rejected.
func LoadPlan(r io.Reader) (Plan, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var p Plan
	if err := dec.Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			return Plan{}, fmt.Errorf("%w: plan is empty", core.ErrRuleConfig)
		}
		return Plan{}, fmt.Errorf("%w: %v", core.ErrRuleConfig, err)
	}
	if _, err := p.Build(); err != nil {
		return Plan{}, err
	}
	return p, nil
}

// LoadPlanFile reads the plan at path, or returns DefaultPlan when path is empty.
func LoadPlanFile(path string) (Plan, error) {
	if path == "" {
		return DefaultPlan(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Plan{}, fmt.Errorf("open rule plan: %w", err)
	}
	defer f.Close()

	p, err := LoadPlan(f)
	if err != nil {
		return Plan{}, fmt.Errorf("rule plan %s: %w", path, err)
	}
	return p, nil
}

// Marshal renders the plan as YAML.
func (p Plan) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WithRangeMax returns a copy of p with the upper bound of every range rule
// on table.column replaced by max.
func (p Plan) WithRangeMax(table, column string, max float64) Plan {
	out := Plan{Tables: make([]TablePlan, len(p.Tables))}
	for i, tp := range p.Tables {
		rules := make([]RuleSpec, len(tp.Rules))
		copy(rules, tp.Rules)
		if tp.Table == table {
			for j := range rules {
				if rules[j].Type == TypeRange && rules[j].Column == column {
					m := max
					rules[j].Max = &m
				}
			}
		}
		out.Tables[i] = TablePlan{Table: tp.Table, Rules: rules}
	}
	return out
}

// Build converts the plan into pipelines, in plan order.
func (p Plan) Build() ([]Pipeline, error) {
	if len(p.Tables) == 0 {
		return nil, fmt.Errorf("%w: plan has no tables", core.ErrRuleConfig)
	}

	seen := make(map[string]bool, len(p.Tables))
	pipelines := make([]Pipeline, 0, len(p.Tables))

	for _, tp := range p.Tables {
		if tp.Table == "" {
			return nil, fmt.Errorf("%w: table name is required", core.ErrRuleConfig)
		}
		if seen[tp.Table] {
			return nil, fmt.Errorf("%w: table %s listed twice", core.ErrRuleConfig, tp.Table)
		}
		seen[tp.Table] = true

		pl := Pipeline{Table: tp.Table, Rules: make([]Rule, 0, len(tp.Rules))}
		for i, spec := range tp.Rules {
			r, err := spec.build()
			if err != nil {
				return nil, fmt.Errorf("table %s rule %d: %w", tp.Table, i+1, err)
			}
			pl.Rules = append(pl.Rules, r)
		}
		pipelines = append(pipelines, pl)
	}

	return pipelines, nil
}

func (s RuleSpec) build() (Rule, error) {
	switch s.Type {
	case TypeCompleteness:
		if len(s.Columns) == 0 {
			return nil, fmt.Errorf("%w: completeness needs columns", core.ErrRuleConfig)
		}
		return Completeness{Required: s.Columns}, nil

	case TypeMembership:
		if s.Column == "" || len(s.Allowed) == 0 {
			return nil, fmt.Errorf("%w: membership needs column and allowed", core.ErrRuleConfig)
		}
		return Membership{Column: s.Column, Allowed: s.Allowed}, nil

	case TypeRange:
		if s.Column == "" || s.Min == nil || s.Max == nil {
			return nil, fmt.Errorf("%w: range needs column, min and max", core.ErrRuleConfig)
		}
		if *s.Max <= *s.Min {
			return nil, fmt.Errorf("%w: range max %v must exceed min %v", core.ErrRuleConfig, *s.Max, *s.Min)
		}
		return Range{Column: s.Column, Min: *s.Min, Max: *s.Max}, nil

	case TypeUnique:
		if len(s.Columns) == 0 {
			return nil, fmt.Errorf("%w: unique needs columns", core.ErrRuleConfig)
		}
		return Unique{Keys: s.Columns}, nil

	case TypeReferences:
		table, column, ok := strings.Cut(s.References, ".")
		if s.Column == "" || !ok || table == "" || column == "" {
			return nil, fmt.Errorf("%w: references needs column and references as table.column", core.ErrRuleConfig)
		}
		return &References{Column: s.Column, Table: table, TableColumn: column}, nil

	case "":
		return nil, fmt.Errorf("%w: rule type is required", core.ErrRuleConfig)

	default:
		return nil, fmt.Errorf("%w: unknown rule type %q", core.ErrRuleConfig, s.Type)
	}
}
