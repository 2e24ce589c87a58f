// Package overrides holds hand-authored answers that preempt retrieval.
package overrides

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Rule is one override: if any pattern matches the question, the
// canned answer and sources are returned without touching the index.
type Rule struct {
	Patterns []string `yaml:"patterns"`
	Answer   string   `yaml:"answer"`
	Sources  []string `yaml:"sources"`

	compiled []*regexp.Regexp
}

// Table is the compiled, read-only override set.
type Table struct {
	rules []Rule
}

// Load reads and compiles the overrides file. A missing or empty path
// yields an empty table; a malformed file is a hard error because
// overrides are authoritative and silent misconfiguration is dangerous.
func Load(path string) (*Table, error) {
	if path == "" {
		return &Table{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Table{}, nil
		}
		return nil, fmt.Errorf("read overrides file: %w", err)
	}

	var rules []Rule
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parse overrides file %s: %w", path, err)
	}

	for i := range rules {
		for _, pattern := range rules[i].Patterns {
			re, err := regexp.Compile("(?i)" + pattern)
			if err != nil {
				return nil, fmt.Errorf("overrides rule %d: compile %q: %w", i, pattern, err)
			}
			rules[i].compiled = append(rules[i].compiled, re)
		}
	}

	return &Table{rules: rules}, nil
}

// Lookup returns the first rule with any pattern matching question,
// or nil. Linear scan is fine at the expected tens-of-rules scale.
func (t *Table) Lookup(question string) *Rule {
	for i := range t.rules {
		for _, re := range t.rules[i].compiled {
			if re.MatchString(question) {
				return &t.rules[i]
			}
		}
	}
	return nil
}

// Len returns the number of loaded rules.
func (t *Table) Len() int { return len(t.rules) }
