// Package categorize assigns spending categories using ordered keyword rules.
package categorize

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ArionMiles/budgify/pkg/api"
)

// regexPrefix marks a pattern as a regular expression instead of a substring.
const regexPrefix = "re:"

// Pattern matches a lowercased merchant or description.
type Pattern struct {
	raw     string
	keyword string
	re      *regexp.Regexp
}

// NewPattern compiles a pattern. Plain patterns are case-insensitive
// substrings; patterns starting with "re:" are case-insensitive regexps.
func NewPattern(raw string) (Pattern, error) {
	if expr, ok := strings.CutPrefix(raw, regexPrefix); ok {
		re, err := regexp.Compile("(?i)" + expr)
		if err != nil {
			return Pattern{}, fmt.Errorf("compiling pattern %q: %w", raw, err)
		}
		return Pattern{raw: raw, re: re}, nil
	}
	keyword := strings.ToLower(strings.TrimSpace(raw))
	if keyword == "" {
		return Pattern{}, fmt.Errorf("empty keyword")
	}
	return Pattern{raw: raw, keyword: keyword}, nil
}

// Match reports whether the pattern matches s. s must already be lowercased.
func (p Pattern) Match(s string) bool {
	if p.re != nil {
		return p.re.MatchString(s)
	}
	return strings.Contains(s, p.keyword)
}

func (p Pattern) String() string {
	return p.raw
}

// Rule maps a category label to its patterns.
type Rule struct {
	Category string
	Patterns []Pattern
}

// RuleSet is an ordered list of rules. The first matching rule wins, so the
// order is kept exactly as configured.
type RuleSet struct {
	rules []Rule
}

// NewRuleSet builds a rule set from rules in priority order.
func NewRuleSet(rules ...Rule) *RuleSet {
	return &RuleSet{rules: append([]Rule(nil), rules...)}
}

// MustRules builds a rule set from label/keyword pairs and panics on invalid
// patterns. Intended for tests and built-in defaults.
func MustRules(pairs ...any) *RuleSet {
	if len(pairs)%2 != 0 {
		panic("categorize: MustRules needs label/patterns pairs")
	}
	rules := make([]Rule, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		label := pairs[i].(string)
		raw := pairs[i+1].([]string)
		rule, err := newRule(label, raw)
		if err != nil {
			panic(err)
		}
		rules = append(rules, rule)
	}
	return NewRuleSet(rules...)
}

func newRule(label string, raw []string) (Rule, error) {
	rule := Rule{Category: label}
	for _, r := range raw {
		p, err := NewPattern(r)
		if err != nil {
			return Rule{}, fmt.Errorf("category %q: %w", label, err)
		}
		rule.Patterns = append(rule.Patterns, p)
	}
	return rule, nil
}

// Rules returns the rules in priority order.
func (rs *RuleSet) Rules() []Rule {
	if rs == nil {
		return nil
	}
	return append([]Rule(nil), rs.rules...)
}

// Categories returns the configured labels in priority order.
func (rs *RuleSet) Categories() []string {
	if rs == nil {
		return nil
	}
	out := make([]string, 0, len(rs.rules))
	for _, r := range rs.rules {
		out = append(out, r.Category)
	}
	return out
}

// Categorize returns the category for t, or api.Uncategorized.
func (rs *RuleSet) Categorize(t api.Transaction) string {
	if rs == nil {
		return api.Uncategorized
	}
	merchant := strings.ToLower(t.Merchant)
	desc := strings.ToLower(t.Description)
	for _, rule := range rs.rules {
		for _, p := range rule.Patterns {
			if p.Match(merchant) || p.Match(desc) {
				return rule.Category
			}
		}
	}
	return api.Uncategorized
}

// Apply returns copies of txns with categories assigned. Transactions that
// already carry a category keep it.
func (rs *RuleSet) Apply(txns []api.Transaction) []api.Transaction {
	out := make([]api.Transaction, len(txns))
	for i, t := range txns {
		if t.Category == "" {
			t.Category = rs.Categorize(t)
		}
		out[i] = t
	}
	return out
}

// Parse decodes a YAML mapping of category label to a keyword list, keeping
// document order. A scalar value is treated as a single keyword.
func Parse(node *yaml.Node) (*RuleSet, error) {
	if node == nil || node.Kind == 0 {
		return NewRuleSet(), nil
	}
	if node.Kind == yaml.DocumentNode && len(node.Content) == 1 {
		node = node.Content[0]
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("categories must be a mapping, got %s", kindName(node.Kind))
	}

	rules := make([]Rule, 0, len(node.Content)/2)
	seen := make(map[string]struct{})
	for i := 0; i+1 < len(node.Content); i += 2 {
		label := strings.TrimSpace(node.Content[i].Value)
		if label == "" {
			return nil, fmt.Errorf("line %d: empty category label", node.Content[i].Line)
		}
		if _, dup := seen[label]; dup {
			return nil, fmt.Errorf("line %d: duplicate category %q", node.Content[i].Line, label)
		}
		seen[label] = struct{}{}

		var raw []string
		value := node.Content[i+1]
		switch value.Kind {
		case yaml.SequenceNode:
			if err := value.Decode(&raw); err != nil {
				return nil, fmt.Errorf("category %q: %w", label, err)
			}
		case yaml.ScalarNode:
			if value.Tag != "!!null" && value.Value != "" {
				raw = []string{value.Value}
			}
		default:
			return nil, fmt.Errorf("category %q: keywords must be a list", label)
		}

		rule, err := newRule(label, raw)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return NewRuleSet(rules...), nil
}

// LoadFile reads the "categories" mapping from a YAML config file.
func LoadFile(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}
	var doc struct {
		Categories yaml.Node `yaml:"categories"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing rules file: %w", err)
	}
	return Parse(&doc.Categories)
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.SequenceNode:
		return "sequence"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "document"
	}
}
