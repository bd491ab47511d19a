package classifier

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v2"
)

// Rule maps a pattern to a label
type Rule struct {
	Pattern string `yaml:"pattern" json:"pattern"`
	Label   string `yaml:"label" json:"label"`
}

// DefaultRules are applied when no rules file is configured
var DefaultRules = []Rule{
	{Pattern: `User User\d+ logged (in|out).`, Label: "User Action"},
	{Pattern: `Backup (started|ended) at .*`, Label: "System Notification"},
	{Pattern: `Backup completed successfully.`, Label: "System Notification"},
	{Pattern: `System updated to version .*`, Label: "System Notification"},
	{Pattern: `File .* uploaded successfully by user .*`, Label: "System Notification"},
	{Pattern: `Disk cleanup completed successfully.`, Label: "System Notification"},
	{Pattern: `System reboot initiated by user .*`, Label: "System Notification"},
	{Pattern: `Account with ID .* created by .*`, Label: "User Action"},
}

type compiledRule struct {
	re    *regexp.Regexp
	label string
}

// RuleSet is an ordered list of compiled rules; the first match wins
type RuleSet struct {
	rules []compiledRule
}

// NewRuleSet compiles rules case-insensitively
func NewRuleSet(rules []Rule) (*RuleSet, error) {
	rs := &RuleSet{rules: make([]compiledRule, 0, len(rules))}
	for i, r := range rules {
		if r.Label == "" {
			return nil, fmt.Errorf("rule %d (%q) has no label", i, r.Pattern)
		}
		re, err := regexp.Compile("(?i)" + r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		rs.rules = append(rs.rules, compiledRule{re: re, label: r.Label})
	}
	return rs, nil
}

type rulesFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadRules reads a YAML rules file of the form
//
//	rules:
//	  - pattern: 'Backup completed successfully.'
//	    label: System Notification
func LoadRules(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rules file %s: %w", path, err)
	}
	if len(f.Rules) == 0 {
		return nil, fmt.Errorf("rules file %s defines no rules", path)
	}
	return NewRuleSet(f.Rules)
}

// Match returns the label of the first rule matching message
func (rs *RuleSet) Match(message string) (string, bool) {
	if rs == nil {
		return "", false
	}
	for _, r := range rs.rules {
		if r.re.MatchString(message) {
			return r.label, true
		}
	}
	return "", false
}

// Len returns the number of rules
func (rs *RuleSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.rules)
}
