package rules

import (
	"errors"
	"strings"
)

// errNoSuchRule is wrapped when a filter names a rule the set does not have.
var errNoSuchRule = errors.New("no such rule")

// Select narrows set to the enabled rules minus the disabled ones. An empty
// enabled list keeps every rule. Rule ids are compared case-insensitively;
// naming an id the set does not contain is a configuration error.
func Select(set *RuleSet, enabled, disabled []string) (*RuleSet, error) {
	if len(enabled) == 0 && len(disabled) == 0 {
		return set, nil
	}

	for _, list := range []struct {
		field string
		ids   []string
	}{{"rules.enabled", enabled}, {"rules.disabled", disabled}} {
		for _, id := range list.ids {
			if !hasRule(set, id) {
				return nil, &RuleConfigError{Domain: set.Name(), RuleID: id, Field: list.field, Err: errNoSuchRule}
			}
		}
	}

	def := set.def
	def.Rules = nil
	for _, r := range set.def.Rules {
		if len(enabled) > 0 && !containsString(enabled, r.ID()) {
			continue
		}
		if containsString(disabled, r.ID()) {
			continue
		}
		def.Rules = append(def.Rules, r)
	}
	return NewRuleSet(def)
}

// BySeverity returns the rules of set with the given severity, in
// declaration order.
func BySeverity(set *RuleSet, sev Severity) []*Rule {
	var out []*Rule
	for _, r := range set.def.Rules {
		if r.Severity() == sev {
			out = append(out, r)
		}
	}
	return out
}

func hasRule(set *RuleSet, id string) bool {
	for _, r := range set.def.Rules {
		if strings.EqualFold(r.ID(), id) {
			return true
		}
	}
	return false
}

// containsString checks if a string slice contains a value (case-insensitive).
func containsString(slice []string, value string) bool {
	for _, s := range slice {
		if strings.EqualFold(s, value) {
			return true
		}
	}
	return false
}
