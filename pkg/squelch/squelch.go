// pkg/squelch/squelch.go

// Package squelch suppresses configured issues from the final report.
//
// A squelch list is a comma separated list of entries of the form
// name[@key=value;key=value]. An entry matches an issue when the names are
// equal and every restriction is present in the issue's extension attributes.
package squelch

import (
	"strings"

	"github.com/cockroachdb/errors"

	"gitlab.consulting.redhat.com/ksa/health-check-proxmox/pkg/checks"
)

// Default is applied when no squelch list is configured
const Default = "storage:invalid_content"

// Rule is one parsed squelch entry
type Rule struct {
	Name     string
	Restrict map[string]string
}

// Matches reports whether the rule suppresses issue
func (r Rule) Matches(issue checks.Issue) bool {
	if issue.Name != r.Name {
		return false
	}
	for k, v := range r.Restrict {
		got, ok := issue.Ext[k]
		if !ok || got != v {
			return false
		}
	}
	return true
}

// String renders the rule back into its configuration form
func (r Rule) String() string {
	if len(r.Restrict) == 0 {
		return r.Name
	}
	return r.Name + "@" + checks.Issue{Ext: r.Restrict}.ExtString()
}

// Parse parses a squelch list. Empty entries are ignored.
func Parse(s string) ([]Rule, error) {
	var rules []Rule
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		name, restricts, hasRestricts := strings.Cut(entry, "@")
		rule := Rule{Name: strings.TrimSpace(name), Restrict: map[string]string{}}
		if rule.Name == "" {
			return nil, errors.Newf("squelch entry %q has no issue name", entry)
		}

		if hasRestricts {
			for _, restrict := range strings.Split(restricts, ";") {
				if strings.TrimSpace(restrict) == "" {
					continue
				}
				k, v, ok := strings.Cut(restrict, "=")
				if !ok {
					return nil, errors.WithHint(
						errors.Newf("squelch restriction %q in %q is not key=value", restrict, entry),
						"use name@key=value;key=value")
				}
				rule.Restrict[strings.TrimSpace(k)] = strings.TrimSpace(v)
			}
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// Filter returns the issues no rule matches, preserving order
func Filter(issues []checks.Issue, rules []Rule) []checks.Issue {
	result := make([]checks.Issue, 0, len(issues))
	for _, issue := range issues {
		if !Squelched(issue, rules) {
			result = append(result, issue)
		}
	}
	return result
}

// Squelched reports whether any rule matches issue
func Squelched(issue checks.Issue, rules []Rule) bool {
	for _, rule := range rules {
		if rule.Matches(issue) {
			return true
		}
	}
	return false
}
