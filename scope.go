package linkdrip

import (
	"fmt"
	"regexp"
	"strings"
)

// Rule represents a single filtering rule in the discovery scope.
// It contains a compiled regular expression and the type of matching to perform.
type Rule struct {
	Pattern   *regexp.Regexp // Compiled regular expression pattern
	MatchType string         // Type of matching: "host" or "url"
}

// Scope represents the inclusion/exclusion rules and default behavior for
// filtering discovered candidates. A candidate outside the scope is never
// crawled or stored as a prospect.
type Scope struct {
	IncludeRules map[string]Rule // Map of inclusion rules, key format: "pattern|matchType"
	ExcludeRules map[string]Rule // Map of exclusion rules, key format: "pattern|matchType"
	DefaultAllow bool            // Default behavior for candidates not matching any rule
}

// NewScope creates a new Scope with the specified default behavior.
func NewScope(defaultAllow bool) *Scope {
	return &Scope{
		IncludeRules: make(map[string]Rule),
		ExcludeRules: make(map[string]Rule),
		DefaultAllow: defaultAllow,
	}
}

// MatchesString determines if a given string is in scope based on matchType.
func (s *Scope) MatchesString(input string, matchType string) bool {
	matchType = strings.ToLower(matchType)

	if matchType != "host" && matchType != "url" {
		return s.DefaultAllow
	}

	// Check exclusion rules first
	for _, rule := range s.ExcludeRules {
		if rule.MatchType != matchType {
			continue
		}
		if rule.Pattern.MatchString(input) {
			return false // Denied by exclude rule
		}
	}

	for _, rule := range s.IncludeRules {
		if rule.MatchType != matchType {
			continue
		}
		if rule.Pattern.MatchString(input) {
			return true // Allowed by include rule
		}
	}

	return s.DefaultAllow
}

// MatchesCandidate reports whether a candidate URL and its host pass the
// scope. Exclusion on either axis wins.
func (s *Scope) MatchesCandidate(host, url string) bool {
	for _, rule := range s.ExcludeRules {
		var target string
		switch rule.MatchType {
		case "host":
			target = host
		case "url":
			target = url
		default:
			continue
		}
		if rule.Pattern.MatchString(target) {
			return false
		}
	}

	for _, rule := range s.IncludeRules {
		var target string
		switch rule.MatchType {
		case "host":
			target = host
		case "url":
			target = url
		default:
			continue
		}
		if rule.Pattern.MatchString(target) {
			return true
		}
	}

	return s.DefaultAllow
}

// ClearRules clears all inclusion and exclusion rules from the scope.
func (s *Scope) ClearRules() {
	s.IncludeRules = make(map[string]Rule)
	s.ExcludeRules = make(map[string]Rule)
}

// AddRule adds a rule to the scope. Patterns starting with "-" are treated
// as exclusions by SyncScope; here the caller passes exclude explicitly.
func (s *Scope) AddRule(pattern, matchType string, exclude bool) error {
	matchType = strings.ToLower(matchType)
	if matchType != "host" && matchType != "url" {
		return fmt.Errorf("invalid match type: %s", matchType)
	}

	trimmedPattern := strings.TrimPrefix(pattern, "-")
	compiled, err := regexp.Compile(trimmedPattern)
	if err != nil {
		return fmt.Errorf("invalid regex pattern: %w", err)
	}
	rule := Rule{
		Pattern:   compiled,
		MatchType: matchType,
	}
	key := fmt.Sprintf("%s|%s", compiled.String(), matchType)

	if exclude {
		if _, exists := s.ExcludeRules[key]; exists {
			return fmt.Errorf("rule already exists in exclude list")
		}
		s.ExcludeRules[key] = rule
	} else {
		if _, exists := s.IncludeRules[key]; exists {
			return fmt.Errorf("rule already exists in include list")
		}
		s.IncludeRules[key] = rule
	}

	return nil
}

// RemoveRule removes a rule from the scope.
func (s *Scope) RemoveRule(pattern, matchType string, exclude bool) error {
	matchType = strings.ToLower(matchType)
	key := fmt.Sprintf("%s|%s", strings.TrimPrefix(pattern, "-"), matchType)

	if exclude {
		if _, exists := s.ExcludeRules[key]; !exists {
			return fmt.Errorf("rule not found in exclude list")
		}
		delete(s.ExcludeRules, key)
	} else {
		if _, exists := s.IncludeRules[key]; !exists {
			return fmt.Errorf("rule not found in include list")
		}
		delete(s.IncludeRules, key)
	}

	return nil
}

// SyncScope rebuilds the scope from the filters saved in the repository.
// Each filter is "pattern|matchType"; a leading "-" marks an exclusion.
func (app *App) SyncScope() error {
	filters, err := app.Repo.GetFilters()
	if err != nil {
		return fmt.Errorf("getting saved filters : %w", err)
	}

	app.Scope.ClearRules()
	for _, filter := range filters {
		parts := strings.SplitN(filter, "|", 2)
		if len(parts) != 2 {
			app.Logger.Warn("skipping malformed filter", "filter", filter)
			continue
		}
		exclude := strings.HasPrefix(parts[0], "-")
		if err := app.Scope.AddRule(parts[0], parts[1], exclude); err != nil {
			app.Logger.Warn("skipping invalid filter", "filter", filter, "error", err)
		}
	}
	return nil
}

// SaveScope persists the current scope rules as dashboard filters.
func (app *App) SaveScope() error {
	var filters []string
	for key := range app.Scope.IncludeRules {
		filters = append(filters, key)
	}
	for key := range app.Scope.ExcludeRules {
		filters = append(filters, "-"+key)
	}
	if err := app.Repo.SetFilters(filters); err != nil {
		return fmt.Errorf("saving filters : %w", err)
	}
	return nil
}
