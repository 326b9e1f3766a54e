package buildconfig

import (
	"fmt"
	"regexp"
)

// knownExtensions are matched against rule patterns to derive loader tables.
var knownExtensions = []string{
	".js", ".mjs", ".jsx", ".ts", ".tsx",
	".css", ".scss", ".sass",
	".html",
	".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp",
	".woff", ".woff2", ".ttf", ".eot",
}

// CompiledRule is a Rule with its patterns compiled.
type CompiledRule struct {
	Rule
	test    *regexp.Regexp
	exclude *regexp.Regexp
}

// Matches reports whether the rule applies to path.
func (r CompiledRule) Matches(path string) bool {
	if !r.test.MatchString(path) {
		return false
	}
	return r.exclude == nil || !r.exclude.MatchString(path)
}

// Step returns the step for tool in this rule's chain.
func (r CompiledRule) Step(tool string) (Step, bool) {
	for _, s := range r.Chain {
		if s.Tool == tool {
			return s, true
		}
	}
	return Step{}, false
}

// Rules is an ordered list of compiled rules.
type Rules []CompiledRule

// CompileRules compiles the test and exclude patterns of every rule.
func CompileRules(rules []Rule) (Rules, error) {
	compiled := make(Rules, 0, len(rules))
	for i, r := range rules {
		test, err := regexp.Compile(r.Test)
		if err != nil {
			return nil, fmt.Errorf("rule %d: invalid test pattern: %w", i, err)
		}
		cr := CompiledRule{Rule: r, test: test}
		if r.Exclude != "" {
			if cr.exclude, err = regexp.Compile(r.Exclude); err != nil {
				return nil, fmt.Errorf("rule %d: invalid exclude pattern: %w", i, err)
			}
		}
		compiled = append(compiled, cr)
	}
	return compiled, nil
}

// Match returns the first rule matching path.
func (rs Rules) Match(path string) (CompiledRule, bool) {
	for _, r := range rs {
		if r.Matches(path) {
			return r, true
		}
	}
	return CompiledRule{}, false
}

// Extensions returns the known file extensions handled by a rule whose
// chain contains tool, in lookup order.
func (rs Rules) Extensions(tool string) []string {
	var exts []string
	for _, ext := range knownExtensions {
		r, ok := rs.Match("file" + ext)
		if !ok {
			continue
		}
		if _, ok := r.Step(tool); ok {
			exts = append(exts, ext)
		}
	}
	return exts
}
