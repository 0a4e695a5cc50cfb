package approval

import (
	"fmt"
	"regexp"
	"strings"

	"curator/internal/suggest"
)

// The orchestrator runs its own safety net, separate from the filter's:
// an item that slipped through categorization with a risky path must
// still never execute unattended.
var (
	systemDirPattern = regexp.MustCompile(`(?i)^(/System/|/Library/|/usr/|/bin/|/sbin/|/etc/|/boot/|/proc/|/sys/|/var/|/opt/|[A-Za-z]:\\(Windows|Program Files))`)
	configExtPattern = regexp.MustCompile(`(?i)\.(json|ya?ml|toml|ini|conf|cfg|plist|env)$`)
)

type safetyRule struct {
	name string
	re   *regexp.Regexp
}

// compileRules builds the safety rule set: the built-in system-directory
// and config-extension patterns plus the configured glob list.
func compileRules(globs []string) ([]safetyRule, error) {
	rules := []safetyRule{
		{name: "system directory", re: systemDirPattern},
		{name: "configuration file", re: configExtPattern},
	}
	for _, glob := range globs {
		re, err := globRegexp(glob)
		if err != nil {
			return nil, fmt.Errorf("dangerous path glob %q: %w", glob, err)
		}
		rules = append(rules, safetyRule{name: fmt.Sprintf("glob %s", glob), re: re})
	}
	return rules, nil
}

// matchRules reports the first rule that matches either path of the
// metadata, along with the matching path.
func matchRules(rules []safetyRule, meta suggest.FileMetadata) (string, string) {
	for _, path := range []string{meta.OriginalPath, meta.TargetPath} {
		if path == "" {
			continue
		}
		for _, rule := range rules {
			if rule.re.MatchString(path) {
				return rule.name, path
			}
		}
	}
	return "", ""
}

// globRegexp compiles a filepath-style glob into an anchored regexp.
// `*` matches within one path segment, `?` a single non-separator
// character, and character classes pass through unchanged.
func globRegexp(glob string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("^")
	for i := 0; i < len(glob); i++ {
		switch c := glob[i]; c {
		case '*':
			b.WriteString(`[^/]*`)
		case '?':
			b.WriteString(`[^/]`)
		case '[':
			end := strings.IndexByte(glob[i:], ']')
			if end <= 0 {
				return nil, fmt.Errorf("unterminated character class in %q", glob)
			}
			b.WriteString(glob[i : i+end+1])
			i += end
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}
