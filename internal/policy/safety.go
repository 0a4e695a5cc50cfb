package policy

import "regexp"

// safetyRule pairs a compiled pattern with the label used when the rule
// fires. Rules are matched against both the suggested value and the
// file's current path.
type safetyRule struct {
	label   string
	pattern *regexp.Regexp
}

// dangerousRules force an auto-approved suggestion back to manual
// review. They cover locations and file kinds where an unattended
// rename or move can break a running system.
var dangerousRules = []safetyRule{
	{
		label:   "system directory",
		pattern: regexp.MustCompile(`(?i)^(/System/|/Library/|/usr/|/bin/|/sbin/|/etc/|/boot/|/proc/|/sys/|/var/|[A-Za-z]:\\(Windows|Program Files))`),
	},
	{
		label:   "package manifest",
		pattern: regexp.MustCompile(`(?i)(^|/)(package\.json|package-lock\.json|yarn\.lock|go\.mod|go\.sum|Cargo\.toml|Cargo\.lock|requirements\.txt|Pipfile|Pipfile\.lock|pyproject\.toml|composer\.json|Gemfile|Gemfile\.lock|pom\.xml|build\.gradle|Makefile|CMakeLists\.txt)$`),
	},
	{
		label:   "version control metadata",
		pattern: regexp.MustCompile(`(^|/)\.(git|svn|hg)(/|$)`),
	},
	{
		label:   "executable",
		pattern: regexp.MustCompile(`(?i)\.(exe|dll|so|dylib|msi|app|bat|cmd|com|ps1|sh)$`),
	},
}

// cautionRules mark file kinds worth a second look. A caution match is
// logged but does not change the category.
var cautionRules = []safetyRule{
	{
		label:   "source code",
		pattern: regexp.MustCompile(`(?i)\.(go|py|js|jsx|ts|tsx|java|c|cc|cpp|h|hpp|rs|rb|php|swift|kt|scala)$`),
	},
	{
		label:   "certificate or key material",
		pattern: regexp.MustCompile(`(?i)\.(pem|crt|cer|der|key|p12|pfx|jks|gpg|asc)$`),
	},
	{
		label:   "archive",
		pattern: regexp.MustCompile(`(?i)\.(zip|tar|gz|tgz|bz2|xz|7z|rar|iso)$`),
	},
	{
		label:   "database file",
		pattern: regexp.MustCompile(`(?i)\.(db|sqlite|sqlite3|mdb|accdb|sql|dump)$`),
	},
}

func matchRules(rules []safetyRule, value, originalPath string) (string, bool) {
	for _, rule := range rules {
		if rule.pattern.MatchString(value) || rule.pattern.MatchString(originalPath) {
			return rule.label, true
		}
	}
	return "", false
}

func matchDangerous(value, originalPath string) (string, bool) {
	return matchRules(dangerousRules, value, originalPath)
}

func matchCaution(value, originalPath string) (string, bool) {
	return matchRules(cautionRules, value, originalPath)
}
