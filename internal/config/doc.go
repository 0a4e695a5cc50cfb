// Package config loads, validates, and normalizes curator configuration.
//
// Configuration is a TOML file resolved from an explicit path, the default
// ~/.config/curator/config.toml, or a project-local curator.toml. Defaults
// cover every setting, so curator runs without a config file. Load expands
// paths, fills defaults for blank values, and rejects configurations that
// could not operate safely (bad threshold profiles, weight sums above 1.0,
// malformed glob patterns).
package config
