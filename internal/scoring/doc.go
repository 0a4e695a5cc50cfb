// Package scoring validates and ranks AI file-naming suggestions.
//
// Each suggestion is scored on four components: structural validity of the
// proposed filename, alignment with the file's known metadata, consistency
// between the value and the AI's stated reasoning, and naming-convention
// compliance. The weighted component score scales the AI's own confidence
// into an adjusted confidence, and a quality score folds in validation flag
// penalties. Results are ranked per file and truncated to a configured
// maximum.
//
// Scoring is pure computation: it never touches the filesystem and a failure
// on one suggestion degrades that suggestion rather than aborting the set.
package scoring
