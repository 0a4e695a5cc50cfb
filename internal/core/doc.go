// Package core assembles the suggestion pipeline. An Engine owns the
// scorer, the confidence filter, the auto-approval queue, the manual
// review queue, the batch scheduler, and the file executor, and exposes
// the operations the CLI and the daemon build on: processing raw
// suggestions, staging and batching operations, deciding reviews,
// executing transactions directly, and undoing completed ones from the
// journal.
//
// Routing policy lives here. Suggestions the filter auto-approves but
// the approval queue refuses on safety grounds are demoted to manual
// review instead of being dropped; capacity refusals and incomplete
// metadata reject the suggestion outright. Every final category is
// persisted to the suggestion history when a journal is attached.
package core
