// Package suggest defines the shared data model for the suggestion pipeline.
//
// A suggestion moves through four shapes as it is processed: RawSuggestion
// (as ingested from the AI collaborator), ScoredSuggestion (validated and
// ranked), CategorizedSuggestion (routed to auto-approve, manual review, or
// rejection), and finally a QueueEntry or ReviewEntry while it waits for
// execution or a human verdict. Approved work becomes BatchOperations grouped
// into BatchGroups for the scheduler.
//
// The types here are plain data. Every component that hands one across a
// boundary either copies it or calls the Clone helpers; nothing in this
// package synchronizes access.
package suggest
