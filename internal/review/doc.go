// Package review holds suggestions routed to manual review until a
// human decides them. Decisions require a reason and happen once per
// entry; later changes go through an override path that accumulates an
// audit trail, persisted through the journal. The queue is bounded,
// evicting decided work before undecided work, and expires reviewed
// entries past a retention window.
package review
