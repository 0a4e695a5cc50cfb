// Package notifications pushes pipeline milestones to ntfy. A Notifier
// formats and sends individual pushes; a Relay subscribes to the event
// bus and forwards batch outcomes, review backlog, and error events per
// the [notifications] config toggles. Without a configured topic every
// push is a silent no-op.
package notifications
