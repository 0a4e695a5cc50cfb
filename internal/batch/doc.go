// Package batch schedules approved file operations for execution.
//
// Operations arrive either staged one at a time or as pre-built lists
// from the auto-approval pipeline, and are partitioned into batch
// groups. A single scheduling loop dequeues groups by weight,
// interactive ahead of background, and runs at most the configured
// number of batches at once. Every operation in a group is validated
// before any of them executes; interactive groups then run as one
// all-or-nothing transaction while background groups fan out over
// single-operation transactions. Each transaction outcome lands in
// the journal so completed work can be undone later.
package batch
