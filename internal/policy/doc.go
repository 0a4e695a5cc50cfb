// Package policy routes scored suggestions into auto-approve, manual
// review, or reject buckets. The cutoff comes from a named profile or a
// custom threshold, a fixed floor separates review from rejection, and
// a safety pass forces risky auto-approvals back to manual review.
package policy
