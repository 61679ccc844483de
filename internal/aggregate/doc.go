// Package aggregate is the record aggregation engine. It drives the pages of
// a plan.Session, normalizes raw rows, folds them into an Accumulator keyed by
// deposit, orders the result for export, and sweeps the lot type and parish
// cross product one session at a time.
package aggregate
