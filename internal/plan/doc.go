// Package plan defines the registry plan record model, the query and lookup
// tables for lot types and parishes, and the interfaces a paginated search
// source must satisfy for the aggregation engine to drive it.
package plan
