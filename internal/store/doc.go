// Package store declares the persistence contracts for sweep runs and the
// plan records they produce. Implementations live under internal/storage.
package store
