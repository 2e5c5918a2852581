// Package postgres provides PostgreSQL implementations of the persistence
// interfaces defined in internal/store and internal/task, plus the goose
// migration runner for the embedded schema.
package postgres
