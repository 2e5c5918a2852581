// Package testdb provides helpers for tests that need a real PostgreSQL
// database. Tests call Open, which skips the test when
// SUMMA_TEST_DATABASE_URL is unset and otherwise returns a migrated
// connection, and WithTx to run a test body in a transaction that is always
// rolled back.
package testdb
