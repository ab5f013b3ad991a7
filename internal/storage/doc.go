// Package storage is the transactional substrate behind the counter, presence
// and activity services. Every write operation runs inside a single WithTx call;
// the driver guarantees that two transactions touching the counter row are
// serialized.
//
// Two drivers are provided: SQLite (default, single writer connection) and
// Postgres (pgx pool, counter access guarded by a transaction-scoped advisory lock).
package storage
