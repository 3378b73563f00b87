// Package pg provides the PostgreSQL-backed account store, the rbac
// directory, and an append-only audit sink. It speaks database/sql via
// the pgx stdlib driver.
package pg
