// Package ledger records member applications to events and to the
// announcement. Uniqueness is enforced by the database in a single
// statement, so it holds across concurrent submissions and does not depend
// on conversation locks.
package ledger
