// Package store provides persistent storage for the bot.
//
// # Architecture
//
// Store is the single interface consumed by the rest of the bot. SQLStore
// implements it over database/sql with two backends:
//
//   - SQLite via modernc.org/sqlite (default, pure Go)
//   - Postgres via github.com/lib/pq
//
// Both share one schema and one set of queries. The dialect only changes
// placeholder style (? vs $n), the auto-increment column type and how
// constraint violations are recognised.
//
// # Data Models
//
//   - Member: registered community member, keyed by conversation identity
//   - Event: admin-published event, deletable with cascade
//   - Announcement: singleton "join the rocket" record, every field nullable
//   - Application: one sign-up for an event or the announcement
//   - Account: Matrix user to numeric identity mapping plus DM room
//
// # Uniqueness
//
// The database is the authority for every uniqueness rule:
//
//   - members.phone is UNIQUE; a clash surfaces as ErrDuplicatePhone
//   - one application per (member, event) and one announcement application
//     per member, enforced by partial unique indexes
//
// InsertApplication is a single INSERT ... ON CONFLICT DO NOTHING RETURNING
// statement, so concurrent identical submissions produce exactly one row.
//
// # Partial Updates
//
// EventPatch and AnnouncementPatch use Optional[T] fields. The zero value
// keeps the stored value, Clear resets it to NULL and Set replaces it.
//
// # Testing
//
// Use NewMockStore() for unit tests of consumers. Set MockStore.Err (or call
// SetErr) to simulate storage failures.
//
// Use NewSQLiteStore(path) with t.TempDir() for integration tests. Set
// RAKETA_TEST_POSTGRES_URL to also run the Postgres tests.
package store
