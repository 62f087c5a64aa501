// Package history records build events in a SQLite event store and projects
// them into per-build summaries for the history command.
//
// Events are append only. A build is identified by the build id that is also
// written into receipts, so a summary can be matched to the files on disk.
package history
