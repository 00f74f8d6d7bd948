// Package database provides SQLite storage for the media catalog.
//
// It handles:
//   - Media records with keyword associations and share tokens
//   - Gallery queries with conjunctive filtering and pagination
//   - Categories with soft-delete
//   - User accounts and authentication sessions
//
// The database uses WAL mode for improved concurrent read performance
// and includes automatic schema initialization. Writes that touch more
// than one table (ingestion, keyword reconciliation) run in a single
// transaction so a media record and its keywords commit atomically.
package database
