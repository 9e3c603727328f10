// Package testkit provides pgxmock-backed sandboxes and row fixtures for
// exercising the query builder and entity clients without a database.
package testkit
