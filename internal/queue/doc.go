// Package queue persists rendition jobs in SQLite so the daemon can work
// through them one at a time and survive restarts.
package queue
