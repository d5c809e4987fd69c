// Package daemon runs the background loop that drains the rendition queue,
// guarded by a lock file so only one instance processes jobs at a time.
package daemon
