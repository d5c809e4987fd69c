// Package worker runs a single rendition invocation end to end.
//
// The flow is strictly linear: validate the source, read existing
// provenance metadata, sign the asset (falling back to a verified copy of
// the source on any signing failure), then optionally propagate the
// source's active manifest. Only an empty source file is fatal; every other
// failure degrades to a warning and a safe fallback so a usable rendition
// always exists when Process returns nil.
package worker
