// Package propagate copies a source asset's active provenance manifest onto
// a rendition. Propagation is always best-effort: the worker records
// failures and carries on, since a rendition without a propagated manifest
// is still a deliverable.
package propagate
