// Package identity exchanges per-job client credentials for bearer access
// tokens against the tier-specific identity provider endpoint. Tokens are
// only needed when a job requests internal provenance tooling.
package identity
