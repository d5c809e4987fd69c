// Package provenance reads and signs C2PA provenance manifests.
//
// The manifest binary format is never handled here: the Reader and
// LocalSigner delegate to the provenance CLI tool, and the RemoteSigner
// delegates to the signing service's box-size/sign HTTP protocol. This
// package only supplies configuration, credentials, and manifest
// definitions.
package provenance
