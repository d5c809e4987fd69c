// Package c2patool builds and executes provenance CLI tool invocations.
//
// Commands are argument vectors, never concatenated shell strings, so asset
// paths cannot smuggle shell syntax. Two binaries are supported: the public
// tool and an internal variant that requires a bearer token obtained through
// the identity package.
//
// Execute deliberately swallows subprocess and parse failures into a nil
// result: the callers that use it treat "no manifest produced" as a soft,
// ignorable outcome. Run is the hard-error variant for callers that must
// know the tool failed.
package c2patool
