// Package main hosts the sigil CLI entrypoint and command graph.
//
// The Cobra-based command tree covers one-shot rendition signing, queue
// maintenance, the foreground daemon loop, and configuration scaffolding. It
// centralizes configuration resolution and logging setup so subcommands stay
// focused on user experience.
package main
