package provenance

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"sigil/internal/c2patool"
	"sigil/internal/config"
)

// commandRunner is the slice of the provenance tool this package needs.
type commandRunner interface {
	Run(ctx context.Context, cmd c2patool.Command) ([]byte, error)
}

// Reader parses existing provenance metadata from asset files.
type Reader struct {
	tools  config.Tools
	runner commandRunner
}

// NewReader constructs a Reader backed by the provenance tool.
func NewReader(cfg *config.Config, runner commandRunner) *Reader {
	return &Reader{tools: cfg.Tools, runner: runner}
}

// Read returns the manifest store attached to the asset at path, or
// (nil, nil) when the asset carries no provenance data. Errors indicate the
// tool failed or produced an unreadable store; callers treat both as
// "no metadata available".
func (r *Reader) Read(ctx context.Context, path string) (*Metadata, error) {
	out, err := r.runner.Run(ctx, c2patool.InspectCommand(r.tools, path))
	if err != nil {
		return nil, fmt.Errorf("inspect asset: %w", err)
	}

	trimmed := strings.TrimSpace(string(out))
	if trimmed == "" {
		return nil, nil
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return nil, fmt.Errorf("parse manifest store: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	return &Metadata{Raw: raw}, nil
}
